package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"glowchat/internal/config"
	"glowchat/internal/interfaces/httpserver/routes/v1/chat"
	"glowchat/internal/interfaces/httpserver/routes/v1/conversation"
)

type V1Route struct {
	chat         *chat.ChatCompletionRoute
	conversation *conversation.ConversationRoute
}

func NewV1Route(
	chat *chat.ChatCompletionRoute,
	conversation *conversation.ConversationRoute,
) *V1Route {
	return &V1Route{
		chat:         chat,
		conversation: conversation,
	}
}

func (v1Route *V1Route) RegisterRouter(router gin.IRouter) {
	v1Router := router.Group("/v1")
	v1Router.GET("/version", GetVersion)

	v1Route.chat.RegisterRouter(v1Router)
	v1Route.conversation.RegisterRouter(v1Router)
}

// GetVersion returns the current build version of the API server.
func GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": config.Version,
	})
}
