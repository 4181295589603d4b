package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"glowchat/internal/infrastructure/logger"
	"glowchat/internal/interfaces/httpserver/handlers/authhandler"
	"glowchat/internal/interfaces/httpserver/handlers/chathandler"
	chatrequests "glowchat/internal/interfaces/httpserver/requests/chat"
	"glowchat/internal/interfaces/httpserver/responses"
	chatresponses "glowchat/internal/interfaces/httpserver/responses/chat"
	"glowchat/internal/utils/platformerrors"
)

// ChatCompletionRoute handles chat completion requests with streaming support
// by delegating to the chat handler.
type ChatCompletionRoute struct {
	chatHandler *chathandler.ChatHandler
	authHandler *authhandler.AuthHandler
}

func NewChatCompletionRoute(
	chatHandler *chathandler.ChatHandler,
	authHandler *authhandler.AuthHandler,
) *ChatCompletionRoute {
	return &ChatCompletionRoute{
		chatHandler: chatHandler,
		authHandler: authHandler,
	}
}

func (route *ChatCompletionRoute) RegisterRouter(router gin.IRouter) {
	chat := router.Group("/chat")
	chat.POST("/completions",
		route.authHandler.WithAppUserAuthChain(
			route.PostCompletion,
		)...,
	)
}

// PostCompletion generates a model response for the given chat messages.
// With stream=true the response is relayed as Server-Sent Events ending with
// a [DONE] marker; otherwise a single JSON body is returned. When a
// conversation is referenced the stored history is prepended and the
// exchange is persisted unless store=false.
func (route *ChatCompletionRoute) PostCompletion(reqCtx *gin.Context) {
	user, ok := authhandler.GetUserFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "6e3a8d15-9c2f-4b74-a1e6-4d7b2f8c5a93")
		return
	}

	var request chatrequests.ChatCompletionRequest
	if err := reqCtx.ShouldBindJSON(&request); err != nil {
		responses.HandleError(reqCtx, err, "Invalid request body")
		return
	}

	conversationID := ""
	if request.Conversation != nil {
		conversationID = request.Conversation.GetID()
	}
	preview := ""
	if len(request.Messages) > 0 {
		preview = logger.ContentPreview(request.Messages[len(request.Messages)-1].Content)
	}

	log.Info().
		Str("route", "/v1/chat/completions").
		Str("model", request.Model).
		Str("conversation_id", conversationID).
		Int("messages", len(request.Messages)).
		Bool("stream", request.Stream).
		Str("preview", preview).
		Msg("chat completion request received")

	result, err := route.chatHandler.CreateChatCompletion(reqCtx.Request.Context(), reqCtx, user.ID, request)
	if err != nil {
		responses.HandleError(reqCtx, err, "chat completion failed")
		return
	}

	// Streaming responses were already written to the wire by the relay.
	if result.Streamed {
		return
	}

	chatResponse := chatresponses.NewChatCompletionResponse(result.Response, result.ConversationID, result.ConversationTitle)
	if result.StoreFailed {
		chatResponse.Warning = "assistant message was not saved"
	}
	reqCtx.JSON(http.StatusOK, chatResponse)
}
