package conversation

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"glowchat/internal/interfaces/httpserver/handlers/authhandler"
	"glowchat/internal/interfaces/httpserver/handlers/conversationhandler"
	"glowchat/internal/interfaces/httpserver/requests"
	conversationrequests "glowchat/internal/interfaces/httpserver/requests/conversation"
	"glowchat/internal/interfaces/httpserver/responses"
	conversationresponses "glowchat/internal/interfaces/httpserver/responses/conversation"
	"glowchat/internal/utils/platformerrors"
)

type ConversationRoute struct {
	handler     *conversationhandler.ConversationHandler
	authHandler *authhandler.AuthHandler
}

func NewConversationRoute(
	handler *conversationhandler.ConversationHandler,
	authHandler *authhandler.AuthHandler,
) *ConversationRoute {
	return &ConversationRoute{
		handler:     handler,
		authHandler: authHandler,
	}
}

func (route *ConversationRoute) RegisterRouter(router gin.IRouter) {
	conversations := router.Group("/conversations")
	conversations.GET("", route.authHandler.WithAppUserAuthChain(route.listConversations)...)
	conversations.POST("", route.authHandler.WithAppUserAuthChain(route.createConversation)...)
	conversations.GET("/:conv_public_id", route.authHandler.WithAppUserAuthChain(route.getConversation)...)
	conversations.POST("/:conv_public_id", route.authHandler.WithAppUserAuthChain(route.updateConversation)...)
	conversations.DELETE("/:conv_public_id", route.authHandler.WithAppUserAuthChain(route.deleteConversation)...)
	conversations.GET("/:conv_public_id/messages", route.authHandler.WithAppUserAuthChain(route.listMessages)...)
	conversations.POST("/:conv_public_id/messages", route.authHandler.WithAppUserAuthChain(route.createMessage)...)
	conversations.GET("/:conv_public_id/messages/:message_id", route.authHandler.WithAppUserAuthChain(route.getMessage)...)
	conversations.DELETE("/:conv_public_id/messages/:message_id", route.authHandler.WithAppUserAuthChain(route.deleteMessage)...)
}

func (route *ConversationRoute) listConversations(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()

	user, ok := authhandler.GetUserFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "2f7b4c93-8e1a-4d56-b9f2-6a3c8d1e5b74")
		return
	}

	var params conversationrequests.ListConversationsQueryParams
	if err := reqCtx.ShouldBindQuery(&params); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid query parameters", "5d1e8a47-3b9c-4f62-a8d1-7c4e2b9f6a35")
		return
	}

	pagination, err := requests.GetCursorPaginationFromQuery(reqCtx, func(publicID string) (*uint, error) {
		id, resolveErr := route.handler.ResolveConversationPublicIDToNumericID(ctx, user.ID, publicID)
		if resolveErr != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerRoute, resolveErr, "invalid cursor: conversation not found or not accessible")
		}
		return id, nil
	})
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to process pagination")
		return
	}

	if params.Order != nil {
		pagination.Order = strings.ToLower(strings.TrimSpace(*params.Order))
	}

	response, err := route.handler.ListConversations(ctx, user.ID, pagination)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to list conversations")
		return
	}

	reqCtx.JSON(http.StatusOK, response)
}

func (route *ConversationRoute) createConversation(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()

	user, ok := authhandler.GetUserFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "8a5d2f61-4c9e-4b37-9a8d-1e6b3c7f4a52")
		return
	}

	var request conversationrequests.CreateConversationRequest
	if err := reqCtx.ShouldBindJSON(&request); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "3e9c6b18-7f2d-4a54-b3e9-5c8a1d4f7b26")
		return
	}

	response, err := route.handler.CreateConversation(ctx, user.ID, request)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to create conversation")
		return
	}

	reqCtx.JSON(http.StatusOK, response)
}

func (route *ConversationRoute) getConversation(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()

	user, ok := authhandler.GetUserFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "6c2a9e85-1d4f-4b73-8c2a-9e5d3b1f6c84")
		return
	}

	conv, err := route.handler.GetConversation(ctx, user.ID, reqCtx.Param("conv_public_id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to get conversation")
		return
	}

	reqCtx.JSON(http.StatusOK, conversationresponses.NewConversationResponse(conv))
}

func (route *ConversationRoute) updateConversation(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()

	user, ok := authhandler.GetUserFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "4b8f1d52-6e3a-4c97-b4f8-2a7c5e9d1b63")
		return
	}

	var request conversationrequests.UpdateConversationRequest
	if err := reqCtx.ShouldBindJSON(&request); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "9e4a7c26-3d8b-4f15-a9e4-7c2d5b8f3a61")
		return
	}

	response, err := route.handler.UpdateConversation(ctx, user.ID, reqCtx.Param("conv_public_id"), request)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to update conversation")
		return
	}

	reqCtx.JSON(http.StatusOK, response)
}

func (route *ConversationRoute) deleteConversation(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()

	user, ok := authhandler.GetUserFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "1f6d3b84-9a2e-4c58-b1f6-4d9a7e2c5b38")
		return
	}

	response, err := route.handler.DeleteConversation(ctx, user.ID, reqCtx.Param("conv_public_id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to delete conversation")
		return
	}

	reqCtx.JSON(http.StatusOK, response)
}

func (route *ConversationRoute) listMessages(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()

	user, ok := authhandler.GetUserFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "7d4c8e21-5b9f-4a36-9d4c-8e1b6f3a2d57")
		return
	}

	pagination, err := requests.GetCursorPaginationFromQuery(reqCtx, nil)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to process pagination")
		return
	}
	// Message history reads naturally in insertion order.
	if reqCtx.Query("order") == "" {
		pagination.Order = "asc"
	}

	response, err := route.handler.ListMessages(ctx, user.ID, reqCtx.Param("conv_public_id"), pagination)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to list messages")
		return
	}

	reqCtx.JSON(http.StatusOK, response)
}

func (route *ConversationRoute) createMessage(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()

	user, ok := authhandler.GetUserFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "9b3e6d52-4a8c-4f17-b9e3-6d2a8c4f1b59")
		return
	}

	var request conversationrequests.CreateMessageRequest
	if err := reqCtx.ShouldBindJSON(&request); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "2e8c4a96-7d1f-4b35-a2e8-4c9d6f1a3b72")
		return
	}

	response, err := route.handler.CreateMessage(ctx, user.ID, reqCtx.Param("conv_public_id"), request)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to create message")
		return
	}

	reqCtx.JSON(http.StatusOK, response)
}

func (route *ConversationRoute) getMessage(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()

	user, ok := authhandler.GetUserFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "5a9e2c74-8f1b-4d63-a5e9-2c7d4b8f1a36")
		return
	}

	response, err := route.handler.GetMessage(ctx, user.ID, reqCtx.Param("conv_public_id"), reqCtx.Param("message_id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to get message")
		return
	}

	reqCtx.JSON(http.StatusOK, response)
}

func (route *ConversationRoute) deleteMessage(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()

	user, ok := authhandler.GetUserFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeUnauthorized, "authentication required", "3c7f5a18-2d9e-4b64-8c7f-5a1e9d3b2c46")
		return
	}

	response, err := route.handler.DeleteMessage(ctx, user.ID, reqCtx.Param("conv_public_id"), reqCtx.Param("message_id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to delete message")
		return
	}

	reqCtx.JSON(http.StatusOK, response)
}
