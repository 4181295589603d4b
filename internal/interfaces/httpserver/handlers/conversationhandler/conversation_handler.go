package conversationhandler

import (
	"context"

	"github.com/go-playground/validator/v10"

	"glowchat/internal/domain/conversation"
	"glowchat/internal/domain/query"
	"glowchat/internal/infrastructure/metrics"
	conversationrequests "glowchat/internal/interfaces/httpserver/requests/conversation"
	conversationresponses "glowchat/internal/interfaces/httpserver/responses/conversation"
	"glowchat/internal/utils/platformerrors"
)

// ConversationHandler bridges HTTP routes and the conversation service.
type ConversationHandler struct {
	conversationService *conversation.ConversationService
	validate            *validator.Validate
}

func NewConversationHandler(conversationService *conversation.ConversationService) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		validate:            validator.New(validator.WithRequiredStructEnabled()),
	}
}

// CreateConversation creates a conversation owned by the user
func (h *ConversationHandler) CreateConversation(ctx context.Context, userID uint, req conversationrequests.CreateConversationRequest) (*conversationresponses.ConversationResponse, error) {
	if err := h.validate.Struct(&req); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid conversation payload", err, "6f2d8a31-4b7c-4e95-a1d8-3c5e9f0b7a62")
	}

	input := conversation.CreateConversationInput{
		UserID:   userID,
		Title:    req.Title,
		Metadata: req.Metadata,
	}

	conv, err := h.conversationService.CreateConversationWithInput(ctx, input)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to create conversation")
	}

	metrics.ConversationsCreatedTotal.Inc()
	return conversationresponses.NewConversationResponse(conv), nil
}

// ListConversations returns the user's active conversations, newest first by default
func (h *ConversationHandler) ListConversations(ctx context.Context, userID uint, pagination *query.Pagination) (*conversationresponses.ConversationListResponse, error) {
	status := conversation.ConversationStatusActive
	filter := conversation.ConversationFilter{
		UserID: &userID,
		Status: &status,
	}

	conversations, total, err := h.conversationService.FindConversationsByFilter(ctx, filter, pagination)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to list conversations")
	}

	hasMore := false
	if pagination != nil && pagination.Limit != nil {
		hasMore = len(conversations) == *pagination.Limit && int64(len(conversations)) < total
	}

	return conversationresponses.NewConversationListResponse(conversations, hasMore, total), nil
}

// GetConversation fetches a conversation by public ID and checks ownership
func (h *ConversationHandler) GetConversation(ctx context.Context, userID uint, publicID string) (*conversation.Conversation, error) {
	conv, err := h.conversationService.GetConversationByPublicIDAndUserID(ctx, publicID, userID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to get conversation")
	}
	return conv, nil
}

// UpdateConversation applies a partial update to an owned conversation
func (h *ConversationHandler) UpdateConversation(ctx context.Context, userID uint, publicID string, req conversationrequests.UpdateConversationRequest) (*conversationresponses.ConversationResponse, error) {
	if err := h.validate.Struct(&req); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid conversation payload", err, "8b4e1c76-2d9f-4a3b-b6e4-7f0a2c8d5e91")
	}

	conv, err := h.GetConversation(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}

	input := conversation.UpdateConversationInput{
		Title:    req.Title,
		Metadata: req.Metadata,
	}

	updated, err := h.conversationService.UpdateConversationWithInput(ctx, conv, input)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to update conversation")
	}

	return conversationresponses.NewConversationResponse(updated), nil
}

// DeleteConversation soft-deletes an owned conversation
func (h *ConversationHandler) DeleteConversation(ctx context.Context, userID uint, publicID string) (*conversationresponses.ConversationDeletedResponse, error) {
	conv, err := h.GetConversation(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}

	if err := h.conversationService.DeleteConversation(ctx, conv); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to delete conversation")
	}

	return conversationresponses.NewConversationDeletedResponse(publicID), nil
}

// CreateMessage appends a message to an owned conversation
func (h *ConversationHandler) CreateMessage(ctx context.Context, userID uint, publicID string, req conversationrequests.CreateMessageRequest) (*conversationresponses.MessageResponse, error) {
	if err := h.validate.Struct(&req); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid message payload", err, "3a9c5e82-7b1d-4f36-9e4a-2d8b6c0f5a17")
	}
	if !conversation.ValidateMessageRole(req.Role) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid message role", nil, "e5b2d947-1c8a-4e63-b7f2-9a4d0c6e8b35")
	}

	conv, err := h.GetConversation(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}

	message, err := h.conversationService.AppendMessage(ctx, conv, conversation.AppendMessageInput{
		Role:    conversation.MessageRole(req.Role),
		Content: req.Content,
		Status:  conversation.MessageStatusCompleted,
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to create message")
	}

	return conversationresponses.NewMessageResponse(message), nil
}

// ListMessages returns the messages of an owned conversation
func (h *ConversationHandler) ListMessages(ctx context.Context, userID uint, publicID string, pagination *query.Pagination) (*conversationresponses.MessageListResponse, error) {
	conv, err := h.GetConversation(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}

	messages, err := h.conversationService.ListMessages(ctx, conv, pagination)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to list messages")
	}

	hasMore := pagination != nil && pagination.Limit != nil && len(messages) == *pagination.Limit

	return conversationresponses.NewMessageListResponse(messages, hasMore), nil
}

// GetMessage fetches a single message of an owned conversation
func (h *ConversationHandler) GetMessage(ctx context.Context, userID uint, publicID, messageID string) (*conversationresponses.MessageResponse, error) {
	conv, err := h.GetConversation(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}

	message, err := h.conversationService.GetMessageByPublicID(ctx, conv, messageID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to get message")
	}

	return conversationresponses.NewMessageResponse(message), nil
}

// DeleteMessage removes a single message from an owned conversation
func (h *ConversationHandler) DeleteMessage(ctx context.Context, userID uint, publicID, messageID string) (*conversationresponses.MessageDeletedResponse, error) {
	conv, err := h.GetConversation(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}

	if err := h.conversationService.DeleteMessage(ctx, conv, messageID); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to delete message")
	}

	return conversationresponses.NewMessageDeletedResponse(messageID), nil
}

// ResolveConversationPublicIDToNumericID maps a public cursor ID to the
// numeric primary key used for keyset pagination.
func (h *ConversationHandler) ResolveConversationPublicIDToNumericID(ctx context.Context, userID uint, publicID string) (*uint, error) {
	conv, err := h.GetConversation(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	return &conv.ID, nil
}
