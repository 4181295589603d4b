package conversation

import (
	"context"
	"time"

	"glowchat/internal/domain/query"
	"glowchat/internal/utils/idgen"
	"glowchat/internal/utils/platformerrors"
)

// ConversationService handles business logic for conversations
type ConversationService struct {
	repo      ConversationRepository
	validator *ConversationValidator
}

// NewConversationService creates a new conversation service
func NewConversationService(repo ConversationRepository) *ConversationService {
	return &ConversationService{
		repo:      repo,
		validator: NewConversationValidator(nil), // Use default config
	}
}

// CreateConversation creates a conversation (core function - direct repository call)
func (s *ConversationService) CreateConversation(ctx context.Context, conv *Conversation) (*Conversation, error) {
	if err := s.validator.ValidateConversation(conv); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "conversation validation failed", err, "f3a1c8e2-9b4d-4f6a-8e2c-1d5b7a9c3e0f")
	}

	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create conversation")
	}

	return conv, nil
}

// GetConversationByPublicIDAndUserID retrieves a conversation by public ID and validates ownership
func (s *ConversationService) GetConversationByPublicIDAndUserID(ctx context.Context, publicID string, userID uint) (*Conversation, error) {
	if err := s.validator.ValidateConversationID(publicID); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid conversation ID", err, "a7d2f4b1-3c8e-4a9d-b6f1-2e4c8a0d5b7e")
	}

	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "conversation not found")
	}

	// Ownership failures look identical to missing conversations
	if conv.UserID != userID || conv.Status == ConversationStatusDeleted {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "c9e5b2d8-6f1a-4c3e-9d7b-4a2f8c1e6b0d")
	}

	return conv, nil
}

// UpdateConversation updates a conversation (core function - direct repository call)
func (s *ConversationService) UpdateConversation(ctx context.Context, conv *Conversation) (*Conversation, error) {
	if err := s.validator.ValidateConversation(conv); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "conversation validation failed", err, "e1b8d4a6-2f9c-4e7b-a3d5-8c6f0b2e4a9d")
	}

	if err := s.repo.Update(ctx, conv); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update conversation")
	}

	return conv, nil
}

// DeleteConversation marks a conversation as deleted
func (s *ConversationService) DeleteConversation(ctx context.Context, conv *Conversation) error {
	if err := s.repo.Delete(ctx, conv.ID); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete conversation")
	}
	return nil
}

// FindConversationsByFilter retrieves conversations using flexible filter criteria with pagination
func (s *ConversationService) FindConversationsByFilter(ctx context.Context, filter ConversationFilter, pagination *query.Pagination) ([]*Conversation, int64, error) {
	conversations, err := s.repo.FindByFilter(ctx, filter, pagination)
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list conversations")
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to count conversations")
	}

	return conversations, total, nil
}

// CreateConversationInput represents the input for creating a conversation
type CreateConversationInput struct {
	UserID   uint
	Title    *string
	Metadata map[string]string
}

// UpdateConversationInput represents the input for updating a conversation
type UpdateConversationInput struct {
	Title    *string
	Metadata map[string]string
}

// CreateConversationWithInput creates a new conversation with input validation
func (s *ConversationService) CreateConversationWithInput(ctx context.Context, input CreateConversationInput) (*Conversation, error) {
	publicID, err := idgen.GenerateSecureID("conv", 16)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to generate conversation ID")
	}

	conv := NewConversation(publicID, input.UserID, input.Title, input.Metadata)

	return s.CreateConversation(ctx, conv)
}

// UpdateConversationWithInput applies a partial update to an owned conversation
func (s *ConversationService) UpdateConversationWithInput(ctx context.Context, conv *Conversation, input UpdateConversationInput) (*Conversation, error) {
	if input.Title != nil {
		conv.Title = input.Title
	}
	if input.Metadata != nil {
		conv.Metadata = input.Metadata
	}
	conv.UpdatedAt = time.Now()

	return s.UpdateConversation(ctx, conv)
}

// AppendMessageInput carries the fields for attaching a message to a conversation.
type AppendMessageInput struct {
	Role    MessageRole
	Content string
	Status  MessageStatus
	Model   *string
}

// AppendMessage generates a message ID, validates the message, and persists it.
func (s *ConversationService) AppendMessage(ctx context.Context, conv *Conversation, input AppendMessageInput) (*Message, error) {
	publicID, err := idgen.GenerateSecureID("msg", 16)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to generate message ID")
	}

	message := NewMessage(publicID, input.Role, input.Content)
	if input.Status != "" {
		message.Status = input.Status
	}
	message.Model = input.Model
	message.ConversationID = conv.ID

	if err := s.validator.ValidateMessage(message); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "message validation failed", err, "b4f7a2e9-1d6c-4b8f-9a3e-5c7d2f0b8e4a")
	}

	if err := s.repo.AddMessage(ctx, conv.ID, message); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to add message")
	}

	return message, nil
}

// ListMessages returns the messages of a conversation in insertion order.
func (s *ConversationService) ListMessages(ctx context.Context, conv *Conversation, pagination *query.Pagination) ([]*Message, error) {
	messages, err := s.repo.ListMessages(ctx, conv.ID, pagination)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list messages")
	}
	return messages, nil
}

// GetMessageByPublicID fetches a single message belonging to the conversation.
func (s *ConversationService) GetMessageByPublicID(ctx context.Context, conv *Conversation, publicID string) (*Message, error) {
	if !idgen.ValidateIDFormat(publicID, "msg") {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid message ID", nil, "d8c3e6f1-4a9b-4d2e-8f6c-0b5a7e3d9c1f")
	}

	message, err := s.repo.GetMessageByPublicID(ctx, conv.ID, publicID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "message not found")
	}
	return message, nil
}

// DeleteMessage removes a message from the conversation.
func (s *ConversationService) DeleteMessage(ctx context.Context, conv *Conversation, publicID string) error {
	message, err := s.GetMessageByPublicID(ctx, conv, publicID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteMessage(ctx, conv.ID, message.ID); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete message")
	}
	return nil
}

// PurgeDeleted removes soft-deleted conversations older than the retention window.
func (s *ConversationService) PurgeDeleted(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	purged, err := s.repo.PurgeDeletedBefore(ctx, cutoff)
	if err != nil {
		return 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to purge deleted conversations")
	}
	return purged, nil
}
