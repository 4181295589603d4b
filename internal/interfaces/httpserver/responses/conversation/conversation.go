package conversationresponses

import (
	"glowchat/internal/domain/conversation"
)

// ConversationResponse represents the OpenAI-compatible conversation response
type ConversationResponse struct {
	ID        string            `json:"id"`
	Object    string            `json:"object"`
	Title     *string           `json:"title,omitempty"`
	CreatedAt int64             `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ConversationListResponse represents a paginated list of conversations
type ConversationListResponse struct {
	Object  string                 `json:"object"`
	Data    []ConversationResponse `json:"data"`
	FirstID string                 `json:"first_id"`
	LastID  string                 `json:"last_id"`
	HasMore bool                   `json:"has_more"`
	Total   int64                  `json:"total"`
}

// ConversationDeletedResponse represents the delete confirmation response
type ConversationDeletedResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// MessageResponse represents a single conversation message
type MessageResponse struct {
	ID        string  `json:"id"`
	Object    string  `json:"object"`
	Role      string  `json:"role"`
	Content   string  `json:"content"`
	Status    string  `json:"status"`
	Model     *string `json:"model,omitempty"`
	CreatedAt int64   `json:"created_at"`
}

// MessageListResponse represents a paginated list of conversation messages
type MessageListResponse struct {
	Object  string            `json:"object"`
	Data    []MessageResponse `json:"data"`
	FirstID string            `json:"first_id"`
	LastID  string            `json:"last_id"`
	HasMore bool              `json:"has_more"`
}

// MessageDeletedResponse represents the message delete confirmation
type MessageDeletedResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// NewConversationResponse creates a response from a domain conversation
func NewConversationResponse(conv *conversation.Conversation) *ConversationResponse {
	return &ConversationResponse{
		ID:        conv.PublicID,
		Object:    "conversation",
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt.Unix(),
		Metadata:  conv.Metadata,
	}
}

// NewConversationListResponse creates a conversation list response
func NewConversationListResponse(conversations []*conversation.Conversation, hasMore bool, total int64) *ConversationListResponse {
	data := make([]ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		if conv == nil {
			continue
		}
		data = append(data, *NewConversationResponse(conv))
	}

	firstID := ""
	lastID := ""
	if len(data) > 0 {
		firstID = data[0].ID
		lastID = data[len(data)-1].ID
	}

	return &ConversationListResponse{
		Object:  "list",
		Data:    data,
		FirstID: firstID,
		LastID:  lastID,
		HasMore: hasMore,
		Total:   total,
	}
}

// NewConversationDeletedResponse creates a delete response
func NewConversationDeletedResponse(publicID string) *ConversationDeletedResponse {
	return &ConversationDeletedResponse{
		ID:      publicID,
		Object:  "conversation.deleted",
		Deleted: true,
	}
}

// NewMessageResponse creates a response from a domain message
func NewMessageResponse(message *conversation.Message) *MessageResponse {
	return &MessageResponse{
		ID:        message.PublicID,
		Object:    "conversation.message",
		Role:      string(message.Role),
		Content:   message.Content,
		Status:    string(message.Status),
		Model:     message.Model,
		CreatedAt: message.CreatedAt.Unix(),
	}
}

// NewMessageListResponse creates a message list response
func NewMessageListResponse(messages []*conversation.Message, hasMore bool) *MessageListResponse {
	data := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		if message == nil {
			continue
		}
		data = append(data, *NewMessageResponse(message))
	}

	firstID := ""
	lastID := ""
	if len(data) > 0 {
		firstID = data[0].ID
		lastID = data[len(data)-1].ID
	}

	return &MessageListResponse{
		Object:  "list",
		Data:    data,
		FirstID: firstID,
		LastID:  lastID,
		HasMore: hasMore,
	}
}

// NewMessageDeletedResponse creates a message delete response
func NewMessageDeletedResponse(publicID string) *MessageDeletedResponse {
	return &MessageDeletedResponse{
		ID:      publicID,
		Object:  "conversation.message.deleted",
		Deleted: true,
	}
}
