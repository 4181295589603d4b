package conversation

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"glowchat/internal/domain/query"
)

type ConversationStatus string

const (
	ConversationStatusActive  ConversationStatus = "active"
	ConversationStatusDeleted ConversationStatus = "deleted"
)

// MessageRole mirrors the chat roles accepted by the upstream provider.
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

func ValidateMessageRole(input string) bool {
	switch MessageRole(input) {
	case MessageRoleSystem, MessageRoleUser, MessageRoleAssistant:
		return true
	default:
		return false
	}
}

// MessageStatus records how the turn that produced a message ended.
type MessageStatus string

const (
	MessageStatusCompleted   MessageStatus = "completed"
	MessageStatusInterrupted MessageStatus = "interrupted"
	MessageStatusCancelled   MessageStatus = "cancelled"
)

func ValidateMessageStatus(input string) bool {
	switch MessageStatus(input) {
	case MessageStatusCompleted, MessageStatusInterrupted, MessageStatusCancelled:
		return true
	default:
		return false
	}
}

// Conversation groups an ordered message history owned by a single user.
type Conversation struct {
	ID       uint               `json:"-"`
	PublicID string             `json:"id"`     // OpenAI-compatible string ID like "conv_abc123"
	Object   string             `json:"object"` // Always "conversation"
	Title    *string            `json:"title,omitempty"`
	UserID   uint               `json:"-"`
	Status   ConversationStatus `json:"status"`
	Messages []Message          `json:"messages,omitempty"`
	Metadata map[string]string  `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single turn inside a conversation.
type Message struct {
	ID             uint          `json:"-"`
	ConversationID uint          `json:"-"`
	PublicID       string        `json:"id"`
	Object         string        `json:"object"` // Always "conversation.message"
	Role           MessageRole   `json:"role"`
	Content        string        `json:"content"`
	Status         MessageStatus `json:"status"`
	Model          *string       `json:"model,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type ConversationFilter struct {
	ID       *uint
	PublicID *string
	UserID   *uint
	Status   *ConversationStatus
}

type ConversationRepository interface {
	Create(ctx context.Context, conversation *Conversation) error
	FindByFilter(ctx context.Context, filter ConversationFilter, pagination *query.Pagination) ([]*Conversation, error)
	Count(ctx context.Context, filter ConversationFilter) (int64, error)
	FindByID(ctx context.Context, id uint) (*Conversation, error)
	FindByPublicID(ctx context.Context, publicID string) (*Conversation, error)
	Update(ctx context.Context, conversation *Conversation) error
	Delete(ctx context.Context, id uint) error

	AddMessage(ctx context.Context, conversationID uint, message *Message) error
	ListMessages(ctx context.Context, conversationID uint, pagination *query.Pagination) ([]*Message, error)
	GetMessageByPublicID(ctx context.Context, conversationID uint, publicID string) (*Message, error)
	DeleteMessage(ctx context.Context, conversationID uint, messageID uint) error
	CountMessages(ctx context.Context, conversationID uint) (int64, error)

	// PurgeDeletedBefore removes soft-deleted conversations whose last update
	// is older than cutoff. Used by the retention sweep.
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewConversation creates a new conversation with the given parameters.
func NewConversation(publicID string, userID uint, title *string, metadata map[string]string) *Conversation {
	now := time.Now()

	if metadata == nil {
		metadata = make(map[string]string)
	}

	return &Conversation{
		PublicID:  publicID,
		Object:    "conversation",
		Title:     title,
		UserID:    userID,
		Status:    ConversationStatusActive,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewMessage creates a message in its initial completed state.
func NewMessage(publicID string, role MessageRole, content string) *Message {
	return &Message{
		PublicID:  publicID,
		Object:    "conversation.message",
		Role:      role,
		Content:   content,
		Status:    MessageStatusCompleted,
		CreatedAt: time.Now(),
	}
}

const maxDerivedTitleLength = 60

// DeriveTitle produces a conversation title from the first user message.
// The text is whitespace trimmed and truncated to 60 characters.
func DeriveTitle(content string) *string {
	title := strings.TrimSpace(content)
	if title == "" {
		return nil
	}
	if utf8.RuneCountInString(title) > maxDerivedTitleLength {
		runes := []rune(title)
		title = string(runes[:maxDerivedTitleLength])
	}
	return &title
}
