package dbschema

import (
	"database/sql/driver"
	"encoding/json"

	"glowchat/internal/domain/conversation"
)

// Conversation represents the database schema for conversations
type Conversation struct {
	BaseModel
	PublicID string                          `gorm:"type:varchar(50);uniqueIndex;not null"`
	Object   string                          `gorm:"type:varchar(50);not null;default:'conversation'"`
	Title    *string                         `gorm:"type:varchar(256)"`
	UserID   uint                            `gorm:"index:idx_conversation_user_status;not null"`
	User     User                            `gorm:"foreignKey:UserID"`
	Status   conversation.ConversationStatus `gorm:"type:varchar(20);index:idx_conversation_user_status;not null;default:'active'"`
	Metadata JSONMap                         `gorm:"type:jsonb"`

	Messages []ConversationMessage `gorm:"foreignKey:ConversationID"`
}

// ConversationMessage represents the database schema for messages
type ConversationMessage struct {
	BaseModel
	ConversationID uint         `gorm:"index:idx_message_conversation;not null"`
	Conversation   Conversation `gorm:"foreignKey:ConversationID"`
	PublicID       string       `gorm:"type:varchar(50);uniqueIndex;not null"`
	Object         string       `gorm:"type:varchar(50);not null;default:'conversation.message'"`
	Role           string       `gorm:"type:varchar(20);not null"`
	Content        string       `gorm:"type:text;not null"`
	Status         string       `gorm:"type:varchar(20);not null;default:'completed'"`
	Model          *string      `gorm:"type:varchar(100)"`
}

// JSONMap is a custom type for map[string]string stored as JSON
type JSONMap map[string]string

func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONMap) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// NewSchemaConversation converts a domain conversation into a schema instance.
func NewSchemaConversation(c *conversation.Conversation) *Conversation {
	if c == nil {
		return nil
	}

	return &Conversation{
		BaseModel: BaseModel{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		PublicID: c.PublicID,
		Object:   c.Object,
		Title:    c.Title,
		UserID:   c.UserID,
		Status:   c.Status,
		Metadata: JSONMap(c.Metadata),
	}
}

// EtoD converts a schema conversation back to the domain representation.
// Messages are not loaded by default; callers fetch them separately.
func (c *Conversation) EtoD() *conversation.Conversation {
	if c == nil {
		return nil
	}

	conv := &conversation.Conversation{
		ID:        c.ID,
		PublicID:  c.PublicID,
		Object:    c.Object,
		Title:     c.Title,
		UserID:    c.UserID,
		Status:    c.Status,
		Metadata:  map[string]string(c.Metadata),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}

	if len(c.Messages) > 0 {
		conv.Messages = make([]conversation.Message, 0, len(c.Messages))
		for i := range c.Messages {
			conv.Messages = append(conv.Messages, *c.Messages[i].EtoD())
		}
	}

	return conv
}

// NewSchemaMessage converts a domain message into a schema instance.
func NewSchemaMessage(conversationID uint, m *conversation.Message) *ConversationMessage {
	if m == nil {
		return nil
	}

	return &ConversationMessage{
		BaseModel: BaseModel{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
		},
		ConversationID: conversationID,
		PublicID:       m.PublicID,
		Object:         m.Object,
		Role:           string(m.Role),
		Content:        m.Content,
		Status:         string(m.Status),
		Model:          m.Model,
	}
}

// EtoD converts a schema message back to the domain representation.
func (m *ConversationMessage) EtoD() *conversation.Message {
	if m == nil {
		return nil
	}

	return &conversation.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		PublicID:       m.PublicID,
		Object:         m.Object,
		Role:           conversation.MessageRole(m.Role),
		Content:        m.Content,
		Status:         conversation.MessageStatus(m.Status),
		Model:          m.Model,
		CreatedAt:      m.CreatedAt,
	}
}
