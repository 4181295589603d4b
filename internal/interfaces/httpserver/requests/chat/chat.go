package chatrequests

import (
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"
)

// ChatCompletionRequest extends OpenAI's ChatCompletionRequest with
// conversation support. When a conversation reference is given, the stored
// history is prepended to Messages and the exchange is persisted back into
// the conversation after completion.
type ChatCompletionRequest struct {
	openai.ChatCompletionRequest

	// Conversation can be either a string (conversation ID) or an object.
	Conversation *ConversationReference `json:"conversation,omitempty"`
	// SystemPrompt is placed before the stored history when set.
	SystemPrompt *string `json:"system_prompt,omitempty"`
	// Store controls whether the latest input and generated response should be persisted
	Store *bool `json:"store,omitempty"`
}

// ShouldStore reports whether the exchange should be persisted. Defaults to
// true when a conversation is referenced.
func (r *ChatCompletionRequest) ShouldStore() bool {
	if r.Store == nil {
		return true
	}
	return *r.Store
}

// ConversationReference can unmarshal from either a string (ID) or an object
type ConversationReference struct {
	ID *string `json:"-"`
}

type conversationObject struct {
	ID string `json:"id"`
}

// UnmarshalJSON supports both wire shapes:
//   - "conversation": "conv_abc123"
//   - "conversation": {"id": "conv_abc123"}
func (c *ConversationReference) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		c.ID = &str
		return nil
	}

	var obj conversationObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.ID != "" {
		c.ID = &obj.ID
	}
	return nil
}

// MarshalJSON implements custom marshaling
func (c *ConversationReference) MarshalJSON() ([]byte, error) {
	if c.ID != nil {
		return json.Marshal(*c.ID)
	}
	return json.Marshal(nil)
}

// IsEmpty returns true if the conversation reference carries no ID
func (c *ConversationReference) IsEmpty() bool {
	return c == nil || c.ID == nil || *c.ID == ""
}

// GetID returns the conversation ID or empty string
func (c *ConversationReference) GetID() string {
	if c == nil || c.ID == nil {
		return ""
	}
	return *c.ID
}
