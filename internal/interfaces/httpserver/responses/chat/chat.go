package chatresponses

import (
	openai "github.com/sashabaranov/go-openai"
)

// ChatCompletionResponse extends OpenAI's ChatCompletionResponse with conversation context
type ChatCompletionResponse struct {
	openai.ChatCompletionResponse
	Conversation *ConversationContext `json:"conversation,omitempty"`
	Warning      string               `json:"warning,omitempty"`
}

// ConversationContext represents the conversation associated with this response
type ConversationContext struct {
	ID    string  `json:"id"`
	Title *string `json:"title,omitempty"`
}

// NewChatCompletionResponse creates a response with optional conversation context
func NewChatCompletionResponse(openaiResp *openai.ChatCompletionResponse, conversationID string, conversationTitle *string) *ChatCompletionResponse {
	resp := &ChatCompletionResponse{
		ChatCompletionResponse: *openaiResp,
	}

	if conversationID != "" {
		resp.Conversation = &ConversationContext{
			ID:    conversationID,
			Title: conversationTitle,
		}
	}

	return resp
}
