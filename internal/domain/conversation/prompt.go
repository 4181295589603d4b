package conversation

import (
	openai "github.com/sashabaranov/go-openai"
)

// BuildPrompt assembles the upstream message list for a completion turn:
// an optional system prompt first, then the stored history in insertion
// order, then the new user turn last. Inputs are never mutated and an
// empty history is valid.
func BuildPrompt(systemPrompt *string, history []Message, userTurn string) []openai.ChatCompletionMessage {
	capacity := len(history) + 2
	messages := make([]openai.ChatCompletionMessage, 0, capacity)

	if systemPrompt != nil && *systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: *systemPrompt,
		})
	}

	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    roleToOpenAI(m.Role),
			Content: m.Content,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userTurn,
	})

	return messages
}

func roleToOpenAI(role MessageRole) string {
	switch role {
	case MessageRoleSystem:
		return openai.ChatMessageRoleSystem
	case MessageRoleAssistant:
		return openai.ChatMessageRoleAssistant
	case MessageRoleUser:
		return openai.ChatMessageRoleUser
	default:
		return openai.ChatMessageRoleUser
	}
}
