package conversationrequests

// CreateConversationRequest represents the request to create a conversation
type CreateConversationRequest struct {
	Title    *string           `json:"title,omitempty" validate:"omitempty,max=256"`
	Metadata map[string]string `json:"metadata,omitempty" validate:"omitempty,max=16"`
}

// UpdateConversationRequest represents the request to update a conversation
type UpdateConversationRequest struct {
	Title    *string           `json:"title,omitempty" validate:"omitempty,max=256"`
	Metadata map[string]string `json:"metadata,omitempty" validate:"omitempty,max=16"`
}

// CreateMessageRequest represents the request to append a message to a conversation
type CreateMessageRequest struct {
	Role    string `json:"role" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// ListConversationsQueryParams represents query parameters for listing conversations
type ListConversationsQueryParams struct {
	Limit *int    `form:"limit"`
	Order *string `form:"order"`
	After *string `form:"after"`
}

// ListMessagesQueryParams represents query parameters for listing messages
type ListMessagesQueryParams struct {
	Limit *int    `form:"limit"`
	Order *string `form:"order"`
	After *string `form:"after"`
}
