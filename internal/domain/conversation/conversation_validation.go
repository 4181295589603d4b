package conversation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"glowchat/internal/utils/idgen"
)

// ConversationValidationConfig holds conversation-level validation rules
type ConversationValidationConfig struct {
	MaxTitleLength             int
	MaxMetadataKeys            int
	MaxMetadataKeyLength       int
	MaxMetadataValueLength     int
	MaxMessagesPerConversation int
	MaxMessageContentLength    int
}

// DefaultConversationValidationConfig returns OpenAI-aligned conversation validation rules
func DefaultConversationValidationConfig() *ConversationValidationConfig {
	return &ConversationValidationConfig{
		MaxTitleLength:             256,
		MaxMetadataKeys:            16,
		MaxMetadataKeyLength:       64,
		MaxMetadataValueLength:     512,
		MaxMessagesPerConversation: 1000,
		MaxMessageContentLength:    128 * 1024,
	}
}

// ConversationValidator handles conversation-level validation
type ConversationValidator struct {
	config             *ConversationValidationConfig
	metadataKeyPattern *regexp.Regexp
}

// NewConversationValidator creates a validator for conversations
func NewConversationValidator(config *ConversationValidationConfig) *ConversationValidator {
	if config == nil {
		config = DefaultConversationValidationConfig()
	}

	return &ConversationValidator{
		config:             config,
		metadataKeyPattern: regexp.MustCompile(`^[a-zA-Z0-9_]+$`),
	}
}

// ValidateConversation performs full conversation validation
func (v *ConversationValidator) ValidateConversation(conv *Conversation) error {
	if conv == nil {
		return fmt.Errorf("conversation cannot be nil")
	}

	if conv.PublicID != "" {
		if err := v.ValidateConversationID(conv.PublicID); err != nil {
			return fmt.Errorf("invalid conversation ID: %w", err)
		}
	}

	if conv.Title != nil {
		if err := v.validateTitle(*conv.Title); err != nil {
			return fmt.Errorf("invalid title: %w", err)
		}
	}

	if conv.Metadata != nil {
		if err := v.validateMetadata(conv.Metadata); err != nil {
			return fmt.Errorf("invalid metadata: %w", err)
		}
	}

	if conv.Status != "" {
		if err := v.validateStatus(conv.Status); err != nil {
			return fmt.Errorf("invalid status: %w", err)
		}
	}

	return nil
}

// ValidateConversationID validates conversation ID format
func (v *ConversationValidator) ValidateConversationID(id string) error {
	if id == "" {
		return fmt.Errorf("conversation ID cannot be empty")
	}

	if !strings.HasPrefix(id, "conv_") {
		return fmt.Errorf("conversation ID must start with 'conv_' prefix")
	}

	if !idgen.ValidateIDFormat(id, "conv") {
		return fmt.Errorf("invalid conversation ID format")
	}

	return nil
}

// ValidateMessage checks a message before it is attached to a conversation.
func (v *ConversationValidator) ValidateMessage(message *Message) error {
	if message == nil {
		return fmt.Errorf("message cannot be nil")
	}

	if message.PublicID != "" && !idgen.ValidateIDFormat(message.PublicID, "msg") {
		return fmt.Errorf("invalid message ID format")
	}

	if !ValidateMessageRole(string(message.Role)) {
		return fmt.Errorf("invalid message role: %s", message.Role)
	}

	if message.Status != "" && !ValidateMessageStatus(string(message.Status)) {
		return fmt.Errorf("invalid message status: %s", message.Status)
	}

	length := utf8.RuneCountInString(message.Content)
	if length > v.config.MaxMessageContentLength {
		return fmt.Errorf("message content cannot exceed %d characters (got %d)", v.config.MaxMessageContentLength, length)
	}

	if strings.Contains(message.Content, "\x00") {
		return fmt.Errorf("message content cannot contain null bytes")
	}

	return nil
}

// validateTitle validates conversation title (internal use only)
func (v *ConversationValidator) validateTitle(title string) error {
	if title == "" {
		return nil
	}

	length := utf8.RuneCountInString(title)
	if length > v.config.MaxTitleLength {
		return fmt.Errorf("title cannot exceed %d characters (got %d)", v.config.MaxTitleLength, length)
	}

	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return fmt.Errorf("title cannot be only whitespace")
	}

	if strings.Contains(title, "\x00") {
		return fmt.Errorf("title cannot contain null bytes")
	}

	return nil
}

// validateMetadata validates conversation metadata (internal use only)
func (v *ConversationValidator) validateMetadata(metadata map[string]string) error {
	if metadata == nil {
		return nil
	}

	if len(metadata) > v.config.MaxMetadataKeys {
		return fmt.Errorf("metadata cannot have more than %d keys (got %d)", v.config.MaxMetadataKeys, len(metadata))
	}

	for key, value := range metadata {
		if err := v.validateMetadataKey(key); err != nil {
			return fmt.Errorf("invalid metadata key '%s': %w", key, err)
		}

		if err := v.validateMetadataValue(key, value); err != nil {
			return fmt.Errorf("invalid metadata value for key '%s': %w", key, err)
		}
	}

	return nil
}

// validateStatus validates conversation status (internal use only)
func (v *ConversationValidator) validateStatus(status ConversationStatus) error {
	switch status {
	case ConversationStatusActive, ConversationStatusDeleted:
		return nil
	default:
		return fmt.Errorf("invalid conversation status: %s (must be active or deleted)", status)
	}
}

func (v *ConversationValidator) validateMetadataKey(key string) error {
	if key == "" {
		return fmt.Errorf("metadata key cannot be empty")
	}

	length := len(key) // byte length, matching OpenAI behavior
	if length > v.config.MaxMetadataKeyLength {
		return fmt.Errorf("metadata key cannot exceed %d bytes (got %d)", v.config.MaxMetadataKeyLength, length)
	}

	if !v.metadataKeyPattern.MatchString(key) {
		return fmt.Errorf("metadata key must contain only alphanumeric characters and underscores")
	}

	if strings.HasPrefix(key, "_") {
		return fmt.Errorf("metadata key cannot start with underscore (reserved for system use)")
	}

	return nil
}

func (v *ConversationValidator) validateMetadataValue(key, value string) error {
	length := utf8.RuneCountInString(value)
	if length > v.config.MaxMetadataValueLength {
		return fmt.Errorf("metadata value cannot exceed %d characters (got %d)", v.config.MaxMetadataValueLength, length)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("metadata value cannot contain null bytes")
	}

	return nil
}
