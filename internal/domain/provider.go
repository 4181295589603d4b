package domain

import (
	"github.com/google/wire"

	"glowchat/internal/config"
	"glowchat/internal/domain/conversation"
	"glowchat/internal/domain/stream"
	"glowchat/internal/domain/user"
	"glowchat/internal/infrastructure/logger"
)

// ServiceProvider provides all domain services
var ServiceProvider = wire.NewSet(
	// Conversation domain
	conversation.NewConversationService,

	// Streaming relay
	ProvideRelay,

	// User domain
	user.NewService,
)

func ProvideRelay(cfg *config.Config) *stream.Relay {
	return stream.NewRelay(cfg.StreamTimeout, logger.GetLogger())
}
