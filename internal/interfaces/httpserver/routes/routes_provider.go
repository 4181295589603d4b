package routes

import (
	"github.com/google/wire"

	"glowchat/internal/interfaces/httpserver/handlers/authhandler"
	"glowchat/internal/interfaces/httpserver/handlers/chathandler"
	"glowchat/internal/interfaces/httpserver/handlers/conversationhandler"
	v1 "glowchat/internal/interfaces/httpserver/routes/v1"
	"glowchat/internal/interfaces/httpserver/routes/v1/chat"
	"glowchat/internal/interfaces/httpserver/routes/v1/conversation"
)

var RouteProvider = wire.NewSet(
	// Handlers
	authhandler.NewAuthHandler,
	chathandler.NewChatHandler,
	conversationhandler.NewConversationHandler,

	// Routes
	v1.NewV1Route,
	chat.NewChatCompletionRoute,
	conversation.NewConversationRoute,
)
