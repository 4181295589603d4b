package repository

import (
	"github.com/google/wire"

	"glowchat/internal/infrastructure/database/repository/conversationrepo"
	"glowchat/internal/infrastructure/database/repository/userrepo"
)

var RepositoryProvider = wire.NewSet(
	conversationrepo.NewConversationGormRepository,
	userrepo.NewUserGormRepository,
)
