package interfaces

import (
	"github.com/google/wire"

	"glowchat/internal/interfaces/httpserver"
)

var InterfacesProvider = wire.NewSet(
	httpserver.NewHttpServer,
)
