//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"glowchat/internal/domain"
	"glowchat/internal/infrastructure"
	"glowchat/internal/interfaces"
	"glowchat/internal/interfaces/httpserver/routes"
)

func CreateApplication() (*Application, error) {
	wire.Build(
		domain.ServiceProvider,
		infrastructure.InfrastructureProvider,
		routes.RouteProvider,
		interfaces.InterfacesProvider,
		wire.Struct(new(Application), "*"),
	)
	return &Application{}, nil
}
