package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/internal/services"
)

type Handlers struct {
	Health     *HealthHandler
	Generation *GenerationHandler
	User       *UserHandler
	Admin      *AdminHandler
}

func New(logger *logrus.Logger, services *services.Services) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(logger, services.Health),
		Generation: NewGenerationHandler(services.Generation, logger),
		User:       NewUserHandler(logger, services.Generation),
		Admin:      NewAdminHandler(logger, services.Generation),
	}
}
