//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"dreamlog-backend/internal/config"
)

// InitializeContainer builds the application container from a loaded configuration.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
