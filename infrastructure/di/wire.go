//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"ameliorate/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideStore,
	ProvideEventPublisher,
	ProvideCollector,
	ProvideMetrics,
	ProvideTracer,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideJWTConfig,
	ProvideJWTValidator,
	ProvideRateLimiters,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// closes the store.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
