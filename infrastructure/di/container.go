// Package di wires the service's dependencies with google/wire.
package di

import (
	"go.uber.org/zap"

	"ameliorate/application/commands/bus"
	"ameliorate/application/ports"
	querybus "ameliorate/application/queries/bus"
	"ameliorate/infrastructure/config"
	"ameliorate/interfaces/http/rest"
	"ameliorate/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	Store          *Store
	EventPublisher ports.EventPublisher
	Collector      *observability.Collector
	Metrics        *observability.Metrics
	Tracer         *observability.Tracer
	CommandBus     *bus.CommandBus
	QueryBus       *querybus.QueryBus
	Router         *rest.Router
}
