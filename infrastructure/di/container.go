package di

import (
	"context"

	"chatarchive/application/commands/bus"
	"chatarchive/application/ports"
	querybus "chatarchive/application/queries/bus"
	"chatarchive/application/services"
	"chatarchive/infrastructure/config"
	"chatarchive/infrastructure/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Tuning     *Tuning
	Backend    *Backend
	Detector   *services.RelationshipDetector
	Publisher  ports.EventPublisher
	Collector  *observability.Collector
	Cache      *InMemoryCache
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
}

// Ready reports whether the backend answers
func (c *Container) Ready(ctx context.Context) error {
	if c.Backend.Ready == nil {
		return nil
	}
	return c.Backend.Ready(ctx)
}
