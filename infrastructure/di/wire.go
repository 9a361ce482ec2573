//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"chatarchive/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideTuning,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideBackend,
	ProvideScorer,
	ProvideEventPublisher,
	ProvideCollector,
	ProvideDetectionMetrics,
	ProvideTracer,
	ProvideDetector,
	ProvideOpenAIAPI,
	ProvideEmbedder,
	ProvideSummarizer,
	ProvideCache,
	ProvideCommandBus,
	ProvideQueryBus,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// releases drivers, watchers and exporters in reverse order.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
