//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"esn-backend/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideMetrics,
	ProvideTracer,
	ProvideAWSConfig,
	ProvideCloudWatchClient,
	ProvideMetricsSink,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideRedisClient,
	ProvideShopifyClient,
	ProvideNetworkStore,
	ProvideSnapshotCodec,
	ProvideConnectionListFactory,
	ProvideCache,
	ProvideViewCache,
	ProvideLocker,
	ProvideEventPublisher,
	ProvideEventStore,
	ProvideMutationOrchestrator,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideSessionTokenValidator,
	ProvideRateLimiter,
	ProvideErrorHandler,
	ProvideHealthHandler,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
