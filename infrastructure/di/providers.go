package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"esn-backend/application/commands"
	"esn-backend/application/commands/bus"
	commandhandlers "esn-backend/application/commands/handlers"
	"esn-backend/application/ports"
	"esn-backend/application/queries"
	querybus "esn-backend/application/queries/bus"
	queryhandlers "esn-backend/application/queries/handlers"
	"esn-backend/application/services"
	domainconfig "esn-backend/domain/config"
	"esn-backend/infrastructure/cache"
	"esn-backend/infrastructure/config"
	"esn-backend/infrastructure/locking"
	"esn-backend/infrastructure/messaging/eventbridge"
	"esn-backend/infrastructure/persistence"
	"esn-backend/infrastructure/persistence/dynamodb"
	"esn-backend/infrastructure/persistence/memory"
	"esn-backend/infrastructure/persistence/schema"
	"esn-backend/infrastructure/shopify"
	"esn-backend/interfaces/http/rest"
	"esn-backend/interfaces/http/rest/handlers"
	"esn-backend/pkg/auth"
	pkgerrors "esn-backend/pkg/errors"
	"esn-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "esn-backend"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("service", serviceName), zap.String("environment", cfg.Environment)), nil
}

// ProvideDomainConfig returns the business rules
func ProvideDomainConfig() (*domainconfig.DomainConfig, error) {
	cfg := domainconfig.DefaultDomainConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProvideMetrics creates the Prometheus collector, mirrored to CloudWatch
// when a sink is configured
func ProvideMetrics(sink *observability.CloudWatchSink) *observability.Collector {
	collector := observability.NewCollector("esn")
	if sink != nil {
		collector.AttachCloudWatch(sink)
	}
	return collector
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideMetricsSink creates the CloudWatch sink, or nil when disabled
func ProvideMetricsSink(cfg *config.Config, client *awscloudwatch.Client, logger *zap.Logger) *observability.CloudWatchSink {
	if !cfg.CloudWatchMetrics {
		return nil
	}
	return observability.NewCloudWatchSink(client, cfg.MetricsNamespace, logger)
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(serviceName, cfg.EnableTracing)
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideRedisClient connects to Redis when a component is configured to use it.
// It returns nil otherwise.
func ProvideRedisClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*redis.Client, func(), error) {
	if cfg.CacheBackend != config.BackendRedis && cfg.LockBackend != config.BackendRedis {
		return nil, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	logger.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))
	return client, func() { _ = client.Close() }, nil
}

// ProvideShopifyClient creates the GraphQL client. It is built for every
// backend so readiness can report on it, but only the shopify store calls it.
func ProvideShopifyClient(cfg *config.Config, logger *zap.Logger) *shopify.GraphQLClient {
	return shopify.NewGraphQLClient(shopify.ClientConfig{
		Mode:        cfg.ShopifyMode,
		Endpoint:    cfg.ShopifyGraphQLEndpoint(),
		AccessToken: cfg.ShopifyAccessToken,
		Timeout:     cfg.ShopifyTimeout,
		Breaker:     shopify.DefaultBreakerConfig(),
	}, &http.Client{Timeout: cfg.ShopifyTimeout}, logger.Named("shopify"))
}

// ProvideNetworkStore selects the document store and instruments it
func ProvideNetworkStore(
	cfg *config.Config,
	domainCfg *domainconfig.DomainConfig,
	shopifyClient *shopify.GraphQLClient,
	dynamoClient *awsdynamodb.Client,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) (ports.NetworkStore, error) {
	var store ports.NetworkStore
	switch cfg.StoreBackend {
	case config.StoreBackendShopify:
		store = shopify.NewMetafieldStore(shopifyClient, domainCfg, logger.Named("metafield"))
	case config.StoreBackendDynamoDB:
		store = dynamodb.NewNetworkStore(dynamoClient, cfg.DynamoDBTable, logger.Named("dynamodb"))
	case config.StoreBackendMemory:
		store = memory.NewNetworkStore(logger.Named("memory"))
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	return persistence.NewInstrumentedStore(store, cfg.StoreBackend, metrics, tracer), nil
}

// ProvideSnapshotCodec creates the JSON codec with the registered migrations
func ProvideSnapshotCodec() ports.SnapshotCodec {
	return schema.NewJSONCodec(schema.NewSchemaEvolution())
}

// ProvideConnectionListFactory creates the per-request list factory
func ProvideConnectionListFactory(
	store ports.NetworkStore,
	codec ports.SnapshotCodec,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) *services.ConnectionListFactory {
	return services.NewConnectionListFactory(store, codec, domainCfg, logger)
}

// ProvideCache selects the view cache backend. It returns nil when caching is off.
func ProvideCache(cfg *config.Config, redisClient *redis.Client, metrics *observability.Collector, logger *zap.Logger) (ports.Cache, func()) {
	switch cfg.CacheBackend {
	case config.BackendRedis:
		return cache.NewInstrumentedCache(cache.NewRedisCache(redisClient, "esn:", logger), metrics), func() {}
	case config.BackendMemory:
		mem := cache.NewInMemoryCache(0)
		return cache.NewInstrumentedCache(mem, metrics), func() { _ = mem.Close() }
	default:
		return nil, func() {}
	}
}

// ProvideViewCache wraps the cache for network views
func ProvideViewCache(c ports.Cache, domainCfg *domainconfig.DomainConfig, logger *zap.Logger) *services.ViewCache {
	return services.NewViewCache(c, domainCfg.ViewCacheTTL, logger)
}

// ProvideLocker selects the per-customer lock backend. It returns nil when locking is off.
func ProvideLocker(cfg *config.Config, redisClient *redis.Client, dynamoClient *awsdynamodb.Client, logger *zap.Logger) ports.Locker {
	switch cfg.LockBackend {
	case config.BackendRedis:
		return locking.NewRedisLocker(redisClient, "esn:lock:", logger.Named("lock"))
	case config.BackendDynamoDB:
		return dynamodb.NewDistributedLock(dynamoClient, cfg.DynamoDBTable, hostOwnerID(), logger.Named("lock"))
	case config.BackendMemory:
		return locking.NewMemoryLocker()
	default:
		return nil
	}
}

// ProvideEventPublisher selects where domain events go. It returns nil when publishing is off.
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	switch cfg.EventBackend {
	case "eventbridge":
		return eventbridge.NewEventBridgePublisher(client, cfg.EventBusName, logger.Named("eventbridge"))
	case "none":
		return nil
	default:
		return eventbridge.NewLogPublisher(logger.Named("events"))
	}
}

// ProvideEventStore selects the activity log. It returns nil when the log is off.
func ProvideEventStore(cfg *config.Config, client *awsdynamodb.Client) ports.EventStore {
	switch cfg.ActivityStore {
	case config.BackendDynamoDB:
		return dynamodb.NewDynamoDBEventStore(client, cfg.DynamoDBTable, cfg.ActivityRetention)
	case config.BackendMemory:
		return memory.NewEventStore(200)
	default:
		return nil
	}
}

// ProvideMutationOrchestrator creates the orchestrator shared by the write handlers
func ProvideMutationOrchestrator(
	lists *services.ConnectionListFactory,
	locker ports.Locker,
	publisher ports.EventPublisher,
	eventStore ports.EventStore,
	views *services.ViewCache,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) *commandhandlers.MutationOrchestrator {
	return commandhandlers.NewMutationOrchestrator(lists, locker, publisher, eventStore, views, domainCfg, logger)
}

// CommandHandlerAdapter adapts specific command handlers to the generic interface
type CommandHandlerAdapter struct {
	handler func(context.Context, bus.Command) (*bus.CommandResult, error)
}

// Handle implements bus.CommandHandler
func (a *CommandHandlerAdapter) Handle(ctx context.Context, cmd bus.Command) (*bus.CommandResult, error) {
	return a.handler(ctx, cmd)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	orchestrator *commandhandlers.MutationOrchestrator,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	middlewares := []bus.Middleware{bus.LoggingMiddleware(logger)}
	if metrics != nil {
		middlewares = append(middlewares, bus.MetricsMiddleware(metrics))
	}
	commandBus := bus.NewCommandBus(middlewares...)

	addHandler := commandhandlers.NewAddConnectionHandler(orchestrator, logger)
	err := commandBus.Register(commands.AddConnectionCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) (*bus.CommandResult, error) {
			addCmd, ok := cmd.(commands.AddConnectionCommand)
			if !ok {
				return nil, fmt.Errorf("invalid command type")
			}
			result, err := addHandler.Handle(ctx, addCmd)
			if err != nil {
				return nil, err
			}
			return &bus.CommandResult{Data: result, Version: result.Network.Version}, nil
		},
	})
	if err != nil {
		return nil, err
	}

	removeHandler := commandhandlers.NewRemoveConnectionHandler(orchestrator, logger)
	err = commandBus.Register(commands.RemoveConnectionCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) (*bus.CommandResult, error) {
			removeCmd, ok := cmd.(commands.RemoveConnectionCommand)
			if !ok {
				return nil, fmt.Errorf("invalid command type")
			}
			result, err := removeHandler.Handle(ctx, removeCmd)
			if err != nil {
				return nil, err
			}
			return &bus.CommandResult{Data: result, Version: result.Network.Version}, nil
		},
	})
	if err != nil {
		return nil, err
	}

	return commandBus, nil
}

// QueryHandlerAdapter adapts specific query handlers to the generic interface
type QueryHandlerAdapter struct {
	handler func(context.Context, querybus.Query) (interface{}, error)
}

// Handle implements querybus.QueryHandler
func (a *QueryHandlerAdapter) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return a.handler(ctx, query)
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	lists *services.ConnectionListFactory,
	views *services.ViewCache,
	eventStore ports.EventStore,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	var sink querybus.Metrics
	if metrics != nil {
		sink = metrics
	}
	queryBus := querybus.NewQueryBus(sink)

	getNetworkHandler := queryhandlers.NewGetNetworkHandler(lists, views, logger)
	err := queryBus.Register(queries.GetNetworkQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			getQuery, ok := query.(queries.GetNetworkQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return getNetworkHandler.Handle(ctx, getQuery)
		},
	})
	if err != nil {
		return nil, err
	}

	getActivityHandler := queryhandlers.NewGetActivityHandler(eventStore, logger)
	err = queryBus.Register(queries.GetActivityQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			activityQuery, ok := query.(queries.GetActivityQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return getActivityHandler.Handle(ctx, activityQuery)
		},
	})
	if err != nil {
		return nil, err
	}

	return queryBus, nil
}

// ProvideSessionTokenValidator creates the token validator. Without a
// secret it returns nil and only the development bypass can authenticate.
func ProvideSessionTokenValidator(cfg *config.Config) (*auth.SessionTokenValidator, error) {
	if cfg.ShopifyAPISecret == "" {
		if !cfg.DevAuthBypass {
			return nil, errors.New("SHOPIFY_API_SECRET is required unless DEV_AUTH_BYPASS is enabled")
		}
		return nil, nil
	}
	return auth.NewSessionTokenValidator(auth.SessionTokenConfig{
		Secret: cfg.ShopifyAPISecret,
		APIKey: cfg.ShopifyAPIKey,
	})
}

// ProvideRateLimiter creates the per-customer mutation limiter
func ProvideRateLimiter(cfg *config.Config) (auth.RateLimiter, func()) {
	limiter := auth.NewKeyedLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, 0)
	return limiter, limiter.Close
}

// ProvideErrorHandler creates the HTTP error handler
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideHealthHandler registers readiness checks for the configured dependencies
func ProvideHealthHandler(
	cfg *config.Config,
	redisClient *redis.Client,
	shopifyClient *shopify.GraphQLClient,
	logger *zap.Logger,
) *handlers.HealthHandler {
	checks := map[string]handlers.ReadinessCheck{}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if cfg.StoreBackend == config.StoreBackendShopify {
		checks["shopify"] = func(ctx context.Context) error {
			if state := shopifyClient.BreakerState().String(); state == "open" {
				return fmt.Errorf("circuit breaker is %s", state)
			}
			return nil
		}
	}
	return handlers.NewHealthHandler(checks, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	validator *auth.SessionTokenValidator,
	limiter auth.RateLimiter,
	errorHandler *pkgerrors.ErrorHandler,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	health *handlers.HealthHandler,
	logger *zap.Logger,
) *rest.Router {
	if !cfg.EnableMetrics {
		metrics = nil
	}
	return rest.NewRouter(
		commandBus,
		queryBus,
		validator,
		limiter,
		errorHandler,
		metrics,
		tracer,
		health,
		rest.RouterConfig{
			AllowedOrigins:     cfg.CORSAllowedOrigins,
			EnableCORS:         cfg.EnableCORS,
			DevAuthBypass:      cfg.DevAuthBypass,
			RateLimitPerSecond: int(cfg.RateLimitPerSecond),
		},
		logger,
	)
}

// hostOwnerID names this process in lock records
func hostOwnerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return ""
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
