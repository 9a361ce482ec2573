package di

import (
	"context"
	"fmt"
	"time"

	"chatarchive/application/commands"
	"chatarchive/application/commands/bus"
	cmdhandlers "chatarchive/application/commands/handlers"
	"chatarchive/application/ports"
	"chatarchive/application/queries"
	querybus "chatarchive/application/queries/bus"
	qryhandlers "chatarchive/application/queries/handlers"
	"chatarchive/application/services"
	domainconfig "chatarchive/domain/config"
	domainservices "chatarchive/domain/services"
	aiopenai "chatarchive/infrastructure/ai/openai"
	"chatarchive/infrastructure/config"
	"chatarchive/infrastructure/messaging/eventbridge"
	"chatarchive/infrastructure/observability"
	dynamostore "chatarchive/infrastructure/persistence/dynamodb"
	"chatarchive/infrastructure/persistence/memory"
	neo4jstore "chatarchive/infrastructure/persistence/neo4j"
	pkgobservability "chatarchive/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

const (
	serviceName = "chatarchive"

	// graphCacheTTL bounds staleness of cached graph data, in seconds.
	// Writes through the command bus clear the cache immediately.
	graphCacheTTL        = 30
	cacheCleanupInterval = time.Minute
	neo4jConnectTimeout  = 10 * time.Second
	tracerShutdown       = 5 * time.Second
)

// Backend groups the persistence adapters chosen by STORE_BACKEND
type Backend struct {
	Name          string
	Entries       ports.EntryRepository
	Relationships ports.RelationshipStore
	Locker        ports.DetectionLocker
	// Ready probes the backend; nil means always ready.
	Ready func(ctx context.Context) error
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}

	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName)), nil
}

// ProvideTuning loads the domain configuration and, when TUNING_FILE is set,
// watches it for changes.
func ProvideTuning(cfg *config.Config, logger *zap.Logger) (*Tuning, func(), error) {
	envOnly := *cfg
	envOnly.TuningFile = ""
	base, err := config.DomainConfigFor(&envOnly)
	if err != nil {
		return nil, nil, err
	}
	if cfg.TuningFile == "" {
		return NewStaticTuning(base), func() {}, nil
	}

	watcher, err := config.NewTuningWatcher(cfg.TuningFile, base, logger)
	if err != nil {
		return nil, nil, err
	}
	t := &Tuning{watcher: watcher}
	return t, t.Stop, nil
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

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideBackend selects the persistence adapters
func ProvideBackend(ctx context.Context, cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) (*Backend, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		logger.Warn("Using in-memory store; data is lost on exit")
		return &Backend{
			Name:          config.StoreMemory,
			Entries:       memory.NewEntryRepository(),
			Relationships: memory.NewRelationshipStore(),
			Locker:        memory.NewDetectionLock(),
		}, func() {}, nil

	case config.StoreDynamoDB:
		table := cfg.DynamoDBTable
		return &Backend{
			Name:          config.StoreDynamoDB,
			Entries:       dynamostore.NewEntryRepository(client, table, logger),
			Relationships: dynamostore.NewRelationshipStore(client, table, logger),
			Locker:        dynamostore.NewDetectionLock(client, table, logger),
			Ready: func(ctx context.Context) error {
				_, err := client.DescribeTable(ctx, &awsdynamodb.DescribeTableInput{TableName: aws.String(table)})
				return err
			},
		}, func() {}, nil

	case config.StoreNeo4j:
		exec, err := neo4jstore.NewExecutor(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
		if err != nil {
			return nil, nil, err
		}
		closeDriver := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), neo4jConnectTimeout)
			defer cancel()
			if err := exec.Close(closeCtx); err != nil {
				logger.Warn("Failed to close Neo4j driver", zap.Error(err))
			}
		}

		connectCtx, cancel := context.WithTimeout(ctx, neo4jConnectTimeout)
		defer cancel()
		if err := exec.Verify(connectCtx); err != nil {
			closeDriver()
			return nil, nil, fmt.Errorf("could not connect to Neo4j at %s: %w", cfg.Neo4jURI, err)
		}
		if err := neo4jstore.EnsureSchema(connectCtx, exec); err != nil {
			closeDriver()
			return nil, nil, err
		}
		logger.Info("Connected to Neo4j", zap.String("uri", cfg.Neo4jURI))

		return &Backend{
			Name:          config.StoreNeo4j,
			Entries:       neo4jstore.NewEntryRepository(exec, logger),
			Relationships: neo4jstore.NewRelationshipStore(exec, logger),
			Locker:        neo4jstore.NewDetectionLock(exec, logger),
			Ready:         exec.Verify,
		}, closeDriver, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// ProvideScorer creates the similarity scorer and keeps its weights in step
// with the tuning file.
func ProvideScorer(tuning *Tuning) *domainservices.SimilarityScorer {
	scorer := domainservices.NewSimilarityScorer(tuning.Current().Scoring, nil)
	tuning.OnChange(func(c *domainconfig.DomainConfig) { scorer.UpdateConfig(c.Scoring) })
	return scorer
}

// ProvideEventPublisher publishes to EventBridge when EVENT_BUS_NAME is set
// and to the log otherwise.
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return eventbridge.NewLogPublisher(logger)
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideCollector creates the Prometheus collector
func ProvideCollector() *observability.Collector {
	return observability.NewCollector(serviceName)
}

// ProvideDetectionMetrics records detection passes in Prometheus and, on
// Lambda with metrics enabled, in CloudWatch as well.
func ProvideDetectionMetrics(collector *observability.Collector, client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) ports.DetectionMetrics {
	if !cfg.EnableMetrics || !cfg.IsLambda {
		return collector
	}
	namespace := fmt.Sprintf("ChatArchive/%s", cfg.Environment)
	return observability.MultiMetrics{collector, observability.NewCloudWatchMetrics(namespace, client, logger)}
}

// ProvideTracer returns nil when tracing is disabled, X-Ray on Lambda and
// OpenTelemetry elsewhere.
func ProvideTracer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.Tracer, func(), error) {
	if !cfg.EnableTracing {
		return nil, func() {}, nil
	}
	if cfg.IsLambda {
		return pkgobservability.NewTracer(serviceName), func() {}, nil
	}

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), tracerShutdown)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideDetector creates the relationship detector and keeps its timeout
// and lock settings in step with the tuning file.
func ProvideDetector(
	backend *Backend,
	scorer *domainservices.SimilarityScorer,
	tuning *Tuning,
	publisher ports.EventPublisher,
	metrics ports.DetectionMetrics,
	tracer ports.Tracer,
	logger *zap.Logger,
) *services.RelationshipDetector {
	opts := []services.DetectorOption{
		services.WithPublisher(publisher),
		services.WithMetrics(metrics),
	}
	if tracer != nil {
		opts = append(opts, services.WithTracer(tracer))
	}
	detector := services.NewRelationshipDetector(
		backend.Entries,
		backend.Relationships,
		scorer,
		backend.Locker,
		tuning.Current().Detection,
		logger,
		opts...,
	)
	tuning.OnChange(func(c *domainconfig.DomainConfig) { detector.UpdateConfig(c.Detection) })
	return detector
}

// ProvideOpenAIAPI returns nil when no OpenAI-compatible endpoint is
// configured.
func ProvideOpenAIAPI(cfg *config.Config) aiopenai.API {
	if !cfg.AIEnabled() {
		return nil
	}
	return aiopenai.NewAPI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
}

// ProvideEmbedder returns nil without an AI endpoint; entries then use
// lexical scoring only.
func ProvideEmbedder(api aiopenai.API, cfg *config.Config, logger *zap.Logger) ports.Embedder {
	if api == nil {
		return nil
	}
	return aiopenai.NewEmbedder(api, cfg.EmbeddingModel, cfg.EmbeddingDimension, aiopenai.DefaultBreakerConfig(), logger)
}

// ProvideSummarizer returns nil without an AI endpoint
func ProvideSummarizer(api aiopenai.API, cfg *config.Config, logger *zap.Logger) ports.Summarizer {
	if api == nil {
		return nil
	}
	return aiopenai.NewSummarizer(api, cfg.SummaryModel, aiopenai.DefaultBreakerConfig(), logger)
}

// ProvideCache creates the query cache
func ProvideCache() (*InMemoryCache, func()) {
	cache := NewInMemoryCache(cacheCleanupInterval)
	return cache, cache.Close
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	backend *Backend,
	detector *services.RelationshipDetector,
	embedder ports.Embedder,
	summarizer ports.Summarizer,
	publisher ports.EventPublisher,
	cache *InMemoryCache,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(logger),
		bus.InvalidationMiddleware(cache, logger),
	)

	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.ImportEntryCommand{}, bus.HandlerFor(
			cmdhandlers.NewImportEntryHandler(backend.Entries, summarizer, embedder, detector, publisher, logger).Handle)},
		{commands.DetectRelationshipsCommand{}, bus.HandlerFor(
			cmdhandlers.NewDetectRelationshipsHandler(detector).Handle)},
		{commands.LinkEntriesCommand{}, bus.HandlerFor(
			cmdhandlers.NewLinkEntriesHandler(backend.Entries, backend.Relationships, publisher, logger).Handle)},
		{commands.UnlinkEntriesCommand{}, bus.HandlerFor(
			cmdhandlers.NewUnlinkEntriesHandler(backend.Relationships, publisher, logger).Handle)},
		{commands.DeleteEntryCommand{}, bus.HandlerFor(
			cmdhandlers.NewDeleteEntryHandler(backend.Entries, backend.Relationships, publisher, logger).Handle)},
	}
	for _, r := range registrations {
		if err := commandBus.Register(r.cmd, r.handler); err != nil {
			return nil, err
		}
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers. Graph data
// is cached; every query is measured.
func ProvideQueryBus(
	backend *Backend,
	scorer *domainservices.SimilarityScorer,
	tuning *Tuning,
	cache *InMemoryCache,
	collector *observability.Collector,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(querybus.Measured(collector))

	current := tuning.Current()
	limit := current.Detection.DefaultLimit
	projector := domainservices.NewGraphProjector(current.Render.LabelRunes)

	registrations := []struct {
		query   querybus.Query
		handler querybus.QueryHandler
		extra   []querybus.Middleware
	}{
		{query: queries.GetEntryQuery{}, handler: querybus.HandlerFor(
			qryhandlers.NewGetEntryHandler(backend.Entries).Handle)},
		{query: queries.GetRelatedQuery{}, handler: querybus.HandlerFor(
			qryhandlers.NewGetRelatedHandler(backend.Entries, backend.Relationships, limit, logger).Handle)},
		{query: queries.GetSuggestionsQuery{}, handler: querybus.HandlerFor(
			qryhandlers.NewGetSuggestionsHandler(backend.Entries, backend.Relationships, scorer, limit, logger).Handle)},
		{
			query: queries.GetGraphDataQuery{},
			handler: querybus.HandlerFor(
				qryhandlers.NewGetGraphDataHandler(backend.Entries, backend.Relationships, projector, scorer, logger).Handle),
			extra: []querybus.Middleware{querybus.Cached(cache, graphCacheTTL)},
		},
	}
	for _, r := range registrations {
		if err := queryBus.Register(r.query, r.handler, r.extra...); err != nil {
			return nil, err
		}
	}
	return queryBus, nil
}
