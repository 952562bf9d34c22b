package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsEventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"dreamlog-backend/internal/config"
	"dreamlog-backend/internal/domain/events"
	"dreamlog-backend/internal/handlers"
	"dreamlog-backend/internal/messaging/eventbridge"
	"dreamlog-backend/internal/observability"
	"dreamlog-backend/internal/repository"
	"dreamlog-backend/internal/repository/ddb"
	"dreamlog-backend/internal/repository/memory"
	"dreamlog-backend/internal/service/classifier"
	"dreamlog-backend/internal/service/cycles"
	"dreamlog-backend/internal/service/insights"
	"dreamlog-backend/internal/service/llm"
	"dreamlog-backend/internal/service/narrative"
	"dreamlog-backend/internal/service/nightmares"
	"dreamlog-backend/internal/service/patterns"
	"dreamlog-backend/internal/service/themes"
)

// Logging pairs the logger with the level handle the config watcher adjusts.
type Logging struct {
	Logger *zap.Logger
	Level  zap.AtomicLevel
}

// Stores are the four independently failing stores, on whichever backend is configured.
type Stores struct {
	Themes     repository.ThemeStore
	Nightmares repository.NightmareStore
	Cycles     repository.CycleStore
	Settings   repository.SettingsStore
}

// ============================================================================
// CONFIGURATION AND OBSERVABILITY
// ============================================================================

func provideLogging(cfg *config.Config) (Logging, error) {
	logger, level, err := observability.NewLogger(string(cfg.Environment), cfg.Logging.Level)
	if err != nil {
		return Logging{}, err
	}
	logger = logger.With(zap.String("service", cfg.Observability.ServiceName))
	return Logging{Logger: logger, Level: level}, nil
}

func provideLogger(l Logging) *zap.Logger {
	return l.Logger
}

// provideMetrics returns nil when metrics are disabled; every Collector method is nil-safe.
func provideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.Observability.EnableMetrics {
		return nil
	}
	return observability.NewCollector("dreamlog")
}

func provideTracer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, error) {
	if !cfg.Observability.EnableTracing {
		return nil, nil
	}
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.Observability.ServiceName,
		Environment: string(cfg.Environment),
		Endpoint:    cfg.Observability.OTLPEndpoint,
		SampleRate:  cfg.Observability.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	logger.Info("tracing enabled", zap.String("endpoint", cfg.Observability.OTLPEndpoint))
	return tp, nil
}

// ============================================================================
// AWS INFRASTRUCTURE
// ============================================================================

func provideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return awsCfg, nil
}

func provideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.AWS.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.DynamoDBEndpoint)
		}
	})
}

func provideEventBridgeClient(awsCfg aws.Config) *awsEventbridge.Client {
	return awsEventbridge.NewFromConfig(awsCfg)
}

func provideStores(cfg *config.Config, client *dynamodb.Client, logger *zap.Logger) (Stores, error) {
	if cfg.Storage.Backend == config.BackendMemory {
		logger.Warn("using in-memory pattern stores; data is lost on restart")
		return Stores{
			Themes:     memory.NewThemeStore(),
			Nightmares: memory.NewNightmareStore(),
			Cycles:     memory.NewCycleStore(),
			Settings:   memory.NewSettingsStore(),
		}, nil
	}

	stores, err := ddb.NewStores(client, repository.Config{
		ThemeTable:     cfg.Storage.ThemeTable,
		NightmareTable: cfg.Storage.NightmareTable,
		CycleTable:     cfg.Storage.CycleTable,
		SettingsTable:  cfg.Storage.SettingsTable,
		PageSize:       cfg.Storage.PageSize,
	}, logger)
	if err != nil {
		return Stores{}, err
	}
	return Stores{
		Themes:     stores.Themes,
		Nightmares: stores.Nightmares,
		Cycles:     stores.Cycles,
		Settings:   stores.Settings,
	}, nil
}

func providePublisher(cfg *config.Config, client *awsEventbridge.Client, logger *zap.Logger) events.Publisher {
	if !cfg.Events.Enabled {
		return events.NopPublisher{}
	}
	return eventbridge.NewPublisher(client, cfg.Events.EventBusName, cfg.Events.Source, logger)
}

// ============================================================================
// COLLABORATORS
// ============================================================================

func provideLLMProvider(cfg *config.Config, logger *zap.Logger) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.ClassifierModel,
		}, logger)
	case config.ProviderMock:
		return llm.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// breakerFor gives each collaborator its own breaker so a failing narrative endpoint never
// short-circuits classification.
func breakerFor(name string, provider llm.Provider, cfg *config.Config, logger *zap.Logger) llm.Provider {
	bc := llm.DefaultBreakerConfig(name)
	bc.FailureThreshold = cfg.LLM.Breaker.FailureThreshold
	bc.MinRequests = cfg.LLM.Breaker.MinRequests
	bc.Timeout = cfg.LLM.Breaker.OpenDuration
	return llm.NewBreakerProvider(provider, bc, logger)
}

func provideClassifier(cfg *config.Config, provider llm.Provider, logger *zap.Logger, metrics *observability.Collector) *classifier.Classifier {
	return classifier.New(breakerFor("classifier", provider, cfg, logger), classifier.Config{
		Model:   cfg.LLM.ClassifierModel,
		Timeout: cfg.LLM.ClassifyTimeout,
	}, logger, metrics)
}

func provideNarrative(cfg *config.Config, provider llm.Provider, logger *zap.Logger, metrics *observability.Collector) *narrative.Generator {
	return narrative.New(breakerFor("narrative", provider, cfg, logger), narrative.Config{
		Model:   cfg.LLM.NarrativeModel,
		Timeout: cfg.LLM.NarrativeTimeout,
	}, logger, metrics)
}

// ============================================================================
// PATTERN SERVICES
// ============================================================================

func provideThemeTracker(stores Stores, logger *zap.Logger, metrics *observability.Collector) *themes.Tracker {
	return themes.NewTracker(stores.Themes, logger, metrics)
}

func provideAggregator(stores Stores, logger *zap.Logger) *nightmares.Aggregator {
	return nightmares.NewAggregator(stores.Nightmares, logger)
}

func provideMatcher(cfg *config.Config, stores Stores, gen *narrative.Generator, logger *zap.Logger, metrics *observability.Collector) *cycles.Matcher {
	return cycles.NewMatcher(stores.Cycles, gen, logger, metrics, cycles.WithThreshold(cfg.Patterns.SimilarityThreshold))
}

func provideAnalyzer(
	c *classifier.Classifier,
	stores Stores,
	tracker *themes.Tracker,
	aggregator *nightmares.Aggregator,
	matcher *cycles.Matcher,
	publisher events.Publisher,
	logger *zap.Logger,
	metrics *observability.Collector,
) *patterns.Analyzer {
	return patterns.NewAnalyzer(c, stores.Settings, tracker, aggregator, matcher, publisher, logger, metrics)
}

func provideInsights(cfg *config.Config, stores Stores, tracker *themes.Tracker, gen *narrative.Generator, logger *zap.Logger) *insights.Service {
	return insights.NewService(stores.Nightmares, stores.Cycles, tracker, gen, cfg.Patterns.MinCycleOccurrences, logger)
}

// ============================================================================
// HTTP
// ============================================================================

func providePatternHandler(analyzer *patterns.Analyzer, reader *insights.Service, stores Stores, logger *zap.Logger) *handlers.PatternHandler {
	return handlers.NewPatternHandler(analyzer, reader, stores.Settings, logger)
}

func provideRouter(cfg *config.Config, h *handlers.PatternHandler, metrics *observability.Collector, logger *zap.Logger) *chi.Mux {
	return handlers.NewRouter(h, metrics, handlers.RouterConfig{
		ServiceName:    cfg.Observability.ServiceName,
		RequestTimeout: cfg.Server.WriteTimeout,
	}, logger)
}
