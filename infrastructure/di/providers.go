package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"ameliorate/application/commands/bus"
	commandhandlers "ameliorate/application/commands/handlers"
	"ameliorate/application/ports"
	querybus "ameliorate/application/queries/bus"
	queryhandlers "ameliorate/application/queries/handlers"
	"ameliorate/infrastructure/cache"
	"ameliorate/infrastructure/config"
	"ameliorate/infrastructure/messaging"
	"ameliorate/infrastructure/messaging/eventbridge"
	"ameliorate/infrastructure/persistence/dynamodb"
	"ameliorate/infrastructure/persistence/postgres"
	"ameliorate/infrastructure/persistence/sqlite"
	"ameliorate/interfaces/http/rest"
	"ameliorate/pkg/auth"
	"ameliorate/pkg/observability"
)

const (
	serviceName  = "ameliorate"
	userCacheTTL = 5 * time.Minute

	// Used only outside production when JWT_SECRET is unset
	developmentJWTSecret = "ameliorate-development-secret"
)

// Store is the repositories of the configured driver
type Store struct {
	Driver string
	Topics ports.TopicRepository
	Users  ports.UserRepository
	Health ports.HealthChecker

	migrate func(ctx context.Context) (int, error)
}

// Migrate brings the store's schema up to date and returns how many
// migrations ran. For DynamoDB it creates the table when missing.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	return s.migrate(ctx)
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = level
	return zapCfg.Build(zap.Fields(zap.String("service", serviceName)))
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideStore opens the configured store. The SQLite store migrates itself
// on open; the others are migrated with the migrate command.
func ProvideStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (*Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := sqlite.OpenDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		applied, err := db.Migrate(ctx)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		logger.Info("Opened SQLite store", zap.String("path", cfg.SQLitePath), zap.Int("migrationsApplied", applied))
		return &Store{
			Driver:  cfg.StoreDriver,
			Topics:  sqlite.NewTopicRepository(db),
			Users:   cache.NewUserCache(ctx, sqlite.NewUserRepository(db), userCacheTTL),
			Health:  db,
			migrate: db.Migrate,
		}, func() { db.Close() }, nil

	case config.StorePostgres:
		db, err := postgres.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Connected to PostgreSQL store")
		return &Store{
			Driver:  cfg.StoreDriver,
			Topics:  postgres.NewTopicRepository(db),
			Users:   cache.NewUserCache(ctx, postgres.NewUserRepository(db), userCacheTTL),
			Health:  db,
			migrate: db.Migrate,
		}, db.Close, nil

	case config.StoreDynamoDB:
		table := dynamodb.NewTable(awsdynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable, cfg.IndexName, logger)
		logger.Info("Using DynamoDB store", zap.String("table", cfg.DynamoDBTable))
		return &Store{
			Driver: cfg.StoreDriver,
			Topics: dynamodb.NewTopicRepository(table),
			Users:  cache.NewUserCache(ctx, dynamodb.NewUserRepository(table), userCacheTTL),
			Health: table,
			migrate: func(ctx context.Context) (int, error) {
				created, err := table.EnsureTable(ctx)
				if created {
					return 1, err
				}
				return 0, err
			},
		}, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// ProvideEventPublisher publishes to EventBridge when events are enabled
// and logs them otherwise
func ProvideEventPublisher(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) ports.EventPublisher {
	if !cfg.EnableEvents {
		return messaging.NewLogPublisher(logger)
	}
	return eventbridge.NewPublisher(
		awseventbridge.NewFromConfig(awsCfg),
		cfg.EventBusName,
		eventbridge.DefaultBreakerSettings(),
		logger,
	)
}

// ProvideCollector creates the Prometheus collector served on /metrics
func ProvideCollector(cfg *config.Config) *observability.Collector {
	return observability.NewCollector(cfg.MetricsPrefix)
}

// ProvideMetrics creates the CloudWatch metrics publisher. Outside
// production, or with metrics disabled, it records nothing.
func ProvideMetrics(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) *observability.Metrics {
	namespace := fmt.Sprintf("Ameliorate/%s", cfg.Environment)
	if !cfg.EnableMetrics || !cfg.IsProduction() {
		return observability.NewMetrics(namespace, nil, logger)
	}
	return observability.NewMetrics(namespace, awscloudwatch.NewFromConfig(awsCfg), logger)
}

// ProvideTracer returns nil when tracing is disabled
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	if !cfg.EnableTracing {
		return nil
	}
	return observability.NewTracer(serviceName)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	store *Store,
	publisher ports.EventPublisher,
	collector *observability.Collector,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(logger),
		bus.MetricsMiddleware(collector, metrics),
		bus.TracingMiddleware(tracer),
	)

	registrars := []interface{ Register(*bus.CommandBus) error }{
		commandhandlers.NewTopicHandler(store.Topics, store.Users, publisher, logger, collector, metrics),
		commandhandlers.NewGraphPartHandler(store.Topics, publisher, logger, collector, metrics),
		commandhandlers.NewUserHandler(store.Users, publisher, logger),
	}
	for _, r := range registrars {
		if err := r.Register(commandBus); err != nil {
			return nil, err
		}
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(store *Store, logger *zap.Logger) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()
	if err := queryhandlers.NewTopicQueryHandler(store.Topics, store.Users, logger).Register(queryBus); err != nil {
		return nil, err
	}
	return queryBus, nil
}

// ProvideJWTConfig resolves the token settings, falling back to a fixed
// development secret outside production
func ProvideJWTConfig(cfg *config.Config, logger *zap.Logger) auth.JWTConfig {
	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn("JWT_SECRET not set, using the development secret")
		secret = developmentJWTSecret
	}
	return auth.JWTConfig{SecretKey: secret, Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience}
}

// ProvideJWTValidator creates the bearer token validator
func ProvideJWTValidator(jwtCfg auth.JWTConfig) (*auth.JWTValidator, error) {
	return auth.NewJWTValidator(jwtCfg)
}

// ProvideRateLimiters creates the per-IP and per-user limiters. A limit of
// zero disables the limiter.
func ProvideRateLimiters(cfg *config.Config) rest.RateLimiters {
	var limiters rest.RateLimiters
	if cfg.RateLimitIP > 0 {
		limiters.IP = auth.NewIPRateLimiter(cfg.RateLimitIP)
	}
	if cfg.RateLimitUser > 0 {
		limiters.User = auth.NewUserRateLimiter(cfg.RateLimitUser)
	}
	return limiters
}

// ProvideRouter builds the HTTP handler
func ProvideRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	store *Store,
	validator *auth.JWTValidator,
	limiters rest.RateLimiters,
	collector *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(rest.RouterConfig{
		CommandBus:   commandBus,
		QueryBus:     queryBus,
		Logger:       logger,
		Validator:    validator,
		RateLimiters: limiters,
		Collector:    collector,
		Tracer:       tracer,
		Health:       store.Health,
		CORSOrigins:  cfg.CORSOrigins,
		Debug:        cfg.IsDevelopment(),
	})
}
