package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq" // PostgreSQL driver

	"monitorss/internal/api"
	"monitorss/internal/article"
	"monitorss/internal/broker"
	"monitorss/internal/config"
	"monitorss/internal/config_handler"
	"monitorss/internal/constants"
	"monitorss/internal/delivery"
	"monitorss/internal/destination"
	"monitorss/internal/feed"
	"monitorss/internal/filters"
	"monitorss/internal/formatter"
	"monitorss/internal/logger"
	"monitorss/internal/outcomes"
	"monitorss/internal/placeholders"
	"monitorss/internal/processor"
	"monitorss/internal/seen"
	"monitorss/pkg/bootstrap"
	"monitorss/pkg/cel"
	"monitorss/pkg/clock"
	"monitorss/pkg/health"
	"monitorss/pkg/metrics"
	"monitorss/pkg/middleware"
	"monitorss/pkg/models"
	"monitorss/pkg/ratelimit"
	"monitorss/pkg/tracing"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const seenSizeReportInterval = 30 * time.Second

type App struct {
	*bootstrap.Base

	dbConnector    *bootstrap.DatabaseConnector
	conns          *bootstrap.Connections
	cache          *destination.Cache
	seen           *seen.Service
	pipeline       *delivery.Pipeline
	processor      *processor.Processor
	engine         *placeholders.Engine
	checker        *filters.Checker
	limiter        *ratelimit.Store
	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	conns, err := a.dbConnector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect databases: %w", err)
	}
	a.conns = conns

	if a.Config.Database.RunMigrations {
		if err := runMigrations(ctx, conns, a.Logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	metrics.RegisterPipelineMetrics()
	metrics.RegisterDeliveryMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterCircuitBreakerMetrics()
	metrics.RegisterAPIMetrics()

	if err := a.initDestinations(ctx); err != nil {
		return fmt.Errorf("failed to initialize destinations: %w", err)
	}

	if err := a.InitBroker(serviceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initPipeline(); err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	a.initRouter()
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds * time.Second,
	}
	return nil
}

func (a *App) outcomeStore() (outcomes.Store, error) {
	var store outcomes.Store
	switch a.Config.Pipeline.OutcomeStore {
	case constants.StorePostgres:
		store = outcomes.NewPostgresStore(a.conns.Postgres)
	case constants.StoreMongoDB:
		store = outcomes.NewMongoStore(a.conns.MongoDB)
	case "", constants.StoreMemory:
		store = outcomes.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown outcome store %q", a.Config.Pipeline.OutcomeStore)
	}
	return outcomes.NewCircuitBreakerStore(store, "outcome-store", a.Config.CircuitBreaker), nil
}

func (a *App) initDestinations(ctx context.Context) error {
	var source destination.Source
	switch a.Config.Pipeline.DestinationStore {
	case constants.StorePostgres:
		source = destination.NewPostgresSource(a.conns.Postgres)
	case constants.StoreMongoDB:
		source = destination.NewMongoSource(a.conns.MongoDB)
	case "", constants.StoreFile:
		source = destination.NewFileSource(a.Config.Pipeline.DestinationsFile)
	default:
		return fmt.Errorf("unknown destination store %q", a.Config.Pipeline.DestinationStore)
	}

	a.cache = destination.NewCache(destination.NewCircuitBreakerSource(source, a.Config.CircuitBreaker), a.Config.Pipeline.Reload, a.Logger)
	if err := a.cache.Reload(ctx, true); err != nil {
		a.Logger.WarnwCtx(ctx, "Initial destination load failed, retrying on the next reload", "error", err)
	}
	return nil
}

func (a *App) initPipeline() error {
	cfg := a.Config
	clk := clock.Real()

	var repo seen.Repository
	if a.conns.Redis != nil {
		repo = seen.NewRedisRepository(a.conns.Redis)
	} else {
		a.Logger.Warnw("Redis not configured, remembering seen articles in memory")
		repo = seen.NewMemoryRepository(clk)
	}
	a.seen = seen.NewService(seen.NewCircuitBreakerRepository(repo, cfg.CircuitBreaker),
		cfg.Pipeline.SeenTTLSeconds, cfg.Pipeline.OnSeenStoreError, a.Logger)

	store, err := a.outcomeStore()
	if err != nil {
		return err
	}

	flattener, err := article.NewFlattener(article.FlattenOptions{
		Timezone:   cfg.Pipeline.Flatten.Timezone,
		DateFormat: cfg.Pipeline.Flatten.DateFormat,
		Locale:     cfg.Pipeline.Flatten.Locale,
	})
	if err != nil {
		return fmt.Errorf("failed to create flattener: %w", err)
	}

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create CEL evaluator: %w", err)
	}
	a.checker = filters.NewChecker(evaluator, a.Logger)
	a.engine = placeholders.NewEngine(a.Logger)

	eventsTopic := cfg.Broker.Kafka.EventsTopic
	if eventsTopic == "" {
		eventsTopic = constants.DefaultEventsTopic
	}
	publisher := broker.NewEventPublisher(a.Producer, eventsTopic, serviceName)

	a.pipeline = delivery.NewPipeline(cfg.Delivery, a.cache, delivery.NewHTTPDispatcher(cfg.Delivery),
		store, publisher, clk, a.Logger)

	a.processor = processor.New(processor.Options{
		Flattener: flattener,
		Seen:      a.seen,
		Directory: a.cache,
		Formatter: formatter.New(a.engine, clk),
		Checker:   a.checker,
		Enqueuer:  a.pipeline,
		Outcomes:  store,
		Clock:     clk,
		Verbose:   cfg.Pipeline.VerboseLogging,
		Logger:    a.Logger,
	})
	return nil
}

func (a *App) initRouter() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(serviceName))
	}
	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.Config.API.RateLimit.Enabled {
		rateLimitConfig := ratelimit.FromConfig(a.Config.API.RateLimit)
		a.limiter = ratelimit.NewStore(rateLimitConfig)
		router.Use(ratelimit.Middleware(a.limiter))
		a.Logger.Infow("Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	healthRegistry := health.NewCheckerRegistry()
	a.conns.RegisterHealth(healthRegistry)
	healthRegistry.RegisterOptional(health.NewFuncChecker("destinations", func(ctx context.Context) error {
		if a.cache.Len() == 0 {
			return errors.New("no destinations loaded")
		}
		return nil
	}))

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api.NewHandler(a.engine, a.checker, a.cache, a.pipeline, a.Logger).RegisterRoutes(router)
	a.router = router
}

// Run serves HTTP, delivers queued jobs and consumes feed jobs until ctx is
// cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.pipeline.Start(ctx); err != nil {
		return fmt.Errorf("failed to start delivery pipeline: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "Server listening", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		if err := a.cache.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		a.seen.RunSizeReporter(ctx, seenSizeReportInterval)
		return nil
	})

	if a.limiter != nil {
		g.Go(func() error {
			a.limiter.RunCleanup(ctx)
			return nil
		})
	}

	inputTopic := a.Config.Broker.Kafka.InputTopic
	if inputTopic == "" {
		inputTopic = constants.DefaultInputTopic
	}
	configHandler := config_handler.NewHandlerWithReloader(models.EventTypeDestinationUpdated, a.cache, a.Logger).
		WithRemover(a.cache)

	g.Go(func() error {
		return a.Consume(ctx,
			bootstrap.Subscription{Topic: inputTopic, Handler: a.processor.FeedJobHandler(feed.NewParser())},
			bootstrap.Subscription{Topic: a.Config.Broker.Kafka.ConfigUpdateTopic, Handler: configHandler.HandleConfigUpdateEvent},
		)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Base.Shutdown(ctx, func(ctx context.Context) []error {
		shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
		defer cancel()

		var errs []error
		if a.server != nil {
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
		}
		if a.pipeline != nil {
			if err := a.pipeline.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("pipeline stop error: %w", err))
			}
		}
		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}
		if a.conns != nil {
			errs = append(errs, a.conns.Close(shutdownCtx)...)
		}
		return errs
	})
}
