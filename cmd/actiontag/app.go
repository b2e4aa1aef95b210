package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"actiontag/internal/api"
	"actiontag/internal/classification"
	"actiontag/internal/config"
	"actiontag/internal/constants"
	"actiontag/internal/lastseen"
	"actiontag/internal/logger"
	"actiontag/internal/store"
	"actiontag/pkg/bootstrap"
	"actiontag/pkg/classifier"
	"actiontag/pkg/health"
	"actiontag/pkg/logging"
	"actiontag/pkg/metrics"
	"actiontag/pkg/models"
	"actiontag/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	redis          *redis.Client
	mongoClient    *mongo.Client
	service        *classification.Service
	sink           store.Sink
	health         *health.CheckerRegistry
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
		health:      health.NewCheckerRegistry(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterClassificationMetrics()
	metrics.RegisterAPIMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.initService(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	if err := a.InitBroker(ctx, constants.ServiceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	a.initHTTPServer(ctx)
	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	if a.Config.LastSeen.Enabled && a.Config.LastSeen.Backend == constants.LastSeenBackendRedis {
		rdb, err := a.dbConnector.InitRedis(ctx)
		if err != nil {
			return err
		}
		a.redis = rdb
		a.health.RegisterOptional(health.NewRedisChecker(rdb))
	}

	mongoClient, err := connectSinkDatabase(ctx, a.Config, a.dbConnector)
	if err != nil {
		return err
	}
	if mongoClient != nil {
		a.mongoClient = mongoClient
		a.health.Register(health.NewMongoDBChecker(mongoClient))
	}
	return nil
}

func (a *App) lastSeenRepository() lastseen.Repository {
	if !a.Config.LastSeen.Enabled {
		return nil
	}
	if a.redis == nil {
		return lastseen.NewMemoryRepository()
	}
	ttl := time.Duration(a.Config.LastSeen.TTLSeconds) * time.Second
	return lastseen.NewCircuitBreakerRepository(lastseen.NewRedisRepository(a.redis, ttl), a.Config.CircuitBreaker)
}

func (a *App) initService(ctx context.Context) error {
	c := classifier.Default()

	svc, err := classification.NewService(c, a.Config.Classification, a.lastSeenRepository(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create classification service: %w", err)
	}
	a.service = svc

	sink, err := newSink(ctx, a.Config, a.mongoClient)
	if err != nil {
		return err
	}
	a.sink = sink
	if a.Config.Store.Sink.Type != constants.SinkTypeMongoDB {
		a.health.Register(health.NewDirectoryChecker("sink_dir", a.Config.Store.Sink.Dir))
	}
	return nil
}

func (a *App) initHTTPServer(ctx context.Context) {
	handler := api.NewHandler(a.service, a.sink, a.Logger)
	router := api.NewRouter(ctx, a.Config, handler, a.health, a.Logger)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeout(),
		WriteTimeout: a.Config.Server.WriteTimeout(),
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if a.Consumer != nil {
		g.Go(func() error {
			consumeCtx := logging.WithServiceName(gCtx, constants.ServiceName)
			a.Logger.InfowCtx(consumeCtx, "Starting document consumer",
				"broker", a.Config.Broker.Type,
				"input", a.InputTopic,
				"output", a.OutputTopic,
			)
			return a.Consumer.Consume(gCtx, a.InputTopic, a.handleMessage)
		})
	}

	return g.Wait()
}

func (a *App) handleMessage(ctx context.Context, msg models.MessageEnvelope) error {
	action, forward, err := a.service.Classify(ctx, &msg)
	if err != nil {
		a.Logger.ErrorwCtx(ctx, "Classification error",
			"error", err,
		)
		return err
	}

	if !forward {
		a.Logger.InfowCtx(ctx, "Message filtered out", "action", action)
		return nil
	}

	if err := a.Producer.Publish(ctx, a.OutputTopic, msg); err != nil {
		a.Logger.ErrorwCtx(ctx, "Failed to publish message",
			"error", err,
			"output", a.OutputTopic,
		)
		return err
	}
	a.Logger.DebugwCtx(ctx, "Message classified", "action", action)

	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, constants.ServiceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down actiontag service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.sink != nil {
			if err := a.sink.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("sink close error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
