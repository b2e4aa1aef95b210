package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"actiontag/internal/config"
	"actiontag/internal/constants"
	"actiontag/internal/logger"
	"actiontag/pkg/retry"
)

// DatabaseConnector opens the optional backing stores: redis for the
// last-seen document and mongodb for the document sink.
type DatabaseConnector struct {
	Config *config.Config
	Logger logger.Logger
}

func NewDatabaseConnector(cfg *config.Config, log logger.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Config: cfg,
		Logger: log,
	}
}

func (dc *DatabaseConnector) pingPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     constants.DatabasePingAttempts,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}.Merge(retry.DefaultPolicy())
}

func (dc *DatabaseConnector) ping(ctx context.Context, store string, fn func(ctx context.Context) error) error {
	return retry.RetryWithCallback(ctx, dc.pingPolicy(), func() error {
		pingCtx, cancel := context.WithTimeout(ctx, constants.DatabaseConnectTimeout)
		defer cancel()
		return fn(pingCtx)
	}, func(attempt int, err error, nextDelay time.Duration) {
		dc.Logger.Warnw("Database not reachable yet",
			"store", store,
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
		)
	})
}

func (dc *DatabaseConnector) InitRedis(ctx context.Context) (*redis.Client, error) {
	cfg := dc.Config.Database.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: constants.DatabaseConnectTimeout,
	})

	err := dc.ping(ctx, "redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	dc.Logger.Infow("Redis connected", "addr", rdb.Options().Addr)
	return rdb, nil
}

// InitMongoDB returns nil when no URI is configured.
func (dc *DatabaseConnector) InitMongoDB(ctx context.Context) (*mongo.Client, error) {
	cfg := dc.Config.Database.MongoDB
	if cfg.URI == "" {
		return nil, nil
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName(constants.ServiceName).
		SetConnectTimeout(constants.DatabaseConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	err = dc.ping(ctx, "mongodb", func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dc.Logger.Infow("MongoDB connected", "database", cfg.Database, "collection", cfg.Collection)
	return client, nil
}

func (dc *DatabaseConnector) ShutdownDatabases(ctx context.Context, rdb *redis.Client, mongoClient *mongo.Client) []error {
	var errs []error

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	if mongoClient != nil {
		if err := mongoClient.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb disconnect error: %w", err))
		}
	}

	return errs
}
