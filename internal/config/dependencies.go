package config

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"projectmanager/configs"
	"projectmanager/internal/auth"
	"projectmanager/internal/cache"
	"projectmanager/internal/repository"
	"projectmanager/internal/repository/memory"
	"projectmanager/internal/repository/mongo"
	"projectmanager/internal/repository/postgres"
	"projectmanager/internal/service"
	myws "projectmanager/internal/websocket"
	"projectmanager/pkg/database"
	"projectmanager/pkg/logger"
)

// Dependencies holds the long-lived objects the commands share.
type Dependencies struct {
	Config      configs.Config
	Store       repository.Store
	RedisClient *redis.Client
	Hub         *myws.Hub
	Service     *service.Service
}

// OpenStore connects the backend selected by DB_DRIVER.
func OpenStore(ctx context.Context, cfg configs.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case configs.DriverPostgres:
		db, err := database.ConnectDB(cfg)
		if err != nil {
			return nil, err
		}
		logger.SystemLogger.Info("Database Connected", zap.String("driver", cfg.DBDriver))
		return postgres.New(db), nil
	case configs.DriverMongo:
		client, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.SystemLogger.Info("Database Connected", zap.String("driver", cfg.DBDriver))
		return mongo.New(client, cfg.MongoDB), nil
	case configs.DriverMemory:
		logger.SystemLogger.Warn("Using in-memory store; data is lost on exit")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

// Build opens the store and, when enabled, Redis, then wires the service.
// A Redis that cannot be reached disables caching instead of failing.
func Build(ctx context.Context, cfg configs.Config) (*Dependencies, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	deps := &Dependencies{Config: cfg, Store: store, Hub: myws.NewHub()}

	var c cache.Cache = cache.Noop{}
	if cfg.RedisEnabled {
		client, err := database.ConnectRedis(ctx, cfg)
		if err != nil {
			logger.SystemLogger.Warn("Redis unavailable, caching disabled", zap.Error(err))
		} else {
			deps.RedisClient = client
			c = cache.NewRedis(client)
		}
	}

	deps.Service = service.New(service.Deps{
		Store:    store,
		Cache:    c,
		Tokens:   auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Notifier: deps.Hub,
	})
	return deps, nil
}

func (d *Dependencies) Close(ctx context.Context) {
	if d.RedisClient != nil {
		if err := d.RedisClient.Close(); err != nil {
			logger.ErrorLogger.Error("Error closing Redis", zap.Error(err))
		}
	}
	if err := d.Store.Close(ctx); err != nil {
		logger.ErrorLogger.Error("Error closing store", zap.Error(err))
	}
}
