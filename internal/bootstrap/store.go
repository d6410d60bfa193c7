// Package bootstrap opens the storage backends shared by the server and taskctl.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/taskbot/internal/config"
	pgInfra "github.com/fastygo/taskbot/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/taskbot/internal/infrastructure/redis"
	"github.com/fastygo/taskbot/internal/services/lifecycle"
	"github.com/fastygo/taskbot/repository"
	"github.com/fastygo/taskbot/repository/memory"
	"github.com/fastygo/taskbot/repository/postgres"
	redisRepo "github.com/fastygo/taskbot/repository/redis"
)

// Stores bundles the repositories selected by STORE_DRIVER and REDIS_URL.
type Stores struct {
	Tasks  repository.TaskRepository
	Users  repository.UserRepository
	Ledger repository.DeliveryLedger

	Pool  *pgxpool.Pool
	Redis *goRedis.Client
}

// OpenStores connects the configured backends and registers their shutdown hooks.
func OpenStores(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, logger *zap.Logger) (*Stores, error) {
	stores := &Stores{}

	if cfg.UsesPostgres() {
		if err := pgInfra.RunMigrations(cfg, logger); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		manager.Register("postgres", func(context.Context) error {
			pgInfra.Close(pool, logger)
			return nil
		})
		stores.Pool = pool
		stores.Tasks = postgres.NewTaskRepository(pool)
		stores.Users = postgres.NewUserRepository(pool)
	} else {
		logger.Warn("using in-memory task store; tasks are lost on restart")
		stores.Tasks = memory.NewTaskRepository()
		stores.Users = memory.NewUserRepository()
	}

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	if redisClient != nil {
		manager.RegisterCloser("redis", redisClient)
		stores.Redis = redisClient
		stores.Ledger = redisRepo.NewDeliveryLedger(redisClient, cfg.Reminders.DeliveryTTL)
	} else {
		stores.Ledger = memory.NewDeliveryLedger(cfg.Reminders.DeliveryTTL)
	}

	return stores, nil
}
