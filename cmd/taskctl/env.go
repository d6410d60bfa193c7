package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/taskbot/internal/bootstrap"
	"github.com/fastygo/taskbot/internal/config"
	"github.com/fastygo/taskbot/internal/services/lifecycle"
	"github.com/fastygo/taskbot/pkg/logger"
)

// env is what every subcommand needs: configuration, a logger and the stores.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	manager *lifecycle.Manager
	stores  *bootstrap.Stores
}

func loadEnv(ctx context.Context, withStores bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	// Migrations are an explicit subcommand here.
	cfg.Migrations.Enabled = false

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: "console",
		Service:  "taskctl",
	})
	if err != nil {
		return nil, err
	}

	e := &env{
		cfg:     cfg,
		logger:  zapLogger,
		manager: lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger),
	}
	if withStores {
		if !cfg.UsesPostgres() {
			return nil, fmt.Errorf("STORE_DRIVER=%s keeps tasks in the server process; taskctl needs postgres", cfg.Store.Driver)
		}
		stores, err := bootstrap.OpenStores(ctx, cfg, e.manager, zapLogger)
		if err != nil {
			return nil, err
		}
		e.stores = stores
	}
	return e, nil
}

func (e *env) close() {
	_ = e.manager.Shutdown(context.Background())
	_ = e.logger.Sync()
}
