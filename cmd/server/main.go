package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apiHandler "github.com/fastygo/taskbot/api/handler"
	"github.com/fastygo/taskbot/internal/bootstrap"
	"github.com/fastygo/taskbot/internal/config"
	"github.com/fastygo/taskbot/internal/infrastructure/buffer"
	"github.com/fastygo/taskbot/internal/infrastructure/classifier"
	"github.com/fastygo/taskbot/internal/infrastructure/monitor"
	"github.com/fastygo/taskbot/internal/infrastructure/notify"
	"github.com/fastygo/taskbot/internal/middleware"
	"github.com/fastygo/taskbot/internal/router"
	"github.com/fastygo/taskbot/internal/services"
	"github.com/fastygo/taskbot/internal/services/lifecycle"
	"github.com/fastygo/taskbot/internal/services/scheduler"
	"github.com/fastygo/taskbot/pkg/httpcontext"
	"github.com/fastygo/taskbot/pkg/logger"
	"github.com/fastygo/taskbot/usecase"
	authUC "github.com/fastygo/taskbot/usecase/auth"
	"github.com/fastygo/taskbot/usecase/draft"
	profileUC "github.com/fastygo/taskbot/usecase/profile"
	"github.com/fastygo/taskbot/usecase/reminder"
	taskUC "github.com/fastygo/taskbot/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		Service:  cfg.AppName,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	stores, err := bootstrap.OpenStores(appCtx, cfg, manager, zapLogger)
	if err != nil {
		zapLogger.Fatal("storage setup failed", zap.Error(err))
	}

	outbox, err := buffer.Open(cfg.Buffer.Path, "outbox")
	if err != nil {
		zapLogger.Fatal("failed to open outbox", zap.Error(err))
	}
	manager.RegisterCloser("outbox", outbox)

	var notifier reminder.Notifier = notify.NewLog(zapLogger.Named("notify"))
	if cfg.Notifier.WebhookURL != "" {
		notifier = notify.NewWebhook(cfg.Notifier, zapLogger.Named("notify"))
	} else {
		zapLogger.Warn("NOTIFY_WEBHOOK_URL not set; reminders are only logged")
	}

	loc := cfg.Location()

	deliverer := reminder.NewDeliverer(stores.Tasks, stores.Users, stores.Ledger, notifier, outbox, loc, zapLogger.Named("deliverer"))
	sched := scheduler.New(deliverer.Fire, zapLogger.Named("scheduler"),
		scheduler.WithLocation(loc),
		scheduler.WithFireTimeout(cfg.Reminders.FireTimeout))
	planner := reminder.NewPlanner(sched, zapLogger, reminder.WithSnoozeAfter(cfg.Reminders.SnoozeAfter))
	recovery := reminder.NewRecovery(stores.Tasks, sched, zapLogger,
		reminder.WithDebounce(cfg.Reminders.RecoveryDebounce),
		reminder.WithAllOffsets(cfg.Reminders.RecoverAllOffsets))

	sched.Start()
	manager.Register("scheduler", func(ctx context.Context) error {
		sched.Stop(ctx)
		return nil
	})

	report, err := recovery.Run(appCtx)
	if err != nil {
		zapLogger.Error("reminder recovery failed", zap.Error(err))
	} else {
		zapLogger.Info("reminders recovered",
			zap.Int("scheduled", report.Scheduled),
			zap.Int("debounced", report.Debounced),
			zap.Int("missed", report.Missed))
	}

	mon := monitor.New(stores.Pool, stores.Redis, outbox, sched, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	outboxProcessor := services.NewOutboxProcessor(
		outbox,
		notifier,
		stores.Tasks,
		mon,
		zapLogger,
		services.ProcessorConfig{
			Interval:   cfg.Buffer.SyncInterval,
			BatchSize:  cfg.Buffer.BatchSize,
			MaxRetries: cfg.Buffer.MaxRetry,
		},
	)
	outboxProcessor.Start()
	manager.Register("outbox_processor", func(ctx context.Context) error {
		outboxProcessor.Stop(ctx)
		return nil
	})

	drafts := draft.New(zapLogger, draft.WithTTL(cfg.Reminders.DraftTTL))
	intents := classifier.NewAnthropic(cfg.Classifier, zapLogger.Named("classifier"))

	taskUseCase := taskUC.New(stores.Tasks, stores.Users, intents, drafts, planner, zapLogger, taskUC.WithLocation(loc))
	profileUseCase := profileUC.New(stores.Users, loc, zapLogger)
	authUseCase := authUC.New(cfg.JWT.Secret, cfg.JWT.Issuer, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Profile: apiHandler.NewProfileHandler(profileUseCase, ctxAdapter, zapLogger),
		Task:    apiHandler.NewTaskHandler(taskUseCase, usecase.NewTaskDispatcher(taskUseCase), ctxAdapter, zapLogger),
		Health:  apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(authUseCase, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	g, gctx := errgroup.WithContext(appCtx)
	g.Go(func() error {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		return server.ListenAndServe(cfg.Address())
	})
	g.Go(func() error {
		<-gctx.Done()
		if err := manager.Shutdown(context.Background()); err != nil {
			zapLogger.Error("graceful shutdown error", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		zapLogger.Error("server crashed", zap.Error(err))
	}
}
