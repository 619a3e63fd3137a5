package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach_backend/internal/dialer"
	"outreach_backend/internal/email"
	"outreach_backend/internal/events"
	"outreach_backend/internal/flows"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/http/router"
	"outreach_backend/internal/leadintake"
	"outreach_backend/internal/leadintake/extract"
	"outreach_backend/internal/llm"
	"outreach_backend/internal/notify"
	"outreach_backend/internal/payload"
	"outreach_backend/internal/processor"
	"outreach_backend/internal/scheduler"
	"outreach_backend/internal/secrets"
	"outreach_backend/internal/store"
	"outreach_backend/internal/transfers"
	"outreach_backend/internal/trigger"
	"outreach_backend/platform/config"
	"outreach_backend/platform/db"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	st := store.New(pool)

	// API credentials resolve lazily and are memoized for the process
	secretsRes := secrets.NewMemo(secrets.EnvResolver{})

	// Payload defaults and pronunciation guide, bucket-backed when MinIO
	// is configured
	defaultsSrc, err := secrets.NewDefaultsSource(cfg, log)
	if err != nil {
		log.Error("failed to initialize config bucket source", "error", err)
		panic("failed to initialize config bucket source: " + err.Error())
	}
	factory := payload.NewFactory(
		defaultsSrc.Defaults(ctx),
		defaultsSrc.PronunciationGuide(ctx),
		cfg.GetCallWebhookURL(),
		cfg.GetTestCallWebhookURL(),
	)

	dialerClient := dialer.NewClient(cfg.GetDialerBaseURL(), secretsRes, cfg.GetDialerRatePerSecond(), log)
	analyzer := llm.NewOpenAI(secretsRes, log)
	extractor := extract.NewGemini(secretsRes, log)

	var sender email.Sender
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(cfg)
	} else {
		sender = email.NewNoopSender(log)
	}

	flowScheduler, closeScheduler := initFlowScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notify module subscribes to domain events (not HTTP-facing)
	notifyModule := notify.NewModule(st, sender, log)
	notifyModule.RegisterHandlers(eventBus)

	triggerModule := trigger.NewModule(st, factory, dialerClient, val, log)
	processorModule := processor.NewModule(st, analyzer, eventBus, log)
	leadintakeModule := leadintake.NewModule(st, extractor, eventBus, val, log)
	transfersModule := transfers.NewModule(st, val, log)

	modules := []apphttp.Module{
		triggerModule,
		processorModule,
		leadintakeModule,
		transfersModule,
	}
	if flowScheduler != nil {
		modules = append(modules, flows.NewModule(st, flowScheduler, val, log))
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules:  modules,
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initFlowScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.FlowCallScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; flow scheduling disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize flow scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
