package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"outreach_backend/internal/dialer"
	"outreach_backend/internal/payload"
	"outreach_backend/internal/scheduler"
	"outreach_backend/internal/secrets"
	"outreach_backend/internal/store"
	triggerservice "outreach_backend/internal/trigger/service"
	"outreach_backend/platform/config"
	"outreach_backend/platform/db"
	"outreach_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	st := store.New(pool)
	secretsRes := secrets.NewMemo(secrets.EnvResolver{})

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
	triggerSvc := triggerservice.New(st, factory, dialerClient, log)

	worker, err := scheduler.NewWorker(cfg, triggerSvc, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	log.Info("scheduler worker listening", "queue", cfg.GetAsynqQueue())
	worker.Run(ctx)
	log.Info("scheduler worker stopped")
}
