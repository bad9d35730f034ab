package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"caja/internal/amqp"
	"caja/internal/backend"
	"caja/internal/cache"
	"caja/internal/config"
	"caja/internal/log"
	"caja/internal/notify"
	"caja/internal/queue"
	"caja/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentNotifier})
	log.SetDefault(logger)

	logger.Info("starting caja-notifier")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notifier")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := backend.NewStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer closeStore()

	sender, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer sender.Close()

	loc := cfg.Location()
	now := func() time.Time { return time.Now().In(loc) }

	// The notifier only reads; it still goes through the cache and an idle
	// committer so the service wiring matches the main binary.
	movements := cache.New(store, cfg.CacheTTL, now)
	committer := queue.New(store, cfg.QueueCapacity, cfg.QueueDelay)
	committer.Start(ctx)
	finance := services.New(movements, committer, nil, now)
	notifier := notify.New(finance, sender)

	scheduler := cron.New(cron.WithLocation(loc))

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"daily summary", cfg.DailySummaryCron, notifier.SendDailySummary},
		{"pending alert", cfg.PendingAlertCron, notifier.SendPendingAlert},
		{"projection", cfg.ProjectionCron, notifier.SendProjection},
	}
	for _, job := range jobs {
		job := job
		if _, err := scheduler.AddFunc(job.spec, func() {
			if err := job.run(ctx); err != nil {
				logger.ErrorContext(ctx, "notification job failed", "job", job.name, "error", err)
			}
		}); err != nil {
			logger.Error("invalid cron schedule", "job", job.name, "schedule", job.spec, "error", err)
			os.Exit(1)
		}
		logger.Info("scheduled notification", "job", job.name, "schedule", job.spec)
	}

	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("shutdown signal received", "signal", sig.String())
	cancel()

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("running jobs did not finish in time")
	}
	logger.Info("caja-notifier stopped")
}
