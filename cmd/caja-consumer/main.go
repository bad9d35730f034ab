package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"caja/internal/amqp"
	"caja/internal/config"
	"caja/internal/log"
)

// caja-consumer drains the notification queue and prints each message to
// the terminal. It is the delivery endpoint when no chat integration is
// deployed, and a debugging tap otherwise.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentAMQP})
	log.SetDefault(logger)

	logger.Info("starting caja-consumer")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the consumer")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	err = client.Consume(ctx, func(n *amqp.Notification) error {
		fmt.Printf("[%s] %s\n%s\n\n", n.Timestamp.Format("02/01 15:04"), n.Title, n.Body)
		return nil
	})
	if err != nil && err != context.Canceled {
		logger.Error("consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("caja-consumer stopped")
}
