package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/busbooking/config"
	"github.com/Domenick1991/busbooking/internal/bootstrap"
	"github.com/Domenick1991/busbooking/internal/email"
	"github.com/Domenick1991/busbooking/internal/kafka"
	"github.com/Domenick1991/busbooking/internal/service/allocator"
	"github.com/spf13/pflag"
)

func main() {
	cfgPath := pflag.StringP("config", "c", envOr("CONFIG_PATH", "config.yaml"), "path to the YAML config file")
	auditOnce := pflag.Bool("audit-once", false, "run a single counter audit and exit")
	pflag.Parse()

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := bootstrap.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenStore(ctx, cfg.Database)
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	alloc := allocator.New(store.Inventory, store.Buses, allocator.WithLogger(logger))
	if *auditOnce {
		audit(ctx, alloc, logger)
		return
	}

	if cfg.Kafka.Enabled() {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, logger)
		defer consumer.Close()

		sender := email.NewSender(store.Accounts, logger)
		go func() {
			if err := consumer.Consume(ctx, kafka.BookingEventHandler(logger, sender.Send)); err != nil {
				logger.Error("consumer stopped", slog.Any("error", err))
				stop()
			}
		}()
	} else {
		logger.Info("kafka not configured, notifications disabled")
	}

	ticker := time.NewTicker(cfg.Worker.AuditInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			audit(ctx, alloc, logger)
		case <-ctx.Done():
			logger.Info("worker shutting down")
			return
		}
	}
}

func audit(ctx context.Context, alloc *allocator.Allocator, logger *slog.Logger) {
	drifts, err := alloc.Audit(ctx)
	if err != nil {
		logger.Error("audit failed", slog.Any("error", err))
		return
	}
	logger.Info("audit finished", slog.Int("drifted_schedules", len(drifts)))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
