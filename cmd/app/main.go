package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/busbooking/api"
	"github.com/Domenick1991/busbooking/config"
	_ "github.com/Domenick1991/busbooking/docs"
	"github.com/Domenick1991/busbooking/internal/auth"
	"github.com/Domenick1991/busbooking/internal/bootstrap"
	"github.com/Domenick1991/busbooking/internal/cache"
	"github.com/Domenick1991/busbooking/internal/kafka"
	"github.com/Domenick1991/busbooking/internal/policy"
	"github.com/Domenick1991/busbooking/internal/service/account"
	"github.com/Domenick1991/busbooking/internal/service/allocator"
	"github.com/Domenick1991/busbooking/internal/service/booking"
	"github.com/Domenick1991/busbooking/internal/service/inventory"
	"github.com/spf13/pflag"
)

func main() {
	cfgPath := pflag.StringP("config", "c", envOr("CONFIG_PATH", "config.yaml"), "path to the YAML config file")
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

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := bootstrap.OpenStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	authz, err := policy.NewAuthorizer(ctx)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	var (
		listings    inventory.ListingCache
		invalidator booking.Cache
		revocations auth.RevocationStore = auth.NewMemoryRevocations()
	)
	if cfg.Redis.Enabled() {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.ListingTTL())
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		listings, invalidator, revocations = redisCache, redisCache, redisCache
	}

	inventoryOpts := []inventory.InventoryServiceOption{inventory.WithLogger(logger)}
	bookingOpts := []booking.BookingServiceOption{booking.WithLogger(logger)}
	if listings != nil {
		inventoryOpts = append(inventoryOpts, inventory.WithCache(listings))
		bookingOpts = append(bookingOpts, booking.WithCache(invalidator))
	}

	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			logger.Warn("kafka unreachable, booking events will be dropped", slog.Any("error", err))
		}
		bookingOpts = append(bookingOpts, booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic, cfg.Kafka.NotificationsTopic))
	}

	alloc := allocator.New(store.Inventory, store.Buses,
		allocator.WithStrictCapacity(cfg.Booking.StrictCapacity),
		allocator.WithLogger(logger),
	)
	inventoryService := inventory.NewInventoryService(store.Inventory, store.Buses, store.Schedules, store.Accounts, authz, inventoryOpts...)
	bookingService := booking.NewBookingService(store.Inventory, store.Bookings, store.Buses, store.Schedules, alloc, authz, bookingOpts...)
	accountService := account.NewAccountService(
		store.Accounts,
		auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL()),
		revocations,
		authz,
		account.WithLogger(logger),
	)

	router := api.NewRouter(api.RouterConfig{
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Swagger:     cfg.HTTP.Swagger,
		Logger:      logger,
		Ready:       store.Ready,
	}, accountService,
		api.NewAuthHandler(accountService),
		api.NewAccountHandler(accountService),
		api.NewBusHandler(inventoryService, alloc),
		api.NewScheduleHandler(inventoryService),
		api.NewBookingHandler(bookingService),
	)

	return bootstrap.NewServers(cfg, router, store.Ready, logger).Run(ctx, cfg.GRPC.Address)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
