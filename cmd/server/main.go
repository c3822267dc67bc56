package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jumjum/backend/internal/cache"
	"jumjum/backend/internal/config"
	"jumjum/backend/internal/httpapi"
	"jumjum/backend/internal/logging"
	"jumjum/backend/internal/messaging"
	"jumjum/backend/internal/service"
	"jumjum/backend/internal/store"
	"jumjum/backend/internal/store/memory"
	pgstore "jumjum/backend/internal/store/postgres"
)

const serviceName = "jumjum-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(serviceName, cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Error("invalid security configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 3)
	seedUsers := false

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL, cfg.Tables)
		if err != nil {
			logger.Error("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", slog.Any("error", err))
			os.Exit(1)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("postgres schema setup failed", slog.Any("error", err))
			os.Exit(1)
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("repository ready", slog.String("action", "startup"), slog.String("repository", "postgres"))
	} else {
		repo = memory.NewSeeded()
		seedUsers = true
		logger.Info("repository ready", slog.String("action", "startup"), slog.String("repository", "memory"))
	}

	statsCache := cache.StatsCache(cache.NoopStatsCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisStatsCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, stats are computed on every request", slog.Any("error", err))
		} else {
			statsCache = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info("stats cache ready", slog.String("action", "startup"), slog.String("cache", "redis"))
		}
	}

	kitchen := messaging.KitchenPublisher(messaging.NoopKitchenPublisher{})
	if cfg.RabbitMQURL != "" {
		publisher, err := messaging.NewAMQPPublisher(cfg.RabbitMQURL, cfg.KitchenExchange, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable, kitchen orders are not published", slog.Any("error", err))
		} else {
			kitchen = publisher
			closers = append(closers, publisher.Close)
			logger.Info("kitchen publisher ready", slog.String("action", "startup"), slog.String("exchange", cfg.KitchenExchange))
		}
	}

	catalog := service.NewCatalog(repo, logger)
	billing := service.NewBilling(repo, catalog, service.BillingOptions{
		TaxRatePercent: cfg.TaxRatePercent,
		Location:       cfg.Location,
		StatsCache:     statsCache,
		StatsTTL:       cfg.StatsCacheTTL(),
		Kitchen:        kitchen,
		Logger:         logger,
	})
	identity := service.NewIdentity(repo, cfg.PasswordScheme, service.SeedPasswords{
		Bar:     cfg.SeedBarPassword,
		Kitchen: cfg.SeedKitchenPassword,
		Admin:   cfg.SeedAdminPassword,
	}, logger)

	if seedUsers {
		if _, err := identity.SeedDefaultUsers(ctx); err != nil {
			logger.Warn("default user seeding failed", slog.Any("error", err))
		}
	}

	api := httpapi.New(httpapi.Services{
		Catalog:   catalog,
		Billing:   billing,
		Inventory: service.NewInventory(repo, logger),
		Identity:  identity,
	}, httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL()), httpapi.Options{
		AllowedOrigin:        cfg.AllowedOrigin,
		Location:             cfg.Location,
		ExposeInternalErrors: cfg.ExposeInternalErrors,
		Logger:               logger,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", slog.String("action", "startup"), slog.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn("close error", slog.Any("error", err))
		}
	}

	logger.Info("server stopped", slog.String("action", "shutdown"))
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
