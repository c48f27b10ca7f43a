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

	"github.com/dejobratic/storefront/internal/cache"
	"github.com/dejobratic/storefront/internal/catalog"
	"github.com/dejobratic/storefront/internal/config"
	"github.com/dejobratic/storefront/internal/database"
	idemmemory "github.com/dejobratic/storefront/internal/idempotency/memory"
	idempostgres "github.com/dejobratic/storefront/internal/idempotency/postgres"
	"github.com/dejobratic/storefront/internal/kafka"
	"github.com/dejobratic/storefront/internal/shop/adapters"
	httpadapter "github.com/dejobratic/storefront/internal/shop/adapters/http"
	"github.com/dejobratic/storefront/internal/shop/adapters/memory"
	shoppostgres "github.com/dejobratic/storefront/internal/shop/adapters/postgres"
	"github.com/dejobratic/storefront/internal/shop/app"
	shopmetrics "github.com/dejobratic/storefront/internal/shop/metrics"
	"github.com/dejobratic/storefront/internal/shop/ports"
	"github.com/dejobratic/storefront/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

const (
	meterName     = "github.com/dejobratic/storefront"
	purgeInterval = 10 * time.Minute
)

type purger interface {
	Purge(ctx context.Context) (int64, error)
}

type idempotencyStore interface {
	ports.IdempotencyStore
	purger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := telemetry.NewLogger(telemetry.LoggerConfig{
		Level:   cfg.Telemetry.LogLevel,
		Format:  cfg.Telemetry.LogFormat,
		Service: cfg.Service.Name,
	})
	if err != nil {
		slog.Error("failed to create logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("storefront api stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing && cfg.Telemetry.OTelEndpoint != "",
		EnableMetrics:  cfg.Telemetry.EnableMetrics && cfg.Telemetry.OTelEndpoint != "",
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	meter := tel.Meter(meterName)
	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return err
	}
	shopMetrics, err := shopmetrics.NewMetrics(meter)
	if err != nil {
		return err
	}
	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		return err
	}
	kafkaMetrics, err := kafka.NewMetrics(meter)
	if err != nil {
		return err
	}

	var (
		transactor ports.Transactor
		products   ports.ProductCatalog
		orders     ports.OrderStore
		idemStore  idempotencyStore
		readiness  []httpadapter.ReadinessCheck
	)

	switch cfg.Shop.Storage {
	case config.StoragePostgres:
		pool, err := database.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("create database pool: %w", err)
		}
		defer pool.Close()

		if cfg.Database.AutoMigrate {
			version, err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath)
			if err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			logger.Info("migrations applied", "path", cfg.Database.MigrationsPath, "version", version)
		}

		store := shoppostgres.NewStore(pool)
		transactor, products, orders = store, store.Products(), store.Orders()
		idemStore = idempostgres.NewStore(pool, cfg.Shop.IdempotencyTTL)
		readiness = append(readiness, httpadapter.ReadinessCheck{
			Name:  "database",
			Check: func(ctx context.Context) error { return database.CheckHealth(ctx, pool) },
		})

	case config.StorageMemory:
		store := memory.NewStore()
		items, err := catalog.LoadFile(cfg.Shop.CatalogPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		seeded, err := catalog.Seed(ctx, store.Products(), items)
		if err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		logger.Info("in-memory catalog seeded", "products", seeded, "path", cfg.Shop.CatalogPath)

		transactor, products, orders = store, store.Products(), store.Orders()
		idemStore = idemmemory.NewStore(cfg.Shop.IdempotencyTTL)
	}

	var cartCache ports.CartCache = cache.NoopCache{}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = client.Close() }()

		redisCache := cache.NewRedisCache(client, cfg.Redis.CartTTL)
		cartCache = redisCache
		readiness = append(readiness, httpadapter.ReadinessCheck{Name: "redis", Check: redisCache.Ping})
		logger.Info("cart cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CartTTL)
	}

	var events ports.EventBus = kafka.NewNoopEventBus(logger)
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewPublisher(
			kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic),
			kafka.PublisherConfig{Topic: cfg.Kafka.Topic, BreakerTimeout: cfg.Kafka.BreakerTimeout},
			logger,
		)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("kafka writer close failed", "error", err)
			}
		}()
		events = publisher
		logger.Info("event publishing enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	service := app.NewService(app.Dependencies{
		Transactor:  adapters.NewObservableTransactor(transactor, dbMetrics),
		Products:    adapters.NewObservableProductCatalog(products, dbMetrics),
		Orders:      adapters.NewObservableOrderStore(orders, dbMetrics),
		Cache:       cartCache,
		Events:      adapters.NewObservableEventBus(events, cfg.Kafka.Topic, kafkaMetrics),
		Idempotency: idemStore,
		Logger:      logger,
		Metrics:     shopMetrics,
	})

	go purgeIdempotencyKeys(ctx, idemStore, logger)

	router := httpadapter.NewRouter(httpadapter.NewHandler(service, logger), httpadapter.RouterConfig{
		Logger:         logger,
		Metrics:        httpMetrics,
		DefaultUserID:  cfg.HTTP.DefaultUserID,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Readiness:      readiness,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "port", cfg.HTTP.Port, "storage", cfg.Shop.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

func purgeIdempotencyKeys(ctx context.Context, store purger, logger *slog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.Purge(ctx)
			if err != nil {
				logger.WarnContext(ctx, "idempotency purge failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.DebugContext(ctx, "expired idempotency keys purged", "removed", removed)
			}
		}
	}
}
