// Command seed upserts the product catalog file into Postgres.
//
// Usage: seed [catalog.yaml]
//
// The file defaults to CATALOG_PATH. Connection settings are the same
// environment variables the API reads.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dejobratic/storefront/internal/catalog"
	"github.com/dejobratic/storefront/internal/config"
	"github.com/dejobratic/storefront/internal/database"
	shoppostgres "github.com/dejobratic/storefront/internal/shop/adapters/postgres"
	"github.com/dejobratic/storefront/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := telemetry.NewLogger(telemetry.LoggerConfig{
		Level:   cfg.Telemetry.LogLevel,
		Format:  "text",
		Service: "storefront-seed",
	})
	if err != nil {
		slog.Error("failed to create logger", "error", err)
		os.Exit(1)
	}

	path := cfg.Shop.CatalogPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	items, err := catalog.LoadFile(path)
	if err != nil {
		logger.Error("failed to load catalog", "path", path, "error", err)
		os.Exit(1)
	}

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if _, err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	seeded, err := catalog.Seed(ctx, shoppostgres.NewStore(pool).Products(), items)
	if err != nil {
		logger.Error("seeding stopped", "seeded", seeded, "error", err)
		os.Exit(1)
	}

	logger.Info("catalog seeded", "path", path, "products", seeded)
}
