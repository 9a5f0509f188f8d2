// Command snapshot copies the dataset from Postgres into a SQLite file so the
// dashboard can run offline with DATA_DRIVER=sqlite.
package main

import (
	"context"
	"flag"

	"go.uber.org/zap"

	"ourfish-bknd/internal/config"
	"ourfish-bknd/internal/database"
	"ourfish-bknd/internal/logger"
	"ourfish-bknd/internal/services"
)

func main() {
	cfg := config.Load()
	out := flag.String("out", cfg.SQLitePath, "SQLite file to write")
	flag.Parse()

	logr := logger.New(cfg)
	defer logr.Sync()

	src, err := database.NewPostgres(cfg.DatabaseURL, cfg)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer src.Close()

	dst, err := database.NewSQLite(*out, cfg)
	if err != nil {
		logr.Fatal("failed to open sqlite", zap.Error(err))
	}
	defer dst.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DataLoadTimeout)
	defer cancel()

	tables, err := services.NewDatasetService(src, logr.Logger).Tables(ctx)
	if err != nil {
		logr.Fatal("failed to read dataset", zap.Error(err))
	}

	target := services.NewDatasetService(dst, logr.Logger)
	if err := target.CreateSchema(ctx); err != nil {
		logr.Fatal("failed to create schema", zap.Error(err))
	}
	if err := target.Seed(ctx, tables); err != nil {
		logr.Fatal("failed to write dataset", zap.Error(err))
	}

	logr.Info("snapshot written",
		zap.String("path", *out),
		zap.Int("transactions", len(tables.Transactions)),
	)
}
