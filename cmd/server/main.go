package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ourfish-bknd/internal/config"
	"ourfish-bknd/internal/database"
	"ourfish-bknd/internal/logger"
	"ourfish-bknd/internal/routes"
	"ourfish-bknd/internal/services"
)

func main() {
	cfg := config.Load()
	logr := logger.New(cfg)
	defer logr.Sync()

	db, err := database.New(cfg)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.String("driver", cfg.DataDriver), zap.Error(err))
	}
	defer db.Close()

	// the dataset is read once; a failed load leaves nothing to serve
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DataLoadTimeout)
	snap, err := services.NewDatasetService(db, logr.Logger).Load(ctx)
	cancel()
	if err != nil {
		logr.Fatal("failed to load dataset", zap.Error(err))
	}
	if !snap.HasData {
		logr.Warn("dataset has no transactions; every table will be empty")
	}

	r := routes.NewRouter(db, snap, cfg, logr)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Info("server started", zap.String("port", cfg.Port), zap.Bool("auth", cfg.AuthEnabled))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Fatal("server forced to shutdown", zap.Error(err))
	}

	logr.Info("server exited gracefully")
}
