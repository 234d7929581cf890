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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/yukikurage/taskpick-api/internal/config"
	"github.com/yukikurage/taskpick-api/internal/database"
	"github.com/yukikurage/taskpick-api/internal/document"
	"github.com/yukikurage/taskpick-api/internal/logger"
	"github.com/yukikurage/taskpick-api/internal/repository"
	"github.com/yukikurage/taskpick-api/internal/router"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// loadConfig reads and validates configuration and installs the default logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log := logger.SetupDefault(os.Stdout, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)
	return cfg, log, nil
}

// openRepositories returns the repositories for the configured store driver.
func openRepositories(cfg *config.Config) (repository.UserRepository, repository.TaskRepository, func(), error) {
	if !cfg.UsesSQL() {
		store, err := document.NewStore(cfg.DocumentPath)
		if err != nil {
			return nil, nil, nil, err
		}
		slog.Info("using document store", "path", store.Path())
		return repository.NewDocumentUserRepository(store), repository.NewDocumentTaskRepository(store), func() {}, nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return repository.NewUserRepository(db), repository.NewTaskRepository(db), closeDB, nil
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	users, tasks, closeStore, err := openRepositories(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server, err := router.New(router.Dependencies{
		Config:   cfg,
		Users:    users,
		Tasks:    tasks,
		Registry: registry,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	defer server.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", srv.Addr, "store", cfg.StoreDriver, "auth_mode", cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
