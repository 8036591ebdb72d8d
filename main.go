package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"todolist/internal/config"
	"todolist/internal/handlers"
	"todolist/internal/logging"
	"todolist/internal/store"
	"todolist/internal/todo"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "todolist.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "todolist: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// Configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	list, closeList, err := openList(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeList()

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handlers.NewRouter(handlers.New(list, logger)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", zap.String("addr", "http://localhost"+srv.Addr), zap.String("mode", cfg.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openList builds the list selected by cfg.Mode. The returned func
// releases the list and its store.
func openList(ctx context.Context, cfg config.Config, logger *zap.Logger) (todo.List, func(), error) {
	if cfg.Mode == config.ModeLocal {
		return todo.NewLocal(), func() {}, nil
	}

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s, err := store.NewSQLiteStore(cfg.Store.Path, store.WithLogger(logger.Named("store")))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	timeout, err := cfg.RequestTimeout()
	if err != nil {
		s.Close()
		return nil, nil, err
	}

	list := todo.NewSynced(s, cfg.Store.Collection,
		todo.WithLogger(logger.Named("todo")),
		todo.WithRequestTimeout(timeout))
	if err := list.Activate(ctx); err != nil {
		list.Close()
		s.Close()
		return nil, nil, err
	}

	return list, func() {
		list.Close()
		if err := s.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}, nil
}
