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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	adapthttp "todos/internal/adapter/http"
	"todos/internal/adapter/memory"
	"todos/internal/adapter/mongodb"
	"todos/internal/adapter/postgres"
	"todos/internal/app"
	"todos/internal/config"
	"todos/internal/domain"
	"todos/internal/logging"
)

// store is what the service needs from a persistence backend.
type store interface {
	domain.UserRepository
	domain.TodoRepository
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	log := logging.New("todos", level)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	log.Info("store ready", "store", cfg.Store)

	tokens := app.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	authSvc := app.NewAuthService(db, tokens, log)
	todoSvc := app.NewTodoService(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := adapthttp.New(authSvc, todoSvc, log, reg).
		WithHealthCheck(db.Ping).
		WithCORSOrigin(cfg.CORSOrigin)
	if cfg.AuthDisabled {
		log.Warn("authentication disabled; todos are shared by every caller")
		srv.WithoutAuth()
	}
	if cfg.OIDC.Enabled() {
		oidcCfg, err := adapthttp.NewOIDCConfig(ctx, cfg.OIDC)
		if err != nil {
			return err
		}
		srv.WithOIDC(oidcCfg)
		log.Info("sso enabled", "issuer", cfg.OIDC.IssuerURL)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (store, error) {
	switch cfg.Store {
	case config.StoreMongo:
		db, err := mongodb.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("open mongo: %w", err)
		}
		return db, nil
	case config.StorePostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	case config.StoreMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
