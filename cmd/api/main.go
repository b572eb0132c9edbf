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

	"github.com/go-signup-verify/internal/config"
	"github.com/go-signup-verify/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-signup-verify/internal/infrastructure/jwt"
	mongostore "github.com/go-signup-verify/internal/infrastructure/mongo"
	"github.com/go-signup-verify/internal/infrastructure/smtp"
	"github.com/go-signup-verify/internal/observability"
	transporthttp "github.com/go-signup-verify/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("credential store unavailable", "backend", cfg.StoreBackend, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	tokens, err := jwtinfra.NewProvider(cfg.Token)
	if err != nil {
		slog.Error("token provider unavailable", "err", err)
		os.Exit(1)
	}

	deps := &transporthttp.Deps{
		UserRepo:      store,
		TokenProvider: tokens,
		Mailer:        smtp.NewMailer(cfg.SMTP),
		Renderer:      smtp.NewRenderer(),
		Metrics:       observability.NewMetrics(),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	slog.Info("server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if !cfg.IsProduction() {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// openStore connects the configured credential store and ensures its tables
// or indexes exist.
func openStore(ctx context.Context, cfg *config.Config) (transporthttp.UserRepository, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreMongo:
		client, err := mongostore.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(dctx); err != nil {
				slog.Warn("mongo disconnect failed", "err", err)
			}
		}
		db := client.Database(cfg.MongoDatabase)
		if err := mongostore.Bootstrap(ctx, db); err != nil {
			closeFn()
			return nil, nil, err
		}
		return mongostore.NewUserRepo(db), closeFn, nil
	default:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return dynamo.NewUserRepo(client, cfg.DynamoTables.Users, cfg.DynamoTables.UserUniques), func() {}, nil
	}
}
