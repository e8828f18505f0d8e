package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/chatter/internal/config"
	"github.com/iudanet/chatter/internal/crypto"
	"github.com/iudanet/chatter/internal/logging"
	"github.com/iudanet/chatter/internal/server"
	"github.com/iudanet/chatter/internal/server/auth"
	"github.com/iudanet/chatter/internal/server/middleware"
	"github.com/iudanet/chatter/internal/server/storage"
	"github.com/iudanet/chatter/internal/server/storage/redisstore"
	"github.com/iudanet/chatter/internal/server/storage/sqlstore"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML/JSON config file")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "chatter: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlstore.Open(ctx, sqlstore.Dialect(cfg.Database.Driver), cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()
	logger.Info("storage ready", slog.String("driver", cfg.Database.Driver))

	var sessions storage.SessionStorage = store
	if cfg.Sessions.Backend == "redis" {
		rdb, err := redisstore.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error("failed to close redis", slog.Any("error", err))
			}
		}()
		sessions = redisstore.NewSessionStore(rdb)
		logger.Info("sessions stored in redis", slog.String("addr", cfg.Redis.Addr))
	}

	keys, err := tokenKeyring(cfg.Auth, logger)
	if err != nil {
		return err
	}

	svc := auth.NewService(store, sessions, store, auth.Config{
		Keys:           keys,
		AdminUsernames: cfg.Auth.AdminUsernames,
		SessionTTL:     cfg.Auth.SessionTTL,
	}, logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, logger)
	defer limiter.Stop()

	go svc.Sessions().RunJanitor(ctx, cfg.Auth.CleanupInterval)

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: server.NewRouter(server.Deps{
			Logger:  logger,
			Service: svc,
			Store:   store,
			Limiter: limiter,
			Version: Version,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errC := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", cfg.HTTP.Addr), slog.String("version", Version))
		errC <- srv.ListenAndServe()
	}()

	select {
	case err := <-errC:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// tokenKeyring builds the token digest keyring. Without configured keys a
// random key is used and every session dies with the process.
func tokenKeyring(cfg config.AuthConfig, logger *slog.Logger) (*crypto.Keyring, error) {
	if len(cfg.TokenKeys) == 0 {
		logger.Warn("AUTH_TOKEN_KEYS is not set, using an ephemeral key: sessions will not survive a restart")
		return crypto.NewEphemeralKeyring()
	}
	keys, err := crypto.NewKeyring(cfg.TokenKeyBytes()...)
	if err != nil {
		return nil, fmt.Errorf("token keys: %w", err)
	}
	return keys, nil
}

func printVersion() {
	fmt.Printf("Chatter Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
