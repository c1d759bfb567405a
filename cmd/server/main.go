package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ayush/daybook/internal/auth"
	"github.com/ayush/daybook/internal/config"
	"github.com/ayush/daybook/internal/log"
	"github.com/ayush/daybook/internal/reports"
	"github.com/ayush/daybook/internal/server"
	"github.com/ayush/daybook/internal/store"
)

func main() {
	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", log.FieldError, err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx := context.Background()
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// ── Entity storage ───────────────────────────────────────
	st, err := store.Open(ctx, store.Options{
		Backend:     cfg.StorageBackend,
		SQLitePath:  cfg.SQLiteDBPath,
		PostgresDSN: cfg.PostgresDSN,
		MongoURI:    cfg.MongoURI,
		MongoDB:     cfg.MongoDB,
	})
	if err != nil {
		return err
	}
	defer st.Close()
	logger.WithComponent(log.ComponentStorage).Info("storage ready", log.FieldBackend, cfg.StorageBackend)

	// ── Sessions ─────────────────────────────────────────────
	var sessions auth.SessionStore
	switch cfg.SessionBackend {
	case "redis":
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, 0)
		if err != nil {
			return err
		}
		defer rdb.Close()
		sessions = auth.NewRedisSessionStore(rdb, cfg.SessionTTL)
	default:
		sessions = auth.NewMemorySessionStore(cfg.SessionTTL)
	}
	logger.WithComponent(log.ComponentAuth).Info("sessions ready", log.FieldBackend, cfg.SessionBackend)

	// ── Export archive ───────────────────────────────────────
	var objects reports.ObjectStore
	switch cfg.ExportBackend {
	case "minio":
		objects, err = store.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return err
		}
	default:
		objects = store.NewMemoryObjectStore()
	}
	logger.WithComponent(log.ComponentReports).Info("export archive ready", log.FieldBackend, cfg.ExportBackend)

	authService := auth.NewService(st.Users, sessions, auth.NewPasswordHasher(cfg.BcryptCost))
	if cfg.SeedDemoUser {
		if _, created, err := authService.SeedDemoUser(ctx); err != nil {
			return err
		} else if created {
			logger.WithComponent(log.ComponentAuth).Info("demo user created", "username", auth.DemoUsername)
		}
	}

	router := server.NewRouter(server.Deps{
		Store:       st,
		Auth:        authService,
		Objects:     objects,
		Logger:      logger,
		Cookie:      auth.CookieOptions{Secure: cfg.SecureCookie, TTL: cfg.SessionTTL},
		CORSOrigins: cfg.CORSAllowedOrigins,
		Location:    loc,
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	logger.Info("shutting down", log.FieldOperation, log.OpShutdown)
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
