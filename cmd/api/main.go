package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/tamarLevanoni/couple-time-backend/api/routes"
	"github.com/tamarLevanoni/couple-time-backend/internal/auth"
	"github.com/tamarLevanoni/couple-time-backend/internal/centers"
	"github.com/tamarLevanoni/couple-time-backend/internal/games"
	"github.com/tamarLevanoni/couple-time-backend/internal/notifications"
	"github.com/tamarLevanoni/couple-time-backend/internal/rentals"
	"github.com/tamarLevanoni/couple-time-backend/internal/users"
	"github.com/tamarLevanoni/couple-time-backend/pkg/config"
	"github.com/tamarLevanoni/couple-time-backend/pkg/db"
	"github.com/tamarLevanoni/couple-time-backend/pkg/logger"
	"github.com/tamarLevanoni/couple-time-backend/pkg/migrate"
	"github.com/tamarLevanoni/couple-time-backend/pkg/outbox"
	"github.com/tamarLevanoni/couple-time-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	svcs, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, svcs),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Services, error) {
	gdb := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), logg)

	usersRepo := users.NewRepository(gdb)
	usersSvc, err := users.NewService(usersRepo, dbClient, outboxSvc, cfg.Password)
	if err != nil {
		return routes.Services{}, err
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		Tx:             dbClient,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, err
	}

	gamesSvc, err := games.NewService(games.NewRepository(gdb), dbClient, outboxSvc)
	if err != nil {
		return routes.Services{}, err
	}

	centersSvc, err := centers.NewService(centers.NewRepository(gdb), dbClient, outboxSvc)
	if err != nil {
		return routes.Services{}, err
	}

	rentalsSvc, err := rentals.NewService(
		rentals.NewRepository(gdb),
		games.NewInstanceStore(gdb),
		dbClient,
		outboxSvc,
		usersSvc,
		cfg.Rentals,
	)
	if err != nil {
		return routes.Services{}, err
	}

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(gdb))
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:          authSvc,
		Users:         usersSvc,
		Games:         gamesSvc,
		Centers:       centersSvc,
		Rentals:       rentalsSvc,
		Notifications: notificationsSvc,
	}, nil
}
