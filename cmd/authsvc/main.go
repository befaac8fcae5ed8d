package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/snapdocs/config"
	"github.com/ErlanBelekov/snapdocs/internal/credentials"
	"github.com/ErlanBelekov/snapdocs/internal/email"
	"github.com/ErlanBelekov/snapdocs/internal/health"
	"github.com/ErlanBelekov/snapdocs/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/snapdocs/internal/infrastructure/redisstore"
	ctxlog "github.com/ErlanBelekov/snapdocs/internal/log"
	"github.com/ErlanBelekov/snapdocs/internal/metrics"
	"github.com/ErlanBelekov/snapdocs/internal/repository"
	"github.com/ErlanBelekov/snapdocs/internal/scheduler"
	"github.com/ErlanBelekov/snapdocs/internal/token"
	httptransport "github.com/ErlanBelekov/snapdocs/internal/transport/http"
	"github.com/ErlanBelekov/snapdocs/internal/transport/http/handler"
	"github.com/ErlanBelekov/snapdocs/internal/transport/http/middleware"
	"github.com/ErlanBelekov/snapdocs/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel()).With("service", "authsvc")

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := postgres.Migrate(ctx, pool); err != nil {
			stop()
			log.Fatalf("migrate: %v", err)
		}
		logger.Info("migrations applied")
	}

	metrics.Register()
	checker := health.NewChecker(cfg.ServiceName+"-auth", cfg.Version, logger, prometheus.DefaultRegisterer).
		Add("postgres", pool)

	// Users and revocations
	userRepo := postgres.NewUserRepository(pool)
	var revocations repository.RevocationRepository = postgres.NewRevocationRepository(pool)
	if cfg.RedisAddr != "" {
		client, err := redisstore.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			stop()
			log.Fatalf("redis: %v", err)
		}
		defer client.Close()
		cache := redisstore.NewRevocationCache(revocations, client, logger)
		checker.Add("redis", cache)
		revocations = cache
	}

	tokens, err := token.NewManager([]byte(cfg.JWTSecret), cfg.JWTAlgorithm, cfg.TokenTTL)
	if err != nil {
		stop()
		log.Fatalf("token manager: %v", err)
	}

	authUsecase := usecase.NewAuthUsecase(
		userRepo,
		revocations,
		tokens,
		credentials.NewHasher(cfg.BcryptCost),
		email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger),
		logger,
	)

	purger, err := scheduler.NewRevocationPurger(revocations, cfg.RevocationPurgeCron, logger)
	if err != nil {
		stop()
		log.Fatalf("purger: %v", err)
	}
	go purger.Start(ctx)

	router := httptransport.NewAuthRouter(
		logger,
		httptransport.RouterOptions{Service: "authsvc", CORSOrigins: cfg.CORSOrigins, HSTS: cfg.Env == "production"},
		handler.NewAuthHandler(authUsecase, logger),
		handler.NewHealthHandler(checker),
		middleware.VerifierFunc(authUsecase.Authenticate),
	)

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
