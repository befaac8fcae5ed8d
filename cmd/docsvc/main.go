package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/snapdocs/config"
	"github.com/ErlanBelekov/snapdocs/internal/health"
	"github.com/ErlanBelekov/snapdocs/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/snapdocs/internal/infrastructure/redisstore"
	ctxlog "github.com/ErlanBelekov/snapdocs/internal/log"
	"github.com/ErlanBelekov/snapdocs/internal/metrics"
	"github.com/ErlanBelekov/snapdocs/internal/repository"
	"github.com/ErlanBelekov/snapdocs/internal/storage"
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

	logger := newLogger(cfg.Env, cfg.SlogLevel()).With("service", "docsvc")

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

	store, err := newStore(ctx, cfg)
	if err != nil {
		stop()
		log.Fatalf("storage: %v", err)
	}

	metrics.Register()
	checker := health.NewChecker(cfg.ServiceName+"-documents", cfg.Version, logger, prometheus.DefaultRegisterer).
		Add("postgres", pool).
		Add("storage", store)

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

	verifier, err := token.NewJWXVerifier(ctx, []byte(cfg.JWTSecret), cfg.JWTAlgorithm, cfg.JWKSURL, revocations)
	if err != nil {
		stop()
		log.Fatalf("token verifier: %v", err)
	}

	// Folders
	folderUsecase := usecase.NewFolderUsecase(postgres.NewFolderRepository(pool), logger)
	general, err := folderUsecase.EnsureDefault(ctx)
	if err != nil {
		stop()
		log.Fatalf("default folder: %v", err)
	}
	logger.Info("default folder ready", "folder_id", general.ID)

	// Documents
	documentUsecase := usecase.NewDocumentUsecase(
		postgres.NewDocumentRepository(pool),
		folderUsecase,
		store,
		cfg.MaxFileSize,
		cfg.AllowedExtensions,
		logger,
	)

	router := httptransport.NewDocumentRouter(
		logger,
		httptransport.RouterOptions{Service: "docsvc", CORSOrigins: cfg.CORSOrigins, HSTS: cfg.Env == "production"},
		handler.NewDocumentHandler(documentUsecase, cfg.PublicBaseURL, logger),
		handler.NewFolderHandler(folderUsecase, logger),
		handler.NewHealthHandler(checker),
		verifier,
		middleware.EnsureActiveUser(postgres.NewUserRepository(pool), logger),
	)

	srv := http.Server{
		Addr:              ":" + cfg.DocsPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.DocsMetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.DocsPort, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.DocsMetricsPort)
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

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	case "local":
		return storage.NewLocalStore(cfg.UploadDir)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
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
