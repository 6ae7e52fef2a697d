package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/vedthemaster/lexsy-frontend/config"
	"github.com/vedthemaster/lexsy-frontend/handler"
	"github.com/vedthemaster/lexsy-frontend/middleware"
	"github.com/vedthemaster/lexsy-frontend/model"
	"github.com/vedthemaster/lexsy-frontend/pkg/logger"
	"github.com/vedthemaster/lexsy-frontend/service"
	"github.com/vedthemaster/lexsy-frontend/web"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	configPath := os.Getenv("LEXSY_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = ""
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully", "path", configPath, "api_base_url", cfg.API.BaseURL)

	if cfg.Session.Secret == "" {
		// Tabs will not survive a restart.
		cfg.Session.Secret = uuid.NewString()
		slog.Warn("session.secret not set, using a random per-process secret")
	}

	if err := service.SetUnidocLicense(cfg.Unidoc.LicenseKey); err != nil {
		slog.Error("failed to set unidoc license", "error", err)
		os.Exit(1)
	}

	artifacts, err := newArtifactCache(cfg)
	if err != nil {
		slog.Error("failed to initialize artifact cache", "backend", cfg.Preview.Backend, "error", err)
		os.Exit(1)
	}

	defaultVariant, err := model.ParseVariant(cfg.API.DefaultVariant)
	if err != nil {
		slog.Error("invalid api.default_variant", "error", err)
		os.Exit(1)
	}

	apiClient := service.NewAPIClient(&cfg.API)
	registry := service.NewSessionRegistry(service.SessionDeps{
		API:       apiClient,
		Artifacts: artifacts,
		Converter: service.NewDocxConverter(),
	}, &cfg.Session)

	uploadHandler := handler.NewUploadHandler(service.NewUploadFlow(apiClient))
	conversationHandler := handler.NewConversationHandler(registry, apiClient)
	handler.RegisterValidators()

	tmpl, err := web.Templates()
	if err != nil {
		slog.Error("failed to parse templates", "error", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.SetHTMLTemplate(tmpl)

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.NoStore())
	router.Use(middleware.RateLimit(&cfg.RateLimit))

	router.StaticFS("/static", web.Static())
	router.GET("/health", handler.Health)
	router.NoRoute(handler.NotFound)

	pages := router.Group("/")
	pages.Use(middleware.TabSession(&cfg.Session, defaultVariant))
	handler.Routes(pages, uploadHandler, conversationHandler)

	// Generate can take a while for large documents, hence the long write timeout.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "preview_backend", cfg.Preview.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

func newArtifactCache(cfg *config.Config) (service.ArtifactCache, error) {
	ttl := time.Duration(cfg.Session.TTLHours) * time.Hour

	switch cfg.Preview.Backend {
	case "minio":
		minioCache, err := service.NewMinioArtifactCache(&cfg.Minio)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := minioCache.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		slog.Info("artifact cache ready", "backend", "minio", "bucket", cfg.Minio.Bucket, "prefix", cfg.Minio.Prefix)
		return minioCache, nil
	default:
		slog.Info("artifact cache ready", "backend", "memory", "ttl", ttl)
		return service.NewMemoryArtifactCache(ttl), nil
	}
}
