package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"omip-benchmark/internal/analysis"
	"omip-benchmark/internal/api"
	"omip-benchmark/internal/api/handlers"
	"omip-benchmark/internal/auth"
	"omip-benchmark/internal/cache"
	"omip-benchmark/internal/config"
	"omip-benchmark/internal/emailcheck"
	"omip-benchmark/internal/ingest"
	"omip-benchmark/internal/leads"
	"omip-benchmark/internal/logger"
	"omip-benchmark/internal/metrics"
	"omip-benchmark/internal/notify"
	"omip-benchmark/internal/settings"
	"omip-benchmark/internal/simulation"
	"omip-benchmark/internal/store"
)

// referenceCache is implemented by both the in-process and the Redis cache.
type referenceCache interface {
	analysis.Cache
	ingest.Invalidator
	Close() error
}

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := store.Open(cfg.DB)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = store.Close(db) }()

	if cfg.DB.AutoMigrate {
		if err := store.AutoMigrate(db); err != nil {
			zl.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	st := store.New(db.Gorm)

	refCache, err := openCache(cfg, zl)
	if err != nil {
		zl.Fatal("failed to connect to redis", zap.Error(err))
	}
	if refCache != nil {
		defer refCache.Close()
	}

	m := metrics.New()
	fallback := cfg.Adjustments.Fallback.ToModel()

	calcOpts := []analysis.Option{
		analysis.WithRecorder(m),
		analysis.WithLogger(zl),
		analysis.WithMaxMonths(cfg.Reference.MaxMonths),
	}
	var invalidator ingest.Invalidator
	if refCache != nil {
		calcOpts = append(calcOpts, analysis.WithCache(refCache))
		invalidator = refCache
	}
	calc := analysis.NewCalculator(st, st, fallback, calcOpts...)

	if cfg.Auth.JWTSecret == "" {
		zl.Warn("auth.jwt_secret is empty; email confirmation is disabled")
	}
	if cfg.Admin.Key == "" {
		zl.Warn("admin.key is empty; admin routes will reject every request")
	}
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.ConfirmTTL, cfg.Auth.SessionTTL)

	var mailer notify.Mailer = notify.NewLog(zl)
	if cfg.Email.SendGridAPIKey != "" {
		mailer = notify.NewSendGrid(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Email.FromName)
	}

	router := api.NewRouter(api.Deps{
		Store:       st,
		Importer:    ingest.NewImporter(st, invalidator, m, zl),
		Calculator:  calc,
		Settings:    settings.NewService(st, fallback, zl),
		Simulations: simulation.NewService(st, calc, m, zl),
		Leads:       leads.NewService(st, tokens, mailer, cfg.App.Origin, m, zl),
		EmailCheck:  emailcheck.New(cfg.EmailCheck.BaseURL, cfg.EmailCheck.APIKey, cfg.EmailCheck.Timeout, zl),
		Tokens:      tokens,
		Metrics:     m,
		Log:         zl,
		AdminKey:    cfg.Admin.Key,
		Cookie: handlers.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Auth.CookieSecure,
		},
		MaxUploadBytes: cfg.Import.MaxUploadBytes,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	if !cfg.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		zl.Info("starting API server",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Env),
			zap.Bool("redis_cache", cfg.Redis.URL != ""),
			zap.Bool("sendgrid", mailer.Delivers()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
	}
}

// openCache returns nil when caching is disabled. Redis is used when a URL is
// configured so that replicas share invalidations.
func openCache(cfg config.Config, zl *zap.Logger) (referenceCache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	if cfg.Redis.URL != "" {
		return cache.NewRedis(cfg.Redis.URL, cfg.Redis.KeyPrefix, cfg.Cache.TTL, zl)
	}
	return cache.NewMemory(cfg.Cache.TTL), nil
}
