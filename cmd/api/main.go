package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/storefront-api/internal/application/currency"
	"github.com/storefront-api/internal/application/otp"
	"github.com/storefront-api/internal/config"
	"github.com/storefront-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/storefront-api/internal/infrastructure/jwt"
	"github.com/storefront-api/internal/infrastructure/memory"
	"github.com/storefront-api/internal/infrastructure/metrics"
	redisstore "github.com/storefront-api/internal/infrastructure/redis"
	s3infra "github.com/storefront-api/internal/infrastructure/s3"
	"github.com/storefront-api/internal/infrastructure/smtp"
	"github.com/storefront-api/internal/infrastructure/sns"
	"github.com/storefront-api/internal/pkg/logger"
	transporthttp "github.com/storefront-api/internal/transport/http"
	"go.uber.org/zap"
)

const (
	startupTimeout     = 15 * time.Second
	shutdownTimeout    = 10 * time.Second
	preferenceLifetime = 365 * 24 * time.Hour
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	if envErr != nil {
		zl.Info("no .env file found, reading from environment")
	}

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	otpStore, err := newOTPStore(ctx, cfg, zl)
	if err != nil {
		return err
	}

	// JWT provider (optional: without keys no second-factor token is issued).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		zl.Warn("JWT provider not available", zap.Error(err))
	}

	var smsSender otp.SMSSender
	if cfg.SMSEnabled {
		client, err := sns.NewClient(ctx, cfg)
		if err != nil {
			zl.Warn("SNS sender not available", zap.Error(err))
		} else {
			smsSender = sns.NewSender(client, cfg.SMSSenderID)
		}
	}

	deps := &transporthttp.Deps{
		OTPStore:    otpStore,
		Mailer:      smtp.NewMailer(cfg),
		SMSSender:   smsSender,
		JWTProvider: jwtProvider,
		Preferences: newPreferenceStore(ctx, cfg, zl),
		Catalog:     newCatalog(ctx, cfg, zl),
		Logger:      zl,
		Metrics:     metrics.New(reg),
		Gatherer:    reg,
	}

	router, stopRouter := transporthttp.NewRouter(cfg, deps)
	defer stopRouter()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("port", cfg.AppPort), zap.String("otp_store", cfg.OTPStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		zl.Info("shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	zl.Info("server stopped")
	return nil
}

func newOTPStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) (otp.Store, error) {
	if cfg.OTPStore == "memory" {
		zl.Warn("OTP sessions are kept in process memory")
		return memory.NewOTPStore(), nil
	}
	client, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Creates the table if it doesn't exist.
	dynamo.Bootstrap(ctx, client, cfg.DynamoTables, zl)
	return dynamo.NewOTPRepo(client, cfg.DynamoTables.OTPVerifications, zl.Named("dynamo")), nil
}

func newPreferenceStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) currency.PreferenceStore {
	if cfg.RedisAddr == "" {
		return memory.NewPreferenceStore()
	}
	client, err := redisstore.NewClient(ctx, cfg)
	if err != nil {
		zl.Warn("redis unavailable, keeping currency preferences in memory", zap.Error(err))
		return memory.NewPreferenceStore()
	}
	return redisstore.NewPreferenceStore(client, "", preferenceLifetime)
}

func newCatalog(ctx context.Context, cfg *config.Config, zl *zap.Logger) *currency.Catalog {
	if cfg.CurrencyRatesBucket == "" {
		return currency.NewCatalog(nil)
	}
	client, err := s3infra.NewClient(ctx, cfg)
	if err != nil {
		zl.Warn("S3 client not available, using built-in exchange rates", zap.Error(err))
		return currency.NewCatalog(nil)
	}
	src := s3infra.NewRateSource(client, cfg.CurrencyRatesBucket, cfg.CurrencyRatesKey)
	return currency.LoadCatalog(ctx, src, zl)
}
