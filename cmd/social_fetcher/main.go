package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"memecoin_tracker/internal/app/service"
	"memecoin_tracker/internal/client"
	"memecoin_tracker/internal/config"
	"memecoin_tracker/internal/infrastructure/httpclient"
	"memecoin_tracker/internal/infrastructure/storage"
	"memecoin_tracker/internal/pkg/logger"
	"memecoin_tracker/internal/pkg/metrics"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	os.Exit(run())
}

func run() int {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	cfgPath := config.Path()
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logrus.Errorf("Failed to load configuration: %v", err)
		return 1
	}
	if !cfg.Social.HasCredentials() {
		logrus.Errorf("Missing social search credentials: set %s and %s", config.EnvRapidAPIKey, config.EnvRapidAPIHost)
		return 1
	}

	zapLogger, err := logger.New(cfg.Logging)
	if err != nil {
		logrus.Errorf("Failed to initialize zap logger: %v", err)
		return 1
	}
	defer zapLogger.Sync()
	zapLogger.Info("Configuration loaded", zap.String("path", cfgPath))

	metrics.MustRegisterMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Every attempt, retries included, goes through the limiter.
	limiter := rate.NewLimiter(rate.Every(cfg.Social.RequestInterval()), 1)
	fetcher := httpclient.NewFetcher("social", zapLogger,
		httpclient.WithLimiter(limiter),
		httpclient.WithRetryPolicy(httpclient.RetryPolicy{
			MaxRetries: cfg.Social.MaxRetries,
			BaseDelay:  cfg.Social.BaseDelay(),
			MaxDelay:   cfg.Social.MaxDelay(),
		}),
		httpclient.WithTimeout(cfg.Social.RequestTimeout()),
	)
	search := client.NewSocialSearchClient(fetcher, cfg.Social, zapLogger)
	store := storage.NewJSONStore(cfg.Storage, logger.NewSlogAdapter(nil))

	svc := service.NewSocialService(search, store, cfg.Social.RequestInterval(), zapLogger)
	report, err := svc.Run(ctx)
	exitCode := 0
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		zapLogger.Warn("Social search canceled", zap.String("runID", report.RunID))
	default:
		zapLogger.Error("Social search run failed", zap.String("runID", report.RunID), zap.Error(err))
		exitCode = 1
	}

	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		zapLogger.Warn("Failed to write metrics textfile", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
	}
	return exitCode
}
