package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"memecoin_tracker/internal/app/port"
	"memecoin_tracker/internal/app/service"
	"memecoin_tracker/internal/client"
	"memecoin_tracker/internal/config"
	"memecoin_tracker/internal/infrastructure/httpclient"
	"memecoin_tracker/internal/infrastructure/imageloader"
	"memecoin_tracker/internal/infrastructure/ratelimit"
	"memecoin_tracker/internal/infrastructure/storage"
	"memecoin_tracker/internal/pkg/logger"
	"memecoin_tracker/internal/pkg/metrics"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
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

	limiter := ratelimit.NewWindowLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window())
	fetcher := httpclient.NewFetcher("coingecko", zapLogger,
		httpclient.WithLimiter(limiter),
		httpclient.WithRetryPolicy(httpclient.RetryPolicy{
			MaxRetries: cfg.RateLimit.MaxRetries,
			BaseDelay:  cfg.RateLimit.BaseDelay(),
			MaxDelay:   cfg.RateLimit.MaxDelay(),
		}),
		httpclient.WithTimeout(cfg.CoinGecko.RequestTimeout()),
	)
	if cfg.CoinGecko.ApiKey == "" {
		zapLogger.Warn("No CoinGecko API key configured, using the public rate limits")
	}
	market := client.NewCoinGeckoClient(fetcher, cfg.CoinGecko, zapLogger)

	var images port.ImageResolver
	if !cfg.Refresh.SkipImages {
		images = imageloader.NewImageResolver(cfg.ImageSources, cfg.Storage.ImagesDir, zapLogger)
	}

	store := storage.NewJSONStore(cfg.Storage, logger.NewSlogAdapter(nil))
	refresh := service.NewRefreshService(market, images, store, cfg.Refresh, zapLogger)

	report, err := refresh.Run(ctx)
	exitCode := 0
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrCorruptDocument):
		zapLogger.Error("Existing dataset cannot be decoded, refusing to overwrite it", zap.Error(err))
		exitCode = 1
	case errors.Is(err, context.Canceled):
		zapLogger.Warn("Refresh canceled", zap.String("runID", report.RunID))
	default:
		zapLogger.Error("Refresh run failed", zap.String("runID", report.RunID), zap.Error(err))
	}

	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		zapLogger.Warn("Failed to write metrics textfile", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
	}
	return exitCode
}
