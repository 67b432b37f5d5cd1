package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "memecoin_tracker"

var (
	// FetchAttempts counts every outbound attempt made by a retrying fetcher.
	FetchAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_attempts_total",
		Help:      "Outbound HTTP attempts by fetcher and outcome.",
	}, []string{"fetcher", "outcome"})

	// FetchRetries counts backoff waits caused by throttling responses.
	FetchRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_retries_total",
		Help:      "Retries scheduled after a throttling response.",
	}, []string{"fetcher"})

	// LimiterWait observes how long callers were held by a rate limiter.
	LimiterWait = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "limiter_wait_seconds",
		Help:      "Time spent waiting for a rate limiter permit.",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"fetcher"})

	// TokenRefreshes counts per-token outcomes of refresh runs.
	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refreshes_total",
		Help:      "Per-token refresh outcomes (updated, skipped, failed).",
	}, []string{"result"})

	// SocialSearches counts per-token outcomes of social search runs.
	SocialSearches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "social_searches_total",
		Help:      "Social search outcomes (succeeded, failed).",
	}, []string{"result"})

	// LastRunTimestamp records the completion time of the last run per job.
	LastRunTimestamp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time of the last completed run.",
	}, []string{"job"})

	// DatasetSize is the number of tokens in the persisted dataset after a run.
	DatasetSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dataset_tokens",
		Help:      "Tokens currently held in the dataset.",
	})

	registerOnce sync.Once
)

// MustRegisterMetrics registers all collectors with the default registry. Safe to call more than once.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			FetchAttempts,
			FetchRetries,
			LimiterWait,
			TokenRefreshes,
			SocialSearches,
			LastRunTimestamp,
			DatasetSize,
		)
	})
}

// WriteTextfile dumps the default registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
