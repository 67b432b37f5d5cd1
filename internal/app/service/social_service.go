package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"memecoin_tracker/internal/app/port"
	"memecoin_tracker/internal/domain/entity"
	"memecoin_tracker/internal/pkg/metrics"
	"memecoin_tracker/internal/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// socialServiceImpl implements port.SocialService.
type socialServiceImpl struct {
	search   port.SocialSearchClient
	store    port.TokenStore
	interval time.Duration
	logger   *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewSocialService creates the social search companion. Searches run one at a time with a
// pause of interval between the end of one search and the start of the next.
func NewSocialService(search port.SocialSearchClient, store port.TokenStore, interval time.Duration, logger *zap.Logger) port.SocialService {
	return &socialServiceImpl{
		search:   search,
		store:    store,
		interval: interval,
		logger:   logger.Named("SocialService"),
		sleep:    utils.Sleep,
	}
}

// Run implements port.SocialService. Every token of the persisted dataset is searched by
// display name; failed searches are recorded as null. Results are written once at the end.
func (s *socialServiceImpl) Run(ctx context.Context) (entity.SocialReport, error) {
	report := entity.SocialReport{RunID: uuid.NewString()}
	log := s.logger.With(zap.String("runID", report.RunID))

	data, err := s.store.Load()
	if err != nil {
		log.Error("Failed to load dataset", zap.Error(err))
		return report, fmt.Errorf("failed to load dataset: %w", err)
	}

	ids := make([]string, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	report.Total = len(ids)
	if len(ids) == 0 {
		log.Warn("Dataset is empty, nothing to search for")
	}

	results := make(entity.SocialResults, len(ids))
	var runErr error
	for i, id := range ids {
		if i > 0 {
			if err := s.sleep(ctx, s.interval); err != nil {
				runErr = err
				break
			}
		}

		query := data[id].Name
		if query == "" {
			query = id
		}
		tokenLog := log.With(zap.String("tokenID", id), zap.String("query", query))
		tokenLog.Info("Fetching posts")

		payload, err := s.search.Search(ctx, query)
		if err != nil {
			tokenLog.Error("Search failed", zap.Error(err))
			results[id] = entity.NullPayload
			report.Failed++
			metrics.SocialSearches.WithLabelValues("failed").Inc()
			continue
		}
		results[id] = payload
		report.Succeeded++
		metrics.SocialSearches.WithLabelValues("succeeded").Inc()
	}

	if runErr != nil {
		log.Warn("Search run interrupted, saving partial results", zap.Error(runErr), zap.Int("searched", len(results)))
	}
	if err := s.store.SaveSocial(results); err != nil {
		log.Error("Failed to save social results", zap.Error(err))
		return report, fmt.Errorf("failed to save social results: %w", err)
	}
	metrics.LastRunTimestamp.WithLabelValues("social").SetToCurrentTime()

	log.Info("Social search complete",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed))
	return report, runErr
}
