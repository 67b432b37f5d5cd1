package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"memecoin_tracker/internal/app/port"
	"memecoin_tracker/internal/config"
	"memecoin_tracker/internal/domain/entity"
	"memecoin_tracker/internal/pkg/metrics"
	"memecoin_tracker/internal/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type tokenOutcome string

const (
	outcomeUpdated tokenOutcome = "updated"
	outcomeSkipped tokenOutcome = "skipped"
	outcomeFailed  tokenOutcome = "failed"
)

// refreshServiceImpl implements port.RefreshService.
type refreshServiceImpl struct {
	market port.MarketDataClient
	images port.ImageResolver
	store  port.TokenStore
	cfg    config.RefreshConfig
	logger *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRefreshService creates the refresh orchestrator. images may be nil to skip logo handling.
func NewRefreshService(
	market port.MarketDataClient,
	images port.ImageResolver,
	store port.TokenStore,
	cfg config.RefreshConfig,
	logger *zap.Logger,
) port.RefreshService {
	return &refreshServiceImpl{
		market: market,
		images: images,
		store:  store,
		cfg:    cfg,
		logger: logger.Named("RefreshService"),
		now:    time.Now,
		sleep:  utils.Sleep,
	}
}

// Run implements port.RefreshService. It makes a single pass over the token list,
// refetching stale tokens and persisting the dataset after every successful update.
func (s *refreshServiceImpl) Run(ctx context.Context) (entity.RunReport, error) {
	report := entity.RunReport{RunID: uuid.NewString()}
	log := s.logger.With(zap.String("runID", report.RunID))

	log.Info("Loading existing data")
	data, err := s.store.Load()
	if err != nil {
		log.Error("Failed to load dataset", zap.Error(err))
		return report, fmt.Errorf("failed to load dataset: %w", err)
	}

	tokens, fromCache, err := s.tokenList(ctx, data, log)
	if err != nil {
		return report, err
	}
	report.Found = len(tokens)
	report.ListFromCache = fromCache

	for _, token := range tokens {
		if err := ctx.Err(); err != nil {
			log.Warn("Refresh interrupted", zap.Error(err))
			s.finish(&report, data, log)
			return report, err
		}

		tokenLog := log.With(zap.String("tokenID", token.ID), zap.String("name", token.Name))
		tokenLog.Info("Processing token", zap.String("symbol", strings.ToUpper(token.Symbol)))

		if !NeedsUpdate(data[token.ID], token, s.cfg.WindowDays, s.now()) {
			tokenLog.Info("Skipping token, already up to date")
			s.count(&report, outcomeSkipped)
			continue
		}

		s.count(&report, s.refreshToken(ctx, data, token, tokenLog))

		if err := s.sleep(ctx, s.cfg.InterTokenDelay()); err != nil {
			log.Warn("Refresh interrupted", zap.Error(err))
			s.finish(&report, data, log)
			return report, err
		}
	}

	s.finish(&report, data, log)
	return report, nil
}

// tokenList returns the tokens to walk: a fresh list from the market API when the
// dataset is empty or old, otherwise the dataset's own tokens.
func (s *refreshServiceImpl) tokenList(ctx context.Context, data entity.Dataset, log *zap.Logger) ([]entity.TokenSummary, bool, error) {
	if !NeedsListRefresh(data, s.now(), s.cfg.ListMaxAge()) {
		tokens := CachedSummaries(data)
		log.Info("Using existing token list from last update", zap.Int("tokenCount", len(tokens)))
		return tokens, true, nil
	}

	log.Info("Fetching token list")
	tokens, err := s.market.GetTopCoins(ctx)
	if err != nil {
		log.Error("Failed to fetch token list", zap.Error(err))
		return nil, false, fmt.Errorf("failed to fetch token list: %w", err)
	}
	log.Info("Fetched token list", zap.Int("tokenCount", len(tokens)))
	return tokens, false, nil
}

// refreshToken refetches one token and replaces its record. The stored record is
// left untouched unless the price history could be fetched.
func (s *refreshServiceImpl) refreshToken(ctx context.Context, data entity.Dataset, token entity.TokenSummary, log *zap.Logger) tokenOutcome {
	existing := data[token.ID]

	meta, err := s.market.GetCoinMetadata(ctx, token.ID)
	if err != nil {
		log.Warn("Failed to fetch metadata, continuing without it", zap.Error(err))
	}

	imageURL, imagePath := s.resolveImage(ctx, token, existing, log)

	prices, err := s.market.GetHistoricalPrices(ctx, token.ID, s.cfg.WindowDays)
	if err != nil {
		log.Error("Failed to fetch price history, keeping previous record", zap.Error(err))
		return outcomeFailed
	}

	lastUpdated := s.now()
	if token.FromCache && existing != nil {
		// Market metrics were not re-observed; keep the list's age.
		lastUpdated = existing.LastUpdated
	}

	data[token.ID] = buildRecord(token, meta, prices, s.cfg.WindowDays, lastUpdated, imageURL, imagePath)
	if err := s.store.Save(data); err != nil {
		log.Error("Failed to save dataset", zap.Error(err))
		return outcomeFailed
	}

	log.Info("Updated and saved token", zap.Int("pricePoints", len(prices)))
	return outcomeUpdated
}

// resolveImage picks the logo URL and downloads it unless a local copy is already recorded.
func (s *refreshServiceImpl) resolveImage(ctx context.Context, token entity.TokenSummary, existing *entity.TokenRecord, log *zap.Logger) (*string, *string) {
	var imageURL, imagePath *string
	if existing != nil && existing.ImageLocalPath != nil {
		imagePath = existing.ImageLocalPath
	}
	if token.ImageURL != "" {
		u := token.ImageURL
		imageURL = &u
	}
	if s.cfg.SkipImages || s.images == nil {
		return imageURL, imagePath
	}
	// Fallback sources are only probed when there is no local copy yet.
	if imagePath != nil {
		if imageURL == nil {
			imageURL = existing.ImageURL
		}
		return imageURL, imagePath
	}

	resolved := s.images.Resolve(ctx, token)
	if resolved == "" {
		return imageURL, imagePath
	}
	imageURL = &resolved

	log.Info("Downloading image", zap.String("url", resolved))
	path, err := s.images.Download(ctx, resolved, token.ID)
	if err != nil {
		log.Warn("Failed to download image", zap.Error(err))
	} else {
		imagePath = &path
	}
	return imageURL, imagePath
}

func buildRecord(
	token entity.TokenSummary,
	meta *entity.TokenMetadata,
	prices []entity.HistoricalPrice,
	windowDays int,
	lastUpdated time.Time,
	imageURL, imagePath *string,
) *entity.TokenRecord {
	rec := &entity.TokenRecord{
		Name:             token.Name,
		Symbol:           strings.ToUpper(token.Symbol),
		Rank:             token.Rank,
		Price:            token.Price,
		MarketCap:        token.MarketCap,
		WindowDays:       windowDays,
		LastUpdated:      lastUpdated,
		ImageURL:         imageURL,
		ImageLocalPath:   imagePath,
		HistoricalPrices: prices,
		Categories:       []string{},
		Links:            map[string]any{},
		CommunityData:    map[string]any{},
	}
	if meta != nil {
		rec.Description = meta.Description
		rec.WatchlistCount = meta.WatchlistCount
		if meta.Categories != nil {
			rec.Categories = meta.Categories
		}
		if meta.Links != nil {
			rec.Links = meta.Links
		}
		if meta.CommunityData != nil {
			rec.CommunityData = meta.CommunityData
		}
	}
	return rec
}

func (s *refreshServiceImpl) count(report *entity.RunReport, outcome tokenOutcome) {
	switch outcome {
	case outcomeUpdated:
		report.Updated++
	case outcomeSkipped:
		report.Skipped++
	case outcomeFailed:
		report.Failed++
	}
	metrics.TokenRefreshes.WithLabelValues(string(outcome)).Inc()
}

func (s *refreshServiceImpl) finish(report *entity.RunReport, data entity.Dataset, log *zap.Logger) {
	report.Total = len(data)
	metrics.DatasetSize.Set(float64(report.Total))
	metrics.LastRunTimestamp.WithLabelValues("refresh").SetToCurrentTime()

	log.Info("Data collection complete",
		zap.Int("found", report.Found),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("total", report.Total),
		zap.Bool("listFromCache", report.ListFromCache))
}
