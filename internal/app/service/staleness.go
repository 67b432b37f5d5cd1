package service

import (
	"sort"
	"time"

	"memecoin_tracker/internal/domain/entity"
)

// NeedsUpdate reports whether the stored record for a token must be refetched.
// The first matching rule wins:
//   - there is no stored record;
//   - rank, price or market cap changed (only checked for freshly observed summaries);
//   - the history is empty or was fetched for a different window;
//   - the newest history date is not today's date in now's location.
func NeedsUpdate(existing *entity.TokenRecord, fresh entity.TokenSummary, windowDays int, now time.Time) bool {
	if existing == nil {
		return true
	}

	// A cached summary was rebuilt from existing itself, comparing them proves nothing.
	if !fresh.FromCache {
		if existing.Rank != fresh.Rank ||
			existing.Price != fresh.Price ||
			existing.MarketCap != fresh.MarketCap {
			return true
		}
	}

	if len(existing.HistoricalPrices) == 0 || existing.WindowDays == 0 || existing.WindowDays != windowDays {
		return true
	}

	return existing.LatestPriceDate() != now.Format(time.DateOnly)
}

// NeedsListRefresh reports whether the token list must be fetched again instead of
// being rebuilt from the dataset: the dataset is empty or its newest record is older than maxAge.
func NeedsListRefresh(data entity.Dataset, now time.Time, maxAge time.Duration) bool {
	latest, ok := data.LatestUpdate()
	if !ok {
		return true
	}
	return now.Sub(latest) > maxAge
}

// CachedSummaries rebuilds the token list from the dataset, ordered by rank then id.
// Unranked tokens come last.
func CachedSummaries(data entity.Dataset) []entity.TokenSummary {
	summaries := make([]entity.TokenSummary, 0, len(data))
	for id, rec := range data {
		if rec == nil {
			continue
		}
		summaries = append(summaries, rec.Summary(id))
	}

	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		return entity.RankedBefore(a.Rank, a.ID, b.Rank, b.ID)
	})
	return summaries
}
