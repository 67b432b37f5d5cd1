package entity

import "time"

// TokenSummary is a token as observed on the market list endpoint.
type TokenSummary struct {
	ID        string
	Name      string
	Symbol    string
	Rank      int
	Price     float64
	MarketCap float64
	ImageURL  string
	// FromCache is set when the summary was rebuilt from the dataset instead of observed.
	FromCache bool
}

// HistoricalPrice is one daily close of a token in USD.
type HistoricalPrice struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Price float64 `json:"price"`
}

// TokenRecord is the persisted state of a single token, keyed by token id in a Dataset.
type TokenRecord struct {
	Name             string            `json:"name"`
	Symbol           string            `json:"symbol"`
	Rank             int               `json:"market_cap_rank"`
	Price            float64           `json:"current_price"`
	MarketCap        float64           `json:"market_cap"`
	WindowDays       int               `json:"days"`
	LastUpdated      time.Time         `json:"last_updated"`
	ImageURL         *string           `json:"image_url"`
	ImageLocalPath   *string           `json:"image_local_path"`
	HistoricalPrices []HistoricalPrice `json:"historical_prices"`
	Description      *string           `json:"description"`
	Categories       []string          `json:"categories"`
	Links            map[string]any    `json:"links"`
	CommunityData    map[string]any    `json:"community_data"`
	WatchlistCount   int               `json:"watchlist_portfolio_users"`
}

// LatestPriceDate returns the date of the most recent historical price, or "" when there is none.
func (r *TokenRecord) LatestPriceDate() string {
	if r == nil || len(r.HistoricalPrices) == 0 {
		return ""
	}
	return r.HistoricalPrices[len(r.HistoricalPrices)-1].Date
}

// Summary rebuilds the list view of a cached record.
func (r *TokenRecord) Summary(id string) TokenSummary {
	s := TokenSummary{
		ID:        id,
		Name:      r.Name,
		Symbol:    r.Symbol,
		Rank:      r.Rank,
		Price:     r.Price,
		MarketCap: r.MarketCap,
		FromCache: true,
	}
	if r.ImageURL != nil {
		s.ImageURL = *r.ImageURL
	}
	return s
}

// Dataset maps token id to its record.
type Dataset map[string]*TokenRecord

// RankedBefore orders tokens by market-cap rank, then id. Unranked tokens (rank 0) sort last.
func RankedBefore(rankA int, idA string, rankB int, idB string) bool {
	if rankA != rankB {
		if rankA == 0 || rankB == 0 {
			return rankB == 0
		}
		return rankA < rankB
	}
	return idA < idB
}

// LatestUpdate returns the most recent LastUpdated across all records.
func (d Dataset) LatestUpdate() (time.Time, bool) {
	var latest time.Time
	found := false
	for _, rec := range d {
		if rec == nil {
			continue
		}
		if !found || rec.LastUpdated.After(latest) {
			latest = rec.LastUpdated
			found = true
		}
	}
	return latest, found
}

// TokenMetadata is the optional enrichment fetched from the detail endpoint.
type TokenMetadata struct {
	Description    *string
	Categories     []string
	Links          map[string]any
	CommunityData  map[string]any
	WatchlistCount int
}

// RunReport summarises one refresh pass.
type RunReport struct {
	RunID         string `json:"runId"`
	Found         int    `json:"found"`
	Updated       int    `json:"updated"`
	Skipped       int    `json:"skipped"`
	Failed        int    `json:"failed"`
	Total         int    `json:"total"`
	ListFromCache bool   `json:"listFromCache"`
}
