package port

import (
	"context"

	"memecoin_tracker/internal/domain/entity"
)

// MarketDataClient fetches token data from the market-data API.
type MarketDataClient interface {
	// GetTopCoins returns the top tokens of the configured category ordered by market cap.
	GetTopCoins(ctx context.Context) ([]entity.TokenSummary, error)
	// GetCoinMetadata returns description, categories, links and community data for a token.
	GetCoinMetadata(ctx context.Context, id string) (*entity.TokenMetadata, error)
	// GetHistoricalPrices returns daily prices for the last days days, oldest first.
	GetHistoricalPrices(ctx context.Context, id string, days int) ([]entity.HistoricalPrice, error)
}

// ImageResolver finds and downloads token logos.
type ImageResolver interface {
	// Resolve returns the first reachable logo URL for the token, or "" when none is.
	Resolve(ctx context.Context, token entity.TokenSummary) string
	// Download stores the image at url as the token's local logo and returns its path.
	Download(ctx context.Context, url, id string) (string, error)
}

// TokenStore persists the dataset and the social search results.
type TokenStore interface {
	// Load returns the persisted dataset; a missing document yields an empty dataset.
	Load() (entity.Dataset, error)
	// Save persists the dataset and writes a timestamped snapshot of it.
	Save(data entity.Dataset) error
	LoadSocial() (entity.SocialResults, error)
	SaveSocial(results entity.SocialResults) error
}
