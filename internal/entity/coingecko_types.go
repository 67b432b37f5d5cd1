package entity

// MarketCoin is one element of the /coins/markets response.
type MarketCoin struct {
	ID            string   `json:"id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	Image         string   `json:"image"`
	CurrentPrice  float64  `json:"current_price"`
	MarketCap     float64  `json:"market_cap"`
	MarketCapRank *int     `json:"market_cap_rank"` // null for unranked coins
	TotalVolume   float64  `json:"total_volume"`
	High24h       *float64 `json:"high_24h"`
	Low24h        *float64 `json:"low_24h"`
	LastUpdated   string   `json:"last_updated"`
}

// CoinDetail is the subset of the /coins/{id} response kept as token metadata.
type CoinDetail struct {
	ID                      string            `json:"id"`
	Symbol                  string            `json:"symbol"`
	Name                    string            `json:"name"`
	Categories              []string          `json:"categories"`
	Description             map[string]string `json:"description"`
	Links                   map[string]any    `json:"links"`
	CommunityData           map[string]any    `json:"community_data"`
	WatchlistPortfolioUsers int               `json:"watchlist_portfolio_users"`
}

// MarketChart is the /coins/{id}/market_chart response. Each point is [unixMillis, value].
type MarketChart struct {
	Prices       [][2]float64 `json:"prices"`
	MarketCaps   [][2]float64 `json:"market_caps"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}
