package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"memecoin_tracker/internal/app/port"
	"memecoin_tracker/internal/config"
	"memecoin_tracker/internal/domain/entity"
	apientity "memecoin_tracker/internal/entity"
	"memecoin_tracker/internal/infrastructure/httpclient"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const apiKeyHeader = "X-Cg-Api-Key"

// Fetcher is the transport used by the API clients.
type Fetcher interface {
	Fetch(ctx context.Context, req httpclient.Request) ([]byte, error)
}

// coinGeckoClientImpl is the CoinGecko implementation of port.MarketDataClient.
type coinGeckoClientImpl struct {
	fetcher    Fetcher
	baseURL    string
	apiKey     string
	vsCurrency string
	category   string
	maxCoins   int
	logger     *zap.Logger
}

// NewCoinGeckoClient creates a market-data client that sends every request through fetcher.
func NewCoinGeckoClient(fetcher Fetcher, cfg config.CoinGeckoConfig, logger *zap.Logger) port.MarketDataClient {
	return &coinGeckoClientImpl{
		fetcher:    fetcher,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.ApiKey,
		vsCurrency: cfg.VsCurrency,
		category:   cfg.Category,
		maxCoins:   cfg.MaxCoins,
		logger:     logger.Named("CoinGeckoClient"),
	}
}

func (c *coinGeckoClientImpl) request(path string, params url.Values) httpclient.Request {
	requestURL := c.baseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}
	req := httpclient.Request{URL: requestURL, Header: map[string]string{"Accept": "application/json"}}
	if c.apiKey != "" {
		req.Header[apiKeyHeader] = c.apiKey
	}
	return req
}

// GetTopCoins implements port.MarketDataClient.
func (c *coinGeckoClientImpl) GetTopCoins(ctx context.Context) ([]entity.TokenSummary, error) {
	params := url.Values{}
	params.Set("vs_currency", c.vsCurrency)
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(c.maxCoins))
	params.Set("page", "1")
	params.Set("sparkline", "false")
	params.Set("category", c.category)

	req := c.request("/coins/markets", params)
	c.logger.Debug("Requesting top coins", zap.String("url", req.URL))

	body, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch top %d %s coins: %w", c.maxCoins, c.category, err)
	}

	var coins []apientity.MarketCoin
	if err := json.Unmarshal(body, &coins); err != nil {
		c.logger.Error("Failed to unmarshal markets response",
			zap.String("url", req.URL),
			zap.ByteString("responseBody", body),
			zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal markets response from %s: %w", req.URL, err)
	}

	summaries := make([]entity.TokenSummary, 0, len(coins))
	for _, coin := range coins {
		if coin.ID == "" {
			c.logger.Warn("Skipping market entry without id", zap.String("name", coin.Name))
			continue
		}
		s := entity.TokenSummary{
			ID:        coin.ID,
			Name:      coin.Name,
			Symbol:    coin.Symbol,
			Price:     coin.CurrentPrice,
			MarketCap: coin.MarketCap,
			ImageURL:  coin.Image,
		}
		if coin.MarketCapRank != nil {
			s.Rank = *coin.MarketCapRank
		}
		summaries = append(summaries, s)
	}

	c.logger.Debug("Fetched top coins", zap.Int("coinCount", len(summaries)))
	return summaries, nil
}

// GetCoinMetadata implements port.MarketDataClient.
func (c *coinGeckoClientImpl) GetCoinMetadata(ctx context.Context, id string) (*entity.TokenMetadata, error) {
	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("market_data", "false")
	params.Set("community_data", "true")
	params.Set("developer_data", "false")

	req := c.request("/coins/"+url.PathEscape(id), params)
	body, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for %s: %w", id, err)
	}

	var detail apientity.CoinDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", id, err)
	}

	meta := &entity.TokenMetadata{
		Categories:     make([]string, 0, len(detail.Categories)),
		Links:          detail.Links,
		CommunityData:  detail.CommunityData,
		WatchlistCount: detail.WatchlistPortfolioUsers,
	}
	if desc := detail.Description["en"]; desc != "" {
		meta.Description = &desc
	}
	for _, cat := range detail.Categories {
		if cat != "" {
			meta.Categories = append(meta.Categories, cat)
		}
	}
	return meta, nil
}

// GetHistoricalPrices implements port.MarketDataClient. Timestamps are converted to UTC dates.
func (c *coinGeckoClientImpl) GetHistoricalPrices(ctx context.Context, id string, days int) ([]entity.HistoricalPrice, error) {
	params := url.Values{}
	params.Set("vs_currency", c.vsCurrency)
	params.Set("days", strconv.Itoa(days))
	params.Set("interval", "daily")

	req := c.request("/coins/"+url.PathEscape(id)+"/market_chart", params)
	body, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %d day history for %s: %w", days, id, err)
	}

	var chart apientity.MarketChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history for %s: %w", id, err)
	}
	if len(chart.Prices) == 0 {
		return nil, fmt.Errorf("history for %s contains no prices", id)
	}

	prices := make([]entity.HistoricalPrice, 0, len(chart.Prices))
	for _, point := range chart.Prices {
		prices = append(prices, entity.HistoricalPrice{
			Date:  time.UnixMilli(int64(point[0])).UTC().Format(time.DateOnly),
			Price: point[1],
		})
	}
	return prices, nil
}
