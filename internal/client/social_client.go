package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"memecoin_tracker/internal/app/port"
	"memecoin_tracker/internal/config"
	"memecoin_tracker/internal/infrastructure/httpclient"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// rapidAPISearchClient implements port.SocialSearchClient against the RapidAPI twitter search.
type rapidAPISearchClient struct {
	fetcher    Fetcher
	baseURL    string
	apiKey     string
	host       string
	searchType string
	logger     *zap.Logger
}

// NewSocialSearchClient creates a social search client. cfg must carry both key and host.
func NewSocialSearchClient(fetcher Fetcher, cfg config.SocialConfig, logger *zap.Logger) port.SocialSearchClient {
	return &rapidAPISearchClient{
		fetcher:    fetcher,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.ApiKey,
		host:       cfg.Host,
		searchType: cfg.SearchType,
		logger:     logger.Named("SocialSearchClient"),
	}
}

// Search implements port.SocialSearchClient. The payload is returned verbatim.
func (c *rapidAPISearchClient) Search(ctx context.Context, query string) (jsoniter.RawMessage, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("search_type", c.searchType)

	req := httpclient.Request{
		URL: c.baseURL + "/search.php?" + params.Encode(),
		Header: map[string]string{
			"x-rapidapi-key":  c.apiKey,
			"x-rapidapi-host": c.host,
		},
	}
	c.logger.Debug("Searching", zap.String("query", query))

	body, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search for %q: %w", query, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("search for %q returned a non-JSON payload (%d bytes)", query, len(body))
	}
	return jsoniter.RawMessage(body), nil
}
