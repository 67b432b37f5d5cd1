package restapi

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"memecoin_tracker/internal/app/port"
	"memecoin_tracker/internal/domain/entity"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	datasetCacheKey = "dataset"
	socialCacheKey  = "social"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Data          any    `json:"data,omitempty"`
	StatusMessage string `json:"status_message"`
}

// TokenListItem is the list view of a token.
type TokenListItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Symbol      string    `json:"symbol"`
	Rank        int       `json:"market_cap_rank"`
	Price       float64   `json:"current_price"`
	MarketCap   float64   `json:"market_cap"`
	Days        int       `json:"days"`
	PricePoints int       `json:"price_points"`
	LatestDate  string    `json:"latest_price_date"`
	LastUpdated time.Time `json:"last_updated"`
	ImageURL    *string   `json:"image_url"`
}

// TokenDetail is a full record together with its id.
type TokenDetail struct {
	ID string `json:"id"`
	*entity.TokenRecord
}

// TokenHistory is the price series of a token.
type TokenHistory struct {
	ID     string                   `json:"id"`
	Days   int                      `json:"days"`
	Prices []entity.HistoricalPrice `json:"prices"`
}

// TokenHandler serves read-only views of the persisted dataset and social results.
type TokenHandler struct {
	store  port.TokenStore
	cache  *cache.Cache
	logger *zap.Logger
}

// NewTokenHandler creates a handler. Documents are re-read from the store once the cache entry expires.
func NewTokenHandler(store port.TokenStore, c *cache.Cache, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{
		store:  store,
		cache:  c,
		logger: logger.Named("TokenHandler"),
	}
}

func (h *TokenHandler) dataset() (entity.Dataset, error) {
	if cached, ok := h.cache.Get(datasetCacheKey); ok {
		return cached.(entity.Dataset), nil
	}
	data, err := h.store.Load()
	if err != nil {
		return nil, err
	}
	h.cache.SetDefault(datasetCacheKey, data)
	return data, nil
}

func (h *TokenHandler) social() (entity.SocialResults, error) {
	if cached, ok := h.cache.Get(socialCacheKey); ok {
		return cached.(entity.SocialResults), nil
	}
	results, err := h.store.LoadSocial()
	if err != nil {
		return nil, err
	}
	h.cache.SetDefault(socialCacheKey, results)
	return results, nil
}

func (h *TokenHandler) loadFailed(c *gin.Context, what string, err error) {
	h.logger.Error("Failed to load document", zap.String("document", what), zap.Error(err))
	c.JSON(http.StatusInternalServerError, APIResponse{StatusMessage: fmt.Sprintf("Failed to load %s.", what)})
}

// record returns the token named by the :id path parameter, writing a 404 when it is unknown.
func (h *TokenHandler) record(c *gin.Context) (string, *entity.TokenRecord, bool) {
	data, err := h.dataset()
	if err != nil {
		h.loadFailed(c, "dataset", err)
		return "", nil, false
	}
	id := c.Param("id")
	rec, ok := data[id]
	if !ok || rec == nil {
		c.JSON(http.StatusNotFound, APIResponse{StatusMessage: fmt.Sprintf("Token %q is not tracked.", id)})
		return id, nil, false
	}
	return id, rec, true
}

// ListTokensHandler returns every tracked token ordered by market cap rank.
func (h *TokenHandler) ListTokensHandler(c *gin.Context) {
	data, err := h.dataset()
	if err != nil {
		h.loadFailed(c, "dataset", err)
		return
	}

	items := make([]TokenListItem, 0, len(data))
	for id, rec := range data {
		if rec == nil {
			continue
		}
		items = append(items, TokenListItem{
			ID:          id,
			Name:        rec.Name,
			Symbol:      rec.Symbol,
			Rank:        rec.Rank,
			Price:       rec.Price,
			MarketCap:   rec.MarketCap,
			Days:        rec.WindowDays,
			PricePoints: len(rec.HistoricalPrices),
			LatestDate:  rec.LatestPriceDate(),
			LastUpdated: rec.LastUpdated,
			ImageURL:    rec.ImageURL,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		return entity.RankedBefore(a.Rank, a.ID, b.Rank, b.ID)
	})

	msg := "Tokens retrieved successfully."
	if len(items) == 0 {
		msg = "No token data found. Run the tracker first."
	}
	c.JSON(http.StatusOK, APIResponse{Data: items, StatusMessage: msg})
}

// GetTokenHandler returns the full record of one token.
func (h *TokenHandler) GetTokenHandler(c *gin.Context) {
	id, rec, ok := h.record(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, APIResponse{Data: TokenDetail{ID: id, TokenRecord: rec}, StatusMessage: "Token retrieved successfully."})
}

// GetHistoryHandler returns the daily price series of one token.
func (h *TokenHandler) GetHistoryHandler(c *gin.Context) {
	id, rec, ok := h.record(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, APIResponse{
		Data:          TokenHistory{ID: id, Days: rec.WindowDays, Prices: rec.HistoricalPrices},
		StatusMessage: "History retrieved successfully.",
	})
}

// GetSocialHandler returns the stored social search payload of one token verbatim.
func (h *TokenHandler) GetSocialHandler(c *gin.Context) {
	results, err := h.social()
	if err != nil {
		h.loadFailed(c, "social results", err)
		return
	}
	id := c.Param("id")
	payload, ok := results[id]
	if !ok {
		c.JSON(http.StatusNotFound, APIResponse{StatusMessage: fmt.Sprintf("No social results for %q.", id)})
		return
	}
	if len(payload) == 0 || string(payload) == "null" {
		c.JSON(http.StatusBadGateway, APIResponse{StatusMessage: fmt.Sprintf("The last social search for %q failed.", id)})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// HealthHandler reports liveness.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
