package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"memecoin_tracker/internal/domain/entity"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap/zaptest"
)

type memStore struct {
	data      entity.Dataset
	social    entity.SocialResults
	loadCalls int
}

func (m *memStore) Load() (entity.Dataset, error) {
	m.loadCalls++
	return m.data, nil
}
func (m *memStore) Save(entity.Dataset) error { return nil }
func (m *memStore) LoadSocial() (entity.SocialResults, error) {
	return m.social, nil
}
func (m *memStore) SaveSocial(entity.SocialResults) error { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *memStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := &memStore{
		data: entity.Dataset{
			"pepe": {Name: "Pepe", Symbol: "PEPE", Rank: 3, WindowDays: 30,
				HistoricalPrices: []entity.HistoricalPrice{{Date: "2024-03-01", Price: 0.1}}},
			"dogecoin": {Name: "Dogecoin", Symbol: "DOGE", Rank: 1, WindowDays: 30},
		},
		social: entity.SocialResults{
			"pepe":     []byte(`{"timeline":[]}`),
			"dogecoin": entity.NullPayload,
		},
	}
	logger := zaptest.NewLogger(t)
	handler := NewTokenHandler(store, cache.New(time.Minute, time.Minute), logger)
	return SetupRouter(handler, logger), store
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestListTokens(t *testing.T) {
	router, store := newTestRouter(t)

	w := get(t, router, "/api/v1/tokens")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Data []TokenListItem `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 2 || resp.Data[0].ID != "dogecoin" || resp.Data[1].PricePoints != 1 {
		t.Errorf("data = %+v", resp.Data)
	}

	get(t, router, "/api/v1/tokens")
	if store.loadCalls != 1 {
		t.Errorf("dataset loaded %d times, want cached after the first", store.loadCalls)
	}
}

func TestListTokens_UnrankedLast(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &memStore{data: entity.Dataset{
		"newcoin":  {Name: "New Coin", Symbol: "NEW"},
		"pepe":     {Name: "Pepe", Symbol: "PEPE", Rank: 3},
		"dogecoin": {Name: "Dogecoin", Symbol: "DOGE", Rank: 1},
		"aaa":      {Name: "AAA", Symbol: "AAA"},
	}}
	logger := zaptest.NewLogger(t)
	router := SetupRouter(NewTokenHandler(store, cache.New(time.Minute, time.Minute), logger), logger)

	w := get(t, router, "/api/v1/tokens")
	var resp struct {
		Data []TokenListItem `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"dogecoin", "pepe", "aaa", "newcoin"}
	if len(resp.Data) != len(want) {
		t.Fatalf("data = %+v", resp.Data)
	}
	for i, id := range want {
		if resp.Data[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, resp.Data[i].ID, id)
		}
	}
}

func TestGetTokenAndHistory(t *testing.T) {
	router, _ := newTestRouter(t)

	w := get(t, router, "/api/v1/tokens/pepe")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var detail struct {
		Data map[string]any `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &detail)
	if detail.Data["id"] != "pepe" || detail.Data["symbol"] != "PEPE" {
		t.Errorf("detail = %v", detail.Data)
	}

	w = get(t, router, "/api/v1/tokens/pepe/history")
	var history struct {
		Data TokenHistory `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &history)
	if history.Data.Days != 30 || len(history.Data.Prices) != 1 {
		t.Errorf("history = %+v", history.Data)
	}

	if w := get(t, router, "/api/v1/tokens/unknown"); w.Code != http.StatusNotFound {
		t.Errorf("unknown token status = %d", w.Code)
	}
}

func TestGetSocial(t *testing.T) {
	router, _ := newTestRouter(t)

	w := get(t, router, "/api/v1/social/pepe")
	if w.Code != http.StatusOK || w.Body.String() != `{"timeline":[]}` {
		t.Errorf("pepe = %d %s", w.Code, w.Body.String())
	}
	if w := get(t, router, "/api/v1/social/dogecoin"); w.Code != http.StatusBadGateway {
		t.Errorf("failed search status = %d", w.Code)
	}
	if w := get(t, router, "/api/v1/social/nope"); w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	if w := get(t, router, "/health"); w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
}
