package storage

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"memecoin_tracker/internal/config"
	"memecoin_tracker/internal/domain/entity"
	"memecoin_tracker/internal/pkg/logger"
)

func newTestStore(t *testing.T, retention int) (*JSONStore, string) {
	t.Helper()
	dir := t.TempDir()
	store := NewJSONStore(config.StorageConfig{
		DataFile:          filepath.Join(dir, "memecoin_data.json"),
		BackupDir:         filepath.Join(dir, "backups"),
		SocialFile:        filepath.Join(dir, "memecoin_tweets.json"),
		SnapshotRetention: retention,
	}, logger.NewSlogAdapter(slog.Default()))
	return store, dir
}

func sampleDataset() entity.Dataset {
	img := "https://img/doge.png"
	local := "backups/images/dogecoin.png"
	desc := "Such coin."
	return entity.Dataset{
		"dogecoin": {
			Name:           "Dogecoin",
			Symbol:         "DOGE",
			Rank:           8,
			Price:          0.123456789,
			MarketCap:      17000000000,
			WindowDays:     30,
			LastUpdated:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			ImageURL:       &img,
			ImageLocalPath: &local,
			HistoricalPrices: []entity.HistoricalPrice{
				{Date: "2024-02-29", Price: 0.11},
				{Date: "2024-03-01", Price: 0.12},
			},
			Description:    &desc,
			Categories:     []string{"Meme"},
			Links:          map[string]any{"homepage": []any{"https://dogecoin.com"}},
			CommunityData:  map[string]any{"twitter_followers": float64(1200)},
			WatchlistCount: 42,
		},
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	store, _ := newTestStore(t, 0)
	data, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty dataset, got %d records", len(data))
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	store, dir := newTestStore(t, 0)
	if err := os.WriteFile(filepath.Join(dir, "memecoin_data.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := store.Load()
	if !errors.Is(err, ErrCorruptDocument) {
		t.Fatalf("expected ErrCorruptDocument, got %v", err)
	}
}

func TestSaveLoad_RoundTripAndSnapshot(t *testing.T) {
	store, dir := newTestStore(t, 0)
	store.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 45, 678_000_000, time.UTC) }

	want := sampleDataset()
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got["dogecoin"], want["dogecoin"])
	}

	snapshot := filepath.Join(dir, "backups", "memecoin_data_2024-03-01T12-30-45-678Z.json")
	snapBody, err := os.ReadFile(snapshot)
	if err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	mainBody, _ := os.ReadFile(filepath.Join(dir, "memecoin_data.json"))
	if string(snapBody) != string(mainBody) {
		t.Error("snapshot content differs from the main document")
	}
	if !strings.Contains(string(mainBody), `"market_cap_rank": 8`) {
		t.Errorf("document is not pretty-printed with snake_case keys:\n%s", mainBody)
	}
}

func TestSave_RetentionKeepsNewestSnapshots(t *testing.T) {
	store, _ := newTestStore(t, 2)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		store.now = func() time.Time { return ts }
		if err := store.Save(sampleDataset()); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	files, err := store.Snapshots()
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("kept %d snapshots, want 2: %v", len(files), files)
	}
	if !strings.HasSuffix(files[1], "2024-03-01T00-03-00-000Z.json") {
		t.Errorf("newest snapshot = %s", files[1])
	}
}

func TestSocialRoundTrip(t *testing.T) {
	store, dir := newTestStore(t, 0)

	empty, err := store.LoadSocial()
	if err != nil || len(empty) != 0 {
		t.Fatalf("LoadSocial on missing file = %v, %v", empty, err)
	}

	results := entity.SocialResults{
		"dogecoin": []byte(`{"timeline":[{"text":"wow"}]}`),
		"pepe":     entity.NullPayload,
	}
	if err := store.SaveSocial(results); err != nil {
		t.Fatalf("SaveSocial: %v", err)
	}

	body, _ := os.ReadFile(filepath.Join(dir, "memecoin_tweets.json"))
	if !strings.Contains(string(body), `"pepe": null`) {
		t.Errorf("failed search should be stored as null:\n%s", body)
	}

	got, err := store.LoadSocial()
	if err != nil {
		t.Fatalf("LoadSocial: %v", err)
	}
	if p := string(got["pepe"]); p != "null" && p != "" {
		t.Errorf("pepe = %s", got["pepe"])
	}
	if !strings.Contains(string(got["dogecoin"]), `"wow"`) {
		t.Errorf("dogecoin = %s", got["dogecoin"])
	}
}
