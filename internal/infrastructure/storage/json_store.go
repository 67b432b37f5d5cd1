package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"memecoin_tracker/internal/app/port"
	"memecoin_tracker/internal/config"
	"memecoin_tracker/internal/domain/entity"
	"memecoin_tracker/internal/pkg/utils"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	snapshotPrefix = "memecoin_data_"
	snapshotSuffix = ".json"
	// UTC ISO-8601 with milliseconds; ':' and '.' are replaced before use in a file name.
	snapshotTimeLayout = "2006-01-02T15:04:05.000Z"
)

// ErrCorruptDocument is returned when a persisted document exists but cannot be decoded.
var ErrCorruptDocument = errors.New("corrupt document")

// JSONStore keeps the dataset and the social results as pretty-printed JSON documents
// and writes a timestamped snapshot of the dataset on every save.
type JSONStore struct {
	dataFile   string
	backupDir  string
	socialFile string
	retention  int
	logger     port.Logger
	now        func() time.Time
}

var _ port.TokenStore = (*JSONStore)(nil)

// NewJSONStore creates a store for the files named in cfg.
func NewJSONStore(cfg config.StorageConfig, logger port.Logger) *JSONStore {
	return &JSONStore{
		dataFile:   cfg.DataFile,
		backupDir:  cfg.BackupDir,
		socialFile: cfg.SocialFile,
		retention:  cfg.SnapshotRetention,
		logger:     logger,
		now:        time.Now,
	}
}

// Load implements port.TokenStore.
func (s *JSONStore) Load() (entity.Dataset, error) {
	data := entity.Dataset{}
	found, err := s.readDocument(s.dataFile, &data)
	if err != nil {
		return nil, err
	}
	if !found {
		s.logger.Info("No existing dataset, starting empty", "path", s.dataFile)
		return entity.Dataset{}, nil
	}
	for id, rec := range data {
		if rec == nil {
			delete(data, id)
		}
	}
	s.logger.Info("Loaded existing dataset", "path", s.dataFile, "tokens", len(data))
	return data, nil
}

// Save implements port.TokenStore. The main document is replaced atomically before the snapshot is written.
func (s *JSONStore) Save(data entity.Dataset) error {
	body, err := encode(data)
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	if err := utils.WriteFileAtomic(s.dataFile, body); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}

	snapshot := s.SnapshotPath(s.now())
	if err := utils.WriteFileAtomic(snapshot, body); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	s.logger.Debug("Snapshot saved", "path", snapshot, "tokens", len(data))

	if s.retention > 0 {
		if err := s.Cleanup(s.retention); err != nil {
			s.logger.Warn("Failed to clean up old snapshots", "dir", s.backupDir, "error", err)
		}
	}
	return nil
}

// SnapshotPath returns the snapshot file name for a save at t.
func (s *JSONStore) SnapshotPath(t time.Time) string {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(t.UTC().Format(snapshotTimeLayout))
	return filepath.Join(s.backupDir, snapshotPrefix+stamp+snapshotSuffix)
}

// Snapshots lists snapshot files, oldest first.
func (s *JSONStore) Snapshots() ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot dir %s: %w", s.backupDir, err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}
		files = append(files, filepath.Join(s.backupDir, name))
	}
	// Timestamps are fixed width, so lexical order is chronological.
	sort.Strings(files)
	return files, nil
}

// Cleanup removes old snapshots, keeping only the latest keepCount.
func (s *JSONStore) Cleanup(keepCount int) error {
	files, err := s.Snapshots()
	if err != nil {
		return err
	}
	if keepCount < 0 || len(files) <= keepCount {
		return nil
	}

	for _, path := range files[:len(files)-keepCount] {
		if err := os.Remove(path); err != nil {
			s.logger.Warn("Failed to remove old snapshot", "path", path, "error", err)
			continue
		}
		s.logger.Debug("Removed old snapshot", "path", path)
	}
	return nil
}

// LoadSocial implements port.TokenStore.
func (s *JSONStore) LoadSocial() (entity.SocialResults, error) {
	results := entity.SocialResults{}
	found, err := s.readDocument(s.socialFile, &results)
	if err != nil {
		return nil, err
	}
	if !found {
		return entity.SocialResults{}, nil
	}
	return results, nil
}

// SaveSocial implements port.TokenStore.
func (s *JSONStore) SaveSocial(results entity.SocialResults) error {
	body, err := encode(results)
	if err != nil {
		return fmt.Errorf("failed to encode social results: %w", err)
	}
	if err := utils.WriteFileAtomic(s.socialFile, body); err != nil {
		return fmt.Errorf("failed to write social results: %w", err)
	}
	s.logger.Info("Social results saved", "path", s.socialFile, "tokens", len(results))
	return nil
}

// readDocument decodes path into v. It reports found=false when the file does not exist.
func (s *JSONStore) readDocument(path string, v any) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("%w: failed to decode %s: %v", ErrCorruptDocument, path, err)
	}
	return true, nil
}

func encode(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
