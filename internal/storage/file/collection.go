// Package file persists the collection as a single JSON document read
// directly by the display layer.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerbrief/internal/common"
	"github.com/ternarybob/tickerbrief/internal/models"
	"github.com/tidwall/gjson"
)

// CollectionStorage reads and atomically replaces the collection file
type CollectionStorage struct {
	path   string
	logger arbor.ILogger
}

// NewCollectionStorage creates a store for the file at config.Path
func NewCollectionStorage(config *common.FileConfig, logger arbor.ILogger) *CollectionStorage {
	return &CollectionStorage{
		path:   config.Path,
		logger: logger,
	}
}

// Path returns the collection file location
func (s *CollectionStorage) Path() string {
	return s.path
}

// Load returns the stored collection in file order. A missing or empty
// file is an empty collection. Both the array layout and the older
// object-keyed-by-id layout are accepted; a record that cannot be read is
// skipped rather than failing the whole file.
func (s *CollectionStorage) Load(ctx context.Context) ([]*models.Report, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug().Str("path", s.path).Msg("Collection file not found, starting empty")
			return []*models.Report{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []*models.Report{}, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("failed to parse %s: invalid JSON", s.path)
	}

	root := gjson.ParseBytes(data)
	if root.Type == gjson.Null {
		return []*models.Report{}, nil
	}

	if !root.IsArray() && !root.IsObject() {
		return nil, fmt.Errorf("failed to parse %s: expected array or object, got %s", s.path, root.Type)
	}
	if root.IsObject() {
		s.logger.Info().Str("path", s.path).Msg("Loading id-keyed collection, will be rewritten as an array")
	}

	// Array index keys are not ids; only the keyed layout supplies one
	reports := []*models.Report{}
	skipped := 0
	root.ForEach(func(key, value gjson.Result) bool {
		fallbackID := ""
		if root.IsObject() {
			fallbackID = key.String()
		}
		r, ok := decodeRecord(value, fallbackID)
		if !ok {
			skipped++
			s.logger.Warn().Str("path", s.path).Str("key", key.String()).Msg("Skipping unreadable record")
			return true
		}
		reports = append(reports, r)
		return true
	})

	s.logger.Debug().Str("path", s.path).Int("count", len(reports)).Int("skipped", skipped).Msg("Collection loaded")
	return reports, nil
}

// Save writes the collection to a temp file beside the target and renames
// it over the target, so readers see either the old or the new document.
func (s *CollectionStorage) Save(ctx context.Context, reports []*models.Report) error {
	if reports == nil {
		reports = []*models.Report{}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Non-ASCII names and commentary are written as-is
	encoder := json.NewEncoder(tmpFile)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(reports); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode collection: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		s.logger.Debug().Err(err).Str("path", tmpPath).Msg("Failed to relax temp file mode")
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.logger.Debug().Str("path", s.path).Int("count", len(reports)).Msg("Collection saved")
	return nil
}

// Close is a no-op; the file is not held open between calls
func (s *CollectionStorage) Close() error {
	return nil
}
