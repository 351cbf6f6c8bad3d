package storage

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerbrief/internal/common"
	"github.com/ternarybob/tickerbrief/internal/interfaces"
	"github.com/ternarybob/tickerbrief/internal/storage/badger"
	"github.com/ternarybob/tickerbrief/internal/storage/file"
)

// NewStorageManager creates a new storage manager based on config
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	switch strings.ToLower(config.Storage.Type) {
	case "", "file":
		return file.NewManager(logger, &config.Storage.File), nil
	case "badger":
		return badger.NewManager(logger, &config.Storage.Badger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (expected 'file' or 'badger')", config.Storage.Type)
	}
}
