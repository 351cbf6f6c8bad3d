package file

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerbrief/internal/common"
	"github.com/ternarybob/tickerbrief/internal/interfaces"
)

// Manager implements the StorageManager interface for the JSON file backend.
// It records no run history.
type Manager struct {
	collection *CollectionStorage
}

// NewManager creates a new file storage manager
func NewManager(logger arbor.ILogger, config *common.FileConfig) interfaces.StorageManager {
	logger.Info().Str("path", config.Path).Msg("File storage manager initialized")
	return &Manager{collection: NewCollectionStorage(config, logger)}
}

// CollectionStorage returns the collection storage interface
func (m *Manager) CollectionStorage() interfaces.CollectionStorage {
	return m.collection
}

// KeyValueStorage returns nil; the file backend keeps no key/value state
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return nil
}

// Close releases nothing
func (m *Manager) Close() error {
	return nil
}
