package interfaces

import (
	"context"

	"github.com/ternarybob/tickerbrief/internal/models"
)

// CollectionStorage persists the ordered report collection.
// Save replaces the whole collection; a partial write must never become visible.
type CollectionStorage interface {
	Load(ctx context.Context) ([]*models.Report, error)
	Save(ctx context.Context, reports []*models.Report) error
	Close() error
}

// StorageManager owns the configured backend.
// KeyValueStorage returns nil when the backend keeps no run history.
type StorageManager interface {
	CollectionStorage() CollectionStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
