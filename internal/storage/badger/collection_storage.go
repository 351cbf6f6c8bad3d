package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerbrief/internal/interfaces"
	"github.com/ternarybob/tickerbrief/internal/models"
)

// reportRecord is one stored report with its place in the collection
type reportRecord struct {
	ID       string
	Position int
	Report   models.Report
}

// CollectionStorage keeps the collection as one record per id
type CollectionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCollectionStorage creates a new CollectionStorage instance
func NewCollectionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CollectionStorage {
	return &CollectionStorage{
		db:     db,
		logger: logger,
	}
}

// Load returns every stored report in collection order
func (s *CollectionStorage) Load(ctx context.Context) ([]*models.Report, error) {
	var records []reportRecord
	if err := s.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Position < records[j].Position
	})

	reports := make([]*models.Report, 0, len(records))
	for i := range records {
		r := records[i].Report
		r.Normalize()
		reports = append(reports, &r)
	}

	s.logger.Debug().Int("count", len(reports)).Msg("Collection loaded")
	return reports, nil
}

// Save replaces the collection in a single transaction; ids missing from
// reports are removed.
func (s *CollectionStorage) Save(ctx context.Context, reports []*models.Report) error {
	store := s.db.Store()

	err := store.Badger().Update(func(txn *badger.Txn) error {
		var existing []reportRecord
		if err := store.TxFind(txn, &existing, nil); err != nil {
			return fmt.Errorf("failed to read existing records: %w", err)
		}

		keep := make(map[string]bool, len(reports))
		for i, r := range reports {
			if r == nil || r.ID == "" {
				continue
			}
			keep[r.ID] = true
			record := reportRecord{ID: r.ID, Position: i, Report: *r}
			if err := store.TxUpsert(txn, r.ID, &record); err != nil {
				return fmt.Errorf("failed to store %s: %w", r.ID, err)
			}
		}

		for _, old := range existing {
			if keep[old.ID] {
				continue
			}
			if err := store.TxDelete(txn, old.ID, &reportRecord{}); err != nil {
				return fmt.Errorf("failed to remove %s: %w", old.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save collection: %w", err)
	}

	s.logger.Debug().Int("count", len(reports)).Msg("Collection saved")
	return nil
}

// Close is owned by the manager
func (s *CollectionStorage) Close() error {
	return nil
}
