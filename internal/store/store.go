// Package store persists items, series, and cached track lists in a Badger
// database. It is the single source of truth for playback progress fields.
package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/hoerspielapp/hoerspiel-server/internal/domain"
)

// SearchIndexer keeps the search index in sync with store changes without
// the store depending on the search implementation. Index updates run
// asynchronously so they never block store operations.
type SearchIndexer interface {
	IndexItem(ctx context.Context, item *domain.Item) error
	DeleteItem(ctx context.Context, itemID string) error
	IndexSeries(ctx context.Context, s *domain.Series) error
	DeleteSeries(ctx context.Context, seriesID string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexItem is a no-op.
func (NoopSearchIndexer) IndexItem(context.Context, *domain.Item) error { return nil }

// DeleteItem is a no-op.
func (NoopSearchIndexer) DeleteItem(context.Context, string) error { return nil }

// IndexSeries is a no-op.
func (NoopSearchIndexer) IndexSeries(context.Context, *domain.Series) error { return nil }

// DeleteSeries is a no-op.
func (NoopSearchIndexer) DeleteSeries(context.Context, string) error { return nil }

// NewNoopSearchIndexer creates a new no-op search indexer for testing.
func NewNoopSearchIndexer() SearchIndexer {
	return NoopSearchIndexer{}
}

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Search indexer for keeping search in sync with store changes.
	// Set via SetSearchIndexer after store creation to avoid circular dependencies.
	searchIndexer SearchIndexer

	// Generic entities
	Items  *Entity[domain.Item]
	Series *Entity[domain.Series]
}

// New creates a new Store instance with the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}

	store.initItems()
	store.initSeries()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// SetSearchIndexer sets the search indexer for keeping search in sync.
// Set after store creation because the search service needs an existing
// store to be built.
func (s *Store) SetSearchIndexer(indexer SearchIndexer) {
	s.searchIndexer = indexer
}

// initItems initializes the Items entity. Items are indexed by UPC, the
// stable cross-system identity.
func (s *Store) initItems() {
	s.Items = NewEntity[domain.Item](s, "item:").
		WithIndex("upc", func(i *domain.Item) []string {
			if i.UPC == "" {
				return nil
			}
			return []string{i.UPC}
		})
}

// initSeries initializes the Series entity, indexed by name.
func (s *Store) initSeries() {
	s.Series = NewEntity[domain.Series](s, "series:").
		WithIndex("name", func(sr *domain.Series) []string {
			if sr.Name == "" {
				return nil
			}
			return []string{sr.Name}
		})
}

// Helper methods for database operations.

// get retrieves a value by key.
func (s *Store) get(key []byte, dest any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

// set stores a value by key.
func (s *Store) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// delete removes a key from the database.
func (s *Store) delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// exists checks if a key exists.
func (s *Store) exists(key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
