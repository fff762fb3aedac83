package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hoerspielapp/hoerspiel-server/internal/domain"
)

const itemPrefix = "item:"

// CreateItem stores a new item and updates the search index.
func (s *Store) CreateItem(ctx context.Context, item *domain.Item) error {
	if err := s.Items.Create(ctx, item.ID, item); err != nil {
		return err
	}
	s.indexItemAsync(item)
	return nil
}

// GetItem retrieves an item by ID.
func (s *Store) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	item, err := s.Items.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrItemNotFound
	}
	return item, err
}

// GetItemByUPC retrieves an item by its catalog identity.
func (s *Store) GetItemByUPC(ctx context.Context, upc string) (*domain.Item, error) {
	item, err := s.Items.GetByIndex(ctx, "upc", upc)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrItemNotFound
	}
	return item, err
}

// UpdateItem replaces an item and updates the search index.
func (s *Store) UpdateItem(ctx context.Context, item *domain.Item) error {
	if err := s.Items.Update(ctx, item.ID, item); err != nil {
		return err
	}
	s.indexItemAsync(item)
	return nil
}

// DeleteItem removes an item and its search index entry.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	if err := s.Items.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.DeleteTracks(ctx, id); err != nil && s.logger != nil {
		s.logger.Warn("failed to delete cached tracks", "item_id", id, "error", err)
	}
	if s.searchIndexer != nil {
		go func() {
			if err := s.searchIndexer.DeleteItem(context.Background(), id); err != nil && s.logger != nil {
				s.logger.Warn("failed to remove item from search index", "item_id", id, "error", err)
			}
		}()
	}
	return nil
}

// ListItems returns all items.
func (s *Store) ListItems(ctx context.Context) ([]*domain.Item, error) {
	var items []*domain.Item
	for item, err := range s.Items.List(ctx) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// GetItemsForSeries returns all items referencing the given series.
func (s *Store) GetItemsForSeries(ctx context.Context, seriesID string) ([]*domain.Item, error) {
	var items []*domain.Item
	for item, err := range s.Items.List(ctx) {
		if err != nil {
			return nil, err
		}
		if item.SeriesID == seriesID {
			items = append(items, item)
		}
	}
	return items, nil
}

// GetUpNext returns the Up Next queue ordered by when items were added.
func (s *Store) GetUpNext(ctx context.Context) ([]*domain.Item, error) {
	var items []*domain.Item
	for item, err := range s.Items.List(ctx) {
		if err != nil {
			return nil, err
		}
		if item.UpNext {
			items = append(items, item)
		}
	}

	slices.SortFunc(items, func(a, b *domain.Item) int {
		switch {
		case a.AddedToUpNextAt == nil && b.AddedToUpNextAt == nil:
			return 0
		case a.AddedToUpNextAt == nil:
			return 1
		case b.AddedToUpNextAt == nil:
			return -1
		default:
			return a.AddedToUpNextAt.Compare(*b.AddedToUpNextAt)
		}
	})
	return items, nil
}

// GetRecentlyPlayed returns started items sorted by most recent play first.
func (s *Store) GetRecentlyPlayed(ctx context.Context, limit int) ([]*domain.Item, error) {
	var items []*domain.Item
	for item, err := range s.Items.List(ctx) {
		if err != nil {
			return nil, err
		}
		if item.LastPlayedAt != nil {
			items = append(items, item)
		}
	}

	slices.SortFunc(items, func(a, b *domain.Item) int {
		return b.LastPlayedAt.Compare(*a.LastPlayedAt)
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// ProgressUpdate is the closed set of progress fields a session end may
// write back. Field updates go through this command rather than arbitrary
// item mutation so concurrent writers stay analyzable.
type ProgressUpdate struct {
	PlayedUpToSeconds int
	MarkPlayed        bool
	ClearUpNext       bool
	PlayedAt          time.Time
}

// ApplyProgress writes a progress update to an item. Concurrent updates to
// the same item are resolved newest-wins: an update whose PlayedAt is older
// than the item's recorded LastPlayedAt is dropped, never blindly merged.
// Returns true when the update was applied.
func (s *Store) ApplyProgress(ctx context.Context, id string, update ProgressUpdate) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	applied := false
	err := s.mutateItem(id, func(item *domain.Item) bool {
		if item.LastPlayedAt != nil && item.LastPlayedAt.After(update.PlayedAt) {
			return false
		}

		item.PlayedUpToSeconds = update.PlayedUpToSeconds
		if update.MarkPlayed {
			item.Played = true
			item.PlayedUpToSeconds = 0
		}
		if update.ClearUpNext {
			item.UpNext = false
			item.AddedToUpNextAt = nil
		}
		playedAt := update.PlayedAt
		item.LastPlayedAt = &playedAt
		item.Touch()
		applied = true
		return true
	})
	return applied, err
}

// UpdatePlayedUpTo sets only the cumulative progress offset.
func (s *Store) UpdatePlayedUpTo(ctx context.Context, id string, seconds int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.mutateItem(id, func(item *domain.Item) bool {
		item.PlayedUpToSeconds = seconds
		item.Touch()
		return true
	})
}

// UpdatePlayedFlag sets the played flag. Marking an item played resets its
// progress so a replay starts from zero.
func (s *Store) UpdatePlayedFlag(ctx context.Context, id string, played bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.mutateItem(id, func(item *domain.Item) bool {
		item.Played = played
		if played {
			item.PlayedUpToSeconds = 0
		}
		item.Touch()
		return true
	})
}

// SetUpNext adds or removes the item from the Up Next queue.
func (s *Store) SetUpNext(ctx context.Context, id string, upNext bool, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.mutateItem(id, func(item *domain.Item) bool {
		if upNext {
			item.AddToUpNext(at)
		} else {
			item.RemoveFromUpNext()
		}
		return true
	})
}

// UpdateDuration corrects the stored total duration after the track list
// revealed drift.
func (s *Store) UpdateDuration(ctx context.Context, id string, seconds float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.mutateItem(id, func(item *domain.Item) bool {
		item.DurationSeconds = seconds
		item.Touch()
		return true
	})
}

// mutateItem loads an item, applies fn, and writes it back in one
// transaction. fn returning false skips the write. Safe only for mutations
// that never change indexed fields (UPC).
func (s *Store) mutateItem(id string, fn func(*domain.Item) bool) error {
	key := []byte(itemPrefix + id)

	return s.db.Update(func(txn *badger.Txn) error {
		dbItem, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrItemNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get item: %w", err)
		}

		var item domain.Item
		if err := dbItem.Value(func(val []byte) error {
			return json.Unmarshal(val, &item)
		}); err != nil {
			return fmt.Errorf("failed to unmarshal item: %w", err)
		}

		if !fn(&item) {
			return nil
		}

		data, err := json.Marshal(&item)
		if err != nil {
			return fmt.Errorf("failed to marshal item: %w", err)
		}
		return txn.Set(key, data)
	})
}

// indexItemAsync pushes an item into the search index without blocking the
// store operation that triggered it.
func (s *Store) indexItemAsync(item *domain.Item) {
	if s.searchIndexer == nil {
		return
	}
	snapshot := *item
	go func() {
		if err := s.searchIndexer.IndexItem(context.Background(), &snapshot); err != nil && s.logger != nil {
			s.logger.Warn("failed to index item", "item_id", snapshot.ID, "error", err)
		}
	}()
}
