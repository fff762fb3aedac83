package store

import (
	"context"
	"errors"

	"github.com/hoerspielapp/hoerspiel-server/internal/domain"
)

// CreateSeries stores a new series and updates the search index.
func (s *Store) CreateSeries(ctx context.Context, sr *domain.Series) error {
	if err := s.Series.Create(ctx, sr.ID, sr); err != nil {
		return err
	}
	s.indexSeriesAsync(sr)
	return nil
}

// GetSeries retrieves a series by ID.
func (s *Store) GetSeries(ctx context.Context, id string) (*domain.Series, error) {
	sr, err := s.Series.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrSeriesNotFound
	}
	return sr, err
}

// GetSeriesByName retrieves a series by its exact name.
func (s *Store) GetSeriesByName(ctx context.Context, name string) (*domain.Series, error) {
	sr, err := s.Series.GetByIndex(ctx, "name", name)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrSeriesNotFound
	}
	return sr, err
}

// UpdateSeries replaces a series and updates the search index.
func (s *Store) UpdateSeries(ctx context.Context, sr *domain.Series) error {
	if err := s.Series.Update(ctx, sr.ID, sr); err != nil {
		return err
	}
	s.indexSeriesAsync(sr)
	return nil
}

// ListSeries returns all series.
func (s *Store) ListSeries(ctx context.Context) ([]*domain.Series, error) {
	var all []*domain.Series
	for sr, err := range s.Series.List(ctx) {
		if err != nil {
			return nil, err
		}
		all = append(all, sr)
	}
	return all, nil
}

// DeleteSeries removes a series and cascades to its items. The series owns
// its items; an orphaned item without a series has no meaning in the library.
func (s *Store) DeleteSeries(ctx context.Context, id string) error {
	items, err := s.GetItemsForSeries(ctx, id)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := s.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
	}

	if err := s.Series.Delete(ctx, id); err != nil {
		return err
	}

	if s.searchIndexer != nil {
		go func() {
			if err := s.searchIndexer.DeleteSeries(context.Background(), id); err != nil && s.logger != nil {
				s.logger.Warn("failed to remove series from search index", "series_id", id, "error", err)
			}
		}()
	}
	return nil
}

// indexSeriesAsync pushes a series into the search index without blocking.
func (s *Store) indexSeriesAsync(sr *domain.Series) {
	if s.searchIndexer == nil {
		return
	}
	snapshot := *sr
	go func() {
		if err := s.searchIndexer.IndexSeries(context.Background(), &snapshot); err != nil && s.logger != nil {
			s.logger.Warn("failed to index series", "series_id", snapshot.ID, "error", err)
		}
	}()
}
