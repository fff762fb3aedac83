package store

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/hoerspielapp/hoerspiel-server/internal/domain"
)

const tracksPrefix = "tracks:"

// GetTracks retrieves the cached track list for an item, sorted by index.
// An empty cached list counts as a miss; an empty list is never a valid
// track listing.
func (s *Store) GetTracks(ctx context.Context, itemID string) ([]domain.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var tracks []domain.Track
	err := s.get([]byte(tracksPrefix+itemID), &tracks)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrTracksNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, ErrTracksNotFound
	}

	domain.SortTracks(tracks)
	return tracks, nil
}

// SetTracks caches the track list for an item.
func (s *Store) SetTracks(ctx context.Context, itemID string, tracks []domain.Track) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.set([]byte(tracksPrefix+itemID), tracks)
}

// DeleteTracks drops the cached track list for an item.
func (s *Store) DeleteTracks(ctx context.Context, itemID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.delete([]byte(tracksPrefix + itemID))
}

// HasTracks reports whether a cached track list exists for an item.
func (s *Store) HasTracks(ctx context.Context, itemID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.exists([]byte(tracksPrefix + itemID))
}
