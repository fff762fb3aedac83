// Package service contains the application services gluing the store, the
// catalog client, and the playback calculations together.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/hoerspielapp/hoerspiel-server/internal/catalog"
	"github.com/hoerspielapp/hoerspiel-server/internal/domain"
	"github.com/hoerspielapp/hoerspiel-server/internal/errors"
	"github.com/hoerspielapp/hoerspiel-server/internal/store"
)

// CatalogClient is the subset of the catalog API the track resolver needs.
type CatalogClient interface {
	LookupAlbum(ctx context.Context, catalogID string) (*catalog.Album, error)
	LookupByUPC(ctx context.Context, upc string) (*catalog.Album, error)
}

// TrackService resolves ordered track lists for items, preferring the local
// cache and falling back to the remote catalog.
type TrackService struct {
	store   *store.Store
	catalog CatalogClient
	logger  *slog.Logger
}

// NewTrackService creates a new track service.
func NewTrackService(st *store.Store, cat CatalogClient, logger *slog.Logger) *TrackService {
	return &TrackService{
		store:   st,
		catalog: cat,
		logger:  logger,
	}
}

// resolutionStrategy is one way of obtaining a track list. Strategies are
// tried in order; each either yields a non-empty list or passes to the next.
type resolutionStrategy struct {
	name string
	run  func(ctx context.Context, item *domain.Item) ([]domain.Track, error)
}

// ResolveTracks returns the ordered track list for an item. The local cache
// wins; on a miss the catalog is consulted by id, then by UPC, and a
// successful remote result populates the cache without blocking the caller.
// When every path is exhausted the error carries the track-load code.
func (s *TrackService) ResolveTracks(ctx context.Context, itemID string) ([]domain.Track, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	strategies := []resolutionStrategy{
		{name: "cache", run: s.fromCache},
		{name: "catalog-id", run: s.fromCatalogID},
		{name: "catalog-upc", run: s.fromCatalogUPC},
	}

	var lastErr error
	for _, strat := range strategies {
		tracks, err := strat.run(ctx, item)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Debug("track resolution strategy failed",
				"strategy", strat.name,
				"item_id", itemID,
				"error", err,
			)
			lastErr = err
			continue
		}
		if len(tracks) == 0 {
			continue
		}

		if strat.name != "cache" {
			s.populateCacheAsync(itemID, tracks)
		}
		return tracks, nil
	}

	return nil, errors.TrackLoad("unable to load tracks").
		WithDetails(map[string]any{"item_id": itemID}).
		WithCause(lastErr)
}

// fromCache reads the locally cached track list. An empty list is a miss.
func (s *TrackService) fromCache(ctx context.Context, item *domain.Item) ([]domain.Track, error) {
	return s.store.GetTracks(ctx, item.ID)
}

// fromCatalogID expands the item's catalog reference into tracks.
func (s *TrackService) fromCatalogID(ctx context.Context, item *domain.Item) ([]domain.Track, error) {
	if item.CatalogID == "" {
		return nil, errors.NotFound("item has no catalog reference")
	}
	album, err := s.catalog.LookupAlbum(ctx, item.CatalogID)
	if err != nil {
		return nil, err
	}
	return albumToTracks(album, item), nil
}

// fromCatalogUPC re-resolves the item through its UPC, the stable identity
// that survives catalog id churn.
func (s *TrackService) fromCatalogUPC(ctx context.Context, item *domain.Item) ([]domain.Track, error) {
	if item.UPC == "" {
		return nil, errors.NotFound("item has no UPC")
	}
	album, err := s.catalog.LookupByUPC(ctx, item.UPC)
	if err != nil {
		return nil, err
	}
	return albumToTracks(album, item), nil
}

// populateCacheAsync writes a freshly resolved track list to the cache.
// The caller already has its data; a failed write is logged, never surfaced.
func (s *TrackService) populateCacheAsync(itemID string, tracks []domain.Track) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.store.SetTracks(ctx, itemID, tracks); err != nil {
			s.logger.Warn("failed to cache track list", "item_id", itemID, "error", err)
		}
	}()
}

// albumToTracks maps a catalog album's track listing to domain tracks.
// Index is the position in the returned collection.
func albumToTracks(album *catalog.Album, item *domain.Item) []domain.Track {
	prerelease := item.IsPrerelease(time.Now())
	tracks := make([]domain.Track, 0, len(album.Tracks))
	for i, t := range album.Tracks {
		tracks = append(tracks, domain.Track{
			Title:      t.Title,
			Duration:   t.DurationSeconds(),
			CatalogRef: t.CatalogID,
			Index:      i,
			Role:       domain.DeriveTrackRole(t.Title, prerelease),
		})
	}
	return tracks
}
