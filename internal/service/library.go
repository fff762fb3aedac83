package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/hoerspielapp/hoerspiel-server/internal/catalog"
	"github.com/hoerspielapp/hoerspiel-server/internal/domain"
	"github.com/hoerspielapp/hoerspiel-server/internal/errors"
	"github.com/hoerspielapp/hoerspiel-server/internal/id"
	"github.com/hoerspielapp/hoerspiel-server/internal/store"
	"github.com/hoerspielapp/hoerspiel-server/internal/validation"
)

// LibraryCatalog is the subset of the catalog API the library needs.
type LibraryCatalog interface {
	LookupByUPC(ctx context.Context, upc string) (*catalog.Album, error)
	SearchAlbums(ctx context.Context, term string) ([]*catalog.Album, error)
}

// LibraryService manages the library of items and series.
type LibraryService struct {
	store     *store.Store
	catalog   LibraryCatalog
	validator *validation.Validator
	logger    *slog.Logger
}

// NewLibraryService creates a new library service.
func NewLibraryService(st *store.Store, cat LibraryCatalog, v *validation.Validator, logger *slog.Logger) *LibraryService {
	return &LibraryService{
		store:     st,
		catalog:   cat,
		validator: v,
		logger:    logger,
	}
}

// ImportRequest adds a catalog album to the library by UPC.
type ImportRequest struct {
	UPC string `json:"upc" validate:"required,numeric,min=8,max=14"`
}

// ImportItem looks an album up by UPC and stores it as a library item. The
// artist becomes the item's series, created on first use. Track listings are
// cached immediately so the first playback does not need a second lookup.
func (s *LibraryService) ImportItem(ctx context.Context, req ImportRequest) (*domain.Item, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if existing, err := s.store.GetItemByUPC(ctx, req.UPC); err == nil {
		return nil, errors.AlreadyExists("item already in library").
			WithDetails(map[string]any{"item_id": existing.ID, "upc": req.UPC})
	} else if !errors.Is(err, store.ErrItemNotFound) {
		return nil, err
	}

	album, err := s.catalog.LookupByUPC(ctx, req.UPC)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, errors.NotFoundf("no catalog album for UPC %s", req.UPC)
		}
		return nil, errors.Unavailable("catalog lookup failed").WithCause(err)
	}

	series, err := s.findOrCreateSeries(ctx, album.Artist)
	if err != nil {
		return nil, err
	}

	itemID, err := id.Generate("itm")
	if err != nil {
		return nil, errors.Internal("generate item id").WithCause(err)
	}

	item := &domain.Item{
		Title:           album.Title,
		Artist:          album.Artist,
		UPC:             album.UPC,
		ReleaseDate:     album.ReleaseDate,
		SeriesID:        series.ID,
		SeriesName:      series.Name,
		CatalogID:       album.CatalogID,
		ArtworkURL:      album.ArtworkURLTemplate,
		Description:     album.EditorialNotes,
		DurationSeconds: albumDurationSeconds(album),
	}
	item.ID = itemID
	item.InitTimestamps()

	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	if len(album.Tracks) > 0 {
		tracks := albumToTracks(album, item)
		if err := s.store.SetTracks(ctx, item.ID, tracks); err != nil {
			s.logger.Warn("failed to cache tracks on import", "item_id", item.ID, "error", err)
		}
	}

	series.ItemCount++
	series.Touch()
	if err := s.store.UpdateSeries(ctx, series); err != nil {
		s.logger.Warn("failed to update series item count", "series_id", series.ID, "error", err)
	}

	s.logger.Info("item imported", "item_id", item.ID, "title", item.Title, "series", series.Name)
	return item, nil
}

// findOrCreateSeries resolves the series for an artist name, creating it on
// first sight.
func (s *LibraryService) findOrCreateSeries(ctx context.Context, name string) (*domain.Series, error) {
	if name == "" {
		return nil, errors.Validation("album has no artist name")
	}

	series, err := s.store.GetSeriesByName(ctx, name)
	if err == nil {
		return series, nil
	}
	if !errors.Is(err, store.ErrSeriesNotFound) {
		return nil, err
	}

	seriesID, err := id.Generate("ser")
	if err != nil {
		return nil, errors.Internal("generate series id").WithCause(err)
	}

	series = &domain.Series{Name: name}
	series.ID = seriesID
	series.InitTimestamps()

	if err := s.store.CreateSeries(ctx, series); err != nil {
		// Lost a race against a concurrent import of the same artist.
		if errors.Is(err, errors.ErrAlreadyExists) {
			return s.store.GetSeriesByName(ctx, name)
		}
		return nil, err
	}
	return series, nil
}

// GetItem returns a single item.
func (s *LibraryService) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	return s.store.GetItem(ctx, itemID)
}

// ListItems returns all library items.
func (s *LibraryService) ListItems(ctx context.Context) ([]*domain.Item, error) {
	return s.store.ListItems(ctx)
}

// DeleteItem removes an item and its cached tracks.
func (s *LibraryService) DeleteItem(ctx context.Context, itemID string) error {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteItem(ctx, itemID); err != nil {
		return err
	}
	s.decrementSeriesCount(ctx, item.SeriesID)
	return nil
}

func (s *LibraryService) decrementSeriesCount(ctx context.Context, seriesID string) {
	if seriesID == "" {
		return
	}
	series, err := s.store.GetSeries(ctx, seriesID)
	if err != nil {
		return
	}
	if series.ItemCount > 0 {
		series.ItemCount--
	}
	series.Touch()
	if err := s.store.UpdateSeries(ctx, series); err != nil {
		s.logger.Warn("failed to update series item count", "series_id", seriesID, "error", err)
	}
}

// ListSeries returns all series.
func (s *LibraryService) ListSeries(ctx context.Context) ([]*domain.Series, error) {
	return s.store.ListSeries(ctx)
}

// GetSeriesItems returns a series together with its items.
func (s *LibraryService) GetSeriesItems(ctx context.Context, seriesID string) (*domain.Series, []*domain.Item, error) {
	series, err := s.store.GetSeries(ctx, seriesID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.store.GetItemsForSeries(ctx, seriesID)
	if err != nil {
		return nil, nil, err
	}
	return series, items, nil
}

// DeleteSeries removes a series and all of its items.
func (s *LibraryService) DeleteSeries(ctx context.Context, seriesID string) error {
	return s.store.DeleteSeries(ctx, seriesID)
}

// SetUpNext adds the item to or removes it from the Up Next queue.
func (s *LibraryService) SetUpNext(ctx context.Context, itemID string, upNext bool) error {
	return s.store.SetUpNext(ctx, itemID, upNext, time.Now())
}

// GetUpNext returns the Up Next queue in insertion order.
func (s *LibraryService) GetUpNext(ctx context.Context) ([]*domain.Item, error) {
	return s.store.GetUpNext(ctx)
}

// GetRecentlyPlayed returns the most recently played items.
func (s *LibraryService) GetRecentlyPlayed(ctx context.Context, limit int) ([]*domain.Item, error) {
	return s.store.GetRecentlyPlayed(ctx, limit)
}

// SetPlayed flags an item as played or unplayed. Marking played resets
// progress and drops the item from Up Next.
func (s *LibraryService) SetPlayed(ctx context.Context, itemID string, played bool) error {
	if err := s.store.UpdatePlayedFlag(ctx, itemID, played); err != nil {
		return err
	}
	if played {
		if err := s.store.SetUpNext(ctx, itemID, false, time.Now()); err != nil {
			return err
		}
	}
	return nil
}

// SearchCatalog proxies a free-text album search against the remote catalog.
func (s *LibraryService) SearchCatalog(ctx context.Context, term string) ([]*catalog.Album, error) {
	if term == "" {
		return nil, errors.Validation("search term must not be empty")
	}
	albums, err := s.catalog.SearchAlbums(ctx, term)
	if err != nil {
		return nil, errors.Unavailable("catalog search failed").WithCause(err)
	}
	return albums, nil
}

// albumDurationSeconds sums track durations from the catalog listing.
func albumDurationSeconds(album *catalog.Album) float64 {
	var total float64
	for _, t := range album.Tracks {
		total += t.DurationSeconds()
	}
	return total
}
