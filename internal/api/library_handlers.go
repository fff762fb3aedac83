package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hoerspielapp/hoerspiel-server/internal/domain"
	"github.com/hoerspielapp/hoerspiel-server/internal/service"
)

func (s *Server) registerLibraryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "import-item",
		Method:      http.MethodPost,
		Path:        "/api/v1/items",
		Summary:     "Import item",
		Description: "Looks an album up by UPC in the remote catalog and adds it to the library",
		Tags:        []string{"Library"},
	}, s.handleImportItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-items",
		Method:      http.MethodGet,
		Path:        "/api/v1/items",
		Summary:     "List items",
		Tags:        []string{"Library"},
	}, s.handleListItems)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-item",
		Method:      http.MethodGet,
		Path:        "/api/v1/items/{id}",
		Summary:     "Get item",
		Tags:        []string{"Library"},
	}, s.handleGetItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-item",
		Method:      http.MethodDelete,
		Path:        "/api/v1/items/{id}",
		Summary:     "Delete item",
		Tags:        []string{"Library"},
	}, s.handleDeleteItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-series",
		Method:      http.MethodGet,
		Path:        "/api/v1/series",
		Summary:     "List series",
		Tags:        []string{"Library"},
	}, s.handleListSeries)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-series",
		Method:      http.MethodGet,
		Path:        "/api/v1/series/{id}",
		Summary:     "Get series with items",
		Tags:        []string{"Library"},
	}, s.handleGetSeries)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-series",
		Method:      http.MethodDelete,
		Path:        "/api/v1/series/{id}",
		Summary:     "Delete series",
		Description: "Removes a series together with all of its items",
		Tags:        []string{"Library"},
	}, s.handleDeleteSeries)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-up-next",
		Method:      http.MethodGet,
		Path:        "/api/v1/up-next",
		Summary:     "Get Up Next queue",
		Tags:        []string{"Library"},
	}, s.handleGetUpNext)

	huma.Register(s.api, huma.Operation{
		OperationID: "set-up-next",
		Method:      http.MethodPut,
		Path:        "/api/v1/items/{id}/up-next",
		Summary:     "Add or remove item from Up Next",
		Tags:        []string{"Library"},
	}, s.handleSetUpNext)

	huma.Register(s.api, huma.Operation{
		OperationID: "set-played",
		Method:      http.MethodPut,
		Path:        "/api/v1/items/{id}/played",
		Summary:     "Mark item played or unplayed",
		Description: "Marking played resets progress and removes the item from Up Next",
		Tags:        []string{"Library"},
	}, s.handleSetPlayed)

	huma.Register(s.api, huma.Operation{
		OperationID: "recently-played",
		Method:      http.MethodGet,
		Path:        "/api/v1/recently-played",
		Summary:     "Recently played items",
		Tags:        []string{"Library"},
	}, s.handleRecentlyPlayed)
}

// === DTOs ===

// ImportItemInput contains the import request body.
type ImportItemInput struct {
	Body struct {
		UPC string `json:"upc" validate:"required" doc:"Album UPC, 8 to 14 digits"`
	}
}

// ItemResponse is the API representation of a library item.
type ItemResponse struct {
	ID                string         `json:"id" doc:"Item ID"`
	Title             string         `json:"title" doc:"Item title"`
	Artist            string         `json:"artist,omitempty" doc:"Artist name"`
	UPC               string         `json:"upc,omitempty" doc:"Album UPC"`
	DurationSeconds   float64        `json:"duration_seconds" doc:"Total duration in seconds"`
	ReleaseDate       time.Time      `json:"release_date" doc:"Release date"`
	Prerelease        bool           `json:"prerelease" doc:"True while the release date is in the future"`
	PlayedUpToSeconds int            `json:"played_up_to_seconds" doc:"Saved cumulative progress in seconds"`
	Played            bool           `json:"played" doc:"Finished flag"`
	UpNext            bool           `json:"up_next" doc:"On the Up Next queue"`
	LastPlayedAt      *time.Time     `json:"last_played_at,omitempty" doc:"When the item was last played"`
	SeriesID          string         `json:"series_id,omitempty" doc:"Series ID"`
	SeriesName        string         `json:"series_name,omitempty" doc:"Series name"`
	Description       string         `json:"description,omitempty" doc:"Editorial notes, Markdown"`
	HasArtwork        bool           `json:"has_artwork" doc:"True when cover art can be served"`
	Tracks            []domain.Track `json:"tracks,omitempty" doc:"Cached track list, absent until resolved"`
}

// ItemOutput wraps a single item.
type ItemOutput struct {
	Body ItemResponse
}

// ItemListOutput wraps a list of items.
type ItemListOutput struct {
	Body struct {
		Items []ItemResponse `json:"items"`
		Total int            `json:"total" doc:"Number of items"`
	}
}

// ItemIDInput identifies an item by path parameter.
type ItemIDInput struct {
	ID string `path:"id" doc:"Item ID"`
}

// SeriesResponse is the API representation of a series.
type SeriesResponse struct {
	ID        string `json:"id" doc:"Series ID"`
	Name      string `json:"name" doc:"Series name"`
	ItemCount int    `json:"item_count" doc:"Number of items in the series"`
}

// SeriesListOutput wraps a list of series.
type SeriesListOutput struct {
	Body struct {
		Series []SeriesResponse `json:"series"`
		Total  int              `json:"total" doc:"Number of series"`
	}
}

// SeriesDetailOutput wraps a series together with its items.
type SeriesDetailOutput struct {
	Body struct {
		Series SeriesResponse `json:"series"`
		Items  []ItemResponse `json:"items"`
	}
}

// SeriesIDInput identifies a series by path parameter.
type SeriesIDInput struct {
	ID string `path:"id" doc:"Series ID"`
}

// SetUpNextInput toggles an item's Up Next membership.
type SetUpNextInput struct {
	ID   string `path:"id" doc:"Item ID"`
	Body struct {
		UpNext bool `json:"up_next" doc:"True adds the item, false removes it"`
	}
}

// SetPlayedInput toggles an item's played flag.
type SetPlayedInput struct {
	ID   string `path:"id" doc:"Item ID"`
	Body struct {
		Played bool `json:"played" doc:"True marks the item finished"`
	}
}

// RecentlyPlayedInput configures the recently played listing.
type RecentlyPlayedInput struct {
	Limit int `query:"limit" validate:"omitempty,gte=1,lte=100" doc:"Max items (default 20)"`
}

// === Handlers ===

func (s *Server) handleImportItem(ctx context.Context, input *ImportItemInput) (*ItemOutput, error) {
	item, err := s.services.Library.ImportItem(ctx, service.ImportRequest{UPC: input.Body.UPC})
	if err != nil {
		return nil, err
	}
	return &ItemOutput{Body: itemToResponse(item)}, nil
}

func (s *Server) handleListItems(ctx context.Context, _ *struct{}) (*ItemListOutput, error) {
	items, err := s.services.Library.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	out := &ItemListOutput{}
	out.Body.Items = itemsToResponses(items)
	out.Body.Total = len(out.Body.Items)
	return out, nil
}

func (s *Server) handleGetItem(ctx context.Context, input *ItemIDInput) (*ItemOutput, error) {
	item, err := s.services.Library.GetItem(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ItemOutput{Body: itemToResponse(item)}, nil
}

func (s *Server) handleDeleteItem(ctx context.Context, input *ItemIDInput) (*struct{}, error) {
	if err := s.services.Library.DeleteItem(ctx, input.ID); err != nil {
		return nil, err
	}
	s.artwork.Invalidate(input.ID)
	return &struct{}{}, nil
}

func (s *Server) handleListSeries(ctx context.Context, _ *struct{}) (*SeriesListOutput, error) {
	series, err := s.services.Library.ListSeries(ctx)
	if err != nil {
		return nil, err
	}

	out := &SeriesListOutput{}
	out.Body.Series = make([]SeriesResponse, 0, len(series))
	for _, ser := range series {
		out.Body.Series = append(out.Body.Series, seriesToResponse(ser))
	}
	out.Body.Total = len(out.Body.Series)
	return out, nil
}

func (s *Server) handleGetSeries(ctx context.Context, input *SeriesIDInput) (*SeriesDetailOutput, error) {
	series, items, err := s.services.Library.GetSeriesItems(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &SeriesDetailOutput{}
	out.Body.Series = seriesToResponse(series)
	out.Body.Items = itemsToResponses(items)
	return out, nil
}

func (s *Server) handleDeleteSeries(ctx context.Context, input *SeriesIDInput) (*struct{}, error) {
	if err := s.services.Library.DeleteSeries(ctx, input.ID); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (s *Server) handleGetUpNext(ctx context.Context, _ *struct{}) (*ItemListOutput, error) {
	items, err := s.services.Library.GetUpNext(ctx)
	if err != nil {
		return nil, err
	}

	out := &ItemListOutput{}
	out.Body.Items = itemsToResponses(items)
	out.Body.Total = len(out.Body.Items)
	return out, nil
}

func (s *Server) handleSetUpNext(ctx context.Context, input *SetUpNextInput) (*struct{}, error) {
	if err := s.services.Library.SetUpNext(ctx, input.ID, input.Body.UpNext); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (s *Server) handleSetPlayed(ctx context.Context, input *SetPlayedInput) (*struct{}, error) {
	if err := s.services.Library.SetPlayed(ctx, input.ID, input.Body.Played); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (s *Server) handleRecentlyPlayed(ctx context.Context, input *RecentlyPlayedInput) (*ItemListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	items, err := s.services.Library.GetRecentlyPlayed(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := &ItemListOutput{}
	out.Body.Items = itemsToResponses(items)
	out.Body.Total = len(out.Body.Items)
	return out, nil
}

// === Mapping ===

func itemToResponse(item *domain.Item) ItemResponse {
	return ItemResponse{
		ID:                item.ID,
		Title:             item.Title,
		Artist:            item.Artist,
		UPC:               item.UPC,
		DurationSeconds:   item.DurationSeconds,
		ReleaseDate:       item.ReleaseDate,
		Prerelease:        item.IsPrerelease(time.Now()),
		PlayedUpToSeconds: item.PlayedUpToSeconds,
		Played:            item.Played,
		UpNext:            item.UpNext,
		LastPlayedAt:      item.LastPlayedAt,
		SeriesID:          item.SeriesID,
		SeriesName:        item.SeriesName,
		Description:       item.Description,
		HasArtwork:        item.ArtworkURL != "",
		Tracks:            item.Tracks,
	}
}

func itemsToResponses(items []*domain.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, itemToResponse(item))
	}
	return out
}

func seriesToResponse(series *domain.Series) SeriesResponse {
	return SeriesResponse{
		ID:        series.ID,
		Name:      series.Name,
		ItemCount: series.ItemCount,
	}
}
