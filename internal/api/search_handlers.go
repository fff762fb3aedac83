package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hoerspielapp/hoerspiel-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search library",
		Description: "Full-text search across items and series",
		Tags:        []string{"Search"},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "search-catalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/search",
		Summary:     "Search remote catalog",
		Description: "Free-text album search against the remote catalog, for imports",
		Tags:        []string{"Search"},
	}, s.handleSearchCatalog)
}

// === DTOs ===

// SearchInput contains parameters for searching the library.
type SearchInput struct {
	Query     string `query:"q" validate:"omitempty,max=200" doc:"Search query, omit to list everything"`
	Types     string `query:"types" validate:"omitempty,max=50" doc:"Comma-separated types (item,series). Omit for all."`
	MinYear   int    `query:"min_year" validate:"omitempty,gte=1900" doc:"Earliest release year"`
	MaxYear   int    `query:"max_year" validate:"omitempty,gte=1900" doc:"Latest release year"`
	Limit     int    `query:"limit" validate:"omitempty,gte=1,lte=100" doc:"Max results (default 20)"`
	Offset    int    `query:"offset" validate:"omitempty,gte=0" doc:"Pagination offset"`
	SortBy    string `query:"sort" validate:"omitempty,oneof=relevance name recent duration" doc:"Sort key (default relevance)"`
	SortOrder string `query:"order" validate:"omitempty,oneof=asc desc" doc:"Sort direction"`
}

// SearchHitResult contains a single search result, an item or a series.
type SearchHitResult struct {
	ID         string            `json:"id" doc:"Entity ID"`
	Type       string            `json:"type" doc:"Type: item or series"`
	Score      float64           `json:"score" doc:"Search relevance score"`
	Name       string            `json:"name" doc:"Display name"`
	Artist     string            `json:"artist,omitempty" doc:"Artist name (for items)"`
	SeriesName string            `json:"series_name,omitempty" doc:"Series name (for items)"`
	Duration   float64           `json:"duration,omitempty" doc:"Duration in seconds (for items)"`
	ItemCount  int               `json:"item_count,omitempty" doc:"Number of items (for series)"`
	Highlights map[string]string `json:"highlights,omitempty" doc:"Highlighted matches"`
}

// SearchResponse contains library search results.
type SearchResponse struct {
	Query  string            `json:"query" doc:"Original search query"`
	Total  int64             `json:"total" doc:"Total matches"`
	TookMs int64             `json:"took_ms" doc:"Search duration in milliseconds"`
	Hits   []SearchHitResult `json:"hits" doc:"Search results"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// SearchCatalogInput contains the remote catalog search term.
type SearchCatalogInput struct {
	Term string `query:"term" validate:"required,min=1,max=200" doc:"Free-text search term"`
}

// CatalogAlbumResult is one candidate album from the remote catalog.
type CatalogAlbumResult struct {
	CatalogID   string    `json:"catalog_id" doc:"Catalog album ID"`
	Title       string    `json:"title" doc:"Album title"`
	Artist      string    `json:"artist" doc:"Artist name"`
	UPC         string    `json:"upc" doc:"Album UPC, use for import"`
	ReleaseDate time.Time `json:"release_date" doc:"Release date"`
	TrackCount  int       `json:"track_count" doc:"Number of tracks"`
	InLibrary   bool      `json:"in_library" doc:"Already imported"`
}

// SearchCatalogOutput wraps catalog search results.
type SearchCatalogOutput struct {
	Body struct {
		Albums []CatalogAlbumResult `json:"albums"`
		Total  int                  `json:"total" doc:"Number of candidates"`
	}
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	params := search.DefaultParams()
	params.Query = input.Query
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset
	params.MinYear = input.MinYear
	params.MaxYear = input.MaxYear
	if input.SortBy != "" {
		params.SortBy = input.SortBy
	}
	if input.SortOrder != "" {
		params.SortOrder = input.SortOrder
	}

	if input.Types != "" {
		for t := range strings.SplitSeq(input.Types, ",") {
			switch strings.TrimSpace(t) {
			case "item":
				params.Types = append(params.Types, string(search.DocTypeItem))
			case "series":
				params.Types = append(params.Types, string(search.DocTypeSeries))
			}
		}
	}

	result, err := s.search.Search(ctx, params)
	if err != nil {
		s.logger.Error("search failed", "error", err, "query", input.Query)
		return nil, err
	}

	resp := SearchResponse{
		Query:  input.Query,
		Total:  int64(result.Total), //nolint:gosec // Safe: total count won't exceed int64
		TookMs: result.TookMs,
		Hits:   make([]SearchHitResult, 0, len(result.Hits)),
	}
	for i := range result.Hits {
		hit := &result.Hits[i]
		resp.Hits = append(resp.Hits, SearchHitResult{
			ID:         hit.ID,
			Type:       string(hit.Type),
			Score:      hit.Score,
			Name:       hit.Name,
			Artist:     hit.Artist,
			SeriesName: hit.SeriesName,
			Duration:   hit.Duration,
			ItemCount:  hit.ItemCount,
			Highlights: hit.Highlights,
		})
	}

	return &SearchOutput{Body: resp}, nil
}

func (s *Server) handleSearchCatalog(ctx context.Context, input *SearchCatalogInput) (*SearchCatalogOutput, error) {
	albums, err := s.services.Library.SearchCatalog(ctx, input.Term)
	if err != nil {
		return nil, err
	}

	out := &SearchCatalogOutput{}
	out.Body.Albums = make([]CatalogAlbumResult, 0, len(albums))
	for _, album := range albums {
		inLibrary := false
		if album.UPC != "" {
			if _, err := s.store.GetItemByUPC(ctx, album.UPC); err == nil {
				inLibrary = true
			}
		}
		out.Body.Albums = append(out.Body.Albums, CatalogAlbumResult{
			CatalogID:   album.CatalogID,
			Title:       album.Title,
			Artist:      album.Artist,
			UPC:         album.UPC,
			ReleaseDate: album.ReleaseDate,
			TrackCount:  album.TrackCount,
			InLibrary:   inLibrary,
		})
	}
	out.Body.Total = len(out.Body.Albums)
	return out, nil
}
