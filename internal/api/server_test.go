package api

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoerspielapp/hoerspiel-server/internal/catalog"
	"github.com/hoerspielapp/hoerspiel-server/internal/http/response"
	"github.com/hoerspielapp/hoerspiel-server/internal/media/artwork"
	"github.com/hoerspielapp/hoerspiel-server/internal/playback"
	"github.com/hoerspielapp/hoerspiel-server/internal/search"
	"github.com/hoerspielapp/hoerspiel-server/internal/service"
	"github.com/hoerspielapp/hoerspiel-server/internal/store"
	"github.com/hoerspielapp/hoerspiel-server/internal/validation"
)

const testUPC = "886971234567"

// fakeCatalog serves canned albums and artwork for handler tests.
type fakeCatalog struct {
	albumsByID  map[string]*catalog.Album
	albumsByUPC map[string]*catalog.Album
	searchHits  []*catalog.Album
	artworkData []byte
}

func (f *fakeCatalog) LookupAlbum(_ context.Context, catalogID string) (*catalog.Album, error) {
	if album, ok := f.albumsByID[catalogID]; ok {
		return album, nil
	}
	return nil, catalog.ErrNotFound
}

func (f *fakeCatalog) LookupByUPC(_ context.Context, upc string) (*catalog.Album, error) {
	if album, ok := f.albumsByUPC[upc]; ok {
		return album, nil
	}
	return nil, catalog.ErrNotFound
}

func (f *fakeCatalog) SearchAlbums(_ context.Context, _ string) ([]*catalog.Album, error) {
	return f.searchHits, nil
}

func (f *fakeCatalog) FetchArtwork(_ context.Context, _ string) ([]byte, error) {
	if f.artworkData == nil {
		return nil, catalog.ErrNotFound
	}
	return f.artworkData, nil
}

func testAlbum() *catalog.Album {
	return &catalog.Album{
		CatalogID:   "alb-100",
		Title:       "Die drei ??? Folge 1: Der Super-Papagei",
		Artist:      "Die drei ???",
		UPC:         testUPC,
		ReleaseDate: time.Date(1979, 10, 12, 0, 0, 0, 0, time.UTC),
		TrackCount:  3,
		Tracks: []catalog.AlbumTrack{
			{CatalogID: "trk-1", Title: "Inhaltsangabe", DurationMs: 60_000, TrackNumber: 1},
			{CatalogID: "trk-2", Title: "Teil 1", DurationMs: 300_000, TrackNumber: 2},
			{CatalogID: "trk-3", Title: "Teil 2", DurationMs: 260_000, TrackNumber: 3},
		},
	}
}

func setupTestServer(t *testing.T) (*Server, *fakeCatalog) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	st, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := search.NewIndex(search.Options{DataPath: t.TempDir(), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	st.SetSearchIndexer(idx)

	cat := &fakeCatalog{
		albumsByID:  map[string]*catalog.Album{"alb-100": testAlbum()},
		albumsByUPC: map[string]*catalog.Album{testUPC: testAlbum()},
		searchHits:  []*catalog.Album{testAlbum()},
	}

	v := validation.New()
	calc := playback.NewCalculator(playback.DefaultConfig())

	tracks := service.NewTrackService(st, cat, logger)
	library := service.NewLibraryService(st, cat, v, logger)
	play := service.NewPlaybackService(st, tracks, calc, v, logger)

	storage, err := artwork.NewStorage(t.TempDir())
	require.NoError(t, err)
	cache := artwork.NewCache(storage, cat, artwork.Options{PreferredWidth: 64, SmallWidth: 32}, logger)

	server := NewServer(st, &Services{
		Library:  library,
		Playback: play,
		Tracks:   tracks,
	}, cache, idx, logger)

	return server, cat
}

func doJSON(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func importTestItem(t *testing.T, server *Server) string {
	t.Helper()

	w := doJSON(t, server, http.MethodPost, "/api/v1/items", map[string]string{"upc": testUPC})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var item ItemResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	require.NotEmpty(t, item.ID)
	return item.ID
}

func TestHealthCheck(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var result response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
}

func TestImportItem(t *testing.T) {
	server, _ := setupTestServer(t)

	w := doJSON(t, server, http.MethodPost, "/api/v1/items", map[string]string{"upc": testUPC})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var item ItemResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.True(t, strings.HasPrefix(item.ID, "itm-"))
	assert.Equal(t, "Die drei ??? Folge 1: Der Super-Papagei", item.Title)
	assert.Equal(t, "Die drei ???", item.SeriesName)
	assert.InDelta(t, 620.0, item.DurationSeconds, 0.01)
	assert.False(t, item.HasArtwork)
}

func TestImportItem_DuplicateUPC(t *testing.T) {
	server, _ := setupTestServer(t)
	importTestItem(t, server)

	w := doJSON(t, server, http.MethodPost, "/api/v1/items", map[string]string{"upc": testUPC})
	assert.Equal(t, http.StatusConflict, w.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, "ALREADY_EXISTS", apiErr.Code)
}

func TestImportItem_UnknownUPC(t *testing.T) {
	server, _ := setupTestServer(t)

	w := doJSON(t, server, http.MethodPost, "/api/v1/items", map[string]string{"upc": "000000000000"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetItem_NotFound(t *testing.T) {
	server, _ := setupTestServer(t)

	w := doJSON(t, server, http.MethodGet, "/api/v1/items/itm-missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestListItems(t *testing.T) {
	server, _ := setupTestServer(t)
	itemID := importTestItem(t, server)

	w := doJSON(t, server, http.MethodGet, "/api/v1/items", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Items []ItemResponse `json:"items"`
		Total int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, 1, result.Total)
	assert.Equal(t, itemID, result.Items[0].ID)
}

func TestDeleteItem(t *testing.T) {
	server, _ := setupTestServer(t)
	itemID := importTestItem(t, server)

	w := doJSON(t, server, http.MethodDelete, "/api/v1/items/"+itemID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, server, http.MethodGet, "/api/v1/items/"+itemID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSeriesRoutes(t *testing.T) {
	server, _ := setupTestServer(t)
	itemID := importTestItem(t, server)

	w := doJSON(t, server, http.MethodGet, "/api/v1/series", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Series []SeriesResponse `json:"series"`
		Total  int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Die drei ???", list.Series[0].Name)
	assert.Equal(t, 1, list.Series[0].ItemCount)

	w = doJSON(t, server, http.MethodGet, "/api/v1/series/"+list.Series[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var detail struct {
		Series SeriesResponse `json:"series"`
		Items  []ItemResponse `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.Len(t, detail.Items, 1)
	assert.Equal(t, itemID, detail.Items[0].ID)
}

func TestUpNextRoutes(t *testing.T) {
	server, _ := setupTestServer(t)
	itemID := importTestItem(t, server)

	w := doJSON(t, server, http.MethodPut, "/api/v1/items/"+itemID+"/up-next", map[string]bool{"up_next": true})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = doJSON(t, server, http.MethodGet, "/api/v1/up-next", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Items []ItemResponse `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Items, 1)
	assert.True(t, result.Items[0].UpNext)

	w = doJSON(t, server, http.MethodPut, "/api/v1/items/"+itemID+"/up-next", map[string]bool{"up_next": false})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, server, http.MethodGet, "/api/v1/up-next", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Empty(t, result.Items)
}

func TestSetPlayed(t *testing.T) {
	server, _ := setupTestServer(t)
	itemID := importTestItem(t, server)

	w := doJSON(t, server, http.MethodPut, "/api/v1/items/"+itemID+"/played", map[string]bool{"played": true})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, server, http.MethodGet, "/api/v1/items/"+itemID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var item ItemResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.True(t, item.Played)
	assert.Equal(t, 0, item.PlayedUpToSeconds)
}

func TestPlaybackFlow(t *testing.T) {
	server, _ := setupTestServer(t)
	itemID := importTestItem(t, server)

	// Start a session without skips.
	w := doJSON(t, server, http.MethodPost, "/api/v1/playback/sessions", map[string]any{
		"item_id": itemID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.True(t, strings.HasPrefix(session.SessionID, "ses-"))
	assert.Len(t, session.Tracks, 3)
	assert.Equal(t, 0, session.TrackIndex)
	assert.InDelta(t, 0.0, session.OffsetSeconds, 0.01)

	// Skip forward past the first track boundary.
	w = doJSON(t, server, http.MethodPost, "/api/v1/playback/sessions/"+session.SessionID+"/skip", map[string]any{
		"delta_seconds": 90.0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var pos PositionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pos))
	assert.Equal(t, 1, pos.TrackIndex)
	assert.InDelta(t, 30.0, pos.OffsetSeconds, 0.01)

	// Save progress mid-story and end the session.
	w = doJSON(t, server, http.MethodPost, "/api/v1/playback/sessions/"+session.SessionID+"/progress", map[string]any{
		"track_title":    "Teil 1",
		"offset_seconds": 120.0,
		"end_session":    true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var saved struct {
		Finished          bool `json:"finished"`
		PlayedUpToSeconds int  `json:"played_up_to_seconds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.False(t, saved.Finished)
	assert.Equal(t, 180, saved.PlayedUpToSeconds)

	// Session is gone afterwards.
	w = doJSON(t, server, http.MethodPost, "/api/v1/playback/sessions/"+session.SessionID+"/skip", map[string]any{
		"delta_seconds": 10.0,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportPosition_OutOfSync(t *testing.T) {
	server, _ := setupTestServer(t)
	itemID := importTestItem(t, server)

	w := doJSON(t, server, http.MethodPost, "/api/v1/playback/sessions", map[string]any{
		"item_id": itemID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var session SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))

	w = doJSON(t, server, http.MethodPost, "/api/v1/playback/sessions/"+session.SessionID+"/position", map[string]any{
		"track_title":    "Unbekannter Titel",
		"offset_seconds": 10.0,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, "OUT_OF_SYNC", apiErr.Code)
}

func TestEndSession(t *testing.T) {
	server, _ := setupTestServer(t)
	itemID := importTestItem(t, server)

	w := doJSON(t, server, http.MethodPost, "/api/v1/playback/sessions", map[string]any{
		"item_id": itemID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var session SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))

	w = doJSON(t, server, http.MethodDelete, "/api/v1/playback/sessions/"+session.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Idempotent.
	w = doJSON(t, server, http.MethodDelete, "/api/v1/playback/sessions/"+session.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGetTracks(t *testing.T) {
	server, _ := setupTestServer(t)
	itemID := importTestItem(t, server)

	w := doJSON(t, server, http.MethodGet, "/api/v1/items/"+itemID+"/tracks", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Tracks []struct {
			Title string `json:"title"`
		} `json:"tracks"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, 3, result.Total)
	assert.Equal(t, "Inhaltsangabe", result.Tracks[0].Title)
}

func TestSearchLibrary(t *testing.T) {
	server, _ := setupTestServer(t)
	importTestItem(t, server)

	// Indexing runs asynchronously after the import.
	require.Eventually(t, func() bool {
		w := doJSON(t, server, http.MethodGet, "/api/v1/search?q=Papagei", nil)
		if w.Code != http.StatusOK {
			return false
		}
		var result SearchResponse
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			return false
		}
		return result.Total > 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSearchCatalog(t *testing.T) {
	server, _ := setupTestServer(t)
	importTestItem(t, server)

	w := doJSON(t, server, http.MethodGet, "/api/v1/catalog/search?term=Papagei", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result struct {
		Albums []CatalogAlbumResult `json:"albums"`
		Total  int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, 1, result.Total)
	assert.Equal(t, testUPC, result.Albums[0].UPC)
	assert.True(t, result.Albums[0].InLibrary)
}

func TestGetArtwork(t *testing.T) {
	server, cat := setupTestServer(t)
	cat.albumsByUPC[testUPC].ArtworkURLTemplate = "https://cdn.example.com/{w}x{h}.jpg"
	cat.artworkData = makeTestJPEG(t, 64, 64)
	itemID := importTestItem(t, server)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/"+itemID+"/artwork", http.NoBody)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))

	img, err := jpeg.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
}

func TestGetArtwork_SmallSize(t *testing.T) {
	server, cat := setupTestServer(t)
	cat.albumsByUPC[testUPC].ArtworkURLTemplate = "https://cdn.example.com/{w}x{h}.jpg"
	cat.artworkData = makeTestJPEG(t, 64, 64)
	itemID := importTestItem(t, server)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/"+itemID+"/artwork?size=small", http.NoBody)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	img, err := jpeg.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
}

func TestGetArtwork_NoArtwork(t *testing.T) {
	server, _ := setupTestServer(t)
	itemID := importTestItem(t, server)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/"+itemID+"/artwork", http.NoBody)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetArtworkPlaceholder(t *testing.T) {
	server, cat := setupTestServer(t)
	cat.albumsByUPC[testUPC].ArtworkURLTemplate = "https://cdn.example.com/{w}x{h}.jpg"
	cat.artworkData = makeTestJPEG(t, 64, 64)
	itemID := importTestItem(t, server)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/"+itemID+"/artwork/placeholder", http.NoBody)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)

	data, ok := result.Data.(map[string]any)
	require.True(t, ok)
	hash, ok := data["blurhash"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, hash)
}

// makeTestJPEG renders a gradient JPEG of the given dimensions.
func makeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: 128,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}
