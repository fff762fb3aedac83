package api

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoerspielapp/hoerspiel-server/internal/store"
)

// setupStateTestAPI wraps the test server's typed API for humatest and
// registers a few extra catalog albums so multiple items can be imported.
func setupStateTestAPI(t *testing.T) (humatest.TestAPI, *Server) {
	t.Helper()

	server, cat := setupTestServer(t)

	for i := 2; i <= 4; i++ {
		upc := fmt.Sprintf("%d", 886971234566+i)
		album := testAlbum()
		album.CatalogID = fmt.Sprintf("alb-10%d", i)
		album.Title = fmt.Sprintf("Die drei ??? Folge %d", i)
		album.UPC = upc
		cat.albumsByUPC[upc] = album
	}

	return humatest.Wrap(t, server.api), server
}

// importByUPC imports an album through the API and returns the new item id.
func importByUPC(t *testing.T, api humatest.TestAPI, upc string) string {
	t.Helper()

	resp := api.Post("/api/v1/items", map[string]any{"upc": upc})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var item ItemResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &item))
	require.NotEmpty(t, item.ID)
	return item.ID
}

func TestUpNext_InsertionOrder(t *testing.T) {
	api, _ := setupStateTestAPI(t)

	first := importByUPC(t, api, "886971234568")
	second := importByUPC(t, api, "886971234569")
	third := importByUPC(t, api, "886971234570")

	for _, id := range []string{second, first, third} {
		resp := api.Put("/api/v1/items/"+id+"/up-next", map[string]any{"up_next": true})
		require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())
	}

	resp := api.Get("/api/v1/up-next")
	require.Equal(t, http.StatusOK, resp.Code)

	var list ItemListOutput
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list.Body))
	require.Equal(t, 3, list.Body.Total)
	assert.Equal(t, second, list.Body.Items[0].ID)
	assert.Equal(t, first, list.Body.Items[1].ID)
	assert.Equal(t, third, list.Body.Items[2].ID)
}

func TestUpNext_RemovalKeepsOrder(t *testing.T) {
	api, _ := setupStateTestAPI(t)

	first := importByUPC(t, api, "886971234568")
	second := importByUPC(t, api, "886971234569")

	for _, id := range []string{first, second} {
		resp := api.Put("/api/v1/items/"+id+"/up-next", map[string]any{"up_next": true})
		require.Equal(t, http.StatusNoContent, resp.Code)
	}

	resp := api.Put("/api/v1/items/"+first+"/up-next", map[string]any{"up_next": false})
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = api.Get("/api/v1/up-next")
	require.Equal(t, http.StatusOK, resp.Code)

	var list ItemListOutput
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list.Body))
	require.Equal(t, 1, list.Body.Total)
	assert.Equal(t, second, list.Body.Items[0].ID)
}

func TestRecentlyPlayed_NewestFirstWithLimit(t *testing.T) {
	api, server := setupStateTestAPI(t)
	ctx := context.Background()

	oldest := importByUPC(t, api, "886971234568")
	middle := importByUPC(t, api, "886971234569")
	newest := importByUPC(t, api, "886971234570")
	importByUPC(t, api, testUPC) // never played

	now := time.Now()
	for i, id := range []string{oldest, middle, newest} {
		_, err := server.store.ApplyProgress(ctx, id, store.ProgressUpdate{
			PlayedUpToSeconds: 30,
			PlayedAt:          now.Add(time.Duration(i-3) * time.Hour),
		})
		require.NoError(t, err)
	}

	resp := api.Get("/api/v1/recently-played?limit=2")
	require.Equal(t, http.StatusOK, resp.Code)

	var list ItemListOutput
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list.Body))
	require.Equal(t, 2, list.Body.Total)
	assert.Equal(t, newest, list.Body.Items[0].ID)
	assert.Equal(t, middle, list.Body.Items[1].ID)
}

func TestRecentlyPlayed_ExcludesUnstarted(t *testing.T) {
	api, _ := setupStateTestAPI(t)

	importByUPC(t, api, testUPC)

	resp := api.Get("/api/v1/recently-played")
	require.Equal(t, http.StatusOK, resp.Code)

	var list ItemListOutput
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list.Body))
	assert.Equal(t, 0, list.Body.Total)
}

func TestImportItem_MissingBody(t *testing.T) {
	api, _ := setupStateTestAPI(t)

	resp := api.Post("/api/v1/items", map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestSetPlayed_RemovesFromUpNext(t *testing.T) {
	api, _ := setupStateTestAPI(t)

	id := importByUPC(t, api, testUPC)

	resp := api.Put("/api/v1/items/"+id+"/up-next", map[string]any{"up_next": true})
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = api.Put("/api/v1/items/"+id+"/played", map[string]any{"played": true})
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = api.Get("/api/v1/up-next")
	require.Equal(t, http.StatusOK, resp.Code)

	var list ItemListOutput
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list.Body))
	assert.Equal(t, 0, list.Body.Total)

	resp = api.Get("/api/v1/items/" + id)
	require.Equal(t, http.StatusOK, resp.Code)

	var item ItemResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &item))
	assert.True(t, item.Played)
	assert.False(t, item.UpNext)
	assert.Equal(t, 0, item.PlayedUpToSeconds)
}
