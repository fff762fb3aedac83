package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoerspielapp/hoerspiel-server/internal/domain"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func testSearchItem(id, title, seriesName string) *domain.Item {
	item := &domain.Item{
		Title:           title,
		Artist:          seriesName,
		SeriesName:      seriesName,
		DurationSeconds: 3600,
		ReleaseDate:     time.Date(1985, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	item.ID = id
	item.InitTimestamps()
	return item
}

func TestIndex_SearchByTitle(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexItem(ctx, testSearchItem("itm-1", "Folge 1: Der Super-Papagei", domain.SeriesDieDreiFragezeichen)))
	require.NoError(t, idx.IndexItem(ctx, testSearchItem("itm-2", "Folge 2: Der Phantomsee", domain.SeriesDieDreiFragezeichen)))

	params := DefaultParams()
	params.Query = "Papagei"
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)

	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "itm-1", result.Hits[0].ID)
	assert.Equal(t, DocTypeItem, result.Hits[0].Type)
}

func TestIndex_SearchBySeriesName(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexItem(ctx, testSearchItem("itm-1", "Folge 1: Der Super-Papagei", domain.SeriesDieDreiFragezeichen)))

	series := &domain.Series{Name: domain.SeriesDieDreiFragezeichen, ItemCount: 1}
	series.ID = "ser-1"
	series.InitTimestamps()
	require.NoError(t, idx.IndexSeries(ctx, series))

	params := DefaultParams()
	params.Query = "drei"
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)

	// Both the item (via denormalized series name) and the series match.
	ids := make(map[string]bool)
	for _, h := range result.Hits {
		ids[h.ID] = true
	}
	assert.True(t, ids["itm-1"])
	assert.True(t, ids["ser-1"])
}

func TestIndex_TypeFilter(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexItem(ctx, testSearchItem("itm-1", "Folge 1: Der Super-Papagei", domain.SeriesDieDreiFragezeichen)))

	series := &domain.Series{Name: domain.SeriesDieDreiFragezeichen}
	series.ID = "ser-1"
	series.InitTimestamps()
	require.NoError(t, idx.IndexSeries(ctx, series))

	params := DefaultParams()
	params.Query = "drei"
	params.Types = []string{string(DocTypeSeries)}
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)

	require.Len(t, result.Hits, 1)
	assert.Equal(t, "ser-1", result.Hits[0].ID)
}

func TestIndex_FuzzyMatch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexItem(ctx, testSearchItem("itm-1", "Folge 1: Der Super-Papagei", domain.SeriesDieDreiFragezeichen)))

	params := DefaultParams()
	params.Query = "Papagai" // one letter off
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)

	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "itm-1", result.Hits[0].ID)
}

func TestIndex_DeleteItem(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexItem(ctx, testSearchItem("itm-1", "Folge 1: Der Super-Papagei", domain.SeriesDieDreiFragezeichen)))
	require.NoError(t, idx.DeleteItem(ctx, "itm-1"))

	params := DefaultParams()
	params.Query = "Papagei"
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestIndex_ReindexUpdatesDocument(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	item := testSearchItem("itm-1", "Folge 1: Der Super-Papagei", domain.SeriesDieDreiFragezeichen)
	require.NoError(t, idx.IndexItem(ctx, item))

	item.Title = "Folge 1: Der neue Titel"
	require.NoError(t, idx.IndexItem(ctx, item))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	params := DefaultParams()
	params.Query = "Titel"
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
}

func TestIndex_BatchIndexing(t *testing.T) {
	idx := newTestIndex(t)

	docs := []*Document{
		ItemToDocument(testSearchItem("itm-1", "Folge 1: Der Super-Papagei", domain.SeriesDieDreiFragezeichen)),
		ItemToDocument(testSearchItem("itm-2", "Folge 2: Der Phantomsee", domain.SeriesDieDreiFragezeichen)),
	}
	require.NoError(t, idx.IndexDocuments(docs))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestIndex_Rebuild(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexItem(ctx, testSearchItem("itm-1", "Folge 1: Der Super-Papagei", domain.SeriesDieDreiFragezeichen)))
	require.NoError(t, idx.Rebuild())

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIndex_ReopensExisting(t *testing.T) {
	dir := t.TempDir()

	idx, err := NewIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, idx.IndexItem(context.Background(), testSearchItem("itm-1", "Folge 1: Der Super-Papagei", domain.SeriesDieDreiFragezeichen)))
	require.NoError(t, idx.Close())

	reopened, err := NewIndex(Options{DataPath: dir})
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestIndex_MatchAllWithoutQuery(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexItem(ctx, testSearchItem("itm-1", "Folge 1: Der Super-Papagei", domain.SeriesDieDreiFragezeichen)))
	require.NoError(t, idx.IndexItem(ctx, testSearchItem("itm-2", "Folge 2: Der Phantomsee", domain.SeriesDieDreiFragezeichen)))

	params := DefaultParams()
	result, err := idx.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)
}
