package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/hoerspielapp/hoerspiel-server/internal/config"
	"github.com/hoerspielapp/hoerspiel-server/internal/logger"
	"github.com/hoerspielapp/hoerspiel-server/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index and wires it to the
// store for automatic indexing.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	index, err := search.NewIndex(search.Options{
		DataPath: cfg.Search.IndexPath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	storeHandle.SetSearchIndexer(index)

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{Index: index}, nil
}

// TriggerSearchReindexIfNeeded repopulates an empty index from the store.
// Covers first startup after a mapping version bump. Should be called after
// all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	items, err := storeHandle.ListItems(ctx)
	if err != nil || len(items) == 0 {
		return
	}
	series, err := storeHandle.ListSeries(ctx)
	if err != nil {
		return
	}

	log.Info("Search index is empty but the library is not, reindexing",
		"items", len(items),
		"series", len(series),
	)

	go func() {
		docs := make([]*search.Document, 0, len(items)+len(series))
		for _, item := range items {
			docs = append(docs, search.ItemToDocument(item))
		}
		for _, sr := range series {
			docs = append(docs, search.SeriesToDocument(sr))
		}

		if err := indexHandle.IndexDocuments(docs); err != nil {
			log.Error("Initial search reindex failed", "error", err)
			return
		}
		count, _ := indexHandle.DocumentCount()
		log.Info("Initial search reindex completed", "documents", count)
	}()
}
