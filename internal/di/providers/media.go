package providers

import (
	"github.com/samber/do/v2"

	"github.com/hoerspielapp/hoerspiel-server/internal/catalog"
	"github.com/hoerspielapp/hoerspiel-server/internal/config"
	"github.com/hoerspielapp/hoerspiel-server/internal/logger"
	"github.com/hoerspielapp/hoerspiel-server/internal/media/artwork"
)

// ProvideArtworkStorage provides the on-disk artwork tier.
func ProvideArtworkStorage(i do.Injector) (*artwork.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	storage, err := artwork.NewStorage(cfg.Artwork.CachePath)
	if err != nil {
		return nil, err
	}

	log.Info("Artwork storage initialized", "path", cfg.Artwork.CachePath)

	return storage, nil
}

// ProvideArtworkCache provides the tiered artwork cache.
func ProvideArtworkCache(i do.Injector) (*artwork.Cache, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storage := do.MustInvoke[*artwork.Storage](i)
	client := do.MustInvoke[*catalog.Client](i)

	cache := artwork.NewCache(storage, client, artwork.Options{
		PreferredWidth: cfg.Artwork.PreferredWidth,
		SmallWidth:     cfg.Artwork.SmallWidth,
		MemoryEntries:  cfg.Artwork.MemoryCacheEntries,
	}, log.Logger)

	return cache, nil
}
