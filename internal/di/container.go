// Package di provides dependency injection configuration for the Hörspiel server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/hoerspielapp/hoerspiel-server/internal/catalog"
	"github.com/hoerspielapp/hoerspiel-server/internal/config"
	"github.com/hoerspielapp/hoerspiel-server/internal/di/providers"
	"github.com/hoerspielapp/hoerspiel-server/internal/logger"
	"github.com/hoerspielapp/hoerspiel-server/internal/media/artwork"
	"github.com/hoerspielapp/hoerspiel-server/internal/playback"
	"github.com/hoerspielapp/hoerspiel-server/internal/service"
	"github.com/hoerspielapp/hoerspiel-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Database and search
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Catalog and media
	do.Provide(injector, providers.ProvideCatalogClient)
	do.Provide(injector, providers.ProvideArtworkStorage)
	do.Provide(injector, providers.ProvideArtworkCache)

	// Business services
	do.Provide(injector, providers.ProvideCalculator)
	do.Provide(injector, providers.ProvideTrackService)
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvidePlaybackService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNSService)

	return injector
}

// Bootstrap initializes all services and returns once the server is running.
// Invoking the providers triggers their lazy initialization in order.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*catalog.Client](injector)
	_ = do.MustInvoke[*artwork.Storage](injector)
	_ = do.MustInvoke[*artwork.Cache](injector)
	_ = do.MustInvoke[*playback.Calculator](injector)
	_ = do.MustInvoke[*service.TrackService](injector)
	_ = do.MustInvoke[*service.LibraryService](injector)
	_ = do.MustInvoke[*service.PlaybackService](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)
	_ = do.MustInvoke[*providers.MDNSServiceHandle](injector)

	// Repopulate the search index if it came up empty.
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
