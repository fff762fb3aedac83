package providers

import (
	"github.com/samber/do/v2"

	"github.com/hoerspielapp/hoerspiel-server/internal/catalog"
	"github.com/hoerspielapp/hoerspiel-server/internal/config"
	"github.com/hoerspielapp/hoerspiel-server/internal/logger"
)

// ProvideCatalogClient provides the rate-limited remote catalog client.
func ProvideCatalogClient(i do.Injector) (*catalog.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := catalog.New(cfg.Catalog.BaseURL, log.Logger,
		catalog.WithTimeout(cfg.Catalog.Timeout),
		catalog.WithRateLimit(cfg.Catalog.RequestsPerSecond, cfg.Catalog.Burst),
	)

	log.Info("Catalog client initialized",
		"base_url", cfg.Catalog.BaseURL,
		"rps", cfg.Catalog.RequestsPerSecond,
	)

	return client, nil
}
