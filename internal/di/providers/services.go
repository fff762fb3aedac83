package providers

import (
	"github.com/samber/do/v2"

	"github.com/hoerspielapp/hoerspiel-server/internal/catalog"
	"github.com/hoerspielapp/hoerspiel-server/internal/config"
	"github.com/hoerspielapp/hoerspiel-server/internal/logger"
	"github.com/hoerspielapp/hoerspiel-server/internal/playback"
	"github.com/hoerspielapp/hoerspiel-server/internal/service"
	"github.com/hoerspielapp/hoerspiel-server/internal/validation"
)

// ProvideValidator provides the struct validator.
func ProvideValidator(_ do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideCalculator provides the playback position calculator, with the
// tunable constants taken from configuration.
func ProvideCalculator(i do.Injector) (*playback.Calculator, error) {
	cfg := do.MustInvoke[*config.Config](i)

	calcCfg := playback.DefaultConfig()
	if cfg.Playback.DisclaimerSeconds > 0 {
		calcCfg.DisclaimerSeconds = cfg.Playback.DisclaimerSeconds
	}
	if cfg.Playback.TailToleranceSeconds > 0 {
		calcCfg.TailToleranceSeconds = cfg.Playback.TailToleranceSeconds
	}

	return playback.NewCalculator(calcCfg), nil
}

// ProvideTrackService provides the track resolution service.
func ProvideTrackService(i do.Injector) (*service.TrackService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	client := do.MustInvoke[*catalog.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTrackService(storeHandle.Store, client, log.Logger), nil
}

// ProvideLibraryService provides the library service.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	client := do.MustInvoke[*catalog.Client](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLibraryService(storeHandle.Store, client, v, log.Logger), nil
}

// ProvidePlaybackService provides the playback session service.
func ProvidePlaybackService(i do.Injector) (*service.PlaybackService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tracks := do.MustInvoke[*service.TrackService](i)
	calc := do.MustInvoke[*playback.Calculator](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPlaybackService(storeHandle.Store, tracks, calc, v, log.Logger), nil
}
