package api

import (
	"github.com/hoerspielapp/hoerspiel-server/internal/service"
)

// Services groups the business logic services used by the API server.
type Services struct {
	Library  *service.LibraryService
	Playback *service.PlaybackService
	Tracks   *service.TrackService
}
