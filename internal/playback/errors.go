package playback

import "errors"

// Starting-point calculation failures. Each variant names the input that
// could not be obtained or reconciled, so logs identify the drifted field.
// Services wrap these with coded errors at the API boundary.
var (
	ErrUnableToGetStoredDuration = errors.New("playback: unable to get stored duration")
	ErrUnableToGetPlayedUpTo     = errors.New("playback: unable to get played-up-to offset")
	ErrUnableToGetTrackIndex     = errors.New("playback: unable to get track index")
	ErrUnableToGetReleaseDate    = errors.New("playback: unable to get release date")
	ErrUnableToFindMatchingTrack = errors.New("playback: unable to find matching track for stored offset")
)
