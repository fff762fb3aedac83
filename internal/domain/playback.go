package domain

import "time"

// SkipPreferences are the user's smart-skip settings, captured at the moment
// a calculation runs. Passed explicitly into every playback computation so the
// core never reads mutable global state.
type SkipPreferences struct {
	SmartSkipEnabled bool `json:"smart_skip_enabled"`
	SkipIntro        bool `json:"skip_intro"`
	SkipDisclaimer   bool `json:"skip_disclaimer"`
}

// PlaybackSession is the ephemeral state of one playback run. It is never
// persisted directly; only the derived progress fields are written back to
// the item when the session ends.
type PlaybackSession struct {
	ID                string    `json:"id"`
	ItemID            string    `json:"item_id"`
	Item              Item      `json:"item"` // snapshot at session start
	Tracks            []Track   `json:"tracks"`
	CurrentTrackIndex int       `json:"current_track_index"`
	CurrentOffset     float64   `json:"current_offset"` // seconds into the current track
	StartWallClock    time.Time `json:"start_wall_clock"`
	EndWallClock      time.Time `json:"end_wall_clock"`
	// StartedTrackRef identifies the track playback originally began on.
	// Used to detect natural completion when the player wraps back around.
	StartedTrackRef string `json:"started_track_ref,omitempty"`
}

// CurrentTrack returns the track the session currently points at, or false
// when the index is out of range.
func (s *PlaybackSession) CurrentTrack() (Track, bool) {
	if s.CurrentTrackIndex < 0 || s.CurrentTrackIndex >= len(s.Tracks) {
		return Track{}, false
	}
	return s.Tracks[s.CurrentTrackIndex], true
}
