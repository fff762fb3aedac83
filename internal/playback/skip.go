package playback

import (
	"time"

	"github.com/hoerspielapp/hoerspiel-server/internal/domain"
)

// Position is a resolved playback position within a track list.
type Position struct {
	TrackIndex     int
	Offset         float64
	StartWallClock time.Time
	EndWallClock   time.Time
}

// ApplySkip moves a session position by delta seconds, crossing track
// boundaries in either direction as needed. Forward skips past the end of
// the list clamp to the end of the last track; backward skips before the
// first track clamp to zero. The wall-clock anchors shift by -delta so the
// projected session window stays aligned with the new position.
//
// ApplySkip is pure. Serializing concurrent skips for the same session is
// the caller's responsibility.
func ApplySkip(tracks []domain.Track, pos Position, delta float64) Position {
	if len(tracks) == 0 {
		return pos
	}

	idx := pos.TrackIndex
	if idx < 0 {
		idx = 0
	}
	if idx >= len(tracks) {
		idx = len(tracks) - 1
	}

	desired := pos.Offset + delta
	switch {
	case delta > 0:
		for desired >= tracks[idx].Duration {
			if idx == len(tracks)-1 {
				desired = tracks[idx].Duration
				break
			}
			desired -= tracks[idx].Duration
			idx++
		}
	case delta < 0:
		for desired < 0 {
			if idx == 0 {
				desired = 0
				break
			}
			idx--
			desired += tracks[idx].Duration
		}
	}

	shift := secondsToDuration(-delta)
	return Position{
		TrackIndex:     idx,
		Offset:         desired,
		StartWallClock: pos.StartWallClock.Add(shift),
		EndWallClock:   pos.EndWallClock.Add(shift),
	}
}
