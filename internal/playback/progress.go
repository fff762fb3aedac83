package playback

import (
	"time"

	"github.com/hoerspielapp/hoerspiel-server/internal/domain"
	"github.com/hoerspielapp/hoerspiel-server/internal/errors"
)

// ProgressResolution is what a session end writes back to the item.
type ProgressResolution struct {
	// Finished reports that the item should be treated as completed.
	Finished bool
	// MarkPlayed flips the item's played flag. A prerelease marker finishes
	// the session without marking the item played.
	MarkPlayed bool
	// Offset is the cumulative played-up-to value to persist, in whole
	// seconds. Always zero when Finished is true.
	Offset int
	// ClearUpNext removes the item from the Up Next queue.
	ClearUpNext bool
}

// ResolveProgress decides, from the live player's reported track title and
// intra-track offset, whether the session's item is finished and what
// cumulative offset to persist.
//
// The live track is matched against the session's track list by title. A
// match failure means the list and the player have drifted apart; the
// resolver fails with an out-of-sync error and nothing may be persisted for
// this cycle. The session itself stays usable.
func (c *Calculator) ResolveProgress(session *domain.PlaybackSession, liveTrackTitle string, liveOffset float64, now time.Time) (*ProgressResolution, error) {
	liveIndex := -1
	for i, t := range session.Tracks {
		if t.Title == liveTrackTitle {
			liveIndex = i
			break
		}
	}
	if liveIndex < 0 {
		return nil, errors.OutOfSync("live track not in resolved track list").
			WithDetails(map[string]any{
				"item_id":    session.ItemID,
				"live_track": liveTrackTitle,
			})
	}
	liveTrack := session.Tracks[liveIndex]

	// Natural completion: the player wrapped back to the track the session
	// started on, sitting at its very beginning.
	if liveOffset == 0 && session.StartedTrackRef != "" && liveTrack.CatalogRef == session.StartedTrackRef {
		return &ProgressResolution{Finished: true, MarkPlayed: true, Offset: 0, ClearUpNext: true}, nil
	}

	// Prerelease items carry a single placeholder track. Stopping on it
	// clears Up Next without marking anything played.
	if liveIndex == 0 && session.Item.IsPrerelease(now) {
		return &ProgressResolution{Finished: true, MarkPlayed: false, Offset: 0, ClearUpNext: true}, nil
	}

	cumulative := liveOffset
	for _, t := range session.Tracks[:liveIndex] {
		cumulative += t.Duration
	}

	// Close enough to the end counts as finished. Trailing silence and
	// credits should not leave an item stuck at 99%.
	total := domain.TotalDuration(session.Tracks)
	if total-cumulative <= c.cfg.TailToleranceSeconds {
		return &ProgressResolution{Finished: true, MarkPlayed: true, Offset: 0, ClearUpNext: true}, nil
	}

	return &ProgressResolution{Offset: int(cumulative)}, nil
}
