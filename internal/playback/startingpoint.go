// Package playback holds the pure calculations behind playback position
// resolution: where to start an item, how to apply a relative skip, and what
// cumulative offset to persist when a session ends. All functions here take
// their inputs explicitly and perform no I/O; the service layer owns the
// store, the catalog, and the live player.
package playback

import (
	"strconv"
	"strings"
	"time"

	"github.com/hoerspielapp/hoerspiel-server/internal/domain"
)

// Config carries the tuning constants of the playback calculations. The
// disclaimer length and the completion tolerance were measured against real
// releases of one series; they are configuration, not universal truths.
type Config struct {
	// DisclaimerSeconds is the length of the spoken legal notice present in
	// certain episodes of the disclaimer series.
	DisclaimerSeconds float64
	// DisclaimerEpisodes lists the episode numbers that carry the disclaimer.
	DisclaimerEpisodes map[int]bool
	// DisclaimerSeries is the only series the disclaimer rule applies to.
	// The Kids spin-off shares the artist but has no disclaimer.
	DisclaimerSeries string
	// TailToleranceSeconds is how close to the end a session may stop and
	// still count as finished. Absorbs trailing silence and credits.
	TailToleranceSeconds float64
}

// DefaultConfig returns the constants observed in production data.
func DefaultConfig() Config {
	return Config{
		DisclaimerSeconds:    42,
		DisclaimerEpisodes:   map[int]bool{1: true, 3: true, 4: true, 6: true, 19: true, 35: true},
		DisclaimerSeries:     domain.SeriesDieDreiFragezeichen,
		TailToleranceSeconds: 60,
	}
}

// StartingPoint is the result of resolving where playback of an item begins.
type StartingPoint struct {
	// Tracks is the list to hand to the player. It may be shorter than the
	// input when a recap track was skipped and dropped.
	Tracks []domain.Track
	// TrackIndex points into Tracks (not into the original input list).
	TrackIndex int
	// Offset is the seek position within the starting track, in seconds.
	Offset float64
	// StartWallClock and EndWallClock project the session onto wall time,
	// anchored so that the live player's elapsed time lines up with the
	// cumulative position.
	StartWallClock time.Time
	EndWallClock   time.Time
	// RecomputedDuration is the sum of all input track durations. When it
	// differs from the item's stored duration the caller should persist the
	// correction; the calculation itself never writes.
	RecomputedDuration float64
	// DurationDrift is true when RecomputedDuration differs from the item's
	// stored duration.
	DurationDrift bool
}

// Calculator resolves starting points, skips, and progress under one Config.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a Calculator with the given config.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// CalculateStartingPoint computes where playback of item begins given its
// resolved track list, the stored cumulative offset, and the user's skip
// preferences. now anchors the wall-clock projections.
func (c *Calculator) CalculateStartingPoint(item *domain.Item, tracks []domain.Track, storedPlayedUpTo int, prefs domain.SkipPreferences, now time.Time) (*StartingPoint, error) {
	if storedPlayedUpTo < 0 {
		return nil, ErrUnableToGetPlayedUpTo
	}

	totalDuration := domain.TotalDuration(tracks)
	if totalDuration <= 0 {
		return nil, ErrUnableToGetStoredDuration
	}
	drift := item.DurationSeconds != totalDuration

	if storedPlayedUpTo == 0 && prefs.SmartSkipEnabled {
		return c.freshStart(item, tracks, prefs, now, totalDuration, drift)
	}
	return c.resume(tracks, storedPlayedUpTo, now, totalDuration, drift)
}

// freshStart handles an unplayed item with smart-skip on: the recap track may
// be dropped entirely and the disclaimer seeked over.
func (c *Calculator) freshStart(item *domain.Item, tracks []domain.Track, prefs domain.SkipPreferences, now time.Time, totalDuration float64, drift bool) (*StartingPoint, error) {
	currentPoint := 0.0
	startOffset := 0.0
	result := tracks

	if prefs.SkipIntro {
		if item.ReleaseDate.IsZero() {
			return nil, ErrUnableToGetReleaseDate
		}
		if item.ReleaseDate.Before(now) && len(result) > 0 && result[0].IsRecap() {
			// The recap is removed from the queue, so only the wall-clock
			// anchor moves, not the seek offset.
			currentPoint += result[0].Duration
			result = result[1:]
		}
	}

	if prefs.SkipDisclaimer && item.SeriesName == c.cfg.DisclaimerSeries {
		if episode, ok := parseEpisodeNumber(item.Title); ok && c.cfg.DisclaimerEpisodes[episode] {
			currentPoint += c.cfg.DisclaimerSeconds
			startOffset += c.cfg.DisclaimerSeconds
		}
	}

	if len(result) == 0 {
		return nil, ErrUnableToGetTrackIndex
	}

	return &StartingPoint{
		Tracks:             result,
		TrackIndex:         0,
		Offset:             startOffset,
		StartWallClock:     now.Add(-secondsToDuration(currentPoint)),
		EndWallClock:       now.Add(secondsToDuration(totalDuration)),
		RecomputedDuration: totalDuration,
		DurationDrift:      drift,
	}, nil
}

// resume walks the track list until the stored cumulative offset falls inside
// a track. An offset landing exactly on a track boundary starts the next
// track at zero.
func (c *Calculator) resume(tracks []domain.Track, storedPlayedUpTo int, now time.Time, totalDuration float64, drift bool) (*StartingPoint, error) {
	remaining := float64(storedPlayedUpTo)
	for i, t := range tracks {
		if remaining < t.Duration {
			start := now.Add(-secondsToDuration(float64(storedPlayedUpTo)))
			return &StartingPoint{
				Tracks:             tracks,
				TrackIndex:         i,
				Offset:             remaining,
				StartWallClock:     start,
				EndWallClock:       start.Add(secondsToDuration(totalDuration)),
				RecomputedDuration: totalDuration,
				DurationDrift:      drift,
			}, nil
		}
		remaining -= t.Duration
	}
	// The stored offset exceeds the sum of all track durations. Stale
	// duration or corrupted progress; refuse to guess.
	return nil, ErrUnableToFindMatchingTrack
}

// parseEpisodeNumber extracts the episode number from an item title of the
// form "Folge 12: Der Titel". The second whitespace-delimited token, stripped
// of a trailing colon, must parse as an integer. Anything else means "no
// episode number", never an error.
func parseEpisodeNumber(title string) (int, bool) {
	fields := strings.Fields(title)
	if len(fields) < 2 {
		return 0, false
	}
	token := strings.TrimSuffix(fields[1], ":")
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}
	return n, true
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
