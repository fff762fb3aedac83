// Package domain contains the core business entities for the Hörspiel library:
// items (audio dramas), their ordered tracks, series, and playback sessions.
package domain

import (
	"sort"
	"strings"
	"time"
)

// TrackRole tags a track's function within an item. Historically this was
// inferred from track titles; the role is now stored explicitly so the
// playback logic does not have to depend on string matching for data that
// carries the tag.
type TrackRole string

const (
	// TrackRoleChapter is a regular audio chapter.
	TrackRoleChapter TrackRole = "chapter"
	// TrackRoleRecap is a synopsis track ("Inhaltsangabe") preceding the story.
	TrackRoleRecap TrackRole = "recap"
	// TrackRolePrerelease is a placeholder track on items whose release date
	// is still in the future.
	TrackRolePrerelease TrackRole = "prerelease"
)

// recapTitleMarker is the title substring that identifies synopsis tracks in
// catalog data that predates the explicit role tag.
const recapTitleMarker = "Inhaltsangabe"

// Track is one audio chapter within an item. Immutable within a resolution.
type Track struct {
	Title      string    `json:"title"`
	Duration   float64   `json:"duration"` // seconds
	CatalogRef string    `json:"catalog_ref"`
	Index      int       `json:"index"`
	Role       TrackRole `json:"role,omitempty"`
}

// IsRecap reports whether this track is a synopsis track. Falls back to the
// title heuristic for tracks without an explicit role, to stay behaviorally
// equivalent for existing data.
func (t Track) IsRecap() bool {
	if t.Role != "" {
		return t.Role == TrackRoleRecap
	}
	return strings.Contains(t.Title, recapTitleMarker)
}

// DeriveTrackRole classifies a track by its title for catalog data that does
// not carry an explicit role.
func DeriveTrackRole(title string, prerelease bool) TrackRole {
	if prerelease {
		return TrackRolePrerelease
	}
	if strings.Contains(title, recapTitleMarker) {
		return TrackRoleRecap
	}
	return TrackRoleChapter
}

// SortTracks orders tracks by ascending index. Index is the only sort key;
// titles never break ties.
func SortTracks(tracks []Track) {
	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].Index < tracks[j].Index
	})
}

// TotalDuration sums the durations of all tracks in seconds.
func TotalDuration(tracks []Track) float64 {
	var total float64
	for _, t := range tracks {
		total += t.Duration
	}
	return total
}

// Item represents one audio drama release composed of ordered tracks.
type Item struct {
	Syncable
	Title             string     `json:"title"`
	Artist            string     `json:"artist"`
	UPC               string     `json:"upc"` // stable cross-system identity
	DurationSeconds   float64    `json:"duration_seconds"`
	ReleaseDate       time.Time  `json:"release_date"`
	LastPlayedAt      *time.Time `json:"last_played_at,omitempty"`
	PlayedUpToSeconds int        `json:"played_up_to_seconds"`
	Played            bool       `json:"played"`
	UpNext            bool       `json:"up_next"`
	AddedToUpNextAt   *time.Time `json:"added_to_up_next_at,omitempty"`
	SeriesID          string     `json:"series_id,omitempty"`
	CatalogID         string     `json:"catalog_id,omitempty"`
	SeriesName        string     `json:"series_name,omitempty"` // denormalized for display and disclaimer matching
	ArtworkURL        string     `json:"artwork_url,omitempty"` // template with {w}/{h} placeholders
	Description       string     `json:"description,omitempty"` // editorial notes, Markdown
	Tracks            []Track    `json:"tracks,omitempty"`      // cached track list, may be absent
}

// IsPrerelease reports whether the item's release date is still in the future.
func (i *Item) IsPrerelease(now time.Time) bool {
	return i.ReleaseDate.After(now)
}

// MarkPlayed flags the item as finished and resets progress so a replay
// starts from zero.
func (i *Item) MarkPlayed(at time.Time) {
	i.Played = true
	i.PlayedUpToSeconds = 0
	i.LastPlayedAt = &at
	i.Touch()
}

// AddToUpNext puts the item on the Up Next queue.
func (i *Item) AddToUpNext(at time.Time) {
	i.UpNext = true
	i.AddedToUpNextAt = &at
	i.Touch()
}

// RemoveFromUpNext clears the Up Next flag.
func (i *Item) RemoveFromUpNext() {
	i.UpNext = false
	i.AddedToUpNextAt = nil
	i.Touch()
}
