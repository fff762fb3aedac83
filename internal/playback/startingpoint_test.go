package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoerspielapp/hoerspiel-server/internal/domain"
)

func testTracks(durations ...float64) []domain.Track {
	tracks := make([]domain.Track, len(durations))
	for i, d := range durations {
		tracks[i] = domain.Track{
			Title:      "Teil " + string(rune('1'+i)),
			Duration:   d,
			CatalogRef: "trk-" + string(rune('a'+i)),
			Index:      i,
		}
	}
	return tracks
}

func testItem(title, series string, released time.Time, duration float64) *domain.Item {
	item := &domain.Item{
		Title:           title,
		SeriesName:      series,
		ReleaseDate:     released,
		DurationSeconds: duration,
	}
	item.ID = "itm-test"
	return item
}

func TestCalculateStartingPoint_Resume(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	now := time.Now()
	tracks := testTracks(300, 300, 300)
	item := testItem("Folge 2: Test", domain.SeriesDieDreiFragezeichen, now.Add(-24*time.Hour), 900)

	sp, err := calc.CalculateStartingPoint(item, tracks, 350, domain.SkipPreferences{}, now)
	require.NoError(t, err)

	assert.Equal(t, 1, sp.TrackIndex)
	assert.InDelta(t, 50, sp.Offset, 0.001)
	assert.Len(t, sp.Tracks, 3)
	assert.WithinDuration(t, now.Add(-350*time.Second), sp.StartWallClock, time.Millisecond)
	assert.WithinDuration(t, sp.StartWallClock.Add(900*time.Second), sp.EndWallClock, time.Millisecond)
}

func TestCalculateStartingPoint_ResumeConsistency(t *testing.T) {
	// For any stored offset below the total, the durations before the start
	// track plus the intra-track offset must reproduce the stored offset.
	calc := NewCalculator(DefaultConfig())
	now := time.Now()
	tracks := testTracks(120, 45, 300, 90)
	item := testItem("Folge 2: Test", "", now.Add(-time.Hour), 555)

	for _, offset := range []int{0, 1, 119, 120, 164, 165, 400, 554} {
		sp, err := calc.CalculateStartingPoint(item, tracks, offset, domain.SkipPreferences{}, now)
		require.NoError(t, err, "offset %d", offset)

		var before float64
		for _, tr := range sp.Tracks[:sp.TrackIndex] {
			before += tr.Duration
		}
		assert.InDelta(t, float64(offset), before+sp.Offset, 0.001, "offset %d", offset)
	}
}

func TestCalculateStartingPoint_ResumeBoundaryAdvances(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	now := time.Now()
	tracks := testTracks(300, 300)
	item := testItem("Folge 2: Test", "", now.Add(-time.Hour), 600)

	sp, err := calc.CalculateStartingPoint(item, tracks, 300, domain.SkipPreferences{}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, sp.TrackIndex)
	assert.Zero(t, sp.Offset)
}

func TestCalculateStartingPoint_OffsetBeyondTotal(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	now := time.Now()
	tracks := testTracks(300, 300)
	item := testItem("Folge 2: Test", "", now.Add(-time.Hour), 600)

	_, err := calc.CalculateStartingPoint(item, tracks, 600, domain.SkipPreferences{}, now)
	assert.ErrorIs(t, err, ErrUnableToFindMatchingTrack)

	_, err = calc.CalculateStartingPoint(item, tracks, 1000, domain.SkipPreferences{}, now)
	assert.ErrorIs(t, err, ErrUnableToFindMatchingTrack)
}

func TestCalculateStartingPoint_NegativeOffset(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	now := time.Now()
	item := testItem("Folge 2: Test", "", now.Add(-time.Hour), 600)

	_, err := calc.CalculateStartingPoint(item, testTracks(300, 300), -1, domain.SkipPreferences{}, now)
	assert.ErrorIs(t, err, ErrUnableToGetPlayedUpTo)
}

func TestCalculateStartingPoint_SkipIntroDropsRecap(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	now := time.Now()
	tracks := []domain.Track{
		{Title: "Inhaltsangabe", Duration: 60, CatalogRef: "trk-a", Index: 0},
		{Title: "Teil 1", Duration: 500, CatalogRef: "trk-b", Index: 1},
	}
	item := testItem("Folge 7: Test", domain.SeriesDieDreiFragezeichen, now.Add(-24*time.Hour), 560)
	prefs := domain.SkipPreferences{SmartSkipEnabled: true, SkipIntro: true}

	sp, err := calc.CalculateStartingPoint(item, tracks, 0, prefs, now)
	require.NoError(t, err)

	require.Len(t, sp.Tracks, 1)
	assert.Equal(t, "Teil 1", sp.Tracks[0].Title)
	assert.Equal(t, 0, sp.TrackIndex)
	assert.Zero(t, sp.Offset)
	// The recap still happened on the projected timeline.
	assert.WithinDuration(t, now.Add(-60*time.Second), sp.StartWallClock, time.Millisecond)
	assert.WithinDuration(t, now.Add(560*time.Second), sp.EndWallClock, time.Millisecond)
}

func TestCalculateStartingPoint_SkipIntroUnreleasedKeepsRecap(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	now := time.Now()
	tracks := []domain.Track{
		{Title: "Inhaltsangabe", Duration: 60, CatalogRef: "trk-a", Index: 0},
		{Title: "Teil 1", Duration: 500, CatalogRef: "trk-b", Index: 1},
	}
	item := testItem("Folge 7: Test", domain.SeriesDieDreiFragezeichen, now.Add(24*time.Hour), 560)
	prefs := domain.SkipPreferences{SmartSkipEnabled: true, SkipIntro: true}

	sp, err := calc.CalculateStartingPoint(item, tracks, 0, prefs, now)
	require.NoError(t, err)
	assert.Len(t, sp.Tracks, 2)
	assert.Zero(t, sp.Offset)
}

func TestCalculateStartingPoint_Disclaimer(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	now := time.Now()
	prefs := domain.SkipPreferences{SmartSkipEnabled: true, SkipDisclaimer: true}

	tests := []struct {
		name       string
		title      string
		series     string
		wantOffset float64
	}{
		{"episode in set", "Folge 1: Der Super-Papagei", domain.SeriesDieDreiFragezeichen, 42},
		{"episode in set, colon token", "Folge 35: Test", domain.SeriesDieDreiFragezeichen, 42},
		{"episode not in set", "Folge 2: Test", domain.SeriesDieDreiFragezeichen, 0},
		{"kids series excluded", "Folge 1: Test", domain.SeriesDieDreiFragezeichenKids, 0},
		{"no series", "Folge 1: Test", "", 0},
		{"unparseable episode", "Folge und so weiter", domain.SeriesDieDreiFragezeichen, 0},
		{"single word title", "Titel", domain.SeriesDieDreiFragezeichen, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := testItem(tt.title, tt.series, now.Add(-24*time.Hour), 600)
			sp, err := calc.CalculateStartingPoint(item, testTracks(300, 300), 0, prefs, now)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantOffset, sp.Offset, 0.001)
		})
	}
}

func TestCalculateStartingPoint_DisclaimerAndIntroCombined(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	now := time.Now()
	tracks := []domain.Track{
		{Title: "Inhaltsangabe", Duration: 60, CatalogRef: "trk-a", Index: 0},
		{Title: "Teil 1", Duration: 500, CatalogRef: "trk-b", Index: 1},
	}
	item := testItem("Folge 1: Der Super-Papagei", domain.SeriesDieDreiFragezeichen, now.Add(-24*time.Hour), 560)
	prefs := domain.SkipPreferences{SmartSkipEnabled: true, SkipIntro: true, SkipDisclaimer: true}

	sp, err := calc.CalculateStartingPoint(item, tracks, 0, prefs, now)
	require.NoError(t, err)

	require.Len(t, sp.Tracks, 1)
	assert.InDelta(t, 42, sp.Offset, 0.001)
	// Recap duration plus disclaimer both shift the start anchor.
	assert.WithinDuration(t, now.Add(-102*time.Second), sp.StartWallClock, time.Millisecond)
}

func TestCalculateStartingPoint_SmartSkipDisabledIsPlainStart(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	now := time.Now()
	tracks := []domain.Track{
		{Title: "Inhaltsangabe", Duration: 60, CatalogRef: "trk-a", Index: 0},
		{Title: "Teil 1", Duration: 500, CatalogRef: "trk-b", Index: 1},
	}
	item := testItem("Folge 1: Test", domain.SeriesDieDreiFragezeichen, now.Add(-24*time.Hour), 560)

	sp, err := calc.CalculateStartingPoint(item, tracks, 0, domain.SkipPreferences{}, now)
	require.NoError(t, err)
	assert.Len(t, sp.Tracks, 2)
	assert.Equal(t, 0, sp.TrackIndex)
	assert.Zero(t, sp.Offset)
}

func TestCalculateStartingPoint_DurationDrift(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	now := time.Now()
	item := testItem("Folge 2: Test", "", now.Add(-time.Hour), 555)

	sp, err := calc.CalculateStartingPoint(item, testTracks(300, 300), 100, domain.SkipPreferences{}, now)
	require.NoError(t, err)
	assert.True(t, sp.DurationDrift)
	assert.InDelta(t, 600, sp.RecomputedDuration, 0.001)
}

func TestCalculateStartingPoint_MissingReleaseDate(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	now := time.Now()
	item := testItem("Folge 2: Test", "", time.Time{}, 600)
	prefs := domain.SkipPreferences{SmartSkipEnabled: true, SkipIntro: true}

	_, err := calc.CalculateStartingPoint(item, testTracks(300, 300), 0, prefs, now)
	assert.ErrorIs(t, err, ErrUnableToGetReleaseDate)
}

func TestCalculateStartingPoint_EmptyTracks(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	now := time.Now()
	item := testItem("Folge 2: Test", "", now.Add(-time.Hour), 600)

	_, err := calc.CalculateStartingPoint(item, nil, 0, domain.SkipPreferences{}, now)
	assert.ErrorIs(t, err, ErrUnableToGetStoredDuration)
}

func TestParseEpisodeNumber(t *testing.T) {
	tests := []struct {
		title string
		want  int
		ok    bool
	}{
		{"Folge 1: Der Super-Papagei", 1, true},
		{"Folge 35: Test", 35, true},
		{"Folge 120 und die Rache", 120, true},
		{"Folge", 0, false},
		{"Folge x: Test", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseEpisodeNumber(tt.title)
		assert.Equal(t, tt.ok, ok, tt.title)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.title)
		}
	}
}
