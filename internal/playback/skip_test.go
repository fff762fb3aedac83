package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplySkip_WithinTrack(t *testing.T) {
	tracks := testTracks(300, 300)
	pos := Position{TrackIndex: 0, Offset: 100}

	got := ApplySkip(tracks, pos, 30)
	assert.Equal(t, 0, got.TrackIndex)
	assert.InDelta(t, 130, got.Offset, 0.001)

	got = ApplySkip(tracks, pos, -30)
	assert.Equal(t, 0, got.TrackIndex)
	assert.InDelta(t, 70, got.Offset, 0.001)
}

func TestApplySkip_ForwardCrossesBoundary(t *testing.T) {
	tracks := testTracks(300, 300, 300)

	got := ApplySkip(tracks, Position{TrackIndex: 0, Offset: 290}, 20)
	assert.Equal(t, 1, got.TrackIndex)
	assert.InDelta(t, 10, got.Offset, 0.001)
}

func TestApplySkip_ForwardCrossesMultipleTracks(t *testing.T) {
	tracks := testTracks(100, 50, 300)

	got := ApplySkip(tracks, Position{TrackIndex: 0, Offset: 90}, 100)
	assert.Equal(t, 2, got.TrackIndex)
	assert.InDelta(t, 40, got.Offset, 0.001)
}

func TestApplySkip_BackwardCrossesBoundary(t *testing.T) {
	tracks := testTracks(300, 300)

	got := ApplySkip(tracks, Position{TrackIndex: 1, Offset: 10}, -20)
	assert.Equal(t, 0, got.TrackIndex)
	assert.InDelta(t, 290, got.Offset, 0.001)
}

func TestApplySkip_BackwardCrossesMultipleTracks(t *testing.T) {
	tracks := testTracks(100, 50, 300)

	got := ApplySkip(tracks, Position{TrackIndex: 2, Offset: 40}, -100)
	assert.Equal(t, 0, got.TrackIndex)
	assert.InDelta(t, 90, got.Offset, 0.001)
}

func TestApplySkip_ClampsAtStart(t *testing.T) {
	tracks := testTracks(300, 300)

	got := ApplySkip(tracks, Position{TrackIndex: 0, Offset: 10}, -60)
	assert.Equal(t, 0, got.TrackIndex)
	assert.Zero(t, got.Offset)
}

func TestApplySkip_ClampsAtEnd(t *testing.T) {
	tracks := testTracks(300, 300)

	got := ApplySkip(tracks, Position{TrackIndex: 1, Offset: 290}, 60)
	assert.Equal(t, 1, got.TrackIndex)
	assert.InDelta(t, 300, got.Offset, 0.001)
}

func TestApplySkip_RoundTrip(t *testing.T) {
	tracks := testTracks(120, 45, 300, 90)
	orig := Position{TrackIndex: 1, Offset: 20}

	for _, delta := range []float64{15, 30, 90, 200, -15, -30} {
		fwd := ApplySkip(tracks, orig, delta)
		back := ApplySkip(tracks, fwd, -delta)
		assert.Equal(t, orig.TrackIndex, back.TrackIndex, "delta %v", delta)
		assert.InDelta(t, orig.Offset, back.Offset, 0.001, "delta %v", delta)
	}
}

func TestApplySkip_ShiftsAnchors(t *testing.T) {
	tracks := testTracks(300, 300)
	start := time.Now()
	end := start.Add(600 * time.Second)
	pos := Position{TrackIndex: 0, Offset: 100, StartWallClock: start, EndWallClock: end}

	got := ApplySkip(tracks, pos, 30)
	assert.WithinDuration(t, start.Add(-30*time.Second), got.StartWallClock, time.Millisecond)
	assert.WithinDuration(t, end.Add(-30*time.Second), got.EndWallClock, time.Millisecond)
}

func TestApplySkip_EmptyTracks(t *testing.T) {
	pos := Position{TrackIndex: 0, Offset: 10}
	got := ApplySkip(nil, pos, 30)
	assert.Equal(t, pos, got)
}
