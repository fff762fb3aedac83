package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hoerspielapp/hoerspiel-server/internal/domain"
	"github.com/hoerspielapp/hoerspiel-server/internal/errors"
	"github.com/hoerspielapp/hoerspiel-server/internal/id"
	"github.com/hoerspielapp/hoerspiel-server/internal/playback"
	"github.com/hoerspielapp/hoerspiel-server/internal/store"
	"github.com/hoerspielapp/hoerspiel-server/internal/validation"
)

// PlaybackService owns the lifecycle of playback sessions: starting them at
// the right position, applying skips, and flushing progress back to the
// store when they end.
type PlaybackService struct {
	store     *store.Store
	tracks    *TrackService
	calc      *playback.Calculator
	validator *validation.Validator
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	// activeID is the session whose progress must be flushed before a
	// session for a different item may start.
	activeID string
}

// session pairs the session snapshot with its own lock. Skips against one
// session serialize on this lock; the generation counter lets a newer skip
// supersede an older one that has not run yet.
type session struct {
	mu      sync.Mutex
	data    domain.PlaybackSession
	skipGen int64
	// dirty is set once the position moved. An untouched session is dropped
	// without a flush; saving it would look like a wrap back to the start.
	dirty bool
}

// NewPlaybackService creates a new playback service.
func NewPlaybackService(st *store.Store, tracks *TrackService, calc *playback.Calculator, v *validation.Validator, logger *slog.Logger) *PlaybackService {
	return &PlaybackService{
		store:     st,
		tracks:    tracks,
		calc:      calc,
		validator: v,
		logger:    logger,
		sessions:  make(map[string]*session),
	}
}

// StartSessionRequest asks for playback of an item to begin.
type StartSessionRequest struct {
	ItemID           string `json:"item_id" validate:"required"`
	SmartSkipEnabled bool   `json:"smart_skip_enabled"`
	SkipIntro        bool   `json:"skip_intro"`
	SkipDisclaimer   bool   `json:"skip_disclaimer"`
}

// StartSessionResponse carries the resolved starting position.
type StartSessionResponse struct {
	SessionID      string         `json:"session_id"`
	Tracks         []domain.Track `json:"tracks"`
	TrackIndex     int            `json:"track_index"`
	OffsetSeconds  float64        `json:"offset_seconds"`
	StartWallClock time.Time      `json:"start_wall_clock"`
	EndWallClock   time.Time      `json:"end_wall_clock"`
}

// StartSession resolves tracks and the starting point for an item and opens
// a new session. Progress of a still-active session for a different item is
// flushed synchronously first so it can never be lost.
func (s *PlaybackService) StartSession(ctx context.Context, req StartSessionRequest) (*StartSessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if err := s.flushActiveSession(ctx, req.ItemID); err != nil {
		return nil, err
	}

	item, err := s.store.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}

	tracks, err := s.tracks.ResolveTracks(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}

	prefs := domain.SkipPreferences{
		SmartSkipEnabled: req.SmartSkipEnabled,
		SkipIntro:        req.SkipIntro,
		SkipDisclaimer:   req.SkipDisclaimer,
	}

	now := time.Now()
	sp, err := s.calc.CalculateStartingPoint(item, tracks, item.PlayedUpToSeconds, prefs, now)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConflict, "calculate starting point")
	}

	// Self-healing drift correction. The calculation already succeeded;
	// a failed write only costs us the same correction next time.
	if sp.DurationDrift {
		if err := s.store.UpdateDuration(ctx, item.ID, sp.RecomputedDuration); err != nil {
			s.logger.Warn("failed to persist corrected duration", "item_id", item.ID, "error", err)
		}
	}

	sessionID, err := id.Generate("ses")
	if err != nil {
		return nil, errors.Internal("generate session id").WithCause(err)
	}

	sess := &session{
		data: domain.PlaybackSession{
			ID:                sessionID,
			ItemID:            item.ID,
			Item:              *item,
			Tracks:            sp.Tracks,
			CurrentTrackIndex: sp.TrackIndex,
			CurrentOffset:     sp.Offset,
			StartWallClock:    sp.StartWallClock,
			EndWallClock:      sp.EndWallClock,
			StartedTrackRef:   sp.Tracks[sp.TrackIndex].CatalogRef,
		},
	}

	s.mu.Lock()
	s.sessions[sessionID] = sess
	s.activeID = sessionID
	s.mu.Unlock()

	s.logger.Debug("playback session started",
		"session_id", sessionID,
		"item_id", item.ID,
		"track_index", sp.TrackIndex,
		"offset", sp.Offset,
	)

	return &StartSessionResponse{
		SessionID:      sessionID,
		Tracks:         sp.Tracks,
		TrackIndex:     sp.TrackIndex,
		OffsetSeconds:  sp.Offset,
		StartWallClock: sp.StartWallClock,
		EndWallClock:   sp.EndWallClock,
	}, nil
}

// SkipRequest moves the session position by a relative amount.
type SkipRequest struct {
	SessionID    string  `json:"session_id" validate:"required"`
	DeltaSeconds float64 `json:"delta_seconds"`
}

// SkipResponse is the position after the skip.
type SkipResponse struct {
	TrackIndex     int       `json:"track_index"`
	OffsetSeconds  float64   `json:"offset_seconds"`
	StartWallClock time.Time `json:"start_wall_clock"`
	EndWallClock   time.Time `json:"end_wall_clock"`
}

// Skip applies a relative seek to a session. Requests against the same
// session are serialized; a request that arrives while another waits
// supersedes it (last writer wins), so two deltas never interleave.
func (s *PlaybackService) Skip(ctx context.Context, req SkipRequest) (*SkipResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	sess, err := s.getSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sess.skipGen++
	gen := sess.skipGen
	sess.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.skipGen != gen {
		// A newer skip took over; report the current position unchanged.
		return skipResponseFrom(&sess.data), nil
	}

	pos := playback.ApplySkip(sess.data.Tracks, playback.Position{
		TrackIndex:     sess.data.CurrentTrackIndex,
		Offset:         sess.data.CurrentOffset,
		StartWallClock: sess.data.StartWallClock,
		EndWallClock:   sess.data.EndWallClock,
	}, req.DeltaSeconds)

	sess.data.CurrentTrackIndex = pos.TrackIndex
	sess.data.CurrentOffset = pos.Offset
	sess.data.StartWallClock = pos.StartWallClock
	sess.data.EndWallClock = pos.EndWallClock
	sess.dirty = true

	return skipResponseFrom(&sess.data), nil
}

func skipResponseFrom(data *domain.PlaybackSession) *SkipResponse {
	return &SkipResponse{
		TrackIndex:     data.CurrentTrackIndex,
		OffsetSeconds:  data.CurrentOffset,
		StartWallClock: data.StartWallClock,
		EndWallClock:   data.EndWallClock,
	}
}

// ReportPosition updates the session with the live player's current track
// and offset, matched by title against the session's track list.
func (s *PlaybackService) ReportPosition(ctx context.Context, sessionID, trackTitle string, offset float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sess, err := s.getSession(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	for i, t := range sess.data.Tracks {
		if t.Title == trackTitle {
			sess.data.CurrentTrackIndex = i
			sess.data.CurrentOffset = offset
			sess.dirty = true
			return nil
		}
	}
	return errors.OutOfSync("reported track not in session track list").
		WithDetails(map[string]any{"session_id": sessionID, "live_track": trackTitle})
}

// SaveProgressRequest flushes a session's live position to the store.
type SaveProgressRequest struct {
	SessionID      string  `json:"session_id" validate:"required"`
	LiveTrackTitle string  `json:"live_track_title" validate:"required"`
	LiveOffset     float64 `json:"live_offset" validate:"gte=0"`
	// EndSession destroys the session after a successful save.
	EndSession bool `json:"end_session"`
}

// SaveProgressResponse reports what was persisted.
type SaveProgressResponse struct {
	Finished          bool `json:"finished"`
	PlayedUpToSeconds int  `json:"played_up_to_seconds"`
}

// SaveProgress resolves the session's live position into a cumulative offset
// and writes it to the item. An out-of-sync live position aborts this save
// cycle without touching stored state; the session stays usable.
func (s *PlaybackService) SaveProgress(ctx context.Context, req SaveProgressRequest) (*SaveProgressResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	sess, err := s.getSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	snapshot := sess.data
	sess.mu.Unlock()

	now := time.Now()
	resolution, err := s.calc.ResolveProgress(&snapshot, req.LiveTrackTitle, req.LiveOffset, now)
	if err != nil {
		s.logger.Error("progress resolution failed, nothing persisted",
			"session_id", req.SessionID,
			"item_id", snapshot.ItemID,
			"live_track", req.LiveTrackTitle,
			"error", err,
		)
		return nil, err
	}

	applied, err := s.store.ApplyProgress(ctx, snapshot.ItemID, store.ProgressUpdate{
		PlayedUpToSeconds: resolution.Offset,
		MarkPlayed:        resolution.MarkPlayed,
		ClearUpNext:       resolution.ClearUpNext,
		PlayedAt:          now,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		s.logger.Debug("progress write superseded by newer state", "item_id", snapshot.ItemID)
	}

	if req.EndSession {
		s.dropSession(req.SessionID)
	}

	return &SaveProgressResponse{
		Finished:          resolution.Finished,
		PlayedUpToSeconds: resolution.Offset,
	}, nil
}

// EndSession drops a session without saving. Used when the caller already
// flushed progress or explicitly discards the session.
func (s *PlaybackService) EndSession(sessionID string) {
	s.dropSession(sessionID)
}

// flushActiveSession saves and closes the active session when a session for
// a different item is about to start. Runs synchronously; losing the old
// item's progress is worse than a slower start.
func (s *PlaybackService) flushActiveSession(ctx context.Context, newItemID string) error {
	s.mu.Lock()
	activeID := s.activeID
	sess := s.sessions[activeID]
	s.mu.Unlock()

	if sess == nil {
		return nil
	}

	sess.mu.Lock()
	snapshot := sess.data
	dirty := sess.dirty
	sess.mu.Unlock()

	if snapshot.ItemID == newItemID {
		// Restarting the same item replaces the session without a flush;
		// the new starting point is computed from stored progress anyway.
		s.dropSession(activeID)
		return nil
	}

	track, ok := snapshot.CurrentTrack()
	if !dirty || !ok {
		s.dropSession(activeID)
		return nil
	}

	_, err := s.SaveProgress(ctx, SaveProgressRequest{
		SessionID:      activeID,
		LiveTrackTitle: track.Title,
		LiveOffset:     snapshot.CurrentOffset,
		EndSession:     true,
	})
	if err != nil && !errors.Is(err, errors.ErrOutOfSync) {
		return err
	}
	if err != nil {
		// Out-of-sync here means the session state itself drifted; the
		// session is discarded rather than blocking the new start.
		s.logger.Warn("discarding drifted session", "session_id", activeID)
		s.dropSession(activeID)
	}
	return nil
}

func (s *PlaybackService) getSession(sessionID string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, errors.NotFoundf("session %s not found", sessionID)
	}
	return sess, nil
}

func (s *PlaybackService) dropSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	if s.activeID == sessionID {
		s.activeID = ""
	}
}
