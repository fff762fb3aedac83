package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hoerspielapp/hoerspiel-server/internal/domain"
	"github.com/hoerspielapp/hoerspiel-server/internal/service"
)

func (s *Server) registerPlaybackRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "start-session",
		Method:      http.MethodPost,
		Path:        "/api/v1/playback/sessions",
		Summary:     "Start playback session",
		Description: "Resolves tracks and the starting position for an item. A still-active session for a different item is flushed first.",
		Tags:        []string{"Playback"},
	}, s.handleStartSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "skip",
		Method:      http.MethodPost,
		Path:        "/api/v1/playback/sessions/{id}/skip",
		Summary:     "Skip within session",
		Description: "Applies a relative seek. Concurrent skips against one session resolve last writer wins.",
		Tags:        []string{"Playback"},
	}, s.handleSkip)

	huma.Register(s.api, huma.Operation{
		OperationID: "report-position",
		Method:      http.MethodPost,
		Path:        "/api/v1/playback/sessions/{id}/position",
		Summary:     "Report live position",
		Tags:        []string{"Playback"},
	}, s.handleReportPosition)

	huma.Register(s.api, huma.Operation{
		OperationID: "save-progress",
		Method:      http.MethodPost,
		Path:        "/api/v1/playback/sessions/{id}/progress",
		Summary:     "Save progress",
		Description: "Resolves the live position into a cumulative offset and persists it on the item",
		Tags:        []string{"Playback"},
	}, s.handleSaveProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "end-session",
		Method:      http.MethodDelete,
		Path:        "/api/v1/playback/sessions/{id}",
		Summary:     "End session",
		Description: "Drops the session without saving progress",
		Tags:        []string{"Playback"},
	}, s.handleEndSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-tracks",
		Method:      http.MethodGet,
		Path:        "/api/v1/items/{id}/tracks",
		Summary:     "Resolve track list",
		Description: "Returns the ordered track list, consulting the remote catalog on a cache miss",
		Tags:        []string{"Playback"},
	}, s.handleGetTracks)
}

// === DTOs ===

// StartSessionInput contains the session start request body.
type StartSessionInput struct {
	Body struct {
		ItemID           string `json:"item_id" validate:"required" doc:"Item to play"`
		SmartSkipEnabled bool   `json:"smart_skip_enabled" doc:"Master switch for skip adjustments"`
		SkipIntro        bool   `json:"skip_intro" doc:"Skip the intro seconds of the first story track"`
		SkipDisclaimer   bool   `json:"skip_disclaimer" doc:"Skip the disclaimer on applicable series"`
	}
}

// SessionResponse describes the opened session and its starting position.
type SessionResponse struct {
	SessionID      string         `json:"session_id" doc:"Session ID"`
	Tracks         []domain.Track `json:"tracks" doc:"Playable track list"`
	TrackIndex     int            `json:"track_index" doc:"Starting track index"`
	OffsetSeconds  float64        `json:"offset_seconds" doc:"Starting offset within the track"`
	StartWallClock time.Time      `json:"start_wall_clock" doc:"Wall clock time playback starts"`
	EndWallClock   time.Time      `json:"end_wall_clock" doc:"Projected wall clock end time"`
}

// StartSessionOutput wraps the session response.
type StartSessionOutput struct {
	Body SessionResponse
}

// SkipInput contains the relative seek request.
type SkipInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		DeltaSeconds float64 `json:"delta_seconds" doc:"Seconds to move, negative seeks backwards"`
	}
}

// PositionResponse is the position after a skip.
type PositionResponse struct {
	TrackIndex     int       `json:"track_index" doc:"Track index after the skip"`
	OffsetSeconds  float64   `json:"offset_seconds" doc:"Offset within the track after the skip"`
	StartWallClock time.Time `json:"start_wall_clock" doc:"Adjusted wall clock start"`
	EndWallClock   time.Time `json:"end_wall_clock" doc:"Adjusted projected end"`
}

// SkipOutput wraps the position response.
type SkipOutput struct {
	Body PositionResponse
}

// ReportPositionInput carries the player's live position.
type ReportPositionInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		TrackTitle    string  `json:"track_title" validate:"required" doc:"Title of the currently playing track"`
		OffsetSeconds float64 `json:"offset_seconds" validate:"gte=0" doc:"Offset within the track"`
	}
}

// SaveProgressInput flushes the live position to the store.
type SaveProgressInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		TrackTitle    string  `json:"track_title" validate:"required" doc:"Title of the currently playing track"`
		OffsetSeconds float64 `json:"offset_seconds" validate:"gte=0" doc:"Offset within the track"`
		EndSession    bool    `json:"end_session" doc:"Destroy the session after a successful save"`
	}
}

// SaveProgressOutput reports what was persisted.
type SaveProgressOutput struct {
	Body struct {
		Finished          bool `json:"finished" doc:"The item was marked played"`
		PlayedUpToSeconds int  `json:"played_up_to_seconds" doc:"Persisted cumulative offset"`
	}
}

// SessionIDInput identifies a session by path parameter.
type SessionIDInput struct {
	ID string `path:"id" doc:"Session ID"`
}

// TracksOutput wraps a resolved track list.
type TracksOutput struct {
	Body struct {
		Tracks []domain.Track `json:"tracks"`
		Total  int            `json:"total" doc:"Number of tracks"`
	}
}

// === Handlers ===

func (s *Server) handleStartSession(ctx context.Context, input *StartSessionInput) (*StartSessionOutput, error) {
	resp, err := s.services.Playback.StartSession(ctx, service.StartSessionRequest{
		ItemID:           input.Body.ItemID,
		SmartSkipEnabled: input.Body.SmartSkipEnabled,
		SkipIntro:        input.Body.SkipIntro,
		SkipDisclaimer:   input.Body.SkipDisclaimer,
	})
	if err != nil {
		return nil, err
	}

	return &StartSessionOutput{Body: SessionResponse{
		SessionID:      resp.SessionID,
		Tracks:         resp.Tracks,
		TrackIndex:     resp.TrackIndex,
		OffsetSeconds:  resp.OffsetSeconds,
		StartWallClock: resp.StartWallClock,
		EndWallClock:   resp.EndWallClock,
	}}, nil
}

func (s *Server) handleSkip(ctx context.Context, input *SkipInput) (*SkipOutput, error) {
	resp, err := s.services.Playback.Skip(ctx, service.SkipRequest{
		SessionID:    input.ID,
		DeltaSeconds: input.Body.DeltaSeconds,
	})
	if err != nil {
		return nil, err
	}

	return &SkipOutput{Body: PositionResponse{
		TrackIndex:     resp.TrackIndex,
		OffsetSeconds:  resp.OffsetSeconds,
		StartWallClock: resp.StartWallClock,
		EndWallClock:   resp.EndWallClock,
	}}, nil
}

func (s *Server) handleReportPosition(ctx context.Context, input *ReportPositionInput) (*struct{}, error) {
	err := s.services.Playback.ReportPosition(ctx, input.ID, input.Body.TrackTitle, input.Body.OffsetSeconds)
	if err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (s *Server) handleSaveProgress(ctx context.Context, input *SaveProgressInput) (*SaveProgressOutput, error) {
	resp, err := s.services.Playback.SaveProgress(ctx, service.SaveProgressRequest{
		SessionID:      input.ID,
		LiveTrackTitle: input.Body.TrackTitle,
		LiveOffset:     input.Body.OffsetSeconds,
		EndSession:     input.Body.EndSession,
	})
	if err != nil {
		return nil, err
	}

	out := &SaveProgressOutput{}
	out.Body.Finished = resp.Finished
	out.Body.PlayedUpToSeconds = resp.PlayedUpToSeconds
	return out, nil
}

func (s *Server) handleEndSession(_ context.Context, input *SessionIDInput) (*struct{}, error) {
	s.services.Playback.EndSession(input.ID)
	return &struct{}{}, nil
}

func (s *Server) handleGetTracks(ctx context.Context, input *ItemIDInput) (*TracksOutput, error) {
	tracks, err := s.services.Tracks.ResolveTracks(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &TracksOutput{}
	out.Body.Tracks = tracks
	out.Body.Total = len(tracks)
	return out, nil
}
