package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hoerspielapp/hoerspiel-server/internal/http/response"
	"github.com/hoerspielapp/hoerspiel-server/internal/media/artwork"
)

// handleGetArtwork serves cover art bytes for an item.
// GET /api/v1/items/{id}/artwork?size=small|full
//
// Raw bytes stay outside the typed API layer; the cache decides which tier
// answers. A missing cover is a plain 404, never a 500.
func (s *Server) handleGetArtwork(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	if itemID == "" {
		response.BadRequest(w, "item id is required", s.logger)
		return
	}

	item, err := s.store.GetItem(r.Context(), itemID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	size := artwork.SizeFull
	if r.URL.Query().Get("size") == string(artwork.SizeSmall) {
		size = artwork.SizeSmall
	}

	data, ok := s.artwork.Fetch(r.Context(), item.ID, item.ArtworkURL, size)
	if !ok {
		response.NotFound(w, "no artwork available", s.logger)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("failed to write artwork response", "item_id", itemID, "error", err)
	}
}

// handleGetArtworkPlaceholder returns a BlurHash placeholder for an item's
// cover, so clients can paint something before the image arrives.
// GET /api/v1/items/{id}/artwork/placeholder
func (s *Server) handleGetArtworkPlaceholder(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	if itemID == "" {
		response.BadRequest(w, "item id is required", s.logger)
		return
	}

	item, err := s.store.GetItem(r.Context(), itemID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	hash := s.artwork.Placeholder(r.Context(), item.ID, item.ArtworkURL)
	if hash == "" {
		response.NotFound(w, "no artwork available", s.logger)
		return
	}

	response.Success(w, map[string]string{"blurhash": hash}, s.logger)
}
