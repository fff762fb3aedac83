package store

import "github.com/hoerspielapp/hoerspiel-server/internal/errors"

// Sentinel errors for store operations. These reuse the application error
// codes so handlers map them to HTTP statuses without store-specific logic.
var (
	ErrNotFound      = errors.ErrNotFound
	ErrAlreadyExists = errors.ErrAlreadyExists

	ErrItemNotFound   = errors.NotFound("item not found")
	ErrSeriesNotFound = errors.NotFound("series not found")
	ErrTracksNotFound = errors.NotFound("cached track list not found")
)
