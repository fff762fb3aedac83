package domain

// Well-known series names. The skip logic treats the main "Die drei ???"
// series differently from its Kids spin-off, so both are named here.
const (
	SeriesDieDreiFragezeichen     = "Die drei ???"
	SeriesDieDreiFragezeichenKids = "Die drei ??? Kids"
)

// Series groups items that belong to the same audio drama series.
type Series struct {
	Syncable
	Name       string `json:"name"`
	ExternalID string `json:"external_id,omitempty"` // catalog-side series identifier
	ItemCount  int    `json:"item_count"`
}
