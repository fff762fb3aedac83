// Package search provides full-text search over the library using Bleve.
// Items and series share one unified index with type discrimination, so a
// single query can answer "Papagei" with both the episode and its series.
package search

import (
	"github.com/hoerspielapp/hoerspiel-server/internal/domain"
)

// DocType represents the type of document in the unified index.
type DocType string

// Document types for the search index.
const (
	DocTypeItem   DocType = "item"
	DocTypeSeries DocType = "series"
)

// Document is the unified document structure for the Bleve index. Series
// names are denormalized into item documents so one query covers both.
type Document struct {
	ID   string  `json:"id"`
	Type DocType `json:"type"`

	// Name is the item title or the series name.
	Name string `json:"name"`

	// Item-specific fields, empty for series documents.
	Artist      string `json:"artist,omitempty"`
	SeriesName  string `json:"series_name,omitempty"`
	Description string `json:"description,omitempty"`
	UPC         string `json:"upc,omitempty"`

	// Numeric fields for range queries and sorting.
	Duration    float64 `json:"duration,omitempty"` // seconds, items only
	ReleaseYear int     `json:"release_year,omitempty"`
	ItemCount   int     `json:"item_count,omitempty"` // series only
	Played      bool    `json:"played,omitempty"`

	// Timestamps for sorting, Unix millis.
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// ToMap converts the document to a map with lowercase field names so they
// match the index mapping. Bleve would otherwise index the capitalized Go
// field names.
func (d *Document) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"type":       string(d.Type),
		"name":       d.Name,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}

	if d.Artist != "" {
		m["artist"] = d.Artist
	}
	if d.SeriesName != "" {
		m["series_name"] = d.SeriesName
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.UPC != "" {
		m["upc"] = d.UPC
	}
	if d.Duration > 0 {
		m["duration"] = d.Duration
	}
	if d.ReleaseYear > 0 {
		m["release_year"] = d.ReleaseYear
	}
	if d.ItemCount > 0 {
		m["item_count"] = d.ItemCount
	}
	if d.Played {
		m["played"] = true
	}

	return m
}

// ItemToDocument converts a library item to a search document.
func ItemToDocument(item *domain.Item) *Document {
	doc := &Document{
		ID:          item.ID,
		Type:        DocTypeItem,
		Name:        item.Title,
		Artist:      item.Artist,
		SeriesName:  item.SeriesName,
		Description: item.Description,
		UPC:         item.UPC,
		Duration:    item.DurationSeconds,
		Played:      item.Played,
		CreatedAt:   item.CreatedAt.UnixMilli(),
		UpdatedAt:   item.UpdatedAt.UnixMilli(),
	}
	if !item.ReleaseDate.IsZero() {
		doc.ReleaseYear = item.ReleaseDate.Year()
	}
	return doc
}

// SeriesToDocument converts a series to a search document.
func SeriesToDocument(s *domain.Series) *Document {
	return &Document{
		ID:        s.ID,
		Type:      DocTypeSeries,
		Name:      s.Name,
		ItemCount: s.ItemCount,
		CreatedAt: s.CreatedAt.UnixMilli(),
		UpdatedAt: s.UpdatedAt.UnixMilli(),
	}
}
