package catalog

import (
	"strconv"
	"strings"
	"time"
)

// Album is one release in the remote catalog, optionally expanded with its
// track listing.
type Album struct {
	CatalogID   string
	Title       string
	Artist      string
	UPC         string
	ReleaseDate time.Time
	TrackCount  int
	// ArtworkURLTemplate contains {w} and {h} placeholders for the desired
	// pixel dimensions.
	ArtworkURLTemplate string
	// EditorialNotes is the album description, converted to Markdown.
	EditorialNotes string
	Tracks         []AlbumTrack
}

// AlbumTrack is one track within a catalog album.
type AlbumTrack struct {
	CatalogID   string
	Title       string
	DurationMs  int64
	TrackNumber int
}

// DurationSeconds returns the track length in seconds.
func (t AlbumTrack) DurationSeconds() float64 {
	return float64(t.DurationMs) / 1000
}

// ArtworkURL resolves the artwork template to a concrete square size.
// Returns "" when the album has no artwork.
func (a *Album) ArtworkURL(width int) string {
	if a.ArtworkURLTemplate == "" {
		return ""
	}
	url := strings.ReplaceAll(a.ArtworkURLTemplate, "{w}", strconv.Itoa(width))
	return strings.ReplaceAll(url, "{h}", strconv.Itoa(width))
}

// Raw API response types (internal)

type rawAlbumResponse struct {
	Data []rawAlbum `json:"data"`
}

type rawAlbum struct {
	ID            string            `json:"id"`
	Attributes    rawAlbumAttrs     `json:"attributes"`
	Relationships *rawRelationships `json:"relationships,omitempty"`
}

type rawAlbumAttrs struct {
	Name           string       `json:"name"`
	ArtistName     string       `json:"artistName"`
	UPC            string       `json:"upc"`
	ReleaseDate    string       `json:"releaseDate"`
	TrackCount     int          `json:"trackCount"`
	Artwork        *rawArtwork  `json:"artwork,omitempty"`
	EditorialNotes *rawEditNote `json:"editorialNotes,omitempty"`
}

type rawArtwork struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type rawEditNote struct {
	Standard string `json:"standard"`
	Short    string `json:"short"`
}

type rawRelationships struct {
	Tracks rawTrackList `json:"tracks"`
}

type rawTrackList struct {
	Data []rawTrack `json:"data"`
}

type rawTrack struct {
	ID         string        `json:"id"`
	Attributes rawTrackAttrs `json:"attributes"`
}

type rawTrackAttrs struct {
	Name        string `json:"name"`
	DurationMs  int64  `json:"durationInMillis"`
	TrackNumber int    `json:"trackNumber"`
}

type rawSearchResponse struct {
	Results struct {
		Albums struct {
			Data []rawAlbum `json:"data"`
		} `json:"albums"`
	} `json:"results"`
}

// rawAlbumToAlbum converts a raw API album to the exported type.
func rawAlbumToAlbum(r *rawAlbum) *Album {
	var releaseDate time.Time
	if r.Attributes.ReleaseDate != "" {
		releaseDate, _ = time.Parse("2006-01-02", r.Attributes.ReleaseDate)
	}

	album := &Album{
		CatalogID:   r.ID,
		Title:       r.Attributes.Name,
		Artist:      r.Attributes.ArtistName,
		UPC:         r.Attributes.UPC,
		ReleaseDate: releaseDate,
		TrackCount:  r.Attributes.TrackCount,
	}

	if r.Attributes.Artwork != nil {
		album.ArtworkURLTemplate = r.Attributes.Artwork.URL
	}
	if r.Attributes.EditorialNotes != nil {
		notes := r.Attributes.EditorialNotes.Standard
		if notes == "" {
			notes = r.Attributes.EditorialNotes.Short
		}
		album.EditorialNotes = htmlToMarkdown(notes)
	}

	if r.Relationships != nil {
		for _, t := range r.Relationships.Tracks.Data {
			album.Tracks = append(album.Tracks, AlbumTrack{
				CatalogID:   t.ID,
				Title:       t.Attributes.Name,
				DurationMs:  t.Attributes.DurationMs,
				TrackNumber: t.Attributes.TrackNumber,
			})
		}
	}

	return album
}
