package models

import "strings"

// Track is a song in the source catalog.
type Track struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Artists  []string `json:"artists"`
	Album    string   `json:"album,omitempty"`
	Duration int      `json:"duration"` // seconds, 0 when unknown
	ISRC     string   `json:"isrc,omitempty"`
}

// PrimaryArtist returns the first credited artist, or "" when none is known.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// ArtistNames joins all credited artists for display.
func (t Track) ArtistNames() string {
	return strings.Join(t.Artists, ", ")
}

// Song is a song in the destination catalog.
type Song struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Duration int    `json:"duration"`
	ISRC     string `json:"isrc,omitempty"`
}

// Playlist represents playlist metadata on either side of a transfer.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
}
