package models

import (
	"fmt"
	"strings"
	"time"
)

// ExportMode selects how an export mutates the destination playlist.
type ExportMode string

const (
	ModeCreate    ExportMode = "create"
	ModeAppend    ExportMode = "append"
	ModeSync      ExportMode = "sync"
	ModeOverwrite ExportMode = "overwrite"
)

// ExportModes lists every supported mode in display order.
var ExportModes = []ExportMode{ModeCreate, ModeAppend, ModeSync, ModeOverwrite}

// ParseExportMode resolves a case-insensitive mode name.
func ParseExportMode(s string) (ExportMode, error) {
	mode := ExportMode(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range ExportModes {
		if m == mode {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown export mode %q (want create, append, sync or overwrite)", s)
}

// RequiresExisting reports whether the mode targets an existing destination playlist.
func (m ExportMode) RequiresExisting() bool {
	return m != ModeCreate
}

// ExportError describes why a single track did not make it to the destination.
type ExportError struct {
	TrackName  string `json:"track_name"`
	ArtistName string `json:"artist_name"`
	Reason     string `json:"reason"`
}

func (e ExportError) Error() string {
	return fmt.Sprintf("%s - %s: %s", e.TrackName, e.ArtistName, e.Reason)
}

// NewExportError builds an [ExportError] for track.
func NewExportError(track Track, reason string) ExportError {
	return ExportError{TrackName: track.Title, ArtistName: track.ArtistNames(), Reason: reason}
}

// ExportedTrack records a source track pushed to the destination.
type ExportedTrack struct {
	SourceID      string `json:"source_id"`
	DestinationID string `json:"destination_id"`
	Title         string `json:"title"`
}

// ExportStatistics aggregates one playlist export.
//
// Exported + Skipped + Failed always equals Total.
type ExportStatistics struct {
	Total             int `json:"total"`
	Matched           int `json:"matched"`
	Ambiguous         int `json:"ambiguous"`
	Unmatched         int `json:"unmatched"`
	Exported          int `json:"exported"`
	Skipped           int `json:"skipped"`
	Failed            int `json:"failed"`
	AlreadyInPlaylist int `json:"already_in_playlist"`
}

// ExportResult is returned by a completed playlist export.
type ExportResult struct {
	Success      bool             `json:"success"`
	PlaylistID   string           `json:"playlist_id,omitempty"`
	PlaylistName string           `json:"playlist_name"`
	Mode         ExportMode       `json:"mode"`
	Statistics   ExportStatistics `json:"statistics"`
	Exported     []ExportedTrack  `json:"exported"`
	Skipped      []SkippedTrack   `json:"skipped"`
	Errors       []ExportError    `json:"errors"`
	Matches      []TrackMatch     `json:"matches"`
	Cache        CachedMatches    `json:"cache"`
	Duration     time.Duration    `json:"duration"`
}

// FavoritesStatistics aggregates one favorites export.
type FavoritesStatistics struct {
	Total   int `json:"total"`
	Starred int `json:"starred"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// FavoritesExportResult is returned by a completed favorites export.
type FavoritesExportResult struct {
	Success    bool                `json:"success"`
	Statistics FavoritesStatistics `json:"statistics"`
	Errors     []ExportError       `json:"errors"`
	Matches    []TrackMatch        `json:"matches"`
	Duration   time.Duration       `json:"duration"`
}

// UpdateStatistics aggregates one incremental update.
//
// AlreadyInPlaylist counts every track that was not scheduled for insertion,
// so it includes the NoMatchRecord tracks the cache has never seen.
type UpdateStatistics struct {
	TotalSourceTracks int `json:"total_source_tracks"`
	AlreadyInPlaylist int `json:"already_in_playlist"`
	AddedToPlaylist   int `json:"added_to_playlist"`
	Failed            int `json:"failed"`
	NoMatchRecord     int `json:"no_match_record"`
}

// AddedTrack records a track reinserted by an incremental update.
type AddedTrack = ExportedTrack

// SkippedTrack records a track left alone by an incremental update.
type SkippedTrack struct {
	SourceID string `json:"source_id"`
	Title    string `json:"title"`
	Reason   string `json:"reason"`
}

// UpdateResult is returned by an incremental update run.
type UpdateResult struct {
	Success       bool             `json:"success"`
	PlaylistID    string           `json:"playlist_id"`
	PlaylistName  string           `json:"playlist_name"`
	Statistics    UpdateStatistics `json:"statistics"`
	TracksAdded   []AddedTrack     `json:"tracks_added"`
	TracksSkipped []SkippedTrack   `json:"tracks_skipped"`
	Errors        []ExportError    `json:"errors"`
	Duration      time.Duration    `json:"duration"`
}

// PlaylistExportSummary is the outcome of one playlist within a bulk export.
type PlaylistExportSummary struct {
	Source       string            `json:"source"`
	PlaylistName string            `json:"playlist_name"`
	Success      bool              `json:"success"`
	Statistics   *ExportStatistics `json:"statistics,omitempty"`
	PlaylistID   string            `json:"playlist_id,omitempty"`
	ReportPath   string            `json:"report_path,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// BulkExportResult aggregates a multi-playlist export.
type BulkExportResult struct {
	TotalPlaylists    int                     `json:"total_playlists"`
	SuccessfulExports int                     `json:"successful_exports"`
	FailedExports     int                     `json:"failed_exports"`
	OutputDirectory   string                  `json:"output_directory,omitempty"`
	ManifestPath      string                  `json:"manifest_path,omitempty"`
	Results           []PlaylistExportSummary `json:"results"`
	Duration          time.Duration           `json:"duration"`
}
