// Package tasks orchestrates exports from a matched source playlist into the media server.
//
// # Core Operations
//
//  1. [PlaylistExporter.ExportPlaylist] : Push matches into a destination playlist
//     - create: new playlist from the eligible songs
//     - append: add every eligible song to an existing playlist
//     - sync: add only songs not already in the playlist (idempotent)
//     - overwrite: replace the playlist contents
//
//  2. [FavoritesExporter.ExportFavorites] : Star eligible songs
//
//  3. [IncrementalUpdater.UpdatePlaylist] : Re-insert previously matched songs missing
//     from an exported playlist, using the cached matches of the first export only.
//
//  4. [PlaylistEngine.BulkExport] : Export several playlists through a worker pool, paced by
//     a token bucket, optionally writing a report per playlist and a manifest. A cancelled
//     bulk run returns the playlists finished so far alongside the cancellation error.
//
// Mutations go out in batches of [DefaultBatchSize]. A failed batch is recorded per track
// and the run carries on; a run that cannot start at all reports Success false.
//
// # Progress Reporting
//
// Operations call a [ProgressFunc] synchronously with [ProgressUpdate]s tagged by [Phase]
// (preparing, matching, exporting, completed, failed).
//
// # Cancellation
//
// The context is sampled between tracks and between batches. A cancelled run returns an
// error wrapping [shared.ErrCancelled] and no result, so callers can tell it apart from
// an operational failure.
//
// # Implementation
//
// [PlaylistEngine] composes the pieces into end-to-end runs with dependencies on:
//   - [Source] : Spotify playlists and saved tracks
//   - [Destination], [Starrer] : Navidrome playlists and stars
//   - [matching.Matcher] : the ISRC, strict, fuzzy cascade
//   - [MatchStore], [JobRecorder] : optional persistence (internal/repositories)
package tasks
