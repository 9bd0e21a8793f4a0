// Package models defines domain entities and persistence interfaces for the ndx library reconciler.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): values exchanged between the catalogs and the core
//   - [Track] : Source song metadata with ISRC for cross-service matching
//   - [Song] : Destination song as known to the media server
//   - [Playlist] : Basic playlist metadata from either side
//   - [TrackMatch] : Verdict of the matching cascade for one source track
//   - [CachedTrackMatch] : Compact projection of a match kept between runs
//   - [ExportResult], [FavoritesExportResult], [UpdateResult] : Run outcomes
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [ExportJob] : One recorded export, favorites or update run
//
// Persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
