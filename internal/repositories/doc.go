// Package repositories implements SQLite persistence for ndx's local state.
//
// Key Implementations:
//   - [MatchCacheRepository] : per source playlist map of track id to destination song id, read by incremental updates
//   - [ExportJobRepository] : history of export, favorites and update runs with soft deletes
//
// Sequence numbers provide stable, human-readable ordering (job #7) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table counters kept in dedicated sequence tables.
package repositories
