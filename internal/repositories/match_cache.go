package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/ndx/internal/models"
)

// MatchCacheRepository stores the per-playlist match cache consulted by incremental updates.
type MatchCacheRepository struct {
	db *sql.DB
}

// NewMatchCacheRepository creates a new MatchCacheRepository with the given database connection
func NewMatchCacheRepository(db *sql.DB) *MatchCacheRepository {
	return &MatchCacheRepository{db: db}
}

// Save replaces the cache of sourcePlaylistID with cache in a single transaction.
//
// Entries for tracks no longer present in cache are dropped.
func (r *MatchCacheRepository) Save(sourcePlaylistID string, cache models.CachedMatches) error {
	if sourcePlaylistID == "" {
		return fmt.Errorf("source playlist id is required")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM match_cache WHERE source_playlist_id = ?`, sourcePlaylistID); err != nil {
		return fmt.Errorf("failed to clear match cache: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO match_cache (source_playlist_id, source_track_id, destination_song_id, status, strategy, score, matched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for trackID, entry := range cache {
		if trackID == "" {
			continue
		}
		_, err := stmt.Exec(sourcePlaylistID, trackID, entry.DestinationSongID, string(entry.Status), string(entry.Strategy), entry.Score, now)
		if err != nil {
			return fmt.Errorf("failed to insert match for %s: %w", trackID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match cache: %w", err)
	}
	return nil
}

// Load returns the cache of sourcePlaylistID. An empty map means no cache has been saved.
func (r *MatchCacheRepository) Load(sourcePlaylistID string) (models.CachedMatches, error) {
	rows, err := r.db.Query(`
		SELECT source_track_id, destination_song_id, status, strategy, score
		FROM match_cache
		WHERE source_playlist_id = ?
	`, sourcePlaylistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query match cache: %w", err)
	}
	defer rows.Close()

	cache := models.CachedMatches{}
	for rows.Next() {
		var (
			entry    models.CachedTrackMatch
			status   string
			strategy string
		)
		if err := rows.Scan(&entry.SourceTrackID, &entry.DestinationSongID, &status, &strategy, &entry.Score); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		entry.Status = models.MatchStatus(status)
		entry.Strategy = models.MatchStrategy(strategy)
		cache[entry.SourceTrackID] = entry
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return cache, nil
}

// Delete removes the cache of sourcePlaylistID and reports how many entries were dropped.
func (r *MatchCacheRepository) Delete(sourcePlaylistID string) (int, error) {
	result, err := r.db.Exec(`DELETE FROM match_cache WHERE source_playlist_id = ?`, sourcePlaylistID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete match cache: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(rows), nil
}

// Playlists lists source playlist ids that have a cache, with their entry counts.
func (r *MatchCacheRepository) Playlists() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT source_playlist_id, COUNT(*) FROM match_cache GROUP BY source_playlist_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query match cache: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			id    string
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("failed to scan match cache summary: %w", err)
		}
		counts[id] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return counts, nil
}
