// package repositories provides SQLite persistence for match caches and run history.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned when a lookup by id matches no live row.
var ErrRecordNotFound = errors.New("record not found")

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers give runs a human-readable ordering (job #7) independent of UUIDs.
func NextSequence(db *sql.DB, table string) (int, error) {
	var sequence int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	if err := db.QueryRow(query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to increment %s sequence: %w", table, err)
	}
	return sequence, nil
}
