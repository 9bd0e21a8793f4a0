package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/shared"
)

const exportJobColumns = `id, sequence, kind, mode, source_playlist_id, source_playlist_name, destination_playlist_id,
	success, total, exported, failed, skipped, error_count, duration_ms, created_at, updated_at, deleted_at`

// ExportJobRepository implements models.Repository[*models.ExportJob] for run history.
//
// The latest successful export of a source playlist tells incremental updates where its tracks went.
type ExportJobRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.ExportJob] = (*ExportJobRepository)(nil)

// NewExportJobRepository creates a new ExportJobRepository with the given database connection
func NewExportJobRepository(db *sql.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts a job with a generated ID and sequence
func (r *ExportJobRepository) Create(job *models.ExportJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "export_jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	job.SetID(id)
	job.SetSequence(sequence)

	query := `
		INSERT INTO export_jobs (` + exportJobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		string(job.Kind()),
		string(job.Mode()),
		job.SourcePlaylistID(),
		job.SourcePlaylistName(),
		job.DestinationPlaylistID(),
		job.Success(),
		job.Total(),
		job.Exported(),
		job.Failed(),
		job.Skipped(),
		job.ErrorCount(),
		job.Duration().Milliseconds(),
		job.CreatedAt(),
		job.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert export job: %w", err)
	}

	return nil
}

// Get retrieves a job by ID, excluding soft-deleted jobs
func (r *ExportJobRepository) Get(id string) (*models.ExportJob, error) {
	query := `SELECT ` + exportJobColumns + ` FROM export_jobs WHERE id = ? AND deleted_at IS NULL`
	job, err := scanExportJob(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: export job %s", ErrRecordNotFound, id)
	}
	return job, err
}

// Update rewrites the outcome fields of an existing job
func (r *ExportJobRepository) Update(job *models.ExportJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	job.SetUpdatedAt(now)

	query := `
		UPDATE export_jobs
		SET destination_playlist_id = ?, success = ?, total = ?, exported = ?, failed = ?, skipped = ?,
			error_count = ?, duration_ms = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		job.DestinationPlaylistID(),
		job.Success(),
		job.Total(),
		job.Exported(),
		job.Failed(),
		job.Skipped(),
		job.ErrorCount(),
		job.Duration().Milliseconds(),
		now,
		job.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update export job: %w", err)
	}

	return requireAffected(result, job.ID())
}

// Delete soft-deletes a job by ID
func (r *ExportJobRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE export_jobs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete export job: %w", err)
	}
	return requireAffected(result, id)
}

// List retrieves live jobs, newest first.
//
// Supported criteria: "kind" (string), "source_playlist_id" (string), "success" (bool), "limit" (int).
func (r *ExportJobRepository) List(criteria map[string]any) ([]*models.ExportJob, error) {
	query := `SELECT ` + exportJobColumns + ` FROM export_jobs WHERE deleted_at IS NULL`
	args := []any{}

	if kind, ok := criteria["kind"].(string); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	if source, ok := criteria["source_playlist_id"].(string); ok && source != "" {
		query += " AND source_playlist_id = ?"
		args = append(args, source)
	}

	if success, ok := criteria["success"].(bool); ok {
		query += " AND success = ?"
		args = append(args, success)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query export jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ExportJob
	for rows.Next() {
		job, err := scanExportJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

// LatestForSource returns the newest job for sourcePlaylistID that reached a destination playlist.
// It returns nil without error when there is none.
func (r *ExportJobRepository) LatestForSource(sourcePlaylistID string) (*models.ExportJob, error) {
	query := `
		SELECT ` + exportJobColumns + `
		FROM export_jobs
		WHERE source_playlist_id = ? AND destination_playlist_id != '' AND deleted_at IS NULL
		ORDER BY sequence DESC
		LIMIT 1
	`

	job, err := scanExportJob(r.db.QueryRow(query, sourcePlaylistID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return job, err
}

type scanner interface {
	Scan(dest ...any) error
}

// scanExportJob scans a row from [sql.Row] or [sql.Rows] into a [models.ExportJob]
func scanExportJob(row scanner) (*models.ExportJob, error) {
	var (
		id                    string
		sequence              int
		kind                  string
		mode                  string
		sourcePlaylistID      string
		sourcePlaylistName    string
		destinationPlaylistID string
		success               bool
		total                 int
		exported              int
		failed                int
		skipped               int
		errorCount            int
		durationMS            int64
		createdAt             time.Time
		updatedAt             time.Time
		deletedAt             sql.NullTime
	)

	err := row.Scan(&id, &sequence, &kind, &mode, &sourcePlaylistID, &sourcePlaylistName, &destinationPlaylistID,
		&success, &total, &exported, &failed, &skipped, &errorCount, &durationMS, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan export job: %w", err)
	}

	job := models.NewExportJob(models.JobKind(kind), models.ExportMode(mode), sourcePlaylistID, sourcePlaylistName)
	job.SetID(id)
	job.SetSequence(sequence)
	job.SetDestinationPlaylistID(destinationPlaylistID)
	job.SetOutcome(success, total, exported, failed, skipped, errorCount)
	job.SetDuration(time.Duration(durationMS) * time.Millisecond)
	job.SetCreatedAt(createdAt)
	job.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		job.SetDeletedAt(&deletedAt.Time)
	}

	return job, nil
}

func requireAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: export job %s not found or already deleted", ErrRecordNotFound, id)
	}
	return nil
}
