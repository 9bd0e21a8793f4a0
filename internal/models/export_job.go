package models

import (
	"errors"
	"time"
)

// JobKind distinguishes the run types recorded as [ExportJob]s.
type JobKind string

const (
	JobExport    JobKind = "export"
	JobFavorites JobKind = "favorites"
	JobUpdate    JobKind = "update"
)

// ExportJob records one run against the destination for later inspection and incremental updates.
type ExportJob struct {
	id                    string
	sequence              int
	kind                  JobKind
	mode                  ExportMode
	sourcePlaylistID      string
	sourcePlaylistName    string
	destinationPlaylistID string
	success               bool
	total                 int
	exported              int
	failed                int
	skipped               int
	errorCount            int
	duration              time.Duration
	createdAt             time.Time
	updatedAt             time.Time
	deletedAt             *time.Time
}

// NewExportJob creates a job for sourcePlaylistID. ID and sequence are assigned on insert.
func NewExportJob(kind JobKind, mode ExportMode, sourcePlaylistID, sourcePlaylistName string) *ExportJob {
	now := time.Now()
	return &ExportJob{
		kind:               kind,
		mode:               mode,
		sourcePlaylistID:   sourcePlaylistID,
		sourcePlaylistName: sourcePlaylistName,
		createdAt:          now,
		updatedAt:          now,
	}
}

// ExportJobFromResult records a finished playlist export.
func ExportJobFromResult(sourcePlaylistID string, r *ExportResult) *ExportJob {
	job := NewExportJob(JobExport, r.Mode, sourcePlaylistID, r.PlaylistName)
	job.destinationPlaylistID = r.PlaylistID
	job.SetOutcome(r.Success, r.Statistics.Total, r.Statistics.Exported, r.Statistics.Failed, r.Statistics.Skipped, len(r.Errors))
	job.duration = r.Duration
	return job
}

// ExportJobFromUpdate records a finished incremental update.
func ExportJobFromUpdate(sourcePlaylistID string, r *UpdateResult) *ExportJob {
	s := r.Statistics
	job := NewExportJob(JobUpdate, ModeSync, sourcePlaylistID, r.PlaylistName)
	job.destinationPlaylistID = r.PlaylistID
	job.SetOutcome(r.Success, s.TotalSourceTracks, s.AddedToPlaylist, s.Failed, s.AlreadyInPlaylist, len(r.Errors))
	job.duration = r.Duration
	return job
}

func (j *ExportJob) ID() string                    { return j.id }
func (j *ExportJob) Sequence() int                 { return j.sequence }
func (j *ExportJob) Kind() JobKind                 { return j.kind }
func (j *ExportJob) Mode() ExportMode              { return j.mode }
func (j *ExportJob) SourcePlaylistID() string      { return j.sourcePlaylistID }
func (j *ExportJob) SourcePlaylistName() string    { return j.sourcePlaylistName }
func (j *ExportJob) DestinationPlaylistID() string { return j.destinationPlaylistID }
func (j *ExportJob) Success() bool                 { return j.success }
func (j *ExportJob) Total() int                    { return j.total }
func (j *ExportJob) Exported() int                 { return j.exported }
func (j *ExportJob) Failed() int                   { return j.failed }
func (j *ExportJob) Skipped() int                  { return j.skipped }
func (j *ExportJob) ErrorCount() int               { return j.errorCount }
func (j *ExportJob) Duration() time.Duration       { return j.duration }
func (j *ExportJob) CreatedAt() time.Time          { return j.createdAt }
func (j *ExportJob) UpdatedAt() time.Time          { return j.updatedAt }
func (j *ExportJob) DeletedAt() *time.Time         { return j.deletedAt }

func (j *ExportJob) SetID(id string)                    { j.id = id }
func (j *ExportJob) SetSequence(seq int)                { j.sequence = seq }
func (j *ExportJob) SetDestinationPlaylistID(id string) { j.destinationPlaylistID = id }
func (j *ExportJob) SetDuration(d time.Duration)        { j.duration = d }
func (j *ExportJob) SetCreatedAt(t time.Time)           { j.createdAt = t }
func (j *ExportJob) SetUpdatedAt(t time.Time)           { j.updatedAt = t }
func (j *ExportJob) SetDeletedAt(t *time.Time)          { j.deletedAt = t }

// SetOutcome stores the aggregate counters of a finished run.
func (j *ExportJob) SetOutcome(success bool, total, exported, failed, skipped, errorCount int) {
	j.success = success
	j.total = total
	j.exported = exported
	j.failed = failed
	j.skipped = skipped
	j.errorCount = errorCount
}

// Validate checks required fields and that the counters add up.
func (j *ExportJob) Validate() error {
	if j.sourcePlaylistID == "" {
		return errors.New("source playlist id is required")
	}
	switch j.kind {
	case JobExport, JobFavorites, JobUpdate:
	default:
		return errors.New("invalid job kind: " + string(j.kind))
	}
	if j.total < 0 || j.exported < 0 || j.failed < 0 || j.skipped < 0 {
		return errors.New("job counters must not be negative")
	}
	if j.exported+j.failed+j.skipped > j.total {
		return errors.New("job counters exceed total")
	}
	return nil
}
