package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/shared"
)

// DefaultBatchSize is the number of song ids sent per destination mutation.
const DefaultBatchSize = 50

// ExportOptions configures [PlaylistExporter.ExportPlaylist].
type ExportOptions struct {
	Mode models.ExportMode
	// PlaylistID targets an existing playlist for append, sync and overwrite.
	// When empty the playlist is looked up by name.
	PlaylistID string
	// SkipUnmatched excludes ambiguous tracks. Unmatched tracks are never exported.
	SkipUnmatched bool
	BatchSize     int
	OnProgress    ProgressFunc
}

// PlaylistExporter pushes matched songs into a destination playlist.
type PlaylistExporter struct {
	dest   Destination
	logger *log.Logger
}

// NewPlaylistExporter creates an exporter writing to dest.
func NewPlaylistExporter(dest Destination, logger *log.Logger) *PlaylistExporter {
	if logger == nil {
		logger = shared.NewDiscardLogger()
	}
	return &PlaylistExporter{dest: dest, logger: logger}
}

// pendingTrack is an eligible match waiting to be sent.
type pendingTrack struct {
	track  models.Track
	songID string
}

// ExportPlaylist applies opts.Mode to the destination using the eligible matches.
//
// A failed connectivity check or an unknown target playlist is returned as an error.
// Batch failures are recorded on the result and do not stop later batches.
// If ctx is cancelled between batches an error wrapping [shared.ErrCancelled] is returned instead of a result.
func (e *PlaylistExporter) ExportPlaylist(ctx context.Context, name string, matches []models.TrackMatch, opts ExportOptions) (*models.ExportResult, error) {
	start := time.Now()
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Mode == "" {
		opts.Mode = models.ModeCreate
	}
	if opts.Mode == models.ModeCreate && name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}

	progress := newTracker(opts.OnProgress)
	progress.enter(Preparing, len(matches), "Checking destination...")

	if err := shared.Cancelled(ctx); err != nil {
		return nil, err
	}
	if err := e.dest.Ping(ctx); err != nil {
		progress.fail(err)
		return nil, fmt.Errorf("destination unavailable: %w", err)
	}

	stats := models.Statistics(matches)
	result := &models.ExportResult{
		Success:      true,
		PlaylistID:   opts.PlaylistID,
		PlaylistName: name,
		Mode:         opts.Mode,
		Statistics: models.ExportStatistics{
			Total:     stats.Total,
			Matched:   stats.Matched,
			Ambiguous: stats.Ambiguous,
			Unmatched: stats.Unmatched,
		},
		Exported: []models.ExportedTrack{},
		Skipped:  []models.SkippedTrack{},
		Errors:   []models.ExportError{},
		Matches:  matches,
		Cache:    models.NewCachedMatches(matches),
	}
	defer func() { result.Duration = time.Since(start) }()

	pending := e.partition(matches, opts.SkipUnmatched, result)

	if opts.Mode.RequiresExisting() && result.PlaylistID == "" {
		id, err := e.resolvePlaylist(ctx, name)
		if err != nil {
			progress.fail(err)
			return nil, err
		}
		result.PlaylistID = id
	}

	var removeIndexes []int
	switch opts.Mode {
	case models.ModeSync:
		existing, err := e.dest.PlaylistSongIDs(ctx, result.PlaylistID)
		if err != nil {
			return e.abandon(ctx, result, pending, progress, fmt.Errorf("failed to read playlist: %w", err))
		}
		pending = e.withoutExisting(pending, existing, result)
	case models.ModeOverwrite:
		count, err := e.dest.PlaylistEntryCount(ctx, result.PlaylistID)
		if err != nil {
			return e.abandon(ctx, result, pending, progress, fmt.Errorf("failed to read playlist: %w", err))
		}
		removeIndexes = make([]int, count)
		for i := range removeIndexes {
			removeIndexes[i] = i
		}
	}

	batches := chunk(pending, opts.BatchSize)
	totalBatches, batchNo := max(len(batches), 1), 0
	progress.enter(Exporting, len(pending), fmt.Sprintf("Exporting %d tracks in %d batches...", len(pending), len(batches)))

	if opts.Mode == models.ModeCreate {
		var first []pendingTrack
		if len(batches) > 0 {
			first, batches = batches[0], batches[1:]
		}
		id, err := e.dest.CreatePlaylist(ctx, name, songIDs(first))
		if err != nil {
			return e.abandon(ctx, result, pending, progress, fmt.Errorf("failed to create playlist: %w", err))
		}
		result.PlaylistID = id
		e.recordBatch(result, first, nil)
		batchNo++
		progress.advance(len(first), lastTitle(first), batchMessage(batchNo, totalBatches, len(first)))
	}

	var clearErr error
	if opts.Mode == models.ModeOverwrite && len(batches) == 0 && len(removeIndexes) > 0 {
		if err := shared.Cancelled(ctx); err != nil {
			return nil, err
		}
		if err := e.dest.UpdatePlaylist(ctx, result.PlaylistID, nil, removeIndexes); err != nil {
			if cerr := shared.Cancelled(ctx); cerr != nil {
				return nil, cerr
			}
			clearErr = err
		}
		removeIndexes = nil
	}

	// Old entries ride along with each batch until one call succeeds.
	sent := result.Statistics.Exported
	for i, batch := range batches {
		if err := shared.Cancelled(ctx); err != nil {
			e.logger.Info("export cancelled", "playlist", name, "sent", sent)
			return nil, err
		}

		err := e.dest.UpdatePlaylist(ctx, result.PlaylistID, songIDs(batch), removeIndexes)
		if err != nil {
			if cerr := shared.Cancelled(ctx); cerr != nil {
				return nil, cerr
			}
			e.logger.Warn("batch failed", "playlist", result.PlaylistID, "batch", i+1, "size", len(batch), "error", err)
			if len(removeIndexes) > 0 {
				clearErr = err
			}
		} else {
			removeIndexes, clearErr = nil, nil
		}
		e.recordBatch(result, batch, err)

		sent += len(batch)
		batchNo++
		progress.advance(sent, lastTitle(batch), batchMessage(batchNo, totalBatches, len(batch)))
	}

	if clearErr != nil {
		result.Errors = append(result.Errors, models.ExportError{
			TrackName:  "N/A",
			ArtistName: "N/A",
			Reason:     fmt.Sprintf("failed to clear playlist: %v", clearErr),
		})
	}

	progress.complete(fmt.Sprintf("Exported %d of %d tracks", result.Statistics.Exported, result.Statistics.Total))
	e.logger.Info("export complete",
		"playlist", result.PlaylistID,
		"mode", opts.Mode,
		"exported", result.Statistics.Exported,
		"skipped", result.Statistics.Skipped,
		"failed", result.Statistics.Failed,
	)
	return result, nil
}

// partition collects eligible tracks and records the rest as skipped.
func (e *PlaylistExporter) partition(matches []models.TrackMatch, skipUnmatched bool, result *models.ExportResult) []pendingTrack {
	pending := make([]pendingTrack, 0, len(matches))
	for _, m := range matches {
		song, ok := m.Target(!skipUnmatched)
		if !ok {
			result.Statistics.Skipped++
			result.Skipped = append(result.Skipped, models.SkippedTrack{
				SourceID: m.Source.ID,
				Title:    m.Source.Title,
				Reason:   string(m.Status),
			})
			continue
		}
		pending = append(pending, pendingTrack{track: m.Source, songID: song.ID})
	}
	return pending
}

// withoutExisting drops tracks already in the playlist or already queued in this run.
func (e *PlaylistExporter) withoutExisting(pending []pendingTrack, existing map[string]struct{}, result *models.ExportResult) []pendingTrack {
	queued := make(map[string]struct{}, len(pending))
	out := pending[:0:0]
	for _, p := range pending {
		_, present := existing[p.songID]
		_, dup := queued[p.songID]
		if present || dup {
			result.Statistics.Skipped++
			result.Statistics.AlreadyInPlaylist++
			result.Skipped = append(result.Skipped, models.SkippedTrack{
				SourceID: p.track.ID,
				Title:    p.track.Title,
				Reason:   "already in playlist",
			})
			continue
		}
		queued[p.songID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// resolvePlaylist finds a destination playlist by exact name.
func (e *PlaylistExporter) resolvePlaylist(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: playlist id or name is required", shared.ErrInvalidInput)
	}
	playlists, err := e.dest.Playlists(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list playlists: %w", err)
	}
	for _, pl := range playlists {
		if pl.Name == name {
			return pl.ID, nil
		}
	}
	return "", fmt.Errorf("%w: no playlist named '%s'", shared.ErrPlaylistNotFound, name)
}

// recordBatch folds the outcome of one mutation into the result.
func (e *PlaylistExporter) recordBatch(result *models.ExportResult, batch []pendingTrack, err error) {
	for _, p := range batch {
		if err != nil {
			result.Statistics.Failed++
			result.Errors = append(result.Errors, models.NewExportError(p.track, err.Error()))
			continue
		}
		result.Statistics.Exported++
		result.Exported = append(result.Exported, models.ExportedTrack{
			SourceID:      p.track.ID,
			DestinationID: p.songID,
			Title:         p.track.Title,
		})
	}
}

// abandon finishes a run that could not proceed: every eligible track is failed and Success is false.
func (e *PlaylistExporter) abandon(ctx context.Context, result *models.ExportResult, pending []pendingTrack, progress *tracker, err error) (*models.ExportResult, error) {
	if cerr := shared.Cancelled(ctx); cerr != nil {
		return nil, cerr
	}
	e.logger.Error("export failed", "playlist", result.PlaylistName, "error", err)

	result.Success = false
	result.Statistics.Failed += len(pending)
	result.Errors = append(result.Errors, models.ExportError{TrackName: "N/A", ArtistName: "N/A", Reason: err.Error()})
	progress.fail(err)
	return result, nil
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for size < len(items) {
		items, out = items[size:], append(out, items[:size:size])
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

func songIDs(batch []pendingTrack) []string {
	ids := make([]string, len(batch))
	for i, p := range batch {
		ids[i] = p.songID
	}
	return ids
}

func lastTitle(batch []pendingTrack) string {
	if len(batch) == 0 {
		return ""
	}
	return batch[len(batch)-1].track.Title
}
