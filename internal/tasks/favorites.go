package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/shared"
)

// FavoritesOptions configures [FavoritesExporter.ExportFavorites].
type FavoritesOptions struct {
	SkipUnmatched bool
	BatchSize     int
	OnProgress    ProgressFunc
}

// FavoritesExporter stars matched songs on the destination.
type FavoritesExporter struct {
	dest   Starrer
	logger *log.Logger
}

// NewFavoritesExporter creates an exporter starring songs on dest.
func NewFavoritesExporter(dest Starrer, logger *log.Logger) *FavoritesExporter {
	if logger == nil {
		logger = shared.NewDiscardLogger()
	}
	return &FavoritesExporter{dest: dest, logger: logger}
}

// ExportFavorites stars every eligible match in batches, with the same
// eligibility, partial-failure and cancellation rules as [PlaylistExporter.ExportPlaylist].
func (e *FavoritesExporter) ExportFavorites(ctx context.Context, matches []models.TrackMatch, opts FavoritesOptions) (*models.FavoritesExportResult, error) {
	start := time.Now()
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
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

	result := &models.FavoritesExportResult{
		Success:    true,
		Statistics: models.FavoritesStatistics{Total: len(matches)},
		Errors:     []models.ExportError{},
		Matches:    matches,
	}

	var pending []pendingTrack
	for _, m := range matches {
		song, ok := m.Target(!opts.SkipUnmatched)
		if !ok {
			result.Statistics.Skipped++
			continue
		}
		pending = append(pending, pendingTrack{track: m.Source, songID: song.ID})
	}

	batches := chunk(pending, opts.BatchSize)
	progress.enter(Exporting, len(pending), fmt.Sprintf("Starring %d songs...", len(pending)))

	sent := 0
	for i, batch := range batches {
		if err := shared.Cancelled(ctx); err != nil {
			e.logger.Info("favorites export cancelled", "starred", result.Statistics.Starred)
			return nil, err
		}

		if err := e.dest.Star(ctx, songIDs(batch)); err != nil {
			if cerr := shared.Cancelled(ctx); cerr != nil {
				return nil, cerr
			}
			e.logger.Warn("star batch failed", "batch", i+1, "size", len(batch), "error", err)
			result.Statistics.Failed += len(batch)
			for _, p := range batch {
				result.Errors = append(result.Errors, models.NewExportError(p.track, err.Error()))
			}
		} else {
			result.Statistics.Starred += len(batch)
		}

		sent += len(batch)
		progress.advance(sent, lastTitle(batch), batchMessage(i+1, len(batches), len(batch)))
	}

	result.Duration = time.Since(start)
	progress.complete(fmt.Sprintf("Starred %d of %d tracks", result.Statistics.Starred, result.Statistics.Total))
	e.logger.Info("favorites export complete",
		"starred", result.Statistics.Starred,
		"skipped", result.Statistics.Skipped,
		"failed", result.Statistics.Failed,
	)
	return result, nil
}
