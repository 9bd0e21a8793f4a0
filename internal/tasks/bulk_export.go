package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/ndx/internal/formatter"
	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/shared"
	"golang.org/x/time/rate"
)

// BulkExportOpts contains configuration for multi-playlist exports.
type BulkExportOpts struct {
	Options    ExportOptions    // applied to every playlist; its OnProgress is ignored
	NumWorkers int              // concurrent exports (default: 1, max: 10)
	RateLimit  float64          // playlists started per second (default: 2)
	OutputDir  string           // when set, per-playlist reports and a manifest are written here
	Format     formatter.Format // report format (default: json)
	OnProgress ProgressFunc     // one update per finished playlist
}

// BulkExport exports several source playlists, one after another unless NumWorkers is raised.
//
// Each playlist runs the full [PlaylistEngine.Export] pipeline under its source name.
// A failing playlist is recorded in the result and does not stop the others.
func (e *PlaylistEngine) BulkExport(ctx context.Context, sources []string, opts BulkExportOpts) (*models.BulkExportResult, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no playlists to export", shared.ErrMissingArgument)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	opts.Options.OnProgress = nil

	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	start := time.Now()
	result := &models.BulkExportResult{
		TotalPlaylists:  len(sources),
		OutputDirectory: opts.OutputDir,
		Results:         make([]models.PlaylistExportSummary, 0, len(sources)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan string)
	results := make(chan models.PlaylistExportSummary, len(sources))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for _, source := range sources {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case jobs <- source:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	progress := newTracker(opts.OnProgress)
	progress.enter(Exporting, len(sources), fmt.Sprintf("Exporting %d playlists...", len(sources)))

	for res := range results {
		result.Results = append(result.Results, res)
		if res.Success {
			result.SuccessfulExports++
		} else {
			result.FailedExports++
		}
		progress.advance(len(result.Results), res.PlaylistName, bulkMessage(len(result.Results), len(sources), res))
	}
	result.Duration = time.Since(start)

	if err := shared.Cancelled(ctx); err != nil {
		e.logger.Warn("bulk export cancelled", "finished", len(result.Results), "total", len(sources))
		return result, err
	}
	progress.complete(fmt.Sprintf("Exported %d of %d playlists", result.SuccessfulExports, len(sources)))

	if opts.OutputDir != "" {
		manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
		if err := formatter.WriteManifest(result, manifestPath); err != nil {
			return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
		}
		result.ManifestPath = manifestPath
	}
	return result, nil
}

// exportWorker exports playlists from the jobs channel until it is closed.
func (e *PlaylistEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan string,
	results chan<- models.PlaylistExportSummary,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for source := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- e.exportOne(ctx, source, opts)
	}
}

func (e *PlaylistEngine) exportOne(ctx context.Context, source string, opts BulkExportOpts) models.PlaylistExportSummary {
	summary := models.PlaylistExportSummary{Source: source, PlaylistName: source}

	res, err := e.Export(ctx, ExportRequest{Source: source, Options: opts.Options})
	if err != nil {
		summary.Error = err.Error()
		return summary
	}

	summary.PlaylistName = res.PlaylistName
	summary.PlaylistID = res.PlaylistID
	summary.Success = res.Success
	summary.Statistics = &res.Statistics
	if !res.Success && len(res.Errors) > 0 {
		summary.Error = res.Errors[len(res.Errors)-1].Reason
	}

	if opts.OutputDir != "" {
		name := fmt.Sprintf("%s.%s", reportName(source), opts.Format.Extension())
		path, err := formatter.WriteReport(formatter.ReportFromExport(res), opts.Format, filepath.Join(opts.OutputDir, name))
		if err != nil {
			e.logger.Warn("failed to write report", "playlist", res.PlaylistName, "error", err)
		} else {
			summary.ReportPath = path
		}
	}
	return summary
}

// reportName keeps source ids usable as file names.
func reportName(source string) string {
	return filepath.Base(filepath.Clean("/" + source))
}

func bulkMessage(n, of int, res models.PlaylistExportSummary) string {
	if res.Success {
		return fmt.Sprintf("[%d/%d] ✓ %s", n, of, res.PlaylistName)
	}
	return fmt.Sprintf("[%d/%d] ✗ %s: %s", n, of, res.PlaylistName, res.Error)
}
