package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/ndx/internal/formatter"
	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/shared"
	"github.com/desertthunder/ndx/internal/tasks"
	"github.com/desertthunder/ndx/internal/ui"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

// errRunFailed marks a run that completed but did not reach the destination in full.
var errRunFailed = errors.New("run did not complete successfully")

// Match runs the matching cascade over a source playlist and reports the verdicts.
func (r *Runner) Match(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	playlist, tracks, err := engine.ResolveSource(ctx, cmd.String("playlist"))
	if err != nil {
		return err
	}
	r.logger.Info("matching playlist", "playlist", playlist.Name, "tracks", len(tracks))

	batch, err := engine.Match(ctx, tracks, r.progress(cmd))
	if err != nil {
		return err
	}
	return r.report(cmd, formatter.ReportFromMatches(playlist.Name, batch.Matches))
}

// Export exports one playlist, or several concurrently when --playlist repeats or --all is set.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	mode, err := models.ParseExportMode(cmd.String("mode"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	sources := cmd.StringSlice("playlist")
	all := cmd.Bool("all")
	if len(sources) == 0 && !all {
		return fmt.Errorf("%w: --playlist or --all is required", shared.ErrMissingArgument)
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	opts := tasks.ExportOptions{
		Mode:          mode,
		PlaylistID:    cmd.String("dest-id"),
		SkipUnmatched: r.skipUnmatched(cmd),
		BatchSize:     r.batchSize(cmd),
	}

	if all {
		if sources, err = r.allSources(ctx); err != nil {
			return err
		}
	}
	if all || len(sources) > 1 {
		if opts.PlaylistID != "" || cmd.String("dest") != "" {
			return fmt.Errorf("%w: --dest and --dest-id only apply to a single playlist", shared.ErrInvalidArgument)
		}
		return r.bulkExport(ctx, cmd, engine, sources, opts)
	}

	opts.OnProgress = r.progress(cmd)
	r.logger.Info("starting export", "source", sources[0], "mode", mode)
	if !cmd.Bool("json") {
		r.writePlain("Exporting %s (%s)\n", sources[0], mode)
	}

	result, err := engine.Export(ctx, tasks.ExportRequest{
		Source:   sources[0],
		DestName: cmd.String("dest"),
		Options:  opts,
	})
	if err != nil {
		return err
	}

	if err := r.report(cmd, formatter.ReportFromExport(result)); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%w: export of %s", errRunFailed, result.PlaylistName)
	}
	return nil
}

func (r *Runner) allSources(ctx context.Context) ([]string, error) {
	source, err := r.spotify(ctx)
	if err != nil {
		return nil, err
	}
	playlists, err := source.Playlists(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(playlists))
	for _, p := range playlists {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (r *Runner) bulkExport(ctx context.Context, cmd *cli.Command, engine *tasks.PlaylistEngine, sources []string, opts tasks.ExportOptions) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	r.logger.Info("starting bulk export", "playlists", len(sources), "mode", opts.Mode)
	if !cmd.Bool("json") {
		r.writePlain("Exporting %d playlists (%s)\n", len(sources), opts.Mode)
	}

	result, err := engine.BulkExport(ctx, sources, tasks.BulkExportOpts{
		Options:    opts,
		NumWorkers: cmd.Int("workers"),
		OutputDir:  cmd.String("output-dir"),
		Format:     format,
		OnProgress: r.progress(cmd),
	})
	if result == nil {
		return err
	}

	if cmd.Bool("json") {
		if werr := r.writeJSON(result, true); werr != nil {
			return werr
		}
	} else {
		r.writeBulkSummary(result)
	}

	if err != nil {
		return err
	}
	if result.FailedExports > 0 {
		return fmt.Errorf("%w: %d of %d playlists failed", errRunFailed, result.FailedExports, result.TotalPlaylists)
	}
	return nil
}

func (r *Runner) writeBulkSummary(result *models.BulkExportResult) {
	r.writePlain("\n")
	t := ui.NewTable(r.output, "Playlist", "Status", "Exported", "Skipped", "Failed", "Error")
	for _, s := range result.Results {
		exported, skipped, failed := "-", "-", "-"
		if s.Statistics != nil {
			exported = fmt.Sprint(s.Statistics.Exported)
			skipped = fmt.Sprint(s.Statistics.Skipped)
			failed = fmt.Sprint(s.Statistics.Failed)
		}
		name := s.PlaylistName
		if name == "" {
			name = s.Source
		}
		t.AppendRow(table.Row{name, ui.Styles().Mark(s.Success), exported, skipped, failed, s.Error})
	}
	t.AppendFooter(table.Row{"Total", fmt.Sprintf("%d/%d", result.SuccessfulExports, result.TotalPlaylists)})
	t.Render()

	if result.ManifestPath != "" {
		r.writePlain("Manifest saved to %s\n", result.ManifestPath)
	}
}

// Favorites matches the user's saved tracks and stars them on the server.
func (r *Runner) Favorites(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("starting favorites export")
	result, err := engine.Favorites(ctx, tasks.FavoritesOptions{
		SkipUnmatched: r.skipUnmatched(cmd),
		BatchSize:     r.batchSize(cmd),
		OnProgress:    r.progress(cmd),
	})
	if err != nil {
		return err
	}

	if err := r.report(cmd, formatter.ReportFromFavorites(result)); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%w: favorites export", errRunFailed)
	}
	return nil
}

// Update re-adds tracks missing from a previously exported playlist using the match cache.
func (r *Runner) Update(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("starting incremental update", "source", cmd.String("playlist"))
	result, err := engine.Update(ctx, tasks.UpdateRequest{
		Source:        cmd.String("playlist"),
		DestinationID: cmd.String("dest"),
		Options: tasks.UpdateOptions{
			BatchSize:  r.batchSize(cmd),
			OnProgress: r.progress(cmd),
		},
	})
	if err != nil {
		return err
	}

	if err := r.report(cmd, formatter.ReportFromUpdate(result)); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%w: update of %s", errRunFailed, result.PlaylistName)
	}
	return nil
}

// Preview shows the decisions an update would make.
func (r *Runner) Preview(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	plan, err := engine.Preview(ctx, tasks.UpdateRequest{
		Source:        cmd.String("playlist"),
		DestinationID: cmd.String("dest"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(plan, true)
	}

	t := ui.NewTable(r.output, "#", "Title", "Artists", "Action", "Song ID", "Reason")
	for i, d := range plan.Decisions {
		action := ui.Styles().Help("skip")
		if d.Add {
			action = ui.Styles().OK("add")
		}
		t.AppendRow(table.Row{i + 1, d.Track.Title, d.Track.ArtistNames(), action, d.SongID, d.Reason})
	}
	t.Render()

	present := len(plan.Decisions) - len(plan.ToAdd) - plan.NoMatchRecord
	r.writePlain("%d to add, %d already present, %d without a match record\n", len(plan.ToAdd), present, plan.NoMatchRecord)
	return nil
}

func (r *Runner) skipUnmatched(cmd *cli.Command) bool {
	if cmd.IsSet("skip-unmatched") {
		return cmd.Bool("skip-unmatched")
	}
	return r.config.Export.SkipUnmatched
}

func (r *Runner) batchSize(cmd *cli.Command) int {
	if n := cmd.Int("batch-size"); n > 0 {
		return n
	}
	return r.config.Export.BatchSize
}
