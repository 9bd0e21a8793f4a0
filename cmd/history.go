package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/repositories"
	"github.com/desertthunder/ndx/internal/shared"
	"github.com/desertthunder/ndx/internal/ui"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

type jobView struct {
	ID                    string `json:"id"`
	Sequence              int    `json:"sequence"`
	Kind                  string `json:"kind"`
	Mode                  string `json:"mode"`
	SourcePlaylistID      string `json:"source_playlist_id"`
	SourcePlaylistName    string `json:"source_playlist_name"`
	DestinationPlaylistID string `json:"destination_playlist_id,omitempty"`
	Success               bool   `json:"success"`
	Total                 int    `json:"total"`
	Exported              int    `json:"exported"`
	Failed                int    `json:"failed"`
	Skipped               int    `json:"skipped"`
	Errors                int    `json:"errors"`
	Duration              string `json:"duration"`
	CreatedAt             string `json:"created_at"`
}

func newJobView(j *models.ExportJob) jobView {
	return jobView{
		ID:                    j.ID(),
		Sequence:              j.Sequence(),
		Kind:                  string(j.Kind()),
		Mode:                  string(j.Mode()),
		SourcePlaylistID:      j.SourcePlaylistID(),
		SourcePlaylistName:    j.SourcePlaylistName(),
		DestinationPlaylistID: j.DestinationPlaylistID(),
		Success:               j.Success(),
		Total:                 j.Total(),
		Exported:              j.Exported(),
		Failed:                j.Failed(),
		Skipped:               j.Skipped(),
		Errors:                j.ErrorCount(),
		Duration:              j.Duration().String(),
		CreatedAt:             j.CreatedAt().Format("2006-01-02 15:04:05"),
	}
}

// History lists recorded runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	kind := cmd.String("kind")
	if kind != "" && !slices.Contains([]models.JobKind{models.JobExport, models.JobFavorites, models.JobUpdate}, models.JobKind(kind)) {
		return fmt.Errorf("%w: unknown run kind %q (want export, favorites or update)", shared.ErrInvalidArgument, kind)
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	jobs, err := repositories.NewExportJobRepository(db).List(map[string]any{
		"kind":               kind,
		"source_playlist_id": cmd.String("playlist"),
		"limit":              cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, newJobView(j))
	}

	if cmd.Bool("json") {
		return r.writeJSON(views, true)
	}
	if len(views) == 0 {
		r.writePlain("No runs recorded yet\n")
		return nil
	}

	t := ui.NewTable(r.output, "#", "When", "Kind", "Mode", "Playlist", "Destination", "Exported", "Skipped", "Failed", "Status")
	for _, v := range views {
		t.AppendRow(table.Row{
			v.Sequence, v.CreatedAt, v.Kind, v.Mode, v.SourcePlaylistName, v.DestinationPlaylistID,
			fmt.Sprintf("%d/%d", v.Exported, v.Total), v.Skipped, v.Failed, ui.Styles().Mark(v.Success),
		})
	}
	t.Render()
	return nil
}

// CacheList shows which source playlists have cached matches.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	counts, err := repositories.NewMatchCacheRepository(db).Playlists()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(counts, true)
	}
	if len(counts) == 0 {
		r.writePlain("No cached matches\n")
		return nil
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	t := ui.NewTable(r.output, "Source playlist", "Entries")
	for _, id := range ids {
		t.AppendRow(table.Row{id, counts[id]})
	}
	t.Render()
	return nil
}

// CacheClear drops the cached matches of one source playlist so the next update requires a fresh export.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("playlist")

	db, err := r.database()
	if err != nil {
		return err
	}

	n, err := repositories.NewMatchCacheRepository(db).Delete(id)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: no cached matches for %s", repositories.ErrRecordNotFound, id)
	}

	r.logger.Info("match cache cleared", "playlist", id, "entries", n)
	r.writePlain("%s Removed %d cached matches for %s\n", ui.Styles().Mark(true), n, id)
	return nil
}
