package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/shared"
	"github.com/desertthunder/ndx/internal/ui"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

// NavidromePing checks that the server answers and accepts the configured credentials.
func (r *Runner) NavidromePing(ctx context.Context, cmd *cli.Command) error {
	server, err := r.navidrome()
	if err != nil {
		return err
	}

	if err := server.Ping(ctx); err != nil {
		return err
	}
	r.writePlain("%s Connected to %s as %s\n", ui.Styles().Mark(true),
		r.config.Credentials.Navidrome.URL, r.config.Credentials.Navidrome.Username)
	return nil
}

// NavidromePlaylists lists the server's playlists.
func (r *Runner) NavidromePlaylists(ctx context.Context, cmd *cli.Command) error {
	server, err := r.navidrome()
	if err != nil {
		return err
	}

	playlists, err := server.Playlists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}
	r.writePlaylists(playlists)
	return nil
}

// NavidromeSearch runs a free-text song search against the server.
func (r *Runner) NavidromeSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}

	server, err := r.navidrome()
	if err != nil {
		return err
	}

	songs, err := server.Search(ctx, query)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(songs, true)
	}
	if len(songs) == 0 {
		r.writePlain("No songs found for %q\n", query)
		return nil
	}

	t := ui.NewTable(r.output, "ID", "Title", "Artist", "Album", "Length", "ISRC")
	for _, s := range songs {
		t.AppendRow(table.Row{s.ID, s.Title, s.Artist, s.Album, shared.FormatDuration(s.Duration), s.ISRC})
	}
	t.Render()
	return nil
}

// SpotifyPlaylists lists Spotify playlists with optional limit.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")

	source, err := r.spotify(ctx)
	if err != nil {
		return err
	}

	r.logger.Debug("listing spotify playlists", "limit", limit)

	playlists, err := source.Playlists(ctx)
	if err != nil {
		return err
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}
	r.writePlaylists(playlists)
	return nil
}

// SpotifySearch looks up a track by ISRC, or by title and artist.
func (r *Runner) SpotifySearch(ctx context.Context, cmd *cli.Command) error {
	isrc := cmd.String("isrc")
	title := cmd.String("title")
	if isrc == "" && title == "" {
		return fmt.Errorf("%w: either --isrc or --title must be provided", shared.ErrMissingArgument)
	}

	source, err := r.spotify(ctx)
	if err != nil {
		return err
	}

	var tracks []models.Track
	if isrc != "" {
		track, err := source.SearchByISRC(ctx, isrc)
		if err != nil {
			return err
		}
		if track != nil {
			tracks = append(tracks, *track)
		}
	} else {
		if tracks, err = source.SearchByTitleArtist(ctx, title, cmd.String("artist")); err != nil {
			return err
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}
	if len(tracks) == 0 {
		r.writePlain("No tracks found\n")
		return nil
	}

	t := ui.NewTable(r.output, "ID", "Title", "Artists", "Album", "Length", "ISRC")
	for _, tr := range tracks {
		t.AppendRow(table.Row{tr.ID, tr.Title, tr.ArtistNames(), tr.Album, shared.FormatDuration(tr.Duration), tr.ISRC})
	}
	t.Render()
	return nil
}

func (r *Runner) writePlaylists(playlists []models.Playlist) {
	r.writePlain("Found %d playlists:\n", len(playlists))
	t := ui.NewTable(r.output, "#", "ID", "Name", "Tracks", "Public")
	for i, p := range playlists {
		t.AppendRow(table.Row{i + 1, p.ID, p.Name, p.TrackCount, p.Public})
	}
	t.Render()
}
