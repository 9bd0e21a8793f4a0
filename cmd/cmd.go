package main

import (
	"github.com/urfave/cli/v3"
)

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a report file to this path",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Report format: json, csv or markdown",
			Value: "json",
		},
		&cli.BoolFlag{
			Name:  "tracks",
			Usage: "Print one row per track after the summary",
		},
		jsonFlag(),
	}
}

func batchSizeFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "batch-size",
		Usage: "Songs per playlist update request (default: export.batch_size)",
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the configuration file and initialize the database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template to --config",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Create the database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "status",
						Usage: "Show applied and pending migrations instead of migrating",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

func navidromeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "navidrome",
		Aliases: []string{"nd"},
		Usage:   "Navidrome (Subsonic) server operations",
		Commands: []*cli.Command{
			{
				Name:   "ping",
				Usage:  "Check connectivity and credentials",
				Action: r.NavidromePing,
			},
			{
				Name:   "playlists",
				Usage:  "List playlists on the server",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.NavidromePlaylists,
			},
			{
				Name:  "search",
				Usage: "Search the server library for songs",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.NavidromeSearch,
			},
		},
	}
}

func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "spotify",
		Usage: "Spotify catalog operations",
		Commands: []*cli.Command{
			{
				Name:  "playlists",
				Usage: "List the user's Spotify playlists",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to show (0 for all)",
					},
					jsonFlag(),
				},
				Action: r.SpotifyPlaylists,
			},
			{
				Name:  "search",
				Usage: "Search Spotify by ISRC or by title and artist",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "isrc", Usage: "International Standard Recording Code"},
					&cli.StringFlag{Name: "title", Usage: "Track title"},
					&cli.StringFlag{Name: "artist", Usage: "Artist name"},
					jsonFlag(),
				},
				Action: r.SpotifySearch,
			},
		},
	}
}

func matchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "match",
		Usage: "Match a Spotify playlist against the Navidrome library without exporting",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Source playlist ID or name",
				Required: true,
			},
		}, reportFlags()...),
		Action: r.Match,
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export Spotify playlists to Navidrome",
		Flags: append([]cli.Flag{
			&cli.StringSliceFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Source playlist ID or name (repeat for a bulk export)",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Export every playlist of the Spotify account",
			},
			&cli.StringFlag{
				Name:  "dest",
				Usage: "Destination playlist name (defaults to the source name)",
			},
			&cli.StringFlag{
				Name:  "dest-id",
				Usage: "Existing destination playlist ID for append, sync and overwrite",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Export mode: create, append, sync or overwrite",
				Value: "create",
			},
			&cli.BoolFlag{
				Name:  "skip-unmatched",
				Usage: "Leave ambiguous matches out of the playlist (default: export.skip_unmatched)",
			},
			batchSizeFlag(),
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent playlists in a bulk export (1 exports them in order)",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  "output-dir",
				Usage: "Directory for per-playlist reports and the manifest of a bulk export",
			},
		}, reportFlags()...),
		Action: r.Export,
	}
}

func favoritesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "favorites",
		Usage: "Star the user's saved Spotify tracks on Navidrome",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "skip-unmatched",
				Usage: "Leave ambiguous matches unstarred (default: export.skip_unmatched)",
			},
			batchSizeFlag(),
		}, reportFlags()...),
		Action: r.Favorites,
	}
}

func updateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Add tracks that went missing from a previously exported playlist",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Source playlist ID or name",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "dest",
				Usage: "Destination playlist ID (defaults to the one recorded by the last export)",
			},
			batchSizeFlag(),
		}, reportFlags()...),
		Action: r.Update,
	}
}

func previewCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "Show what update would add without changing the destination",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Source playlist ID or name",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "dest",
				Usage: "Destination playlist ID (defaults to the one recorded by the last export)",
			},
			jsonFlag(),
		},
		Action: r.Preview,
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded export, favorites and update runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Only show runs of this kind: export, favorites or update",
			},
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Only show runs for this source playlist ID",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
			jsonFlag(),
		},
		Action: r.History,
	}
}

func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and clear cached matches",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List source playlists with cached matches",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.CacheList,
			},
			{
				Name:  "clear",
				Usage: "Drop the cached matches of a source playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "playlist",
						Usage:    "Source playlist ID",
						Required: true,
					},
				},
				Action: r.CacheClear,
			},
		},
	}
}
