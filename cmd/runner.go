package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ndx/internal/formatter"
	"github.com/desertthunder/ndx/internal/matching"
	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/repositories"
	"github.com/desertthunder/ndx/internal/services"
	"github.com/desertthunder/ndx/internal/shared"
	"github.com/desertthunder/ndx/internal/tasks"
	"github.com/desertthunder/ndx/internal/ui"
	"github.com/urfave/cli/v3"
)

// Catalog is the streaming source the CLI reads from.
type Catalog interface {
	tasks.Source
	SearchByISRC(ctx context.Context, isrc string) (*models.Track, error)
	SearchByTitleArtist(ctx context.Context, title, artist string) ([]models.Track, error)
}

// Server is the media server the CLI writes to.
type Server interface {
	tasks.Destination
	matching.Catalog
	Star(ctx context.Context, songIDs []string) error
	Search(ctx context.Context, query string) ([]models.Song, error)
}

var (
	_ Catalog = (*services.SpotifyService)(nil)
	_ Server  = (*services.NavidromeService)(nil)
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services and the database are created on first use from the loaded configuration unless injected.
type Runner struct {
	config     *shared.Config
	loadConfig bool
	source     Catalog
	server     Server
	db         *sql.DB
	ownsDB     bool
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Source Catalog
	Server Server
	DB     *sql.DB
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	loadConfig := opts.Config == nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		loadConfig: loadConfig,
		source:     opts.Source,
		server:     opts.Server,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// App builds the root command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "ndx",
		Usage:   "Reconcile Spotify playlists and favorites into a Navidrome library",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("NDX_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file with NDX_* overrides",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging and per-track progress",
			},
		},
		Before:   r.bootstrap,
		After:    r.shutdown,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, navidromeCommand, spotifyCommand, matchCommand, exportCommand,
		favoritesCommand, updateCommand, previewCommand, historyCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// bootstrap loads configuration, applies environment overrides and sets the log level.
func (r *Runner) bootstrap(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.loadConfig {
		path := cmd.String("config")
		if _, err := os.Stat(path); err == nil {
			config, err := shared.LoadConfig(path)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", path)
		}

		if err := shared.ApplyEnv(r.config, cmd.String("env-file")); err != nil {
			return ctx, err
		}
	}

	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	} else {
		shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Log.Level))
	}
	return ctx, nil
}

func (r *Runner) shutdown(ctx context.Context, cmd *cli.Command) error {
	if r.db != nil && r.ownsDB {
		r.ownsDB = false
		return r.db.Close()
	}
	return nil
}

func (r *Runner) spotify(ctx context.Context) (Catalog, error) {
	if r.source != nil {
		return r.source, nil
	}

	svc, err := services.NewSpotifyService(ctx, r.config.Credentials.Spotify, r.config.RateLimit, shared.WithLogger(r.logger, "service", "spotify"))
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}
	r.source = svc
	return svc, nil
}

func (r *Runner) navidrome() (Server, error) {
	if r.server != nil {
		return r.server, nil
	}

	svc, err := services.NewNavidromeService(r.config.Credentials.Navidrome, r.config.RateLimit.NavidromeRPS, shared.WithLogger(r.logger, "service", "navidrome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create Navidrome service: %w", err)
	}
	r.server = svc
	return svc, nil
}

func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	r.logger.Debug("opening database", "path", r.config.Database.Path)
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db, r.ownsDB = db, true
	return db, nil
}

// engine wires the source, matcher, destination and persistence into a [tasks.PlaylistEngine].
//
// Without a configured database path the engine runs with neither match cache nor job history.
func (r *Runner) engine(ctx context.Context) (*tasks.PlaylistEngine, error) {
	source, err := r.spotify(ctx)
	if err != nil {
		return nil, err
	}
	server, err := r.navidrome()
	if err != nil {
		return nil, err
	}

	opts := matching.OptionsFromConfig(r.config.Matching)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	engineOpts := tasks.EngineOpts{
		Source:      source,
		Destination: server,
		Starrer:     server,
		Matcher:     matching.NewMatcher(server, opts, shared.WithLogger(r.logger, "component", "matcher")),
		Logger:      r.logger,
	}

	if r.db != nil || r.config.Database.Path != "" {
		db, err := r.database()
		if err != nil {
			return nil, err
		}
		engineOpts.Store = repositories.NewMatchCacheRepository(db)
		engineOpts.Jobs = repositories.NewExportJobRepository(db)
	}
	return tasks.NewPlaylistEngine(engineOpts), nil
}

func (r *Runner) progress(cmd *cli.Command) tasks.ProgressFunc {
	if cmd.Bool("json") {
		return nil
	}
	return ui.NewProgressPrinter(r.output, cmd.Bool("verbose")).Update
}

// report prints rep as JSON or a summary table, then writes it to --report when given.
func (r *Runner) report(cmd *cli.Command, rep *formatter.Report) error {
	if cmd.Bool("json") {
		if err := formatter.Render(r.output, rep, formatter.FormatJSON); err != nil {
			return err
		}
	} else {
		r.writePlain("\n")
		ui.RenderSummary(r.output, rep)
		if cmd.Bool("tracks") {
			ui.RenderRows(r.output, rep)
		}
		ui.RenderErrors(r.output, rep.Errors)
	}

	path := cmd.String("report")
	if path == "" {
		return nil
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	written, err := formatter.WriteReport(rep, format, path)
	if err != nil {
		return err
	}
	r.logger.Info("report written", "path", written)
	if !cmd.Bool("json") {
		r.writePlain("Report saved to %s\n", written)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
