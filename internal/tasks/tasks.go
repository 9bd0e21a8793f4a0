package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ndx/internal/matching"
	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/shared"
)

// ErrNoMatchCache is returned when an update is requested for a playlist that was never exported.
var ErrNoMatchCache = errors.New("no cached matches for playlist, run export first")

// Destination is the playlist capability of the media server.
type Destination interface {
	Ping(ctx context.Context) error
	Playlists(ctx context.Context) ([]models.Playlist, error)
	PlaylistSongIDs(ctx context.Context, playlistID string) (map[string]struct{}, error)
	PlaylistEntryCount(ctx context.Context, playlistID string) (int, error)
	CreatePlaylist(ctx context.Context, name string, songIDs []string) (string, error)
	// UpdatePlaylist appends songIDs and removes the entries at removeIndexes (positions before the call).
	UpdatePlaylist(ctx context.Context, playlistID string, songIDs []string, removeIndexes []int) error
}

// Starrer is the favorites capability of the media server.
type Starrer interface {
	Ping(ctx context.Context) error
	Star(ctx context.Context, songIDs []string) error
}

// Source reads playlists and saved tracks from the streaming catalog.
type Source interface {
	Playlists(ctx context.Context) ([]models.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string) (*models.Playlist, []models.Track, error)
	SavedTracks(ctx context.Context) ([]models.Track, error)
}

// MatchStore persists cached matches per source playlist between runs.
type MatchStore interface {
	Save(sourcePlaylistID string, cache models.CachedMatches) error
	Load(sourcePlaylistID string) (models.CachedMatches, error)
}

// JobRecorder keeps a history of runs. LatestForSource returns nil without error when there is none.
type JobRecorder interface {
	Create(job *models.ExportJob) error
	LatestForSource(sourcePlaylistID string) (*models.ExportJob, error)
}

// PlaylistEngine wires a source catalog, the matcher and the destination into end-to-end runs.
// Store and jobs are optional.
type PlaylistEngine struct {
	source    Source
	dest      Destination
	starrer   Starrer
	matcher   *matching.Matcher
	exporter  *PlaylistExporter
	favorites *FavoritesExporter
	updater   *IncrementalUpdater
	store     MatchStore
	jobs      JobRecorder
	logger    *log.Logger
}

// EngineOpts groups the dependencies of a [PlaylistEngine].
type EngineOpts struct {
	Source      Source
	Destination Destination
	Starrer     Starrer
	Matcher     *matching.Matcher
	Store       MatchStore
	Jobs        JobRecorder
	Logger      *log.Logger
}

// NewPlaylistEngine creates a new PlaylistEngine.
func NewPlaylistEngine(opts EngineOpts) *PlaylistEngine {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewDiscardLogger()
	}
	return &PlaylistEngine{
		source:    opts.Source,
		dest:      opts.Destination,
		starrer:   opts.Starrer,
		matcher:   opts.Matcher,
		exporter:  NewPlaylistExporter(opts.Destination, logger),
		favorites: NewFavoritesExporter(opts.Starrer, logger),
		updater:   NewIncrementalUpdater(opts.Destination, logger),
		store:     opts.Store,
		jobs:      opts.Jobs,
		logger:    logger,
	}
}

// ResolveSource fetches a source playlist by id, falling back to an exact name match.
func (e *PlaylistEngine) ResolveSource(ctx context.Context, idOrName string) (*models.Playlist, []models.Track, error) {
	if e.source == nil {
		return nil, nil, fmt.Errorf("%w: source catalog not initialized", shared.ErrServiceUnavailable)
	}

	playlist, tracks, err := e.source.PlaylistTracks(ctx, idOrName)
	if err == nil {
		return playlist, tracks, nil
	}
	if errors.Is(err, shared.ErrAuthFailed) || ctx.Err() != nil {
		return nil, nil, err
	}

	playlists, listErr := e.source.Playlists(ctx)
	if listErr != nil {
		return nil, nil, fmt.Errorf("%w: failed to get playlists: %v", shared.ErrAPIRequest, listErr)
	}
	for _, pl := range playlists {
		if pl.Name == idOrName {
			return e.source.PlaylistTracks(ctx, pl.ID)
		}
	}
	return nil, nil, fmt.Errorf("%w: no playlist found with id or name '%s'", shared.ErrPlaylistNotFound, idOrName)
}

// Match runs the cascade over tracks, translating matcher progress into [ProgressUpdate]s.
func (e *PlaylistEngine) Match(ctx context.Context, tracks []models.Track, onProgress ProgressFunc) (*matching.BatchResult, error) {
	if e.matcher == nil {
		return nil, fmt.Errorf("%w: matcher not initialized", shared.ErrServiceUnavailable)
	}

	progress := newTracker(onProgress)
	progress.enter(Matching, len(tracks), "Matching tracks...")

	result, err := e.matcher.MatchTracks(ctx, tracks, func(p matching.Progress) {
		progress.advance(p.Current, p.CurrentTrack.Title,
			fmt.Sprintf("[%d/%d] %s - %s", p.Current, p.Total, p.CurrentTrack.ArtistNames(), p.CurrentTrack.Title))
	})
	if err != nil {
		if !errors.Is(err, shared.ErrCancelled) {
			progress.fail(err)
		}
		return nil, err
	}
	return result, nil
}

// ExportRequest describes an end-to-end playlist export.
type ExportRequest struct {
	Source   string // source playlist id or name
	DestName string // destination playlist name; defaults to the source name
	Options  ExportOptions
}

// Export resolves the source playlist, matches it and exports the result.
// The match cache and a job record are saved when a store and recorder are configured.
func (e *PlaylistEngine) Export(ctx context.Context, req ExportRequest) (*models.ExportResult, error) {
	playlist, tracks, err := e.ResolveSource(ctx, req.Source)
	if err != nil {
		return nil, err
	}

	batch, err := e.Match(ctx, tracks, req.Options.OnProgress)
	if err != nil {
		return nil, err
	}

	name := req.DestName
	if name == "" {
		name = playlist.Name
	}

	result, err := e.exporter.ExportPlaylist(ctx, name, batch.Matches, req.Options)
	if err != nil {
		return nil, err
	}

	if result.Success && e.store != nil {
		if err := e.store.Save(playlist.ID, result.Cache); err != nil {
			e.logger.Warn("failed to save match cache", "playlist", playlist.ID, "error", err)
		}
	}
	e.record(models.ExportJobFromResult(playlist.ID, result))
	return result, nil
}

// Favorites matches the user's saved tracks and stars them on the destination.
func (e *PlaylistEngine) Favorites(ctx context.Context, opts FavoritesOptions) (*models.FavoritesExportResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: source catalog not initialized", shared.ErrServiceUnavailable)
	}

	tracks, err := e.source.SavedTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get saved tracks: %w", err)
	}

	batch, err := e.Match(ctx, tracks, opts.OnProgress)
	if err != nil {
		return nil, err
	}

	result, err := e.favorites.ExportFavorites(ctx, batch.Matches, opts)
	if err != nil {
		return nil, err
	}

	job := models.NewExportJob(models.JobFavorites, models.ModeAppend, "saved-tracks", "Saved Tracks")
	s := result.Statistics
	job.SetOutcome(result.Success, s.Total, s.Starred, s.Failed, s.Skipped, len(result.Errors))
	job.SetDuration(result.Duration)
	e.record(job)
	return result, nil
}

// UpdateRequest describes an incremental update of a previously exported playlist.
type UpdateRequest struct {
	Source string // source playlist id or name
	// DestinationID overrides the destination recorded by the last export.
	DestinationID string
	Options       UpdateOptions
}

// Update reloads the source playlist and re-syncs the destination from the match cache.
func (e *PlaylistEngine) Update(ctx context.Context, req UpdateRequest) (*models.UpdateResult, error) {
	playlist, tracks, cached, destID, err := e.prepareUpdate(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := e.updater.UpdatePlaylist(ctx, destID, tracks, playlist.Name, cached, req.Options)
	if err != nil {
		return nil, err
	}
	e.record(models.ExportJobFromUpdate(playlist.ID, result))
	return result, nil
}

// Preview reports what [PlaylistEngine.Update] would add without touching the destination.
func (e *PlaylistEngine) Preview(ctx context.Context, req UpdateRequest) (*UpdatePlan, error) {
	_, tracks, cached, destID, err := e.prepareUpdate(ctx, req)
	if err != nil {
		return nil, err
	}
	return e.updater.Preview(ctx, destID, tracks, cached)
}

func (e *PlaylistEngine) prepareUpdate(ctx context.Context, req UpdateRequest) (*models.Playlist, []models.Track, models.CachedMatches, string, error) {
	if e.store == nil {
		return nil, nil, nil, "", fmt.Errorf("%w: match store not configured", shared.ErrServiceUnavailable)
	}

	playlist, tracks, err := e.ResolveSource(ctx, req.Source)
	if err != nil {
		return nil, nil, nil, "", err
	}

	cached, err := e.store.Load(playlist.ID)
	if err != nil {
		return nil, nil, nil, "", fmt.Errorf("failed to load match cache: %w", err)
	}
	if len(cached) == 0 {
		return nil, nil, nil, "", fmt.Errorf("%w: %s", ErrNoMatchCache, playlist.Name)
	}

	destID := req.DestinationID
	if destID == "" && e.jobs != nil {
		job, err := e.jobs.LatestForSource(playlist.ID)
		if err != nil {
			return nil, nil, nil, "", fmt.Errorf("failed to read export history: %w", err)
		}
		if job != nil {
			destID = job.DestinationPlaylistID()
		}
	}
	if destID == "" {
		return nil, nil, nil, "", fmt.Errorf("%w: destination playlist for %s is unknown", shared.ErrMissingArgument, playlist.Name)
	}
	return playlist, tracks, cached, destID, nil
}

func (e *PlaylistEngine) record(job *models.ExportJob) {
	if e.jobs == nil {
		return
	}
	if err := e.jobs.Create(job); err != nil {
		e.logger.Warn("failed to record job", "kind", job.Kind(), "error", err)
	}
}
