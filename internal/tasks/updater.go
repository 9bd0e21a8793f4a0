package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/shared"
)

// Skip and add reasons reported by [IdentifyTracksToAdd].
const (
	ReasonAlreadyInPlaylist = "Already in playlist"
	ReasonMissingFromList   = "Previously matched but missing from playlist"
	ReasonNoMatchRecord     = "No previous match record"
)

// UpdateOptions configures [IncrementalUpdater.UpdatePlaylist].
type UpdateOptions struct {
	BatchSize  int
	OnProgress ProgressFunc
}

// TrackDecision is the verdict for one source track during an incremental update.
type TrackDecision struct {
	Track  models.Track
	SongID string
	Add    bool
	Reason string
}

// UpdatePlan partitions source tracks into additions and skips.
type UpdatePlan struct {
	Decisions     []TrackDecision
	ToAdd         []TrackDecision
	NoMatchRecord int
}

// IdentifyTracksToAdd classifies tracks against the playlist's current song ids using only the cache.
//
// Tracks without a cached destination song are skipped; they are never matched again here.
func IdentifyTracksToAdd(ctx context.Context, tracks []models.Track, existing map[string]struct{}, cached models.CachedMatches) (*UpdatePlan, error) {
	plan := &UpdatePlan{Decisions: make([]TrackDecision, 0, len(tracks))}
	for _, track := range tracks {
		if err := shared.Cancelled(ctx); err != nil {
			return nil, err
		}

		entry, ok := cached[track.ID]
		d := TrackDecision{Track: track}
		switch {
		case !ok || entry.DestinationSongID == "":
			d.Reason = ReasonNoMatchRecord
			plan.NoMatchRecord++
		case hasSong(existing, entry.DestinationSongID):
			d.SongID = entry.DestinationSongID
			d.Reason = ReasonAlreadyInPlaylist
		default:
			d.SongID = entry.DestinationSongID
			d.Add = true
			d.Reason = ReasonMissingFromList
		}
		plan.Decisions = append(plan.Decisions, d)
	}
	return plan, nil
}

func hasSong(set map[string]struct{}, id string) bool {
	_, ok := set[id]
	return ok
}

// IncrementalUpdater re-syncs an exported playlist from cached matches.
type IncrementalUpdater struct {
	dest   Destination
	logger *log.Logger
}

// NewIncrementalUpdater creates an updater writing to dest.
func NewIncrementalUpdater(dest Destination, logger *log.Logger) *IncrementalUpdater {
	if logger == nil {
		logger = shared.NewDiscardLogger()
	}
	return &IncrementalUpdater{dest: dest, logger: logger}
}

// Preview fetches the playlist once and returns the plan without mutating anything.
func (u *IncrementalUpdater) Preview(ctx context.Context, playlistID string, tracks []models.Track, cached models.CachedMatches) (*UpdatePlan, error) {
	existing, err := u.dest.PlaylistSongIDs(ctx, playlistID)
	if err != nil {
		if cerr := shared.Cancelled(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}
	return u.plan(ctx, tracks, existing, cached)
}

func (u *IncrementalUpdater) plan(ctx context.Context, tracks []models.Track, existing map[string]struct{}, cached models.CachedMatches) (*UpdatePlan, error) {
	plan, err := IdentifyTracksToAdd(ctx, tracks, existing, cached)
	if err != nil {
		return nil, err
	}
	if err := shared.Cancelled(ctx); err != nil {
		return nil, err
	}
	for _, d := range plan.Decisions {
		if d.Add {
			plan.ToAdd = append(plan.ToAdd, d)
		}
	}
	return plan, nil
}

// UpdatePlaylist adds cached songs missing from playlistID without re-running the matcher.
//
// If the playlist cannot be read the result has Success false and every track failed.
// Cancellation is returned as an error wrapping [shared.ErrCancelled] and yields no result.
func (u *IncrementalUpdater) UpdatePlaylist(ctx context.Context, playlistID string, tracks []models.Track, name string, cached models.CachedMatches, opts UpdateOptions) (*models.UpdateResult, error) {
	start := time.Now()
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	result := &models.UpdateResult{
		Success:       true,
		PlaylistID:    playlistID,
		PlaylistName:  name,
		Statistics:    models.UpdateStatistics{TotalSourceTracks: len(tracks)},
		TracksAdded:   []models.AddedTrack{},
		TracksSkipped: []models.SkippedTrack{},
		Errors:        []models.ExportError{},
	}
	defer func() { result.Duration = time.Since(start) }()

	if err := shared.Cancelled(ctx); err != nil {
		return nil, err
	}
	progress := newTracker(opts.OnProgress)
	progress.enter(Preparing, len(tracks), "Reading destination playlist...")

	existing, err := u.dest.PlaylistSongIDs(ctx, playlistID)
	if err != nil {
		if cerr := shared.Cancelled(ctx); cerr != nil {
			return nil, cerr
		}
		u.logger.Error("update failed", "playlist", playlistID, "error", err)
		result.Success = false
		result.Statistics.Failed = len(tracks)
		result.Errors = append(result.Errors, models.ExportError{
			TrackName:  "N/A",
			ArtistName: "N/A",
			Reason:     fmt.Sprintf("Failed to update playlist: %v", err),
		})
		progress.fail(err)
		return result, nil
	}

	plan, err := u.plan(ctx, tracks, existing, cached)
	if err != nil {
		return nil, err
	}

	for _, d := range plan.Decisions {
		if !d.Add {
			result.TracksSkipped = append(result.TracksSkipped, models.SkippedTrack{
				SourceID: d.Track.ID,
				Title:    d.Track.Title,
				Reason:   d.Reason,
			})
		}
	}
	result.Statistics.AlreadyInPlaylist = len(tracks) - len(plan.ToAdd)
	result.Statistics.NoMatchRecord = plan.NoMatchRecord

	if len(plan.ToAdd) == 0 {
		progress.complete("Playlist already up to date")
		return result, nil
	}

	batches := chunk(plan.ToAdd, opts.BatchSize)
	progress.enter(Exporting, len(plan.ToAdd), fmt.Sprintf("Adding %d tracks...", len(plan.ToAdd)))

	sent := 0
	for i, batch := range batches {
		if err := shared.Cancelled(ctx); err != nil {
			u.logger.Info("update cancelled", "playlist", playlistID, "added", result.Statistics.AddedToPlaylist)
			return nil, err
		}

		ids := make([]string, len(batch))
		for j, d := range batch {
			ids[j] = d.SongID
		}

		if err := u.dest.UpdatePlaylist(ctx, playlistID, ids, nil); err != nil {
			if cerr := shared.Cancelled(ctx); cerr != nil {
				return nil, cerr
			}
			u.logger.Warn("batch failed", "playlist", playlistID, "batch", i+1, "error", err)
			result.Statistics.Failed += len(batch)
			for _, d := range batch {
				result.Errors = append(result.Errors, models.NewExportError(d.Track, err.Error()))
			}
		} else {
			result.Statistics.AddedToPlaylist += len(batch)
			for _, d := range batch {
				result.TracksAdded = append(result.TracksAdded, models.AddedTrack{
					SourceID:      d.Track.ID,
					DestinationID: d.SongID,
					Title:         d.Track.Title,
				})
			}
		}

		sent += len(batch)
		last := batch[len(batch)-1].Track.Title
		progress.advance(sent, last, batchMessage(i+1, len(batches), len(batch)))
	}

	progress.complete(fmt.Sprintf("Added %d tracks to %s", result.Statistics.AddedToPlaylist, name))
	u.logger.Info("update complete",
		"playlist", playlistID,
		"added", result.Statistics.AddedToPlaylist,
		"already", result.Statistics.AlreadyInPlaylist,
		"failed", result.Statistics.Failed,
	)
	return result, nil
}
