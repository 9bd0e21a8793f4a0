package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/shared"
)

const (
	DefaultFuzzyThreshold = 0.8
	DefaultTieMargin      = 0.02
)

// Catalog is the lookup capability the cascade needs from the destination.
type Catalog interface {
	// SearchByISRC returns the song carrying isrc, or nil when there is none.
	SearchByISRC(ctx context.Context, isrc string) (*models.Song, error)
	SearchByTitleArtist(ctx context.Context, title, artist string) ([]models.Song, error)
}

// Scorer rates how likely song is the same recording as track, in [0,1].
type Scorer func(track models.Track, song models.Song) float64

// Options toggles cascade stages and tunes the fuzzy stage.
type Options struct {
	EnableISRC     bool
	EnableStrict   bool
	EnableFuzzy    bool
	FuzzyThreshold float64
	TieMargin      float64
	Scorer         Scorer // defaults to [Similarity]
}

// DefaultOptions enables every stage with the default threshold and margin.
func DefaultOptions() Options {
	return Options{
		EnableISRC:     true,
		EnableStrict:   true,
		EnableFuzzy:    true,
		FuzzyThreshold: DefaultFuzzyThreshold,
		TieMargin:      DefaultTieMargin,
	}
}

// OptionsFromConfig maps the [matching] config section onto [Options].
func OptionsFromConfig(c shared.MatchingConfig) Options {
	return Options{
		EnableISRC:     c.EnableISRC,
		EnableStrict:   c.EnableStrict,
		EnableFuzzy:    c.EnableFuzzy,
		FuzzyThreshold: c.FuzzyThreshold,
		TieMargin:      c.TieMargin,
	}
}

// Validate rejects thresholds outside [0,1].
func (o Options) Validate() error {
	if o.FuzzyThreshold < 0 || o.FuzzyThreshold > 1 {
		return fmt.Errorf("%w: fuzzy threshold %v outside [0,1]", shared.ErrInvalidInput, o.FuzzyThreshold)
	}
	if o.TieMargin < 0 {
		return fmt.Errorf("%w: negative tie margin", shared.ErrInvalidInput)
	}
	return nil
}

// Matcher runs the ISRC, strict, fuzzy cascade against a [Catalog].
type Matcher struct {
	catalog Catalog
	opts    Options
	logger  *log.Logger
}

// NewMatcher creates a Matcher. A nil logger discards output.
func NewMatcher(catalog Catalog, opts Options, logger *log.Logger) *Matcher {
	if opts.Scorer == nil {
		opts.Scorer = Similarity
	}
	if logger == nil {
		logger = shared.NewDiscardLogger()
	}
	return &Matcher{catalog: catalog, opts: opts, logger: logger}
}

// Options returns the effective options.
func (m *Matcher) Options() Options { return m.opts }

// Match resolves a single track.
//
// Catalog errors count as misses, except authorization failures and cancellation which are returned.
func (m *Matcher) Match(ctx context.Context, track models.Track) (models.TrackMatch, error) {
	if m.opts.EnableISRC && track.ISRC != "" {
		song, err := m.catalog.SearchByISRC(ctx, track.ISRC)
		if err := m.lookupError(ctx, track, "isrc", err); err != nil {
			return models.TrackMatch{}, err
		}
		if song != nil {
			return models.TrackMatch{
				Source:   track,
				Song:     song,
				Score:    1.0,
				Strategy: models.StrategyISRC,
				Status:   models.StatusMatched,
			}, nil
		}
	}

	if !m.opts.EnableStrict && !m.opts.EnableFuzzy {
		return models.Unmatched(track), nil
	}

	candidates, err := m.search(ctx, track)
	if err := m.lookupError(ctx, track, "search", err); err != nil {
		return models.TrackMatch{}, err
	}

	if m.opts.EnableStrict {
		if match, ok := matchStrict(track, candidates); ok {
			return match, nil
		}
	}

	if m.opts.EnableFuzzy {
		if match, ok := matchFuzzy(track, candidates, m.opts); ok {
			return match, nil
		}
	}

	return models.Unmatched(track), nil
}

// search queries by primary artist and a title stripped of bracketed suffixes,
// retrying with the full title when the cleaned query finds nothing.
func (m *Matcher) search(ctx context.Context, track models.Track) ([]models.Song, error) {
	artist := track.PrimaryArtist()
	title := cleanTitle(track.Title)

	songs, err := m.catalog.SearchByTitleArtist(ctx, title, artist)
	if err != nil {
		return nil, err
	}
	if len(songs) == 0 && title != track.Title {
		songs, err = m.catalog.SearchByTitleArtist(ctx, track.Title, artist)
		if err != nil {
			return nil, err
		}
	}
	return dedupe(songs), nil
}

// lookupError decides whether a catalog error aborts the cascade.
func (m *Matcher) lookupError(ctx context.Context, track models.Track, stage string, err error) error {
	if cerr := shared.Cancelled(ctx); cerr != nil {
		return cerr
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", shared.ErrCancelled, err)
	}
	if errors.Is(err, shared.ErrAuthFailed) {
		return err
	}
	m.logger.Warn("lookup failed, treating as miss", "stage", stage, "track", track.Title, "error", err)
	return nil
}

func cleanTitle(title string) string {
	if idx := strings.IndexAny(title, "(["); idx > 0 {
		if cleaned := strings.TrimSpace(title[:idx]); cleaned != "" {
			return cleaned
		}
	}
	return title
}

func dedupe(songs []models.Song) []models.Song {
	seen := make(map[string]struct{}, len(songs))
	out := songs[:0:0]
	for _, s := range songs {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out
}
