package matching

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/adrg/strutil/metrics"
	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/shared"
)

type fakeCatalog struct {
	byISRC    map[string]models.Song
	byTitle   map[string][]models.Song
	isrcErr   error
	searchErr error
	queries   []string
}

func (f *fakeCatalog) SearchByISRC(_ context.Context, isrc string) (*models.Song, error) {
	if f.isrcErr != nil {
		return nil, f.isrcErr
	}
	if s, ok := f.byISRC[isrc]; ok {
		return &s, nil
	}
	return nil, nil
}

func (f *fakeCatalog) SearchByTitleArtist(_ context.Context, title, _ string) ([]models.Song, error) {
	f.queries = append(f.queries, title)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.byTitle[title], nil
}

// scoreByID lets tests pin fuzzy scores per destination song.
func scoreByID(scores map[string]float64) Scorer {
	return func(_ models.Track, s models.Song) float64 { return scores[s.ID] }
}

func TestMatchTracksScenario(t *testing.T) {
	catalog := &fakeCatalog{
		byISRC: map[string]models.Song{"USRC17607839": {ID: "nd-a", Title: "Track A", Artist: "Artist A"}},
		byTitle: map[string][]models.Song{
			"Track B": {{ID: "nd-b", Title: "Track B (Live)", Artist: "Artist B"}},
			"Track C": {{ID: "nd-c", Title: "Something Else", Artist: "Other"}},
		},
	}

	opts := DefaultOptions()
	opts.Scorer = scoreByID(map[string]float64{"nd-b": 0.85, "nd-c": 0.5})
	m := NewMatcher(catalog, opts, nil)

	tracks := []models.Track{
		{ID: "a", Title: "Track A", Artists: []string{"Artist A"}, ISRC: "USRC17607839"},
		{ID: "b", Title: "Track B", Artists: []string{"Artist B"}},
		{ID: "c", Title: "Track C", Artists: []string{"Artist C"}},
	}

	var events []Progress
	result, err := m.MatchTracks(context.Background(), tracks, func(p Progress) { events = append(events, p) })
	if err != nil {
		t.Fatalf("MatchTracks failed: %v", err)
	}

	want := []struct {
		status   models.MatchStatus
		strategy models.MatchStrategy
		score    float64
	}{
		{models.StatusMatched, models.StrategyISRC, 1.0},
		{models.StatusMatched, models.StrategyFuzzy, 0.85},
		{models.StatusUnmatched, models.StrategyNone, 0},
	}
	for i, w := range want {
		got := result.Matches[i]
		if got.Source.ID != tracks[i].ID {
			t.Errorf("match %d out of order: %s", i, got.Source.ID)
		}
		if got.Status != w.status || got.Strategy != w.strategy || got.Score != w.score {
			t.Errorf("match %d = %s/%s/%v, want %s/%s/%v", i, got.Status, got.Strategy, got.Score, w.status, w.strategy, w.score)
		}
	}

	stats := result.Statistics
	if stats.Matched != 2 || stats.Ambiguous != 0 || stats.Unmatched != 1 {
		t.Errorf("unexpected statistics %+v", stats)
	}
	if stats.Matched+stats.Ambiguous+stats.Unmatched != stats.Total {
		t.Errorf("statistics do not add up: %+v", stats)
	}

	if len(events) != 3 {
		t.Fatalf("expected 3 progress events, got %d", len(events))
	}
	if last := events[2]; last.Current != 3 || last.Total != 3 || last.Percent != 100 || last.CurrentTrack.ID != "c" {
		t.Errorf("unexpected final progress %+v", last)
	}
}

func TestISRCPrecedence(t *testing.T) {
	catalog := &fakeCatalog{
		byISRC:  map[string]models.Song{"GBUM71029604": {ID: "isrc-hit"}},
		byTitle: map[string][]models.Song{"Song": {{ID: "strict-hit", Title: "Song", Artist: "Band"}}},
	}

	opts := DefaultOptions()
	opts.FuzzyThreshold = 1
	m := NewMatcher(catalog, opts, nil)

	got, err := m.Match(context.Background(), models.Track{Title: "Song", Artists: []string{"Band"}, ISRC: "GBUM71029604"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if got.Strategy != models.StrategyISRC || got.Score != 1.0 || got.Song.ID != "isrc-hit" {
		t.Errorf("expected isrc match, got %s %v %+v", got.Strategy, got.Score, got.Song)
	}
	if len(catalog.queries) != 0 {
		t.Errorf("search should not run after an ISRC hit, ran %v", catalog.queries)
	}
}

func TestStrictStrategy(t *testing.T) {
	t.Run("normalization insensitive single hit", func(t *testing.T) {
		catalog := &fakeCatalog{byTitle: map[string][]models.Song{
			"Halo": {
				{ID: "1", Title: "HALO", Artist: "Beyonce"},
				{ID: "2", Title: "Halo (Live)", Artist: "Beyonce"},
			},
		}}
		opts := DefaultOptions()
		opts.EnableFuzzy = false
		m := NewMatcher(catalog, opts, nil)

		got, err := m.Match(context.Background(), models.Track{Title: "Halo", Artists: []string{"Beyoncé"}})
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if got.Status != models.StatusMatched || got.Strategy != models.StrategyStrict || got.Song.ID != "1" {
			t.Errorf("expected strict match on 1, got %+v", got)
		}
	})

	t.Run("multiple equal hits fall through", func(t *testing.T) {
		catalog := &fakeCatalog{byTitle: map[string][]models.Song{
			"Intro": {
				{ID: "1", Title: "Intro", Artist: "The xx"},
				{ID: "2", Title: "Intro", Artist: "The XX"},
			},
		}}
		opts := DefaultOptions()
		opts.EnableFuzzy = false
		m := NewMatcher(catalog, opts, nil)

		got, _ := m.Match(context.Background(), models.Track{Title: "Intro", Artists: []string{"The xx"}})
		if got.Status != models.StatusUnmatched || got.Strategy != models.StrategyNone || got.Score != 0 {
			t.Errorf("expected unmatched/none/0, got %+v", got)
		}
	})

	t.Run("duplicate song ids count once", func(t *testing.T) {
		song := models.Song{ID: "1", Title: "Intro", Artist: "The xx"}
		catalog := &fakeCatalog{byTitle: map[string][]models.Song{"Intro": {song, song}}}
		m := NewMatcher(catalog, DefaultOptions(), nil)

		got, _ := m.Match(context.Background(), models.Track{Title: "Intro", Artists: []string{"The xx"}})
		if got.Strategy != models.StrategyStrict {
			t.Errorf("expected strict match, got %s", got.Strategy)
		}
	})
}

func TestFuzzyStrategy(t *testing.T) {
	candidates := []models.Song{
		{ID: "x", Title: "Alpha", Artist: "One"},
		{ID: "y", Title: "Beta", Artist: "Two"},
	}
	track := models.Track{Title: "Gamma", Artists: []string{"Three"}}

	tests := []struct {
		name       string
		scores     map[string]float64
		wantStatus models.MatchStatus
		wantScore  float64
		wantCands  int
	}{
		{"exactly at threshold is accepted", map[string]float64{"x": 0.8, "y": 0.1}, models.StatusMatched, 0.8, 0},
		{"just below threshold is unmatched", map[string]float64{"x": 0.7999, "y": 0.1}, models.StatusUnmatched, 0, 0},
		{"near tie above threshold is ambiguous", map[string]float64{"x": 0.9, "y": 0.89}, models.StatusAmbiguous, 0.9, 2},
		{"runner-up exactly at the margin is ambiguous", map[string]float64{"x": 0.90, "y": 0.88}, models.StatusAmbiguous, 0.90, 2},
		{"clear winner is matched", map[string]float64{"x": 0.85, "y": 0.95}, models.StatusMatched, 0.95, 0},
		{"runner-up below threshold does not tie", map[string]float64{"x": 0.81, "y": 0.795}, models.StatusMatched, 0.81, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := &fakeCatalog{byTitle: map[string][]models.Song{"Gamma": candidates}}
			opts := DefaultOptions()
			opts.Scorer = scoreByID(tt.scores)
			m := NewMatcher(catalog, opts, nil)

			got, err := m.Match(context.Background(), track)
			if err != nil {
				t.Fatalf("Match failed: %v", err)
			}
			if got.Status != tt.wantStatus || got.Score != tt.wantScore {
				t.Errorf("got %s/%v, want %s/%v", got.Status, got.Score, tt.wantStatus, tt.wantScore)
			}
			if len(got.Candidates) != tt.wantCands {
				t.Errorf("expected %d candidates, got %d", tt.wantCands, len(got.Candidates))
			}
			switch got.Status {
			case models.StatusMatched:
				if got.Song == nil {
					t.Error("matched verdict must carry a song")
				}
			case models.StatusAmbiguous:
				if got.Song != nil {
					t.Error("ambiguous verdict must not choose a song")
				}
				if got.Candidates[0].ID != "x" {
					t.Errorf("candidates should be best first, got %s", got.Candidates[0].ID)
				}
			case models.StatusUnmatched:
				if got.Song != nil || got.Strategy != models.StrategyNone {
					t.Errorf("unexpected unmatched verdict %+v", got)
				}
			}
		})
	}
}

func TestLookupErrors(t *testing.T) {
	track := models.Track{Title: "Song", Artists: []string{"Band"}, ISRC: "ISRC1"}
	hit := []models.Song{{ID: "1", Title: "Song", Artist: "Band"}}

	t.Run("transport error is a miss", func(t *testing.T) {
		catalog := &fakeCatalog{isrcErr: errors.New("connection reset"), byTitle: map[string][]models.Song{"Song": hit}}
		got, err := NewMatcher(catalog, DefaultOptions(), nil).Match(context.Background(), track)
		if err != nil {
			t.Fatalf("expected fall through, got %v", err)
		}
		if got.Strategy != models.StrategyStrict {
			t.Errorf("expected strict after isrc miss, got %s", got.Strategy)
		}
	})

	t.Run("auth failure aborts", func(t *testing.T) {
		catalog := &fakeCatalog{searchErr: shared.ErrAuthFailed}
		_, err := NewMatcher(catalog, DefaultOptions(), nil).Match(context.Background(), models.Track{Title: "Song"})
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}

func TestSearchRetriesFullTitle(t *testing.T) {
	full := "Song (2011 Remaster)"
	catalog := &fakeCatalog{byTitle: map[string][]models.Song{full: {{ID: "1", Title: full, Artist: "Band"}}}}
	m := NewMatcher(catalog, DefaultOptions(), nil)

	got, err := m.Match(context.Background(), models.Track{Title: full, Artists: []string{"Band"}})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(catalog.queries) != 2 || catalog.queries[0] != "Song" || catalog.queries[1] != full {
		t.Errorf("unexpected queries %q", catalog.queries)
	}
	if got.Status != models.StatusMatched {
		t.Errorf("expected match after retry, got %s", got.Status)
	}
}

func TestMatchTracksCancellation(t *testing.T) {
	catalog := &fakeCatalog{}
	m := NewMatcher(catalog, DefaultOptions(), nil)
	tracks := []models.Track{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}, {ID: "3", Title: "C"}}

	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := m.MatchTracks(ctx, tracks, nil)
		if !errors.Is(err, shared.ErrCancelled) || !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation error, got %v", err)
		}
		if result != nil {
			t.Error("cancelled batch must not return partial results")
		}
	})

	t.Run("mid batch", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var seen int
		result, err := m.MatchTracks(ctx, tracks, func(p Progress) {
			seen = p.Current
			if p.Current == 1 {
				cancel()
			}
		})
		if !errors.Is(err, shared.ErrCancelled) {
			t.Fatalf("expected ErrCancelled, got %v", err)
		}
		if result != nil || seen != 1 {
			t.Errorf("expected abort after first track, saw %d progress events", seen)
		}
	})
}

func TestSimilarity(t *testing.T) {
	base := models.Track{Title: "Bohemian Rhapsody", Artists: []string{"Queen"}, Duration: 354}

	t.Run("identical song scores near one", func(t *testing.T) {
		got := Similarity(base, models.Song{Title: "Bohemian Rhapsody", Artist: "Queen", Duration: 355})
		if got < 0.999 {
			t.Errorf("expected ~1.0, got %v", got)
		}
	})

	t.Run("live version stays above default threshold", func(t *testing.T) {
		got := Similarity(base, models.Song{Title: "Bohemian Rhapsody (Live)", Artist: "Queen", Duration: 360})
		if got < DefaultFuzzyThreshold {
			t.Errorf("expected >= %v, got %v", DefaultFuzzyThreshold, got)
		}
	})

	t.Run("different song by same artist falls below threshold", func(t *testing.T) {
		got := Similarity(base, models.Song{Title: "Another One Bites the Dust", Artist: "Queen", Duration: 215})
		if got >= DefaultFuzzyThreshold {
			t.Errorf("expected < %v, got %v", DefaultFuzzyThreshold, got)
		}
	})

	t.Run("unknown duration reweights", func(t *testing.T) {
		got := Similarity(models.Track{Title: "Hello", Artists: []string{"Adele"}}, models.Song{Title: "Hello", Artist: "Adele"})
		if math.Abs(got-1) > 1e-9 {
			t.Errorf("expected 1.0, got %v", got)
		}
	})

	t.Run("featured artist credit", func(t *testing.T) {
		got := artistSimilarity([]string{"Rihanna"}, "Calvin Harris feat. Rihanna", metrics.NewJaroWinkler())
		if got != 1 {
			t.Errorf("expected exact artist hit inside credit, got %v", got)
		}
	})
}

func TestDurationProximity(t *testing.T) {
	tests := []struct {
		a, b int
		want float64
	}{
		{200, 200, 1},
		{200, 202, 1},
		{200, 216, 0.5},
		{200, 230, 0},
		{230, 100, 0},
	}
	for _, tt := range tests {
		if got := DurationProximity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("DurationProximity(%d, %d) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
