package tasks

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/desertthunder/ndx/internal/models"
)

type fakePlaylist struct {
	name  string
	songs []string
}

type updateCall struct {
	playlistID string
	add        []string
	remove     []int
}

// fakeDestination is an in-memory media server.
type fakeDestination struct {
	mu sync.Mutex

	pingErr    error
	listErr    error
	readErr    error
	createErr  error
	updateErrs map[int]error // keyed by 1-based UpdatePlaylist call number
	starErrs   map[int]error // keyed by 1-based Star call number

	playlists map[string]*fakePlaylist
	starred   []string
	nextID    int
	updates   []updateCall
	creates   int
	stars     int
}

func newFakeDestination() *fakeDestination {
	return &fakeDestination{playlists: map[string]*fakePlaylist{}}
}

func (f *fakeDestination) withPlaylist(id, name string, songs ...string) *fakeDestination {
	f.playlists[id] = &fakePlaylist{name: name, songs: songs}
	return f
}

func (f *fakeDestination) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeDestination) Playlists(context.Context) ([]models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Playlist
	for id, p := range f.playlists {
		out = append(out, models.Playlist{ID: id, Name: p.name, TrackCount: len(p.songs)})
	}
	return out, nil
}

func (f *fakeDestination) PlaylistSongIDs(_ context.Context, id string) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	p, ok := f.playlists[id]
	if !ok {
		return nil, fmt.Errorf("playlist %s not found", id)
	}
	set := make(map[string]struct{}, len(p.songs))
	for _, s := range p.songs {
		set[s] = struct{}{}
	}
	return set, nil
}

func (f *fakeDestination) PlaylistEntryCount(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return 0, f.readErr
	}
	p, ok := f.playlists[id]
	if !ok {
		return 0, fmt.Errorf("playlist %s not found", id)
	}
	return len(p.songs), nil
}

func (f *fakeDestination) CreatePlaylist(_ context.Context, name string, songIDs []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	id := "nd-pl-" + strconv.Itoa(f.nextID)
	f.playlists[id] = &fakePlaylist{name: name, songs: slices.Clone(songIDs)}
	return id, nil
}

func (f *fakeDestination) UpdatePlaylist(_ context.Context, id string, add []string, remove []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{playlistID: id, add: slices.Clone(add), remove: slices.Clone(remove)})
	if err := f.updateErrs[len(f.updates)]; err != nil {
		return err
	}
	p, ok := f.playlists[id]
	if !ok {
		return fmt.Errorf("playlist %s not found", id)
	}

	drop := make(map[int]bool, len(remove))
	for _, i := range remove {
		drop[i] = true
	}
	kept := p.songs[:0:0]
	for i, s := range p.songs {
		if !drop[i] {
			kept = append(kept, s)
		}
	}
	p.songs = append(kept, add...)
	return nil
}

func (f *fakeDestination) Star(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stars++
	if err := f.starErrs[f.stars]; err != nil {
		return err
	}
	f.starred = append(f.starred, ids...)
	return nil
}

func track(id string) models.Track {
	return models.Track{ID: id, Title: "Title " + id, Artists: []string{"Artist " + id}}
}

func matched(id, songID string) models.TrackMatch {
	return models.TrackMatch{
		Source:   track(id),
		Song:     &models.Song{ID: songID},
		Score:    1,
		Strategy: models.StrategyISRC,
		Status:   models.StatusMatched,
	}
}

func ambiguous(id string, candidates ...string) models.TrackMatch {
	m := models.TrackMatch{Source: track(id), Score: 0.9, Strategy: models.StrategyFuzzy, Status: models.StatusAmbiguous}
	for _, c := range candidates {
		m.Candidates = append(m.Candidates, models.Song{ID: c})
	}
	return m
}

func unmatched(id string) models.TrackMatch {
	return models.Unmatched(track(id))
}

// matchedRange builds n matched tracks t<from>.. mapped to songs s<from>..
func matchedRange(from, n int) []models.TrackMatch {
	out := make([]models.TrackMatch, n)
	for i := range n {
		k := strconv.Itoa(from + i)
		out[i] = matched("t"+k, "s"+k)
	}
	return out
}
