package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/shared"
)

const searchSongCount = 20

// NavidromeService is the destination media server: playlists, favorites and the song catalog.
type NavidromeService struct {
	api    *SubsonicAPI
	logger *log.Logger
}

// NewNavidromeService creates a service from the navidrome credentials block.
func NewNavidromeService(cfg shared.NavidromeConfig, rps float64, logger *log.Logger) (*NavidromeService, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: navidrome url", shared.ErrMissingCredentials)
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("%w: navidrome username", shared.ErrMissingCredentials)
	}
	return NewNavidromeServiceWithAPI(NewSubsonicAPI(cfg.URL, cfg.Username, cfg.Password, rps, nil), logger), nil
}

// NewNavidromeServiceWithAPI wraps an existing transport.
func NewNavidromeServiceWithAPI(api *SubsonicAPI, logger *log.Logger) *NavidromeService {
	if logger == nil {
		logger = shared.NewDiscardLogger()
	}
	return &NavidromeService{api: api, logger: logger}
}

// Name returns the service name.
func (n *NavidromeService) Name() string { return "Navidrome" }

// Ping checks connectivity and credentials.
func (n *NavidromeService) Ping(ctx context.Context) error {
	resp, err := n.api.Get(ctx, "ping", nil)
	if err != nil {
		return err
	}
	n.logger.Debug("navidrome reachable", "version", resp.Version, "server", resp.ServerVersion)
	return nil
}

// Playlists lists the user's playlists.
func (n *NavidromeService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	resp, err := n.api.Get(ctx, "getPlaylists", nil)
	if err != nil {
		return nil, err
	}
	if resp.Playlists == nil {
		return []models.Playlist{}, nil
	}

	playlists := make([]models.Playlist, 0, len(resp.Playlists.Playlist))
	for _, p := range resp.Playlists.Playlist {
		playlists = append(playlists, p.toPlaylist())
	}
	return playlists, nil
}

// Playlist fetches a playlist together with its entries.
func (n *NavidromeService) Playlist(ctx context.Context, playlistID string) (*models.Playlist, []models.Song, error) {
	if playlistID == "" {
		return nil, nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	resp, err := n.api.Get(ctx, "getPlaylist", url.Values{"id": {playlistID}})
	if err != nil {
		return nil, nil, err
	}
	if resp.Playlist == nil {
		return nil, nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}

	playlist := resp.Playlist.toPlaylist()
	songs := make([]models.Song, 0, len(resp.Playlist.Entry))
	for _, e := range resp.Playlist.Entry {
		songs = append(songs, e.toSong())
	}
	return &playlist, songs, nil
}

// PlaylistSongIDs returns the set of song ids currently in the playlist.
func (n *NavidromeService) PlaylistSongIDs(ctx context.Context, playlistID string) (map[string]struct{}, error) {
	_, songs, err := n.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(songs))
	for _, s := range songs {
		ids[s.ID] = struct{}{}
	}
	return ids, nil
}

// PlaylistEntryCount returns the number of entries, duplicates included.
func (n *NavidromeService) PlaylistEntryCount(ctx context.Context, playlistID string) (int, error) {
	_, songs, err := n.Playlist(ctx, playlistID)
	if err != nil {
		return 0, err
	}
	return len(songs), nil
}

// CreatePlaylist creates a playlist seeded with songIDs and returns its id.
func (n *NavidromeService) CreatePlaylist(ctx context.Context, name string, songIDs []string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	params := url.Values{"name": {name}}
	for _, id := range songIDs {
		params.Add("songId", id)
	}

	resp, err := n.api.Get(ctx, "createPlaylist", params)
	if err != nil {
		return "", err
	}

	switch {
	case resp.Playlist != nil && resp.Playlist.ID != "":
		return resp.Playlist.ID, nil
	case resp.PlaylistID != "":
		return resp.PlaylistID, nil
	default:
		return "", fmt.Errorf("%w: createPlaylist returned no playlist id", shared.ErrAPIRequest)
	}
}

// UpdatePlaylist appends songIDs and removes entries by their index.
func (n *NavidromeService) UpdatePlaylist(ctx context.Context, playlistID string, songIDs []string, removeIndexes []int) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	params := url.Values{"playlistId": {playlistID}}
	for _, id := range songIDs {
		params.Add("songIdToAdd", id)
	}
	for _, idx := range removeIndexes {
		params.Add("songIndexToRemove", strconv.Itoa(idx))
	}

	_, err := n.api.Get(ctx, "updatePlaylist", params)
	return err
}

// Star marks songs as favorites.
func (n *NavidromeService) Star(ctx context.Context, songIDs []string) error {
	if len(songIDs) == 0 {
		return nil
	}

	params := url.Values{}
	for _, id := range songIDs {
		params.Add("id", id)
	}
	_, err := n.api.Get(ctx, "star", params)
	return err
}

// Search runs a song-only search3 query.
func (n *NavidromeService) Search(ctx context.Context, query string) ([]models.Song, error) {
	params := url.Values{
		"query":       {query},
		"songCount":   {strconv.Itoa(searchSongCount)},
		"artistCount": {"0"},
		"albumCount":  {"0"},
	}

	resp, err := n.api.Get(ctx, "search3", params)
	if err != nil {
		return nil, err
	}
	if resp.SearchResult3 == nil {
		return []models.Song{}, nil
	}

	songs := make([]models.Song, 0, len(resp.SearchResult3.Song))
	for _, s := range resp.SearchResult3.Song {
		songs = append(songs, s.toSong())
	}
	return songs, nil
}

// SearchByISRC returns the song whose ISRC tag equals isrc, or nil.
// Only servers that expose OpenSubsonic isrc tags can produce hits.
func (n *NavidromeService) SearchByISRC(ctx context.Context, isrc string) (*models.Song, error) {
	isrc = strings.TrimSpace(isrc)
	if isrc == "" {
		return nil, nil
	}

	resp, err := n.api.Get(ctx, "search3", url.Values{
		"query":       {isrc},
		"songCount":   {strconv.Itoa(searchSongCount)},
		"artistCount": {"0"},
		"albumCount":  {"0"},
	})
	if err != nil {
		return nil, err
	}
	if resp.SearchResult3 == nil {
		return nil, nil
	}

	for _, s := range resp.SearchResult3.Song {
		if s.ISRC.has(isrc) {
			song := s.toSong()
			song.ISRC = isrc
			return &song, nil
		}
	}
	return nil, nil
}

// SearchByTitleArtist searches for "title artist".
func (n *NavidromeService) SearchByTitleArtist(ctx context.Context, title, artist string) ([]models.Song, error) {
	query := strings.TrimSpace(title + " " + artist)
	if query == "" {
		return []models.Song{}, nil
	}
	return n.Search(ctx, query)
}

func (p SubsonicList) toPlaylist() models.Playlist {
	count := p.SongCount
	if count == 0 && len(p.Entry) > 0 {
		count = len(p.Entry)
	}
	return models.Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Comment,
		TrackCount:  count,
		Public:      p.Public,
	}
}

func (s SubsonicSong) toSong() models.Song {
	song := models.Song{
		ID:       s.ID,
		Title:    s.Title,
		Artist:   s.Artist,
		Album:    s.Album,
		Duration: s.Duration,
	}
	if len(s.ISRC) > 0 {
		song.ISRC = s.ISRC[0]
	}
	return song
}
