// Spotify Web API implementation of the source catalog
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/ratelimit"
	"github.com/desertthunder/ndx/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const spotifyPageSize = 50

// SpotifyService reads playlists and saved tracks and searches the Spotify catalog.
//
// Every Web API request, including each page fetched while paginating, takes a slot from the limiter.
type SpotifyService struct {
	client  *spotify.Client
	limiter *ratelimit.Limiter
	logger  *log.Logger
}

// NewSpotifyService authenticates with the configured credentials.
//
// A user token (access and/or refresh) uses the authorization code flow's refreshable token source.
// Otherwise the client-credentials flow is used, which cannot read user libraries.
func NewSpotifyService(ctx context.Context, creds shared.SpotifyConfig, limits shared.RateLimitConfig, logger *log.Logger) (*SpotifyService, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: spotify client_id", shared.ErrMissingCredentials)
	}
	if creds.ClientSecret == "" && !creds.HasUserToken() {
		return nil, fmt.Errorf("%w: spotify client_secret", shared.ErrMissingCredentials)
	}

	var httpClient *http.Client
	if creds.HasUserToken() {
		config := &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		}
		token := &oauth2.Token{
			AccessToken:  creds.AccessToken,
			RefreshToken: creds.RefreshToken,
			TokenType:    "Bearer",
		}
		httpClient = config.Client(ctx, token)
	} else {
		config := &clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     spotifyauth.TokenURL,
		}
		httpClient = config.Client(ctx)
	}

	limiter := ratelimit.New(limits.SpotifyMaxRequests, limits.SpotifyWindow())
	return NewSpotifyServiceWithClient(spotify.New(httpClient), limiter, logger), nil
}

// NewSpotifyServiceWithClient wraps an existing client. A nil limiter is not allowed.
func NewSpotifyServiceWithClient(client *spotify.Client, limiter *ratelimit.Limiter, logger *log.Logger) *SpotifyService {
	if logger == nil {
		logger = shared.NewDiscardLogger()
	}
	return &SpotifyService{client: client, limiter: limiter, logger: logger}
}

// Name returns the service name.
func (s *SpotifyService) Name() string { return "Spotify" }

// Playlists lists the current user's playlists across all pages.
func (s *SpotifyService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	page, err := s.client.CurrentUsersPlaylists(ctx, spotify.Limit(spotifyPageSize))
	if err != nil {
		return nil, mapSpotifyError(err)
	}

	var playlists []models.Playlist
	for {
		for _, p := range page.Playlists {
			playlists = append(playlists, models.Playlist{
				ID:          string(p.ID),
				Name:        p.Name,
				Description: p.Description,
				TrackCount:  int(p.Tracks.Total),
				Public:      p.IsPublic,
			})
		}

		if page.Next == "" {
			break
		}
		if err := s.nextPage(ctx, func() error { return s.client.NextPage(ctx, page) }); err != nil {
			return nil, fmt.Errorf("playlists pagination error: %w", err)
		}
	}
	return playlists, nil
}

// PlaylistTracks fetches a playlist and all of its tracks. Local files and unavailable items are skipped.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) (*models.Playlist, []models.Track, error) {
	if playlistID == "" {
		return nil, nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, nil, err
	}

	res, err := s.client.GetPlaylist(ctx, spotify.ID(playlistID))
	if err != nil {
		err = mapSpotifyError(err)
		if errors.Is(err, shared.ErrTrackNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}
		return nil, nil, err
	}

	var tracks []models.Track
	skipped := 0
	trackPage := res.Tracks
	for {
		for _, item := range trackPage.Tracks {
			if item.Track.ID == "" || item.IsLocal {
				skipped++
				continue
			}
			tracks = append(tracks, toTrack(item.Track))
		}

		if trackPage.Next == "" {
			break
		}
		if err := s.nextPage(ctx, func() error { return s.client.NextPage(ctx, &trackPage) }); err != nil {
			return nil, nil, fmt.Errorf("playlist pagination error: %w", err)
		}
	}

	if skipped > 0 {
		s.logger.Debug("skipped local or unavailable items", "playlist", res.Name, "count", skipped)
	}

	playlist := &models.Playlist{
		ID:          string(res.ID),
		Name:        res.Name,
		Description: res.Description,
		TrackCount:  len(tracks),
		Public:      res.IsPublic,
	}
	return playlist, tracks, nil
}

// SavedTracks returns the user's liked songs. Requires a user token.
func (s *SpotifyService) SavedTracks(ctx context.Context) ([]models.Track, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	page, err := s.client.CurrentUsersTracks(ctx, spotify.Limit(spotifyPageSize))
	if err != nil {
		return nil, mapSpotifyError(err)
	}

	var tracks []models.Track
	for {
		for _, st := range page.Tracks {
			if st.ID == "" {
				continue
			}
			tracks = append(tracks, toTrack(st.FullTrack))
		}

		if page.Next == "" {
			break
		}
		if err := s.nextPage(ctx, func() error { return s.client.NextPage(ctx, page) }); err != nil {
			return nil, fmt.Errorf("saved tracks pagination error: %w", err)
		}
	}
	return tracks, nil
}

// SearchByISRC looks up a Spotify track by ISRC.
func (s *SpotifyService) SearchByISRC(ctx context.Context, isrc string) (*models.Track, error) {
	isrc = strings.TrimSpace(isrc)
	if isrc == "" {
		return nil, nil
	}

	found, err := s.search(ctx, "isrc:"+isrc, 1)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &found[0], nil
}

// SearchByTitleArtist runs a fielded track search.
func (s *SpotifyService) SearchByTitleArtist(ctx context.Context, title, artist string) ([]models.Track, error) {
	query := fmt.Sprintf("track:%s", title)
	if artist != "" {
		query += fmt.Sprintf(" artist:%s", artist)
	}
	return s.search(ctx, query, 10)
}

func (s *SpotifyService) search(ctx context.Context, query string, limit int) ([]models.Track, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	result, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, mapSpotifyError(err)
	}
	if result.Tracks == nil {
		return []models.Track{}, nil
	}

	tracks := make([]models.Track, 0, len(result.Tracks.Tracks))
	for _, ft := range result.Tracks.Tracks {
		tracks = append(tracks, toTrack(ft))
	}
	return tracks, nil
}

// nextPage takes a limiter slot before fetch advances a page in place.
func (s *SpotifyService) nextPage(ctx context.Context, fetch func() error) error {
	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}
	return mapSpotifyError(fetch())
}

func toTrack(st spotify.FullTrack) models.Track {
	artists := make([]string, len(st.Artists))
	for i, a := range st.Artists {
		artists[i] = a.Name
	}

	return models.Track{
		ID:       string(st.ID),
		Title:    st.Name,
		Artists:  artists,
		Album:    st.Album.Name,
		Duration: int(st.Duration) / 1000,
		ISRC:     st.ExternalIDs["isrc"],
	}
}

// mapSpotifyError maps Web API status codes onto the shared sentinels.
func mapSpotifyError(err error) error {
	if err == nil {
		return nil
	}

	status := 0
	var valErr spotify.Error
	var ptrErr *spotify.Error
	switch {
	case errors.As(err, &valErr):
		status = valErr.Status
	case errors.As(err, &ptrErr):
		status = ptrErr.Status
	}

	switch status {
	case 0:
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", shared.ErrTrackNotFound, err)
	default:
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
}
