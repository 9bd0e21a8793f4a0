// Subsonic REST transport used to talk to Navidrome
package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/ndx/internal/shared"
	"golang.org/x/time/rate"
)

const (
	subsonicVersion = "1.16.1"
	subsonicClient  = "ndx"
)

var subsonicErrorMessages = map[int]string{
	0:  "A generic error occurred",
	10: "Required parameter is missing",
	20: "Incompatible Subsonic REST protocol version, client must upgrade",
	30: "Incompatible Subsonic REST protocol version, server must upgrade",
	40: "Wrong username or password",
	41: "Token authentication not supported",
	50: "User is not authorized for the given operation",
	60: "The trial period for the Subsonic server is over",
	70: "The requested data was not found",
}

// SubsonicError is the error object of a failed Subsonic response.
type SubsonicError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *SubsonicError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("subsonic error %d: %s", e.Code, e.Message)
	}
	if msg, ok := subsonicErrorMessages[e.Code]; ok {
		return fmt.Sprintf("subsonic error %d: %s", e.Code, msg)
	}
	return fmt.Sprintf("subsonic error %d", e.Code)
}

// Unwrap maps protocol error codes onto the shared sentinels.
func (e *SubsonicError) Unwrap() error {
	switch e.Code {
	case 40, 41, 50:
		return shared.ErrAuthFailed
	case 70:
		return shared.ErrPlaylistNotFound
	default:
		return shared.ErrAPIRequest
	}
}

// APIResponse is the decoded "subsonic-response" envelope. Only the fields ndx reads are declared.
type APIResponse struct {
	Status        string          `json:"status"`
	Version       string          `json:"version"`
	Type          string          `json:"type,omitempty"`
	ServerVersion string          `json:"serverVersion,omitempty"`
	OpenSubsonic  bool            `json:"openSubsonic,omitempty"`
	Error         *SubsonicError  `json:"error,omitempty"`
	Playlists     *subsonicLists  `json:"playlists,omitempty"`
	Playlist      *SubsonicList   `json:"playlist,omitempty"`
	PlaylistID    string          `json:"playlistId,omitempty"`
	SearchResult3 *subsonicSearch `json:"searchResult3,omitempty"`
}

type subsonicEnvelope struct {
	Response APIResponse `json:"subsonic-response"`
}

type subsonicLists struct {
	Playlist []SubsonicList `json:"playlist"`
}

type subsonicSearch struct {
	Song []SubsonicSong `json:"song"`
}

// SubsonicList is a playlist, with entries when fetched individually.
type SubsonicList struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Comment   string         `json:"comment"`
	SongCount int            `json:"songCount"`
	Duration  int            `json:"duration"`
	Public    bool           `json:"public"`
	Owner     string         `json:"owner"`
	Entry     []SubsonicSong `json:"entry"`
}

// SubsonicSong is a child/song entry.
type SubsonicSong struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Artist   string   `json:"artist"`
	Album    string   `json:"album"`
	Duration int      `json:"duration"`
	ISRC     isrcList `json:"isrc,omitempty"`
}

// isrcList accepts OpenSubsonic's string array as well as a bare string.
type isrcList []string

func (l *isrcList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	if one != "" {
		*l = isrcList{one}
	}
	return nil
}

func (l isrcList) has(code string) bool {
	for _, c := range l {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// SubsonicAPI makes authenticated, rate limited GET requests against a Subsonic endpoint.
type SubsonicAPI struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
	salt       func() string
}

// NewSubsonicAPI creates a transport for the server at baseURL.
// A non-positive rps disables rate limiting; a nil client uses [http.DefaultClient].
func NewSubsonicAPI(baseURL, username, password string, rps float64, client *http.Client) *SubsonicAPI {
	if client == nil {
		client = http.DefaultClient
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &SubsonicAPI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: client,
		limiter:    rate.NewLimiter(limit, 1),
		salt:       func() string { return strings.ReplaceAll(shared.GenerateID(), "-", "")[:12] },
	}
}

// authParams builds token authentication parameters: t = md5(password + salt).
func (a *SubsonicAPI) authParams() url.Values {
	salt := a.salt()
	sum := md5.Sum([]byte(a.password + salt))

	params := url.Values{}
	params.Set("u", a.username)
	params.Set("t", hex.EncodeToString(sum[:]))
	params.Set("s", salt)
	params.Set("v", subsonicVersion)
	params.Set("c", subsonicClient)
	params.Set("f", "json")
	return params
}

// Get calls /rest/<endpoint> with params and returns the decoded envelope.
// A "failed" status is returned as a [*SubsonicError].
func (a *SubsonicAPI) Get(ctx context.Context, endpoint string, params url.Values) (*APIResponse, error) {
	if a.baseURL == "" {
		return nil, fmt.Errorf("%w: navidrome url", shared.ErrMissingConfig)
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := a.authParams()
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	fullURL := a.baseURL + "/rest/" + endpoint + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", shared.ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: %s returned status %d", shared.ErrAPIRequest, endpoint, resp.StatusCode)
	}

	var env subsonicEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}

	apiResp := &env.Response
	if apiResp.Status != "ok" {
		if apiResp.Error != nil {
			return nil, apiResp.Error
		}
		return nil, fmt.Errorf("%w: %s returned status %q", shared.ErrAPIRequest, endpoint, apiResp.Status)
	}
	return apiResp, nil
}

// IsSubsonicCode reports whether err carries the given Subsonic error code.
func IsSubsonicCode(err error, code int) bool {
	var se *SubsonicError
	return errors.As(err, &se) && se.Code == code
}
