// Spotify Web API client for the dashboard card
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/dash/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultRedirectURI = "http://127.0.0.1:3000/api/auth/callback/spotify"
)

// SpotifyScopes are requested at sign-in.
var SpotifyScopes = []string{
	"user-library-read",
	"user-top-read",
	"user-read-recently-played",
	"user-read-currently-playing",
	"playlist-read-private",
}

type followers struct {
	Total int `json:"total"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID           string         `json:"id"`
	DisplayName  string         `json:"display_name"`
	Email        string         `json:"email"`
	Country      string         `json:"country"`
	Product      string         `json:"product"` // premium, free, etc.
	Followers    followers      `json:"followers"`
	Images       []SpotifyImage `json:"images"`
	ExternalURLs externalURLs   `json:"external_urls"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	Explicit     bool            `json:"explicit"`
	Popularity   int             `json:"popularity"`
	URI          string          `json:"uri"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

// ArtistNames joins the track's artist names.
func (t SpotifyTrack) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Genres       []string       `json:"genres"`
	Images       []SpotifyImage `json:"images"`
	Popularity   int            `json:"popularity"`
	URI          string         `json:"uri"`
	ExternalURLs externalURLs   `json:"external_urls"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       Owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      simplePlaylistTrack `json:"tracks"`
	Images      []SpotifyImage      `json:"images"`
	URI         string              `json:"uri"`
}

// SpotifyPlayHistory is one recently played entry.
type SpotifyPlayHistory struct {
	Track    SpotifyTrack `json:"track"`
	PlayedAt string       `json:"played_at"`
}

// SpotifyNowPlaying is the user's current playback.
type SpotifyNowPlaying struct {
	IsPlaying            bool          `json:"is_playing"`
	ProgressMS           int           `json:"progress_ms"`
	CurrentlyPlayingType string        `json:"currently_playing_type"`
	Item                 *SpotifyTrack `json:"item"`
}

// SpotifyPage is a paginated Spotify response.
type SpotifyPage[T any] struct {
	Href     string  `json:"href"`
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// TopItemsType selects the /me/top resource.
type TopItemsType string

const (
	TopTracks  TopItemsType = "tracks"
	TopArtists TopItemsType = "artists"
)

// ParseTopItemsType accepts "tracks" or "artists".
func ParseTopItemsType(s string) (TopItemsType, error) {
	switch t := TopItemsType(s); t {
	case TopTracks, TopArtists:
		return t, nil
	}
	return "", fmt.Errorf("%w: top items type must be tracks or artists, got %q", shared.ErrInvalidInput, s)
}

// TopItemsQuery holds the paging window for top items.
type TopItemsQuery struct {
	TimeRange string
	Limit     int
	Offset    int
}

// Normalize applies defaults (short_term, 10, 0) and rejects out-of-range values.
func (q *TopItemsQuery) Normalize() error {
	switch q.TimeRange {
	case "":
		q.TimeRange = "short_term"
	case "short_term", "medium_term", "long_term":
	default:
		return fmt.Errorf("%w: time_range %q", shared.ErrInvalidInput, q.TimeRange)
	}
	if q.Limit == 0 {
		q.Limit = 10
	}
	if q.Limit < 1 || q.Limit > 50 {
		return fmt.Errorf("%w: limit must be between 1 and 50, got %d", shared.ErrInvalidInput, q.Limit)
	}
	if q.Offset < 0 {
		return fmt.Errorf("%w: offset must not be negative, got %d", shared.ErrInvalidInput, q.Offset)
	}
	return nil
}

func (q TopItemsQuery) values() url.Values {
	return url.Values{
		"time_range": {q.TimeRange},
		"limit":      {strconv.Itoa(q.Limit)},
		"offset":     {strconv.Itoa(q.Offset)},
	}
}

// SpotifyService talks to the Spotify accounts service and Web API.
// Uses [oauth2] for the authorization code flow; access tokens are supplied by the caller on each request.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseURL    string
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithSpotifyBaseURL points Web API calls at u.
func WithSpotifyBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithSpotifyTokenURL points code exchange and refresh at u.
func WithSpotifyTokenURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.config.Endpoint.TokenURL = u }
}

// WithHTTPClient sets the client used for every outbound call.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.httpClient = c }
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       SpotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   spotifyAuthURL,
				TokenURL:  spotifyTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetOAuthConfig returns the OAuth2 configuration, shared with auth.Lifecycle for refreshes.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Context attaches the service's HTTP client so oauth2 token calls use it.
func (s *SpotifyService) Context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// Exchange trades an authorization code for a token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", shared.ErrAuthFailed)
	}
	tok, err := s.config.Exchange(s.Context(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return tok, nil
}

type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// doRequest performs an authenticated GET against the Web API. It reports false when Spotify answered 204.
func (s *SpotifyService) doRequest(ctx context.Context, accessToken, endpoint string, params url.Values, result any) (bool, error) {
	if accessToken == "" {
		return false, shared.ErrNotAuthenticated
	}

	apiURL := s.baseURL + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		var se spotifyError
		if body, _ := io.ReadAll(resp.Body); json.Unmarshal(body, &se) == nil && se.Error.Message != "" {
			msg = se.Error.Message
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return false, fmt.Errorf("%w: %s", shared.ErrTokenExpired, msg)
		}
		return false, fmt.Errorf("%w: spotify status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return false, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return true, nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context, accessToken string) (*SpotifyUser, error) {
	var user SpotifyUser
	if _, err := s.doRequest(ctx, accessToken, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// TopItems retrieves the user's top tracks or artists as raw JSON.
func (s *SpotifyService) TopItems(ctx context.Context, accessToken string, itemType TopItemsType, q TopItemsQuery) (json.RawMessage, error) {
	if _, err := ParseTopItemsType(string(itemType)); err != nil {
		return nil, err
	}
	if err := q.Normalize(); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if _, err := s.doRequest(ctx, accessToken, "/me/top/"+string(itemType), q.values(), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// TopTracks retrieves the user's top tracks.
func (s *SpotifyService) TopTracks(ctx context.Context, accessToken string, q TopItemsQuery) (*SpotifyPage[SpotifyTrack], error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}
	var page SpotifyPage[SpotifyTrack]
	if _, err := s.doRequest(ctx, accessToken, "/me/top/tracks", q.values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// TopArtists retrieves the user's top artists.
func (s *SpotifyService) TopArtists(ctx context.Context, accessToken string, q TopItemsQuery) (*SpotifyPage[SpotifyArtist], error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}
	var page SpotifyPage[SpotifyArtist]
	if _, err := s.doRequest(ctx, accessToken, "/me/top/artists", q.values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// RecentlyPlayed retrieves up to limit recently played tracks.
func (s *SpotifyService) RecentlyPlayed(ctx context.Context, accessToken string, limit int) (*SpotifyPage[SpotifyPlayHistory], error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	var page SpotifyPage[SpotifyPlayHistory]
	params := url.Values{"limit": {strconv.Itoa(limit)}}
	if _, err := s.doRequest(ctx, accessToken, "/me/player/recently-played", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CurrentlyPlaying retrieves the current playback. It returns nil when nothing is playing.
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context, accessToken string) (*SpotifyNowPlaying, error) {
	var np SpotifyNowPlaying
	ok, err := s.doRequest(ctx, accessToken, "/me/player/currently-playing", nil, &np)
	if err != nil || !ok {
		return nil, err
	}
	return &np, nil
}

// UserPlaylists retrieves the current user's playlists with pagination.
func (s *SpotifyService) UserPlaylists(ctx context.Context, accessToken string, limit, offset int) (*SpotifyPage[SpotifySimplePlaylist], error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	params := url.Values{"limit": {strconv.Itoa(limit)}, "offset": {strconv.Itoa(offset)}}

	var page SpotifyPage[SpotifySimplePlaylist]
	if _, err := s.doRequest(ctx, accessToken, "/me/playlists", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
