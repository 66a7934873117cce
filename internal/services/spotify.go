// Spotify API implementation of [Provider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lorenzo132/spotify-playing/internal/models"
	"github.com/lorenzo132/spotify-playing/internal/shared"
	"github.com/lorenzo132/spotify-playing/internal/tokens"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// requestTimeout bounds every outbound provider call.
	requestTimeout = 10 * time.Second

	// outboundRate caps provider calls per second across all pollers.
	outboundRate = 5
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int64           `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyCurrentlyPlaying represents the /me/player/currently-playing response.
type SpotifyCurrentlyPlaying struct {
	Timestamp  int64         `json:"timestamp"`
	ProgressMS int64         `json:"progress_ms"`
	IsPlaying  bool          `json:"is_playing"`
	Item       *SpotifyTrack `json:"item"`
}

// SpotifyService implements the [Provider] interface for Spotify API interactions.
// Uses [oauth2] for the authorization-code exchange and bounds outbound calls
// with an explicit timeout and a [rate.Limiter].
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("missing client_id in credentials")
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("missing client_secret in credentials")
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8888/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-currently-playing",
			"user-read-playback-state",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(outboundRate), 1),
		baseURL:    spotifyBaseURL,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// OAuthConfig returns the underlying OAuth2 configuration, shared with the
// token refresher so both use the same client credentials and endpoints.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// AuthCodeURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange completes the authorization-code flow for the given code.
//
// The exchange is a form-encoded POST authenticated with HTTP Basic auth
// built from the client credentials; [oauth2.Config.Exchange] handles the
// wire format. Provider rejections carry the provider's error payload.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (tokens.Pair, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	tok, err := s.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return tokens.Pair{}, fmt.Errorf("%w: provider rejected code exchange: %s", shared.ErrAuthFailed, string(retrieveErr.Body))
		}
		return tokens.Pair{}, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	return tokens.Pair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// Returns the response status code; result is left untouched and the status
// reported as 204 when the response carries no body.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint, accessToken string, result any) (int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, fmt.Errorf("%w: spotify returned 401", shared.ErrTokenExpired)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("%w: spotify API error: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		err := json.NewDecoder(resp.Body).Decode(result)
		// Spotify sometimes replies 200 with an empty body when nothing is
		// playing; treat it the same as 204.
		if errors.Is(err, io.EOF) {
			return http.StatusNoContent, nil
		}
		if err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// Probe validates the access token with a lightweight profile call (GET /me).
//
// A 401 maps to [shared.ErrTokenExpired]; transport failures and provider
// outages surface as-is so callers never mistake them for expiry.
func (s *SpotifyService) Probe(ctx context.Context, accessToken string) error {
	_, err := s.doRequest(ctx, http.MethodGet, "/me", accessToken, nil)
	return err
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context, accessToken string) (*SpotifyUser, error) {
	var user SpotifyUser
	if _, err := s.doRequest(ctx, http.MethodGet, "/me", accessToken, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentlyPlaying fetches and normalizes the now-playing state.
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context, accessToken string) (models.Snapshot, error) {
	var cp SpotifyCurrentlyPlaying
	status, err := s.doRequest(ctx, http.MethodGet, "/me/player/currently-playing", accessToken, &cp)
	if err != nil {
		return models.Snapshot{}, err
	}

	// 204 means no active playback session.
	if status == http.StatusNoContent || cp.Item == nil {
		return models.Snapshot{}, nil
	}

	names := make([]string, 0, len(cp.Item.Artists))
	for _, artist := range cp.Item.Artists {
		names = append(names, artist.Name)
	}

	snapshot := models.Snapshot{
		Playing:    cp.IsPlaying,
		Track:      cp.Item.Name,
		Artist:     strings.Join(names, ", "),
		Album:      cp.Item.Album.Name,
		ProgressMS: cp.ProgressMS,
		DurationMS: cp.Item.DurationMS,
	}

	// First image entry is the highest resolution, per provider convention.
	if len(cp.Item.Album.Images) > 0 {
		snapshot.AlbumArt = cp.Item.Album.Images[0].URL
	}

	return snapshot, nil
}
