// package services defines interface Provider for interacting with music streaming HTTP APIs
package services

import (
	"context"

	"github.com/lorenzo132/spotify-playing/internal/models"
	"github.com/lorenzo132/spotify-playing/internal/tokens"
)

// Provider defines the interface for a music streaming provider that exposes
// an OAuth2 authorization-code flow and a now-playing endpoint.
type Provider interface {
	// AuthCodeURL returns the provider's authorization URL for user login,
	// carrying the given CSRF state token. Pure, no side effects.
	AuthCodeURL(state string) string

	// Exchange completes the authorization-code flow, returning the issued
	// credential pair. Never persists anything on failure.
	Exchange(ctx context.Context, code string) (tokens.Pair, error)

	// Probe validates an access token with a lightweight authenticated call.
	// Returns an error wrapping shared.ErrTokenExpired when the provider
	// rejects the token.
	Probe(ctx context.Context, accessToken string) error

	// CurrentlyPlaying fetches the now-playing state, normalized into a
	// [models.Snapshot]. An empty/no-content response maps to Playing=false.
	CurrentlyPlaying(ctx context.Context, accessToken string) (models.Snapshot, error)

	// Name returns the name of the provider (e.g., "Spotify")
	Name() string
}
