package tokens

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/lorenzo132/spotify-playing/internal/shared"
	"golang.org/x/sync/singleflight"
)

// Prober validates an access token with a lightweight authenticated call to
// the provider. Implementations return an error wrapping
// [shared.ErrTokenExpired] when the provider rejects the token, and the
// underlying transport error for anything else.
type Prober interface {
	Probe(ctx context.Context, accessToken string) error
}

// TokenRefresher is the subset of [Refresher] the guard depends on.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (Pair, error)
}

// Guard is the request-time gate every protected call passes through.
//
// It validates the stored access token against the provider rather than
// trusting a client-side expiry clock, which tolerates clock skew and
// provider-side revocation at the cost of one probe round trip per request.
// Acceptable for a low-frequency polling endpoint.
type Guard struct {
	store     Store
	prober    Prober
	refresher TokenRefresher
	group     singleflight.Group
	logger    *log.Logger
}

// NewGuard creates a Guard over the given store, prober and refresher.
func NewGuard(store Store, prober Prober, refresher TokenRefresher, logger *log.Logger) *Guard {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Guard{store: store, prober: prober, refresher: refresher, logger: logger}
}

// Token returns an access token that is valid for the current request.
//
// Exactly one refresh is attempted when the probe reports an expired token;
// concurrent callers holding the same refresh token collapse onto a single
// underlying refresh call. When no credentials are stored, or when the
// provider rejects the refresh, the error wraps [shared.ErrNotAuthenticated]
// and the caller should redirect the user to re-authorize. Persistence
// failures after a successful refresh surface as-is. The stored pair is
// never cleared here.
func (g *Guard) Token(ctx context.Context) (string, error) {
	pair, err := g.store.Load()
	if errors.Is(err, shared.ErrNoTokens) {
		return "", fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load tokens: %w", err)
	}

	probeErr := g.prober.Probe(ctx, pair.AccessToken)
	if probeErr == nil {
		return pair.AccessToken, nil
	}
	if !errors.Is(probeErr, shared.ErrTokenExpired) {
		// Transport or provider outage, not an authorization failure.
		// Refreshing would not help and must not be triggered blindly.
		return "", fmt.Errorf("token probe failed: %w", probeErr)
	}

	g.logger.Info("access token expired, refreshing")

	v, err, dedup := g.group.Do(pair.RefreshToken, func() (any, error) {
		return g.refresher.Refresh(ctx, pair.RefreshToken)
	})
	if err != nil {
		if errors.Is(err, shared.ErrRefreshFailed) || errors.Is(err, shared.ErrNoRefreshToken) {
			return "", fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
		}
		// Refresh succeeded against the provider but the new pair could not
		// be persisted; this is an IO failure, not an authorization one.
		return "", fmt.Errorf("token refresh: %w", err)
	}
	if dedup {
		g.logger.Debug("refresh shared with a concurrent request")
	}

	return v.(Pair).AccessToken, nil
}
