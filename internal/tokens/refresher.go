package tokens

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lorenzo132/spotify-playing/internal/shared"
	"golang.org/x/oauth2"
)

// Refresher exchanges a refresh token for a new access token at the
// provider's token endpoint and persists the result.
type Refresher struct {
	conf   *oauth2.Config
	store  Store
	client *http.Client
	logger *log.Logger
}

// NewRefresher creates a Refresher using the given OAuth2 config and store.
func NewRefresher(conf *oauth2.Config, store Store, logger *log.Logger) *Refresher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Refresher{
		conf:   conf,
		store:  store,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Refresh obtains a fresh access token for the given refresh token.
//
// On success the new pair is persisted before returning, so a subsequent
// [Store.Load] always observes the refreshed credentials. If the provider
// omits a refresh token in the response, the previous one is retained. On
// failure the stored pair is left untouched and no retry is attempted; the
// caller decides whether to escalate to re-authorization.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (Pair, error) {
	if refreshToken == "" {
		return Pair{}, shared.ErrNoRefreshToken
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	ts := r.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := ts.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return Pair{}, fmt.Errorf("%w: provider rejected refresh: %s", shared.ErrRefreshFailed, providerErrorDetail(retrieveErr))
		}
		return Pair{}, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	pair := Pair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if pair.RefreshToken == "" {
		// Providers may omit the refresh token when it has not rotated.
		pair.RefreshToken = refreshToken
	}

	if err := r.store.Save(pair); err != nil {
		return Pair{}, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	r.logger.Info("access token refreshed")
	return pair, nil
}

// providerErrorDetail extracts a readable detail string from a provider error response.
func providerErrorDetail(err *oauth2.RetrieveError) string {
	if err.ErrorCode != "" {
		if err.ErrorDescription != "" {
			return fmt.Sprintf("%s (%s)", err.ErrorCode, err.ErrorDescription)
		}
		return err.ErrorCode
	}
	if len(err.Body) > 0 {
		return string(err.Body)
	}
	return err.Response.Status
}
