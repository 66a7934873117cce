package tokens

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/lorenzo132/spotify-playing/internal/shared"
	"golang.org/x/oauth2"
)

// memoryStore is an in-memory Store for tests.
type memoryStore struct {
	mu        sync.Mutex
	pair      Pair
	seeded    bool
	saveErr   error
	saveCalls int
}

func (m *memoryStore) Load() (Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.seeded {
		return Pair{}, fmt.Errorf("%w: memory store empty", shared.ErrNoTokens)
	}
	return m.pair, nil
}

func (m *memoryStore) Save(pair Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.pair = pair
	m.seeded = true
	return nil
}

func newTokenEndpoint(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *oauth2.Config) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	conf := &oauth2.Config{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		Endpoint:     oauth2.Endpoint{TokenURL: server.URL},
	}
	return server, conf
}

func TestRefresher(t *testing.T) {
	t.Run("Successful Refresh Persists Before Returning", func(t *testing.T) {
		_, conf := newTokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				t.Errorf("failed to parse form: %v", err)
			}
			if got := r.FormValue("grant_type"); got != "refresh_token" {
				t.Errorf("expected grant_type refresh_token, got %s", got)
			}
			if got := r.FormValue("refresh_token"); got != "old_refresh" {
				t.Errorf("expected refresh_token old_refresh, got %s", got)
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"fresh_access","refresh_token":"rotated_refresh","token_type":"Bearer","expires_in":3600}`))
		})

		store := &memoryStore{}
		refresher := NewRefresher(conf, store, nil)

		pair, err := refresher.Refresh(context.Background(), "old_refresh")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if pair.AccessToken != "fresh_access" {
			t.Errorf("expected access token 'fresh_access', got %s", pair.AccessToken)
		}
		if pair.RefreshToken != "rotated_refresh" {
			t.Errorf("expected rotated refresh token, got %s", pair.RefreshToken)
		}

		stored, err := store.Load()
		if err != nil {
			t.Fatalf("expected pair to be persisted, got %v", err)
		}
		if stored != pair {
			t.Errorf("stored pair %+v differs from returned pair %+v", stored, pair)
		}
	})

	t.Run("Retains Refresh Token When Response Omits It", func(t *testing.T) {
		_, conf := newTokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"fresh_access","token_type":"Bearer","expires_in":3600}`))
		})

		store := &memoryStore{}
		refresher := NewRefresher(conf, store, nil)

		pair, err := refresher.Refresh(context.Background(), "keep_me")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if pair.RefreshToken != "keep_me" {
			t.Errorf("expected previous refresh token to survive, got %q", pair.RefreshToken)
		}
	})

	t.Run("Missing Refresh Token", func(t *testing.T) {
		_, conf := newTokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("provider must not be called without a refresh token")
		})

		refresher := NewRefresher(conf, &memoryStore{}, nil)

		_, err := refresher.Refresh(context.Background(), "")
		if !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
	})

	t.Run("Provider Rejection Leaves Store Untouched", func(t *testing.T) {
		_, conf := newTokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Refresh token revoked"}`))
		})

		store := &memoryStore{pair: Pair{AccessToken: "old_access", RefreshToken: "revoked"}, seeded: true}
		refresher := NewRefresher(conf, store, nil)

		_, err := refresher.Refresh(context.Background(), "revoked")
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "invalid_grant") {
			t.Errorf("expected provider detail in error, got %v", err)
		}

		if store.saveCalls != 0 {
			t.Errorf("expected no save on failure, got %d saves", store.saveCalls)
		}
		stored, _ := store.Load()
		if stored.AccessToken != "old_access" {
			t.Errorf("stored pair must be untouched on failure, got %+v", stored)
		}
	})

	t.Run("Persist Failure Surfaces", func(t *testing.T) {
		_, conf := newTokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"fresh_access","refresh_token":"fresh_refresh","token_type":"Bearer"}`))
		})

		store := &memoryStore{saveErr: errors.New("disk full")}
		refresher := NewRefresher(conf, store, nil)

		_, err := refresher.Refresh(context.Background(), "old_refresh")
		if err == nil {
			t.Fatal("expected error when persistence fails")
		}
		if !strings.Contains(err.Error(), "disk full") {
			t.Errorf("expected persistence error to surface, got %v", err)
		}
	})
}

func TestProviderErrorDetail(t *testing.T) {
	t.Run("Code And Description", func(t *testing.T) {
		detail := providerErrorDetail(&oauth2.RetrieveError{
			ErrorCode:        "invalid_grant",
			ErrorDescription: "Refresh token revoked",
		})
		if detail != "invalid_grant (Refresh token revoked)" {
			t.Errorf("unexpected detail: %s", detail)
		}
	})

	t.Run("Body Fallback", func(t *testing.T) {
		detail := providerErrorDetail(&oauth2.RetrieveError{
			Body:     []byte("upstream broke"),
			Response: &http.Response{Status: "500 Internal Server Error"},
		})
		if detail != "upstream broke" {
			t.Errorf("unexpected detail: %s", detail)
		}
	})

	t.Run("Status Fallback", func(t *testing.T) {
		detail := providerErrorDetail(&oauth2.RetrieveError{
			Response: &http.Response{Status: "503 Service Unavailable"},
		})
		if detail != "503 Service Unavailable" {
			t.Errorf("unexpected detail: %s", detail)
		}
	})
}
