// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/lorenzo132/spotify-playing/internal/models"
	"github.com/lorenzo132/spotify-playing/internal/shared"
	"github.com/lorenzo132/spotify-playing/internal/tokens"
)

// MockProvider is a configurable test double for [services.Provider]
type MockProvider struct {
	AuthURL     string
	Pair        tokens.Pair
	ExchangeErr error
	ProbeErr    error
	Snapshot    models.Snapshot
	SnapshotErr error

	mu            sync.Mutex
	ProbeCalls    int
	ExchangeCalls int
	FetchCalls    int
}

func (m *MockProvider) AuthCodeURL(state string) string {
	return m.AuthURL + "?state=" + state
}

func (m *MockProvider) Exchange(ctx context.Context, code string) (tokens.Pair, error) {
	m.mu.Lock()
	m.ExchangeCalls++
	m.mu.Unlock()
	if m.ExchangeErr != nil {
		return tokens.Pair{}, m.ExchangeErr
	}
	return m.Pair, nil
}

func (m *MockProvider) Probe(ctx context.Context, accessToken string) error {
	m.mu.Lock()
	m.ProbeCalls++
	m.mu.Unlock()
	return m.ProbeErr
}

func (m *MockProvider) CurrentlyPlaying(ctx context.Context, accessToken string) (models.Snapshot, error) {
	m.mu.Lock()
	m.FetchCalls++
	m.mu.Unlock()
	if m.SnapshotErr != nil {
		return models.Snapshot{}, m.SnapshotErr
	}
	return m.Snapshot, nil
}

func (m *MockProvider) Name() string { return "mock" }

// MemoryStore is an in-memory [tokens.Store] for tests.
type MemoryStore struct {
	mu    sync.Mutex
	pair  tokens.Pair
	saved bool

	SaveErr   error
	SaveCalls int
}

func NewMemoryStore(pair tokens.Pair) *MemoryStore {
	return &MemoryStore{pair: pair, saved: pair.AccessToken != ""}
}

func (s *MemoryStore) Load() (tokens.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return tokens.Pair{}, shared.ErrNoTokens
	}
	return s.pair, nil
}

func (s *MemoryStore) Save(pair tokens.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SaveCalls++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.pair = pair
	s.saved = true
	return nil
}

// Pair returns the currently stored pair.
func (s *MemoryStore) Pair() tokens.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit reached")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
