// package tokens implements the OAuth2 credential lifecycle: durable storage,
// refresh, and the request-time access guard.
package tokens

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/lorenzo132/spotify-playing/internal/shared"
)

// Pair is the credential pair issued by the provider.
//
// RefreshToken is never overwritten with an empty value: when a refresh
// response omits it, the previous one is retained (see [Refresher]).
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Store persists and retrieves the current credential pair.
type Store interface {
	// Load returns the stored pair, or an error wrapping [shared.ErrNoTokens]
	// when nothing has been persisted yet. Absence is the expected state
	// before first authorization, not a failure.
	Load() (Pair, error)

	// Save durably persists the pair, replacing any previous record.
	Save(Pair) error
}

// FileStore stores the credential pair as a single JSON record at a fixed path.
//
// Access is serialized by a mutex so concurrent requests never observe a
// half-written record, and writes go through a temp file + rename so a crash
// mid-save cannot corrupt the stored pair.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore persisting to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the stored credential pair.
func (s *FileStore) Load() (Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Pair{}, fmt.Errorf("%w: %s", shared.ErrNoTokens, s.path)
	}
	if err != nil {
		return Pair{}, fmt.Errorf("failed to read token file: %w", err)
	}

	var pair Pair
	if err := json.Unmarshal(data, &pair); err != nil {
		return Pair{}, fmt.Errorf("failed to parse token file: %w", err)
	}

	if pair.AccessToken == "" {
		return Pair{}, fmt.Errorf("%w: empty record at %s", shared.ErrNoTokens, s.path)
	}

	return pair, nil
}

// Save atomically writes the credential pair.
func (s *FileStore) Save(pair Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".tokens-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set token file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close token file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace token file: %w", err)
	}

	return nil
}
