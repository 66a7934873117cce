// package models defines the data model for the now-playing web service
package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error             // Create inserts a new model into the database
	Get(id string) (T, error)         // Get retrieves a model by its ID
	List(limit int) ([]T, error)      // List retrieves the most recent models up to limit
	Delete(id string) error           // Delete removes a model from the database by its ID
}

// Snapshot is the normalized now-playing state returned to clients.
//
// Transient: recomputed on every poll, never persisted directly.
// When nothing is playing only Playing=false is populated.
type Snapshot struct {
	Playing    bool   `json:"playing"`
	Track      string `json:"songName,omitempty"`
	Artist     string `json:"artistName,omitempty"`
	Album      string `json:"albumName,omitempty"`
	AlbumArt   string `json:"albumArt,omitempty"`
	ProgressMS int64  `json:"progressMs,omitempty"`
	DurationMS int64  `json:"durationMs,omitempty"`
}

// SameTrack reports whether two snapshots describe the same track.
func (s Snapshot) SameTrack(other Snapshot) bool {
	return s.Track == other.Track && s.Artist == other.Artist && s.Album == other.Album
}

// Play is a persisted playback-history entry, one per observed track change.
type Play struct {
	id       string
	Track    string    `json:"track"`
	Artist   string    `json:"artist"`
	Album    string    `json:"album"`
	AlbumArt string    `json:"album_art,omitempty"`
	Duration int64     `json:"duration_ms"` // Duration in milliseconds
	PlayedAt time.Time `json:"played_at"`
}

// NewPlay creates a history entry from a snapshot.
func NewPlay(s Snapshot) *Play {
	return &Play{
		Track:    s.Track,
		Artist:   s.Artist,
		Album:    s.Album,
		AlbumArt: s.AlbumArt,
		Duration: s.DurationMS,
		PlayedAt: time.Now(),
	}
}

func (p *Play) ID() string           { return p.id }
func (p *Play) SetID(id string)      { p.id = id }
func (p *Play) CreatedAt() time.Time { return p.PlayedAt }

// Validate checks that the entry describes an actual track.
func (p *Play) Validate() error {
	if strings.TrimSpace(p.Track) == "" {
		return fmt.Errorf("play entry requires a track name")
	}
	if p.PlayedAt.IsZero() {
		return fmt.Errorf("play entry requires a played_at timestamp")
	}
	return nil
}
