// package history provides persistence for playback history.
//
// [PlayRepository] implements [models.Repository] for [models.Play] entries.
// [Recorder] sits in front of it and records one entry per observed track
// change, so polling at one-second intervals does not flood the table.
package history

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lorenzo132/spotify-playing/internal/models"
	"github.com/lorenzo132/spotify-playing/internal/shared"
)

// PlayRepository implements [models.Repository] for [models.Play] persistence.
type PlayRepository struct {
	db *sql.DB
}

// NewPlayRepository creates a new [PlayRepository] with the given database connection
func NewPlayRepository(db *sql.DB) *PlayRepository {
	return &PlayRepository{db: db}
}

// Create inserts a new play entry into the database with a generated ID
func (r *PlayRepository) Create(play *models.Play) error {
	id := shared.GenerateID()
	play.SetID(id)

	if err := play.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO plays (id, track_name, artist_name, album_name, album_art_url, duration_ms, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, id, play.Track, play.Artist, play.Album, play.AlbumArt, play.Duration, play.PlayedAt)
	if err != nil {
		return fmt.Errorf("failed to insert play: %w", err)
	}

	return nil
}

// Get retrieves a play entry by ID
func (r *PlayRepository) Get(id string) (*models.Play, error) {
	query := `
		SELECT id, track_name, artist_name, album_name, album_art_url, duration_ms, played_at
		FROM plays
		WHERE id = ?
	`

	play, err := scanPlay(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("play not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query play: %w", err)
	}

	return play, nil
}

// List retrieves the most recent play entries, newest first
func (r *PlayRepository) List(limit int) ([]*models.Play, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, track_name, artist_name, album_name, album_art_url, duration_ms, played_at
		FROM plays
		ORDER BY played_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var plays []*models.Play
	for rows.Next() {
		play, err := scanPlay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		plays = append(plays, play)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plays: %w", err)
	}

	return plays, nil
}

// Delete removes a play entry by ID
func (r *PlayRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM plays WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete play: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("play not found: %s", id)
	}

	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanPlay.
type scanner interface {
	Scan(dest ...any) error
}

func scanPlay(s scanner) (*models.Play, error) {
	var (
		id       string
		track    string
		artist   string
		album    string
		albumArt string
		duration int64
		playedAt time.Time
	)

	if err := s.Scan(&id, &track, &artist, &album, &albumArt, &duration, &playedAt); err != nil {
		return nil, err
	}

	play := &models.Play{
		Track:    track,
		Artist:   artist,
		Album:    album,
		AlbumArt: albumArt,
		Duration: duration,
		PlayedAt: playedAt,
	}
	play.SetID(id)

	return play, nil
}

// Recorder records track changes observed in now-playing snapshots.
//
// Consecutive snapshots of the same track are ignored, so only transitions
// produce history entries. Safe for concurrent use by the HTTP handlers and
// the watch poller.
type Recorder struct {
	repo   models.Repository[*models.Play]
	mu     sync.Mutex
	last   models.Snapshot
	logger *log.Logger
}

// NewRecorder creates a Recorder persisting through the given repository.
func NewRecorder(repo models.Repository[*models.Play], logger *log.Logger) *Recorder {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Recorder{repo: repo, logger: logger}
}

// Record persists a history entry when the snapshot shows a new track.
//
// Idle snapshots (Playing=false) reset the dedup state so replaying the same
// track later is recorded again.
func (r *Recorder) Record(s models.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !s.Playing {
		r.last = models.Snapshot{}
		return nil
	}

	if s.SameTrack(r.last) {
		return nil
	}

	if err := r.repo.Create(models.NewPlay(s)); err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}

	r.logger.Debug("recorded play", "track", s.Track, "artist", s.Artist)
	r.last = s
	return nil
}
