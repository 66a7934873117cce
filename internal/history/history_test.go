package history

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lorenzo132/spotify-playing/internal/models"
	"github.com/lorenzo132/spotify-playing/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func playingSnapshot(track, artist string) models.Snapshot {
	return models.Snapshot{
		Playing:    true,
		Track:      track,
		Artist:     artist,
		Album:      "Test Album",
		AlbumArt:   "https://img.example/640.jpg",
		ProgressMS: 1000,
		DurationMS: 200000,
	}
}

func TestPlayRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewPlayRepository(setupTestDB(t))

		play := models.NewPlay(playingSnapshot("Test Track", "Test Artist"))
		if err := repo.Create(play); err != nil {
			t.Fatalf("failed to create play: %v", err)
		}

		if play.ID() == "" {
			t.Error("play ID should be set after creation")
		}
	})

	t.Run("Create Validates Entry", func(t *testing.T) {
		repo := NewPlayRepository(setupTestDB(t))

		play := models.NewPlay(models.Snapshot{})
		if err := repo.Create(play); err == nil {
			t.Error("expected validation error for empty track")
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewPlayRepository(setupTestDB(t))

		play := models.NewPlay(playingSnapshot("Test Track", "Test Artist"))
		if err := repo.Create(play); err != nil {
			t.Fatalf("failed to create play: %v", err)
		}

		retrieved, err := repo.Get(play.ID())
		if err != nil {
			t.Fatalf("failed to get play: %v", err)
		}

		if retrieved.Track != "Test Track" {
			t.Errorf("expected track 'Test Track', got %s", retrieved.Track)
		}
		if retrieved.Artist != "Test Artist" {
			t.Errorf("expected artist 'Test Artist', got %s", retrieved.Artist)
		}
		if retrieved.Duration != 200000 {
			t.Errorf("expected duration 200000, got %d", retrieved.Duration)
		}
	})

	t.Run("Get Missing", func(t *testing.T) {
		repo := NewPlayRepository(setupTestDB(t))

		if _, err := repo.Get("nonexistent"); err == nil {
			t.Error("expected error for missing play")
		}
	})

	t.Run("List Newest First", func(t *testing.T) {
		repo := NewPlayRepository(setupTestDB(t))

		base := time.Now().Add(-time.Hour)
		for i, track := range []string{"First", "Second", "Third"} {
			play := models.NewPlay(playingSnapshot(track, "Artist"))
			play.PlayedAt = base.Add(time.Duration(i) * time.Minute)
			if err := repo.Create(play); err != nil {
				t.Fatalf("failed to create play: %v", err)
			}
		}

		plays, err := repo.List(10)
		if err != nil {
			t.Fatalf("failed to list plays: %v", err)
		}

		if len(plays) != 3 {
			t.Fatalf("expected 3 plays, got %d", len(plays))
		}
		if plays[0].Track != "Third" || plays[2].Track != "First" {
			t.Errorf("expected newest first ordering, got %s .. %s", plays[0].Track, plays[2].Track)
		}
	})

	t.Run("List Honors Limit", func(t *testing.T) {
		repo := NewPlayRepository(setupTestDB(t))

		for _, track := range []string{"One", "Two", "Three"} {
			if err := repo.Create(models.NewPlay(playingSnapshot(track, "Artist"))); err != nil {
				t.Fatalf("failed to create play: %v", err)
			}
		}

		plays, err := repo.List(2)
		if err != nil {
			t.Fatalf("failed to list plays: %v", err)
		}
		if len(plays) != 2 {
			t.Errorf("expected 2 plays, got %d", len(plays))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewPlayRepository(setupTestDB(t))

		play := models.NewPlay(playingSnapshot("Test Track", "Artist"))
		if err := repo.Create(play); err != nil {
			t.Fatalf("failed to create play: %v", err)
		}

		if err := repo.Delete(play.ID()); err != nil {
			t.Fatalf("failed to delete play: %v", err)
		}
		if _, err := repo.Get(play.ID()); err == nil {
			t.Error("expected play to be gone after delete")
		}
		if err := repo.Delete(play.ID()); err == nil {
			t.Error("expected error deleting a missing play")
		}
	})
}

// countingRepo wraps creation counting for recorder tests.
type countingRepo struct {
	created []*models.Play
	err     error
}

func (r *countingRepo) Create(play *models.Play) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, play)
	return nil
}

func (r *countingRepo) Get(string) (*models.Play, error) { return nil, errors.New("not implemented") }
func (r *countingRepo) List(int) ([]*models.Play, error) { return nil, nil }
func (r *countingRepo) Delete(string) error              { return nil }

func TestRecorder(t *testing.T) {
	t.Run("Records Track Changes Only", func(t *testing.T) {
		repo := &countingRepo{}
		recorder := NewRecorder(repo, nil)

		first := playingSnapshot("Track A", "Artist")
		second := playingSnapshot("Track B", "Artist")

		for _, s := range []models.Snapshot{first, first, first, second, second} {
			if err := recorder.Record(s); err != nil {
				t.Fatalf("failed to record: %v", err)
			}
		}

		if len(repo.created) != 2 {
			t.Fatalf("expected 2 entries for 2 distinct tracks, got %d", len(repo.created))
		}
		if repo.created[0].Track != "Track A" || repo.created[1].Track != "Track B" {
			t.Errorf("unexpected entries: %v, %v", repo.created[0].Track, repo.created[1].Track)
		}
	})

	t.Run("Idle Resets Dedup", func(t *testing.T) {
		repo := &countingRepo{}
		recorder := NewRecorder(repo, nil)

		track := playingSnapshot("Repeat Track", "Artist")

		if err := recorder.Record(track); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		if err := recorder.Record(models.Snapshot{}); err != nil {
			t.Fatalf("failed to record idle: %v", err)
		}
		if err := recorder.Record(track); err != nil {
			t.Fatalf("failed to record replay: %v", err)
		}

		if len(repo.created) != 2 {
			t.Errorf("expected replay after idle to be recorded, got %d entries", len(repo.created))
		}
	})

	t.Run("Idle Snapshots Are Not Persisted", func(t *testing.T) {
		repo := &countingRepo{}
		recorder := NewRecorder(repo, nil)

		if err := recorder.Record(models.Snapshot{}); err != nil {
			t.Fatalf("failed to record idle: %v", err)
		}
		if len(repo.created) != 0 {
			t.Errorf("expected no entries for idle snapshots, got %d", len(repo.created))
		}
	})

	t.Run("Create Failure Surfaces", func(t *testing.T) {
		repo := &countingRepo{err: errors.New("db locked")}
		recorder := NewRecorder(repo, nil)

		if err := recorder.Record(playingSnapshot("Track", "Artist")); err == nil {
			t.Error("expected error when persistence fails")
		}
	})

	t.Run("Round Trip Through SQLite", func(t *testing.T) {
		repo := NewPlayRepository(setupTestDB(t))
		recorder := NewRecorder(repo, nil)

		if err := recorder.Record(playingSnapshot("Persisted Track", "Artist")); err != nil {
			t.Fatalf("failed to record: %v", err)
		}

		plays, err := repo.List(10)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(plays) != 1 || plays[0].Track != "Persisted Track" {
			t.Errorf("expected one persisted entry, got %+v", plays)
		}
	})
}
