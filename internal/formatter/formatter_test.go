package formatter

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/lorenzo132/spotify-playing/internal/models"
)

func samplePlays() []*models.Play {
	first := models.NewPlay(models.Snapshot{
		Playing:    true,
		Track:      "Test Track",
		Artist:     "Test Artist",
		Album:      "Test Album",
		DurationMS: 200000,
	})
	first.PlayedAt = time.Date(2026, 8, 20, 12, 30, 0, 0, time.UTC)

	second := models.NewPlay(models.Snapshot{
		Playing:    true,
		Track:      "Another Track",
		Artist:     "Another Artist",
		Album:      "Another Album",
		DurationMS: 95000,
	})
	second.PlayedAt = time.Date(2026, 8, 20, 12, 26, 0, 0, time.UTC)

	return []*models.Play{first, second}
}

func TestHistoryToCSV(t *testing.T) {
	t.Run("With Records", func(t *testing.T) {
		out, err := HistoryToCSV(samplePlays())
		if err != nil {
			t.Fatalf("failed to render CSV: %v", err)
		}

		records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}

		if len(records) != 3 {
			t.Fatalf("expected header plus 2 records, got %d rows", len(records))
		}
		if records[0][0] != "PlayedAt" {
			t.Errorf("unexpected header row: %v", records[0])
		}
		if records[1][1] != "Test Track" {
			t.Errorf("expected track in first record, got %v", records[1])
		}
		if records[1][4] != "3:20" {
			t.Errorf("expected duration 3:20, got %s", records[1][4])
		}
		if records[2][4] != "1:35" {
			t.Errorf("expected duration 1:35, got %s", records[2][4])
		}
	})

	t.Run("Empty History", func(t *testing.T) {
		out, err := HistoryToCSV(nil)
		if err != nil {
			t.Fatalf("failed to render CSV: %v", err)
		}

		records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("expected header only, got %d rows", len(records))
		}
	})
}

func TestRenderHistoryTable(t *testing.T) {
	var buf bytes.Buffer
	RenderHistoryTable(&buf, samplePlays())

	out := buf.String()
	for _, want := range []string{"Test Track", "Test Artist", "Another Album", "3:20", "2026-08-20 12:30"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected table to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{0, "0:00"},
		{1000, "0:01"},
		{59999, "0:59"},
		{60000, "1:00"},
		{200000, "3:20"},
		{3600000, "60:00"},
	}

	for _, c := range cases {
		if got := formatDuration(c.ms); got != c.want {
			t.Errorf("formatDuration(%d) = %s, want %s", c.ms, got, c.want)
		}
	}
}
