// package formatter provides functions to render playback history (table, CSV)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lorenzo132/spotify-playing/internal/models"
)

// HistoryToCSV converts play entries to CSV with columns: PlayedAt, Track, Artist, Album, Duration
func HistoryToCSV(plays []*models.Play) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"PlayedAt", "Track", "Artist", "Album", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, play := range plays {
		record := []string{
			play.PlayedAt.Format(time.RFC3339),
			play.Track,
			play.Artist,
			play.Album,
			formatDuration(play.Duration),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// RenderHistoryTable writes play entries to w as a formatted table, newest first.
func RenderHistoryTable(w io.Writer, plays []*models.Play) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Played", "Track", "Artist", "Album", "Length"})

	for i, play := range plays {
		t.AppendRow(table.Row{
			i + 1,
			play.PlayedAt.Format("2006-01-02 15:04"),
			play.Track,
			play.Artist,
			play.Album,
			formatDuration(play.Duration),
		})
	}

	t.Render()
}

// formatDuration renders a millisecond count as M:SS.
func formatDuration(ms int64) string {
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
