package main

import (
	"context"
	"fmt"

	"github.com/lorenzo132/spotify-playing/internal/formatter"
	"github.com/urfave/cli/v3"
)

// History lists recently played tracks from the local database.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	useCSV := cmd.Bool("csv")

	db, repo, _, err := r.openHistory(config)
	if err != nil {
		return err
	}
	defer db.Close()

	plays, err := repo.List(int(limit))
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(plays) == 0 {
		return r.writePlain("No playback history recorded yet.\n")
	}

	if useJSON {
		return r.writeJSON(plays, pretty)
	}

	if useCSV {
		data, err := formatter.HistoryToCSV(plays)
		if err != nil {
			return fmt.Errorf("failed to render CSV: %w", err)
		}
		return r.writePlain("%s", data)
	}

	formatter.RenderHistoryTable(r.output, plays)
	return nil
}

// historyCommand lists recently recorded plays
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recently played tracks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of entries to show",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
			&cli.BoolFlag{
				Name:  "csv",
				Usage: "Output CSV",
			},
		},
		Action: r.History,
	}
}
