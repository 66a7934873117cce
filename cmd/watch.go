package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lorenzo132/spotify-playing/internal/history"
	"github.com/lorenzo132/spotify-playing/internal/poll"
	"github.com/lorenzo132/spotify-playing/internal/ui"
	"github.com/urfave/cli/v3"
)

// Watch runs the interactive now-playing terminal view.
//
// A poller goroutine feeds snapshots to the TUI over a channel; quitting the
// TUI cancels the poller.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	spotify, err := r.provider(config)
	if err != nil {
		return err
	}

	store := r.tokenStore(config)
	guard := r.newGuard(spotify, store)

	var recorder *history.Recorder
	if !cmd.Bool("no-history") {
		db, _, rec, err := r.openHistory(config)
		if err != nil {
			return err
		}
		defer db.Close()
		recorder = rec
	}

	interval := time.Duration(cmd.Int("interval")) * time.Second
	poller := poll.NewPoller(guard, spotify, recorder, r.logger)

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan poll.Update)
	go poller.Run(pollCtx, updates, poll.Opts{Interval: interval})

	program := tea.NewProgram(ui.NewModel(updates), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("watch UI failed: %w", err)
	}

	return nil
}

// watchCommand runs the terminal now-playing view
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Watch the currently playing song in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.IntFlag{
				Name:  "interval",
				Usage: "Poll interval in seconds",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Disable playback history recording",
			},
		},
		Action: r.Watch,
	}
}
