package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/lorenzo132/spotify-playing/internal/history"
	"github.com/lorenzo132/spotify-playing/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the now-playing web application until interrupted.
//
// Wires the access guard in front of the playback endpoint and records
// playback history unless disabled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
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

	app := server.NewApp(spotify, store, guard, recorder, r.logger)

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	app.Register(router)

	httpServer := &http.Server{
		Addr:              config.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("server listening at http://%s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	green := color.New(color.FgGreen)
	green.Fprintf(r.output, "✓ Serving now-playing at http://%s\n", httpServer.Addr)
	r.writePlain("Visit http://%s/login to authorize, press Ctrl+C to stop.\n", httpServer.Addr)

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return nil
}

// serveCommand runs the web application
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the now-playing web application",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Disable playback history recording",
			},
		},
		Action: r.Serve,
	}
}
