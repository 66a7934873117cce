package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/lorenzo132/spotify-playing/internal/server"
	"github.com/lorenzo132/spotify-playing/internal/services"
	"github.com/lorenzo132/spotify-playing/internal/shared"
	"github.com/lorenzo132/spotify-playing/internal/tokens"
	"github.com/urfave/cli/v3"
)

// Auth performs the OAuth2 authorization flow from the terminal.
//
// Starts a local HTTP server on the redirect address, opens the browser for
// user authorization, exchanges the auth code for tokens, and persists them.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	spotify, err := r.provider(config)
	if err != nil {
		return err
	}

	pair, err := r.doOAuth(config, spotify)
	if err != nil {
		return err
	}

	if err := r.tokenStore(config).Save(pair); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Fprintf(r.output, "\n✓ Authorization successful\n")
	green.Fprintf(r.output, "✓ Tokens saved to %s\n\n", config.Tokens.Path)
	r.writePlain("You can now run: spotify-playing serve\n")

	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(config *shared.Config, spotify services.Provider) (tokens.Pair, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := spotify.AuthCodeURL(state)
	oauthHandler := server.NewOAuthHandler(spotify, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	httpServer := &http.Server{
		Addr:    config.Server.Addr(),
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return tokens.Pair{}, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return tokens.Pair{}, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return tokens.Pair{}, fmt.Errorf("authorization failed: %w", result.Error())
	}

	return result.Pair, nil
}

// authCommand handles the one-time credential bootstrap
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize with Spotify using OAuth2",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Auth,
	}
}
