package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/lorenzo132/spotify-playing/internal/history"
	"github.com/lorenzo132/spotify-playing/internal/services"
	"github.com/lorenzo132/spotify-playing/internal/shared"
	"github.com/lorenzo132/spotify-playing/internal/tokens"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Config, provider and store are resolved lazily from the command's --config
// flag on first use; tests inject them through [RunnerOpts].
type Runner struct {
	config  *shared.Config
	spotify *services.SpotifyService
	store   tokens.Store
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Spotify *services.SpotifyService
	Store   tokens.Store
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:  opts.Config,
		spotify: opts.Spotify,
		store:   opts.Store,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

// loadConfig resolves the configuration for a command invocation.
//
// A preset config wins; otherwise the --config flag path is loaded when the
// file exists, falling back to embedded defaults. The result is cached.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	if r.config != nil {
		return r.config
	}

	configPath := cmd.String("config")
	config := shared.DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		if loaded, err := shared.LoadConfig(configPath); err == nil {
			config = loaded
		} else {
			r.logger.Warnf("failed to load config, using defaults %v", err)
		}
	}

	r.config = config
	return config
}

// tokenStore returns the token store, creating a file store at the configured path on first use.
func (r *Runner) tokenStore(config *shared.Config) tokens.Store {
	if r.store == nil {
		r.store = tokens.NewFileStore(config.Tokens.Path)
	}
	return r.store
}

// provider returns the Spotify service, failing when credentials are missing.
func (r *Runner) provider(config *shared.Config) (*services.SpotifyService, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w (set them in config.toml or the environment)", err)
	}

	spotify, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}

	r.spotify = spotify
	return spotify, nil
}

// newGuard builds the access guard chain (store → probe → refresher) for a provider.
func (r *Runner) newGuard(spotify *services.SpotifyService, store tokens.Store) *tokens.Guard {
	refresher := tokens.NewRefresher(spotify.OAuthConfig(), store, r.logger)
	return tokens.NewGuard(store, spotify, refresher, r.logger)
}

// openHistory opens the history database, applies migrations, and returns a recorder plus repository.
func (r *Runner) openHistory(config *shared.Config) (*sql.DB, *history.PlayRepository, *history.Recorder, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open history database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	repo := history.NewPlayRepository(db)
	return db, repo, history.NewRecorder(repo, r.logger), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
