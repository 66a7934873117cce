// package poll implements the snapshot polling loop behind the watch TUI.
package poll

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lorenzo132/spotify-playing/internal/history"
	"github.com/lorenzo132/spotify-playing/internal/models"
	"github.com/lorenzo132/spotify-playing/internal/services"
	"github.com/lorenzo132/spotify-playing/internal/shared"
	"github.com/lorenzo132/spotify-playing/internal/tokens"
	"golang.org/x/time/rate"
)

// Update is one polling result delivered to the consumer.
//
// Either Snapshot or Err is meaningful; a failed poll carries the error and
// the consumer decides how to render it. Polling continues after errors.
type Update struct {
	Snapshot models.Snapshot
	Err      error
}

// Opts contains configuration for a polling run.
type Opts struct {
	Interval time.Duration // Time between polls (default: 1s)
	Rate     float64       // Provider requests per second ceiling (default: 2)
}

// Poller repeatedly fetches the now-playing snapshot through the access
// guard, respecting a rate limit, and delivers updates over a channel.
type Poller struct {
	guard    *tokens.Guard
	provider services.Provider
	recorder *history.Recorder
	logger   *log.Logger
}

// NewPoller creates a Poller. The recorder may be nil to disable history.
func NewPoller(guard *tokens.Guard, provider services.Provider, recorder *history.Recorder, logger *log.Logger) *Poller {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Poller{guard: guard, provider: provider, recorder: recorder, logger: logger}
}

// Run polls until the context is cancelled, sending every result to updates.
//
// The channel is closed on return. Guard and fetch failures are delivered as
// error updates rather than stopping the loop; the next tick retries.
func (p *Poller) Run(ctx context.Context, updates chan<- Update, opts Opts) {
	defer close(updates)

	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Rate <= 0 {
		opts.Rate = 2.0
	}

	limiter := rate.NewLimiter(rate.Limit(opts.Rate), 1)
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		update := p.poll(ctx)

		select {
		case updates <- update:
		case <-ctx.Done():
			return
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context) Update {
	accessToken, err := p.guard.Token(ctx)
	if err != nil {
		return Update{Err: err}
	}

	snapshot, err := p.provider.CurrentlyPlaying(ctx, accessToken)
	if err != nil {
		return Update{Err: err}
	}

	if p.recorder != nil {
		if err := p.recorder.Record(snapshot); err != nil {
			p.logger.Warn("failed to record play", "error", err)
		}
	}

	return Update{Snapshot: snapshot}
}
