package server

import (
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lorenzo132/spotify-playing/internal/history"
	"github.com/lorenzo132/spotify-playing/internal/services"
	"github.com/lorenzo132/spotify-playing/internal/shared"
	"github.com/lorenzo132/spotify-playing/internal/tokens"
)

//go:embed static
var staticFiles embed.FS

// stateTTL bounds how long an issued login state stays redeemable.
const stateTTL = 10 * time.Minute

// App bundles the web-facing handlers for the now-playing site.
//
// /login issues the provider redirect, /callback completes the code exchange
// and persists the credential pair, and /api/current-playing serves the
// polled playback snapshot behind the access guard.
type App struct {
	provider services.Provider
	store    tokens.Store
	guard    *tokens.Guard
	recorder *history.Recorder
	logger   *log.Logger

	mu     sync.Mutex
	states map[string]time.Time
}

// NewApp creates the web application over the given provider, store and guard.
// The recorder may be nil to disable playback history.
func NewApp(provider services.Provider, store tokens.Store, guard *tokens.Guard, recorder *history.Recorder, logger *log.Logger) *App {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &App{
		provider: provider,
		store:    store,
		guard:    guard,
		recorder: recorder,
		logger:   logger,
		states:   make(map[string]time.Time),
	}
}

// Register wires the application's routes into a router.
func (a *App) Register(router Router) {
	router.Handle(http.MethodGet, "/login", http.HandlerFunc(a.Login))
	router.Handle(http.MethodGet, "/callback", http.HandlerFunc(a.Callback))
	router.Handle(http.MethodGet, "/api/current-playing", http.HandlerFunc(a.CurrentPlaying))
	router.Handle(http.MethodGet, "/", http.HandlerFunc(a.Index))

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("static assets missing from binary: " + err.Error())
	}
	router.Handle(http.MethodGet, "/static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
}

// Login redirects the browser to the provider's authorization URL.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	state, err := shared.GenerateState()
	if err != nil {
		a.logger.Error("failed to generate state", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	a.rememberState(state)
	http.Redirect(w, r, a.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the authorization-code exchange and persists the tokens.
//
// On success the browser is redirected to the now-playing view. Provider
// rejections surface as a readable plain-text failure; nothing is persisted
// on failure.
func (a *App) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if !a.redeemState(q.Get("state")) {
		http.Error(w, "Invalid or expired state parameter", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		a.logger.Warn("authorization denied", "error", q.Get("error"), "description", q.Get("error_description"))
		http.Error(w, "Authorization failed: "+q.Get("error"), http.StatusBadRequest)
		return
	}

	pair, err := a.provider.Exchange(r.Context(), code)
	if err != nil {
		a.logger.Error("code exchange failed", "error", err)
		http.Error(w, "Error getting access token: "+err.Error(), http.StatusBadGateway)
		return
	}

	if err := a.store.Save(pair); err != nil {
		a.logger.Error("failed to persist tokens", "error", err)
		http.Error(w, "Failed to persist tokens", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// CurrentPlaying serves the polled now-playing snapshot as JSON.
//
// Responds 401 with a login hint when not authenticated, and 500 with an
// error body on fetch failures; the polling page retries on its next tick.
func (a *App) CurrentPlaying(w http.ResponseWriter, r *http.Request) {
	accessToken, err := a.guard.Token(r.Context())
	if errors.Is(err, shared.ErrNotAuthenticated) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "not authenticated",
			"login": "/login",
		})
		return
	}
	if err != nil {
		a.logger.Error("access guard failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error validating access token."})
		return
	}

	snapshot, err := a.provider.CurrentlyPlaying(r.Context(), accessToken)
	if err != nil {
		a.logger.Error("failed to fetch currently playing", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error fetching currently playing song."})
		return
	}

	if a.recorder != nil {
		if err := a.recorder.Record(snapshot); err != nil {
			// History is best-effort; the poll response still goes out.
			a.logger.Warn("failed to record play", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// Index serves the embedded now-playing page.
func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// rememberState records an issued state token, pruning expired ones.
func (a *App) rememberState(state string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	for s, issued := range a.states {
		if now.Sub(issued) > stateTTL {
			delete(a.states, s)
		}
	}
	a.states[state] = now
}

// redeemState consumes a state token, reporting whether it was outstanding.
func (a *App) redeemState(state string) bool {
	if state == "" {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	issued, ok := a.states[state]
	if !ok {
		return false
	}
	delete(a.states, state)

	return time.Since(issued) <= stateTTL
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
