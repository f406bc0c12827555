package handler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/job-tracker/internal/apiclient"
	"github.com/cuongbtq/job-tracker/internal/session"
	"github.com/cuongbtq/job-tracker/internal/state"
	"github.com/cuongbtq/job-tracker/internal/web/ws"
)

// Workspace is the client-side state of one session: its job list and toast
type Workspace struct {
	List  *state.JobList
	Toast *state.Toast

	lastSeen time.Time
	stop     func()
}

// Workspaces creates workspaces on first use and keeps them until logout or
// until they go idle
type Workspaces struct {
	api           *apiclient.Client
	hub           *ws.Hub
	toastDuration time.Duration
	logger        *slog.Logger
	now           func() time.Time

	mu    sync.Mutex
	items map[string]*Workspace
}

// NewWorkspaces creates an empty registry. Toast changes are pushed to hub.
func NewWorkspaces(api *apiclient.Client, hub *ws.Hub, toastDuration time.Duration, logger *slog.Logger) *Workspaces {
	return &Workspaces{
		api:           api,
		hub:           hub,
		toastDuration: toastDuration,
		logger:        logger,
		now:           time.Now,
		items:         make(map[string]*Workspace),
	}
}

// Get returns the workspace of sess, creating it if needed
func (w *Workspaces) Get(sess *session.Session) *Workspace {
	w.mu.Lock()
	defer w.mu.Unlock()

	if wsp, ok := w.items[sess.Token]; ok {
		wsp.lastSeen = w.now()
		return wsp
	}

	wsp := &Workspace{
		List:     state.NewJobList(w.api, sess.UserID(), w.logger),
		Toast:    state.NewToast(w.toastDuration),
		lastSeen: w.now(),
	}
	wsp.stop = w.forward(sess.Token, wsp.Toast)
	w.items[sess.Token] = wsp
	return wsp
}

// forward pushes every toast change of the session to its websocket connections
func (w *Workspaces) forward(token string, toast *state.Toast) func() {
	changes, cancel := toast.Subscribe()
	if w.hub == nil {
		return cancel
	}

	go func() {
		for msg := range changes {
			w.hub.Send(token, ws.Message{Type: ws.TypeToast, Toast: msg})
		}
	}()
	return cancel
}

// Drop discards the workspace of token
func (w *Workspaces) Drop(token string) {
	w.mu.Lock()
	wsp, ok := w.items[token]
	delete(w.items, token)
	w.mu.Unlock()

	if ok {
		wsp.stop()
		wsp.Toast.Close()
	}
}

// Prune drops workspaces unused for longer than maxIdle and returns how many
func (w *Workspaces) Prune(maxIdle time.Duration) int {
	cutoff := w.now().Add(-maxIdle)

	w.mu.Lock()
	var idle []string
	for token, wsp := range w.items {
		if wsp.lastSeen.Before(cutoff) {
			idle = append(idle, token)
		}
	}
	w.mu.Unlock()

	for _, token := range idle {
		w.Drop(token)
	}
	if len(idle) > 0 {
		w.logger.Info("Pruned idle workspaces", slog.Int("count", len(idle)))
	}
	return len(idle)
}

// Len returns the number of live workspaces
func (w *Workspaces) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

// Close drops every workspace
func (w *Workspaces) Close() {
	w.mu.Lock()
	tokens := make([]string, 0, len(w.items))
	for token := range w.items {
		tokens = append(tokens, token)
	}
	w.mu.Unlock()

	for _, token := range tokens {
		w.Drop(token)
	}
}
