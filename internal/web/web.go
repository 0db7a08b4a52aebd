// Package web exposes the daemon's display state over HTTP: the persistent
// indicator for whatever front-end renders it (menu bar helper, waybar
// module, curl). It reads the poll driver's snapshot and nothing else.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"nextcall/internal/config"
	appLog "nextcall/internal/log"
	"nextcall/internal/model"
	"nextcall/internal/poll"
)

// SnapshotProvider hands out the latest committed cycle state.
type SnapshotProvider interface {
	Snapshot() poll.Snapshot
}

// Server provides the /health, /api/status and /api/events endpoints.
type Server struct {
	cfg      *config.Config
	provider SnapshotProvider
	mux      *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, provider SnapshotProvider) *Server {
	s := &Server{
		cfg:      cfg,
		provider: provider,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password counts as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays unauthenticated for probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="nextcall", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer starts an HTTP server bound to cfg.Listen and blocks until it
// fails or ctx is canceled.
func StartServer(ctx context.Context, cfg *config.Config, provider SnapshotProvider) error {
	s := NewServer(cfg, provider)
	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/events", s.handleEvents)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type eventResponse struct {
	Key       string    `json:"key"`
	Summary   string    `json:"summary"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end,omitzero"`
	VideoLink string    `json:"video_link"`
	Source    string    `json:"source"`
}

type statusResponse struct {
	State     string         `json:"state"`
	Text      string         `json:"text"`
	Minutes   int            `json:"minutes,omitempty"`
	Primary   *eventResponse `json:"primary,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
	FetchedAt time.Time      `json:"fetched_at,omitzero"`
	Stale     bool           `json:"stale"`
	Tracked   int            `json:"tracked"`
}

// handleStatus returns the current projection plus the primary event.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap := s.provider.Snapshot()

	resp := statusResponse{
		State:     snap.Status.Kind.String(),
		Text:      statusText(snap.Status),
		UpdatedAt: snap.UpdatedAt,
		FetchedAt: snap.FetchedAt,
		Stale:     snap.Stale,
		Tracked:   snap.Tracked,
	}
	if snap.Status.Kind == model.StatusCountdown {
		resp.Minutes = snap.Status.Minutes
	}
	if snap.Primary != nil {
		ev := toEventResponse(*snap.Primary)
		resp.Primary = &ev
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleEvents returns the eligible event list from the last cycle.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap := s.provider.Snapshot()

	out := make([]eventResponse, 0, len(snap.Eligible))
	for _, ev := range snap.Eligible {
		out = append(out, toEventResponse(ev))
	}
	writeJSON(w, http.StatusOK, out)
}

func toEventResponse(ev model.Event) eventResponse {
	return eventResponse{
		Key:       ev.Key,
		Summary:   ev.Summary,
		Start:     ev.Start,
		End:       ev.End,
		VideoLink: ev.VideoLink,
		Source:    ev.SourceID,
	}
}

// statusText renders the status the way the indicator shows it: "..." when
// idle, the minute count while counting down, "0" once started.
func statusText(st model.Status) string {
	switch st.Kind {
	case model.StatusCountdown:
		return strconv.Itoa(st.Minutes)
	case model.StatusStarted:
		return "0"
	default:
		return "..."
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to encode JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
