package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"schedview/internal/config"
	appLog "schedview/internal/log"
	"schedview/internal/refresh"
)

// EventStore is the server's view of the refreshed event snapshot.
type EventStore interface {
	Snapshot() refresh.Snapshot
	Refresh(ctx context.Context) error
}

// Server provides the calendar page and the JSON/ICS APIs over the current
// snapshot. Every request hydrates its own view state from the URL.
type Server struct {
	mu  sync.RWMutex
	cfg *config.Config

	events EventStore
	mux    *http.ServeMux
	page   *template.Template
	now    func() time.Time
}

//go:embed templates/*.html
var embeddedTemplates embed.FS

// Option configures a Server.
type Option func(*Server)

// WithClock overrides time.Now, for "today" and tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, events EventStore, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		events: events,
		mux:    http.NewServeMux(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.page = template.Must(template.New("calendar.html").Funcs(pageFuncs).ParseFS(embeddedTemplates, "templates/calendar.html"))
	s.registerRoutes()
	return s
}

// SetConfig swaps the configuration, e.g. after a reload.
func (s *Server) SetConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

func (s *Server) config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.basicAuthMiddleware(s.mux)
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic
// Auth. Credentials are read per request so a reload takes effect at once;
// an empty username or password disables auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ba := s.config().BasicAuth
		if r.URL.Path == "/health" || ba == nil || ba.Username == "" || ba.Password == "" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, ba.Username) || !secureCompare(p, ba.Password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="schedview", charset="UTF-8"`)
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

// Serve listens on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	listen := s.config().Listen
	srv := &http.Server{
		Addr:              listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/events.ics", s.handleEventsICS)
	s.mux.HandleFunc("POST /api/events/validate", s.handleValidate)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /calendar", s.handlePage)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/calendar", http.StatusFound)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last captured PNG snapshot from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	// http.ServeFile answers 404 for a missing file.
	http.ServeFile(w, r, s.config().Snapshot.Output)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

type errResp struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg})
}
