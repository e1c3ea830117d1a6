// Package server exposes reading sessions to the web client over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/arcanaland/lumen/internal/history"
	"github.com/arcanaland/lumen/internal/metrics"
	"github.com/arcanaland/lumen/internal/quota"
	"github.com/arcanaland/lumen/internal/session"
)

// UserHeader carries the signed-in user id, set by the auth proxy in front
const UserHeader = "X-User-ID"

// DefaultIdleTimeout is how long an untouched session is kept
const DefaultIdleTimeout = time.Hour

// HistoryReader lists completed sessions
type HistoryReader interface {
	List() []history.Entry
	Get(id string) (history.Entry, error)
}

// UsageChecker reports a user's remaining quota
type UsageChecker interface {
	CheckUsage(ctx context.Context, userID string) quota.Usage
}

// Config configures a Server
type Config struct {
	Addr        string
	NewMachine  func() *session.Machine
	History     HistoryReader
	Usage       UsageChecker
	IdleTimeout time.Duration
	Logger      *slog.Logger
}

type entry struct {
	m        *session.Machine
	lastSeen time.Time
}

// Server holds one session machine per client handle
type Server struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
}

// New creates a server
func New(cfg Config) *Server {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "server")),
		sessions: make(map[uuid.UUID]*entry),
	}
}

// Routes returns the HTTP handler
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(logging(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", s.createSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Get("/candidates", s.candidates)
			r.Post("/deck", s.selectDeck)
			r.Post("/count", s.setCount)
			r.Post("/locale", s.setLocale)
			r.Post("/library/open", s.simple((*session.Machine).OpenLibrary))
			r.Post("/library/close", s.simple((*session.Machine).CloseLibrary))
			r.Post("/inquiry", s.submit)
			r.Post("/shuffle/complete", s.simple((*session.Machine).CompleteShuffle))
			r.Post("/cut/complete", s.simple((*session.Machine).CompleteCut))
			r.Post("/draw", s.draw)
			r.Post("/reveal/complete", s.simple((*session.Machine).RevealComplete))
			r.Post("/again", s.simple((*session.Machine).AskAgain))
			r.Post("/back", s.simple((*session.Machine).Back))
			r.Post("/recall/{entryID}", s.recall)
		})
		r.Get("/history", s.listHistory)
		r.Get("/history/{entryID}", s.getHistory)
		r.Get("/quota", s.checkQuota)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweepLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.closeAll()
	return err
}

func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.IdleTimeout / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.sweep(now); n > 0 {
				s.logger.Debug("expired idle sessions", slog.Int("count", n))
			}
		}
	}
}

// sweep closes sessions idle since before now - IdleTimeout
func (s *Server) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.cfg.IdleTimeout {
			e.m.Close()
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.sessions {
		e.m.Close()
		delete(s.sessions, id)
	}
}

func (s *Server) add(m *session.Machine) uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &entry{m: m, lastSeen: time.Now()}
	return id
}

func (s *Server) lookup(r *http.Request) (*session.Machine, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return nil, ErrBadRequest.WithMessage("invalid session id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound.WithMessage("session not found")
	}
	e.lastSeen = time.Now()
	return e.m, nil
}

func (s *Server) remove(r *http.Request) error {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return ErrBadRequest.WithMessage("invalid session id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return ErrNotFound.WithMessage("session not found")
	}
	e.m.Close()
	delete(s.sessions, id)
	return nil
}
