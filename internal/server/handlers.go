package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arcanaland/lumen/internal/card"
	"github.com/arcanaland/lumen/internal/deck"
	"github.com/arcanaland/lumen/internal/session"
)

// maxWait bounds long-polling on GET /sessions/{id}
const maxWait = 30 * time.Second

// submitTimeout bounds the quota reservation of an inquiry
const submitTimeout = 5 * time.Second

type sessionResponse struct {
	ID    uuid.UUID        `json:"id"`
	State session.Snapshot `json:"state"`
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return ErrBadRequest.WithMessage("Invalid request body")
	}
	return nil
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	m := s.cfg.NewMachine()
	id := s.add(m)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id, State: m.Snapshot()})
}

// getSession returns the state. With ?wait=<duration> it blocks until the
// state changes or the wait elapses.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	m, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if raw := r.URL.Query().Get("wait"); raw != "" {
		wait, err := time.ParseDuration(raw)
		if err != nil || wait <= 0 {
			writeError(w, ErrBadRequest.WithMessage("wait must be a positive duration"))
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), min(wait, maxWait))
		defer cancel()

		select {
		case <-m.Changed():
		case <-ctx.Done():
		}
	}

	writeJSON(w, http.StatusOK, m.Snapshot())
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.remove(r); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// simple adapts a parameterless machine operation to a handler
func (s *Server) simple(op func(*session.Machine) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := s.lookup(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := op(m); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m.Snapshot())
	}
}

func (s *Server) selectDeck(w http.ResponseWriter, r *http.Request) {
	m, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Deck string `json:"deck"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := deck.ParseVariant(req.Deck)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := m.SelectDeck(v); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

func (s *Server) setCount(w http.ResponseWriter, r *http.Request) {
	m, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Count int `json:"count"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := m.SetTargetCount(req.Count); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

func (s *Server) setLocale(w http.ResponseWriter, r *http.Request) {
	m, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Locale string `json:"locale"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	m.SetLocale(card.ParseLocale(req.Locale))
	writeJSON(w, http.StatusOK, m.Snapshot())
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	m, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	// A client disconnect must not fail the reservation open.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), submitTimeout)
	defer cancel()
	if err := m.Submit(ctx, r.Header.Get(UserHeader), req.Question); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

func (s *Server) candidates(w http.ResponseWriter, r *http.Request) {
	m, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	cards := m.Candidates()
	if cards == nil {
		cards = []card.Card{}
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) draw(w http.ResponseWriter, r *http.Request) {
	m, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		CardID *int `json:"cardId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.CardID == nil {
		writeError(w, ErrBadRequest.WithMessage("cardId is required"))
		return
	}
	if _, err := m.Confirm(*req.CardID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

func (s *Server) recall(w http.ResponseWriter, r *http.Request) {
	m, err := s.lookup(r)
	if err != nil {
		writeError(w, err)
		return
	}
	e, err := s.cfg.History.Get(chi.URLParam(r, "entryID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := m.Recall(e); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.History.List())
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	e, err := s.cfg.History.Get(chi.URLParam(r, "entryID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) checkQuota(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(UserHeader)
	if userID == "" {
		writeError(w, ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Usage.CheckUsage(r.Context(), userID))
}
