// Package apitest provides an in-process competition admin API for tests.
// It implements the three admin endpoints with API-key enforcement and
// just enough competition bookkeeping to drive the client through real
// status transitions.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/ArenaPanel/internal/models"
)

// Server is a fake competition admin API backed by httptest.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	apiKey      string
	comp        models.Competition
	statusCalls int
	startCalls  int
	resetCalls  int

	// statusCode, when non-zero, makes the status endpoint reply with
	// that code and no body.
	statusCode int
	// actionReply, when non-nil, overrides the start/reset response body.
	actionReply *models.ActionResponse
}

// New starts a fake admin API accepting the given key. The server is closed
// automatically when the test finishes.
func New(t *testing.T, apiKey string) *Server {
	t.Helper()

	s := &Server{apiKey: apiKey}

	r := chi.NewRouter()
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(s.requireKey)
		r.Get("/status", s.handleStatus)
		r.Post("/start", s.handleStart)
		r.Post("/reset", s.handleReset)
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != s.apiKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.statusCalls++
	code := s.statusCode
	comp := s.comp
	s.mu.Unlock()

	if code != 0 {
		w.WriteHeader(code)
		return
	}
	writeJSON(w, models.StatusResponse{Success: true, Competition: comp})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req models.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.startCalls++
	if s.actionReply != nil {
		reply := *s.actionReply
		s.mu.Unlock()
		writeJSON(w, reply)
		return
	}
	if !models.IsValidDuration(req.DurationDays) {
		s.mu.Unlock()
		writeJSON(w, models.ActionResponse{Success: false, Message: "invalid duration"})
		return
	}
	if s.comp.IsActive && !s.comp.IsEnded {
		s.mu.Unlock()
		writeJSON(w, models.ActionResponse{Success: false, Message: "competition already running"})
		return
	}
	now := time.Now().UnixMilli()
	end := now + int64(req.DurationDays)*24*60*60*1000
	s.comp = models.Competition{
		IsActive:         true,
		StartTime:        &now,
		EndTime:          &end,
		RemainingSeconds: (end - now) / 1000,
		DurationDays:     req.DurationDays,
	}
	s.mu.Unlock()

	writeJSON(w, models.ActionResponse{Success: true, Message: "competition started"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.resetCalls++
	if s.actionReply != nil {
		reply := *s.actionReply
		s.mu.Unlock()
		writeJSON(w, reply)
		return
	}
	s.comp = models.Competition{}
	s.mu.Unlock()

	writeJSON(w, models.ActionResponse{Success: true, Message: "competition reset"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// SetCompetition replaces the state reported by the status endpoint.
func (s *Server) SetCompetition(comp models.Competition) {
	s.mu.Lock()
	s.comp = comp
	s.mu.Unlock()
}

// Competition returns the current state held by the fake server.
func (s *Server) Competition() models.Competition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comp
}

// SetStatusCode makes the status endpoint fail with the given HTTP code.
// Zero restores normal behavior.
func (s *Server) SetStatusCode(code int) {
	s.mu.Lock()
	s.statusCode = code
	s.mu.Unlock()
}

// SetActionReply overrides the body returned by start and reset. Nil
// restores normal behavior.
func (s *Server) SetActionReply(reply *models.ActionResponse) {
	s.mu.Lock()
	s.actionReply = reply
	s.mu.Unlock()
}

// StatusCalls returns how many authenticated status fetches were served.
func (s *Server) StatusCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusCalls
}

// StartCalls returns how many start requests were served.
func (s *Server) StartCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startCalls
}

// ResetCalls returns how many reset requests were served.
func (s *Server) ResetCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetCalls
}
