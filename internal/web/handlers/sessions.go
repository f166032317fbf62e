package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/doppelganger/internal/entropy"
)

// SessionsHandler exposes the entropy sessions.
type SessionsHandler struct {
	engine *entropy.Engine
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(engine *entropy.Engine) *SessionsHandler {
	return &SessionsHandler{engine: engine}
}

// CreateSessionResponse is returned for a new session.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ResetSessionResponse is returned after a reset.
type ResetSessionResponse struct {
	Message string        `json:"message"`
	Session entropy.Stats `json:"session"`
}

// Create starts a fresh session.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, CreateSessionResponse{
		SessionID: h.engine.CreateSession(),
		Message:   "New session created. System stability: 100%",
	})
}

// Get returns the stats of a session. Unknown ids are created on the fly.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Stats(chi.URLParam(r, "id")))
}

// Reset restores a session to zero entropy.
func (h *SessionsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ResetSessionResponse{
		Message: "Session reset. Stability restored.",
		Session: h.engine.Reset(chi.URLParam(r, "id")),
	})
}
