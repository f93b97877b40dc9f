package api

import (
	"encoding/json"
	"net/http"

	"github.com/MeechYourGoals/chravel-server/internal/store"
	"github.com/go-chi/chi/v5"
)

type ConciergeAskRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Question  string `json:"question"`
}

func (h *APIHandler) ConciergeAskHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")

	var req ConciergeAskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, "Question cannot be empty", http.StatusBadRequest)
		return
	}

	resp, err := h.concierge.Ask(r.Context(), tripID, userID, req.SessionID, req.Question)
	if err != nil {
		writeServiceError(w, err, "asking concierge for trip "+tripID)
		return
	}
	json.NewEncoder(w).Encode(resp)
}

func (h *APIHandler) ListConciergeSessionsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")

	sessions, err := h.concierge.ListSessions(tripID, userID)
	if err != nil {
		writeServiceError(w, err, "listing concierge sessions for trip "+tripID)
		return
	}
	json.NewEncoder(w).Encode(sessions)
}

type ConciergeSessionResponse struct {
	*store.ConciergeSession
	Messages []store.ConciergeMessage `json:"messages"`
}

func (h *APIHandler) GetConciergeSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")
	sessionID := chi.URLParam(r, "sessionID")

	session, messages, err := h.concierge.SessionMessages(tripID, userID, sessionID)
	if err != nil {
		writeServiceError(w, err, "getting concierge session "+sessionID)
		return
	}
	if session == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(ConciergeSessionResponse{ConciergeSession: session, Messages: messages})
}
