package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"popcorn/internal/search"
)

// validQuery reports why q cannot be searched, or "" when it can.
func (h *APIHandler) validQuery(q string) string {
	if strings.TrimSpace(q) == "" {
		return "Query is required"
	}
	if limit := h.manager.MaxQueryLength(); limit > 0 && utf8.RuneCountInString(q) > limit {
		return "Query is too long"
	}
	return ""
}

// Search runs the natural-language pipeline once. Upstream failures give an
// empty result rather than an error status.
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if msg := h.validQuery(q); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	respondJSON(w, http.StatusOK, h.manager.Search(r.Context(), q))
}

type sessionResponse struct {
	ID       string          `json:"id"`
	Snapshot search.Snapshot `json:"snapshot"`
}

func (h *APIHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.manager.NewPolledSession()
	respondJSON(w, http.StatusCreated, sessionResponse{ID: session.ID(), Snapshot: session.Snapshot()})
}

func (h *APIHandler) lookupSession(w http.ResponseWriter, r *http.Request) (*search.Session, bool) {
	session, err := h.manager.GetSession(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, search.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "Session not found")
		} else {
			respondError(w, http.StatusInternalServerError, "Failed to load session")
		}
		return nil, false
	}
	return session, true
}

func (h *APIHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{ID: session.ID(), Snapshot: session.Snapshot()})
}

// SessionInput feeds one keystroke's worth of text. An empty text clears the
// session immediately; anything else is applied after the debounce period.
func (h *APIHandler) SessionInput(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) != "" {
		if msg := h.validQuery(req.Text); msg != "" {
			respondError(w, http.StatusBadRequest, msg)
			return
		}
	}

	session.OnInput(req.Text)
	respondJSON(w, http.StatusAccepted, sessionResponse{ID: session.ID(), Snapshot: session.Snapshot()})
}

func (h *APIHandler) SessionClear(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	session.OnClear()
	respondJSON(w, http.StatusOK, sessionResponse{ID: session.ID(), Snapshot: session.Snapshot()})
}

func (h *APIHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.CloseSession(mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, search.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "Session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to close session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
