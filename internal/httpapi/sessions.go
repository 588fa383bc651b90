package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/antoniostano/roundtable/internal/auth"
	"github.com/antoniostano/roundtable/internal/session"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.IdentityFrom(r.Context())

	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "topic is required")
		return
	}
	if req.AICount < 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "ai_count must not be negative")
		return
	}
	if req.ScheduledTime.IsZero() {
		req.ScheduledTime = time.Now().UTC()
	}

	sess := &session.Session{
		Topic:         req.Topic,
		ScheduledTime: req.ScheduledTime,
		AICount:       req.AICount,
		CreatedBy:     userID,
		// The creator is the first participant.
		ParticipantIDs: []string{userID},
		State:          session.StateNotStarted,
	}
	if err := s.store.Create(r.Context(), sess); err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleMySessions(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.IdentityFrom(r.Context())
	sessions, err := s.store.ListByCreator(r.Context(), userID)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// handleJoinSession adds the caller to the participant set. Joining is
// idempotent: participant ids stay unique no matter how often a client
// retries.
func (s *Server) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.IdentityFrom(r.Context())
	sess, err := s.store.AddParticipant(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.IdentityFrom(r.Context())
	sess, err := s.lifecycle.Start(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.IdentityFrom(r.Context())
	sess, err := s.lifecycle.End(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleAppendTranscript(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.IdentityFrom(r.Context())

	var req session.TranscriptRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	entry := session.TranscriptEntry{
		UserID:    userID,
		Text:      req.Text,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.AppendTranscript(r.Context(), chi.URLParam(r, "id"), entry); err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}
