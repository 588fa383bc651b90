package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/roundtable/internal/auth"
	"github.com/antoniostano/roundtable/internal/config"
	"github.com/antoniostano/roundtable/internal/observability"
	"github.com/antoniostano/roundtable/internal/reply"
	"github.com/antoniostano/roundtable/internal/room"
	"github.com/antoniostano/roundtable/internal/session"
)

type Server struct {
	cfg       config.Config
	store     session.Store
	lifecycle *session.Lifecycle
	registry  *room.Registry
	relay     *room.Relay
	router    *room.Router
	pipeline  *reply.Pipeline
	verifier  *auth.Verifier
	metrics   *observability.Metrics
	upgrader  websocket.Upgrader
}

func New(
	cfg config.Config,
	store session.Store,
	lifecycle *session.Lifecycle,
	registry *room.Registry,
	relay *room.Relay,
	router *room.Router,
	pipeline *reply.Pipeline,
	verifier *auth.Verifier,
	metrics *observability.Metrics,
) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		lifecycle: lifecycle,
		registry:  registry,
		relay:     relay,
		router:    router,
		pipeline:  pipeline,
		verifier:  verifier,
		metrics:   metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections
				// from the same origin. Non-browser clients omit
				// Origin and are allowed through.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.verifier))

		r.Post("/v1/sessions", s.handleCreateSession)
		r.Get("/v1/sessions/mine", s.handleMySessions)
		r.Get("/v1/sessions/{id}", s.handleGetSession)
		r.Post("/v1/sessions/{id}/join", s.handleJoinSession)
		r.Post("/v1/sessions/{id}/start", s.handleStartSession)
		r.Post("/v1/sessions/{id}/end", s.handleEndSession)
		r.Post("/v1/sessions/{id}/transcripts", s.handleAppendTranscript)

		r.Get("/v1/rooms/ws", s.handleRoomWS)
		r.Get("/v1/rooms/{id}/speaking", s.handleRoomSpeaking)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ready",
		"connections": s.registry.ConnCount(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondSessionError maps lifecycle/store errors onto the HTTP surface:
// authorization and transition rejections are explicit, everything else
// is a server error.
func respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, session.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, session.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid_transition", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
