package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/antoniostano/roundtable/internal/protocol"
	"github.com/antoniostano/roundtable/internal/room"
)

// handleRoomWS upgrades the connection and runs its event loop. All room
// state changes flow through the registry; this handler never terminates
// the loop on a routing error, only on socket failure.
func (s *Server) handleRoomWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Str("module", "httpapi.rooms").Err(err).Msg("ws upgrade failed")
		return
	}

	connID := uuid.NewString()
	conn := room.NewConn(connID, s.cfg.SendBuffer)
	s.metrics.RoomEvents.WithLabelValues("ws_connected").Inc()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range conn.Outbound() {
			_ = ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := ws.WriteJSON(msg); err != nil {
				log.Warn().Str("module", "httpapi.rooms").Str("conn", connID).Err(err).Msg("ws write failed")
				s.registry.Leave(connID)
				conn.Close()
				return
			}
			if t, ok := protocol.TypeOf(msg); ok {
				s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
			}
		}
	}()

	ws.SetReadLimit(1 << 20)
	_ = ws.SetReadDeadline(time.Now().Add(120 * time.Second))
	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			// Malformed payloads are dropped; the sender has
			// typically moved on and gets no error back.
			log.Debug().Str("module", "httpapi.rooms").Str("conn", connID).Err(err).Msg("bad client message")
			s.metrics.WSMessages.WithLabelValues("inbound", "invalid").Inc()
			continue
		}
		if t, ok := protocol.TypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}

		switch msg := parsed.(type) {
		case protocol.JoinRoom:
			s.handleJoinRoom(conn, msg)
		case protocol.UserMessage:
			if err := s.router.Route(room.Utterance{
				RoomID:   msg.RoomID,
				Text:     msg.Message,
				SenderID: msg.Sender,
			}); err != nil {
				// The room is gone; the speaker has usually
				// disconnected too. Log and move on.
				log.Debug().Str("module", "httpapi.rooms").
					Str("room", msg.RoomID).Err(err).Msg("utterance dropped")
			}
		case protocol.Signal:
			s.relay.Forward(connID, msg.Type, msg.To, msg.Payload)
		}
	}

	s.registry.Leave(connID)
	conn.Close()
	<-writerDone
	s.metrics.ActiveConnections.Set(float64(s.registry.ConnCount()))
	s.metrics.RoomEvents.WithLabelValues("ws_disconnected").Inc()
	_ = ws.Close()
}

func (s *Server) handleJoinRoom(conn *room.Conn, msg protocol.JoinRoom) {
	role := room.RoleHuman
	if msg.IsBot {
		role = room.RoleSynthetic
	}

	if err := s.registry.Join(conn, msg.RoomID, role); err != nil {
		if errors.Is(err, room.ErrDuplicateSynthetic) {
			_ = conn.TrySend(protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "duplicate_synthetic",
				Detail: "room already has a synthetic participant",
			})
			s.metrics.RoomEvents.WithLabelValues("duplicate_synthetic").Inc()
		}
		return
	}
	if conn.RoomID != msg.RoomID {
		// The connection already belongs to another room for its
		// lifetime; re-joining elsewhere is rejected.
		_ = conn.TrySend(protocol.ErrorEvent{
			Type:   protocol.TypeErrorEvent,
			Code:   "already_in_room",
			Detail: "connection is already a member of a room",
		})
		return
	}

	_ = conn.TrySend(protocol.RoomJoined{
		Type:         protocol.TypeRoomJoined,
		RoomID:       msg.RoomID,
		ConnectionID: conn.ID,
		Members:      s.registry.HumanPeerIDs(msg.RoomID, conn.ID),
	})
	s.metrics.ActiveConnections.Set(float64(s.registry.ConnCount()))
	s.metrics.RoomEvents.WithLabelValues("joined").Inc()
}

func (s *Server) handleRoomSpeaking(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"room_id":  chi.URLParam(r, "id"),
		"speaking": s.pipeline.Speaking(chi.URLParam(r, "id")),
	})
}
