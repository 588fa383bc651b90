package room

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/antoniostano/roundtable/internal/protocol"
)

var ErrRoomNotFound = errors.New("room has no registered connections")

// Utterance is one spoken-text event addressed to a room.
type Utterance struct {
	RoomID   string
	Text     string
	SenderID string
}

// ReplyQueue receives utterances destined for the room's synthetic
// participant. Implemented by the reply pipeline.
type ReplyQueue interface {
	Enqueue(u Utterance)
}

// Router distributes an utterance to every room member for live
// transcript display and hands it to the reply queue when the room has a
// synthetic participant.
type Router struct {
	registry *Registry
	replies  ReplyQueue
}

func NewRouter(registry *Registry, replies ReplyQueue) *Router {
	return &Router{registry: registry, replies: replies}
}

// Route broadcasts the utterance verbatim to all current members,
// including the sender (clients rely on the echo for local transcript
// consistency), then defers it to the reply queue. A room with no
// synthetic participant skips the reply step silently.
func (rt *Router) Route(u Utterance) error {
	members := rt.registry.MembersOf(u.RoomID)
	if len(members) == 0 {
		return ErrRoomNotFound
	}

	msg := protocol.UserMessage{
		Type:    protocol.TypeUserMessage,
		RoomID:  u.RoomID,
		Message: u.Text,
		Sender:  u.SenderID,
	}
	for _, m := range members {
		if err := m.TrySend(msg); err != nil {
			log.Warn().Str("module", "room.router").
				Str("room", u.RoomID).Str("to", m.ID).Err(err).Msg("broadcast dropped")
		}
	}

	if _, ok := rt.registry.SyntheticOf(u.RoomID); ok && rt.replies != nil {
		rt.replies.Enqueue(u)
	}
	return nil
}
