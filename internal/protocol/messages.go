package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeJoinRoom     MessageType = "join-room"
	TypeRoomJoined   MessageType = "room-joined"
	TypePeerJoined   MessageType = "peer-joined"
	TypePeerLeft     MessageType = "peer-left"
	TypeUserMessage  MessageType = "user-message"
	TypeOffer        MessageType = "offer"
	TypeAnswer       MessageType = "answer"
	TypeICECandidate MessageType = "ice-candidate"
	TypeBotAudio     MessageType = "bot-audio"
	TypeErrorEvent   MessageType = "error"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// JoinRoom registers the connection as a member of a room. A connection
// joins at most one room for its lifetime.
type JoinRoom struct {
	Type   MessageType `json:"type"`
	RoomID string      `json:"room_id"`
	IsBot  bool        `json:"is_bot"`
}

// RoomJoined acknowledges a join and tells the client its own connection
// id plus the human peers already present, so it can start negotiating.
type RoomJoined struct {
	Type         MessageType `json:"type"`
	RoomID       string      `json:"room_id"`
	ConnectionID string      `json:"connection_id"`
	Members      []string    `json:"members"`
}

type PeerJoined struct {
	Type         MessageType `json:"type"`
	ConnectionID string      `json:"connection_id"`
}

type PeerLeft struct {
	Type         MessageType `json:"type"`
	ConnectionID string      `json:"connection_id"`
}

// UserMessage is a spoken-text utterance. It is broadcast verbatim to the
// whole room and, when a synthetic participant is present, queued for a
// reply cycle.
type UserMessage struct {
	Type    MessageType `json:"type"`
	RoomID  string      `json:"room_id"`
	Message string      `json:"message"`
	Sender  string      `json:"sender"`
}

// Signal carries an opaque WebRTC negotiation payload between two
// connections. The server never inspects Payload. Inbound messages set
// To; the relay stamps From with the true sender id before delivery.
type Signal struct {
	Type    MessageType     `json:"type"`
	To      string          `json:"to,omitempty"`
	From    string          `json:"from,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// BotAudio is emitted once per completed reply cycle. Audio is the
// base64-encoded synthesized speech.
type BotAudio struct {
	Type   MessageType `json:"type"`
	Text   string      `json:"text"`
	Audio  string      `json:"audio"`
	Format string      `json:"format,omitempty"`
	Sender string      `json:"sender"`
}

type ErrorEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail,omitempty"`
}

// ParseClientMessage decodes and validates an inbound client frame.
// Malformed frames are reported to the caller, which drops and logs them;
// the sender is never told (it has typically moved on already).
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeJoinRoom:
		var msg JoinRoom
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.RoomID) == "" {
			return nil, errors.New("invalid join-room: missing room_id")
		}
		return msg, nil
	case TypeUserMessage:
		var msg UserMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.RoomID == "" || msg.Message == "" || msg.Sender == "" {
			return nil, errors.New("invalid user-message: room_id, message and sender are required")
		}
		return msg, nil
	case TypeOffer, TypeAnswer, TypeICECandidate:
		var msg Signal
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.To == "" {
			return nil, fmt.Errorf("invalid %s: missing to", env.Type)
		}
		if len(msg.Payload) == 0 {
			return nil, fmt.Errorf("invalid %s: missing payload", env.Type)
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}

// TypeOf reports the message type of a decoded or outbound message.
func TypeOf(v any) (MessageType, bool) {
	switch m := v.(type) {
	case JoinRoom:
		return m.Type, true
	case RoomJoined:
		return m.Type, true
	case PeerJoined:
		return m.Type, true
	case PeerLeft:
		return m.Type, true
	case UserMessage:
		return m.Type, true
	case Signal:
		return m.Type, true
	case BotAudio:
		return m.Type, true
	case ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
