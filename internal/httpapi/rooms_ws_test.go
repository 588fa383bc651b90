package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/roundtable/internal/protocol"
)

// wsFrame is the union of all outbound frame shapes, decoded loosely so
// one reader serves every assertion.
type wsFrame struct {
	Type         protocol.MessageType `json:"type"`
	RoomID       string               `json:"room_id"`
	ConnectionID string               `json:"connection_id"`
	Members      []string             `json:"members"`
	Message      string               `json:"message"`
	Sender       string               `json:"sender"`
	From         string               `json:"from"`
	To           string               `json:"to"`
	Payload      json.RawMessage      `json:"payload"`
	Text         string               `json:"text"`
	Audio        string               `json:"audio"`
	Format       string               `json:"format"`
	Code         string               `json:"code"`
}

func dialWS(t *testing.T, env *testEnv, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/v1/rooms/ws?token=" + env.token(t, userID)
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func sendFrame(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	if err := ws.WriteJSON(v); err != nil {
		t.Fatalf("ws write: %v", err)
	}
}

func readFrame(t *testing.T, ws *websocket.Conn) wsFrame {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame wsFrame
	if err := ws.ReadJSON(&frame); err != nil {
		t.Fatalf("ws read: %v", err)
	}
	return frame
}

func joinRoom(t *testing.T, ws *websocket.Conn, roomID string, isBot bool) wsFrame {
	t.Helper()
	sendFrame(t, ws, protocol.JoinRoom{Type: protocol.TypeJoinRoom, RoomID: roomID, IsBot: isBot})
	ack := readFrame(t, ws)
	if ack.Type != protocol.TypeRoomJoined {
		t.Fatalf("join ack type = %q, want room-joined", ack.Type)
	}
	if ack.ConnectionID == "" {
		t.Fatalf("join ack has no connection id")
	}
	return ack
}

func TestWSRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/v1/rooms/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("dial without token succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("handshake response = %+v, want 401", resp)
	}
}

func TestWSJoinAckAndPeerNotification(t *testing.T) {
	env := newTestEnv(t)

	first := dialWS(t, env, "alice")
	ackFirst := joinRoom(t, first, "r1", false)
	if len(ackFirst.Members) != 0 {
		t.Fatalf("first joiner sees members %v, want none", ackFirst.Members)
	}

	second := dialWS(t, env, "bob")
	ackSecond := joinRoom(t, second, "r1", false)
	if len(ackSecond.Members) != 1 || ackSecond.Members[0] != ackFirst.ConnectionID {
		t.Fatalf("second joiner members = %v, want [%s]", ackSecond.Members, ackFirst.ConnectionID)
	}

	notif := readFrame(t, first)
	if notif.Type != protocol.TypePeerJoined {
		t.Fatalf("frame type = %q, want peer-joined", notif.Type)
	}
	if notif.ConnectionID != ackSecond.ConnectionID {
		t.Fatalf("peer-joined connection = %q, want %q", notif.ConnectionID, ackSecond.ConnectionID)
	}
}

func TestWSUserMessageBroadcastAndSyntheticReply(t *testing.T) {
	env := newTestEnv(t)

	human := dialWS(t, env, "alice")
	joinRoom(t, human, "r1", false)
	bot := dialWS(t, env, "bot-runner")
	joinRoom(t, bot, "r1", true)

	sendFrame(t, human, protocol.UserMessage{
		Type:    protocol.TypeUserMessage,
		RoomID:  "r1",
		Message: "What does everyone think?",
		Sender:  "alice",
	})

	// The sender gets its own utterance echoed first.
	echo := readFrame(t, human)
	if echo.Type != protocol.TypeUserMessage {
		t.Fatalf("frame type = %q, want user-message", echo.Type)
	}
	if echo.Message != "What does everyone think?" || echo.Sender != "alice" {
		t.Fatalf("echo = %+v", echo)
	}

	// Then the synthesized reply reaches the whole room.
	for name, ws := range map[string]*websocket.Conn{"human": human, "bot": bot} {
		frame := readFrame(t, ws)
		if frame.Type == protocol.TypeUserMessage && name == "bot" {
			// The bot connection is a room member too and gets
			// the broadcast before the reply.
			frame = readFrame(t, ws)
		}
		if frame.Type != protocol.TypeBotAudio {
			t.Fatalf("%s frame type = %q, want bot-audio", name, frame.Type)
		}
		if frame.Sender != "synthetic" {
			t.Fatalf("%s reply sender = %q, want synthetic", name, frame.Sender)
		}
		decoded, err := base64.StdEncoding.DecodeString(frame.Audio)
		if err != nil {
			t.Fatalf("%s audio not base64: %v", name, err)
		}
		if string(decoded) != frame.Text {
			t.Fatalf("%s mock audio = %q, want reply text %q", name, decoded, frame.Text)
		}
	}
}

func TestWSSignalRelayStampsSender(t *testing.T) {
	env := newTestEnv(t)

	first := dialWS(t, env, "alice")
	ackFirst := joinRoom(t, first, "r1", false)
	second := dialWS(t, env, "bob")
	ackSecond := joinRoom(t, second, "r1", false)
	readFrame(t, first) // peer-joined for second

	sendFrame(t, second, protocol.Signal{
		Type:    protocol.TypeOffer,
		To:      ackFirst.ConnectionID,
		From:    "forged-id",
		Payload: json.RawMessage(`{"sdp":"v=0"}`),
	})

	frame := readFrame(t, first)
	if frame.Type != protocol.TypeOffer {
		t.Fatalf("frame type = %q, want offer", frame.Type)
	}
	if frame.From != ackSecond.ConnectionID {
		t.Fatalf("From = %q, want true sender %q", frame.From, ackSecond.ConnectionID)
	}
	if string(frame.Payload) != `{"sdp":"v=0"}` {
		t.Fatalf("payload altered: %s", frame.Payload)
	}
}

func TestWSDuplicateSyntheticRejected(t *testing.T) {
	env := newTestEnv(t)

	first := dialWS(t, env, "runner-1")
	joinRoom(t, first, "r1", true)

	second := dialWS(t, env, "runner-2")
	sendFrame(t, second, protocol.JoinRoom{Type: protocol.TypeJoinRoom, RoomID: "r1", IsBot: true})

	frame := readFrame(t, second)
	if frame.Type != protocol.TypeErrorEvent {
		t.Fatalf("frame type = %q, want error", frame.Type)
	}
	if frame.Code != "duplicate_synthetic" {
		t.Fatalf("error code = %q, want duplicate_synthetic", frame.Code)
	}
}

func TestWSDisconnectNotifiesPeers(t *testing.T) {
	env := newTestEnv(t)

	first := dialWS(t, env, "alice")
	joinRoom(t, first, "r1", false)
	second := dialWS(t, env, "bob")
	ackSecond := joinRoom(t, second, "r1", false)
	readFrame(t, first) // peer-joined for second

	second.Close()

	frame := readFrame(t, first)
	if frame.Type != protocol.TypePeerLeft {
		t.Fatalf("frame type = %q, want peer-left", frame.Type)
	}
	if frame.ConnectionID != ackSecond.ConnectionID {
		t.Fatalf("peer-left connection = %q, want %q", frame.ConnectionID, ackSecond.ConnectionID)
	}
}

func TestWSMalformedFramesAreDropped(t *testing.T) {
	env := newTestEnv(t)

	ws := dialWS(t, env, "alice")
	joinRoom(t, ws, "r1", false)

	// Neither frame terminates the connection or produces a response.
	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"wat"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The connection still works.
	sendFrame(t, ws, protocol.UserMessage{
		Type:    protocol.TypeUserMessage,
		RoomID:  "r1",
		Message: "still here",
		Sender:  "alice",
	})
	frame := readFrame(t, ws)
	if frame.Type != protocol.TypeUserMessage || frame.Message != "still here" {
		t.Fatalf("frame = %+v, want echoed user-message", frame)
	}
}
