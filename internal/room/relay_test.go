package room

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/antoniostano/roundtable/internal/observability"
	"github.com/antoniostano/roundtable/internal/protocol"
)

func newTestRelay(t *testing.T) (*Registry, *Relay) {
	t.Helper()
	reg := NewRegistry()
	metrics := observability.NewMetrics(fmt.Sprintf("roundtable_test_relay_%d", time.Now().UnixNano()))
	return reg, NewRelay(reg, metrics)
}

func TestForwardStampsTrueSender(t *testing.T) {
	reg, relay := newTestRelay(t)
	target := NewConn("c2", 4)
	if err := reg.Join(target, "r1", RoleHuman); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	payload := json.RawMessage(`{"sdp":"opaque"}`)
	relay.Forward("c1", protocol.TypeOffer, "c2", payload)

	msg := drainOne(t, target)
	sig, ok := msg.(protocol.Signal)
	if !ok {
		t.Fatalf("message type = %T, want Signal", msg)
	}
	if sig.From != "c1" {
		t.Fatalf("From = %q, want c1 (client-supplied value must be overwritten)", sig.From)
	}
	if sig.Type != protocol.TypeOffer {
		t.Fatalf("Type = %q, want offer", sig.Type)
	}
	if string(sig.Payload) != `{"sdp":"opaque"}` {
		t.Fatalf("payload altered in transit: %s", sig.Payload)
	}
}

func TestForwardToUnknownTargetIsSilent(t *testing.T) {
	_, relay := newTestRelay(t)
	// Must not panic and must not surface anything to the sender.
	relay.Forward("c1", protocol.TypeICECandidate, "ghost", json.RawMessage(`{}`))
}

func TestForwardToDepartedTargetIsSilent(t *testing.T) {
	reg, relay := newTestRelay(t)
	target := NewConn("c2", 4)
	if err := reg.Join(target, "r1", RoleHuman); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	reg.Leave("c2")

	relay.Forward("c1", protocol.TypeAnswer, "c2", json.RawMessage(`{}`))
}
