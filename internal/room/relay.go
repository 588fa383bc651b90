package room

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/antoniostano/roundtable/internal/observability"
	"github.com/antoniostano/roundtable/internal/protocol"
)

// Relay forwards opaque negotiation payloads between two connections.
// Signaling is best-effort: a stale or unknown target means the envelope
// is dropped and logged, never surfaced to the sender, who has already
// moved on. No room-membership check is made on relay; connection ids
// are only learned through legitimate peer-joined notifications.
type Relay struct {
	registry *Registry
	metrics  *observability.Metrics
}

func NewRelay(registry *Registry, metrics *observability.Metrics) *Relay {
	return &Relay{registry: registry, metrics: metrics}
}

// Forward delivers an envelope verbatim to its target, stamping the true
// sender id. Any From supplied by the client is overwritten; the
// sender-supplied value is never trusted.
func (r *Relay) Forward(fromID string, kind protocol.MessageType, toID string, payload json.RawMessage) {
	target, ok := r.registry.Get(toID)
	if !ok || !target.Connected() {
		log.Debug().Str("module", "room.relay").
			Str("kind", string(kind)).Str("from", fromID).Str("to", toID).
			Msg("signal target not connected, dropped")
		r.metrics.SignalsRelayed.WithLabelValues(string(kind), "stale").Inc()
		return
	}

	out := protocol.Signal{Type: kind, From: fromID, Payload: payload}
	if err := target.TrySend(out); err != nil {
		log.Warn().Str("module", "room.relay").
			Str("kind", string(kind)).Str("to", toID).Err(err).Msg("signal delivery failed")
		r.metrics.SignalsRelayed.WithLabelValues(string(kind), "dropped").Inc()
		return
	}
	r.metrics.SignalsRelayed.WithLabelValues(string(kind), "delivered").Inc()
}
