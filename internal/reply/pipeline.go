package reply

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/antoniostano/roundtable/internal/observability"
	"github.com/antoniostano/roundtable/internal/protocol"
	"github.com/antoniostano/roundtable/internal/room"
)

// SyntheticSender is the sender id stamped on every bot-audio event.
const SyntheticSender = "synthetic"

// DefaultFallbackText keeps the conversation moving when reply
// generation fails or times out.
const DefaultFallbackText = "I'm having trouble responding right now."

// Generator produces a reply to one utterance.
type Generator interface {
	GenerateReply(ctx context.Context, text, senderID string) (string, error)
}

// Synthesizer turns reply text into audio bytes plus a format label.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, string, error)
}

// Members yields the broadcast set, recomputed at delivery time.
type Members interface {
	MembersOf(roomID string) []*room.Conn
}

type Config struct {
	GenerateTimeout   time.Duration
	SynthesizeTimeout time.Duration
	FallbackText      string
}

// Pipeline runs reply cycles with a strict per-room single-flight
// discipline: one FIFO queue and one processing marker per room, so two
// synthetic replies can never speak over each other. Utterances arriving
// while a cycle is in flight are deferred, never dropped.
type Pipeline struct {
	brain   Generator
	tts     Synthesizer
	members Members
	metrics *observability.Metrics
	cfg     Config

	mu     sync.Mutex
	rooms  map[string]*roomState
	genSeq uint64
}

type roomState struct {
	queue    []room.Utterance
	busy     bool
	speaking bool
	gen      uint64
}

func NewPipeline(brain Generator, tts Synthesizer, members Members, metrics *observability.Metrics, cfg Config) *Pipeline {
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 10 * time.Second
	}
	if cfg.SynthesizeTimeout <= 0 {
		cfg.SynthesizeTimeout = 8 * time.Second
	}
	if cfg.FallbackText == "" {
		cfg.FallbackText = DefaultFallbackText
	}
	return &Pipeline{
		brain:   brain,
		tts:     tts,
		members: members,
		metrics: metrics,
		cfg:     cfg,
		rooms:   make(map[string]*roomState),
	}
}

// Enqueue appends an utterance to the room's reply queue and starts a
// drain worker unless one is already processing the room.
func (p *Pipeline) Enqueue(u room.Utterance) {
	p.mu.Lock()
	st, ok := p.rooms[u.RoomID]
	if !ok {
		p.genSeq++
		st = &roomState{gen: p.genSeq}
		p.rooms[u.RoomID] = st
	}
	st.queue = append(st.queue, u)
	if !st.busy {
		st.busy = true
		go p.drain(u.RoomID, st.gen)
	}
	p.mu.Unlock()
}

// Release abandons the room's queue and processing marker. Called when
// the synthetic participant leaves mid-flight; a cycle already running
// completes on its own, but its room state is gone so it cannot block
// future utterances.
func (p *Pipeline) Release(roomID string) {
	p.mu.Lock()
	if _, ok := p.rooms[roomID]; ok {
		delete(p.rooms, roomID)
		log.Info().Str("module", "reply").Str("room", roomID).Msg("reply queue abandoned")
	}
	p.mu.Unlock()
}

// Speaking reports whether a reply cycle is currently in flight for the
// room. Informational only; clients drive their "is speaking" indicator
// from it, the server never gates on it.
func (p *Pipeline) Speaking(roomID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.rooms[roomID]
	return ok && st.speaking
}

func (p *Pipeline) drain(roomID string, gen uint64) {
	for {
		p.mu.Lock()
		st, ok := p.rooms[roomID]
		if !ok || st.gen != gen {
			// Abandoned while we were processing; a fresh state owns the room now.
			p.mu.Unlock()
			return
		}
		if len(st.queue) == 0 {
			delete(p.rooms, roomID)
			p.mu.Unlock()
			return
		}
		u := st.queue[0]
		st.queue = st.queue[1:]
		st.speaking = true
		p.mu.Unlock()

		p.cycle(u)

		p.mu.Lock()
		if st, ok := p.rooms[roomID]; ok && st.gen == gen {
			st.speaking = false
		}
		p.mu.Unlock()
	}
}

// cycle runs one utterance end to end. Generation failure degrades to
// the fallback text; synthesis failure skips audio emission entirely.
// Neither terminates the room, and the queue always advances.
func (p *Pipeline) cycle(u room.Utterance) {
	start := time.Now()
	outcome := "ok"

	genCtx, cancel := context.WithTimeout(context.Background(), p.cfg.GenerateTimeout)
	text, err := p.brain.GenerateReply(genCtx, u.Text, u.SenderID)
	cancel()
	if err != nil {
		log.Warn().Str("module", "reply").Str("room", u.RoomID).Err(err).Msg("reply generation failed, using fallback")
		p.metrics.ProviderErrors.WithLabelValues("brain", errCode(err)).Inc()
		text = p.cfg.FallbackText
		outcome = "fallback_text"
	}

	ttsCtx, cancel := context.WithTimeout(context.Background(), p.cfg.SynthesizeTimeout)
	audio, format, err := p.tts.Synthesize(ttsCtx, text)
	cancel()
	if err != nil {
		// A silent miss is acceptable; a crashed room is not.
		log.Warn().Str("module", "reply").Str("room", u.RoomID).Err(err).Msg("speech synthesis failed, skipping audio")
		p.metrics.ProviderErrors.WithLabelValues("tts", errCode(err)).Inc()
		p.metrics.ReplyCycles.WithLabelValues("synthesis_miss").Inc()
		return
	}

	msg := protocol.BotAudio{
		Type:   protocol.TypeBotAudio,
		Text:   text,
		Audio:  base64.StdEncoding.EncodeToString(audio),
		Format: format,
		Sender: SyntheticSender,
	}
	// Membership is recomputed here: members who left since the
	// utterance was queued simply do not receive the broadcast.
	for _, m := range p.members.MembersOf(u.RoomID) {
		if err := m.TrySend(msg); err != nil {
			log.Warn().Str("module", "reply").Str("room", u.RoomID).Str("to", m.ID).Err(err).Msg("bot-audio dropped")
		}
	}

	p.metrics.ReplyCycles.WithLabelValues(outcome).Inc()
	p.metrics.ObserveReplyLatency(time.Since(start))
}

func errCode(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
