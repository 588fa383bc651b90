package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var (
	ErrForbidden         = errors.New("only the session creator may do this")
	ErrInvalidTransition = errors.New("invalid session state transition")
)

// Lifecycle gates session state transitions. The state sequence is
// strictly NotStarted -> Started -> Ended: ending before starting is
// rejected, not silently accepted, and Ended is terminal. Only the
// creator identity may start or end a session; there is deliberately no
// minimum duration, the creator may end immediately after starting.
type Lifecycle struct {
	store Store
}

func NewLifecycle(store Store) *Lifecycle {
	return &Lifecycle{store: store}
}

// Start moves the session to Started. The store's compare-and-swap makes
// the transition atomic: of two simultaneous starts from the creator's
// duplicate tabs, exactly one succeeds and the other gets
// ErrInvalidTransition.
func (l *Lifecycle) Start(ctx context.Context, sessionID, requesterID string) (*Session, error) {
	return l.transition(ctx, sessionID, requesterID, StateNotStarted, StateStarted)
}

// End moves the session to Ended. Requires the current state Started.
func (l *Lifecycle) End(ctx context.Context, sessionID, requesterID string) (*Session, error) {
	return l.transition(ctx, sessionID, requesterID, StateStarted, StateEnded)
}

func (l *Lifecycle) transition(ctx context.Context, sessionID, requesterID string, from, to State) (*Session, error) {
	sess, err := l.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.CreatedBy != requesterID {
		return nil, ErrForbidden
	}
	if sess.State != from {
		return nil, fmt.Errorf("%w: %s -> %s from %s", ErrInvalidTransition, from, to, sess.State)
	}

	ok, err := l.store.CompareAndSwapState(ctx, sessionID, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race to a concurrent transition.
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	log.Info().Str("module", "session.lifecycle").
		Str("session", sessionID).Str("by", requesterID).
		Str("state", string(to)).Msg("session state changed")
	return l.store.Get(ctx, sessionID)
}
