package session

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("session not found")

// Store persists and retrieves sessions. Implementations must make
// CompareAndSwapState atomic with respect to concurrent callers; the
// lifecycle relies on it to keep state transitions monotonic under
// duplicate requests.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	ListByCreator(ctx context.Context, userID string) ([]*Session, error)
	AddParticipant(ctx context.Context, id, userID string) (*Session, error)
	AppendTranscript(ctx context.Context, id string, entry TranscriptEntry) error
	CompareAndSwapState(ctx context.Context, id string, from, to State) (bool, error)
	Close() error
}
