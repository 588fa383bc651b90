package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

func (s *InMemoryStore) Create(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	if sess.State == "" {
		sess.State = StateNotStarted
	}
	s.sessions[sess.ID] = clone(sess)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(sess), nil
}

func (s *InMemoryStore) ListByCreator(_ context.Context, userID string) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0)
	for _, sess := range s.sessions {
		if sess.CreatedBy == userID {
			out = append(out, clone(sess))
		}
	}
	// Most recently scheduled first.
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledTime.After(out[j].ScheduledTime)
	})
	return out, nil
}

func (s *InMemoryStore) AddParticipant(_ context.Context, id, userID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	for _, p := range sess.ParticipantIDs {
		if p == userID {
			return clone(sess), nil
		}
	}
	sess.ParticipantIDs = append(sess.ParticipantIDs, userID)
	return clone(sess), nil
}

func (s *InMemoryStore) AppendTranscript(_ context.Context, id string, entry TranscriptEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	sess.Transcripts = append(sess.Transcripts, entry)
	return nil
}

func (s *InMemoryStore) CompareAndSwapState(_ context.Context, id string, from, to State) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false, ErrNotFound
	}
	if sess.State != from {
		return false, nil
	}
	sess.State = to
	return true, nil
}

func (s *InMemoryStore) Close() error { return nil }

func clone(s *Session) *Session {
	c := *s
	c.ParticipantIDs = append([]string(nil), s.ParticipantIDs...)
	c.Transcripts = append([]TranscriptEntry(nil), s.Transcripts...)
	return &c
}
