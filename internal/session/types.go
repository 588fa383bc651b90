package session

import "time"

// State is the lifecycle stage of a session. Transitions are monotonic:
// NotStarted -> Started -> Ended, no skips, no reversals.
type State string

const (
	StateNotStarted State = "not_started"
	StateStarted    State = "started"
	StateEnded      State = "ended"
)

// TranscriptEntry is one spoken utterance captured for a session.
type TranscriptEntry struct {
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the persisted discussion session. The realtime room shares
// its id but lives only in the connection registry.
type Session struct {
	ID             string            `json:"session_id"`
	Topic          string            `json:"topic"`
	ScheduledTime  time.Time         `json:"scheduled_time"`
	AICount        int               `json:"ai_count"`
	CreatedBy      string            `json:"created_by"`
	ParticipantIDs []string          `json:"participant_ids"`
	State          State             `json:"state"`
	Transcripts    []TranscriptEntry `json:"transcripts,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// CreateRequest defines payload for creating a new session.
type CreateRequest struct {
	Topic         string    `json:"topic"`
	ScheduledTime time.Time `json:"scheduled_time"`
	AICount       int       `json:"ai_count"`
}

// TranscriptRequest defines payload for appending a transcript entry.
type TranscriptRequest struct {
	Text string `json:"text"`
}
