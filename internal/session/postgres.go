package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists sessions and transcripts in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			scheduled_time TIMESTAMPTZ NOT NULL,
			ai_count INT NOT NULL DEFAULT 0,
			created_by TEXT NOT NULL,
			participant_ids TEXT[] NOT NULL DEFAULT '{}',
			state TEXT NOT NULL DEFAULT 'not_started',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_created_by ON sessions (created_by, scheduled_time);`,
		`CREATE TABLE IF NOT EXISTS transcripts (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions (id),
			user_id TEXT NOT NULL,
			text TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transcripts_session_ts ON transcripts (session_id, ts);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	if sess.State == "" {
		sess.State = StateNotStarted
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, topic, scheduled_time, ai_count, created_by, participant_ids, state, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sess.ID,
		sess.Topic,
		sess.ScheduledTime,
		sess.AICount,
		sess.CreatedBy,
		sess.ParticipantIDs,
		string(sess.State),
		sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, topic, scheduled_time, ai_count, created_by, participant_ids, state, created_at
		 FROM sessions WHERE id=$1`,
		id,
	)
	sess := &Session{}
	var state string
	err := row.Scan(&sess.ID, &sess.Topic, &sess.ScheduledTime, &sess.AICount,
		&sess.CreatedBy, &sess.ParticipantIDs, &state, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.State = State(state)

	rows, err := s.pool.Query(ctx,
		`SELECT user_id, text, ts FROM transcripts WHERE session_id=$1 ORDER BY ts`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var entry TranscriptEntry
		if err := rows.Scan(&entry.UserID, &entry.Text, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transcript row: %w", err)
		}
		sess.Transcripts = append(sess.Transcripts, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript rows: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) ListByCreator(ctx context.Context, userID string) ([]*Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, topic, scheduled_time, ai_count, created_by, participant_ids, state, created_at
		 FROM sessions WHERE created_by=$1 ORDER BY scheduled_time DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]*Session, 0)
	for rows.Next() {
		sess := &Session{}
		var state string
		if err := rows.Scan(&sess.ID, &sess.Topic, &sess.ScheduledTime, &sess.AICount,
			&sess.CreatedBy, &sess.ParticipantIDs, &state, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sess.State = State(state)
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AddParticipant(ctx context.Context, id, userID string) (*Session, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET participant_ids = array_append(participant_ids, $2)
		 WHERE id=$1 AND NOT ($2 = ANY(participant_ids))`,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("add participant: %w", err)
	}
	_ = tag // zero rows means already joined or absent; Get distinguishes
	return s.Get(ctx, id)
}

func (s *PostgresStore) AppendTranscript(ctx context.Context, id string, entry TranscriptEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO transcripts (id, session_id, user_id, text, ts)
		 SELECT $1, $2, $3, $4, $5 WHERE EXISTS (SELECT 1 FROM sessions WHERE id=$2)`,
		uuid.NewString(), id, entry.UserID, entry.Text, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CompareAndSwapState(ctx context.Context, id string, from, to State) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET state=$3 WHERE id=$1 AND state=$2`,
		id, string(from), string(to),
	)
	if err != nil {
		return false, fmt.Errorf("swap state: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	// Distinguish a lost race from a missing session.
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
