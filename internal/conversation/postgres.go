package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps one row per user in the chats table.
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
		`CREATE TABLE IF NOT EXISTS chats (
			"UID" TEXT PRIMARY KEY,
			chat_history JSONB NOT NULL,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, owner string) (Conversation, error) {
	var (
		raw     []byte
		version int64
		updated time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT chat_history, version, updated_at FROM chats WHERE "UID"=$1`,
		owner,
	).Scan(&raw, &version, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return New(owner), nil
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("load conversation: %w", err)
	}

	var history []Message
	if err := json.Unmarshal(raw, &history); err != nil {
		return Conversation{}, fmt.Errorf("decode chat history: %w", err)
	}
	if len(history) == 0 {
		history = New(owner).History
	}
	return Conversation{Owner: owner, History: history, UpdatedAt: updated.UTC(), Version: version}, nil
}

func (s *PostgresStore) Save(ctx context.Context, conv Conversation) (Conversation, error) {
	if len(conv.History) == 0 {
		return Conversation{}, ErrEmpty
	}
	raw, err := json.Marshal(conv.History)
	if err != nil {
		return Conversation{}, fmt.Errorf("encode chat history: %w", err)
	}

	var (
		version int64
		updated time.Time
	)
	if conv.Version == 0 {
		err = s.pool.QueryRow(ctx,
			`INSERT INTO chats ("UID", chat_history, version)
			 VALUES ($1, $2, 1)
			 ON CONFLICT ("UID") DO NOTHING
			 RETURNING version, updated_at`,
			conv.Owner, raw,
		).Scan(&version, &updated)
	} else {
		err = s.pool.QueryRow(ctx,
			`UPDATE chats SET chat_history=$2, version=version+1, updated_at=now()
			 WHERE "UID"=$1 AND version=$3
			 RETURNING version, updated_at`,
			conv.Owner, raw, conv.Version,
		).Scan(&version, &updated)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrConflict
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("save conversation: %w", err)
	}

	conv.History = cloneHistory(conv.History)
	conv.Version = version
	conv.UpdatedAt = updated.UTC()
	return conv, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
