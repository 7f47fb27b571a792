// Package postgres implements the repository interfaces in internal/ports
// against a real Postgres database (the voice orchestration core's system
// of record for agents, sessions, messages, user facts and extraction
// tasks).
//
// Grounded on _examples/intelligencedev-manifold/internal/auth/store.go for
// the *pgxpool.Pool-held-by-struct, QueryRow/Scan, InitSchema-with-raw-DDL
// shape (the pack's only repository-style pgx user), narrowed through a
// small DB interface the way
// _examples/intelligencedev-manifold/database.go narrows pgx.Conn to a
// querier/connector - here so pgxmock can stand in for *pgxpool.Pool in
// tests.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of *pgxpool.Pool every repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool opens a connection pool against databaseURL.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// InitSchema creates every table this module persists to, if missing. It is
// safe to call on every process start, the same IF NOT EXISTS idiom as
// auth.Store.InitSchema in the pack.
func InitSchema(ctx context.Context, db DB) error {
	_, err := db.Exec(ctx, `
CREATE TABLE IF NOT EXISTS agents (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  llm_provider_kind TEXT NOT NULL DEFAULT '',
  llm_model TEXT NOT NULL DEFAULT '',
  llm_temperature DOUBLE PRECISION NOT NULL DEFAULT 0.7,
  llm_provider_ref TEXT NOT NULL DEFAULT '',
  tts_voice TEXT NOT NULL DEFAULT '',
  tts_exaggeration DOUBLE PRECISION NOT NULL DEFAULT 0,
  tts_cfg_weight DOUBLE PRECISION NOT NULL DEFAULT 0,
  tts_temperature DOUBLE PRECISION NOT NULL DEFAULT 0,
  tts_language TEXT NOT NULL DEFAULT 'en',
  system_prompt TEXT NOT NULL DEFAULT '',
  memory_scope TEXT NOT NULL DEFAULT 'global',
  plugins JSONB NOT NULL DEFAULT '{}'::jsonb,
  is_default BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  agent_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
  type TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  active BOOLEAN NOT NULL DEFAULT true,
  started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  ended_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);

CREATE TABLE IF NOT EXISTS messages (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  role TEXT NOT NULL,
  content TEXT NOT NULL,
  timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
  llm_latency_ms BIGINT,
  tts_latency_ms BIGINT
);
CREATE INDEX IF NOT EXISTS idx_messages_session_timestamp ON messages(session_id, timestamp DESC);

CREATE TABLE IF NOT EXISTS user_facts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  agent_id TEXT,
  fact_key TEXT NOT NULL DEFAULT '',
  fact_value TEXT NOT NULL DEFAULT '',
  fact_text TEXT NOT NULL,
  vector_id TEXT NOT NULL UNIQUE,
  importance DOUBLE PRECISION NOT NULL DEFAULT 0.5,
  memory_bank TEXT NOT NULL DEFAULT 'General',
  embedding_provider TEXT NOT NULL DEFAULT '',
  embedding_model TEXT NOT NULL DEFAULT '',
  validity_start TIMESTAMPTZ NOT NULL DEFAULT now(),
  validity_end TIMESTAMPTZ,
  is_protected BOOLEAN NOT NULL DEFAULT false,
  is_summarized BOOLEAN NOT NULL DEFAULT false,
  summarized_from TEXT[] NOT NULL DEFAULT '{}',
  last_accessed_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_user_facts_scope ON user_facts(user_id, agent_id);
CREATE INDEX IF NOT EXISTS idx_user_facts_validity ON user_facts(validity_end);

CREATE TABLE IF NOT EXISTS extraction_tasks (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  agent_id TEXT NOT NULL,
  user_message TEXT NOT NULL,
  ai_response TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  attempts INT NOT NULL DEFAULT 0,
  error TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_extraction_tasks_status ON extraction_tasks(status, created_at);

CREATE TABLE IF NOT EXISTS llm_providers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  base_url TEXT NOT NULL,
  api_key TEXT NOT NULL DEFAULT '',
  provider_type TEXT NOT NULL DEFAULT '',
  models TEXT[] NOT NULL DEFAULT '{}',
  default_model TEXT NOT NULL DEFAULT '',
  is_active BOOLEAN NOT NULL DEFAULT true
);
`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
