package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Embedding dimension for text-embedding-3-small.
const embeddingDim = 1536

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memories (
		id UUID PRIMARY KEY,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		context TEXT NOT NULL DEFAULT '',
		conversation_id TEXT NOT NULL DEFAULT '',
		message_id TEXT NOT NULL DEFAULT '',
		source_url TEXT NOT NULL DEFAULT '',
		extracted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		importance DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		last_accessed_at TIMESTAMPTZ,
		access_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ,
		usage_count INTEGER NOT NULL DEFAULT 0,
		last_used_at TIMESTAMPTZ,
		feedback_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		user_verified BOOLEAN NOT NULL DEFAULT FALSE,
		embedding vector(%d),
		embedding_model TEXT NOT NULL DEFAULT '',
		adaptive_decay_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		positive_interactions INTEGER NOT NULL DEFAULT 0,
		negative_interactions INTEGER NOT NULL DEFAULT 0
	)`, embeddingDim),

	`CREATE INDEX IF NOT EXISTS idx_memories_type ON memories (type)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_expires_at ON memories (expires_at) WHERE expires_at IS NOT NULL`,

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS conversation_summaries (
		id UUID PRIMARY KEY,
		conversation_id TEXT NOT NULL UNIQUE,
		summary TEXT NOT NULL,
		key_topics TEXT[] NOT NULL DEFAULT '{}',
		memory_ids UUID[] NOT NULL DEFAULT '{}',
		message_count INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMPTZ,
		ended_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		embedding vector(%d)
	)`, embeddingDim),

	`CREATE TABLE IF NOT EXISTS kv_state (
		key TEXT PRIMARY KEY,
		blob BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
