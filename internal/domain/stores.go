package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the authoritative persistence surface for memories.
type MemoryStore interface {
	Create(ctx context.Context, m *Memory) error
	GetByID(ctx context.Context, id uuid.UUID) (*Memory, error)
	GetAll(ctx context.Context) ([]Memory, error)
	Update(ctx context.Context, m *Memory) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Count(ctx context.Context) (int, error)
	CountByType(ctx context.Context) (map[MemoryType]int, error)
	RecordAccess(ctx context.Context, id uuid.UUID, at time.Time) error
}

// SummaryStore persists derived conversation summaries.
type SummaryStore interface {
	Create(ctx context.Context, s *ConversationSummary) error
	GetByConversationID(ctx context.Context, conversationID string) (*ConversationSummary, error)
	GetAll(ctx context.Context) ([]ConversationSummary, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// KVStore is the opaque blob store for process-wide state. Get returns
// (nil, nil) for a missing key; callers decode defensively and fall back
// to typed defaults on corrupt blobs.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, blob []byte) error
}

// LLMClient is the consumed text-completion surface.
type LLMClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// EmbeddingClient is the consumed embedding surface.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}
