package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConversationSummary is a derived record of a finished (or sufficiently
// long) conversation. It is rebuildable and disposable.
type ConversationSummary struct {
	ID             uuid.UUID   `json:"id"`
	ConversationID string      `json:"conversation_id"`
	Summary        string      `json:"summary"`
	KeyTopics      []string    `json:"key_topics"`
	MemoryIDs      []uuid.UUID `json:"memory_ids"`
	MessageCount   int         `json:"message_count"`
	StartedAt      time.Time   `json:"started_at"`
	EndedAt        time.Time   `json:"ended_at"`
	CreatedAt      time.Time   `json:"created_at"`
	Embedding      []float32   `json:"-"`
}
