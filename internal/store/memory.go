package store

import (
	"context"
	"errors"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

const memoryColumns = `id, type, content, context, conversation_id, message_id, source_url, extracted_at,
	importance, confidence, last_accessed_at, access_count, created_at, expires_at,
	usage_count, last_used_at, feedback_score, user_verified, embedding_model,
	adaptive_decay_rate, positive_interactions, negative_interactions, embedding`

type MemoryStore struct {
	db *pgxpool.Pool
}

func NewMemoryStore(db *pgxpool.Pool) *MemoryStore {
	return &MemoryStore{db: db}
}

func vectorOrNil(embedding []float32) *pgvector.Vector {
	if len(embedding) == 0 {
		return nil
	}
	v := pgvector.NewVector(embedding)
	return &v
}

func (s *MemoryStore) Create(ctx context.Context, m *domain.Memory) error {
	m.Normalize()
	_, err := s.db.Exec(ctx,
		`INSERT INTO memories (id, type, content, context, conversation_id, message_id, source_url, extracted_at,
			importance, confidence, last_accessed_at, access_count, created_at, expires_at,
			usage_count, last_used_at, feedback_score, user_verified, embedding, embedding_model,
			adaptive_decay_rate, positive_interactions, negative_interactions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		m.ID, m.Type, m.Content, m.Context, m.Source.ConversationID, m.Source.MessageID, m.Source.URL, m.Source.ExtractedAt,
		m.Importance, m.Confidence, m.LastAccessedAt, m.AccessCount, m.CreatedAt, m.ExpiresAt,
		m.UsageCount, m.LastUsedAt, m.FeedbackScore, m.UserVerified, vectorOrNil(m.Embedding), m.EmbeddingModel,
		m.AdaptiveDecayRate, m.PositiveInteractions, m.NegativeInteractions,
	)
	return err
}

func scanMemory(row pgx.Row) (*domain.Memory, error) {
	m := &domain.Memory{}
	var embedding *pgvector.Vector
	err := row.Scan(
		&m.ID, &m.Type, &m.Content, &m.Context, &m.Source.ConversationID, &m.Source.MessageID, &m.Source.URL, &m.Source.ExtractedAt,
		&m.Importance, &m.Confidence, &m.LastAccessedAt, &m.AccessCount, &m.CreatedAt, &m.ExpiresAt,
		&m.UsageCount, &m.LastUsedAt, &m.FeedbackScore, &m.UserVerified, &m.EmbeddingModel,
		&m.AdaptiveDecayRate, &m.PositiveInteractions, &m.NegativeInteractions, &embedding,
	)
	if err != nil {
		return nil, err
	}
	if embedding != nil {
		m.Embedding = embedding.Slice()
	}
	return m, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Memory, error) {
	row := s.db.QueryRow(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = $1`, id)
	m, err := scanMemory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *MemoryStore) GetAll(ctx context.Context) ([]domain.Memory, error) {
	rows, err := s.db.Query(ctx, `SELECT `+memoryColumns+` FROM memories ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []domain.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, *m)
	}
	return memories, rows.Err()
}

func (s *MemoryStore) Update(ctx context.Context, m *domain.Memory) error {
	m.Normalize()
	tag, err := s.db.Exec(ctx,
		`UPDATE memories SET type = $2, content = $3, context = $4,
			importance = $5, confidence = $6, last_accessed_at = $7, access_count = $8, expires_at = $9,
			usage_count = $10, last_used_at = $11, feedback_score = $12, user_verified = $13,
			embedding = $14, embedding_model = $15,
			adaptive_decay_rate = $16, positive_interactions = $17, negative_interactions = $18
		 WHERE id = $1`,
		m.ID, m.Type, m.Content, m.Context,
		m.Importance, m.Confidence, m.LastAccessedAt, m.AccessCount, m.ExpiresAt,
		m.UsageCount, m.LastUsedAt, m.FeedbackScore, m.UserVerified,
		vectorOrNil(m.Embedding), m.EmbeddingModel,
		m.AdaptiveDecayRate, m.PositiveInteractions, m.NegativeInteractions,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM memories WHERE expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM memories`).Scan(&count)
	return count, err
}

func (s *MemoryStore) CountByType(ctx context.Context) (map[domain.MemoryType]int, error) {
	rows, err := s.db.Query(ctx, `SELECT type, COUNT(*) FROM memories GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.MemoryType]int)
	for rows.Next() {
		var t domain.MemoryType
		var count int
		if err := rows.Scan(&t, &count); err != nil {
			return nil, err
		}
		counts[t] = count
	}
	return counts, rows.Err()
}

func (s *MemoryStore) RecordAccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE memories SET last_accessed_at = $2, access_count = access_count + 1, usage_count = usage_count + 1
		 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
