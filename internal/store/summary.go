package store

import (
	"context"
	"errors"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

const summaryColumns = `id, conversation_id, summary, key_topics, memory_ids, message_count,
	started_at, ended_at, created_at, embedding`

type SummaryStore struct {
	db *pgxpool.Pool
}

func NewSummaryStore(db *pgxpool.Pool) *SummaryStore {
	return &SummaryStore{db: db}
}

func (s *SummaryStore) Create(ctx context.Context, summary *domain.ConversationSummary) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO conversation_summaries (id, conversation_id, summary, key_topics, memory_ids, message_count, started_at, ended_at, created_at, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (conversation_id) DO NOTHING`,
		summary.ID, summary.ConversationID, summary.Summary, summary.KeyTopics, summary.MemoryIDs,
		summary.MessageCount, summary.StartedAt, summary.EndedAt, summary.CreatedAt, vectorOrNil(summary.Embedding),
	)
	return err
}

func scanSummary(row pgx.Row) (*domain.ConversationSummary, error) {
	summary := &domain.ConversationSummary{}
	var embedding *pgvector.Vector
	err := row.Scan(
		&summary.ID, &summary.ConversationID, &summary.Summary, &summary.KeyTopics, &summary.MemoryIDs,
		&summary.MessageCount, &summary.StartedAt, &summary.EndedAt, &summary.CreatedAt, &embedding,
	)
	if err != nil {
		return nil, err
	}
	if embedding != nil {
		summary.Embedding = embedding.Slice()
	}
	return summary, nil
}

func (s *SummaryStore) GetByConversationID(ctx context.Context, conversationID string) (*domain.ConversationSummary, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+summaryColumns+` FROM conversation_summaries WHERE conversation_id = $1`,
		conversationID,
	)
	summary, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return summary, nil
}

func (s *SummaryStore) GetAll(ctx context.Context) ([]domain.ConversationSummary, error) {
	rows, err := s.db.Query(ctx, `SELECT `+summaryColumns+` FROM conversation_summaries ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.ConversationSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, rows.Err()
}

func (s *SummaryStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM conversation_summaries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
