package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/llm"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// Conversations shorter than this don't get summarized.
	minSummaryMessages = 6

	summaryTimeout = 30 * time.Second
)

// SummarizerService creates derived conversation summaries: generated
// text, key topics, linked memory ids, optional embedding.
type SummarizerService struct {
	summaryStore    domain.SummaryStore
	memoryStore     domain.MemoryStore
	llmClient       domain.LLMClient
	embeddingClient domain.EmbeddingClient
	ranker          *HybridRanker
	logger          *zap.Logger
}

func NewSummarizerService(
	summaryStore domain.SummaryStore,
	memoryStore domain.MemoryStore,
	llmClient domain.LLMClient,
	embeddingClient domain.EmbeddingClient,
	ranker *HybridRanker,
	logger *zap.Logger,
) *SummarizerService {
	return &SummarizerService{
		summaryStore:    summaryStore,
		memoryStore:     memoryStore,
		llmClient:       llmClient,
		embeddingClient: embeddingClient,
		ranker:          ranker,
		logger:          logger,
	}
}

type summaryPayload struct {
	Summary   string   `json:"summary"`
	KeyTopics []string `json:"key_topics"`
}

// Summarize creates a summary for the conversation once it passes the
// message threshold and has none yet. Returns nil when skipped; skipping
// is not an error.
func (s *SummarizerService) Summarize(ctx context.Context, conversationID string, messages []domain.Message) (*domain.ConversationSummary, error) {
	if len(messages) < minSummaryMessages {
		return nil, nil
	}

	if existing, err := s.summaryStore.GetByConversationID(ctx, conversationID); err == nil && existing != nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, summaryTimeout)
	defer cancel()

	var sb strings.Builder
	for _, msg := range messages {
		sb.WriteString(msg.Role)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}

	raw, err := s.llmClient.Complete(ctx, llm.SummarySystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	var payload summaryPayload
	if objText, ok := llm.FirstJSONObject(raw); ok {
		if err := json.Unmarshal([]byte(objText), &payload); err != nil {
			s.logger.Warn("malformed summary payload", zap.Error(err))
		}
	}
	if payload.Summary == "" {
		// Degrade to the raw text rather than failing the cycle.
		payload.Summary = strings.TrimSpace(raw)
	}
	if payload.Summary == "" {
		return nil, nil
	}

	summary := &domain.ConversationSummary{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Summary:        payload.Summary,
		KeyTopics:      payload.KeyTopics,
		MessageCount:   len(messages),
		CreatedAt:      time.Now(),
	}
	if len(messages) > 0 {
		summary.StartedAt = messages[0].Timestamp
		summary.EndedAt = messages[len(messages)-1].Timestamp
	}

	summary.MemoryIDs = s.linkedMemories(ctx, payload.Summary)

	if s.embeddingClient != nil {
		if vec, err := s.embeddingClient.Embed(ctx, payload.Summary); err == nil {
			summary.Embedding = vec
		} else {
			s.logger.Debug("summary embedding failed", zap.Error(err))
		}
	}

	if err := s.summaryStore.Create(ctx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// linkedMemories picks the stored memories most relevant to the summary
// text via keyword-only ranking.
func (s *SummarizerService) linkedMemories(ctx context.Context, summaryText string) []uuid.UUID {
	memories, err := s.memoryStore.GetAll(ctx)
	if err != nil {
		s.logger.Warn("failed to load memories for summary linking", zap.Error(err))
		return nil
	}

	ranked := s.ranker.Rank(summaryText, nil, memories, RankOptions{Limit: 5})
	ids := make([]uuid.UUID, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.Memory.ID)
	}
	return ids
}
