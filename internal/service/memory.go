package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrMemoryContentEmpty   = errors.New("content is required")
	ErrMemoryContentTooLong = errors.New("content exceeds maximum length")
	ErrInvalidMemoryType    = errors.New("invalid memory type")
	ErrSensitiveContent     = errors.New("content matches a sensitive-data pattern")
	ErrMemoryNotFound       = errors.New("memory not found")
)

// MemoryService owns the memory write path: explicit adds, accepted
// extraction candidates, edits and retrieval bookkeeping.
type MemoryService struct {
	memoryStore     domain.MemoryStore
	embeddingClient domain.EmbeddingClient
	decay           *DecayService
	ranker          *HybridRanker
	logger          *zap.Logger
}

func NewMemoryService(
	memoryStore domain.MemoryStore,
	embeddingClient domain.EmbeddingClient,
	decay *DecayService,
	ranker *HybridRanker,
	logger *zap.Logger,
) *MemoryService {
	return &MemoryService{
		memoryStore:     memoryStore,
		embeddingClient: embeddingClient,
		decay:           decay,
		ranker:          ranker,
		logger:          logger,
	}
}

// Add validates and persists a single memory. Sensitive content is
// rejected outright; bounded fields are clamped before the write.
func (s *MemoryService) Add(ctx context.Context, m *domain.Memory) error {
	m.Content = strings.TrimSpace(m.Content)
	if m.Content == "" {
		return ErrMemoryContentEmpty
	}
	if len(m.Content) > domain.MaxContentLength {
		return ErrMemoryContentTooLong
	}
	if !domain.ValidMemoryType(string(m.Type)) {
		return ErrInvalidMemoryType
	}
	if domain.ContainsSensitiveContent(m.Content, m.Context) {
		return ErrSensitiveContent
	}

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.Importance == 0 {
		m.Importance = 0.5
	}
	if m.Confidence == 0 {
		m.Confidence = 0.5
	}
	m.Normalize()

	s.attachEmbedding(ctx, m)
	return s.memoryStore.Create(ctx, m)
}

// attachEmbedding is best-effort: a missing vector degrades retrieval to
// keyword-only, it never blocks the write.
func (s *MemoryService) attachEmbedding(ctx context.Context, m *domain.Memory) {
	if s.embeddingClient == nil || len(m.Embedding) > 0 {
		return
	}
	vec, err := s.embeddingClient.Embed(ctx, m.SearchText())
	if err != nil {
		s.logger.Warn("embedding failed, storing without vector",
			zap.String("memory_id", m.ID.String()), zap.Error(err))
		return
	}
	m.Embedding = vec
	m.EmbeddingModel = s.embeddingClient.Model()
}

// AcceptExtracted persists validated extraction candidates. Dedup runs
// again against the *latest* store contents, not the snapshot the
// extraction cycle started from.
func (s *MemoryService) AcceptExtracted(ctx context.Context, candidates []domain.ExtractedMemory, source domain.MemorySource) ([]domain.Memory, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	existing, err := s.memoryStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		seen[normalizeContent(m.Content)] = true
	}

	created := make([]domain.Memory, 0, len(candidates))
	for _, c := range candidates {
		if seen[normalizeContent(c.Content)] {
			continue
		}
		mem := domain.Memory{
			ID:         uuid.New(),
			Type:       c.Type,
			Content:    c.Content,
			Context:    c.Context,
			Source:     source,
			Importance: c.Importance,
			Confidence: c.Confidence,
			CreatedAt:  time.Now(),
		}
		mem.Normalize()
		s.attachEmbedding(ctx, &mem)

		if err := s.memoryStore.Create(ctx, &mem); err != nil {
			// One bad item must not take down the batch.
			s.logger.Warn("failed to persist extracted memory", zap.Error(err))
			continue
		}
		seen[normalizeContent(mem.Content)] = true
		created = append(created, mem)
	}
	return created, nil
}

// Search ranks the stored memories against the query and records access
// bookkeeping on everything returned.
func (s *MemoryService) Search(ctx context.Context, query string, opts RankOptions) ([]RankedMemory, error) {
	memories, err := s.memoryStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	// Best-effort query embedding; keyword-only on failure.
	var queryEmbedding []float32
	if s.embeddingClient != nil {
		if vec, err := s.embeddingClient.Embed(ctx, query); err == nil {
			queryEmbedding = vec
		} else {
			s.logger.Debug("query embedding failed, keyword-only ranking", zap.Error(err))
		}
	}

	results := s.ranker.Rank(query, queryEmbedding, memories, opts)

	now := time.Now()
	for _, r := range results {
		if err := s.memoryStore.RecordAccess(ctx, r.Memory.ID, now); err != nil {
			s.logger.Warn("failed to record memory access",
				zap.String("memory_id", r.Memory.ID.String()), zap.Error(err))
		}
	}
	return results, nil
}

// Verify marks a memory as user-confirmed, boosting its effective
// importance from then on.
func (s *MemoryService) Verify(ctx context.Context, id uuid.UUID) (*domain.Memory, error) {
	m, err := s.memoryStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.UserVerified = true
	m.Normalize()
	if err := s.memoryStore.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MemoryService) GetAll(ctx context.Context) ([]domain.Memory, error) {
	return s.memoryStore.GetAll(ctx)
}

func (s *MemoryService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.memoryStore.Delete(ctx, id)
}
