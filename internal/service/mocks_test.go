package service

import (
	"context"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/store"
	"github.com/google/uuid"
)

type mockMemoryStore struct {
	memories map[uuid.UUID]*domain.Memory
	order    []uuid.UUID

	updateErr error
	updates   int
}

func newMockMemoryStore() *mockMemoryStore {
	return &mockMemoryStore{memories: make(map[uuid.UUID]*domain.Memory)}
}

func (m *mockMemoryStore) Create(ctx context.Context, mem *domain.Memory) error {
	if mem.ID == uuid.Nil {
		mem.ID = uuid.New()
	}
	cp := *mem
	m.memories[mem.ID] = &cp
	m.order = append(m.order, mem.ID)
	return nil
}

func (m *mockMemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Memory, error) {
	mem, ok := m.memories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *mem
	return &cp, nil
}

func (m *mockMemoryStore) GetAll(ctx context.Context) ([]domain.Memory, error) {
	results := make([]domain.Memory, 0, len(m.order))
	for _, id := range m.order {
		if mem, ok := m.memories[id]; ok {
			results = append(results, *mem)
		}
	}
	return results, nil
}

func (m *mockMemoryStore) Update(ctx context.Context, mem *domain.Memory) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.memories[mem.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *mem
	m.memories[mem.ID] = &cp
	m.updates++
	return nil
}

func (m *mockMemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.memories[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.memories, id)
	return nil
}

func (m *mockMemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	for id, mem := range m.memories {
		if mem.Expired(now) {
			delete(m.memories, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockMemoryStore) Count(ctx context.Context) (int, error) {
	return len(m.memories), nil
}

func (m *mockMemoryStore) CountByType(ctx context.Context) (map[domain.MemoryType]int, error) {
	counts := make(map[domain.MemoryType]int)
	for _, mem := range m.memories {
		counts[mem.Type]++
	}
	return counts, nil
}

func (m *mockMemoryStore) RecordAccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	mem, ok := m.memories[id]
	if !ok {
		return store.ErrNotFound
	}
	mem.AccessCount++
	mem.UsageCount++
	mem.LastAccessedAt = &at
	return nil
}

type mockKVStore struct {
	data   map[string][]byte
	setErr error
	sets   int
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: make(map[string][]byte)}
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	return m.data[key], nil
}

func (m *mockKVStore) Set(ctx context.Context, key string, blob []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = blob
	m.sets++
	return nil
}

type mockSummaryStore struct {
	summaries map[string]*domain.ConversationSummary
}

func newMockSummaryStore() *mockSummaryStore {
	return &mockSummaryStore{summaries: make(map[string]*domain.ConversationSummary)}
}

func (m *mockSummaryStore) Create(ctx context.Context, s *domain.ConversationSummary) error {
	if _, ok := m.summaries[s.ConversationID]; ok {
		return nil // mirrors ON CONFLICT DO NOTHING
	}
	cp := *s
	m.summaries[s.ConversationID] = &cp
	return nil
}

func (m *mockSummaryStore) GetByConversationID(ctx context.Context, conversationID string) (*domain.ConversationSummary, error) {
	s, ok := m.summaries[conversationID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSummaryStore) GetAll(ctx context.Context) ([]domain.ConversationSummary, error) {
	results := make([]domain.ConversationSummary, 0, len(m.summaries))
	for _, s := range m.summaries {
		results = append(results, *s)
	}
	return results, nil
}

func (m *mockSummaryStore) Delete(ctx context.Context, id uuid.UUID) error {
	for cid, s := range m.summaries {
		if s.ID == id {
			delete(m.summaries, cid)
			return nil
		}
	}
	return store.ErrNotFound
}

// newTestMemory builds a memory with sane defaults for tests.
func newTestMemory(memType domain.MemoryType, content string, daysOld float64) domain.Memory {
	created := time.Now().Add(-time.Duration(daysOld*24) * time.Hour)
	return domain.Memory{
		ID:         uuid.New(),
		Type:       memType,
		Content:    content,
		Importance: 0.7,
		Confidence: 0.8,
		CreatedAt:  created,
	}
}
