package service

import (
	"testing"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/google/uuid"
)

func TestBuildEntityLinks(t *testing.T) {
	linker := NewLinkerService()
	now := time.Now()

	memA := newTestMemory(domain.MemoryTypePerson, "My friend Sarah Chen works at the hospital", 1)
	memB := newTestMemory(domain.MemoryTypePerson, "Went hiking with Sarah Chen last weekend", 1)
	memC := newTestMemory(domain.MemoryTypeProject, "Building the Garden Tracker app", 1)
	memD := newTestMemory(domain.MemoryTypePreference, "Loves Star Wars movies", 1)

	links := linker.BuildEntityLinks([]domain.Memory{memA, memB, memC, memD}, now)

	var sarah *domain.EntityLink
	for i := range links {
		if links[i].Name == "sarah chen" {
			sarah = &links[i]
		}
	}
	if sarah == nil {
		t.Fatal("expected an entity link for Sarah Chen")
	}
	if sarah.Type != domain.EntityTypePerson {
		t.Errorf("type = %s, want person", sarah.Type)
	}
	if len(sarah.MemoryIDs) != 2 {
		t.Errorf("Sarah Chen links %d memories, want 2", len(sarah.MemoryIDs))
	}

	// Preference memories are not an entity source.
	for _, link := range links {
		if link.Name == "star wars" {
			t.Error("entities must not be derived from preference memories")
		}
	}
}

func TestBuildEntityLinks_SkipsSentenceOpener(t *testing.T) {
	linker := NewLinkerService()

	mem := newTestMemory(domain.MemoryTypePerson, "Yesterday my brother Tom visited", 1)
	links := linker.BuildEntityLinks([]domain.Memory{mem}, time.Now())

	for _, link := range links {
		if link.Name == "yesterday" {
			t.Error("lone capitalized sentence opener must not become an entity")
		}
	}

	found := false
	for _, link := range links {
		if link.Name == "tom" {
			found = true
		}
	}
	if !found {
		t.Error("expected an entity link for Tom")
	}
}

func TestMatchContext_Strategies(t *testing.T) {
	linker := NewLinkerService()

	domainMem := newTestMemory(domain.MemoryTypePreference, "orders coffee beans from bluebottle.com monthly", 1)
	skillMem := newTestMemory(domain.MemoryTypeSkill, "learning rust programming language", 1)
	keywordMem := newTestMemory(domain.MemoryTypePreference, "researching mechanical keyboards with tactile switches", 1)
	unrelated := newTestMemory(domain.MemoryTypeOpinion, "thinks mornings are overrated", 1)

	memories := []domain.Memory{domainMem, skillMem, keywordMem, unrelated}

	t.Run("domain match outranks the rest", func(t *testing.T) {
		page := domain.PageContext{Domain: "bluebottle.com", Title: "Blue Bottle Coffee"}
		matches := linker.MatchContext(page, memories)
		if len(matches) == 0 {
			t.Fatal("expected at least one match")
		}
		if matches[0].Memory.ID != domainMem.ID {
			t.Errorf("top match = %q, want domain memory", matches[0].Memory.Content)
		}
		if matches[0].MatchType != domain.MatchTypeDomain {
			t.Errorf("match type = %s, want domain", matches[0].MatchType)
		}
	})

	t.Run("page type affinity", func(t *testing.T) {
		page := domain.PageContext{PageType: "code", Title: "GitHub"}
		matches := linker.MatchContext(page, memories)

		found := false
		for _, m := range matches {
			if m.Memory.ID == skillMem.ID && m.MatchType == domain.MatchTypePageType {
				found = true
			}
		}
		if !found {
			t.Error("code page should surface skill memories via page-type affinity")
		}
	})

	t.Run("keyword overlap needs two shared keywords", func(t *testing.T) {
		one := domain.PageContext{Keywords: []string{"keyboards", "unrelatedterm"}}
		if ms := linker.MatchContext(one, []domain.Memory{keywordMem}); len(ms) != 0 {
			t.Error("a single shared keyword must not produce a match")
		}

		two := domain.PageContext{Keywords: []string{"mechanical", "keyboards"}}
		ms := linker.MatchContext(two, []domain.Memory{keywordMem})
		if len(ms) != 1 {
			t.Fatalf("got %d matches, want 1", len(ms))
		}
		if ms[0].MatchType != domain.MatchTypeKeyword {
			t.Errorf("match type = %s, want keyword", ms[0].MatchType)
		}
	})

	t.Run("semantic similarity", func(t *testing.T) {
		vecMem := newTestMemory(domain.MemoryTypePreference, "enjoys pottery classes", 1)
		vecMem.Embedding = []float32{1, 0}
		page := domain.PageContext{Title: "Ceramics studio", Embedding: []float32{1, 0}}

		ms := linker.MatchContext(page, []domain.Memory{vecMem})
		if len(ms) != 1 {
			t.Fatalf("got %d matches, want 1", len(ms))
		}
		if ms[0].MatchType != domain.MatchTypeSemantic {
			t.Errorf("match type = %s, want semantic", ms[0].MatchType)
		}
	})

	t.Run("no duplicates when strategies overlap", func(t *testing.T) {
		page := domain.PageContext{
			Domain:   "bluebottle.com",
			Keywords: []string{"coffee", "beans"},
		}
		matches := linker.MatchContext(page, []domain.Memory{domainMem})
		if len(matches) != 1 {
			t.Fatalf("got %d matches for one memory, want 1 merged entry", len(matches))
		}
		// Precedence keeps the domain tag; relevance is the max of the hits.
		if matches[0].MatchType != domain.MatchTypeDomain {
			t.Errorf("merged match type = %s, want domain", matches[0].MatchType)
		}
		if matches[0].Relevance < 0.75 {
			t.Errorf("merged relevance %v below the domain hit", matches[0].Relevance)
		}
	})
}

func TestRelatedConversations(t *testing.T) {
	linker := NewLinkerService()

	sharedID := uuid.New()
	byMemory := domain.ConversationSummary{
		ID:             uuid.New(),
		ConversationID: "conv-1",
		Summary:        "talked about the garden",
		MemoryIDs:      []uuid.UUID{sharedID, uuid.New()},
	}
	byTopic := domain.ConversationSummary{
		ID:             uuid.New(),
		ConversationID: "conv-2",
		Summary:        "long chat about cooking",
		KeyTopics:      []string{"italian cooking"},
	}
	noOverlap := domain.ConversationSummary{
		ID:             uuid.New(),
		ConversationID: "conv-3",
		Summary:        "unrelated",
	}

	results := linker.RelatedConversations(
		[]uuid.UUID{sharedID},
		[]string{"cooking"},
		nil,
		[]domain.ConversationSummary{byMemory, byTopic, noOverlap},
	)

	if len(results) != 2 {
		t.Fatalf("got %d related conversations, want 2", len(results))
	}
	if results[0].Summary.ConversationID != "conv-1" {
		t.Errorf("top result = %s, want the memory-overlap conversation", results[0].Summary.ConversationID)
	}
	if results[0].MatchType != domain.MatchTypeMemory {
		t.Errorf("top match type = %s, want memory", results[0].MatchType)
	}
	if results[1].MatchType != domain.MatchTypeTopic {
		t.Errorf("second match type = %s, want topic", results[1].MatchType)
	}
}
