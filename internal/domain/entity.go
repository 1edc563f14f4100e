package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type EntityType string

const (
	EntityTypePerson     EntityType = "person"
	EntityTypeProject    EntityType = "project"
	EntityTypeSkill      EntityType = "skill"
	EntityTypeTechnology EntityType = "technology"
)

func ValidEntityType(t string) bool {
	switch EntityType(t) {
	case EntityTypePerson, EntityTypeProject, EntityTypeSkill, EntityTypeTechnology:
		return true
	}
	return false
}

// EntityLink is a derived index grouping memories that mention the same
// normalized entity. Never authoritative; rebuildable at any time.
type EntityLink struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Type        EntityType  `json:"type"`
	MemoryIDs   []uuid.UUID `json:"memory_ids"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NormalizeEntityName lowercases and collapses whitespace so the same
// entity spelled differently maps to one link.
func NormalizeEntityName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// MatchType tags which strategy produced a context match.
type MatchType string

const (
	MatchTypeMemory   MatchType = "memory"
	MatchTypeTopic    MatchType = "topic"
	MatchTypeSemantic MatchType = "semantic"
	MatchTypeDomain   MatchType = "domain"
	MatchTypeKeyword  MatchType = "keyword"
	MatchTypePageType MatchType = "page_type"
)

// PageContext describes the page/domain the user is currently on.
type PageContext struct {
	URL      string    `json:"url,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Title    string    `json:"title,omitempty"`
	PageType string    `json:"page_type,omitempty"`
	Keywords []string  `json:"keywords,omitempty"`
	Topics   []string  `json:"topics,omitempty"`
	Embedding []float32 `json:"-"`
}

// RelatedConversation is a past conversation ranked against the current
// context.
type RelatedConversation struct {
	Summary   *ConversationSummary `json:"summary"`
	Relevance float64              `json:"relevance"`
	MatchType MatchType            `json:"match_type"`
	Reason    string               `json:"reason"`
}

// ContextMatch is a stored memory ranked against a page context.
type ContextMatch struct {
	Memory    *Memory   `json:"memory"`
	Relevance float64   `json:"relevance"`
	MatchType MatchType `json:"match_type"`
	Reason    string    `json:"reason"`
}
