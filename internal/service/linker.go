package service

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/google/uuid"
)

const (
	semanticMatchThreshold = 0.5
	minSharedKeywords      = 2
)

// Strategy precedence: lower value wins when several strategies hit the
// same target.
var matchPrecedence = map[domain.MatchType]int{
	domain.MatchTypeMemory:   0,
	domain.MatchTypeDomain:   1,
	domain.MatchTypeSemantic: 2,
	domain.MatchTypeTopic:    3,
	domain.MatchTypePageType: 4,
	domain.MatchTypeKeyword:  5,
}

// pageTypeAffinity maps a page type to the memory types it tends to be
// about. Heuristic table; last resort before raw keyword overlap.
var pageTypeAffinity = map[string][]domain.MemoryType{
	"code":          {domain.MemoryTypeSkill, domain.MemoryTypeProject},
	"documentation": {domain.MemoryTypeSkill, domain.MemoryTypeProject},
	"shopping":      {domain.MemoryTypePreference},
	"social":        {domain.MemoryTypePerson},
	"news":          {domain.MemoryTypeOpinion},
	"video":         {domain.MemoryTypePreference},
	"calendar":      {domain.MemoryTypeEvent},
}

// LinkerService groups memories and past-conversation summaries by
// shared entities, topics, domain, or semantic similarity.
type LinkerService struct{}

func NewLinkerService() *LinkerService { return &LinkerService{} }

// BuildEntityLinks derives the entity index from scratch. Entities are
// capitalized name runs inside person/project/skill memories; the index
// is disposable and rebuilt whenever the memory set changes.
func (s *LinkerService) BuildEntityLinks(memories []domain.Memory, now time.Time) []domain.EntityLink {
	byName := make(map[string]*domain.EntityLink)

	for i := range memories {
		mem := &memories[i]
		entityType, ok := entityTypeFor(mem.Type)
		if !ok {
			continue
		}
		for _, name := range properNameRuns(mem.Content) {
			normalized := domain.NormalizeEntityName(name)
			link, exists := byName[normalized]
			if !exists {
				link = &domain.EntityLink{
					ID:          string(entityType) + ":" + normalized,
					Name:        normalized,
					DisplayName: name,
					Type:        entityType,
					CreatedAt:   now,
				}
				byName[normalized] = link
			}
			link.MemoryIDs = appendUniqueID(link.MemoryIDs, mem.ID)
			link.UpdatedAt = now
		}
	}

	links := make([]domain.EntityLink, 0, len(byName))
	for _, link := range byName {
		links = append(links, *link)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Name < links[j].Name })
	return links
}

func entityTypeFor(t domain.MemoryType) (domain.EntityType, bool) {
	switch t {
	case domain.MemoryTypePerson:
		return domain.EntityTypePerson, true
	case domain.MemoryTypeProject:
		return domain.EntityTypeProject, true
	case domain.MemoryTypeSkill:
		return domain.EntityTypeSkill, true
	}
	return "", false
}

// properNameRuns extracts runs of capitalized words, skipping the
// sentence-leading word unless the run continues past it.
func properNameRuns(text string) []string {
	words := strings.Fields(text)
	var runs []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			runs = append(runs, strings.Join(current, " "))
			current = nil
		}
	}

	for i, w := range words {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if trimmed == "" {
			flush()
			continue
		}
		first := []rune(trimmed)[0]
		if unicode.IsUpper(first) {
			// A lone capitalized sentence opener is not an entity.
			if i == 0 && len(words) > 1 {
				next := strings.TrimFunc(words[1], func(r rune) bool { return !unicode.IsLetter(r) })
				if next == "" || !unicode.IsUpper([]rune(next)[0]) {
					continue
				}
			}
			current = append(current, trimmed)
		} else {
			flush()
		}
	}
	flush()
	return runs
}

func appendUniqueID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// strategyHit is one strategy's verdict on a target.
type strategyHit struct {
	matchType domain.MatchType
	relevance float64
	reason    string
}

// resolveHits merges multiple strategy hits on the same target: winning
// tag by precedence, relevance by maximum, explanations joined.
func resolveHits(hits []strategyHit) (domain.MatchType, float64, string) {
	sort.Slice(hits, func(i, j int) bool {
		return matchPrecedence[hits[i].matchType] < matchPrecedence[hits[j].matchType]
	})
	best := hits[0]
	relevance := best.relevance
	reasons := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.relevance > relevance {
			relevance = h.relevance
		}
		reasons = append(reasons, h.reason)
	}
	return best.matchType, domain.Clamp01(relevance), strings.Join(reasons, "; ")
}

// RelatedConversations ranks past conversation summaries against the
// current memory set and topics. Never emits duplicate entries for the
// same conversation.
func (s *LinkerService) RelatedConversations(currentMemoryIDs []uuid.UUID, topics []string, contextEmbedding []float32, summaries []domain.ConversationSummary) []domain.RelatedConversation {
	idSet := make(map[uuid.UUID]bool, len(currentMemoryIDs))
	for _, id := range currentMemoryIDs {
		idSet[id] = true
	}

	var results []domain.RelatedConversation
	for i := range summaries {
		summary := &summaries[i]
		var hits []strategyHit

		shared := 0
		for _, id := range summary.MemoryIDs {
			if idSet[id] {
				shared++
			}
		}
		if shared > 0 {
			relevance := 0.7 + 0.1*float64(shared)
			hits = append(hits, strategyHit{
				matchType: domain.MatchTypeMemory,
				relevance: relevance,
				reason:    fmt.Sprintf("shares %d memories", shared),
			})
		}

		if len(contextEmbedding) > 0 && len(summary.Embedding) > 0 {
			sim := CosineSimilarity(contextEmbedding, summary.Embedding)
			if sim >= semanticMatchThreshold {
				hits = append(hits, strategyHit{
					matchType: domain.MatchTypeSemantic,
					relevance: sim,
					reason:    fmt.Sprintf("semantically similar (%.2f)", sim),
				})
			}
		}

		if topic, ok := topicOverlap(topics, summary.KeyTopics); ok {
			hits = append(hits, strategyHit{
				matchType: domain.MatchTypeTopic,
				relevance: 0.55,
				reason:    "talked about " + topic,
			})
		}

		if len(hits) == 0 {
			continue
		}
		matchType, relevance, reason := resolveHits(hits)
		results = append(results, domain.RelatedConversation{
			Summary:   summary,
			Relevance: relevance,
			MatchType: matchType,
			Reason:    reason,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Relevance > results[j].Relevance })
	return results
}

// topicOverlap finds a case-insensitive substring overlap between two
// topic lists.
func topicOverlap(a, b []string) (string, bool) {
	for _, ta := range a {
		la := strings.ToLower(ta)
		if la == "" {
			continue
		}
		for _, tb := range b {
			lb := strings.ToLower(tb)
			if lb == "" {
				continue
			}
			if strings.Contains(la, lb) || strings.Contains(lb, la) {
				return tb, true
			}
		}
	}
	return "", false
}

// MatchContext ranks stored memories against a page context using every
// applicable strategy, merged per target by precedence.
func (s *LinkerService) MatchContext(page domain.PageContext, memories []domain.Memory) []domain.ContextMatch {
	pageKeywords := page.Keywords
	if len(pageKeywords) == 0 {
		pageKeywords = Keywords(page.Title)
	}
	affinity := pageTypeAffinity[strings.ToLower(page.PageType)]

	var results []domain.ContextMatch
	for i := range memories {
		mem := &memories[i]
		var hits []strategyHit

		if page.Domain != "" && strings.Contains(strings.ToLower(mem.SearchText()+" "+mem.Source.URL), strings.ToLower(page.Domain)) {
			hits = append(hits, strategyHit{
				matchType: domain.MatchTypeDomain,
				relevance: 0.75,
				reason:    "mentions " + page.Domain,
			})
		}

		if len(page.Embedding) > 0 && len(mem.Embedding) > 0 {
			sim := CosineSimilarity(page.Embedding, mem.Embedding)
			if sim >= semanticMatchThreshold {
				hits = append(hits, strategyHit{
					matchType: domain.MatchTypeSemantic,
					relevance: sim,
					reason:    fmt.Sprintf("semantically similar (%.2f)", sim),
				})
			}
		}

		if topic, ok := topicOverlap(page.Topics, Keywords(mem.SearchText())); ok {
			hits = append(hits, strategyHit{
				matchType: domain.MatchTypeTopic,
				relevance: 0.55,
				reason:    "related to " + topic,
			})
		}

		for _, t := range affinity {
			if mem.Type == t {
				hits = append(hits, strategyHit{
					matchType: domain.MatchTypePageType,
					relevance: 0.45,
					reason:    page.PageType + " page suits " + string(t) + " memories",
				})
				break
			}
		}

		if shared := sharedKeywords(pageKeywords, Keywords(mem.SearchText())); len(shared) >= minSharedKeywords {
			relevance := 0.3 + 0.1*float64(len(shared))
			hits = append(hits, strategyHit{
				matchType: domain.MatchTypeKeyword,
				relevance: relevance,
				reason:    "keywords: " + strings.Join(shared, ", "),
			})
		}

		if len(hits) == 0 {
			continue
		}
		matchType, relevance, reason := resolveHits(hits)
		results = append(results, domain.ContextMatch{
			Memory:    mem,
			Relevance: relevance,
			MatchType: matchType,
			Reason:    reason,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Relevance > results[j].Relevance })
	return results
}

func sharedKeywords(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	var shared []string
	for _, t := range b {
		if set[t] {
			shared = append(shared, t)
			set[t] = false
		}
	}
	return shared
}
