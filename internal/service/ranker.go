package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
)

const (
	defaultRankLimit      = 20
	defaultMinScore       = 0.3
	defaultSemanticWeight = 0.6
	defaultKeywordWeight  = 0.4

	// Blend between rarity-weighted overlap and plain Jaccard inside the
	// keyword score.
	idfBlend     = 0.7
	jaccardBlend = 0.3
)

// RankOptions tunes one ranking call. Zero values take the defaults.
type RankOptions struct {
	Limit          int
	MinScore       float64
	SemanticWeight float64
	KeywordWeight  float64
}

func (o *RankOptions) normalize() {
	if o.Limit <= 0 {
		o.Limit = defaultRankLimit
	}
	if o.MinScore == 0 {
		o.MinScore = defaultMinScore
	}
	if o.SemanticWeight == 0 && o.KeywordWeight == 0 {
		o.SemanticWeight = defaultSemanticWeight
		o.KeywordWeight = defaultKeywordWeight
	}
}

// RankedMemory pairs a memory with its fused retrieval score.
type RankedMemory struct {
	Memory        *domain.Memory `json:"memory"`
	Score         float64        `json:"score"`
	SemanticScore float64        `json:"semantic_score"`
	KeywordScore  float64        `json:"keyword_score"`
}

// HybridRanker fuses semantic similarity with keyword overlap. Ranking
// is a pure function of its inputs; the corpus keyword index is rebuilt
// from the candidate set on every call.
type HybridRanker struct{}

func NewHybridRanker() *HybridRanker { return &HybridRanker{} }

// Rank scores memories against the query, highest first, truncated to
// opts.Limit and filtered to opts.MinScore. Missing embeddings degrade
// to keyword-only scoring; retrieval never hard-fails for their absence.
func (r *HybridRanker) Rank(queryText string, queryEmbedding []float32, memories []domain.Memory, opts RankOptions) []RankedMemory {
	opts.normalize()

	queryTokens := Keywords(queryText)
	index := buildKeywordIndex(memories)

	results := make([]RankedMemory, 0, len(memories))
	for i := range memories {
		mem := &memories[i]
		memTokens := Keywords(mem.SearchText())

		keywordScore := index.overlapScore(queryTokens, memTokens)

		semanticScore := 0.0
		hasSemantic := len(queryEmbedding) > 0 && len(mem.Embedding) > 0
		if hasSemantic {
			semanticScore = CosineSimilarity(queryEmbedding, mem.Embedding)
		}

		var score float64
		if hasSemantic {
			score = semanticScore*opts.SemanticWeight + keywordScore*opts.KeywordWeight
		} else {
			score = keywordScore
		}

		if score < opts.MinScore {
			continue
		}
		results = append(results, RankedMemory{
			Memory:        mem,
			Score:         score,
			SemanticScore: semanticScore,
			KeywordScore:  keywordScore,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Memory.AccessCount != b.Memory.AccessCount {
			return a.Memory.AccessCount > b.Memory.AccessCount
		}
		return lastAccessed(a.Memory).After(lastAccessed(b.Memory))
	})

	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}

func lastAccessed(m *domain.Memory) time.Time {
	if m.LastAccessedAt != nil {
		return *m.LastAccessedAt
	}
	return m.CreatedAt
}

// CosineSimilarity is dot(a,b) / (|a|*|b|), 0 when either norm is zero
// or the dimensions disagree.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true,
	"has": true, "have": true, "this": true, "that": true, "with": true,
	"they": true, "from": true, "been": true, "will": true, "would": true,
	"there": true, "their": true, "what": true, "about": true, "which": true,
	"when": true, "them": true, "some": true, "into": true, "just": true,
	"like": true, "your": true, "very": true, "really": true,
}

// Keywords tokenizes text into normalized keyword tokens: lowercase,
// punctuation-stripped, stopwords and short tokens removed.
func Keywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})

	seen := make(map[string]bool, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		tokens = append(tokens, f)
	}
	return tokens
}

// keywordIndex holds document frequencies for the current candidate set.
type keywordIndex struct {
	docFreq map[string]int
	docs    int
}

func buildKeywordIndex(memories []domain.Memory) *keywordIndex {
	idx := &keywordIndex{docFreq: make(map[string]int), docs: len(memories)}
	for i := range memories {
		for _, token := range Keywords(memories[i].SearchText()) {
			idx.docFreq[token]++
		}
	}
	return idx
}

// rarity is an inverse-document-frequency-style weight: terms shared by
// fewer candidates count more.
func (idx *keywordIndex) rarity(token string) float64 {
	df := idx.docFreq[token]
	return math.Log(1 + float64(idx.docs+1)/float64(df+1))
}

// overlapScore combines rarity-weighted query coverage with a Jaccard
// measure over the two token sets.
func (idx *keywordIndex) overlapScore(queryTokens, memTokens []string) float64 {
	if len(queryTokens) == 0 || len(memTokens) == 0 {
		return 0
	}

	memSet := make(map[string]bool, len(memTokens))
	for _, t := range memTokens {
		memSet[t] = true
	}

	var sharedWeight, totalWeight float64
	shared := 0
	for _, t := range queryTokens {
		w := idx.rarity(t)
		totalWeight += w
		if memSet[t] {
			sharedWeight += w
			shared++
		}
	}
	if shared == 0 {
		return 0
	}

	weighted := sharedWeight / totalWeight
	union := len(queryTokens) + len(memTokens) - shared
	jaccard := float64(shared) / float64(union)

	return idfBlend*weighted + jaccardBlend*jaccard
}
