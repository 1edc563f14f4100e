package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type MemoryType string

const (
	MemoryTypeIdentity   MemoryType = "identity"
	MemoryTypePreference MemoryType = "preference"
	MemoryTypeSkill      MemoryType = "skill"
	MemoryTypeProject    MemoryType = "project"
	MemoryTypePerson     MemoryType = "person"
	MemoryTypeEvent      MemoryType = "event"
	MemoryTypeOpinion    MemoryType = "opinion"
)

func ValidMemoryType(t string) bool {
	switch MemoryType(t) {
	case MemoryTypeIdentity, MemoryTypePreference, MemoryTypeSkill,
		MemoryTypeProject, MemoryTypePerson, MemoryTypeEvent, MemoryTypeOpinion:
		return true
	}
	return false
}

// HalfLifeDays returns the type's importance half-life in days.
// Identity memories never decay (infinite half-life).
func (t MemoryType) HalfLifeDays() float64 {
	switch t {
	case MemoryTypeIdentity:
		return math.Inf(1)
	case MemoryTypePreference:
		return 90
	case MemoryTypeSkill, MemoryTypePerson:
		return 60
	case MemoryTypeProject:
		return 30
	case MemoryTypeOpinion:
		return 14
	case MemoryTypeEvent:
		return 7
	default:
		return 30
	}
}

// MaxContentLength is the hard ceiling on memory content size.
const MaxContentLength = 500

// MemorySource identifies where a memory was extracted from.
type MemorySource struct {
	ConversationID string    `json:"conversation_id,omitempty"`
	MessageID      string    `json:"message_id,omitempty"`
	URL            string    `json:"url,omitempty"`
	ExtractedAt    time.Time `json:"extracted_at"`
}

type Memory struct {
	ID      uuid.UUID    `json:"id"`
	Type    MemoryType   `json:"type"`
	Content string       `json:"content"`
	Context string       `json:"context,omitempty"`
	Source  MemorySource `json:"source"`

	Importance float64 `json:"importance"`
	Confidence float64 `json:"confidence"`

	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	AccessCount    int        `json:"access_count"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`

	UsageCount    int        `json:"usage_count"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	FeedbackScore float64    `json:"feedback_score"`
	UserVerified  bool       `json:"user_verified"`

	Embedding      []float32 `json:"-"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`

	AdaptiveDecayRate    float64 `json:"adaptive_decay_rate"`
	PositiveInteractions int     `json:"positive_interactions"`
	NegativeInteractions int     `json:"negative_interactions"`
}

// Normalize clamps every bounded field into its documented interval.
// Called on every write path so an out-of-range value can never be persisted.
func (m *Memory) Normalize() {
	m.Importance = Clamp01(m.Importance)
	m.Confidence = Clamp01(m.Confidence)
	m.FeedbackScore = ClampFeedback(m.FeedbackScore)
	if m.AdaptiveDecayRate != 0 {
		m.AdaptiveDecayRate = ClampDecayRate(m.AdaptiveDecayRate)
	}
	if m.PositiveInteractions < 0 {
		m.PositiveInteractions = 0
	}
	if m.NegativeInteractions < 0 {
		m.NegativeInteractions = 0
	}
}

// Expired reports whether the hard deletion boundary has passed.
// Independent of decay: an expired memory is deleted outright.
func (m *Memory) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}

// SearchText is the text body used for keyword indexing.
func (m *Memory) SearchText() string {
	if m.Context == "" {
		return m.Content
	}
	return m.Content + " " + m.Context
}

// ExtractedMemory is a validated extraction candidate before persistence.
type ExtractedMemory struct {
	Type       MemoryType `json:"type"`
	Content    string     `json:"content"`
	Context    string     `json:"context,omitempty"`
	Importance float64    `json:"importance"`
	Confidence float64    `json:"confidence"`
}

// Message is one turn of the recent conversation window.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func ClampFeedback(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampDecayRate bounds a per-memory adaptive decay rate to [0.5, 2.0].
func ClampDecayRate(v float64) float64 {
	if v < 0.5 {
		return 0.5
	}
	if v > 2.0 {
		return 2.0
	}
	return v
}
