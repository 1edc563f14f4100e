package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionKind tags which generator produced a proactive action.
type ActionKind string

const (
	ActionWelcomeBack  ActionKind = "welcome_back"
	ActionFollowUp     ActionKind = "follow_up"
	ActionContextMatch ActionKind = "context_match"
	ActionRandomRecall ActionKind = "random_recall"
)

// Moment is the trigger that made the controller evaluate.
type Moment string

const (
	MomentSessionStart  Moment = "session_start"
	MomentIdleTick      Moment = "idle_tick"
	MomentContextChange Moment = "context_change"
)

// EngagementOutcome is the user's reaction to a proactive action.
type EngagementOutcome string

const (
	OutcomeEngaged   EngagementOutcome = "engaged"
	OutcomeDismissed EngagementOutcome = "dismissed"
	OutcomeIgnored   EngagementOutcome = "ignored"
)

func ValidEngagementOutcome(o string) bool {
	switch EngagementOutcome(o) {
	case OutcomeEngaged, OutcomeDismissed, OutcomeIgnored:
		return true
	}
	return false
}

// ProactiveAction is the single unsolicited message the controller may
// emit for an eligible moment.
type ProactiveAction struct {
	ID       uuid.UUID  `json:"id"`
	Kind     ActionKind `json:"kind"`
	Message  string     `json:"message"`
	MemoryID *uuid.UUID `json:"memory_id,omitempty"`
	Reason   string     `json:"reason,omitempty"`
	IssuedAt time.Time  `json:"issued_at"`
}

// ActionRecord is one entry of the bounded proactive history.
// Engaged stays nil until feedback arrives.
type ActionRecord struct {
	ActionID uuid.UUID          `json:"action_id"`
	Kind     ActionKind         `json:"kind"`
	MemoryID *uuid.UUID         `json:"memory_id,omitempty"`
	IssuedAt time.Time          `json:"issued_at"`
	Engaged  *EngagementOutcome `json:"engaged,omitempty"`
}

// MaxActionHistory bounds the persisted proactive history.
const MaxActionHistory = 20

// ProactiveState is the process-wide persisted controller state.
type ProactiveState struct {
	LastProactiveAt    time.Time               `json:"last_proactive_at"`
	SessionActionCount int                     `json:"session_action_count"`
	SessionStartedAt   time.Time               `json:"session_started_at"`
	LastSessionEndedAt time.Time               `json:"last_session_ended_at"`
	MemoryCooldowns    map[uuid.UUID]time.Time `json:"memory_cooldowns"`
	History            []ActionRecord          `json:"history"`
}

// NewProactiveState returns an empty, type-correct state. Used as the
// fallback when the persisted blob is missing or corrupt.
func NewProactiveState() *ProactiveState {
	return &ProactiveState{
		MemoryCooldowns: make(map[uuid.UUID]time.Time),
	}
}

// OnCooldown reports whether the memory may not be used for proactive
// actions yet.
func (s *ProactiveState) OnCooldown(memID uuid.UUID, now time.Time) bool {
	until, ok := s.MemoryCooldowns[memID]
	return ok && now.Before(until)
}

// Record appends a history entry, trimming to MaxActionHistory, and
// stamps the global markers for the emitted action.
func (s *ProactiveState) Record(action *ProactiveAction, memoryCooldown time.Duration) {
	s.LastProactiveAt = action.IssuedAt
	s.SessionActionCount++
	if action.MemoryID != nil {
		s.MemoryCooldowns[*action.MemoryID] = action.IssuedAt.Add(memoryCooldown)
	}
	s.History = append(s.History, ActionRecord{
		ActionID: action.ID,
		Kind:     action.Kind,
		MemoryID: action.MemoryID,
		IssuedAt: action.IssuedAt,
	})
	if len(s.History) > MaxActionHistory {
		s.History = s.History[len(s.History)-MaxActionHistory:]
	}
}
