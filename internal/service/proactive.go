package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// Key for the persisted controller state in the kv store.
	proactiveStateKey = "proactive_state"

	minFollowUpImportance = 0.3
	contextMatchThreshold = 0.5

	eventImminentWindow    = 24 * time.Hour
	staleProjectThreshold  = 7 * 24 * time.Hour
	unmentionedPersonAfter = 14 * 24 * time.Hour

	recallBaseProbability = 0.05
	recallHourlyStep      = 0.02
	recallMaxProbability  = 0.3
	minRecallImportance   = 0.5
	minRecallConfidence   = 0.6
)

// Follow-up rule priorities. Highest rule per memory wins; candidates
// rank by priority × effective importance.
const (
	priorityEventDue       = 1.0
	priorityStaleProject   = 0.8
	prioritySkillMilestone = 0.6
	priorityUnmentioned    = 0.5
)

var skillMilestoneDays = []int{7, 30, 90}

var ErrActionNotFound = errors.New("proactive action not found in history")

// ProactiveConfig tunes the engagement controller.
type ProactiveConfig struct {
	Enabled           bool
	Cooldown          time.Duration
	SessionCap        int
	MemoryCooldown    time.Duration
	IgnoredCooldown   time.Duration
	DismissedCooldown time.Duration
}

func DefaultProactiveConfig() ProactiveConfig {
	return ProactiveConfig{
		Enabled:           true,
		Cooldown:          10 * time.Minute,
		SessionCap:        10,
		MemoryCooldown:    24 * time.Hour,
		IgnoredCooldown:   24 * time.Hour,
		DismissedCooldown: 48 * time.Hour,
	}
}

// ProactiveService decides when and what the companion says unprompted.
// It owns its state explicitly: constructed, loaded through the injected
// kv store, mutated only under its own lock. At most one action per
// eligible moment.
type ProactiveService struct {
	memoryStore domain.MemoryStore
	kv          domain.KVStore
	decay       *DecayService
	linker      *LinkerService
	logger      *zap.Logger
	cfg         ProactiveConfig
	rng         *rand.Rand

	mu     sync.Mutex
	state  *domain.ProactiveState
	loaded bool
}

func NewProactiveService(
	memoryStore domain.MemoryStore,
	kv domain.KVStore,
	decay *DecayService,
	linker *LinkerService,
	cfg ProactiveConfig,
	rng *rand.Rand,
	logger *zap.Logger,
) *ProactiveService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &ProactiveService{
		memoryStore: memoryStore,
		kv:          kv,
		decay:       decay,
		linker:      linker,
		logger:      logger,
		cfg:         cfg,
		rng:         rng,
		state:       domain.NewProactiveState(),
	}
}

// Load reads persisted state. A missing or corrupt blob falls back to a
// fresh default; corruption never propagates to callers.
func (s *ProactiveService) Load(ctx context.Context) error {
	blob, err := s.kv.Get(ctx, proactiveStateKey)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := domain.NewProactiveState()
	if len(blob) > 0 {
		if err := json.Unmarshal(blob, state); err != nil {
			s.logger.Warn("corrupt proactive state, starting fresh", zap.Error(err))
			state = domain.NewProactiveState()
		}
		if state.MemoryCooldowns == nil {
			state.MemoryCooldowns = make(map[uuid.UUID]time.Time)
		}
	}
	s.state = state
	s.loaded = true
	return nil
}

func (s *ProactiveService) persistLocked(ctx context.Context) error {
	blob, err := json.Marshal(s.state)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, proactiveStateKey, blob)
}

// StartSession resets the per-session counters. The previous session's
// end marker is what welcome-back logic reads.
func (s *ProactiveService) StartSession(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SessionStartedAt = now
	s.state.SessionActionCount = 0
	return s.persistLocked(ctx)
}

// EndSession stamps the session boundary used for absence computation.
func (s *ProactiveService) EndSession(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastSessionEndedAt = now
	return s.persistLocked(ctx)
}

// CanBeProactive is the global eligibility gate. When it fails, no
// candidate generation runs at all.
func (s *ProactiveService) CanBeProactive(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canBeProactiveLocked(now)
}

func (s *ProactiveService) canBeProactiveLocked(now time.Time) bool {
	if !s.cfg.Enabled || !s.loaded {
		return false
	}
	if !s.state.LastProactiveAt.IsZero() && now.Sub(s.state.LastProactiveAt) < s.cfg.Cooldown {
		return false
	}
	return s.state.SessionActionCount < s.cfg.SessionCap
}

// Decide evaluates one eligible moment and returns at most one action,
// or nil when suppressed. Gate check, candidate selection and recording
// happen under one lock so re-entry before recording completes cannot
// double-emit.
func (s *ProactiveService) Decide(ctx context.Context, moment domain.Moment, page *domain.PageContext, now time.Time) (*domain.ProactiveAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.canBeProactiveLocked(now) {
		return nil, nil
	}

	memories, err := s.memoryStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	// First non-nil candidate wins, in strict priority order.
	action := s.welcomeBackCandidate(moment, memories, now)
	if action == nil {
		action = s.followUpCandidate(memories, now)
	}
	if action == nil && page != nil {
		action = s.contextMatchCandidate(*page, memories, now)
	}
	if action == nil {
		action = s.randomRecallCandidate(memories, now)
	}
	if action == nil {
		return nil, nil
	}

	action.ID = uuid.New()
	action.IssuedAt = now
	s.state.Record(action, s.cfg.MemoryCooldown)
	if err := s.persistLocked(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("proactive action emitted",
		zap.String("kind", string(action.Kind)),
		zap.String("action_id", action.ID.String()))
	return action, nil
}

// welcomeBackCandidate greets after an absence of at least one day,
// scaled by how long the user was away.
func (s *ProactiveService) welcomeBackCandidate(moment domain.Moment, memories []domain.Memory, now time.Time) *domain.ProactiveAction {
	if moment != domain.MomentSessionStart {
		return nil
	}
	if s.state.LastSessionEndedAt.IsZero() {
		return nil
	}
	absence := now.Sub(s.state.LastSessionEndedAt)
	if absence < 24*time.Hour {
		return nil
	}

	var followUp string
	if top := s.topFollowUp(memories, now); top != nil {
		followUp = top.question
	}

	days := int(absence.Hours() / 24)
	var message string
	switch {
	case days < 3:
		message = "Hey, good to see you again!"
	case days < 7:
		message = "Hey, it's been a few days!"
		if followUp != "" {
			message += " " + followUp
		}
	case days < 30:
		message = fmt.Sprintf("Welcome back! It's been %d days.", days)
		if followUp != "" {
			message += " " + followUp
		}
	default:
		message = "It's been a while! I was starting to wonder about you."
		if followUp != "" {
			message += " " + followUp
		}
	}

	return &domain.ProactiveAction{
		Kind:    domain.ActionWelcomeBack,
		Message: message,
		Reason:  fmt.Sprintf("absent for %d days", days),
	}
}

// followUpTarget is a memory flagged by a time-based rule.
type followUpTarget struct {
	memory   *domain.Memory
	priority float64
	score    float64
	question string
	reason   string
}

func (s *ProactiveService) followUpCandidate(memories []domain.Memory, now time.Time) *domain.ProactiveAction {
	top := s.topFollowUp(memories, now)
	if top == nil {
		return nil
	}
	memID := top.memory.ID
	return &domain.ProactiveAction{
		Kind:     domain.ActionFollowUp,
		Message:  top.question,
		MemoryID: &memID,
		Reason:   top.reason,
	}
}

func (s *ProactiveService) topFollowUp(memories []domain.Memory, now time.Time) *followUpTarget {
	var targets []followUpTarget
	for i := range memories {
		mem := &memories[i]
		if s.state.OnCooldown(mem.ID, now) {
			continue
		}
		effective := s.decay.EffectiveImportance(mem, now)
		if effective < minFollowUpImportance {
			continue
		}
		// Highest-priority rule for this memory wins.
		if target := evaluateFollowUpRules(mem, now); target != nil {
			target.score = target.priority * effective
			targets = append(targets, *target)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].score > targets[j].score })
	return &targets[0]
}

// evaluateFollowUpRules applies the type-specific rules in priority
// order and returns the first (highest) that fires.
func evaluateFollowUpRules(mem *domain.Memory, now time.Time) *followUpTarget {
	if mem.Type == domain.MemoryTypeEvent {
		if due, ok := eventDueTime(mem); ok {
			until := due.Sub(now)
			if until <= eventImminentWindow {
				if until < 0 {
					return &followUpTarget{
						memory:   mem,
						priority: priorityEventDue,
						question: fmt.Sprintf("How did it go? You mentioned: %q", mem.Content),
						reason:   "event date has passed",
					}
				}
				return &followUpTarget{
					memory:   mem,
					priority: priorityEventDue,
					question: fmt.Sprintf("Coming up soon: %q — all set for it?", mem.Content),
					reason:   "event within 24h",
				}
			}
		}
	}

	if mem.Type == domain.MemoryTypeProject {
		last := mem.CreatedAt
		if mem.LastAccessedAt != nil {
			last = *mem.LastAccessedAt
		}
		if now.Sub(last) > staleProjectThreshold {
			return &followUpTarget{
				memory:   mem,
				priority: priorityStaleProject,
				question: fmt.Sprintf("How's this going: %q?", mem.Content),
				reason:   "project untouched for over a week",
			}
		}
	}

	if mem.Type == domain.MemoryTypeSkill {
		ageDays := int(now.Sub(mem.CreatedAt).Hours() / 24)
		for _, milestone := range skillMilestoneDays {
			if ageDays == milestone {
				return &followUpTarget{
					memory:   mem,
					priority: prioritySkillMilestone,
					question: fmt.Sprintf("It's been %d days since you told me: %q. Made progress?", milestone, mem.Content),
					reason:   fmt.Sprintf("%d-day skill milestone", milestone),
				}
			}
		}
	}

	if mem.Type == domain.MemoryTypePerson {
		last := mem.CreatedAt
		if mem.LastAccessedAt != nil {
			last = *mem.LastAccessedAt
		}
		if now.Sub(last) > unmentionedPersonAfter {
			return &followUpTarget{
				memory:   mem,
				priority: priorityUnmentioned,
				question: fmt.Sprintf("You haven't mentioned this in a while: %q. How are they doing?", mem.Content),
				reason:   "person unmentioned for over two weeks",
			}
		}
	}

	return nil
}

// eventDueTime resolves an event memory's date: explicit expiry first,
// then natural-language patterns relative to creation.
func eventDueTime(mem *domain.Memory) (time.Time, bool) {
	if mem.ExpiresAt != nil {
		return *mem.ExpiresAt, true
	}
	return ParseRelativeDate(mem.Content, mem.CreatedAt)
}

func (s *ProactiveService) contextMatchCandidate(page domain.PageContext, memories []domain.Memory, now time.Time) *domain.ProactiveAction {
	eligible := make([]domain.Memory, 0, len(memories))
	for i := range memories {
		if !s.state.OnCooldown(memories[i].ID, now) {
			eligible = append(eligible, memories[i])
		}
	}

	matches := s.linker.MatchContext(page, eligible)
	if len(matches) == 0 || matches[0].Relevance <= contextMatchThreshold {
		return nil
	}

	top := matches[0]
	memID := top.Memory.ID
	return &domain.ProactiveAction{
		Kind:     domain.ActionContextMatch,
		Message:  fmt.Sprintf("This reminds me of something you told me: %q", top.Memory.Content),
		MemoryID: &memID,
		Reason:   top.Reason,
	}
}

// randomRecallCandidate occasionally resurfaces an old memory. The draw
// probability grows with quiet time; selection is a cumulative-weight
// draw over importance, confidence, recency and engagement.
func (s *ProactiveService) randomRecallCandidate(memories []domain.Memory, now time.Time) *domain.ProactiveAction {
	hoursSince := 24.0
	if !s.state.LastProactiveAt.IsZero() {
		hoursSince = now.Sub(s.state.LastProactiveAt).Hours()
	}
	probability := math.Min(recallBaseProbability+hoursSince*recallHourlyStep, recallMaxProbability)
	if s.rng.Float64() >= probability {
		return nil
	}

	type weighted struct {
		memory *domain.Memory
		weight float64
	}
	var pool []weighted
	var total float64
	for i := range memories {
		mem := &memories[i]
		if mem.Type == domain.MemoryTypeIdentity {
			continue
		}
		if mem.Importance < minRecallImportance || mem.Confidence < minRecallConfidence {
			continue
		}
		if s.state.OnCooldown(mem.ID, now) {
			continue
		}

		ageDays := now.Sub(mem.CreatedAt).Hours() / 24
		recency := math.Exp(-ageDays / 60)
		engagement := (domain.ClampFeedback(mem.FeedbackScore) + 1) / 2

		weight := mem.Importance*0.4 + mem.Confidence*0.2 + recency*0.2 + engagement*0.2
		pool = append(pool, weighted{memory: mem, weight: weight})
		total += weight
	}
	if len(pool) == 0 || total == 0 {
		return nil
	}

	draw := s.rng.Float64() * total
	var chosen *domain.Memory
	for _, w := range pool {
		draw -= w.weight
		if draw <= 0 {
			chosen = w.memory
			break
		}
	}
	if chosen == nil {
		chosen = pool[len(pool)-1].memory
	}

	memID := chosen.ID
	return &domain.ProactiveAction{
		Kind:     domain.ActionRandomRecall,
		Message:  fmt.Sprintf("Random thought — I remembered this about you: %q. Still true?", chosen.Content),
		MemoryID: &memID,
		Reason:   "weighted random recall",
	}
}

// RecordFeedback applies the user's reaction to a past action: marks the
// history entry, adjusts the memory's cooldown, and feeds the decay
// model's interaction counters.
func (s *ProactiveService) RecordFeedback(ctx context.Context, actionID uuid.UUID, outcome domain.EngagementOutcome) error {
	s.mu.Lock()

	var record *domain.ActionRecord
	for i := range s.state.History {
		if s.state.History[i].ActionID == actionID {
			record = &s.state.History[i]
			break
		}
	}
	if record == nil {
		s.mu.Unlock()
		return ErrActionNotFound
	}

	now := time.Now()
	record.Engaged = &outcome

	var memID *uuid.UUID
	if record.MemoryID != nil {
		memID = record.MemoryID
		switch outcome {
		case domain.OutcomeDismissed:
			s.state.MemoryCooldowns[*memID] = now.Add(s.cfg.DismissedCooldown)
		case domain.OutcomeIgnored:
			s.state.MemoryCooldowns[*memID] = now.Add(s.cfg.IgnoredCooldown)
		case domain.OutcomeEngaged:
			// No extra penalty beyond the emission cooldown.
		}
	}

	err := s.persistLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if memID != nil {
		if ierr := s.decay.RecordInteraction(ctx, *memID, outcome == domain.OutcomeEngaged); ierr != nil {
			s.logger.Warn("failed to record decay interaction",
				zap.String("memory_id", memID.String()), zap.Error(ierr))
		}
	}
	return nil
}
