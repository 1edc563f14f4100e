package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestProactive(t *testing.T, ms domain.MemoryStore, kv domain.KVStore, cfg ProactiveConfig, seed int64) *ProactiveService {
	t.Helper()
	decay := NewDecayService(ms, DefaultDecayConfig(), zap.NewNop())
	svc := NewProactiveService(ms, kv, decay, NewLinkerService(), cfg, rand.New(rand.NewSource(seed)), zap.NewNop())
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return svc
}

func staleProjectMemory(t *testing.T, ms *mockMemoryStore) domain.Memory {
	t.Helper()
	mem := newTestMemory(domain.MemoryTypeProject, "rebuilding the backyard shed", 10)
	if err := ms.Create(context.Background(), &mem); err != nil {
		t.Fatalf("create: %v", err)
	}
	return mem
}

func TestDecide_RequiresLoad(t *testing.T) {
	ms := newMockMemoryStore()
	staleProjectMemory(t, ms)

	decay := NewDecayService(ms, DefaultDecayConfig(), zap.NewNop())
	svc := NewProactiveService(ms, newMockKVStore(), decay, NewLinkerService(),
		DefaultProactiveConfig(), rand.New(rand.NewSource(1)), zap.NewNop())

	action, err := svc.Decide(context.Background(), domain.MomentIdleTick, nil, time.Now())
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if action != nil {
		t.Error("unloaded controller must stay silent")
	}
}

func TestDecide_DisabledStaysSilent(t *testing.T) {
	ms := newMockMemoryStore()
	staleProjectMemory(t, ms)

	cfg := DefaultProactiveConfig()
	cfg.Enabled = false
	svc := newTestProactive(t, ms, newMockKVStore(), cfg, 1)

	action, err := svc.Decide(context.Background(), domain.MomentIdleTick, nil, time.Now())
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if action != nil {
		t.Error("disabled controller must stay silent")
	}
}

func TestDecide_FollowUpForStaleProject(t *testing.T) {
	ms := newMockMemoryStore()
	mem := staleProjectMemory(t, ms)
	svc := newTestProactive(t, ms, newMockKVStore(), DefaultProactiveConfig(), 1)

	action, err := svc.Decide(context.Background(), domain.MomentIdleTick, nil, time.Now())
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if action == nil {
		t.Fatal("expected a follow-up action")
	}
	if action.Kind != domain.ActionFollowUp {
		t.Errorf("kind = %s, want follow_up", action.Kind)
	}
	if action.MemoryID == nil || *action.MemoryID != mem.ID {
		t.Error("follow-up should reference the stale project memory")
	}
}

func TestDecide_CooldownSuppressesSecondAction(t *testing.T) {
	ms := newMockMemoryStore()
	staleProjectMemory(t, ms)
	svc := newTestProactive(t, ms, newMockKVStore(), DefaultProactiveConfig(), 1)

	now := time.Now()
	first, err := svc.Decide(context.Background(), domain.MomentIdleTick, nil, now)
	if err != nil || first == nil {
		t.Fatalf("first decide: action=%v err=%v", first, err)
	}

	second, err := svc.Decide(context.Background(), domain.MomentIdleTick, nil, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second decide: %v", err)
	}
	if second != nil {
		t.Error("second action within the cooldown must be suppressed")
	}
}

func TestDecide_SessionCap(t *testing.T) {
	ms := newMockMemoryStore()
	staleProjectMemory(t, ms)

	cfg := DefaultProactiveConfig()
	cfg.Cooldown = 0
	cfg.SessionCap = 1
	svc := newTestProactive(t, ms, newMockKVStore(), cfg, 1)

	now := time.Now()
	first, err := svc.Decide(context.Background(), domain.MomentIdleTick, nil, now)
	if err != nil || first == nil {
		t.Fatalf("first decide: action=%v err=%v", first, err)
	}

	// Cooldown is zero, so only the session cap can block this one. The
	// emitted memory is on its own cooldown, but the cap check comes first.
	second, err := svc.Decide(context.Background(), domain.MomentIdleTick, nil, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("second decide: %v", err)
	}
	if second != nil {
		t.Error("session cap must suppress further actions")
	}
}

func TestDecide_WelcomeBackAfterAbsence(t *testing.T) {
	ms := newMockMemoryStore()
	svc := newTestProactive(t, ms, newMockKVStore(), DefaultProactiveConfig(), 1)

	now := time.Now()
	if err := svc.EndSession(context.Background(), now.Add(-5*24*time.Hour)); err != nil {
		t.Fatalf("end session: %v", err)
	}

	action, err := svc.Decide(context.Background(), domain.MomentSessionStart, nil, now)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if action == nil {
		t.Fatal("expected a welcome-back action")
	}
	if action.Kind != domain.ActionWelcomeBack {
		t.Errorf("kind = %s, want welcome_back", action.Kind)
	}
}

func TestDecide_NoWelcomeBackWithinADay(t *testing.T) {
	ms := newMockMemoryStore()
	svc := newTestProactive(t, ms, newMockKVStore(), DefaultProactiveConfig(), 1)

	now := time.Now()
	if err := svc.EndSession(context.Background(), now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("end session: %v", err)
	}

	action, err := svc.Decide(context.Background(), domain.MomentSessionStart, nil, now)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if action != nil && action.Kind == domain.ActionWelcomeBack {
		t.Error("short absence must not trigger a welcome back")
	}
}

func TestDecide_EventOutranksStaleProject(t *testing.T) {
	ms := newMockMemoryStore()
	staleProjectMemory(t, ms)

	event := newTestMemory(domain.MemoryTypeEvent, "job interview at the agency", 0)
	due := time.Now().Add(12 * time.Hour)
	event.ExpiresAt = &due
	if err := ms.Create(context.Background(), &event); err != nil {
		t.Fatalf("create: %v", err)
	}

	svc := newTestProactive(t, ms, newMockKVStore(), DefaultProactiveConfig(), 1)

	action, err := svc.Decide(context.Background(), domain.MomentIdleTick, nil, time.Now())
	if err != nil || action == nil {
		t.Fatalf("decide: action=%v err=%v", action, err)
	}
	if action.MemoryID == nil || *action.MemoryID != event.ID {
		t.Errorf("imminent event should outrank the stale project, got %q", action.Message)
	}
}

func TestDecide_ContextMatch(t *testing.T) {
	ms := newMockMemoryStore()
	mem := newTestMemory(domain.MemoryTypePreference, "orders coffee beans from bluebottle.com", 1)
	if err := ms.Create(context.Background(), &mem); err != nil {
		t.Fatalf("create: %v", err)
	}

	svc := newTestProactive(t, ms, newMockKVStore(), DefaultProactiveConfig(), 1)

	page := &domain.PageContext{Domain: "bluebottle.com", Title: "Blue Bottle Coffee"}
	action, err := svc.Decide(context.Background(), domain.MomentContextChange, page, time.Now())
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if action == nil {
		t.Fatal("expected a context-match action")
	}
	if action.Kind != domain.ActionContextMatch {
		t.Errorf("kind = %s, want context_match", action.Kind)
	}
	if action.MemoryID == nil || *action.MemoryID != mem.ID {
		t.Error("context match should reference the matching memory")
	}
}

func TestDecide_RandomRecallEligibility(t *testing.T) {
	ms := newMockMemoryStore()

	identity := newTestMemory(domain.MemoryTypeIdentity, "name is Alex", 30)
	lowImportance := newTestMemory(domain.MemoryTypePreference, "mild curiosity about chess", 30)
	lowImportance.Importance = 0.3
	eligible := newTestMemory(domain.MemoryTypePreference, "dreams of sailing the coast", 30)
	eligible.Importance = 0.9
	eligible.Confidence = 0.9

	for _, mem := range []domain.Memory{identity, lowImportance, eligible} {
		m := mem
		if err := ms.Create(context.Background(), &m); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	// The draw is probabilistic, so sweep seeds; each seed is a fresh
	// deterministic controller. Some seed in the range must emit, and
	// every emission must point at the only eligible memory.
	emitted := false
	for seed := int64(0); seed < 100; seed++ {
		svc := newTestProactive(t, ms, newMockKVStore(), DefaultProactiveConfig(), seed)
		action, err := svc.Decide(context.Background(), domain.MomentIdleTick, nil, time.Now())
		if err != nil {
			t.Fatalf("decide: %v", err)
		}
		if action == nil {
			continue
		}
		emitted = true
		if action.Kind != domain.ActionRandomRecall {
			t.Fatalf("kind = %s, want random_recall", action.Kind)
		}
		if action.MemoryID == nil || *action.MemoryID != eligible.ID {
			t.Fatalf("recall chose an ineligible memory: %v", action.MemoryID)
		}
	}
	if !emitted {
		t.Error("no seed in range produced a random recall")
	}
}

func TestRecordFeedback(t *testing.T) {
	ms := newMockMemoryStore()
	mem := staleProjectMemory(t, ms)
	kv := newMockKVStore()
	svc := newTestProactive(t, ms, kv, DefaultProactiveConfig(), 1)

	action, err := svc.Decide(context.Background(), domain.MomentIdleTick, nil, time.Now())
	if err != nil || action == nil {
		t.Fatalf("decide: action=%v err=%v", action, err)
	}

	t.Run("unknown action", func(t *testing.T) {
		err := svc.RecordFeedback(context.Background(), uuid.New(), domain.OutcomeEngaged)
		if !errors.Is(err, ErrActionNotFound) {
			t.Errorf("expected ErrActionNotFound, got %v", err)
		}
	})

	t.Run("engaged feeds decay counters", func(t *testing.T) {
		if err := svc.RecordFeedback(context.Background(), action.ID, domain.OutcomeEngaged); err != nil {
			t.Fatalf("feedback: %v", err)
		}
		stored, err := ms.GetByID(context.Background(), mem.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if stored.PositiveInteractions != 1 {
			t.Errorf("positive interactions = %d, want 1", stored.PositiveInteractions)
		}
	})

	t.Run("dismissed extends the memory cooldown", func(t *testing.T) {
		if err := svc.RecordFeedback(context.Background(), action.ID, domain.OutcomeDismissed); err != nil {
			t.Fatalf("feedback: %v", err)
		}

		var state domain.ProactiveState
		if err := json.Unmarshal(kv.data[proactiveStateKey], &state); err != nil {
			t.Fatalf("decode persisted state: %v", err)
		}
		until, ok := state.MemoryCooldowns[mem.ID]
		if !ok {
			t.Fatal("expected a cooldown entry for the dismissed memory")
		}
		if remaining := time.Until(until); remaining < 47*time.Hour {
			t.Errorf("dismissed cooldown = %v, want about 48h", remaining)
		}
		if len(state.History) == 0 || state.History[0].Engaged == nil {
			t.Error("history entry should record the outcome")
		}
	})
}

func TestLoad_CorruptStateFallsBack(t *testing.T) {
	ms := newMockMemoryStore()
	staleProjectMemory(t, ms)

	kv := newMockKVStore()
	kv.data[proactiveStateKey] = []byte("{not json")

	svc := newTestProactive(t, ms, kv, DefaultProactiveConfig(), 1)

	action, err := svc.Decide(context.Background(), domain.MomentIdleTick, nil, time.Now())
	if err != nil {
		t.Fatalf("decide after corrupt load: %v", err)
	}
	if action == nil {
		t.Error("controller should work from a fresh state after corrupt blob")
	}
}

func TestDecide_PersistsState(t *testing.T) {
	ms := newMockMemoryStore()
	staleProjectMemory(t, ms)
	kv := newMockKVStore()

	svc := newTestProactive(t, ms, kv, DefaultProactiveConfig(), 1)
	action, err := svc.Decide(context.Background(), domain.MomentIdleTick, nil, time.Now())
	if err != nil || action == nil {
		t.Fatalf("decide: action=%v err=%v", action, err)
	}

	// A second controller constructed over the same kv store must honor
	// the persisted cooldown.
	svc2 := newTestProactive(t, ms, kv, DefaultProactiveConfig(), 1)
	second, err := svc2.Decide(context.Background(), domain.MomentIdleTick, nil, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if second != nil {
		t.Error("restored state should keep the global cooldown in force")
	}
}
