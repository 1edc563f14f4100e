package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestProactiveState_Record(t *testing.T) {
	state := NewProactiveState()
	now := time.Now()
	memID := uuid.New()

	action := &ProactiveAction{
		ID:       uuid.New(),
		Kind:     ActionFollowUp,
		MemoryID: &memID,
		IssuedAt: now,
	}
	state.Record(action, 24*time.Hour)

	if !state.LastProactiveAt.Equal(now) {
		t.Error("LastProactiveAt should be stamped from the action")
	}
	if state.SessionActionCount != 1 {
		t.Errorf("session count = %d, want 1", state.SessionActionCount)
	}
	if !state.OnCooldown(memID, now.Add(23*time.Hour)) {
		t.Error("memory should be on cooldown within 24h")
	}
	if state.OnCooldown(memID, now.Add(25*time.Hour)) {
		t.Error("memory cooldown should lapse after 24h")
	}
	if len(state.History) != 1 || state.History[0].ActionID != action.ID {
		t.Error("history should record the action")
	}
}

func TestProactiveState_HistoryBounded(t *testing.T) {
	state := NewProactiveState()
	now := time.Now()

	var last uuid.UUID
	for i := 0; i < MaxActionHistory+5; i++ {
		action := &ProactiveAction{ID: uuid.New(), Kind: ActionRandomRecall, IssuedAt: now}
		last = action.ID
		state.Record(action, time.Hour)
	}

	if len(state.History) != MaxActionHistory {
		t.Errorf("history length = %d, want %d", len(state.History), MaxActionHistory)
	}
	if state.History[len(state.History)-1].ActionID != last {
		t.Error("trimming should drop the oldest entries, not the newest")
	}
}

func TestOnCooldown_UnknownMemory(t *testing.T) {
	state := NewProactiveState()
	if state.OnCooldown(uuid.New(), time.Now()) {
		t.Error("unknown memory is never on cooldown")
	}
}
