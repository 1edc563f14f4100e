package domain

import (
	"math"
	"testing"
	"time"
)

func TestHalfLifeDays(t *testing.T) {
	tests := []struct {
		memType MemoryType
		want    float64
	}{
		{MemoryTypeIdentity, math.Inf(1)},
		{MemoryTypePreference, 90},
		{MemoryTypeSkill, 60},
		{MemoryTypePerson, 60},
		{MemoryTypeProject, 30},
		{MemoryTypeOpinion, 14},
		{MemoryTypeEvent, 7},
	}

	for _, tt := range tests {
		if got := tt.memType.HalfLifeDays(); got != tt.want {
			t.Errorf("%s half-life = %v, want %v", tt.memType, got, tt.want)
		}
	}
}

func TestValidMemoryType(t *testing.T) {
	for _, valid := range []string{"identity", "preference", "skill", "project", "person", "event", "opinion"} {
		if !ValidMemoryType(valid) {
			t.Errorf("%q should be valid", valid)
		}
	}
	for _, invalid := range []string{"", "fact", "belief", "IDENTITY"} {
		if ValidMemoryType(invalid) {
			t.Errorf("%q should be invalid", invalid)
		}
	}
}

func TestNormalize(t *testing.T) {
	m := Memory{
		Importance:           1.7,
		Confidence:           -0.2,
		FeedbackScore:        -3,
		AdaptiveDecayRate:    9,
		PositiveInteractions: -1,
	}
	m.Normalize()

	if m.Importance != 1 {
		t.Errorf("importance = %v, want 1", m.Importance)
	}
	if m.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", m.Confidence)
	}
	if m.FeedbackScore != -1 {
		t.Errorf("feedback = %v, want -1", m.FeedbackScore)
	}
	if m.AdaptiveDecayRate != 2 {
		t.Errorf("decay rate = %v, want 2", m.AdaptiveDecayRate)
	}
	if m.PositiveInteractions != 0 {
		t.Errorf("positive interactions = %v, want 0", m.PositiveInteractions)
	}

	// An unset rate stays unset so the computed rate is used instead.
	unset := Memory{}
	unset.Normalize()
	if unset.AdaptiveDecayRate != 0 {
		t.Errorf("unset decay rate = %v, want 0", unset.AdaptiveDecayRate)
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	if (&Memory{}).Expired(now) {
		t.Error("memory without expiry never expires")
	}
	if !(&Memory{ExpiresAt: &past}).Expired(now) {
		t.Error("past expiry should report expired")
	}
	if (&Memory{ExpiresAt: &future}).Expired(now) {
		t.Error("future expiry should not report expired")
	}
}

func TestContainsSensitiveContent(t *testing.T) {
	sensitive := []string{
		"my password is hunter2",
		"the API key for prod",
		"api_key=sk-123",
		"keep this secret",
		"auth token expires soon",
		"my SSN is on file",
		"social security number",
		"card 4111 1111 1111 1111",
		"private key in the repo",
	}
	for _, text := range sensitive {
		if !ContainsSensitiveContent(text) {
			t.Errorf("%q should be flagged", text)
		}
	}

	benign := []string{
		"likes hiking on weekends",
		"has a pet tokay gecko", // substring must not match the token pattern
		"passes the bakery daily",
		"",
	}
	for _, text := range benign {
		if ContainsSensitiveContent(text) {
			t.Errorf("%q should not be flagged", text)
		}
	}

	if !ContainsSensitiveContent("benign", "but password here") {
		t.Error("any argument matching should flag the set")
	}
}
