package service

import (
	"context"
	"math"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	baseDecayRate     = 1.0
	positiveRateStep  = 0.15
	negativeRateStep  = 0.10
	usageRateStep     = 0.02
	maxUsageReduction = 0.3
	staleRatePenalty  = 1.5
	feedbackWeight    = 0.2
	verifiedBoost     = 1.5
	rateHysteresis    = 0.05
)

// DecayConfig carries the empirically tuned thresholds. They have no
// documented rationale upstream, so they stay configuration.
type DecayConfig struct {
	StaleThresholdDays float64
	UsageThreshold     int
}

func DefaultDecayConfig() DecayConfig {
	return DecayConfig{StaleThresholdDays: 30, UsageThreshold: 3}
}

// DecayService computes effective importance and records usage feedback.
// Scoring is pure; only RecordInteraction and RefreshDecayRate write.
type DecayService struct {
	memoryStore domain.MemoryStore
	logger      *zap.Logger
	cfg         DecayConfig
}

func NewDecayService(ms domain.MemoryStore, cfg DecayConfig, logger *zap.Logger) *DecayService {
	if cfg.StaleThresholdDays <= 0 {
		cfg.StaleThresholdDays = 30
	}
	if cfg.UsageThreshold <= 0 {
		cfg.UsageThreshold = 3
	}
	return &DecayService{memoryStore: ms, logger: logger, cfg: cfg}
}

// AdaptiveRate derives the per-memory decay multiplier from interaction
// history. Returns the cached rate when one is stored.
func (s *DecayService) AdaptiveRate(m *domain.Memory, now time.Time) float64 {
	if m.AdaptiveDecayRate != 0 {
		return domain.ClampDecayRate(m.AdaptiveDecayRate)
	}
	return s.computeAdaptiveRate(m, now)
}

func (s *DecayService) computeAdaptiveRate(m *domain.Memory, now time.Time) float64 {
	rate := baseDecayRate
	rate -= positiveRateStep * float64(m.PositiveInteractions)
	rate += negativeRateStep * float64(m.NegativeInteractions)

	// Frequently used memories decay slower, capped.
	if m.UsageCount >= s.cfg.UsageThreshold {
		reduction := usageRateStep * float64(m.UsageCount)
		if reduction > maxUsageReduction {
			reduction = maxUsageReduction
		}
		rate -= reduction
	}

	// Stale and rarely used memories decay faster.
	lastUsed := m.CreatedAt
	if m.LastUsedAt != nil {
		lastUsed = *m.LastUsedAt
	}
	unusedDays := now.Sub(lastUsed).Hours() / 24
	if unusedDays > s.cfg.StaleThresholdDays && m.UsageCount < s.cfg.UsageThreshold {
		rate *= staleRatePenalty
	}

	return domain.ClampDecayRate(rate)
}

// EffectiveImportance returns the decayed, feedback-adjusted,
// verification-boosted importance in [0,1].
func (s *DecayService) EffectiveImportance(m *domain.Memory, now time.Time) float64 {
	importance := domain.Clamp01(m.Importance)

	halfLife := m.Type.HalfLifeDays()
	if !math.IsInf(halfLife, 1) {
		ageDays := now.Sub(m.CreatedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		adjustedHalfLife := halfLife / s.AdaptiveRate(m, now)
		importance *= math.Pow(0.5, ageDays/adjustedHalfLife)
	}

	importance += domain.ClampFeedback(m.FeedbackScore) * feedbackWeight
	if m.UserVerified {
		importance *= verifiedBoost
	}

	return domain.Clamp01(importance)
}

// RefreshDecayRate recomputes the cached adaptive rate and persists it
// only when it moved by more than the hysteresis band. Returns whether a
// write happened.
func (s *DecayService) RefreshDecayRate(ctx context.Context, m *domain.Memory, now time.Time) (bool, error) {
	fresh := s.computeAdaptiveRate(m, now)
	cached := m.AdaptiveDecayRate
	if cached != 0 && math.Abs(fresh-cached) <= rateHysteresis {
		return false, nil
	}

	m.AdaptiveDecayRate = fresh
	m.Normalize()
	if err := s.memoryStore.Update(ctx, m); err != nil {
		return false, err
	}
	s.logger.Debug("adaptive decay rate updated",
		zap.String("memory_id", m.ID.String()),
		zap.Float64("old", cached),
		zap.Float64("new", fresh))
	return true, nil
}

// RecordInteraction bumps the monotonic interaction counters and reloads
// the latest memory state before writing, so interleaved async work
// cannot lose an update.
func (s *DecayService) RecordInteraction(ctx context.Context, memoryID uuid.UUID, positive bool) error {
	m, err := s.memoryStore.GetByID(ctx, memoryID)
	if err != nil {
		return err
	}

	now := time.Now()
	if positive {
		m.PositiveInteractions++
		m.LastUsedAt = &now
	} else {
		m.NegativeInteractions++
	}

	// Counter changes may shift the adaptive rate; only persist the new
	// rate when it moved past the hysteresis band.
	fresh := s.computeAdaptiveRate(m, now)
	if m.AdaptiveDecayRate == 0 || math.Abs(fresh-m.AdaptiveDecayRate) > rateHysteresis {
		m.AdaptiveDecayRate = fresh
	}
	m.Normalize()
	return s.memoryStore.Update(ctx, m)
}
