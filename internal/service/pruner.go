package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"go.uber.org/zap"
)

const defaultPruneInterval = 1 * time.Hour

// PrunerConfig bounds total and per-type storage.
type PrunerConfig struct {
	MaxMemories int
	MaxPerType  int
}

func DefaultPrunerConfig() PrunerConfig {
	return PrunerConfig{MaxMemories: 1000, MaxPerType: 200}
}

type PruneResult struct {
	Expired int `json:"expired"`
	Evicted int `json:"evicted"`
}

// PrunerService deletes memories past their hard expiry and enforces the
// storage limits, evicting lowest effective importance first. Hitting a
// limit is expected housekeeping, not an error.
type PrunerService struct {
	memoryStore domain.MemoryStore
	decay       *DecayService
	logger      *zap.Logger
	cfg         PrunerConfig

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewPrunerService(ms domain.MemoryStore, decay *DecayService, cfg PrunerConfig, logger *zap.Logger) *PrunerService {
	if cfg.MaxMemories <= 0 {
		cfg.MaxMemories = 1000
	}
	if cfg.MaxPerType <= 0 {
		cfg.MaxPerType = 200
	}
	return &PrunerService{
		memoryStore: ms,
		decay:       decay,
		logger:      logger,
		cfg:         cfg,
		interval:    defaultPruneInterval,
		stopCh:      make(chan struct{}),
	}
}

func (s *PrunerService) SetInterval(d time.Duration) {
	s.interval = d
}

func (s *PrunerService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("pruner started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if _, err := s.RunPrune(ctx); err != nil {
					s.logger.Error("prune run failed", zap.Error(err))
				}
				cancel()
			case <-s.stopCh:
				s.logger.Info("pruner stopped")
				return
			}
		}
	}()
}

func (s *PrunerService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *PrunerService) RunPrune(ctx context.Context) (*PruneResult, error) {
	result := &PruneResult{}
	now := time.Now()

	expired, err := s.memoryStore.DeleteExpired(ctx, now)
	if err != nil {
		return result, err
	}
	result.Expired = int(expired)

	memories, err := s.memoryStore.GetAll(ctx)
	if err != nil {
		return result, err
	}

	// Sort once, ascending by effective importance: eviction order for
	// both the global and the per-type limit.
	sort.Slice(memories, func(i, j int) bool {
		return s.decay.EffectiveImportance(&memories[i], now) < s.decay.EffectiveImportance(&memories[j], now)
	})

	evicted := make(map[int]bool)

	if overflow := len(memories) - s.cfg.MaxMemories; overflow > 0 {
		for i := 0; i < len(memories) && overflow > 0; i++ {
			if memories[i].UserVerified {
				continue // verified memories survive global eviction
			}
			evicted[i] = true
			overflow--
		}
	}

	typeCounts := make(map[domain.MemoryType]int)
	for i := range memories {
		if !evicted[i] {
			typeCounts[memories[i].Type]++
		}
	}
	for t, count := range typeCounts {
		overflow := count - s.cfg.MaxPerType
		for i := 0; i < len(memories) && overflow > 0; i++ {
			if evicted[i] || memories[i].Type != t || memories[i].UserVerified {
				continue
			}
			evicted[i] = true
			overflow--
		}
	}

	for i := range memories {
		if !evicted[i] {
			continue
		}
		if err := s.memoryStore.Delete(ctx, memories[i].ID); err != nil {
			s.logger.Warn("failed to evict memory",
				zap.String("memory_id", memories[i].ID.String()), zap.Error(err))
			continue
		}
		result.Evicted++
	}

	if result.Expired > 0 || result.Evicted > 0 {
		s.logger.Info("prune complete",
			zap.Int("expired", result.Expired),
			zap.Int("evicted", result.Evicted))
	}
	return result, nil
}
