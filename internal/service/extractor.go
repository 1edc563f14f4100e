package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/llm"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	extractionTimeout  = 30 * time.Second
	minConfidenceFloor = 0.5
)

var (
	ErrExtractionTooSoon   = errors.New("extraction ran too recently")
	ErrExtractionHourlyCap = errors.New("hourly extraction cap reached")
	ErrExtractionNotIdle   = errors.New("conversation not idle long enough")
)

// ExtractorConfig bounds how often extraction may run.
type ExtractorConfig struct {
	MinInterval time.Duration
	MaxPerHour  int
	IdleDelay   time.Duration
}

func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		MinInterval: 5 * time.Minute,
		MaxPerHour:  10,
		IdleDelay:   30 * time.Second,
	}
}

// ExtractionResult is the typed outcome of one extraction cycle.
// A cycle that yields nothing is still a success; only a failed or
// timed-out completion call is not.
type ExtractionResult struct {
	Memories []domain.ExtractedMemory `json:"memories"`
	Success  bool                     `json:"success"`
	Dropped  int                      `json:"dropped"`
	Error    string                   `json:"error,omitempty"`
}

// ExtractionService turns raw completion output into validated,
// non-sensitive, deduplicated memory candidates.
type ExtractionService struct {
	llmClient domain.LLMClient
	logger    *zap.Logger
	cfg       ExtractorConfig

	mu      sync.Mutex
	lastRun time.Time
	hourly  *rate.Limiter
}

func NewExtractionService(llmClient domain.LLMClient, cfg ExtractorConfig, logger *zap.Logger) *ExtractionService {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 5 * time.Minute
	}
	if cfg.MaxPerHour <= 0 {
		cfg.MaxPerHour = 10
	}
	return &ExtractionService{
		llmClient: llmClient,
		logger:    logger,
		cfg:       cfg,
		hourly:    rate.NewLimiter(rate.Every(time.Hour/time.Duration(cfg.MaxPerHour)), cfg.MaxPerHour),
	}
}

// Gate checks the scheduling constraints without running extraction.
// Passing the gate reserves an hourly-cap token.
func (s *ExtractionService) Gate(now, lastUserMessageAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !lastUserMessageAt.IsZero() && now.Sub(lastUserMessageAt) < s.cfg.IdleDelay {
		return ErrExtractionNotIdle
	}
	if !s.lastRun.IsZero() && now.Sub(s.lastRun) < s.cfg.MinInterval {
		return ErrExtractionTooSoon
	}
	if !s.hourly.Allow() {
		return ErrExtractionHourlyCap
	}
	s.lastRun = now
	return nil
}

// Extract runs one extraction cycle over the recent conversation window.
// A window without a user-authored message is a no-op, not an error.
func (s *ExtractionService) Extract(ctx context.Context, messages []domain.Message, existing []domain.Memory) ExtractionResult {
	hasUser := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUser = true
			break
		}
	}
	if !hasUser {
		return ExtractionResult{Memories: []domain.ExtractedMemory{}, Success: true}
	}

	ctx, cancel := context.WithTimeout(ctx, extractionTimeout)
	defer cancel()

	raw, err := s.llmClient.Complete(ctx, llm.ExtractionSystemPrompt, buildExtractionPrompt(messages, existing))
	if err != nil {
		// Transient failure: this cycle yields nothing, the next one may
		// succeed. No retries owned here.
		s.logger.Warn("extraction completion failed", zap.Error(err))
		return ExtractionResult{Memories: []domain.ExtractedMemory{}, Error: err.Error()}
	}

	return s.parseCandidates(raw, existing)
}

// parseCandidates validates the raw response. Per-item rejections are
// expected filtering outcomes, not errors.
func (s *ExtractionService) parseCandidates(raw string, existing []domain.Memory) ExtractionResult {
	arrayText, ok := llm.FirstJSONArray(raw)
	if !ok {
		s.logger.Warn("no JSON array in extraction response", zap.Int("response_len", len(raw)))
		return ExtractionResult{Memories: []domain.ExtractedMemory{}, Success: true}
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(arrayText), &items); err != nil {
		s.logger.Warn("malformed extraction array", zap.Error(err))
		return ExtractionResult{Memories: []domain.ExtractedMemory{}, Success: true}
	}

	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		seen[normalizeContent(m.Content)] = true
	}

	accepted := make([]domain.ExtractedMemory, 0, len(items))
	dropped := 0
	for _, item := range items {
		candidate, ok := validateCandidate(item)
		if !ok {
			dropped++
			continue
		}

		if domain.ContainsSensitiveContent(candidate.Content, candidate.Context) {
			s.logger.Debug("dropped sensitive extraction candidate")
			dropped++
			continue
		}

		key := normalizeContent(candidate.Content)
		if seen[key] {
			dropped++
			continue
		}
		seen[key] = true

		accepted = append(accepted, candidate)
	}

	return ExtractionResult{Memories: accepted, Success: true, Dropped: dropped}
}

// validateCandidate checks one array element against the schema. Any
// element missing type/content, of unknown type, oversized, or below the
// confidence floor is silently dropped.
func validateCandidate(item map[string]any) (domain.ExtractedMemory, bool) {
	var c domain.ExtractedMemory

	typeStr, _ := item["type"].(string)
	if !domain.ValidMemoryType(typeStr) {
		return c, false
	}

	content, _ := item["content"].(string)
	content = strings.TrimSpace(content)
	if content == "" || len(content) > domain.MaxContentLength {
		return c, false
	}

	c.Type = domain.MemoryType(typeStr)
	c.Content = content
	if context, ok := item["context"].(string); ok {
		c.Context = strings.TrimSpace(context)
	}

	c.Importance = domain.Clamp01(coerceNumber(item["importance"], 0.5))
	c.Confidence = domain.Clamp01(coerceNumber(item["confidence"], 0))
	if c.Confidence < minConfidenceFloor {
		return c, false
	}

	return c, true
}

// coerceNumber accepts JSON numbers and numeric strings; anything else
// falls back to the default.
func coerceNumber(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return parsed
		}
	case json.Number:
		if parsed, err := n.Float64(); err == nil {
			return parsed
		}
	}
	return def
}

func normalizeContent(content string) string {
	content = strings.ToLower(strings.TrimSpace(content))
	content = strings.TrimSuffix(content, ".")
	return strings.Join(strings.Fields(content), " ")
}

// buildExtractionPrompt embeds the conversation window plus one-line
// summaries of existing memories so the model avoids duplicates.
func buildExtractionPrompt(messages []domain.Message, existing []domain.Memory) string {
	var sb strings.Builder

	if len(existing) > 0 {
		sb.WriteString("Existing memories (do not repeat these):\n")
		for _, m := range existing {
			fmt.Fprintf(&sb, "- [%s] %s\n", m.Type, m.Content)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Conversation:\n")
	for _, msg := range messages {
		sb.WriteString(msg.Role)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}

	return sb.String()
}
