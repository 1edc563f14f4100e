package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/service"
)

type ExtractHandler struct {
	extractor  *service.ExtractionService
	memorySvc  *service.MemoryService
	summarizer *service.SummarizerService
}

func NewExtractHandler(extractor *service.ExtractionService, memorySvc *service.MemoryService, summarizer *service.SummarizerService) *ExtractHandler {
	return &ExtractHandler{extractor: extractor, memorySvc: memorySvc, summarizer: summarizer}
}

type extractRequest struct {
	ConversationID    string           `json:"conversation_id"`
	Messages          []domain.Message `json:"messages"`
	LastUserMessageAt time.Time        `json:"last_user_message_at,omitempty"`
	AutoStore         bool             `json:"auto_store"`
}

type extractResponse struct {
	Result  service.ExtractionResult    `json:"result"`
	Stored  []domain.Memory             `json:"stored"`
	Summary *domain.ConversationSummary `json:"summary,omitempty"`
}

func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}

	if err := h.extractor.Gate(time.Now(), req.LastUserMessageAt); err != nil {
		switch {
		case errors.Is(err, service.ErrExtractionTooSoon),
			errors.Is(err, service.ErrExtractionHourlyCap),
			errors.Is(err, service.ErrExtractionNotIdle):
			writeError(w, http.StatusTooManyRequests, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "extraction gate failed")
		}
		return
	}

	existing, err := h.memorySvc.GetAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load existing memories")
		return
	}

	result := h.extractor.Extract(r.Context(), req.Messages, existing)

	resp := extractResponse{Result: result, Stored: []domain.Memory{}}
	if req.AutoStore && len(result.Memories) > 0 {
		source := domain.MemorySource{
			ConversationID: req.ConversationID,
			ExtractedAt:    time.Now(),
		}
		stored, err := h.memorySvc.AcceptExtracted(r.Context(), result.Memories, source)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store extracted memories")
			return
		}
		if stored != nil {
			resp.Stored = stored
		}
	}

	// Summarization piggybacks on extraction cycles; a failure here must
	// not fail the extraction response.
	if h.summarizer != nil && req.ConversationID != "" {
		if summary, err := h.summarizer.Summarize(r.Context(), req.ConversationID, req.Messages); err == nil {
			resp.Summary = summary
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
