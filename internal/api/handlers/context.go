package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContextHandler serves the derived linking surfaces: entity index,
// page-context matches, and related past conversations.
type ContextHandler struct {
	linker          *service.LinkerService
	memoryStore     domain.MemoryStore
	summaryStore    domain.SummaryStore
	embeddingClient domain.EmbeddingClient
	logger          *zap.Logger
}

func NewContextHandler(
	linker *service.LinkerService,
	memoryStore domain.MemoryStore,
	summaryStore domain.SummaryStore,
	embeddingClient domain.EmbeddingClient,
	logger *zap.Logger,
) *ContextHandler {
	return &ContextHandler{
		linker:          linker,
		memoryStore:     memoryStore,
		summaryStore:    summaryStore,
		embeddingClient: embeddingClient,
		logger:          logger,
	}
}

type entitiesResponse struct {
	Entities []domain.EntityLink `json:"entities"`
	Count    int                 `json:"count"`
}

func (h *ContextHandler) Entities(w http.ResponseWriter, r *http.Request) {
	memories, err := h.memoryStore.GetAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load memories")
		return
	}

	links := h.linker.BuildEntityLinks(memories, time.Now())
	if links == nil {
		links = []domain.EntityLink{}
	}
	writeJSON(w, http.StatusOK, entitiesResponse{Entities: links, Count: len(links)})
}

type matchRequest struct {
	Page domain.PageContext `json:"page"`
}

type matchResponse struct {
	Matches []domain.ContextMatch `json:"matches"`
	Count   int                   `json:"count"`
}

func (h *ContextHandler) Matches(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	memories, err := h.memoryStore.GetAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load memories")
		return
	}

	h.attachPageEmbedding(r, &req.Page)

	matches := h.linker.MatchContext(req.Page, memories)
	if matches == nil {
		matches = []domain.ContextMatch{}
	}
	writeJSON(w, http.StatusOK, matchResponse{Matches: matches, Count: len(matches)})
}

// attachPageEmbedding is best-effort: without a vector, matching falls
// back to the non-semantic strategies.
func (h *ContextHandler) attachPageEmbedding(r *http.Request, page *domain.PageContext) {
	if h.embeddingClient == nil || page.Title == "" {
		return
	}
	vec, err := h.embeddingClient.Embed(r.Context(), page.Title)
	if err != nil {
		h.logger.Debug("page embedding failed", zap.Error(err))
		return
	}
	page.Embedding = vec
}

type relatedRequest struct {
	MemoryIDs []uuid.UUID `json:"memory_ids,omitempty"`
	Topics    []string    `json:"topics,omitempty"`
	Text      string      `json:"text,omitempty"`
}

type relatedResponse struct {
	Conversations []domain.RelatedConversation `json:"conversations"`
	Count         int                          `json:"count"`
}

func (h *ContextHandler) Related(w http.ResponseWriter, r *http.Request) {
	var req relatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summaries, err := h.summaryStore.GetAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load summaries")
		return
	}

	var contextEmbedding []float32
	if h.embeddingClient != nil && req.Text != "" {
		if vec, err := h.embeddingClient.Embed(r.Context(), req.Text); err == nil {
			contextEmbedding = vec
		} else {
			h.logger.Debug("context embedding failed", zap.Error(err))
		}
	}

	related := h.linker.RelatedConversations(req.MemoryIDs, req.Topics, contextEmbedding, summaries)
	if related == nil {
		related = []domain.RelatedConversation{}
	}
	writeJSON(w, http.StatusOK, relatedResponse{Conversations: related, Count: len(related)})
}
