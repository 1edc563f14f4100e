package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/service"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type MemoryHandler struct {
	svc *service.MemoryService
}

func NewMemoryHandler(svc *service.MemoryService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

type createMemoryRequest struct {
	Type       string     `json:"type"`
	Content    string     `json:"content"`
	Context    string     `json:"context,omitempty"`
	Importance float64    `json:"importance,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

func (h *MemoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	memory := &domain.Memory{
		Type:       domain.MemoryType(req.Type),
		Content:    req.Content,
		Context:    req.Context,
		Importance: req.Importance,
		Confidence: req.Confidence,
		ExpiresAt:  req.ExpiresAt,
		Source:     domain.MemorySource{ExtractedAt: time.Now()},
	}

	if err := h.svc.Add(r.Context(), memory); err != nil {
		switch {
		case errors.Is(err, service.ErrMemoryContentEmpty),
			errors.Is(err, service.ErrMemoryContentTooLong),
			errors.Is(err, service.ErrInvalidMemoryType):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrSensitiveContent):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create memory")
		}
		return
	}

	writeJSON(w, http.StatusCreated, memory)
}

type listMemoriesResponse struct {
	Memories []domain.Memory `json:"memories"`
	Count    int             `json:"count"`
}

func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	memories, err := h.svc.GetAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list memories")
		return
	}
	if memories == nil {
		memories = []domain.Memory{}
	}
	writeJSON(w, http.StatusOK, listMemoriesResponse{Memories: memories, Count: len(memories)})
}

func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "memory not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete memory")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MemoryHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	memory, err := h.svc.Verify(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "memory not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to verify memory")
		return
	}

	writeJSON(w, http.StatusOK, memory)
}

type searchRequest struct {
	Query    string  `json:"query"`
	Limit    int     `json:"limit,omitempty"`
	MinScore float64 `json:"min_score,omitempty"`
}

type searchResponse struct {
	Results []service.RankedMemory `json:"results"`
	Query   string                 `json:"query"`
	Count   int                    `json:"count"`
}

func (h *MemoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	opts := service.RankOptions{Limit: req.Limit, MinScore: req.MinScore}
	results, err := h.svc.Search(r.Context(), req.Query, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to search memories")
		return
	}
	if results == nil {
		results = []service.RankedMemory{}
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: results, Query: req.Query, Count: len(results)})
}
