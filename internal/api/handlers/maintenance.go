package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/service"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// MaintenanceHandler exposes the housekeeping operations that normally
// run on timers, so operators can trigger and inspect them directly.
type MaintenanceHandler struct {
	pruner      *service.PrunerService
	decay       *service.DecayService
	memoryStore domain.MemoryStore
}

func NewMaintenanceHandler(pruner *service.PrunerService, decay *service.DecayService, memoryStore domain.MemoryStore) *MaintenanceHandler {
	return &MaintenanceHandler{pruner: pruner, decay: decay, memoryStore: memoryStore}
}

func (h *MaintenanceHandler) Prune(w http.ResponseWriter, r *http.Request) {
	result, err := h.pruner.RunPrune(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "prune run failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type decayStatusResponse struct {
	MemoryID            uuid.UUID `json:"memory_id"`
	Importance          float64   `json:"importance"`
	EffectiveImportance float64   `json:"effective_importance"`
	AdaptiveRate        float64   `json:"adaptive_rate"`
	RateUpdated         bool      `json:"rate_updated"`
}

// DecayStatus reports the current effective importance of one memory,
// refreshing its cached adaptive rate on the way.
func (h *MaintenanceHandler) DecayStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	memory, err := h.memoryStore.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "memory not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load memory")
		return
	}

	now := time.Now()
	updated, err := h.decay.RefreshDecayRate(r.Context(), memory, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to refresh decay rate")
		return
	}

	writeJSON(w, http.StatusOK, decayStatusResponse{
		MemoryID:            memory.ID,
		Importance:          memory.Importance,
		EffectiveImportance: h.decay.EffectiveImportance(memory, now),
		AdaptiveRate:        memory.AdaptiveDecayRate,
		RateUpdated:         updated,
	})
}
