package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/service"
	"github.com/google/uuid"
)

type ProactiveHandler struct {
	svc *service.ProactiveService
}

func NewProactiveHandler(svc *service.ProactiveService) *ProactiveHandler {
	return &ProactiveHandler{svc: svc}
}

type decisionRequest struct {
	Moment string              `json:"moment"`
	Page   *domain.PageContext `json:"page,omitempty"`
}

type decisionResponse struct {
	Action *domain.ProactiveAction `json:"action"`
}

func (h *ProactiveHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	moment := domain.Moment(req.Moment)
	switch moment {
	case domain.MomentSessionStart, domain.MomentIdleTick, domain.MomentContextChange:
	default:
		writeError(w, http.StatusBadRequest, "invalid moment")
		return
	}

	action, err := h.svc.Decide(r.Context(), moment, req.Page, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to evaluate proactive decision")
		return
	}

	// A nil action is the normal "stay quiet" outcome.
	writeJSON(w, http.StatusOK, decisionResponse{Action: action})
}

type feedbackRequest struct {
	ActionID string `json:"action_id"`
	Outcome  string `json:"outcome"`
}

func (h *ProactiveHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actionID, err := uuid.Parse(req.ActionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid action_id")
		return
	}
	if !domain.ValidEngagementOutcome(req.Outcome) {
		writeError(w, http.StatusBadRequest, "invalid outcome")
		return
	}

	if err := h.svc.RecordFeedback(r.Context(), actionID, domain.EngagementOutcome(req.Outcome)); err != nil {
		if errors.Is(err, service.ErrActionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record feedback")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type sessionRequest struct {
	Event string `json:"event"`
}

func (h *ProactiveHandler) Session(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	now := time.Now()
	var err error
	switch req.Event {
	case "start":
		err = h.svc.StartSession(r.Context(), now)
	case "end":
		err = h.svc.EndSession(r.Context(), now)
	default:
		writeError(w, http.StatusBadRequest, "event must be start or end")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update session state")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
