package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yuiseki/data-gather/internal/model"
	"github.com/yuiseki/data-gather/internal/service"
)

// RunHandler handles interview run endpoints
type RunHandler struct {
	runSvc *service.RunService
}

// NewRunHandler creates a new run handler
func NewRunHandler(runSvc *service.RunService) *RunHandler {
	return &RunHandler{runSvc: runSvc}
}

// StartRunRequest is the request body for starting a run
type StartRunRequest struct {
	InterviewID string `json:"interviewId"`
}

// SubmitResponsesRequest carries one screen's answers, keyed by entry id
type SubmitResponsesRequest struct {
	ScreenID  string                         `json:"screenId"`
	Responses map[string]model.ResponseValue `json:"responses"`
}

// RunStateResponse is the run state plus the screen currently awaiting a
// response (absent once the run completes)
type RunStateResponse struct {
	Run    *model.RunState `json:"run"`
	Screen *model.Screen   `json:"screen,omitempty"`
}

// Start handles POST /v1/runs
func (h *RunHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.InterviewID == "" {
		writeError(w, http.StatusBadRequest, "interviewId is required")
		return
	}

	state, screen, err := h.runSvc.StartRun(r.Context(), req.InterviewID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, RunStateResponse{Run: state, Screen: screen})
}

// GetScreen handles GET /v1/runs/{runId}/screen
func (h *RunHandler) GetScreen(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runId"]

	state, screen, err := h.runSvc.GetState(r.Context(), runID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RunStateResponse{Run: state, Screen: screen})
}

// SubmitResponses handles POST /v1/runs/{runId}/responses
func (h *RunHandler) SubmitResponses(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runId"]

	var req SubmitResponsesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Responses == nil {
		req.Responses = map[string]model.ResponseValue{}
	}

	state, screen, err := h.runSvc.SubmitResponses(r.Context(), runID, req.ScreenID, req.Responses)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RunStateResponse{Run: state, Screen: screen})
}

// Reset handles POST /v1/runs/{runId}/reset
func (h *RunHandler) Reset(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runId"]

	state, screen, err := h.runSvc.ResetRun(r.Context(), runID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RunStateResponse{Run: state, Screen: screen})
}
