package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yuiseki/data-gather/internal/model"
	"github.com/yuiseki/data-gather/internal/service"
)

// InterviewHandler handles interview definition endpoints
type InterviewHandler struct {
	interviewSvc *service.InterviewService
}

// NewInterviewHandler creates a new interview handler
func NewInterviewHandler(interviewSvc *service.InterviewService) *InterviewHandler {
	return &InterviewHandler{interviewSvc: interviewSvc}
}

// CreateInterviewRequest is the request body for creating an interview
type CreateInterviewRequest struct {
	Name              string                   `json:"name"`
	Description       string                   `json:"description"`
	Notes             string                   `json:"notes"`
	Published         bool                     `json:"published"`
	Screens           []model.Screen           `json:"screens"`
	SubmissionActions []model.SubmissionAction `json:"submissionActions"`
}

// StartingStateRequest is the ordered list of starting-state screen ids;
// the first entry wins when a run begins
type StartingStateRequest struct {
	ScreenIDs []string `json:"screenIds"`
}

// Create handles POST /v1/interviews
func (h *InterviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	interview := &model.Interview{
		Name:              req.Name,
		Description:       req.Description,
		Notes:             req.Notes,
		Published:         req.Published,
		Screens:           req.Screens,
		SubmissionActions: req.SubmissionActions,
	}

	id, err := h.interviewSvc.Create(r.Context(), interview)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"interviewId": id})
}

// List handles GET /v1/interviews
func (h *InterviewHandler) List(w http.ResponseWriter, r *http.Request) {
	interviews, err := h.interviewSvc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"interviews": interviews})
}

// Get handles GET /v1/interviews/{interviewId}
func (h *InterviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["interviewId"]

	interview, err := h.interviewSvc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if interview == nil {
		writeError(w, http.StatusNotFound, "interview not found")
		return
	}
	writeJSON(w, http.StatusOK, interview)
}

// Update handles PUT /v1/interviews/{interviewId}
func (h *InterviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["interviewId"]

	var req CreateInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	interview := &model.Interview{
		ID:                id,
		Name:              req.Name,
		Description:       req.Description,
		Notes:             req.Notes,
		Published:         req.Published,
		SubmissionActions: req.SubmissionActions,
	}

	updated, err := h.interviewSvc.Update(r.Context(), interview)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /v1/interviews/{interviewId}
func (h *InterviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["interviewId"]

	if err := h.interviewSvc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AddScreen handles POST /v1/interviews/{interviewId}/screens
func (h *InterviewHandler) AddScreen(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["interviewId"]

	var screen model.Screen
	if err := json.NewDecoder(r.Body).Decode(&screen); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.interviewSvc.AddScreen(r.Context(), id, screen)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateScreen handles PUT /v1/interviews/{interviewId}/screens/{screenId}
func (h *InterviewHandler) UpdateScreen(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var screen model.Screen
	if err := json.NewDecoder(r.Body).Decode(&screen); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.interviewSvc.UpdateScreen(r.Context(), vars["interviewId"], vars["screenId"], screen)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// SetStartingState handles POST /v1/interviews/{interviewId}/starting-state
func (h *InterviewHandler) SetStartingState(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["interviewId"]

	var req StartingStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.ScreenIDs) == 0 {
		writeError(w, http.StatusBadRequest, "at least one screen id is required")
		return
	}

	interview, err := h.interviewSvc.SetStartingState(r.Context(), id, req.ScreenIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interview)
}

// GetSettings handles GET /v1/interviews/{interviewId}/settings
func (h *InterviewHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["interviewId"]
	refresh := r.URL.Query().Get("refresh") == "true"

	setting, err := h.interviewSvc.GetSettings(r.Context(), id, refresh)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

// PutSettings handles PUT /v1/interviews/{interviewId}/settings
func (h *InterviewHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["interviewId"]

	var settings model.AirtableSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	setting, err := h.interviewSvc.PutSettings(r.Context(), id, settings)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}
