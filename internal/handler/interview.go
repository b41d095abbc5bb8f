// Package handler contains the HTTP layer: request parsing, response
// shaping, and nothing else. Business rules live in the service layer.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/internmatch/internal/model"
	"github.com/sakif/internmatch/internal/service"
)

// InterviewScheduler is the slice of the interview service this handler
// consumes. Declared here so tests can substitute a fake.
type InterviewScheduler interface {
	ProposeSlots(ctx context.Context, employerID, internID, projectID, timezone string, slots []string) (*model.Interview, *service.Warning, error)
	SelectSlot(ctx context.Context, id string, slot int) (*model.Interview, *service.Warning, error)
	Reschedule(ctx context.Context, id string) (*model.Interview, error)
	MarkMissed(ctx context.Context, id string) (*model.Interview, error)
	ListByEmployer(ctx context.Context, employerID string) ([]model.Interview, error)
	ListByIntern(ctx context.Context, internID string) ([]model.Interview, error)
}

// InterviewHandler exposes the scheduling operations over JSON.
type InterviewHandler struct {
	interviews InterviewScheduler
	logger     *slog.Logger
}

func NewInterviewHandler(interviews InterviewScheduler, logger *slog.Logger) *InterviewHandler {
	return &InterviewHandler{interviews: interviews, logger: logger}
}

// interviewEnvelope wraps an interview with the optional non-fatal warning
// the state machine may attach.
type interviewEnvelope struct {
	Interview  *model.Interview `json:"interview"`
	Warning    string           `json:"warning,omitempty"`
	ConnectURL string           `json:"connectUrl,omitempty"`
}

func envelope(iv *model.Interview, warning *service.Warning) interviewEnvelope {
	env := interviewEnvelope{Interview: iv}
	if warning != nil {
		env.Warning = warning.Message
		env.ConnectURL = warning.ConnectURL
	}
	return env
}

type proposeRequest struct {
	EmployerID string   `json:"employerId"`
	InternID   string   `json:"internId"`
	ProjectID  string   `json:"projectId"`
	Timezone   string   `json:"timezone"`
	Slots      []string `json:"slots"`
}

// HandlePropose creates a pending interview from three proposed slots.
//
// HTTP: POST /api/interviews
func (h *InterviewHandler) HandlePropose(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid propose JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	iv, warning, err := h.interviews.ProposeSlots(r.Context(),
		req.EmployerID, req.InternID, req.ProjectID, req.Timezone, req.Slots)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope(iv, warning))
}

type selectRequest struct {
	Slot int `json:"slot"`
}

// HandleSelectSlot confirms one of the proposed slots.
//
// HTTP: POST /api/interviews/{id}/select
func (h *InterviewHandler) HandleSelectSlot(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid select JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	iv, warning, err := h.interviews.SelectSlot(r.Context(), r.PathValue("id"), req.Slot)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope(iv, warning))
}

// HandleReschedule resets an interview to pending.
//
// HTTP: POST /api/interviews/{id}/reschedule
func (h *InterviewHandler) HandleReschedule(w http.ResponseWriter, r *http.Request) {
	iv, err := h.interviews.Reschedule(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope(iv, nil))
}

// HandleMarkMissed records a no-show once the grace window has elapsed.
//
// HTTP: POST /api/interviews/{id}/missed
func (h *InterviewHandler) HandleMarkMissed(w http.ResponseWriter, r *http.Request) {
	iv, err := h.interviews.MarkMissed(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope(iv, nil))
}

// HandleList returns interviews for an employer or an intern, newest first.
//
// HTTP: GET /api/interviews?employer_id=... | ?intern_id=...
func (h *InterviewHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	employerID := r.URL.Query().Get("employer_id")
	internID := r.URL.Query().Get("intern_id")

	var (
		interviews []model.Interview
		err        error
	)
	switch {
	case employerID != "":
		interviews, err = h.interviews.ListByEmployer(r.Context(), employerID)
	case internID != "":
		interviews, err = h.interviews.ListByIntern(r.Context(), internID)
	default:
		http.Error(w, "employer_id or intern_id query parameter is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if interviews == nil {
		interviews = []model.Interview{}
	}
	writeJSON(w, http.StatusOK, interviews)
}
