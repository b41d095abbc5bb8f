package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/internmatch/internal/apperror"
	"github.com/sakif/internmatch/internal/calendar"
	"github.com/sakif/internmatch/internal/model"
	"github.com/sakif/internmatch/internal/repository"
)

const (
	// SlotCount is fixed by business rule: an employer proposes exactly
	// three candidate times, never fewer or more.
	SlotCount = 3

	// MeetingDuration is the fixed interview window derived from the
	// selected slot.
	MeetingDuration = 30 * time.Minute

	// MissedGraceWindow is how late a participant may be before a no-show
	// can be recorded. Interviews run over a live link; a few minutes of
	// lateness must not count as missed.
	MissedGraceWindow = 15 * time.Minute
)

// genericInternLabel is shown when a candidate account no longer resolves
// and the name is only cosmetic.
const genericInternLabel = "Candidate"

// MeetingProvisioner creates the calendar event for a confirmed slot.
// calendar.MeetProvisioner implements it.
type MeetingProvisioner interface {
	Provision(ctx context.Context, employerID string, req calendar.MeetingRequest) (*calendar.Meeting, error)
}

// ConnectionChecker answers "does this employer have usable calendar
// credentials". calendar.ClientFactory implements it.
type ConnectionChecker interface {
	Connected(ctx context.Context, employerID string) (bool, error)
}

// Warning is a non-fatal advisory attached to an otherwise successful
// operation, e.g. "scheduled, but no meeting link could be created".
type Warning struct {
	Message    string `json:"message"`
	ConnectURL string `json:"connectUrl,omitempty"`
}

// InterviewService owns the interview lifecycle: slot proposal, selection,
// rescheduling, and the missed watchdog. It is the only writer of interview
// state; the repository enforces nothing.
type InterviewService struct {
	interviews  repository.InterviewRepository
	employers   repository.EmployerDirectory
	interns     repository.InternDirectory
	projects    repository.ProjectDirectory
	meetings    MeetingProvisioner
	connections ConnectionChecker
	connectURL  string // base URL of the connect flow, e.g. https://host/auth/google/connect
	logger      *slog.Logger
	now         func() time.Time
}

func NewInterviewService(
	interviews repository.InterviewRepository,
	employers repository.EmployerDirectory,
	interns repository.InternDirectory,
	projects repository.ProjectDirectory,
	meetings MeetingProvisioner,
	connections ConnectionChecker,
	connectURL string,
	logger *slog.Logger,
) *InterviewService {
	return &InterviewService{
		interviews:  interviews,
		employers:   employers,
		interns:     interns,
		projects:    projects,
		meetings:    meetings,
		connections: connections,
		connectURL:  connectURL,
		logger:      logger,
		now:         time.Now,
	}
}

// connectFlowURL is the placeholder link directing the employer to
// authorize calendar access.
func (s *InterviewService) connectFlowURL(employerID string) string {
	return s.connectURL + "?employer_id=" + url.QueryEscape(employerID)
}

// hasLiveLink reports whether the record already carries a real join URL.
// A connect-flow placeholder does not count: it was stored before the
// employer connected and must not suppress provisioning.
func (s *InterviewService) hasLiveLink(iv *model.Interview) bool {
	if iv.MeetingLink == "" {
		return false
	}
	return s.connectURL == "" || !strings.HasPrefix(iv.MeetingLink, s.connectURL)
}

// ProposeSlots creates a pending interview from exactly three distinct slot
// timestamps (RFC 3339). When the employer has no calendar connected the
// record's meeting link is pre-populated with the connect-flow URL and a
// non-fatal warning is returned, so the UI can surface the gap without the
// whole operation failing.
func (s *InterviewService) ProposeSlots(
	ctx context.Context,
	employerID, internID, projectID, timezone string,
	slots []string,
) (*model.Interview, *Warning, error) {
	employerID = strings.TrimSpace(employerID)
	internID = strings.TrimSpace(internID)
	projectID = strings.TrimSpace(projectID)

	if employerID == "" {
		return nil, nil, apperror.ValidationFailed("employerId", "employer id is required")
	}
	if internID == "" {
		return nil, nil, apperror.ValidationFailed("internId", "intern id is required")
	}
	if _, err := time.LoadLocation(timezone); err != nil || timezone == "" {
		return nil, nil, apperror.ValidationFailed("timezone", "timezone must be a valid IANA zone name")
	}
	if len(slots) != SlotCount {
		return nil, nil, apperror.ValidationFailed("slots",
			fmt.Sprintf("exactly %d slot timestamps are required, got %d", SlotCount, len(slots)))
	}

	parsed := make([]time.Time, 0, SlotCount)
	seen := make(map[int64]bool, SlotCount)
	for i, raw := range slots {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
		if err != nil {
			return nil, nil, apperror.ValidationFailed("slots",
				fmt.Sprintf("slot %d is not a valid RFC 3339 timestamp: %q", i+1, raw))
		}
		if seen[t.UnixNano()] {
			return nil, nil, apperror.ValidationFailed("slots",
				fmt.Sprintf("slot %d duplicates another proposed slot", i+1))
		}
		seen[t.UnixNano()] = true
		parsed = append(parsed, t)
	}

	// Identity must resolve; a dangling employer or intern id is fatal.
	if _, err := s.employers.GetEmployer(ctx, employerID); err != nil {
		return nil, nil, err
	}
	if _, err := s.interns.GetIntern(ctx, internID); err != nil {
		return nil, nil, err
	}
	if projectID != "" {
		if _, err := s.projects.GetProject(ctx, projectID); err != nil {
			return nil, nil, err
		}
	}

	iv := &model.Interview{
		EmployerID: employerID,
		InternID:   internID,
		ProjectID:  projectID,
		Timezone:   timezone,
		Slot1:      parsed[0],
		Slot2:      parsed[1],
		Slot3:      parsed[2],
		Status:     model.StatusPending,
	}

	var warning *Warning
	connected, err := s.connections.Connected(ctx, employerID)
	if err != nil {
		return nil, nil, fmt.Errorf("checking calendar connection: %w", err)
	}
	if !connected {
		iv.MeetingLink = s.connectFlowURL(employerID)
		warning = &Warning{
			Message:    "employer calendar is not connected; meeting links cannot be created until it is",
			ConnectURL: s.connectFlowURL(employerID),
		}
	}

	if err := s.interviews.Create(ctx, iv); err != nil {
		s.logger.Error("failed to create interview",
			slog.String("employerID", employerID),
			slog.String("error", err.Error()),
		)
		return nil, nil, fmt.Errorf("creating interview: %w", err)
	}

	s.logger.Info("interview proposed",
		slog.String("id", iv.ID),
		slog.String("employerID", employerID),
		slog.String("internID", internID),
		slog.Bool("calendarConnected", connected),
	)

	return iv, warning, nil
}

// SelectSlot confirms one of the three proposed slots and transitions the
// interview to scheduled. Creating the video meeting is best-effort: a
// missing calendar connection or a provider failure downgrades to a warning
// and the interview is scheduled without a link. A record that already
// carries a live link reuses it verbatim; the provisioner is never invoked
// twice for the same interview.
//
// The final write is conditional on the status the record was read with, so
// of two concurrent selections exactly one wins and the other gets a
// conflict.
func (s *InterviewService) SelectSlot(ctx context.Context, id string, slot int) (*model.Interview, *Warning, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil, apperror.ValidationFailed("id", "interview id is required")
	}
	if slot < 1 || slot > SlotCount {
		return nil, nil, apperror.ValidationFailed("slot",
			fmt.Sprintf("slot must be between 1 and %d", SlotCount))
	}

	iv, err := s.interviews.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if iv.Status == model.StatusMissed {
		return nil, nil, apperror.ValidationFailed("status",
			"interview was marked missed; reschedule it before selecting a new slot")
	}

	start, ok := iv.Slot(slot)
	if !ok || start.IsZero() {
		return nil, nil, apperror.ValidationFailed("slot",
			fmt.Sprintf("slot %d has no valid timestamp", slot))
	}

	priorStatus := iv.Status
	iv.SelectedSlot = slot
	iv.Status = model.StatusScheduled

	var warning *Warning
	if !s.hasLiveLink(iv) {
		meeting, err := s.provisionMeeting(ctx, iv, start)
		switch {
		case err == nil:
			iv.MeetingLink = meeting.JoinURL
			iv.CalendarEventID = meeting.EventID
		case errors.Is(err, apperror.ErrNotConnected):
			warning = &Warning{
				Message:    "interview scheduled, but the employer calendar is not connected so no meeting link was created",
				ConnectURL: s.connectFlowURL(iv.EmployerID),
			}
		default:
			// Provider failures must never block confirming a time.
			s.logger.Warn("meeting link provisioning failed",
				slog.String("interviewID", iv.ID),
				slog.String("error", err.Error()),
			)
			warning = &Warning{
				Message: "interview scheduled, but creating the video meeting failed: " + err.Error(),
			}
		}
	}

	if err := s.interviews.UpdateFromStatus(ctx, iv, priorStatus); err != nil {
		return nil, nil, err
	}

	s.logger.Info("interview slot selected",
		slog.String("id", iv.ID),
		slog.Int("slot", slot),
		slog.Bool("meetingLink", s.hasLiveLink(iv)),
	)

	return iv, warning, nil
}

// provisionMeeting derives the fixed 30-minute window from the selected
// slot and asks the provisioner for a link. Participant emails are looked
// up from the directories; absence of either email is tolerated, not fatal.
func (s *InterviewService) provisionMeeting(ctx context.Context, iv *model.Interview, start time.Time) (*calendar.Meeting, error) {
	var attendees []string
	employerName := "Employer"
	internName := genericInternLabel

	if employer, err := s.employers.GetEmployer(ctx, iv.EmployerID); err == nil {
		employerName = employer.Name
		if employer.ContactEmail != "" {
			attendees = append(attendees, employer.ContactEmail)
		}
	}
	if intern, err := s.interns.GetIntern(ctx, iv.InternID); err == nil {
		internName = intern.Name
		if intern.Email != "" {
			attendees = append(attendees, intern.Email)
		}
	}

	return s.meetings.Provision(ctx, iv.EmployerID, calendar.MeetingRequest{
		Summary:     fmt.Sprintf("Internship interview: %s / %s", employerName, internName),
		Description: iv.Notes,
		Start:       start,
		End:         start.Add(MeetingDuration),
		Timezone:    iv.Timezone,
		Attendees:   attendees,
	})
}

// Reschedule resets the interview to pending and clears the selected slot.
// Allowed from any state. The previously created meeting link and calendar
// event id are left untouched on the record, and the remote event is never
// deleted; a stale event on the provider's calendar is a known limitation.
func (s *InterviewService) Reschedule(ctx context.Context, id string) (*model.Interview, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "interview id is required")
	}

	iv, err := s.interviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	iv.Status = model.StatusPending
	iv.SelectedSlot = 0

	if err := s.interviews.Update(ctx, iv); err != nil {
		return nil, err
	}

	s.logger.Info("interview rescheduled", slog.String("id", iv.ID))
	return iv, nil
}

// MarkMissed is the reactive watchdog: it transitions a scheduled interview
// to missed once the grace window after its selected slot has elapsed.
// Every failed precondition is reported with its own reason rather than a
// silent no-op.
func (s *InterviewService) MarkMissed(ctx context.Context, id string) (*model.Interview, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "interview id is required")
	}

	iv, err := s.interviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch iv.Status {
	case model.StatusScheduled:
		// eligible
	case model.StatusPending:
		return nil, apperror.ValidationFailed("status",
			"interview is still pending; only scheduled interviews can be marked missed")
	case model.StatusMissed:
		return nil, apperror.ValidationFailed("status", "interview is already marked missed")
	default:
		return nil, apperror.ValidationFailed("status",
			fmt.Sprintf("interview has unexpected status %q", iv.Status))
	}

	if iv.SelectedSlot == 0 {
		return nil, apperror.ValidationFailed("selectedSlot", "no slot has been selected")
	}
	start, ok := iv.Slot(iv.SelectedSlot)
	if !ok || start.IsZero() {
		return nil, apperror.ValidationFailed("selectedSlot", "selected slot has no valid timestamp")
	}

	deadline := start.Add(MissedGraceWindow)
	if !s.now().After(deadline) {
		return nil, apperror.ValidationFailed("time",
			fmt.Sprintf("grace window has not elapsed; the interview can be marked missed after %s",
				deadline.Format(time.RFC3339)))
	}

	iv.Status = model.StatusMissed
	if err := s.interviews.UpdateFromStatus(ctx, iv, model.StatusScheduled); err != nil {
		return nil, err
	}

	s.logger.Info("interview marked missed",
		slog.String("id", iv.ID),
		slog.Int("slot", iv.SelectedSlot),
	)

	return iv, nil
}

// ListByEmployer returns the employer's interviews newest first, enriched
// with candidate and project display names. A candidate or project that no
// longer resolves falls back to a generic label; enrichment is cosmetic.
func (s *InterviewService) ListByEmployer(ctx context.Context, employerID string) ([]model.Interview, error) {
	employerID = strings.TrimSpace(employerID)
	if employerID == "" {
		return nil, apperror.ValidationFailed("employerId", "employer id is required")
	}
	if _, err := s.employers.GetEmployer(ctx, employerID); err != nil {
		return nil, err
	}

	interviews, err := s.interviews.ListByEmployer(ctx, employerID)
	if err != nil {
		return nil, fmt.Errorf("listing interviews for employer %s: %w", employerID, err)
	}

	internNames := make(map[string]string)
	projectTitles := make(map[string]string)
	for i := range interviews {
		iv := &interviews[i]

		name, ok := internNames[iv.InternID]
		if !ok {
			name = genericInternLabel
			if intern, err := s.interns.GetIntern(ctx, iv.InternID); err == nil {
				name = intern.Name
			}
			internNames[iv.InternID] = name
		}
		iv.InternName = name

		if iv.ProjectID != "" {
			title, ok := projectTitles[iv.ProjectID]
			if !ok {
				if project, err := s.projects.GetProject(ctx, iv.ProjectID); err == nil {
					title = project.Title
				}
				projectTitles[iv.ProjectID] = title
			}
			iv.ProjectTitle = title
		}
	}

	return interviews, nil
}

// ListByIntern returns the candidate's interviews newest first.
func (s *InterviewService) ListByIntern(ctx context.Context, internID string) ([]model.Interview, error) {
	internID = strings.TrimSpace(internID)
	if internID == "" {
		return nil, apperror.ValidationFailed("internId", "intern id is required")
	}
	if _, err := s.interns.GetIntern(ctx, internID); err != nil {
		return nil, err
	}

	interviews, err := s.interviews.ListByIntern(ctx, internID)
	if err != nil {
		return nil, fmt.Errorf("listing interviews for intern %s: %w", internID, err)
	}

	return interviews, nil
}
