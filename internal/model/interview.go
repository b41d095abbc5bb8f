// Package model defines the data structures used throughout the application.
package model

import "time"

// InterviewStatus is the lifecycle state of an interview record.
//
// Transitions: pending -> scheduled (select slot), scheduled -> missed
// (watchdog, after the grace window), any state -> pending (reschedule).
// Records are never physically deleted by this subsystem.
type InterviewStatus string

const (
	StatusPending   InterviewStatus = "pending"
	StatusScheduled InterviewStatus = "scheduled"
	StatusMissed    InterviewStatus = "missed"
)

// Interview is one employer/intern interview with three proposed time slots.
//
// SelectedSlot is 0 while no slot has been chosen, otherwise 1..3 and the
// matching SlotN is guaranteed non-zero (enforced at creation: all three
// slots are required). MeetingLink holds either a live join URL or a
// connect-flow placeholder URL; empty string means no link at all.
type Interview struct {
	ID              string          `json:"id"              db:"id"`
	EmployerID      string          `json:"employerId"      db:"employer_id"`
	InternID        string          `json:"internId"        db:"intern_id"`
	ProjectID       string          `json:"projectId,omitempty" db:"project_id"` // optional
	Timezone        string          `json:"timezone"        db:"timezone"`       // IANA name, e.g. "Europe/London"
	Slot1           time.Time       `json:"slot1"           db:"slot1"`
	Slot2           time.Time       `json:"slot2"           db:"slot2"`
	Slot3           time.Time       `json:"slot3"           db:"slot3"`
	SelectedSlot    int             `json:"selectedSlot"    db:"selected_slot"` // 0 = none
	Status          InterviewStatus `json:"status"          db:"status"`
	MeetingLink     string          `json:"meetingLink,omitempty"     db:"meeting_link"`
	CalendarEventID string          `json:"calendarEventId,omitempty" db:"calendar_event_id"`
	Notes           string          `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time       `json:"createdAt"       db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt"       db:"updated_at"`

	// Display enrichment filled in by the service layer from the
	// directories. Never persisted.
	InternName   string `json:"internName,omitempty"   db:"-"`
	ProjectTitle string `json:"projectTitle,omitempty" db:"-"`
}

// Slot returns the n-th proposed slot (1..3). ok is false for any other n.
func (iv *Interview) Slot(n int) (time.Time, bool) {
	switch n {
	case 1:
		return iv.Slot1, true
	case 2:
		return iv.Slot2, true
	case 3:
		return iv.Slot3, true
	}
	return time.Time{}, false
}
