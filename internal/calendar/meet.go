package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/internmatch/internal/apperror"
)

const defaultCalendarBaseURL = "https://www.googleapis.com/calendar/v3"

// ClientSource yields an authenticated HTTP client for an employer.
// *ClientFactory is the production implementation.
type ClientSource interface {
	ClientFor(ctx context.Context, employerID string) (*http.Client, error)
}

// MeetingRequest describes the event to create.
type MeetingRequest struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Timezone    string   // IANA name attached to both ends of the event
	Attendees   []string // emails; attendees are invited by the provider
}

// Meeting is the provisioned result.
type Meeting struct {
	JoinURL string
	EventID string
}

// MeetProvisioner creates a calendar event with an embedded video-conference
// request and extracts the resulting join link.
type MeetProvisioner struct {
	clients ClientSource
	baseURL string
	logger  *slog.Logger
}

func NewMeetProvisioner(clients ClientSource, logger *slog.Logger) *MeetProvisioner {
	return &MeetProvisioner{
		clients: clients,
		baseURL: defaultCalendarBaseURL,
		logger:  logger,
	}
}

// Wire shapes for the Calendar v3 events.insert call. Only the fields this
// subsystem touches are declared.
type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type eventAttendee struct {
	Email string `json:"email"`
}

type conferenceSolutionKey struct {
	Type string `json:"type"`
}

type conferenceCreateRequest struct {
	RequestID             string                 `json:"requestId"`
	ConferenceSolutionKey *conferenceSolutionKey `json:"conferenceSolutionKey,omitempty"`
}

type conferenceEntryPoint struct {
	EntryPointType string `json:"entryPointType"`
	URI            string `json:"uri"`
}

type conferenceData struct {
	CreateRequest *conferenceCreateRequest `json:"createRequest,omitempty"`
	EntryPoints   []conferenceEntryPoint   `json:"entryPoints,omitempty"`
}

type eventBody struct {
	Summary        string          `json:"summary"`
	Description    string          `json:"description,omitempty"`
	Start          eventTime       `json:"start"`
	End            eventTime       `json:"end"`
	Attendees      []eventAttendee `json:"attendees,omitempty"`
	ConferenceData *conferenceData `json:"conferenceData,omitempty"`
}

type eventResponse struct {
	ID             string          `json:"id"`
	HangoutLink    string          `json:"hangoutLink"`
	ConferenceData *conferenceData `json:"conferenceData"`
}

// Provision creates the event and returns its join link and event id.
//
// The conference create-request carries a fresh random request id, so a
// retried insert cannot mint a duplicate conference. Creating the event
// itself is still an external, non-idempotent side effect: callers invoke
// Provision at most once per logical scheduling decision.
//
// A not-connected error from the client source propagates unchanged; every
// transport or status failure is a provider-call error; an event that was
// created without any discoverable link is a link-extraction error.
func (p *MeetProvisioner) Provision(ctx context.Context, employerID string, req MeetingRequest) (*Meeting, error) {
	if req.Start.IsZero() || req.End.IsZero() {
		return nil, apperror.ValidationFailed("time", "meeting start and end are required")
	}
	if !req.End.After(req.Start) {
		return nil, apperror.ValidationFailed("time", "meeting end must be strictly after its start")
	}

	client, err := p.clients.ClientFor(ctx, employerID)
	if err != nil {
		return nil, err
	}

	body := eventBody{
		Summary:     req.Summary,
		Description: req.Description,
		Start:       eventTime{DateTime: req.Start.Format(time.RFC3339), TimeZone: req.Timezone},
		End:         eventTime{DateTime: req.End.Format(time.RFC3339), TimeZone: req.Timezone},
		ConferenceData: &conferenceData{
			CreateRequest: &conferenceCreateRequest{
				RequestID:             xid.New().String(),
				ConferenceSolutionKey: &conferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}
	for _, email := range req.Attendees {
		if email != "" {
			body.Attendees = append(body.Attendees, eventAttendee{Email: email})
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("calendar: encoding event: %w", err)
	}

	// conferenceDataVersion=1 opts in to conference creation; sendUpdates
	// makes the provider email the attendees.
	url := p.baseURL + "/calendars/primary/events?conferenceDataVersion=1&sendUpdates=all"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("calendar: building event request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, apperror.ProviderCall(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		p.logger.Warn("calendar event insert rejected",
			slog.String("employerID", employerID),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(snippet)),
		)
		return nil, apperror.ProviderCall(fmt.Errorf("event insert returned status %d", resp.StatusCode))
	}

	var ev eventResponse
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return nil, apperror.ProviderCall(fmt.Errorf("decoding event response: %w", err))
	}

	// Prefer the dedicated meeting-link field, fall back to scanning the
	// conference entry points for a video endpoint.
	link := ev.HangoutLink
	if link == "" && ev.ConferenceData != nil {
		for _, ep := range ev.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				link = ep.URI
				break
			}
		}
	}
	if link == "" {
		return nil, apperror.NoMeetingLink(ev.ID)
	}

	p.logger.Info("calendar event created",
		slog.String("employerID", employerID),
		slog.String("eventID", ev.ID),
	)

	return &Meeting{JoinURL: link, EventID: ev.ID}, nil
}
