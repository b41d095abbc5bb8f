package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/internmatch/internal/model"
	"github.com/sakif/internmatch/internal/service"
)

// CalendarConnector is the slice of the connection service this handler
// consumes.
type CalendarConnector interface {
	BeginAuthorization(ctx context.Context, employerID string) (string, error)
	CompleteAuthorization(ctx context.Context, code, state string) (*model.CredentialRecord, error)
	Status(ctx context.Context, employerID string) (*service.ConnectionStatus, error)
}

// ConnectionHandler manages the calendar OAuth connect flow and the
// connection-status query.
type ConnectionHandler struct {
	connections CalendarConnector
	successURL  string // where to send the browser after a completed callback
	logger      *slog.Logger
}

func NewConnectionHandler(connections CalendarConnector, successURL string, logger *slog.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		connections: connections,
		successURL:  successURL,
		logger:      logger,
	}
}

// HandleConnect starts the authorization flow: redirects the employer's
// browser to the provider's consent page. The signed state parameter
// carries the employer id through the round trip.
//
// HTTP: GET /auth/google/connect?employer_id=...
func (h *ConnectionHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	url, err := h.connections.BeginAuthorization(r.Context(), r.URL.Query().Get("employer_id"))
	if err != nil {
		writeError(w, err)
		return
	}

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// HandleCallback completes the flow when the provider redirects back.
//
// HTTP: GET /auth/google/callback?code=...&state=...
func (h *ConnectionHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	// The provider reports denial with an error parameter instead of a code.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("calendar authorization denied", slog.String("error", errParam))
		if h.successURL != "" {
			http.Redirect(w, r, h.successURL+"?calendar=denied", http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "denied"})
		return
	}

	rec, err := h.connections.CompleteAuthorization(r.Context(),
		r.URL.Query().Get("code"), r.URL.Query().Get("state"))
	if err != nil {
		h.logger.Warn("calendar authorization failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	if h.successURL != "" {
		http.Redirect(w, r, h.successURL+"?calendar=connected", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "connected",
		"hasRefreshToken": rec.RefreshToken != "",
	})
}

// HandleStatus reports whether the employer's calendar is connected, so a
// UI can decide whether to prompt (re)connection.
//
// HTTP: GET /api/employers/{id}/calendar
func (h *ConnectionHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.connections.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}
