package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/internmatch/internal/apperror"
	"github.com/sakif/internmatch/internal/model"
	"github.com/sakif/internmatch/internal/service"
)

// fakeConnector scripts every CalendarConnector method.
type fakeConnector struct {
	authURL string
	record  *model.CredentialRecord
	status  *service.ConnectionStatus
	err     error

	gotEmployerID string
	gotCode       string
	gotState      string
}

func (f *fakeConnector) BeginAuthorization(_ context.Context, employerID string) (string, error) {
	f.gotEmployerID = employerID
	return f.authURL, f.err
}

func (f *fakeConnector) CompleteAuthorization(_ context.Context, code, state string) (*model.CredentialRecord, error) {
	f.gotCode = code
	f.gotState = state
	return f.record, f.err
}

func (f *fakeConnector) Status(_ context.Context, employerID string) (*service.ConnectionStatus, error) {
	f.gotEmployerID = employerID
	return f.status, f.err
}

func TestHandleConnectRedirects(t *testing.T) {
	fake := &fakeConnector{authURL: "https://accounts.example/o/oauth2/auth?state=signed"}
	h := NewConnectionHandler(fake, "", discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/connect?employer_id=emp-1", nil)
	rr := httptest.NewRecorder()

	h.HandleConnect(rr, req)

	require.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, fake.authURL, rr.Header().Get("Location"))
	assert.Equal(t, "emp-1", fake.gotEmployerID)
}

func TestHandleConnectUnknownEmployer(t *testing.T) {
	fake := &fakeConnector{err: apperror.NotFound("employer", "emp-404")}
	h := NewConnectionHandler(fake, "", discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/connect?employer_id=emp-404", nil)
	rr := httptest.NewRecorder()

	h.HandleConnect(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleCallbackSuccessRedirect(t *testing.T) {
	fake := &fakeConnector{record: &model.CredentialRecord{EmployerID: "emp-1", AccessToken: "a", RefreshToken: "r"}}
	h := NewConnectionHandler(fake, "https://app.example/settings", discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=signed", nil)
	rr := httptest.NewRecorder()

	h.HandleCallback(rr, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "https://app.example/settings?calendar=connected", rr.Header().Get("Location"))
	assert.Equal(t, "auth-code", fake.gotCode)
	assert.Equal(t, "signed", fake.gotState)
}

func TestHandleCallbackSuccessJSON(t *testing.T) {
	fake := &fakeConnector{record: &model.CredentialRecord{EmployerID: "emp-1", AccessToken: "a", RefreshToken: "r"}}
	h := NewConnectionHandler(fake, "", discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=signed", nil)
	rr := httptest.NewRecorder()

	h.HandleCallback(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "connected", resp["status"])
	assert.Equal(t, true, resp["hasRefreshToken"])
}

func TestHandleCallbackDenied(t *testing.T) {
	fake := &fakeConnector{}
	h := NewConnectionHandler(fake, "https://app.example/settings", discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?error=access_denied", nil)
	rr := httptest.NewRecorder()

	h.HandleCallback(rr, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "https://app.example/settings?calendar=denied", rr.Header().Get("Location"))
	assert.Empty(t, fake.gotCode, "denied callback must not reach the exchange")
}

func TestHandleCallbackInvalidState(t *testing.T) {
	fake := &fakeConnector{err: apperror.InvalidState("state signature mismatch")}
	h := NewConnectionHandler(fake, "https://app.example/settings", discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=tampered", nil)
	rr := httptest.NewRecorder()

	h.HandleCallback(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "invalid_state", resp.Error)
}

func TestHandleCallbackExchangeFailure(t *testing.T) {
	fake := &fakeConnector{err: apperror.ExchangeFailed(errors.New("invalid_grant"))}
	h := NewConnectionHandler(fake, "", discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=bad&state=signed", nil)
	rr := httptest.NewRecorder()

	h.HandleCallback(rr, req)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestHandleStatus(t *testing.T) {
	fake := &fakeConnector{status: &service.ConnectionStatus{
		Connected:       true,
		HasRefreshToken: true,
		Scope:           "calendar.events",
		Expiry:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}}
	h := NewConnectionHandler(fake, "", discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/employers/emp-1/calendar", nil)
	req.SetPathValue("id", "emp-1")
	rr := httptest.NewRecorder()

	h.HandleStatus(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "emp-1", fake.gotEmployerID)

	var status service.ConnectionStatus
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&status))
	assert.True(t, status.Connected)
	assert.True(t, status.HasRefreshToken)
	assert.Equal(t, "calendar.events", status.Scope)
}
