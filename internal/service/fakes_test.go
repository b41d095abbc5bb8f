package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/internmatch/internal/apperror"
	"github.com/sakif/internmatch/internal/calendar"
	"github.com/sakif/internmatch/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeInterviewRepo is an in-memory InterviewRepository with the same
// status-conditional update semantics as the sqlite implementation.
type fakeInterviewRepo struct {
	mu         sync.Mutex
	interviews map[string]*model.Interview
	nextID     int
	createErr  error
	guardErr   error // forced UpdateFromStatus failure
}

func newFakeInterviewRepo() *fakeInterviewRepo {
	return &fakeInterviewRepo{interviews: make(map[string]*model.Interview)}
}

func (f *fakeInterviewRepo) Create(_ context.Context, iv *model.Interview) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	iv.ID = fmt.Sprintf("iv-%d", f.nextID)
	iv.CreatedAt = time.Now()
	iv.UpdatedAt = iv.CreatedAt
	copied := *iv
	f.interviews[iv.ID] = &copied
	return nil
}

func (f *fakeInterviewRepo) GetByID(_ context.Context, id string) (*model.Interview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	iv, ok := f.interviews[id]
	if !ok {
		return nil, apperror.NotFound("interview", id)
	}
	copied := *iv
	return &copied, nil
}

func (f *fakeInterviewRepo) ListByEmployer(_ context.Context, employerID string) ([]model.Interview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Interview
	for _, iv := range f.interviews {
		if iv.EmployerID == employerID {
			out = append(out, *iv)
		}
	}
	return out, nil
}

func (f *fakeInterviewRepo) ListByIntern(_ context.Context, internID string) ([]model.Interview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Interview
	for _, iv := range f.interviews {
		if iv.InternID == internID {
			out = append(out, *iv)
		}
	}
	return out, nil
}

func (f *fakeInterviewRepo) Update(_ context.Context, iv *model.Interview) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.interviews[iv.ID]; !ok {
		return apperror.NotFound("interview", iv.ID)
	}
	iv.UpdatedAt = time.Now()
	copied := *iv
	f.interviews[iv.ID] = &copied
	return nil
}

func (f *fakeInterviewRepo) UpdateFromStatus(_ context.Context, iv *model.Interview, from model.InterviewStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.guardErr != nil {
		return f.guardErr
	}
	stored, ok := f.interviews[iv.ID]
	if !ok {
		return apperror.NotFound("interview", iv.ID)
	}
	if stored.Status != from {
		return apperror.Conflict("interview", iv.ID)
	}
	iv.UpdatedAt = time.Now()
	copied := *iv
	f.interviews[iv.ID] = &copied
	return nil
}

// fakeCredStore is an in-memory CredentialRepository with field-merge upserts.
type fakeCredStore struct {
	records     map[string]*model.CredentialRecord
	upsertCalls int
	upsertErr   error
}

func newFakeCredStore() *fakeCredStore {
	return &fakeCredStore{records: make(map[string]*model.CredentialRecord)}
}

func (f *fakeCredStore) Get(_ context.Context, employerID string) (*model.CredentialRecord, error) {
	rec, ok := f.records[employerID]
	if !ok {
		return nil, apperror.NotFound("calendar credentials", employerID)
	}
	copied := *rec
	return &copied, nil
}

func (f *fakeCredStore) Upsert(_ context.Context, employerID string, upd model.CredentialUpdate) (*model.CredentialRecord, error) {
	f.upsertCalls++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	rec, ok := f.records[employerID]
	if !ok {
		rec = &model.CredentialRecord{EmployerID: employerID}
		f.records[employerID] = rec
	}
	if upd.AccessToken != "" {
		rec.AccessToken = upd.AccessToken
	}
	if upd.RefreshToken != "" {
		rec.RefreshToken = upd.RefreshToken
	}
	if upd.Scope != "" {
		rec.Scope = upd.Scope
	}
	if upd.TokenType != "" {
		rec.TokenType = upd.TokenType
	}
	if !upd.Expiry.IsZero() {
		rec.Expiry = upd.Expiry
	}
	rec.UpdatedAt = time.Now()
	copied := *rec
	return &copied, nil
}

// fakeDirectory backs all three directory interfaces.
type fakeDirectory struct {
	employers map[string]*model.Employer
	interns   map[string]*model.Intern
	projects  map[string]*model.Project
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		employers: make(map[string]*model.Employer),
		interns:   make(map[string]*model.Intern),
		projects:  make(map[string]*model.Project),
	}
}

func (f *fakeDirectory) GetEmployer(_ context.Context, id string) (*model.Employer, error) {
	e, ok := f.employers[id]
	if !ok {
		return nil, apperror.NotFound("employer", id)
	}
	return e, nil
}

func (f *fakeDirectory) CreateEmployer(_ context.Context, e *model.Employer) error {
	f.employers[e.ID] = e
	return nil
}

func (f *fakeDirectory) GetIntern(_ context.Context, id string) (*model.Intern, error) {
	in, ok := f.interns[id]
	if !ok {
		return nil, apperror.NotFound("intern", id)
	}
	return in, nil
}

func (f *fakeDirectory) CreateIntern(_ context.Context, in *model.Intern) error {
	f.interns[in.ID] = in
	return nil
}

func (f *fakeDirectory) GetProject(_ context.Context, id string) (*model.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, apperror.NotFound("project", id)
	}
	return p, nil
}

func (f *fakeDirectory) CreateProject(_ context.Context, p *model.Project) error {
	f.projects[p.ID] = p
	return nil
}

// fakeAuthorizer scripts the provider side of the authorization-code flow.
type fakeAuthorizer struct {
	authURL     string
	authErr     error
	token       *oauth2.Token
	exchangeErr error
	exchanged   []string
}

func (f *fakeAuthorizer) AuthCodeURL(state string) (string, error) {
	if f.authErr != nil {
		return "", f.authErr
	}
	return f.authURL + "&state=" + state, nil
}

func (f *fakeAuthorizer) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	f.exchanged = append(f.exchanged, code)
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.token, nil
}

// fakeProvisioner records Provision calls and returns a scripted result.
type fakeProvisioner struct {
	meeting *calendar.Meeting
	err     error
	calls   int
	lastReq calendar.MeetingRequest
}

func (f *fakeProvisioner) Provision(_ context.Context, _ string, req calendar.MeetingRequest) (*calendar.Meeting, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.meeting, nil
}

// fakeConnections answers Connected with a fixed value.
type fakeConnections struct {
	connected bool
	err       error
}

func (f *fakeConnections) Connected(context.Context, string) (bool, error) {
	return f.connected, f.err
}
