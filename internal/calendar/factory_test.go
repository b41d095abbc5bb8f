package calendar

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/internmatch/internal/apperror"
	"github.com/sakif/internmatch/internal/model"
)

// fakeCredentialStore is an in-memory CredentialRepository with the same
// field-merge semantics as the sqlite implementation.
type fakeCredentialStore struct {
	records     map[string]*model.CredentialRecord
	upsertCalls int
	upsertErr   error
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{records: make(map[string]*model.CredentialRecord)}
}

func (f *fakeCredentialStore) Get(_ context.Context, employerID string) (*model.CredentialRecord, error) {
	rec, ok := f.records[employerID]
	if !ok {
		return nil, apperror.NotFound("calendar credentials", employerID)
	}
	copied := *rec
	return &copied, nil
}

func (f *fakeCredentialStore) Upsert(_ context.Context, employerID string, upd model.CredentialUpdate) (*model.CredentialRecord, error) {
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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestClientForNotConnected(t *testing.T) {
	store := newFakeCredentialStore()
	factory := NewClientFactory(NewGoogleProvider("id", "secret", "http://cb"), store, testLogger())

	// No record at all.
	_, err := factory.ClientFor(context.Background(), "emp-1")
	if !errors.Is(err, apperror.ErrNotConnected) {
		t.Errorf("ClientFor(no record) error = %v, want ErrNotConnected", err)
	}

	// Record exists but holds neither token.
	store.records["emp-2"] = &model.CredentialRecord{EmployerID: "emp-2"}
	_, err = factory.ClientFor(context.Background(), "emp-2")
	if !errors.Is(err, apperror.ErrNotConnected) {
		t.Errorf("ClientFor(empty record) error = %v, want ErrNotConnected", err)
	}
}

func TestClientForWithCredentials(t *testing.T) {
	store := newFakeCredentialStore()
	store.records["emp-1"] = &model.CredentialRecord{
		EmployerID:   "emp-1",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(time.Hour),
	}
	factory := NewClientFactory(NewGoogleProvider("id", "secret", "http://cb"), store, testLogger())

	client, err := factory.ClientFor(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("ClientFor() error = %v", err)
	}
	if client == nil {
		t.Fatal("ClientFor() returned nil client")
	}
}

func TestConnected(t *testing.T) {
	store := newFakeCredentialStore()
	store.records["emp-1"] = &model.CredentialRecord{EmployerID: "emp-1", RefreshToken: "r"}
	factory := NewClientFactory(NewGoogleProvider("id", "secret", "http://cb"), store, testLogger())

	connected, err := factory.Connected(context.Background(), "emp-1")
	if err != nil || !connected {
		t.Errorf("Connected(emp-1) = %v, %v; want true, nil", connected, err)
	}

	connected, err = factory.Connected(context.Background(), "emp-404")
	if err != nil || connected {
		t.Errorf("Connected(unknown) = %v, %v; want false, nil", connected, err)
	}
}

// staticTokenSource returns a fixed token, standing in for the oauth2
// transport performing a silent refresh.
type staticTokenSource struct {
	tok *oauth2.Token
	err error
}

func (s *staticTokenSource) Token() (*oauth2.Token, error) {
	return s.tok, s.err
}

func TestPersistingTokenSourceWritesBackRefreshedToken(t *testing.T) {
	store := newFakeCredentialStore()
	stored := &model.CredentialRecord{
		EmployerID:   "emp-1",
		AccessToken:  "access-old",
		RefreshToken: "refresh-1",
		Scope:        "calendar.events",
		TokenType:    "Bearer",
	}
	store.records["emp-1"] = stored

	refreshed := &oauth2.Token{
		AccessToken: "access-new",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}

	src := &persistingTokenSource{
		ctx:        context.Background(),
		inner:      &staticTokenSource{tok: refreshed},
		store:      store,
		logger:     testLogger(),
		employerID: "emp-1",
		last:       stored,
	}

	tok, err := src.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.AccessToken != "access-new" {
		t.Errorf("AccessToken = %q, want access-new", tok.AccessToken)
	}
	if store.upsertCalls != 1 {
		t.Fatalf("upsert calls = %d, want 1", store.upsertCalls)
	}

	rec := store.records["emp-1"]
	if rec.AccessToken != "access-new" {
		t.Errorf("persisted AccessToken = %q, want access-new", rec.AccessToken)
	}
	// The refresh event omitted the refresh token; the stored one survives.
	if rec.RefreshToken != "refresh-1" {
		t.Errorf("persisted RefreshToken = %q, want refresh-1", rec.RefreshToken)
	}

	// Same token again: no second write.
	if _, err := src.Token(); err != nil {
		t.Fatalf("second Token() error = %v", err)
	}
	if store.upsertCalls != 1 {
		t.Errorf("upsert calls after unchanged token = %d, want 1", store.upsertCalls)
	}
}

func TestPersistingTokenSourceToleratesWriteFailure(t *testing.T) {
	store := newFakeCredentialStore()
	stored := &model.CredentialRecord{EmployerID: "emp-1", AccessToken: "access-old"}
	store.records["emp-1"] = stored
	store.upsertErr = errors.New("disk full")

	src := &persistingTokenSource{
		ctx:        context.Background(),
		inner:      &staticTokenSource{tok: &oauth2.Token{AccessToken: "access-new"}},
		store:      store,
		logger:     testLogger(),
		employerID: "emp-1",
		last:       stored,
	}

	// The API call must still get its token even if persistence fails.
	tok, err := src.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.AccessToken != "access-new" {
		t.Errorf("AccessToken = %q, want access-new", tok.AccessToken)
	}
}

func TestMergeRefresh(t *testing.T) {
	old := &model.CredentialRecord{
		AccessToken:  "access-old",
		RefreshToken: "refresh-old",
		TokenType:    "Bearer",
		Expiry:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("omitted fields fall back to stored values", func(t *testing.T) {
		upd := MergeRefresh(old, &oauth2.Token{AccessToken: "access-new"})
		if upd.AccessToken != "access-new" {
			t.Errorf("AccessToken = %q, want access-new", upd.AccessToken)
		}
		if upd.RefreshToken != "refresh-old" {
			t.Errorf("RefreshToken = %q, want refresh-old", upd.RefreshToken)
		}
		if upd.TokenType != "Bearer" {
			t.Errorf("TokenType = %q, want Bearer", upd.TokenType)
		}
		if !upd.Expiry.Equal(old.Expiry) {
			t.Errorf("Expiry = %v, want %v", upd.Expiry, old.Expiry)
		}
	})

	t.Run("fresh fields win", func(t *testing.T) {
		expiry := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
		upd := MergeRefresh(old, &oauth2.Token{
			AccessToken:  "access-new",
			RefreshToken: "refresh-new",
			Expiry:       expiry,
		})
		if upd.RefreshToken != "refresh-new" {
			t.Errorf("RefreshToken = %q, want refresh-new", upd.RefreshToken)
		}
		if !upd.Expiry.Equal(expiry) {
			t.Errorf("Expiry = %v, want %v", upd.Expiry, expiry)
		}
	})

	t.Run("nil old record", func(t *testing.T) {
		upd := MergeRefresh(nil, &oauth2.Token{AccessToken: "a"})
		if upd.AccessToken != "a" || upd.RefreshToken != "" {
			t.Errorf("unexpected update: %+v", upd)
		}
	})
}
