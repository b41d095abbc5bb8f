package calendar

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/sakif/internmatch/internal/apperror"
	"github.com/sakif/internmatch/internal/model"
	"github.com/sakif/internmatch/internal/repository"
)

// ClientFactory produces an authenticated Calendar API client for a specific
// employer. If the oauth2 transport silently refreshes the access token
// during any call, the new token is written straight back to the credential
// store so the refresh is not lost between requests.
type ClientFactory struct {
	provider *GoogleProvider
	store    repository.CredentialRepository
	logger   *slog.Logger
}

func NewClientFactory(provider *GoogleProvider, store repository.CredentialRepository, logger *slog.Logger) *ClientFactory {
	return &ClientFactory{
		provider: provider,
		store:    store,
		logger:   logger,
	}
}

// ClientFor returns an *http.Client whose transport attaches and refreshes
// the employer's tokens. Returns a not-connected error when no usable
// credentials exist.
func (f *ClientFactory) ClientFor(ctx context.Context, employerID string) (*http.Client, error) {
	rec, err := f.store.Get(ctx, employerID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotConnected(employerID)
		}
		return nil, err
	}
	if !rec.Connected() {
		return nil, apperror.NotConnected(employerID)
	}

	seed := &oauth2.Token{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		TokenType:    rec.TokenType,
		Expiry:       rec.Expiry,
	}

	src := &persistingTokenSource{
		ctx:        ctx,
		inner:      f.provider.tokenSource(ctx, seed),
		store:      f.store,
		logger:     f.logger,
		employerID: employerID,
		last:       rec,
	}

	return oauth2.NewClient(ctx, src), nil
}

// Connected reports whether the employer has usable credentials. An absent
// record is simply "not connected", not an error.
func (f *ClientFactory) Connected(ctx context.Context, employerID string) (bool, error) {
	rec, err := f.store.Get(ctx, employerID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return rec.Connected(), nil
}

// persistingTokenSource wraps an oauth2.TokenSource and upserts any token
// the source mints that differs from the last persisted one. A failed
// write-back is logged, never allowed to fail the API call that triggered
// the refresh.
type persistingTokenSource struct {
	ctx        context.Context
	inner      oauth2.TokenSource
	store      repository.CredentialRepository
	logger     *slog.Logger
	employerID string

	mu   sync.Mutex
	last *model.CredentialRecord
}

var _ oauth2.TokenSource = (*persistingTokenSource)(nil)

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.inner.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok.AccessToken == s.last.AccessToken {
		return tok, nil
	}

	upd := MergeRefresh(s.last, tok)
	merged, err := s.store.Upsert(s.ctx, s.employerID, upd)
	if err != nil {
		s.logger.Warn("failed to persist refreshed calendar token",
			slog.String("employerID", s.employerID),
			slog.String("error", err.Error()),
		)
		return tok, nil
	}

	s.logger.Info("calendar token silently refreshed",
		slog.String("employerID", s.employerID),
	)
	s.last = merged

	return tok, nil
}

// MergeRefresh folds a refresh event into the stored record: fields the
// refresh omits fall back to the previously stored values. In particular a
// refresh response that carries no refresh token keeps the stored one.
// Pure function so the merge rules are testable on their own.
func MergeRefresh(old *model.CredentialRecord, tok *oauth2.Token) model.CredentialUpdate {
	upd := model.CredentialUpdate{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
	if old == nil {
		return upd
	}
	if upd.AccessToken == "" {
		upd.AccessToken = old.AccessToken
	}
	if upd.RefreshToken == "" {
		upd.RefreshToken = old.RefreshToken
	}
	if upd.TokenType == "" {
		upd.TokenType = old.TokenType
	}
	if upd.Expiry.IsZero() {
		upd.Expiry = old.Expiry
	}
	return upd
}
