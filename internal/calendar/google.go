// Package calendar integrates with the Google Calendar provider: the OAuth
// authorization-code flow, per-employer authenticated clients, and meeting
// creation with an attached video conference.
//
// The flow mirrors any authorization-code integration:
//  1. The server redirects the employer to Google's consent page.
//  2. Google redirects back with a short-lived code.
//  3. The server exchanges the code for access/refresh tokens
//     (server-to-server, using the client secret).
//  4. Stored tokens authenticate Calendar API calls; the oauth2 transport
//     refreshes the access token silently when it expires.
package calendar

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/sakif/internmatch/internal/apperror"
)

// scopeCalendarEvents grants read/write access to events only, not the whole
// calendar.
const scopeCalendarEvents = "https://www.googleapis.com/auth/calendar.events"

// GoogleProvider wraps golang.org/x/oauth2 for Google's authorization-code
// flow. Construction never fails; an unconfigured provider reports a
// configuration error at call time so the server can still start without
// Google credentials.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a provider with the given OAuth app credentials.
// callbackURL must exactly match a redirect URI registered in the Google
// Cloud console.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{scopeCalendarEvents},
			Endpoint:     google.Endpoint,
		},
	}
}

// ready reports whether OAuth client credentials are configured.
func (p *GoogleProvider) ready() error {
	if p.config.ClientID == "" || p.config.ClientSecret == "" {
		return apperror.Configuration("google OAuth client credentials are not configured")
	}
	return nil
}

// AuthCodeURL returns the consent-page URL with the signed state embedded.
//
// AccessTypeOffline asks for a refresh token; ApprovalForce re-prompts for
// consent so a refresh token is issued even when the employer re-authorizes
// an app they already approved.
func (p *GoogleProvider) AuthCodeURL(state string) (string, error) {
	if err := p.ready(); err != nil {
		return "", err
	}
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Exchange trades an authorization code for tokens. Provider rejection is
// reported as an exchange error; the caller must not have written any
// credential fields before calling this.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.ExchangeFailed(err)
	}
	return tok, nil
}

// tokenSource returns an auto-refreshing source seeded with tok.
func (p *GoogleProvider) tokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return p.config.TokenSource(ctx, tok)
}
