package calendar

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/sakif/internmatch/internal/apperror"
)

// stateTTL bounds how long an authorization redirect stays valid. Long
// enough for the employer to click through the consent screen, short enough
// to limit replay.
const stateTTL = 10 * time.Minute

const stateIssuer = "internmatch-calendar"

// StateSigner mints and verifies the OAuth state parameter: a signed token
// tying a random nonce to an employer id. Nothing the browser round-trips
// is trusted until the signature verifies, so a callback cannot attach
// credentials to a different employer than the one that started the flow.
//
// The token is an HS256 JWT: subject = employer id, jti = nonce. HMAC
// verification inside the jwt library is constant-time.
type StateSigner struct {
	secret []byte
}

// NewStateSigner creates a signer. The secret must be server-held and at
// least 16 characters; an empty secret is a configuration error surfaced at
// startup rather than on the first callback.
func NewStateSigner(secret string) (*StateSigner, error) {
	if len(secret) < 16 {
		return nil, apperror.Configuration("state secret must be at least 16 characters")
	}
	return &StateSigner{secret: []byte(secret)}, nil
}

type stateClaims struct {
	jwt.RegisteredClaims
}

// Sign mints a state token for the employer.
func (s *StateSigner) Sign(employerID string) (string, error) {
	now := time.Now()

	c := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   employerID,
			ID:        xid.New().String(), // random nonce
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
			Issuer:    stateIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperror.Configuration("signing state token: " + err.Error())
	}

	return signed, nil
}

// Verify checks the signature and shape of a state token and returns the
// employer id it was minted for. Any failure, including a single flipped
// bit, is an invalid-state error and no code exchange may be attempted.
func (s *StateSigner) Verify(state string) (string, error) {
	if state == "" {
		return "", apperror.InvalidState("authorization state is missing")
	}

	token, err := jwt.ParseWithClaims(
		state,
		&stateClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperror.InvalidState("authorization state has expired")
		}
		return "", apperror.InvalidState("authorization state failed verification")
	}

	c, ok := token.Claims.(*stateClaims)
	if !ok || !token.Valid {
		return "", apperror.InvalidState("authorization state claims are malformed")
	}
	if c.Subject == "" || c.ID == "" {
		return "", apperror.InvalidState("authorization state is missing required fields")
	}

	return c.Subject, nil
}
