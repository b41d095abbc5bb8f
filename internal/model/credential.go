package model

import "time"

// CredentialRecord holds one employer's calendar OAuth tokens.
//
// A missing refresh token after the first grant is abnormal (it means the
// provider re-consented without issuing one) but tolerated. Records are
// created on the first successful exchange and updated in place on every
// re-authorization or silent refresh; they are never deleted automatically.
type CredentialRecord struct {
	EmployerID   string    `json:"employerId"   db:"employer_id"`
	AccessToken  string    `json:"-"            db:"access_token"`
	RefreshToken string    `json:"-"            db:"refresh_token"`
	Scope        string    `json:"scope"        db:"scope"`
	TokenType    string    `json:"tokenType"    db:"token_type"`
	Expiry       time.Time `json:"expiry"       db:"expiry"`
	UpdatedAt    time.Time `json:"updatedAt"    db:"updated_at"`
}

// Connected reports whether the record holds any usable token. A record
// with neither token is equivalent to no credentials at all.
func (c *CredentialRecord) Connected() bool {
	return c != nil && (c.AccessToken != "" || c.RefreshToken != "")
}

// CredentialUpdate is a partial write to a CredentialRecord. Zero-valued
// fields keep whatever is currently stored; the store merges field by field
// so the auth flow and the silent-refresh listener never erase each other's
// writes.
type CredentialUpdate struct {
	AccessToken  string
	RefreshToken string
	Scope        string
	TokenType    string
	Expiry       time.Time
}
