package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/internmatch/internal/apperror"
	"github.com/sakif/internmatch/internal/model"
	"github.com/sakif/internmatch/internal/repository"
)

var _ repository.CredentialRepository = (*DB)(nil)

// Get returns the stored credential record for the employer, or NotFound if
// the employer never completed an authorization.
func (db *DB) Get(ctx context.Context, employerID string) (*model.CredentialRecord, error) {
	var (
		rec    model.CredentialRecord
		expiry sql.NullTime
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT employer_id, access_token, refresh_token, scope, token_type, expiry, updated_at
		 FROM calendar_credentials
		 WHERE employer_id = ?`,
		employerID,
	).Scan(
		&rec.EmployerID, &rec.AccessToken, &rec.RefreshToken,
		&rec.Scope, &rec.TokenType, &expiry, &rec.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("calendar credentials", employerID)
		}
		return nil, fmt.Errorf("sqlite: getting credentials for %s: %w", employerID, err)
	}
	if expiry.Valid {
		rec.Expiry = expiry.Time
	}

	return &rec, nil
}

// Upsert merges the update into the stored record field by field: zero-valued
// fields keep their previous values. Two writers touch this table (the
// authorization flow and the silent-refresh listener); the merge guarantees
// a partial write from one never erases fields last written by the other.
func (db *DB) Upsert(ctx context.Context, employerID string, upd model.CredentialUpdate) (*model.CredentialRecord, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning credential upsert: %w", err)
	}
	defer tx.Rollback()

	rec := model.CredentialRecord{EmployerID: employerID}
	var expiry sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, scope, token_type, expiry
		 FROM calendar_credentials
		 WHERE employer_id = ?`,
		employerID,
	).Scan(&rec.AccessToken, &rec.RefreshToken, &rec.Scope, &rec.TokenType, &expiry)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: reading credentials for %s: %w", employerID, err)
	}
	if expiry.Valid {
		rec.Expiry = expiry.Time
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
	rec.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO calendar_credentials
			(employer_id, access_token, refresh_token, scope, token_type, expiry, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(employer_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			scope = excluded.scope,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at`,
		rec.EmployerID, rec.AccessToken, rec.RefreshToken,
		rec.Scope, rec.TokenType, rec.Expiry, rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: upserting credentials for %s: %w", employerID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing credential upsert: %w", err)
	}

	return &rec, nil
}
