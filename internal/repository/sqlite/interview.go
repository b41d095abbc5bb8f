package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/internmatch/internal/apperror"
	"github.com/sakif/internmatch/internal/model"
	"github.com/sakif/internmatch/internal/repository"
)

// Compile-time check that *DB implements the repository interface.
var _ repository.InterviewRepository = (*DB)(nil)

const interviewColumns = `id, employer_id, intern_id, project_id, timezone,
	slot1, slot2, slot3, selected_slot, status, meeting_link,
	calendar_event_id, notes, created_at, updated_at`

// Create inserts a new interview, assigning its id and timestamps.
func (db *DB) Create(ctx context.Context, iv *model.Interview) error {
	iv.ID = xid.New().String()

	now := time.Now().UTC()
	iv.CreatedAt = now
	iv.UpdatedAt = now
	if iv.Status == "" {
		iv.Status = model.StatusPending
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO interviews (id, employer_id, intern_id, project_id, timezone,
			slot1, slot2, slot3, selected_slot, status, meeting_link,
			calendar_event_id, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		iv.ID, iv.EmployerID, iv.InternID, iv.ProjectID, iv.Timezone,
		iv.Slot1, iv.Slot2, iv.Slot3, iv.SelectedSlot, iv.Status, iv.MeetingLink,
		iv.CalendarEventID, iv.Notes, iv.CreatedAt, iv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating interview: %w", err)
	}

	return nil
}

// GetByID retrieves a single interview by its id.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Interview, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE id = ?`, id)

	iv, err := scanInterview(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("interview", id)
		}
		return nil, fmt.Errorf("sqlite: getting interview %s: %w", id, err)
	}

	return iv, nil
}

// ListByEmployer returns the employer's interviews, newest first.
func (db *DB) ListByEmployer(ctx context.Context, employerID string) ([]model.Interview, error) {
	return db.listInterviews(ctx, "employer_id", employerID)
}

// ListByIntern returns the candidate's interviews, newest first.
func (db *DB) ListByIntern(ctx context.Context, internID string) ([]model.Interview, error) {
	return db.listInterviews(ctx, "intern_id", internID)
}

func (db *DB) listInterviews(ctx context.Context, column, value string) ([]model.Interview, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+interviewColumns+` FROM interviews
		 WHERE `+column+` = ?
		 ORDER BY created_at DESC, id DESC`,
		value,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing interviews by %s: %w", column, err)
	}
	defer rows.Close()

	var interviews []model.Interview
	for rows.Next() {
		iv, err := scanInterview(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning interview row: %w", err)
		}
		interviews = append(interviews, *iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating interviews: %w", err)
	}

	return interviews, nil
}

// Update writes all mutable fields and stamps updated_at.
func (db *DB) Update(ctx context.Context, iv *model.Interview) error {
	iv.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx, updateInterviewSQL+` WHERE id = ?`,
		updateInterviewArgs(iv, iv.ID)...)
	if err != nil {
		return fmt.Errorf("sqlite: updating interview %s: %w", iv.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("interview", iv.ID)
	}

	return nil
}

// UpdateFromStatus writes like Update but guarded on the row still holding
// the expected status. A row that exists with a different status means a
// concurrent transition won; the caller gets a conflict instead of silently
// overwriting it.
func (db *DB) UpdateFromStatus(ctx context.Context, iv *model.Interview, from model.InterviewStatus) error {
	iv.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx, updateInterviewSQL+` WHERE id = ? AND status = ?`,
		updateInterviewArgs(iv, iv.ID, string(from))...)
	if err != nil {
		return fmt.Errorf("sqlite: updating interview %s from %s: %w", iv.ID, from, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish "gone" from "status moved under us".
		var exists int
		err := db.conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM interviews WHERE id = ?`, iv.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("sqlite: checking interview %s: %w", iv.ID, err)
		}
		if exists == 0 {
			return apperror.NotFound("interview", iv.ID)
		}
		return apperror.Conflict("interview", iv.ID)
	}

	return nil
}

const updateInterviewSQL = `UPDATE interviews
	 SET selected_slot = ?, status = ?, meeting_link = ?,
	     calendar_event_id = ?, notes = ?, updated_at = ?`

func updateInterviewArgs(iv *model.Interview, where ...any) []any {
	args := []any{
		iv.SelectedSlot, iv.Status, iv.MeetingLink,
		iv.CalendarEventID, iv.Notes, iv.UpdatedAt,
	}
	return append(args, where...)
}

// scanInterview reads one row regardless of whether it came from QueryRow
// or a Rows iterator.
func scanInterview(scan func(dest ...any) error) (*model.Interview, error) {
	var iv model.Interview
	err := scan(
		&iv.ID, &iv.EmployerID, &iv.InternID, &iv.ProjectID, &iv.Timezone,
		&iv.Slot1, &iv.Slot2, &iv.Slot3, &iv.SelectedSlot, &iv.Status,
		&iv.MeetingLink, &iv.CalendarEventID, &iv.Notes,
		&iv.CreatedAt, &iv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &iv, nil
}
