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

// The account and project directories belong to other subsystems; this is
// the minimal lookup surface the scheduler needs so the binary runs end to
// end. No business logic lives here.

var (
	_ repository.EmployerDirectory = (*DB)(nil)
	_ repository.InternDirectory   = (*DB)(nil)
	_ repository.ProjectDirectory  = (*DB)(nil)
)

func (db *DB) GetEmployer(ctx context.Context, id string) (*model.Employer, error) {
	var e model.Employer
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, contact_email, created_at FROM employers WHERE id = ?`, id,
	).Scan(&e.ID, &e.Name, &e.ContactEmail, &e.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("employer", id)
		}
		return nil, fmt.Errorf("sqlite: getting employer %s: %w", id, err)
	}
	return &e, nil
}

func (db *DB) CreateEmployer(ctx context.Context, e *model.Employer) error {
	if e.ID == "" {
		e.ID = xid.New().String()
	}
	e.CreatedAt = time.Now().UTC()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO employers (id, name, contact_email, created_at) VALUES (?, ?, ?, ?)`,
		e.ID, e.Name, e.ContactEmail, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating employer: %w", err)
	}
	return nil
}

func (db *DB) GetIntern(ctx context.Context, id string) (*model.Intern, error) {
	var in model.Intern
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM interns WHERE id = ?`, id,
	).Scan(&in.ID, &in.Name, &in.Email, &in.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("intern", id)
		}
		return nil, fmt.Errorf("sqlite: getting intern %s: %w", id, err)
	}
	return &in, nil
}

func (db *DB) CreateIntern(ctx context.Context, in *model.Intern) error {
	if in.ID == "" {
		in.ID = xid.New().String()
	}
	in.CreatedAt = time.Now().UTC()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO interns (id, name, email, created_at) VALUES (?, ?, ?, ?)`,
		in.ID, in.Name, in.Email, in.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating intern: %w", err)
	}
	return nil
}

func (db *DB) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, created_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Title, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("project", id)
		}
		return nil, fmt.Errorf("sqlite: getting project %s: %w", id, err)
	}
	return &p, nil
}

func (db *DB) CreateProject(ctx context.Context, p *model.Project) error {
	if p.ID == "" {
		p.ID = xid.New().String()
	}
	p.CreatedAt = time.Now().UTC()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO projects (id, title, created_at) VALUES (?, ?, ?)`,
		p.ID, p.Title, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating project: %w", err)
	}
	return nil
}
