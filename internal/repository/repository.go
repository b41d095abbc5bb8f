// Package repository declares the persistence interfaces consumed by the
// service layer. Implementations live in subpackages (sqlite); tests use
// in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/internmatch/internal/model"
)

// InterviewRepository is CRUD plus query persistence for interview records.
// No business validation lives here; the service layer enforces every
// invariant before this layer is invoked.
type InterviewRepository interface {
	Create(ctx context.Context, iv *model.Interview) error
	GetByID(ctx context.Context, id string) (*model.Interview, error)

	// ListByEmployer and ListByIntern return interviews newest first.
	ListByEmployer(ctx context.Context, employerID string) ([]model.Interview, error)
	ListByIntern(ctx context.Context, internID string) ([]model.Interview, error)

	// Update writes all mutable fields and stamps updated_at.
	Update(ctx context.Context, iv *model.Interview) error

	// UpdateFromStatus writes like Update but only if the row's status is
	// still `from`. When the row exists with a different status the update
	// is lost cleanly with a conflict error. This is the guard against two
	// concurrent slot selections racing on the same interview.
	UpdateFromStatus(ctx context.Context, iv *model.Interview, from model.InterviewStatus) error
}

// CredentialRepository is a durable employer id -> CredentialRecord mapping.
type CredentialRepository interface {
	// Get returns the stored record, or a NotFound error when the employer
	// has never completed an authorization.
	Get(ctx context.Context, employerID string) (*model.CredentialRecord, error)

	// Upsert merges the update into the stored record field by field:
	// zero-valued fields retain their previous values rather than being
	// nulled. Returns the merged record.
	Upsert(ctx context.Context, employerID string, upd model.CredentialUpdate) (*model.CredentialRecord, error)
}

// EmployerDirectory resolves employer accounts. Account storage is an
// external collaborator; this interface is the only coupling to it.
type EmployerDirectory interface {
	GetEmployer(ctx context.Context, id string) (*model.Employer, error)
	CreateEmployer(ctx context.Context, e *model.Employer) error
}

// InternDirectory resolves candidate accounts.
type InternDirectory interface {
	GetIntern(ctx context.Context, id string) (*model.Intern, error)
	CreateIntern(ctx context.Context, in *model.Intern) error
}

// ProjectDirectory resolves projects for display enrichment only.
type ProjectDirectory interface {
	GetProject(ctx context.Context, id string) (*model.Project, error)
	CreateProject(ctx context.Context, p *model.Project) error
}
