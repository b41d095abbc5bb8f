package model

import "time"

// Employer is the slice of the employer account this subsystem needs:
// identity plus a contact email for calendar invitations. Account storage
// itself lives outside this service.
type Employer struct {
	ID           string    `json:"id"           db:"id"`
	Name         string    `json:"name"         db:"name"`
	ContactEmail string    `json:"contactEmail" db:"contact_email"` // may be empty
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
}

// Intern is the candidate side of an interview.
type Intern struct {
	ID        string    `json:"id"        db:"id"`
	Name      string    `json:"name"      db:"name"`
	Email     string    `json:"email"     db:"email"` // may be empty
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Project is referenced by interviews for display enrichment only.
type Project struct {
	ID        string    `json:"id"        db:"id"`
	Title     string    `json:"title"     db:"title"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
