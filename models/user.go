package models

// User represents a human account authenticated via email/password.
// Humans have no TeamMember rows; their authority over a team is keyed
// off Team.CreatedByUser everywhere.
type User struct {
	Base
	Email string `gorm:"uniqueIndex;not null" json:"email"`
	// Stored verbatim for now; hashing is deferred until the auth
	// service is split out.
	Password string `gorm:"not null" json:"-"`
	Name     string `json:"name"`
}
