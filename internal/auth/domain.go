package auth

import "time"

// User represents a credential record. The password hash is the only
// representation of the password ever stored or compared.
type User struct {
	ID           int64
	Username     string
	Email        string
	Name         string
	RoleSlug     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
