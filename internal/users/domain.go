package users

import "time"

// User is a credential record managed by administrators.
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
