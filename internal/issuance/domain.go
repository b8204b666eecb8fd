package issuance

import "time"

// Issuance statuses.
const (
	StatusIssued   = "issued"
	StatusReturned = "returned"
	StatusLost     = "lost"
)

// Statuses lists valid issuance statuses.
func Statuses() []string {
	return []string{StatusIssued, StatusReturned, StatusLost}
}

// Issuance represents an asset handed out to an employee.
type Issuance struct {
	ID         int64
	Reference  string
	AssetTag   string
	EmployeeID int64
	Status     string
	IssuedAt   time.Time
	ReturnedAt time.Time
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
