package employees

import "time"

// Employee represents a personnel record.
type Employee struct {
	ID           int64
	Name         string
	Email        string
	DepartmentID int64
	Position     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Department groups employees.
type Department struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
