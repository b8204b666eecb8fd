package assets

import "time"

// Asset statuses.
const (
	StatusInStock    = "in_stock"
	StatusIssued     = "issued"
	StatusInRepair   = "in_repair"
	StatusRetired    = "retired"
)

// Statuses lists valid asset statuses.
func Statuses() []string {
	return []string{StatusInStock, StatusIssued, StatusInRepair, StatusRetired}
}

// Asset represents a tracked inventory item.
type Asset struct {
	ID             int64
	Tag            string
	Name           string
	Category       string
	SerialNumber   string
	Status         string
	AssignedTo     string
	WarrantyExpiry time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
