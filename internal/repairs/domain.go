package repairs

import "time"

// Repair statuses.
const (
	StatusReported  = "reported"
	StatusInService = "in_service"
	StatusCompleted = "completed"
	StatusWrittenOff = "written_off"
)

// Statuses lists valid repair statuses.
func Statuses() []string {
	return []string{StatusReported, StatusInService, StatusCompleted, StatusWrittenOff}
}

// Repair represents a repair record for an asset.
type Repair struct {
	ID        int64
	AssetTag  string
	Defect    string
	Vendor    string
	CostCents int64
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
