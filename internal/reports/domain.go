package reports

import "time"

// Summary aggregates inventory and workload counts for the dashboard.
type Summary struct {
	AssetsByStatus  map[string]int64 `json:"assets_by_status"`
	TicketsByStatus map[string]int64 `json:"tickets_by_status"`
	OpenRepairs     int64            `json:"open_repairs"`
	ActiveIssuances int64            `json:"active_issuances"`
	GeneratedAt     time.Time        `json:"generated_at"`
}
