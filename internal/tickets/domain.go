package tickets

import "time"

// Ticket statuses and the allowed transitions between them.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

// Ticket priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Statuses lists valid ticket statuses.
func Statuses() []string {
	return []string{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}
}

// Priorities lists valid priorities.
func Priorities() []string {
	return []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

var transitions = map[string][]string{
	StatusOpen:       {StatusInProgress, StatusResolved, StatusClosed},
	StatusInProgress: {StatusResolved, StatusClosed, StatusOpen},
	StatusResolved:   {StatusClosed, StatusOpen},
	StatusClosed:     {StatusOpen},
}

// CanTransition reports whether a ticket may move from one status to
// another. Setting the same status again is always allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Ticket represents a support request.
type Ticket struct {
	ID         int64
	Subject    string
	Body       string
	Status     string
	Priority   string
	Requester  string
	AssignedTo string
	AssetTag   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
