package rbac

import (
	"fmt"
	"time"
)

// Resource identifies an entity domain subject to access control.
type Resource string

// Action identifies an operation on a resource.
type Action string

// Closed resource enumeration. Role grants may only reference these.
const (
	ResourceAssets        Resource = "assets"
	ResourceTickets       Resource = "tickets"
	ResourceRepairs       Resource = "repairs"
	ResourceIssuance      Resource = "issuance"
	ResourceEmployees     Resource = "employees"
	ResourceDepartments   Resource = "departments"
	ResourceKnowledgeBase Resource = "knowledgebase"
	ResourceReports       Resource = "reports"
	ResourceUsers         Resource = "users"
	ResourceRoles         Resource = "roles"
)

// Canonical action enumeration.
const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Resources lists every access-controlled resource in display order.
func Resources() []Resource {
	return []Resource{
		ResourceAssets,
		ResourceTickets,
		ResourceRepairs,
		ResourceIssuance,
		ResourceEmployees,
		ResourceDepartments,
		ResourceKnowledgeBase,
		ResourceReports,
		ResourceUsers,
		ResourceRoles,
	}
}

// Actions lists the canonical actions.
func Actions() []Action {
	return []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
}

// ParseResource validates a resource string at the boundary where it
// enters the system (role administration, form input).
func ParseResource(s string) (Resource, error) {
	for _, r := range Resources() {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("rbac: unknown resource %q", s)
}

// ParseAction validates an action string at the boundary.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("rbac: unknown action %q", s)
}

// Grant allows a set of actions on a single resource. Within one role a
// resource appears at most once.
type Grant struct {
	Resource Resource `json:"resource"`
	Actions  []Action `json:"actions"`
}

// Role represents a named collection of grants assigned to users.
type Role struct {
	Slug      string
	Name      string
	Grants    []Grant
	IsSystem  bool
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Allows reports whether the role's grants permit action on resource.
// Absence of a grant means deny; the model is a whitelist.
func (r Role) Allows(resource Resource, action Action) bool {
	if !r.IsActive {
		return false
	}
	for _, g := range r.Grants {
		if g.Resource != resource {
			continue
		}
		for _, a := range g.Actions {
			if a == action {
				return true
			}
		}
		return false
	}
	return false
}
