package rbac

// Built-in role slugs. These roles are seeded into the roles table on
// first start and carry the system flag that protects them from deletion.
const (
	RoleAdministrator = "administrator"
	RoleManager       = "manager"
	RoleTechnician    = "technician"
	RoleEmployee      = "employee"
)

var allActions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

func fullGrants() []Grant {
	grants := make([]Grant, 0, len(Resources()))
	for _, res := range Resources() {
		grants = append(grants, Grant{Resource: res, Actions: allActions})
	}
	return grants
}

// BuiltinRoles returns the seed table. The persisted roles table is the
// source of truth at runtime; this table only populates it when empty.
func BuiltinRoles() []Role {
	return []Role{
		{
			Slug:     RoleAdministrator,
			Name:     "Administrator",
			Grants:   fullGrants(),
			IsSystem: true,
			IsActive: true,
		},
		{
			Slug: RoleManager,
			Name: "Manager",
			Grants: []Grant{
				{Resource: ResourceAssets, Actions: allActions},
				{Resource: ResourceTickets, Actions: allActions},
				{Resource: ResourceRepairs, Actions: allActions},
				{Resource: ResourceIssuance, Actions: allActions},
				{Resource: ResourceEmployees, Actions: allActions},
				{Resource: ResourceDepartments, Actions: allActions},
				{Resource: ResourceKnowledgeBase, Actions: allActions},
				{Resource: ResourceReports, Actions: []Action{ActionRead}},
			},
			IsSystem: true,
			IsActive: true,
		},
		{
			Slug: RoleTechnician,
			Name: "Technician",
			Grants: []Grant{
				{Resource: ResourceAssets, Actions: []Action{ActionRead, ActionUpdate}},
				{Resource: ResourceTickets, Actions: []Action{ActionCreate, ActionRead, ActionUpdate}},
				{Resource: ResourceRepairs, Actions: allActions},
				{Resource: ResourceIssuance, Actions: []Action{ActionCreate, ActionRead, ActionUpdate}},
				{Resource: ResourceKnowledgeBase, Actions: []Action{ActionCreate, ActionRead, ActionUpdate}},
			},
			IsSystem: true,
			IsActive: true,
		},
		{
			Slug: RoleEmployee,
			Name: "Employee",
			Grants: []Grant{
				{Resource: ResourceTickets, Actions: []Action{ActionCreate, ActionRead}},
				{Resource: ResourceKnowledgeBase, Actions: []Action{ActionRead}},
			},
			IsSystem: true,
			IsActive: true,
		},
	}
}
