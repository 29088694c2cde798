package authz

// Static role -> operation allow-lists. Anything not listed is denied; there
// is no explicit-deny list, so evaluation never has to arbitrate between a
// wildcard grant and a narrower deny.

// Role names assignable through memberships
const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RoleTechnician = "technician"
	RoleViewer     = "viewer"
)

// Wildcard grants every operation within the holder's tenant. Only the owner
// role carries it, and it never reaches across tenants because the tenant id
// is fixed before authorization runs.
const Wildcard = "*"

// Decision is the result of evaluating (role, operation)
type Decision struct {
	Allowed           bool   `json:"allowed"`
	MissingPermission string `json:"missing_permission,omitempty"`
}

var permissionTable = map[string]map[string]struct{}{
	RoleOwner: {
		Wildcard: {},
	},
	RoleAdmin: toSet(
		"customers:read", "customers:create", "customers:update", "customers:delete",
		"jobs:read", "jobs:create", "jobs:update", "jobs:delete", "jobs:assign",
		"appointments:read", "appointments:create", "appointments:update", "appointments:delete",
		"invoices:read", "invoices:create", "invoices:update", "invoices:send", "invoices:pdf",
		"materials:read", "materials:create", "materials:update", "materials:delete",
		"payments:create",
		"users:read", "users:invite",
		"audit:read",
	),
	RoleTechnician: toSet(
		"customers:read",
		"jobs:read", "jobs:update",
		"appointments:read", "appointments:update",
		"materials:read", "materials:update",
	),
	RoleViewer: toSet(
		"customers:read",
		"jobs:read",
		"appointments:read",
		"invoices:read",
		"materials:read",
	),
}

func toSet(ops ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ops))
	for _, op := range ops {
		set[op] = struct{}{}
	}
	return set
}

// Authorize decides whether role may perform operation. Pure function of its
// inputs; the table is immutable after init and safe for concurrent reads.
func Authorize(role, operation string) Decision {
	ops, ok := permissionTable[role]
	if !ok {
		return Decision{Allowed: false, MissingPermission: operation}
	}

	if _, ok := ops[Wildcard]; ok {
		return Decision{Allowed: true}
	}

	if _, ok := ops[operation]; ok {
		return Decision{Allowed: true}
	}

	return Decision{Allowed: false, MissingPermission: operation}
}

// Permissions returns the operations a role may perform, for UI affordance
// only. Enforcement always goes through Authorize server-side.
func Permissions(role string) []string {
	ops, ok := permissionTable[role]
	if !ok {
		return nil
	}

	perms := make([]string, 0, len(ops))
	for op := range ops {
		perms = append(perms, op)
	}
	return perms
}

// KnownRole reports whether a role name exists in the permission table
func KnownRole(role string) bool {
	_, ok := permissionTable[role]
	return ok
}
