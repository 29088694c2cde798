package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize_DenyByDefault(t *testing.T) {
	tests := []struct {
		name      string
		role      string
		operation string
	}{
		{"viewer cannot delete jobs", RoleViewer, "jobs:delete"},
		{"viewer cannot create customers", RoleViewer, "customers:create"},
		{"technician cannot read invoices", RoleTechnician, "invoices:read"},
		{"technician cannot read audit logs", RoleTechnician, "audit:read"},
		{"admin cannot delete invoices", RoleAdmin, "invoices:delete"},
		{"unknown role denied everything", "superuser", "jobs:read"},
		{"empty role denied", "", "jobs:read"},
		{"unlisted operation denied for admin", RoleAdmin, "tenants:delete"},
		{"wildcard is not grantable as an operation", RoleViewer, Wildcard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Authorize(tt.role, tt.operation)
			assert.False(t, decision.Allowed)
			assert.Equal(t, tt.operation, decision.MissingPermission)
		})
	}
}

func TestAuthorize_AllowListed(t *testing.T) {
	tests := []struct {
		name      string
		role      string
		operation string
	}{
		{"admin deletes jobs", RoleAdmin, "jobs:delete"},
		{"admin reads audit logs", RoleAdmin, "audit:read"},
		{"technician updates jobs", RoleTechnician, "jobs:update"},
		{"viewer reads invoices", RoleViewer, "invoices:read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Authorize(tt.role, tt.operation)
			assert.True(t, decision.Allowed)
			assert.Empty(t, decision.MissingPermission)
		})
	}
}

func TestAuthorize_OwnerWildcard(t *testing.T) {
	for _, op := range []string{
		"jobs:delete", "invoices:delete", "users:remove", "tenants:update",
		"some:future:operation",
	} {
		decision := Authorize(RoleOwner, op)
		assert.True(t, decision.Allowed, "owner should be allowed %s", op)
	}
}

func TestAuthorize_DenialIsTerminal(t *testing.T) {
	// Denial carries the missing permission and nothing else; there is no
	// partial grant to inspect.
	decision := Authorize(RoleViewer, "jobs:delete")
	assert.False(t, decision.Allowed)
	assert.Equal(t, "jobs:delete", decision.MissingPermission)
}

func TestPermissions(t *testing.T) {
	viewerPerms := Permissions(RoleViewer)
	assert.Contains(t, viewerPerms, "jobs:read")
	assert.NotContains(t, viewerPerms, "jobs:delete")

	ownerPerms := Permissions(RoleOwner)
	assert.Equal(t, []string{Wildcard}, ownerPerms)

	assert.Nil(t, Permissions("no-such-role"))
}

func TestKnownRole(t *testing.T) {
	assert.True(t, KnownRole(RoleOwner))
	assert.True(t, KnownRole(RoleViewer))
	assert.False(t, KnownRole("root"))
}
