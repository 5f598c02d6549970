package permission

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/tradepost/tradepost/internal/domain/principal"
)

func newEngine(whitelist ...int64) *Service {
	return NewService(whitelist, zerolog.Nop())
}

func TestAuthorizeInactiveDeniedRegardlessOfRole(t *testing.T) {
	svc := newEngine(1)
	p := &principal.Principal{ID: 1, Role: principal.RoleSuperAdmin, Active: false}
	for _, perm := range principal.PermissionsFor(principal.RoleSuperAdmin) {
		assert.False(t, svc.Authorize(p, perm), "inactive principal must be denied %s", perm)
	}
}

func TestAuthorizeRequiresWhitelist(t *testing.T) {
	svc := newEngine(1)
	p := &principal.Principal{ID: 2, Role: principal.RoleAdmin, Active: true}
	assert.False(t, svc.Authorize(p, principal.PermManageListings))
}

func TestAuthorizeModeratorLacksManageUsers(t *testing.T) {
	svc := newEngine(5)
	mod := &principal.Principal{ID: 5, Role: principal.RoleModerator, Active: true}
	assert.False(t, svc.Authorize(mod, principal.PermManageUsers))
	assert.False(t, svc.Authorize(mod, principal.PermBlockUsers))
	assert.True(t, svc.Authorize(mod, principal.PermWarnUsers))
	assert.True(t, svc.Authorize(mod, principal.PermManageListings))
}

func TestAuthorizeUnknownPermissionFailsClosed(t *testing.T) {
	svc := newEngine(1)
	p := &principal.Principal{ID: 1, Role: principal.RoleSuperAdmin, Active: true}
	assert.False(t, svc.Authorize(p, principal.Permission("unknown_capability")))
}

func TestAuthorizeNoneRoleDenied(t *testing.T) {
	svc := newEngine(9)
	p := &principal.Principal{ID: 9, Role: principal.RoleNone, Active: true}
	assert.False(t, svc.Authorize(p, principal.PermViewAnalytics))
	assert.False(t, svc.IsAdmin(p))
}

func TestAuthorizeNilPrincipal(t *testing.T) {
	svc := newEngine(1)
	assert.False(t, svc.Authorize(nil, principal.PermManageListings))
	assert.False(t, svc.IsAdmin(nil))
}
