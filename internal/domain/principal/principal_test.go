package principal

import "testing"

func TestRolePermissionsAreIndependent(t *testing.T) {
	if !RoleHas(RoleSuperAdmin, PermManageAdmins) {
		t.Fatal("super_admin must hold manage_admins")
	}
	if RoleHas(RoleAdmin, PermManageAdmins) {
		t.Fatal("admin must not hold manage_admins")
	}
	if RoleHas(RoleModerator, PermManageUsers) {
		t.Fatal("moderator must not hold manage_users")
	}
	if RoleHas(RoleModerator, PermBlockUsers) {
		t.Fatal("moderator must not hold block_users")
	}
	if !RoleHas(RoleModerator, PermWarnUsers) {
		t.Fatal("moderator must hold warn_users")
	}
	if !RoleHas(RoleAdmin, PermDeleteAnyListing) {
		t.Fatal("admin must hold delete_any_listing")
	}
}

func TestRoleHasFailsClosed(t *testing.T) {
	if RoleHas(RoleNone, PermManageListings) {
		t.Fatal("none role must hold nothing")
	}
	if RoleHas(Role("owner"), PermManageListings) {
		t.Fatal("unknown role must hold nothing")
	}
	if RoleHas(RoleSuperAdmin, Permission("launch_missiles")) {
		t.Fatal("unknown permission must be denied")
	}
}

func TestValidatePhone(t *testing.T) {
	valid := []string{"+1 555 123 4567", "89161234567", "(495) 123-45-67"}
	for _, v := range valid {
		if err := ValidatePhone(v); err != nil {
			t.Fatalf("expected %q valid: %v", v, err)
		}
	}
	invalid := []string{"12345", "phone", "+7abc5551234", "123456789012345678901"}
	for _, v := range invalid {
		if err := ValidatePhone(v); err == nil {
			t.Fatalf("expected %q invalid", v)
		}
	}
}

func TestDisplayName(t *testing.T) {
	p := &Principal{FirstName: "Ada", LastName: "L"}
	if p.DisplayName() != "Ada L" {
		t.Fatalf("unexpected display name %q", p.DisplayName())
	}
	p = &Principal{Username: "ada"}
	if p.DisplayName() != "@ada" {
		t.Fatalf("unexpected display name %q", p.DisplayName())
	}
}
