package principal

import (
	"errors"
	"strings"
	"time"
)

// Role represents a moderation role.
type Role string

const (
	RoleNone       Role = ""
	RoleModerator  Role = "moderator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Permission represents a named moderation capability.
type Permission string

const (
	PermManageUsers        Permission = "manage_users"
	PermManageListings     Permission = "manage_listings"
	PermManageTransactions Permission = "manage_transactions"
	PermViewAnalytics      Permission = "view_analytics"
	PermManageAdmins       Permission = "manage_admins"
	PermViewAuditLog       Permission = "view_audit_log"
	PermEditAnyListing     Permission = "edit_any_listing"
	PermDeleteAnyListing   Permission = "delete_any_listing"
	PermBlockUsers         Permission = "block_users"
	PermWarnUsers          Permission = "warn_users"
)

// rolePermissions declares each role's permission set independently.
// No role's set is derived from another's; editing one table never
// silently grants capabilities to a different role.
var rolePermissions = map[Role]map[Permission]struct{}{
	RoleSuperAdmin: permSet(
		PermManageUsers, PermManageListings, PermManageTransactions,
		PermViewAnalytics, PermManageAdmins, PermViewAuditLog,
		PermEditAnyListing, PermDeleteAnyListing, PermBlockUsers, PermWarnUsers,
	),
	RoleAdmin: permSet(
		PermManageUsers, PermManageListings, PermManageTransactions,
		PermViewAnalytics, PermViewAuditLog,
		PermEditAnyListing, PermDeleteAnyListing, PermBlockUsers, PermWarnUsers,
	),
	RoleModerator: permSet(
		PermManageListings, PermWarnUsers, PermViewAnalytics, PermEditAnyListing,
	),
}

func permSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// RoleHas reports whether the role's declared set contains the permission.
// Unknown roles and unknown permissions both fail closed.
func RoleHas(role Role, perm Permission) bool {
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}

// PermissionsFor returns a copy of the role's declared permission set.
func PermissionsFor(role Role) []Permission {
	set, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	return perms
}

// Principal is any identity capable of driving a conversation.
type Principal struct {
	ID               int64      `json:"id"`
	Username         string     `json:"username,omitempty"`
	FirstName        string     `json:"firstName,omitempty"`
	LastName         string     `json:"lastName,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	Location         string     `json:"location,omitempty"`
	Bio              string     `json:"bio,omitempty"`
	Role             Role       `json:"role"`
	Active           bool       `json:"active"`
	Verified         bool       `json:"verified"`
	SuspensionReason string     `json:"suspensionReason,omitempty"`
	WarningCount     int        `json:"warningCount"`
	PasswordHash     string     `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	LastSeenAt       *time.Time `json:"lastSeenAt,omitempty"`
}

func (p *Principal) IsAdmin() bool {
	return p.Role != RoleNone && p.Active
}

// DisplayName mirrors how the chat transport labels an identity.
func (p *Principal) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name != "" {
		return name
	}
	if p.Username != "" {
		return "@" + p.Username
	}
	return "user"
}

func ValidateRole(role Role) error {
	switch role {
	case RoleNone, RoleModerator, RoleAdmin, RoleSuperAdmin:
		return nil
	default:
		return errors.New("invalid role")
	}
}

// ValidatePhone accepts loosely formatted phone numbers: digits with
// optional leading +, spaces, dashes and parentheses, 7 to 20 characters.
func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if len(phone) < 7 || len(phone) > 20 {
		return errors.New("phone number must be 7-20 characters")
	}
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return errors.New("phone number contains invalid characters")
		}
	}
	return nil
}

const maxBioLength = 500

func ValidateBio(bio string) error {
	if len(strings.TrimSpace(bio)) > maxBioLength {
		return errors.New("bio cannot exceed 500 characters")
	}
	return nil
}
