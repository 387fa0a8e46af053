package models

// Staff roles stored in account schemas and embedded in session tokens.
const (
	RoleOwner     = "owner"
	RoleAdmin     = "admin"
	RoleStylist   = "stylist"
	RoleReception = "reception"
)

// IsValidRole reports whether role is one of the known staff roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleStylist, RoleReception:
		return true
	default:
		return false
	}
}

// RequiresVerifiedEmail reports whether a role must confirm its address
// before logging in. Invited roles are trusted through the invitation itself.
func RequiresVerifiedEmail(role string) bool {
	return role == RoleOwner
}

// CanManageTeam reports whether a role may invite or deactivate staff.
func CanManageTeam(role string) bool {
	return role == RoleOwner || role == RoleAdmin
}
