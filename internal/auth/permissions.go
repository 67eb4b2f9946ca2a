package auth

// Permission represents a named capability.
type Permission string

// Permission constants.
const (
	PermObjectRead     Permission = "object:read"
	PermSmartNameWrite Permission = "smartname:write"
	PermStateWrite     Permission = "state:write"
	PermBrowse         Permission = "browse"
	PermAdapterCommand Permission = "adapter:command"
	PermAppMessage     Permission = "app:message"
	PermAuditRead      Permission = "audit:read"
)

// rolePermissions maps each role to its granted permissions.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermObjectRead,
		PermBrowse,
	},
	RoleEditor: {
		PermObjectRead,
		PermBrowse,
		PermSmartNameWrite,
		PermStateWrite,
		PermAppMessage,
	},
	RoleAdmin: {
		PermObjectRead,
		PermBrowse,
		PermSmartNameWrite,
		PermStateWrite,
		PermAppMessage,
		PermAdapterCommand,
		PermAuditRead,
	},
}

// HasPermission returns true if role has perm.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns a copy of the permissions granted to role.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}
