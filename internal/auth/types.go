package auth

import "errors"

// Role represents an authorisation tier.
type Role string

// Role constants.
const (
	// RoleViewer may read but not change anything.
	RoleViewer Role = "viewer"

	// RoleEditor may edit smart names and write states.
	RoleEditor Role = "editor"

	// RoleAdmin may additionally send adapter commands.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of valid roles.
var ValidRoles = []Role{RoleViewer, RoleEditor, RoleAdmin}

// IsValidRole returns true if r is a known role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if v == r {
			return true
		}
	}
	return false
}

// Domain errors for the auth package.
var (
	ErrTokenInvalid = errors.New("auth: invalid token")
	ErrTokenExpired = errors.New("auth: token has expired")
	ErrInvalidRole  = errors.New("auth: invalid role")
	ErrNoSecret     = errors.New("auth: signing secret not configured")
	ErrForbidden    = errors.New("auth: insufficient permissions")
)
