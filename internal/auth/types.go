package auth

import (
	"errors"
	"regexp"
)

// usernamePattern defines the valid format for operator usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleViewer is read-only: dashboards and exports, no mutations.
	RoleViewer Role = "viewer"

	// RoleOperator runs the factory day to day: placing machines, setting
	// recipes, feeding ports, pausing the clock.
	RoleOperator Role = "operator"

	// RoleAdmin has full control including blueprint imports and anything
	// destructive.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles a configured operator may carry.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin}

// IsValidRole returns true if the role is one of the configured tiers.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// CanMutate returns true if the role may call mutating endpoints. Viewers
// cannot.
func (r Role) CanMutate() bool {
	return r == RoleOperator || r == RoleAdmin
}

// Operator is one config-declared credential set.
type Operator struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // PHC string, never serialised
	Role         Role   `json:"role"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrForbidden          = errors.New("insufficient permissions")
)
