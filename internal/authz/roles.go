package authz

import "fmt"

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

func (r Role) String() string { return string(r) }

// ParseRole accepts only the exact lower-case role names.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Requirement is what a protected route demands from the caller's role.
type Requirement string

const (
	RequireAdmin Requirement = "admin"
	RequireUser  Requirement = "user"
	RequireBoth  Requirement = "both"
)

func (q Requirement) Valid() bool {
	switch q {
	case RequireAdmin, RequireUser, RequireBoth:
		return true
	}
	return false
}

// Allows reports whether a token carrying role r satisfies the requirement.
// "both" accepts any valid role, the others need an exact match.
func (q Requirement) Allows(r Role) bool {
	if !r.Valid() {
		return false
	}
	switch q {
	case RequireBoth:
		return true
	case RequireAdmin, RequireUser:
		return string(q) == string(r)
	}
	return false
}
