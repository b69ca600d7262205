package domain

import "strings"

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// ParseRole converts s to a Role, reporting false for anything outside the set.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// RoleSet is a bitset over Role.
type RoleSet uint8

const (
	roleBitAdmin RoleSet = 1 << iota
	roleBitModerator
	roleBitUser
)

// NewRoleSet builds a set from roles. Unknown roles are ignored.
func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s |= r.bit()
	}
	return s
}

// Has reports whether r is a member of s.
func (s RoleSet) Has(r Role) bool {
	bit := r.bit()
	return bit != 0 && s&bit != 0
}

// Roles lists the members of s in a stable order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, 3)
	for _, r := range []Role{RoleAdmin, RoleModerator, RoleUser} {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

func (r Role) bit() RoleSet {
	switch r {
	case RoleAdmin:
		return roleBitAdmin
	case RoleModerator:
		return roleBitModerator
	case RoleUser:
		return roleBitUser
	default:
		return 0
	}
}
