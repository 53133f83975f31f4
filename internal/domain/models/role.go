// internal/domain/models/role.go
package models

import "strings"

// Role is a platform-wide permission level attached to a user account.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// roleLevels is the fixed total order used for minimum-role checks.
var roleLevels = map[Role]int{
	RoleUser:  1,
	RoleAdmin: 2,
}

// ParseRole normalizes s (case and surrounding space) into a Role.
// ok is false for anything other than USER or ADMIN.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := roleLevels[r]
	return r, ok
}

// Level returns the rank of r in the role hierarchy. Unknown roles rank 0,
// below every real role.
func (r Role) Level() int {
	return roleLevels[r]
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Level() > 0 && r.Level() >= min.Level()
}

// GroupRole is a per-membership permission level scoped to one group.
type GroupRole string

const (
	GroupRoleMember GroupRole = "MEMBER"
	GroupRoleAdmin  GroupRole = "ADMIN"
)

// ParseGroupRole normalizes s into a GroupRole.
func ParseGroupRole(s string) (GroupRole, bool) {
	r := GroupRole(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case GroupRoleMember, GroupRoleAdmin:
		return r, true
	}
	return "", false
}
