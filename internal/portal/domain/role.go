package domain

import (
	"fmt"
	"strings"
)

// Role is the single role vocabulary for farmers and administrators.
type Role string

const (
	RoleFarmer    Role = "farmer"
	RoleMainAdmin Role = "MAIN_ADMIN"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// ParseRole normalizes role spellings found in older data and tokens
// (FARMER, super_admin, main_admin, Admin) to the canonical values.
func ParseRole(s string) (Role, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch key {
	case "farmer":
		return RoleFarmer, nil
	case "main_admin", "super_admin", "superadmin":
		return RoleMainAdmin, nil
	case "admin":
		return RoleAdmin, nil
	case "moderator":
		return RoleModerator, nil
	}
	return "", fmt.Errorf("domain: unknown role %q", s)
}

// IsAdmin reports whether r is one of the administrator roles.
func (r Role) IsAdmin() bool {
	return r == RoleMainAdmin || r == RoleAdmin || r == RoleModerator
}
