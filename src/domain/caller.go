package domain

import "strings"

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleStaff      Role = "staff"

	// RoleSystem é usado por processos internos (import, datagen).
	RoleSystem Role = "system"
)

// CallerContext é resolvido fora do serviço (token) e consumido como dado opaco.
type CallerContext struct {
	OrganizationID     string
	UserID             string
	Role               Role
	AllowedBranchNames []string
}

func ParseRoles(raw []string) []Role {
	roles := make([]Role, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(strings.ToLower(r))
		if r != "" {
			roles = append(roles, Role(r))
		}
	}
	return roles
}
