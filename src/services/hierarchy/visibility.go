package hierarchy

import (
	"orghierarchy/src/domain"
)

// VisibilityPolicy decide quais papéis enxergam a organização inteira.
// Os demais só enxergam branches cujo nome está em AllowedBranchNames.
type VisibilityPolicy struct {
	elevated map[domain.Role]struct{}
}

func NewVisibilityPolicy(elevatedRoles ...domain.Role) VisibilityPolicy {
	if len(elevatedRoles) == 0 {
		elevatedRoles = []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin}
	}

	elevated := make(map[domain.Role]struct{}, len(elevatedRoles)+1)
	for _, role := range elevatedRoles {
		elevated[role] = struct{}{}
	}
	elevated[domain.RoleSystem] = struct{}{}

	return VisibilityPolicy{elevated: elevated}
}

func (p VisibilityPolicy) IsElevated(role domain.Role) bool {
	_, ok := p.elevated[role]
	return ok
}

// Filter monta o predicado de leitura: organização do caller, não deletado e,
// para papéis não elevados, nome na allow-list. Allow-list vazia não é erro,
// apenas não casa com nada.
func (p VisibilityPolicy) Filter(caller domain.CallerContext) domain.BranchFilter {
	filter := TenantScope(caller)

	if !p.IsElevated(caller.Role) {
		filter.RestrictNames = true
		filter.AllowedNames = append([]string{}, caller.AllowedBranchNames...)
	}

	return filter
}

// TenantScope é o escopo das mutações: só organização e não deletado.
func TenantScope(caller domain.CallerContext) domain.BranchFilter {
	return domain.BranchFilter{OrganizationID: caller.OrganizationID}
}
