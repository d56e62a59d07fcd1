package stubs

import (
	"github.com/brianvoe/gofakeit/v6"

	"orghierarchy/src/domain"
)

type CallerStub struct {
	caller domain.CallerContext
}

// NewCallerStub devolve um admin com acesso irrestrito à organização.
func NewCallerStub(organizationID string) CallerStub {
	return CallerStub{caller: domain.CallerContext{
		OrganizationID: organizationID,
		UserID:         gofakeit.Username(),
		Role:           domain.RoleAdmin,
	}}
}

func (cs CallerStub) WithRole(role domain.Role) CallerStub {
	cs.caller.Role = role
	return cs
}

func (cs CallerStub) WithBranches(names ...string) CallerStub {
	cs.caller.AllowedBranchNames = append([]string{}, names...)
	return cs
}

func (cs CallerStub) Get() domain.CallerContext {
	return cs.caller
}
