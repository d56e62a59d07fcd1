package repositories

import (
	"context"

	"orghierarchy/src/domain"
	"orghierarchy/src/domain/entities"
)

// BranchStore é o contrato de persistência da hierarquia.
//
// Leituras recebem um domain.BranchFilter (tenant + visibilidade, nunca deletados).
// Mutações são escopadas por (organização, id) e ignoram branches deletados.
// Child sets só mudam via AddChild/RemoveChild, que são atômicos no store.
type BranchStore interface {
	Insert(ctx context.Context, branch *entities.Branch) error
	Update(ctx context.Context, branch *entities.Branch) error

	FindOne(ctx context.Context, filter domain.BranchFilter, id string) (*entities.Branch, error)
	FindByName(ctx context.Context, organizationID string, name string) (*entities.Branch, error)
	Find(ctx context.Context, filter domain.BranchFilter, page Page) ([]entities.Branch, error)
	Count(ctx context.Context, filter domain.BranchFilter) (int64, error)

	// Subtree devolve a raiz e todos os descendentes que passam no filtro,
	// cada um uma única vez. Mais de limit nós resulta em domain.ErrClosureTooLarge.
	Subtree(ctx context.Context, filter domain.BranchFilter, rootID string, limit int) ([]entities.Branch, error)

	AddChild(ctx context.Context, organizationID string, parentID string, childID string) error
	RemoveChild(ctx context.Context, organizationID string, parentID string, childID string) error

	SetActive(ctx context.Context, organizationID string, id string, active bool) (*entities.Branch, error)
	SoftDelete(ctx context.Context, organizationID string, id string) error

	HealthCheck(ctx context.Context) error
}

// Page: Limit zero significa sem limite.
type Page struct {
	Offset int
	Limit  int
}
