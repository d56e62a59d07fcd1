package domain

import (
	"time"

	"orghierarchy/src/domain/entities"
)

// ############################################################
// ############ PROCESSO DE LEITURA DA HIERARQUIA #############
// ############################################################

// BranchFilter é o predicado de tenant/visibilidade aplicado a toda leitura.
// Deleted branches never match.
type BranchFilter struct {
	OrganizationID string
	RestrictNames  bool
	AllowedNames   []string
	RootsOnly      bool
}

// Matches avalia o mesmo predicado que os stores traduzem para SQL/BSON.
func (f BranchFilter) Matches(b entities.Branch) bool {
	if b.IsDeleted || b.OrganizationID != f.OrganizationID {
		return false
	}
	if f.RootsOnly && !b.IsRoot {
		return false
	}
	if !f.RestrictNames {
		return true
	}
	for _, name := range f.AllowedNames {
		if name == b.Name {
			return true
		}
	}
	return false
}

// Empty indica um filtro restrito que nunca pode casar com nada.
func (f BranchFilter) Empty() bool {
	return f.RestrictNames && len(f.AllowedNames) == 0
}

// FlatNode é a tupla mínima que o assembler consome.
type FlatNode struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ChildIDs []string `json:"child_ids"`
}

func FlatNodeFrom(b entities.Branch) FlatNode {
	return FlatNode{ID: b.ID, Name: b.Name, ChildIDs: b.ChildIDs}
}

// TreeNode é o nó de saída. Subárvores alcançáveis por mais de um pai são
// compartilhadas (mesmo ponteiro), então a árvore é somente leitura após montada.
type TreeNode struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Children []*TreeNode `json:"children"`
}

// Edge identifica uma referência pai -> filho.
type Edge struct {
	ParentID string
	ChildID  string
}

type BranchPage struct {
	Items    []entities.Branch
	Total    int64
	Page     int
	PageSize int
}

// ############################################################
// ############ PROCESSO DE ESCRITA DA HIERARQUIA #############
// ############################################################

type CreateBranchRequest struct {
	Name     string           `validate:"required,min=1,max=120"`
	ParentID *string          `validate:"-"`
	IsRoot   *bool            `validate:"-"`
	Address  entities.Address `validate:"-"`
}

// EditBranchRequest: campos nil não são alterados. ParentID apontando para ""
// desvincula o branch do pai atual.
type EditBranchRequest struct {
	ID       string            `validate:"required"`
	Name     *string           `validate:"omitempty,min=1,max=120"`
	ParentID *string           `validate:"-"`
	IsRoot   *bool             `validate:"-"`
	Address  *entities.Address `validate:"-"`
}

// ############################################################
// ################## EVENTOS DE DOMÍNIO ######################
// ############################################################

const (
	EventBranchCreated   = "branch.created"
	EventBranchUpdated   = "branch.updated"
	EventBranchMoved     = "branch.moved"
	EventBranchBlocked   = "branch.blocked"
	EventBranchUnblocked = "branch.unblocked"
	EventBranchDeleted   = "branch.deleted"
)

type BranchEvent struct {
	EventID        string          `json:"event_id"`
	EventType      string          `json:"event_type"`
	OrganizationID string          `json:"organization_id"`
	OccurredAt     time.Time       `json:"occurred_at"`
	TriggeredBy    string          `json:"triggered_by"`
	PreviousParent string          `json:"previous_parent_id,omitempty"`
	Data           entities.Branch `json:"data"`
}
