package entities

import (
	"slices"
	"time"
)

// É o "nó" da hierarquia organizacional. Cada branch conhece apenas
// seus filhos diretos; a árvore é remontada em memória na leitura.
type Branch struct {
	ID             string     `json:"id" bson:"_id"`
	Name           string     `json:"name" bson:"name"`
	OrganizationID string     `json:"organization_id" bson:"organizationId"`
	ParentID       *string    `json:"parent_id,omitempty" bson:"parentId,omitempty"`
	ChildIDs       []string   `json:"child_ids" bson:"childIds"`
	IsRoot         bool       `json:"is_root" bson:"isRoot"`
	IsActive       bool       `json:"is_active" bson:"isActive"`
	IsDeleted      bool       `json:"is_deleted" bson:"isDeleted"`
	Address        Address    `json:"address" bson:"address"`
	CreatedBy      string     `json:"created_by" bson:"createdBy"`
	CreatedAt      time.Time  `json:"created_at" bson:"createdAt"`
	UpdatedAt      time.Time  `json:"updated_at" bson:"updatedAt"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" bson:"deletedAt,omitempty"`
}

// Address é um payload opaco para a hierarquia.
type Address struct {
	Street     string `json:"street,omitempty" bson:"street,omitempty"`
	Number     string `json:"number,omitempty" bson:"number,omitempty"`
	Complement string `json:"complement,omitempty" bson:"complement,omitempty"`
	District   string `json:"district,omitempty" bson:"district,omitempty"`
	City       string `json:"city,omitempty" bson:"city,omitempty"`
	State      string `json:"state,omitempty" bson:"state,omitempty"`
	ZipCode    string `json:"zip_code,omitempty" bson:"zipCode,omitempty"`
	Country    string `json:"country,omitempty" bson:"country,omitempty"`
}

func (b Branch) HasChild(id string) bool {
	return slices.Contains(b.ChildIDs, id)
}

func (b Branch) ParentIDValue() string {
	if b.ParentID == nil {
		return ""
	}
	return *b.ParentID
}
