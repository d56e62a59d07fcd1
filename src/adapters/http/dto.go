package http

import (
	"time"

	"orghierarchy/src/domain"
	"orghierarchy/src/domain/entities"
)

type AddressDTO struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zip_code"`
	Country    string `json:"country"`
}

type CreateBranchRequest struct {
	Name     string     `json:"name"`
	ParentID *string    `json:"parent_id"`
	IsRoot   *bool      `json:"is_root"`
	Address  AddressDTO `json:"address"`
}

// EditBranchRequest: campos ausentes não são alterados; "parent_id": "" desvincula do pai.
type EditBranchRequest struct {
	Name     *string     `json:"name"`
	ParentID *string     `json:"parent_id"`
	IsRoot   *bool       `json:"is_root"`
	Address  *AddressDTO `json:"address"`
}

type BranchResponse struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Name           string     `json:"name"`
	ParentID       *string    `json:"parent_id"`
	ChildIDs       []string   `json:"child_ids"`
	IsRoot         bool       `json:"is_root"`
	IsActive       bool       `json:"is_active"`
	Address        AddressDTO `json:"address"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type BranchListResponse struct {
	Items    []BranchResponse `json:"items"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// TreeResponse expõe apenas id, nome e filhos.
type TreeResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Children []*TreeResponse `json:"children"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func NewErrorResponse(status int, message string, details string) ErrorResponse {
	return ErrorResponse{Status: status, Message: message, Details: details}
}

func (r CreateBranchRequest) ToDomain() domain.CreateBranchRequest {
	return domain.CreateBranchRequest{
		Name:     r.Name,
		ParentID: r.ParentID,
		IsRoot:   r.IsRoot,
		Address:  r.Address.ToDomain(),
	}
}

func (r EditBranchRequest) ToDomain(id string) domain.EditBranchRequest {
	req := domain.EditBranchRequest{
		ID:       id,
		Name:     r.Name,
		ParentID: r.ParentID,
		IsRoot:   r.IsRoot,
	}
	if r.Address != nil {
		address := r.Address.ToDomain()
		req.Address = &address
	}
	return req
}

func (a AddressDTO) ToDomain() entities.Address {
	return entities.Address(a)
}

func MapBranchToResponse(b *entities.Branch) BranchResponse {
	childIDs := b.ChildIDs
	if childIDs == nil {
		childIDs = []string{}
	}

	return BranchResponse{
		ID:             b.ID,
		OrganizationID: b.OrganizationID,
		Name:           b.Name,
		ParentID:       b.ParentID,
		ChildIDs:       childIDs,
		IsRoot:         b.IsRoot,
		IsActive:       b.IsActive,
		Address:        AddressDTO(b.Address),
		CreatedBy:      b.CreatedBy,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

// MapTreeToResponse preserva o compartilhamento de subárvores: cada nó de domínio
// é convertido uma única vez.
func MapTreeToResponse(root *domain.TreeNode) *TreeResponse {
	mapped := make(map[*domain.TreeNode]*TreeResponse)
	return mapTreeNode(root, mapped)
}

func MapForestToResponse(forest []*domain.TreeNode) []*TreeResponse {
	response := make([]*TreeResponse, 0, len(forest))
	for _, tree := range forest {
		response = append(response, MapTreeToResponse(tree))
	}
	return response
}

func mapTreeNode(node *domain.TreeNode, mapped map[*domain.TreeNode]*TreeResponse) *TreeResponse {
	if existing, ok := mapped[node]; ok {
		return existing
	}

	response := &TreeResponse{
		ID:       node.ID,
		Name:     node.Name,
		Children: make([]*TreeResponse, 0, len(node.Children)),
	}
	mapped[node] = response

	for _, child := range node.Children {
		response.Children = append(response.Children, mapTreeNode(child, mapped))
	}

	return response
}
