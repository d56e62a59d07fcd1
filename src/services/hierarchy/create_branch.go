package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"orghierarchy/src/domain"
	"orghierarchy/src/domain/entities"
)

// Create persiste um novo branch. Com ParentID, o novo id entra no childIds do pai
// via add-to-set. Pai inexistente não é erro: o branch é criado sem pai.
func (s *BranchService) Create(ctx context.Context, caller domain.CallerContext, req domain.CreateBranchRequest) (*entities.Branch, error) {
	if err := s.validateCaller(caller); err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	if err := s.ensureNameAvailable(ctx, caller.OrganizationID, req.Name, ""); err != nil {
		return nil, fmt.Errorf("BranchService.Create - %w", err)
	}

	parent, err := s.resolveCreateParent(ctx, caller, req.ParentID)
	if err != nil {
		return nil, fmt.Errorf("BranchService.Create - %w", err)
	}

	now := s.now()
	branch := &entities.Branch{
		ID:             s.newID(),
		Name:           req.Name,
		OrganizationID: caller.OrganizationID,
		ChildIDs:       []string{},
		IsRoot:         parent == nil,
		IsActive:       true,
		IsDeleted:      false,
		Address:        req.Address,
		CreatedBy:      caller.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if parent != nil {
		branch.ParentID = &parent.ID
	}
	if req.IsRoot != nil {
		branch.IsRoot = *req.IsRoot
	}

	if err := s.store.Insert(ctx, branch); err != nil {
		return nil, fmt.Errorf("BranchService.Create - failed to insert branch: %w", err)
	}

	if parent != nil {
		err := s.store.AddChild(ctx, caller.OrganizationID, parent.ID, branch.ID)
		if errors.Is(err, domain.ErrBranchNotFound) {
			// pai deletado entre o lookup e o add-to-set
			s.logger.Warn("Parent branch vanished before link, keeping branch parentless",
				"organization_id", caller.OrganizationID,
				"branch_id", branch.ID,
				"parent_id", parent.ID)

			branch.ParentID = nil
			if req.IsRoot == nil {
				branch.IsRoot = true
			}
			if err := s.store.Update(ctx, branch); err != nil {
				return nil, fmt.Errorf("BranchService.Create - failed to unlink vanished parent: %w", err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("BranchService.Create - failed to link branch to parent: %w", err)
		}
	}

	s.logger.Info("Branch created",
		"organization_id", branch.OrganizationID,
		"branch_id", branch.ID,
		"parent_id", branch.ParentIDValue())

	s.publish(ctx, caller, domain.EventBranchCreated, *branch, "")

	return branch, nil
}

func (s *BranchService) resolveCreateParent(ctx context.Context, caller domain.CallerContext, parentID *string) (*entities.Branch, error) {
	if parentID == nil || strings.TrimSpace(*parentID) == "" {
		return nil, nil
	}

	parent, err := s.store.FindOne(ctx, TenantScope(caller), strings.TrimSpace(*parentID))
	if errors.Is(err, domain.ErrBranchNotFound) {
		s.logger.Warn("Parent branch not found, creating branch without parent",
			"organization_id", caller.OrganizationID,
			"parent_id", *parentID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve parent: %w", err)
	}

	return parent, nil
}

// ensureNameAvailable checa a unicidade (organização, nome) entre não deletados.
// O índice único do store continua sendo a garantia final contra corridas.
func (s *BranchService) ensureNameAvailable(ctx context.Context, organizationID string, name string, exceptID string) error {
	existing, err := s.store.FindByName(ctx, organizationID, name)
	if errors.Is(err, domain.ErrBranchNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check name uniqueness: %w", err)
	}

	if existing.ID == exceptID {
		return nil
	}

	return fmt.Errorf("name %q: %w", name, domain.ErrBranchAlreadyExists)
}
