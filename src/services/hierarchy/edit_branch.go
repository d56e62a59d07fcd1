package hierarchy

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"orghierarchy/src/domain"
	"orghierarchy/src/domain/entities"
)

// Edit altera nome, endereço, flag de raiz e/ou pai de um branch.
//
// Na troca de pai o id entra no childIds do novo pai. O pai antigo só perde a
// referência com StrictSingleParent ligado, ou quando o branch é desvinculado
// (ParentID = ""). Mover um branch para baixo de um descendente é rejeitado.
func (s *BranchService) Edit(ctx context.Context, caller domain.CallerContext, req domain.EditBranchRequest) (*entities.Branch, error) {
	if err := s.validateCaller(caller); err != nil {
		return nil, err
	}

	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	scope := TenantScope(caller)

	current, err := s.store.FindOne(ctx, scope, req.ID)
	if err != nil {
		return nil, fmt.Errorf("BranchService.Edit - %w", err)
	}

	updated := *current
	eventType := domain.EventBranchUpdated

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, &domain.ValidationError{Field: "name", Reason: "is required"}
		}
		if name != current.Name {
			if err := s.ensureNameAvailable(ctx, caller.OrganizationID, name, current.ID); err != nil {
				return nil, fmt.Errorf("BranchService.Edit - %w", err)
			}
		}
		updated.Name = name
	}

	if req.Address != nil {
		updated.Address = *req.Address
	}

	oldParent := current.ParentIDValue()
	newParent := oldParent
	if req.ParentID != nil {
		newParent = strings.TrimSpace(*req.ParentID)
	}
	parentChanged := newParent != oldParent
	var parent *entities.Branch

	if parentChanged {
		if newParent != "" {
			parent, err = s.checkNewParent(ctx, caller, current.ID, newParent)
			if err != nil {
				return nil, fmt.Errorf("BranchService.Edit - %w", err)
			}
			updated.ParentID = &newParent
		} else {
			updated.ParentID = nil
		}
		updated.IsRoot = newParent == ""
		eventType = domain.EventBranchMoved
	}

	if req.IsRoot != nil {
		updated.IsRoot = *req.IsRoot
	}

	updated.UpdatedAt = s.now()

	// O link no novo pai vem antes do Update: se o pai sumir, nada foi gravado
	if parent != nil {
		if err := s.store.AddChild(ctx, caller.OrganizationID, parent.ID, current.ID); err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("BranchService.Edit - parent %s: %w", parent.ID, domain.ErrInvalidParent)
			}
			return nil, fmt.Errorf("BranchService.Edit - failed to link branch to new parent: %w", err)
		}
	}

	if err := s.store.Update(ctx, &updated); err != nil {
		if parent != nil && !parent.HasChild(current.ID) {
			s.unlinkAfterFailedUpdate(ctx, caller, parent.ID, current.ID)
		}
		return nil, fmt.Errorf("BranchService.Edit - failed to update branch: %w", err)
	}

	if parentChanged {
		if err := s.detachOldParent(ctx, caller, current.ID, oldParent, newParent); err != nil {
			return nil, fmt.Errorf("BranchService.Edit - %w", err)
		}
	}

	s.logger.Info("Branch edited",
		"organization_id", caller.OrganizationID,
		"branch_id", updated.ID,
		"event_type", eventType)

	s.publish(ctx, caller, eventType, updated, oldParent)

	return &updated, nil
}

func (s *BranchService) checkNewParent(ctx context.Context, caller domain.CallerContext, branchID string, parentID string) (*entities.Branch, error) {
	if parentID == branchID {
		return nil, fmt.Errorf("branch %s cannot be its own parent: %w", branchID, domain.ErrHierarchyCycle)
	}

	scope := TenantScope(caller)

	parent, err := s.store.FindOne(ctx, scope, parentID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("parent %s: %w", parentID, domain.ErrInvalidParent)
		}
		return nil, fmt.Errorf("failed to resolve parent: %w", err)
	}

	// o novo pai não pode estar na subárvore do próprio branch
	descendants, err := s.traverse(ctx, scope, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load descendants: %w", err)
	}

	isDescendant := slices.ContainsFunc(descendants, func(b entities.Branch) bool {
		return b.ID == parentID
	})
	if isDescendant {
		return nil, fmt.Errorf("parent %s is a descendant of %s: %w", parentID, branchID, domain.ErrHierarchyCycle)
	}

	return parent, nil
}

func (s *BranchService) detachOldParent(ctx context.Context, caller domain.CallerContext, branchID string, oldParent string, newParent string) error {
	if oldParent == "" {
		return nil
	}

	if s.options.StrictSingleParent || newParent == "" {
		if err := s.store.RemoveChild(ctx, caller.OrganizationID, oldParent, branchID); err != nil {
			return fmt.Errorf("failed to unlink branch from previous parent: %w", err)
		}
	}

	return nil
}

func (s *BranchService) unlinkAfterFailedUpdate(ctx context.Context, caller domain.CallerContext, parentID string, branchID string) {
	if err := s.store.RemoveChild(ctx, caller.OrganizationID, parentID, branchID); err != nil {
		s.logger.Error("Failed to undo parent link after failed edit",
			"organization_id", caller.OrganizationID,
			"branch_id", branchID,
			"parent_id", parentID,
			"error", err)
	}
}
