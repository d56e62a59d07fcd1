package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"orghierarchy/src/domain"
)

// Delete é soft delete e terminal. Descendentes não são tocados; deixam de
// aparecer nas árvores que passavam pelo branch deletado.
func (s *BranchService) Delete(ctx context.Context, caller domain.CallerContext, id string) error {
	if err := s.validateCaller(caller); err != nil {
		return err
	}

	branch, err := s.store.FindOne(ctx, TenantScope(caller), id)
	if err != nil {
		return fmt.Errorf("BranchService.Delete - %w", err)
	}

	if err := s.store.SoftDelete(ctx, caller.OrganizationID, id); err != nil {
		return fmt.Errorf("BranchService.Delete - failed to soft delete branch: %w", err)
	}

	branch.IsDeleted = true
	now := s.now()
	branch.DeletedAt = &now

	s.logger.Info("Branch deleted",
		"organization_id", caller.OrganizationID,
		"branch_id", id)

	s.publish(ctx, caller, domain.EventBranchDeleted, *branch, "")

	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrBranchNotFound)
}
