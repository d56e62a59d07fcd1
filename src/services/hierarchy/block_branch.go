package hierarchy

import (
	"context"
	"fmt"

	"orghierarchy/src/domain"
	"orghierarchy/src/domain/entities"
)

// Block marca o branch como inativo. Não cascateia e o branch continua na hierarquia.
func (s *BranchService) Block(ctx context.Context, caller domain.CallerContext, id string) (*entities.Branch, error) {
	return s.setActive(ctx, caller, id, false)
}

func (s *BranchService) Unblock(ctx context.Context, caller domain.CallerContext, id string) (*entities.Branch, error) {
	return s.setActive(ctx, caller, id, true)
}

func (s *BranchService) setActive(ctx context.Context, caller domain.CallerContext, id string, active bool) (*entities.Branch, error) {
	if err := s.validateCaller(caller); err != nil {
		return nil, err
	}

	branch, err := s.store.SetActive(ctx, caller.OrganizationID, id, active)
	if err != nil {
		return nil, fmt.Errorf("BranchService.setActive - %w", err)
	}

	eventType := domain.EventBranchBlocked
	if active {
		eventType = domain.EventBranchUnblocked
	}

	s.logger.Info("Branch status changed",
		"organization_id", caller.OrganizationID,
		"branch_id", id,
		"is_active", active)

	s.publish(ctx, caller, eventType, *branch, "")

	return branch, nil
}
