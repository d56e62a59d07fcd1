package hierarchy

import (
	"context"
	"fmt"

	"orghierarchy/src/domain"
)

// ListSubtree devolve a subárvore completa enraizada em rootID.
func (s *BranchService) ListSubtree(ctx context.Context, caller domain.CallerContext, rootID string) (*domain.TreeNode, error) {
	if err := s.validateCaller(caller); err != nil {
		return nil, err
	}

	closure, err := s.traverse(ctx, s.visibility.Filter(caller), rootID)
	if err != nil {
		return nil, fmt.Errorf("BranchService.ListSubtree - failed to traverse subtree: %w", err)
	}

	tree, report := BuildTree(flatten(closure), rootID)
	s.logAnomalies(caller, report)

	if tree == nil {
		return nil, fmt.Errorf("BranchService.ListSubtree - root (%s) could not be found after assembly: %w", rootID, domain.ErrBranchNotFound)
	}

	return tree, nil
}
