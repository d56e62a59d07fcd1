package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"orghierarchy/src/domain"
	"orghierarchy/src/domain/entities"
	"orghierarchy/src/repositories"
)

// ListForest devolve uma árvore por raiz declarada (IsRoot) visível ao caller, ordenadas por nome.
func (s *BranchService) ListForest(ctx context.Context, caller domain.CallerContext) ([]*domain.TreeNode, error) {
	if err := s.validateCaller(caller); err != nil {
		return nil, err
	}

	filter := s.visibility.Filter(caller)
	if filter.Empty() {
		return []*domain.TreeNode{}, nil
	}

	rootFilter := filter
	rootFilter.RootsOnly = true

	roots, err := s.store.Find(ctx, rootFilter, repositories.Page{})
	if err != nil {
		return nil, fmt.Errorf("BranchService.ListForest - failed to find root branches: %w", err)
	}

	if len(roots) == 0 {
		return []*domain.TreeNode{}, nil
	}

	closures := make([][]entities.Branch, len(roots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.options.ForestConcurrency)

	for i, root := range roots {
		g.Go(func() error {
			closure, err := s.traverse(gctx, filter, root.ID)
			if errors.Is(err, domain.ErrBranchNotFound) {
				// raiz deletada entre o Find e a travessia
				return nil
			}
			if err != nil {
				return fmt.Errorf("root %s: %w", root.ID, err)
			}
			closures[i] = closure
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("BranchService.ListForest - failed to traverse subtree: %w", err)
	}

	rootIDs := make([]string, 0, len(roots))
	seen := make(map[string]struct{})
	nodes := make([]domain.FlatNode, 0)

	for i, closure := range closures {
		if closure == nil {
			continue
		}
		rootIDs = append(rootIDs, roots[i].ID)

		for _, b := range closure {
			if _, dup := seen[b.ID]; dup {
				continue
			}
			seen[b.ID] = struct{}{}
			nodes = append(nodes, domain.FlatNodeFrom(b))
		}
	}

	forest, report := BuildForest(nodes, rootIDs)
	s.logAnomalies(caller, report)

	return forest, nil
}
