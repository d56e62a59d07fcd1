package hierarchy

import (
	"context"
	"fmt"

	"orghierarchy/src/domain"
	"orghierarchy/src/domain/entities"
	"orghierarchy/src/repositories"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

func (s *BranchService) GetByID(ctx context.Context, caller domain.CallerContext, id string) (*entities.Branch, error) {
	if err := s.validateCaller(caller); err != nil {
		return nil, err
	}

	branch, err := s.store.FindOne(ctx, s.visibility.Filter(caller), id)
	if err != nil {
		return nil, fmt.Errorf("BranchService.GetByID - %w", err)
	}

	return branch, nil
}

// List devolve os branches visíveis, paginados e ordenados por nome.
func (s *BranchService) List(ctx context.Context, caller domain.CallerContext, page int, pageSize int) (*domain.BranchPage, error) {
	if err := s.validateCaller(caller); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	filter := s.visibility.Filter(caller)

	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("BranchService.List - failed to count branches: %w", err)
	}

	items, err := s.store.Find(ctx, filter, repositories.Page{Offset: (page - 1) * pageSize, Limit: pageSize})
	if err != nil {
		return nil, fmt.Errorf("BranchService.List - failed to find branches: %w", err)
	}

	return &domain.BranchPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}
