package test_seeder

import (
	"context"
	"fmt"

	"orghierarchy/src/domain/entities"
)

// InsertBranch grava o branch como está, inclusive childIds inconsistentes
func (ts TestSeeder) InsertBranch(ctx context.Context, branch entities.Branch) {
	query := `
		INSERT INTO branches (id, name, organization_id, parent_id, child_ids, is_root, is_active, is_deleted,
			address, created_by, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	childIDs := branch.ChildIDs
	if childIDs == nil {
		childIDs = []string{}
	}

	_, err := ts.pool.Exec(ctx, query,
		branch.ID,
		branch.Name,
		branch.OrganizationID,
		branch.ParentID,
		childIDs,
		branch.IsRoot,
		branch.IsActive,
		branch.IsDeleted,
		branch.Address,
		branch.CreatedBy,
		branch.CreatedAt,
		branch.UpdatedAt,
		branch.DeletedAt,
	)
	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertBranch failed: %v", err))
	}
}
