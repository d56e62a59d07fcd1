package test_seeder

import (
	"context"

	"orghierarchy/src/domain/entities"
)

func (ts TestSeeder) SelectBranch(ctx context.Context, id string) (entities.Branch, error) {
	query := `SELECT id, name, organization_id, parent_id, child_ids, is_root, is_active, is_deleted,
				address, created_by, created_at, updated_at, deleted_at
			  FROM branches WHERE id = $1`

	var branch entities.Branch
	err := ts.pool.QueryRow(ctx, query, id).Scan(
		&branch.ID,
		&branch.Name,
		&branch.OrganizationID,
		&branch.ParentID,
		&branch.ChildIDs,
		&branch.IsRoot,
		&branch.IsActive,
		&branch.IsDeleted,
		&branch.Address,
		&branch.CreatedBy,
		&branch.CreatedAt,
		&branch.UpdatedAt,
		&branch.DeletedAt,
	)
	return branch, err
}
