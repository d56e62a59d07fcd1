package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"orghierarchy/src/domain"
	"orghierarchy/src/domain/entities"
	"orghierarchy/src/infra/postgres"
)

const branchColumns = `b.id, b.organization_id, b.name, b.parent_id, b.child_ids, b.is_root,
	b.is_active, b.is_deleted, b.address, b.created_by, b.created_at, b.updated_at, b.deleted_at`

// PostgresBranchRepository lê da réplica (readPool) apenas os caminhos de leitura em massa
// (Subtree, Find, Count). Lookups pontuais usados pelas mutações vão no writePool.
type PostgresBranchRepository struct {
	readPool  *pgxpool.Pool
	writePool *pgxpool.Pool
}

func NewPostgresBranchRepository(readWriteClient *postgres.ReadWriteClient) *PostgresBranchRepository {
	return &PostgresBranchRepository{
		readPool:  readWriteClient.GetReadPool(),
		writePool: readWriteClient.GetWritePool(),
	}
}

func (r *PostgresBranchRepository) Insert(ctx context.Context, branch *entities.Branch) error {
	query := `
		INSERT INTO branches (
			id, organization_id, name, parent_id, child_ids, is_root,
			is_active, is_deleted, address, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	childIDs := branch.ChildIDs
	if childIDs == nil {
		childIDs = []string{}
	}

	_, err := r.writePool.Exec(ctx, query,
		branch.ID,
		branch.OrganizationID,
		branch.Name,
		branch.ParentID,
		childIDs,
		branch.IsRoot,
		branch.IsActive,
		branch.IsDeleted,
		branch.Address,
		branch.CreatedBy,
		branch.CreatedAt,
		branch.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("PostgresBranchRepository.Insert - name %q: %w", branch.Name, domain.ErrBranchAlreadyExists)
		}
		return fmt.Errorf("PostgresBranchRepository.Insert - failed to insert branch: %w", err)
	}

	return nil
}

func (r *PostgresBranchRepository) Update(ctx context.Context, branch *entities.Branch) error {
	query := `
		UPDATE branches
		SET name = $3, parent_id = $4, is_root = $5, address = $6, updated_at = $7
		WHERE id = $1 AND organization_id = $2 AND is_deleted = FALSE`

	tag, err := r.writePool.Exec(ctx, query,
		branch.ID,
		branch.OrganizationID,
		branch.Name,
		branch.ParentID,
		branch.IsRoot,
		branch.Address,
		branch.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("PostgresBranchRepository.Update - name %q: %w", branch.Name, domain.ErrBranchAlreadyExists)
		}
		return fmt.Errorf("PostgresBranchRepository.Update - failed to update branch: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("PostgresBranchRepository.Update - id %s: %w", branch.ID, domain.ErrBranchNotFound)
	}

	return nil
}

func (r *PostgresBranchRepository) FindOne(ctx context.Context, filter domain.BranchFilter, id string) (*entities.Branch, error) {
	if filter.Empty() {
		return nil, fmt.Errorf("PostgresBranchRepository.FindOne - id %s: %w", id, domain.ErrBranchNotFound)
	}

	where, args := filterClause("b", filter, 2)
	query := fmt.Sprintf(`SELECT %s FROM branches b WHERE b.id = $1 AND %s`, branchColumns, where)

	row := r.writePool.QueryRow(ctx, query, append([]any{id}, args...)...)
	branch, err := scanBranch(row)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("PostgresBranchRepository.FindOne - id %s: %w", id, domain.ErrBranchNotFound)
		}
		return nil, fmt.Errorf("PostgresBranchRepository.FindOne - failed to scan branch: %w", err)
	}

	return branch, nil
}

func (r *PostgresBranchRepository) FindByName(ctx context.Context, organizationID string, name string) (*entities.Branch, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM branches b
		WHERE b.organization_id = $1 AND b.name = $2 AND b.is_deleted = FALSE`, branchColumns)

	branch, err := scanBranch(r.writePool.QueryRow(ctx, query, organizationID, name))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("PostgresBranchRepository.FindByName - name %q: %w", name, domain.ErrBranchNotFound)
		}
		return nil, fmt.Errorf("PostgresBranchRepository.FindByName - failed to scan branch: %w", err)
	}

	return branch, nil
}

func (r *PostgresBranchRepository) Find(ctx context.Context, filter domain.BranchFilter, page Page) ([]entities.Branch, error) {
	if filter.Empty() {
		return []entities.Branch{}, nil
	}

	where, args := filterClause("b", filter, 1)
	query := fmt.Sprintf(`SELECT %s FROM branches b WHERE %s ORDER BY b.name, b.id`, branchColumns, where)

	if page.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", page.Limit)
	}
	if page.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", page.Offset)
	}

	rows, err := r.readPool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("PostgresBranchRepository.Find - query failed: %w", err)
	}

	branches, err := collectBranches(rows)
	if err != nil {
		return nil, fmt.Errorf("PostgresBranchRepository.Find - %w", err)
	}

	return branches, nil
}

func (r *PostgresBranchRepository) Count(ctx context.Context, filter domain.BranchFilter) (int64, error) {
	if filter.Empty() {
		return 0, nil
	}

	where, args := filterClause("b", filter, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM branches b WHERE %s`, where)

	var total int64
	if err := r.readPool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("PostgresBranchRepository.Count - query failed: %w", err)
	}

	return total, nil
}

// Subtree resolve o fecho transitivo no banco. UNION (e não UNION ALL) descarta ids
// já vistos, então ciclos e diamantes terminam sem duplicar nós.
func (r *PostgresBranchRepository) Subtree(ctx context.Context, filter domain.BranchFilter, rootID string, limit int) ([]entities.Branch, error) {
	filter.RootsOnly = false
	if filter.Empty() {
		return nil, fmt.Errorf("PostgresBranchRepository.Subtree - root %s: %w", rootID, domain.ErrBranchNotFound)
	}

	rootWhere, args := filterClause("b", filter, 2)
	childWhere, _ := filterClause("c", filter, 2)
	limitParam := len(args) + 2

	query := fmt.Sprintf(`
		WITH RECURSIVE closure (id) AS (
			SELECT
				b.id
			FROM
				branches b
			WHERE
				b.id = $1 AND %s

			UNION

			SELECT
				c.id
			FROM
				closure cl
			JOIN
				branches p ON p.id = cl.id
			JOIN
				branches c ON c.id = ANY(p.child_ids)
			WHERE
				%s
		)
		SELECT
			%s
		FROM
			closure cl
		JOIN
			branches b ON b.id = cl.id
		LIMIT $%d`, rootWhere, childWhere, branchColumns, limitParam)

	queryArgs := append([]any{rootID}, args...)
	queryArgs = append(queryArgs, limitOrAll(limit))

	rows, err := r.readPool.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("PostgresBranchRepository.Subtree - closure query failed: %w", err)
	}

	closure, err := collectBranches(rows)
	if err != nil {
		return nil, fmt.Errorf("PostgresBranchRepository.Subtree - %w", err)
	}

	if len(closure) == 0 {
		return nil, fmt.Errorf("PostgresBranchRepository.Subtree - root %s: %w", rootID, domain.ErrBranchNotFound)
	}

	if limit > 0 && len(closure) > limit {
		return nil, fmt.Errorf("PostgresBranchRepository.Subtree - root %s: %w", rootID, domain.ErrClosureTooLarge)
	}

	return closure, nil
}

// AddChild é um add-to-set atômico: o UPDATE reavalia o NOT ANY sobre a versão
// mais recente da linha, então inserts concorrentes de irmãos não se perdem.
func (r *PostgresBranchRepository) AddChild(ctx context.Context, organizationID string, parentID string, childID string) error {
	query := `
		UPDATE branches
		SET child_ids = array_append(child_ids, $3), updated_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND is_deleted = FALSE
		  AND NOT ($3 = ANY(child_ids))`

	tag, err := r.writePool.Exec(ctx, query, parentID, organizationID, childID)
	if err != nil {
		return fmt.Errorf("PostgresBranchRepository.AddChild - update failed: %w", err)
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nenhuma linha: o filho já estava no conjunto ou o pai não existe no escopo
	var exists bool
	err = r.writePool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM branches WHERE id = $1 AND organization_id = $2 AND is_deleted = FALSE)`,
		parentID, organizationID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("PostgresBranchRepository.AddChild - parent lookup failed: %w", err)
	}

	if !exists {
		return fmt.Errorf("PostgresBranchRepository.AddChild - parent %s: %w", parentID, domain.ErrBranchNotFound)
	}

	return nil
}

func (r *PostgresBranchRepository) RemoveChild(ctx context.Context, organizationID string, parentID string, childID string) error {
	query := `
		UPDATE branches
		SET child_ids = array_remove(child_ids, $3), updated_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND $3 = ANY(child_ids)`

	if _, err := r.writePool.Exec(ctx, query, parentID, organizationID, childID); err != nil {
		return fmt.Errorf("PostgresBranchRepository.RemoveChild - update failed: %w", err)
	}

	return nil
}

func (r *PostgresBranchRepository) SetActive(ctx context.Context, organizationID string, id string, active bool) (*entities.Branch, error) {
	query := fmt.Sprintf(`
		UPDATE branches b
		SET is_active = $3, updated_at = NOW()
		WHERE b.id = $1 AND b.organization_id = $2 AND b.is_deleted = FALSE
		RETURNING %s`, branchColumns)

	branch, err := scanBranch(r.writePool.QueryRow(ctx, query, id, organizationID, active))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("PostgresBranchRepository.SetActive - id %s: %w", id, domain.ErrBranchNotFound)
		}
		return nil, fmt.Errorf("PostgresBranchRepository.SetActive - update failed: %w", err)
	}

	return branch, nil
}

func (r *PostgresBranchRepository) SoftDelete(ctx context.Context, organizationID string, id string) error {
	query := `
		UPDATE branches
		SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND is_deleted = FALSE`

	tag, err := r.writePool.Exec(ctx, query, id, organizationID)
	if err != nil {
		return fmt.Errorf("PostgresBranchRepository.SoftDelete - update failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("PostgresBranchRepository.SoftDelete - id %s: %w", id, domain.ErrBranchNotFound)
	}

	return nil
}

func (r *PostgresBranchRepository) HealthCheck(ctx context.Context) error {
	return r.writePool.Ping(ctx)
}

// filterClause traduz o BranchFilter para SQL. firstParam é o índice do primeiro
// placeholder livre; os mesmos placeholders podem ser reutilizados com outro alias.
func filterClause(alias string, filter domain.BranchFilter, firstParam int) (string, []any) {
	conditions := []string{
		fmt.Sprintf("%s.organization_id = $%d", alias, firstParam),
		fmt.Sprintf("%s.is_deleted = FALSE", alias),
	}
	args := []any{filter.OrganizationID}

	if filter.RootsOnly {
		conditions = append(conditions, fmt.Sprintf("%s.is_root = TRUE", alias))
	}

	if filter.RestrictNames {
		conditions = append(conditions, fmt.Sprintf("%s.name = ANY($%d)", alias, firstParam+1))
		args = append(args, filter.AllowedNames)
	}

	return strings.Join(conditions, " AND "), args
}

// ALL em LIMIT não aceita placeholder, então "sem limite" vira NULL (equivalente).
func limitOrAll(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit + 1
}

func scanBranch(row pgx.Row) (*entities.Branch, error) {
	var b entities.Branch
	err := row.Scan(
		&b.ID,
		&b.OrganizationID,
		&b.Name,
		&b.ParentID,
		&b.ChildIDs,
		&b.IsRoot,
		&b.IsActive,
		&b.IsDeleted,
		&b.Address,
		&b.CreatedBy,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBranches(rows pgx.Rows) ([]entities.Branch, error) {
	defer rows.Close()

	branches := make([]entities.Branch, 0)
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan branch: %w", err)
		}
		branches = append(branches, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating branch rows: %w", err)
	}

	return branches, nil
}
