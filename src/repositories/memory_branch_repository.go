package repositories

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"orghierarchy/src/domain"
	"orghierarchy/src/domain/entities"
)

// MemoryBranchRepository guarda a hierarquia em memória.
// Usado pelo driver "memory" (desenvolvimento local) e pelos testes de serviço.
type MemoryBranchRepository struct {
	mu       sync.RWMutex
	branches map[string]*entities.Branch
	now      func() time.Time
}

func NewMemoryBranchRepository() *MemoryBranchRepository {
	return &MemoryBranchRepository{
		branches: make(map[string]*entities.Branch),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryBranchRepository) Insert(ctx context.Context, branch *entities.Branch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.branches[branch.ID]; exists {
		return fmt.Errorf("MemoryBranchRepository.Insert - id %s: %w", branch.ID, domain.ErrBranchAlreadyExists)
	}
	if r.nameTaken(branch.OrganizationID, branch.Name, branch.ID) {
		return fmt.Errorf("MemoryBranchRepository.Insert - name %q: %w", branch.Name, domain.ErrBranchAlreadyExists)
	}

	stored := cloneBranch(*branch)
	if stored.ChildIDs == nil {
		stored.ChildIDs = []string{}
	}
	r.branches[branch.ID] = &stored
	return nil
}

func (r *MemoryBranchRepository) Update(ctx context.Context, branch *entities.Branch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.alive(branch.OrganizationID, branch.ID)
	if !ok {
		return fmt.Errorf("MemoryBranchRepository.Update - id %s: %w", branch.ID, domain.ErrBranchNotFound)
	}
	if r.nameTaken(branch.OrganizationID, branch.Name, branch.ID) {
		return fmt.Errorf("MemoryBranchRepository.Update - name %q: %w", branch.Name, domain.ErrBranchAlreadyExists)
	}

	current.Name = branch.Name
	current.ParentID = cloneString(branch.ParentID)
	current.IsRoot = branch.IsRoot
	current.Address = branch.Address
	current.UpdatedAt = branch.UpdatedAt
	return nil
}

func (r *MemoryBranchRepository) FindOne(ctx context.Context, filter domain.BranchFilter, id string) (*entities.Branch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.branches[id]
	if !ok || !filter.Matches(*b) {
		return nil, fmt.Errorf("MemoryBranchRepository.FindOne - id %s: %w", id, domain.ErrBranchNotFound)
	}

	found := cloneBranch(*b)
	return &found, nil
}

func (r *MemoryBranchRepository) FindByName(ctx context.Context, organizationID string, name string) (*entities.Branch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.branches {
		if b.OrganizationID == organizationID && b.Name == name && !b.IsDeleted {
			found := cloneBranch(*b)
			return &found, nil
		}
	}

	return nil, fmt.Errorf("MemoryBranchRepository.FindByName - name %q: %w", name, domain.ErrBranchNotFound)
}

func (r *MemoryBranchRepository) Find(ctx context.Context, filter domain.BranchFilter, page Page) ([]entities.Branch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.matching(filter)
	if page.Offset >= len(matched) {
		return []entities.Branch{}, nil
	}

	end := len(matched)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}

	return matched[page.Offset:end], nil
}

func (r *MemoryBranchRepository) Count(ctx context.Context, filter domain.BranchFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.matching(filter))), nil
}

func (r *MemoryBranchRepository) Subtree(ctx context.Context, filter domain.BranchFilter, rootID string, limit int) ([]entities.Branch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filter.RootsOnly = false

	root, ok := r.branches[rootID]
	if !ok || !filter.Matches(*root) {
		return nil, fmt.Errorf("MemoryBranchRepository.Subtree - root %s: %w", rootID, domain.ErrBranchNotFound)
	}

	// BFS com conjunto de visitados: diamantes e ciclos não duplicam nós
	visited := map[string]struct{}{rootID: {}}
	queue := []*entities.Branch{root}
	closure := make([]entities.Branch, 0)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("MemoryBranchRepository.Subtree - traversal interrupted: %w", err)
		}

		current := queue[0]
		queue = queue[1:]
		closure = append(closure, cloneBranch(*current))

		if limit > 0 && len(closure) > limit {
			return nil, fmt.Errorf("MemoryBranchRepository.Subtree - root %s: %w", rootID, domain.ErrClosureTooLarge)
		}

		for _, childID := range current.ChildIDs {
			if _, seen := visited[childID]; seen {
				continue
			}
			child, exists := r.branches[childID]
			if !exists || !filter.Matches(*child) {
				continue
			}
			visited[childID] = struct{}{}
			queue = append(queue, child)
		}
	}

	return closure, nil
}

func (r *MemoryBranchRepository) AddChild(ctx context.Context, organizationID string, parentID string, childID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent, ok := r.alive(organizationID, parentID)
	if !ok {
		return fmt.Errorf("MemoryBranchRepository.AddChild - parent %s: %w", parentID, domain.ErrBranchNotFound)
	}

	if !slices.Contains(parent.ChildIDs, childID) {
		parent.ChildIDs = append(parent.ChildIDs, childID)
		parent.UpdatedAt = r.now()
	}
	return nil
}

func (r *MemoryBranchRepository) RemoveChild(ctx context.Context, organizationID string, parentID string, childID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent, ok := r.branches[parentID]
	if !ok || parent.OrganizationID != organizationID {
		return nil
	}

	if idx := slices.Index(parent.ChildIDs, childID); idx >= 0 {
		parent.ChildIDs = slices.Delete(slices.Clone(parent.ChildIDs), idx, idx+1)
		parent.UpdatedAt = r.now()
	}
	return nil
}

func (r *MemoryBranchRepository) SetActive(ctx context.Context, organizationID string, id string, active bool) (*entities.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.alive(organizationID, id)
	if !ok {
		return nil, fmt.Errorf("MemoryBranchRepository.SetActive - id %s: %w", id, domain.ErrBranchNotFound)
	}

	b.IsActive = active
	b.UpdatedAt = r.now()

	updated := cloneBranch(*b)
	return &updated, nil
}

func (r *MemoryBranchRepository) SoftDelete(ctx context.Context, organizationID string, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.alive(organizationID, id)
	if !ok {
		return fmt.Errorf("MemoryBranchRepository.SoftDelete - id %s: %w", id, domain.ErrBranchNotFound)
	}

	now := r.now()
	b.IsDeleted = true
	b.DeletedAt = &now
	b.UpdatedAt = now
	return nil
}

func (r *MemoryBranchRepository) HealthCheck(ctx context.Context) error {
	return nil
}

// Put grava o branch como está, sem validar unicidade nem self-loops.
// Permite montar dados inconsistentes (ciclos, referências órfãs) em testes e no datagen.
func (r *MemoryBranchRepository) Put(branch entities.Branch) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cloneBranch(branch)
	r.branches[branch.ID] = &stored
}

func (r *MemoryBranchRepository) alive(organizationID string, id string) (*entities.Branch, bool) {
	b, ok := r.branches[id]
	if !ok || b.OrganizationID != organizationID || b.IsDeleted {
		return nil, false
	}
	return b, true
}

func (r *MemoryBranchRepository) nameTaken(organizationID string, name string, exceptID string) bool {
	for _, b := range r.branches {
		if b.ID != exceptID && b.OrganizationID == organizationID && b.Name == name && !b.IsDeleted {
			return true
		}
	}
	return false
}

func (r *MemoryBranchRepository) matching(filter domain.BranchFilter) []entities.Branch {
	matched := make([]entities.Branch, 0)
	for _, b := range r.branches {
		if filter.Matches(*b) {
			matched = append(matched, cloneBranch(*b))
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name == matched[j].Name {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].Name < matched[j].Name
	})
	return matched
}

func cloneBranch(b entities.Branch) entities.Branch {
	b.ChildIDs = slices.Clone(b.ChildIDs)
	b.ParentID = cloneString(b.ParentID)
	if b.DeletedAt != nil {
		deletedAt := *b.DeletedAt
		b.DeletedAt = &deletedAt
	}
	return b
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
