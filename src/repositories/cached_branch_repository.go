package repositories

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"orghierarchy/src/domain"
	"orghierarchy/src/domain/entities"
	"orghierarchy/src/infra/redis"
	"orghierarchy/src/metrics"
)

// CachedBranchRepository decora um BranchStore guardando fechos de Subtree no Redis.
// Cada fecho é registrado no registry dos branches que contém ou referencia; qualquer
// mutação num branch derruba os fechos que dependem dele. Um contador de geração por
// organização descarta fechos lidos antes de uma mutação e gravados depois dela.
// Com redisClient nil o decorator apenas repassa as chamadas.
type CachedBranchRepository struct {
	BranchStore
	logger      *slog.Logger
	redisClient *redis.RedisClient
	storeName   string
}

type cacheableClosure struct {
	Branches []entities.Branch `json:"branches"`
}

func NewCachedBranchRepository(
	logger *slog.Logger,
	store BranchStore,
	redisClient *redis.RedisClient,
	storeName string,
) *CachedBranchRepository {
	return &CachedBranchRepository{
		BranchStore: store,
		logger:      logger,
		redisClient: redisClient,
		storeName:   storeName,
	}
}

func (r *CachedBranchRepository) Subtree(ctx context.Context, filter domain.BranchFilter, rootID string, limit int) ([]entities.Branch, error) {
	if r.redisClient == nil {
		return r.subtreeFromStore(ctx, filter, rootID, limit)
	}

	cacheKey := r.generateCacheKey(filter, rootID, limit)

	cached, found, err := r.getFromCache(ctx, cacheKey)
	if err != nil {
		// Erro de cache não derruba a leitura, segue para o store
		metrics.CacheRequests.WithLabelValues(metrics.CacheError).Inc()
		r.logger.Warn("Subtree cache read failed", "key", cacheKey, "error", err)
	} else if found {
		metrics.CacheRequests.WithLabelValues(metrics.CacheHit).Inc()
		r.logger.Debug("Subtree cache HIT", "key", cacheKey, "root_id", rootID)
		return cached, nil
	} else {
		metrics.CacheRequests.WithLabelValues(metrics.CacheMiss).Inc()
	}

	// A geração precisa ser lida antes do store
	generation, err := r.redisClient.Generation(ctx, r.generationKey(filter.OrganizationID))
	if err != nil {
		r.logger.Warn("Subtree cache generation read failed, skipping cache", "key", cacheKey, "error", err)
		return r.subtreeFromStore(ctx, filter, rootID, limit)
	}

	closure, err := r.subtreeFromStore(ctx, filter, rootID, limit)
	if err != nil {
		return nil, err
	}

	go func() {
		// Timeout de 30 segundos para operação de cache
		ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		r.setInCache(ctxWithTimeout, filter.OrganizationID, generation, cacheKey, closure)
	}()

	return closure, nil
}

func (r *CachedBranchRepository) Update(ctx context.Context, branch *entities.Branch) error {
	if err := r.BranchStore.Update(ctx, branch); err != nil {
		return err
	}
	r.invalidate(ctx, branch.OrganizationID, branch.ID)
	return nil
}

func (r *CachedBranchRepository) AddChild(ctx context.Context, organizationID string, parentID string, childID string) error {
	if err := r.BranchStore.AddChild(ctx, organizationID, parentID, childID); err != nil {
		return err
	}
	r.invalidate(ctx, organizationID, parentID, childID)
	return nil
}

func (r *CachedBranchRepository) RemoveChild(ctx context.Context, organizationID string, parentID string, childID string) error {
	if err := r.BranchStore.RemoveChild(ctx, organizationID, parentID, childID); err != nil {
		return err
	}
	r.invalidate(ctx, organizationID, parentID, childID)
	return nil
}

func (r *CachedBranchRepository) SetActive(ctx context.Context, organizationID string, id string, active bool) (*entities.Branch, error) {
	branch, err := r.BranchStore.SetActive(ctx, organizationID, id, active)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, organizationID, id)
	return branch, nil
}

func (r *CachedBranchRepository) SoftDelete(ctx context.Context, organizationID string, id string) error {
	if err := r.BranchStore.SoftDelete(ctx, organizationID, id); err != nil {
		return err
	}
	r.invalidate(ctx, organizationID, id)
	return nil
}

func (r *CachedBranchRepository) HealthCheck(ctx context.Context) error {
	if err := r.BranchStore.HealthCheck(ctx); err != nil {
		return err
	}
	if r.redisClient == nil {
		return nil
	}
	return r.redisClient.HealthCheck(ctx)
}

func (r *CachedBranchRepository) subtreeFromStore(ctx context.Context, filter domain.BranchFilter, rootID string, limit int) ([]entities.Branch, error) {
	closure, err := r.BranchStore.Subtree(ctx, filter, rootID, limit)
	if err != nil {
		return nil, err
	}
	metrics.TraversalNodes.WithLabelValues(r.storeName).Observe(float64(len(closure)))
	return closure, nil
}

// invalidate avança a geração antes de apagar os registries: um fecho gravado depois
// disso é descartado pelo próprio setInCache.
func (r *CachedBranchRepository) invalidate(ctx context.Context, organizationID string, branchIDs ...string) {
	if r.redisClient == nil {
		return
	}

	if _, err := r.redisClient.BumpGeneration(ctx, r.generationKey(organizationID)); err != nil {
		r.logger.Error("Subtree cache generation bump failed", "organization_id", organizationID, "error", err)
	}

	registryKeys := make([]string, len(branchIDs))
	for i, id := range branchIDs {
		registryKeys[i] = r.registryKey(id)
	}

	removed, err := r.redisClient.InvalidateRegistries(ctx, registryKeys)
	if err != nil {
		// O TTL curto limita a janela de dado velho
		r.logger.Error("Subtree cache invalidation failed", "branch_ids", branchIDs, "error", err)
		return
	}

	r.logger.Debug("Subtree cache invalidated", "branch_ids", branchIDs, "keys", removed)
}

func (r *CachedBranchRepository) generateCacheKey(filter domain.BranchFilter, rootID string, limit int) string {
	names := append([]string(nil), filter.AllowedNames...)
	sort.Strings(names)

	keyData := fmt.Sprintf("org:%s:root:%s:restricted:%t:names:%s:limit:%d",
		filter.OrganizationID,
		rootID,
		filter.RestrictNames,
		strings.Join(names, "\x1f"),
		limit,
	)

	// Hash para chave mais limpa e consistente
	hash := md5.Sum([]byte(keyData))
	return r.redisClient.Key("branch", "subtree", fmt.Sprintf("%x", hash))
}

func (r *CachedBranchRepository) generationKey(organizationID string) string {
	return r.redisClient.Key("generation", "org", organizationID)
}

func (r *CachedBranchRepository) registryKey(branchID string) string {
	return r.redisClient.Key("registry", "branch", branchID)
}

func (r *CachedBranchRepository) getFromCache(ctx context.Context, cacheKey string) ([]entities.Branch, bool, error) {
	cachedJSON, found, err := r.redisClient.GetKey(ctx, cacheKey)
	if !found || err != nil {
		return nil, false, err
	}

	var result cacheableClosure
	if err := json.Unmarshal([]byte(cachedJSON), &result); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached closure: %w", err)
	}

	return result.Branches, true, nil
}

func (r *CachedBranchRepository) setInCache(ctx context.Context, organizationID string, generation int64, cacheKey string, closure []entities.Branch) {
	dataJSON, err := json.Marshal(cacheableClosure{Branches: closure})
	if err != nil {
		r.logger.Error("Failed to marshal subtree closure", "key", cacheKey, "error", err)
		return
	}

	// Filhos referenciados mas fora do fecho (filtrados) também registram a chave:
	// se um deles voltar a ficar visível o fecho precisa cair
	seen := make(map[string]struct{}, len(closure))
	registryKeys := make([]string, 0, len(closure))
	register := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		registryKeys = append(registryKeys, r.registryKey(id))
	}
	for _, b := range closure {
		register(b.ID)
		for _, childID := range b.ChildIDs {
			register(childID)
		}
	}

	if err := r.redisClient.SetWithRegistry(ctx, cacheKey, string(dataJSON), registryKeys); err != nil {
		r.logger.Error("Failed to set subtree cache with registry", "key", cacheKey, "error", err)
		return
	}

	// Mutação entre a leitura do store e o SET: o fecho já nasceu velho
	current, err := r.redisClient.Generation(ctx, r.generationKey(organizationID))
	if err != nil || current != generation {
		if err := r.redisClient.InvalidateEntity(ctx, []string{cacheKey}); err != nil {
			r.logger.Error("Failed to drop stale subtree closure", "key", cacheKey, "error", err)
			return
		}
		r.logger.Debug("Subtree cache SET discarded, organization changed", "key", cacheKey)
		return
	}

	r.logger.Debug("Subtree cache SET with registry", "key", cacheKey, "branches", len(closure))
}
