package hierarchy

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"orghierarchy/src/domain"
	"orghierarchy/src/domain/entities"
	"orghierarchy/src/metrics"
	"orghierarchy/src/repositories"
)

// EventPublisher recebe os eventos de domínio emitidos após mutações bem sucedidas.
// Falhas de publicação são problema do publisher; a mutação já foi persistida.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.BranchEvent)
}

type Options struct {
	// StrictSingleParent remove o branch do childIds do pai antigo ao trocar de pai.
	// Desligado, o pai antigo continua listando o filho (comportamento legado).
	StrictSingleParent bool
	MaxClosureSize     int
	TraversalTimeout   time.Duration
	ForestConcurrency  int
	ElevatedRoles      []domain.Role
}

func DefaultOptions() Options {
	return Options{
		StrictSingleParent: false,
		MaxClosureSize:     5000,
		TraversalTimeout:   5 * time.Second,
		ForestConcurrency:  4,
		ElevatedRoles:      []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin},
	}
}

type BranchService struct {
	logger     *slog.Logger
	store      repositories.BranchStore
	publisher  EventPublisher
	visibility VisibilityPolicy
	validate   *validator.Validate
	options    Options
	now        func() time.Time
	newID      func() string
}

func NewBranchService(
	logger *slog.Logger,
	store repositories.BranchStore,
	publisher EventPublisher,
	options Options,
) *BranchService {
	defaults := DefaultOptions()
	if options.MaxClosureSize <= 0 {
		options.MaxClosureSize = defaults.MaxClosureSize
	}
	if options.ForestConcurrency <= 0 {
		options.ForestConcurrency = defaults.ForestConcurrency
	}
	if options.TraversalTimeout <= 0 {
		options.TraversalTimeout = defaults.TraversalTimeout
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}

	return &BranchService{
		logger:     logger,
		store:      store,
		publisher:  publisher,
		visibility: NewVisibilityPolicy(options.ElevatedRoles...),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		options:    options,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

func (s *BranchService) Visibility() VisibilityPolicy {
	return s.visibility
}

func (s *BranchService) HealthCheck(ctx context.Context) error {
	return s.store.HealthCheck(ctx)
}

// traverse aplica o limite de tempo e o limite de tamanho do fecho.
func (s *BranchService) traverse(ctx context.Context, filter domain.BranchFilter, rootID string) ([]entities.Branch, error) {
	ctx, cancel := context.WithTimeout(ctx, s.options.TraversalTimeout)
	defer cancel()

	return s.store.Subtree(ctx, filter, rootID, s.options.MaxClosureSize)
}

func (s *BranchService) logAnomalies(caller domain.CallerContext, report AssemblyReport) {
	if report.Empty() {
		return
	}

	for _, id := range report.SelfLoops {
		metrics.AssemblyAnomalies.WithLabelValues("self_loop").Inc()
		s.logger.Warn("Branch lists itself as child",
			"organization_id", caller.OrganizationID,
			"branch_id", id)
	}

	for _, edge := range report.BackEdges {
		metrics.AssemblyAnomalies.WithLabelValues("cycle").Inc()
		s.logger.Warn("Cyclic child reference dropped from tree",
			"organization_id", caller.OrganizationID,
			"parent_id", edge.ParentID,
			"child_id", edge.ChildID)
	}

	// Referências para filhos deletados ou fora da visibilidade são esperadas
	if len(report.DanglingRefs) > 0 {
		metrics.AssemblyAnomalies.WithLabelValues("dangling_ref").Add(float64(len(report.DanglingRefs)))
		s.logger.Debug("Child references not resolved in closure",
			"organization_id", caller.OrganizationID,
			"count", len(report.DanglingRefs))
	}
}

func (s *BranchService) publish(ctx context.Context, caller domain.CallerContext, eventType string, branch entities.Branch, previousParent string) {
	s.publisher.Publish(ctx, domain.BranchEvent{
		EventID:        uuid.NewString(),
		EventType:      eventType,
		OrganizationID: branch.OrganizationID,
		OccurredAt:     s.now(),
		TriggeredBy:    caller.UserID,
		PreviousParent: previousParent,
		Data:           branch,
	})
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.BranchEvent) {}

func flatten(branches []entities.Branch) []domain.FlatNode {
	nodes := make([]domain.FlatNode, len(branches))
	for i, b := range branches {
		nodes[i] = domain.FlatNodeFrom(b)
	}
	return nodes
}
