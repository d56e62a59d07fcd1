package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"orghierarchy/src/domain"
	"orghierarchy/src/domain/entities"
	"orghierarchy/src/infra/kafka"
	"orghierarchy/src/metrics"
)

const (
	importCreated  = "created"
	importSkipped  = "skipped"
	importInvalid  = "invalid"
	importOrphaned = "orphaned"
)

// BranchImportMessage representa o schema da mensagem Kafka de importação
type BranchImportMessage struct {
	OrganizationID string            `json:"organization_id"`
	Name           string            `json:"name"`
	ParentName     string            `json:"parent_name,omitempty"`
	IsRoot         *bool             `json:"is_root,omitempty"`
	Address        *entities.Address `json:"address,omitempty"`
	CreatedBy      string            `json:"created_by"`
}

type BranchCreator interface {
	Create(ctx context.Context, caller domain.CallerContext, req domain.CreateBranchRequest) (*entities.Branch, error)
}

type BranchFinder interface {
	FindByName(ctx context.Context, organizationID string, name string) (*entities.Branch, error)
}

type BranchImportConsumer struct {
	logger  *slog.Logger
	creator BranchCreator
	finder  BranchFinder
}

func NewBranchImportConsumer(
	logger *slog.Logger,
	creator BranchCreator,
	finder BranchFinder,
) *BranchImportConsumer {
	return &BranchImportConsumer{
		logger:  logger,
		creator: creator,
		finder:  finder,
	}
}

func (c *BranchImportConsumer) Start(ctx context.Context, kafkaClient *kafka.KafkaClient, topic string) error {
	c.logger.Info("Starting branch import consumer", "topic", topic)

	return kafkaClient.Consumer(ctx, c.HandleMessages, topic)
}

// HandleMessages cria os branches do lote. Pais citados no mesmo lote são criados
// antes dos filhos; a cada passada só entra quem já tem o pai resolvido.
func (c *BranchImportConsumer) HandleMessages(ctx context.Context, messages []kafka.Message) error {
	if len(messages) == 0 {
		return nil
	}

	c.logger.Info("Processing import batch", "count", len(messages))

	pending := c.decode(messages)
	created := 0

	for len(pending) > 0 {
		next := make([]BranchImportMessage, 0, len(pending))
		progressed := false

		for _, msg := range pending {
			parentID, resolved, err := c.resolveParent(ctx, msg)
			if err != nil {
				return err
			}
			if !resolved {
				next = append(next, msg)
				continue
			}

			ok, err := c.importBranch(ctx, msg, parentID)
			if err != nil {
				return err
			}
			if ok {
				created++
			}
			progressed = true
		}

		if !progressed {
			// Pai não existe nem no store nem no lote
			for _, msg := range next {
				metrics.ImportedBranches.WithLabelValues(importOrphaned).Inc()
				c.logger.Warn("Skipping branch with unknown parent",
					"organization_id", msg.OrganizationID,
					"name", msg.Name,
					"parent_name", msg.ParentName)
			}
			break
		}
		pending = next
	}

	c.logger.Info("Successfully processed import batch",
		"count", len(messages),
		"created", created)

	return nil
}

func (c *BranchImportConsumer) decode(messages []kafka.Message) []BranchImportMessage {
	decoded := make([]BranchImportMessage, 0, len(messages))

	for _, msg := range messages {
		var importMessage BranchImportMessage
		if err := json.Unmarshal(msg.Value, &importMessage); err != nil {
			metrics.ImportedBranches.WithLabelValues(importInvalid).Inc()
			c.logger.Error("Failed to unmarshal message",
				"error", err,
				"key", msg.Key,
				"value", string(msg.Value))
			continue
		}

		importMessage.OrganizationID = strings.TrimSpace(importMessage.OrganizationID)
		importMessage.Name = strings.TrimSpace(importMessage.Name)
		importMessage.ParentName = strings.TrimSpace(importMessage.ParentName)

		if importMessage.OrganizationID == "" || importMessage.Name == "" {
			metrics.ImportedBranches.WithLabelValues(importInvalid).Inc()
			c.logger.Error("Invalid message: missing required fields",
				"key", msg.Key,
				"organization_id", importMessage.OrganizationID,
				"name", importMessage.Name)
			continue
		}

		decoded = append(decoded, importMessage)
	}

	return decoded
}

func (c *BranchImportConsumer) resolveParent(ctx context.Context, msg BranchImportMessage) (string, bool, error) {
	if msg.ParentName == "" {
		return "", true, nil
	}

	parent, err := c.finder.FindByName(ctx, msg.OrganizationID, msg.ParentName)
	if errors.Is(err, domain.ErrBranchNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("BranchImportConsumer.resolveParent - parent %q: %w", msg.ParentName, err)
	}

	return parent.ID, true, nil
}

func (c *BranchImportConsumer) importBranch(ctx context.Context, msg BranchImportMessage, parentID string) (bool, error) {
	caller := domain.CallerContext{
		OrganizationID: msg.OrganizationID,
		UserID:         msg.CreatedBy,
		Role:           domain.RoleSystem,
	}

	req := domain.CreateBranchRequest{
		Name:   msg.Name,
		IsRoot: msg.IsRoot,
	}
	if parentID != "" {
		req.ParentID = &parentID
	}
	if msg.Address != nil {
		req.Address = *msg.Address
	}

	branch, err := c.creator.Create(ctx, caller, req)
	switch {
	case errors.Is(err, domain.ErrBranchAlreadyExists):
		metrics.ImportedBranches.WithLabelValues(importSkipped).Inc()
		c.logger.Debug("Branch already imported", "organization_id", msg.OrganizationID, "name", msg.Name)
		return false, nil
	case errors.Is(err, domain.ErrInvalidInput):
		metrics.ImportedBranches.WithLabelValues(importInvalid).Inc()
		c.logger.Warn("Skipping invalid branch", "organization_id", msg.OrganizationID, "name", msg.Name, "error", err)
		return false, nil
	case err != nil:
		c.logger.Error("Failed to import branch",
			"error", err,
			"organization_id", msg.OrganizationID,
			"name", msg.Name)
		return false, fmt.Errorf("failed to import branch %q: %w", msg.Name, err)
	}

	metrics.ImportedBranches.WithLabelValues(importCreated).Inc()
	c.logger.Debug("Branch imported", "branch_id", branch.ID, "name", branch.Name)
	return true, nil
}
