package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"orghierarchy/src/domain"
	"orghierarchy/src/infra/kafka"
)

const (
	sourceService = "org-hierarchy-api"
	schemaVersion = "v1"
)

// Producer é o subconjunto do KafkaClient usado para publicar.
type Producer interface {
	Producer(messages []kafka.Message, topic string) error
}

type BranchEventPublisher struct {
	logger   *slog.Logger
	producer Producer
	topic    string
}

func NewBranchEventPublisher(
	logger *slog.Logger,
	producer Producer,
	topic string,
) *BranchEventPublisher {
	return &BranchEventPublisher{
		logger:   logger,
		producer: producer,
		topic:    topic,
	}
}

// Publish envia o evento de forma síncrona. Erros são logados e não propagados:
// a mutação já foi persistida.
func (p *BranchEventPublisher) Publish(ctx context.Context, event domain.BranchEvent) {
	if err := p.PublishBranchEvents(ctx, []domain.BranchEvent{event}); err != nil {
		p.logger.Error("Failed to publish branch event",
			"error", err,
			"event_id", event.EventID,
			"event_type", event.EventType,
			"branch_id", event.Data.ID)
	}
}

// PublishBranchEvents publica um lote de eventos, particionados pelo id do branch.
func (p *BranchEventPublisher) PublishBranchEvents(ctx context.Context, events []domain.BranchEvent) error {
	if len(events) == 0 {
		return nil
	}

	kafkaMessages := make([]kafka.Message, 0, len(events))

	for _, event := range events {
		eventBytes, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("Failed to marshal branch event",
				"error", err,
				"event_id", event.EventID,
				"branch_id", event.Data.ID)
			continue
		}

		kafkaMessages = append(kafkaMessages, kafka.Message{
			Key:     event.Data.ID, // Partition by branch for ordering
			Value:   eventBytes,
			Headers: p.createEventHeaders(event),
		})
	}

	if err := p.producer.Producer(kafkaMessages, p.topic); err != nil {
		return fmt.Errorf("failed to publish branch events to topic %s: %w", p.topic, err)
	}

	p.logger.Debug("Published branch events", "topic", p.topic, "events_count", len(kafkaMessages))

	return nil
}

// createEventHeaders cria headers para filtragem no consumidor sem abrir o payload
func (p *BranchEventPublisher) createEventHeaders(event domain.BranchEvent) map[string]string {
	headers := map[string]string{
		"event_type":      event.EventType,
		"organization_id": event.OrganizationID,
		"source_service":  sourceService,
		"schema_version":  schemaVersion,
		"event_id":        event.EventID,
	}

	if event.PreviousParent != "" {
		headers["previous_parent_id"] = event.PreviousParent
	}

	return headers
}
