// Package eventbridge publishes pattern domain events to an Amazon EventBridge bus.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"dreamlog-backend/internal/domain/events"
)

// maxBatchSize is the PutEvents entry limit.
const maxBatchSize = 10

// DefaultSource is the event source stamped on every entry.
const DefaultSource = "dreamlog.patterns"

// API is the subset of the EventBridge client the publisher uses.
type API interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Publisher implements events.Publisher on EventBridge.
type Publisher struct {
	client   API
	eventBus string
	source   string
	logger   *zap.Logger
}

var _ events.Publisher = (*Publisher)(nil)

// NewPublisher creates a publisher. Empty bus and source fall back to "default" and
// DefaultSource.
func NewPublisher(client API, eventBus, source string, logger *zap.Logger) *Publisher {
	if eventBus == "" {
		eventBus = "default"
	}
	if source == "" {
		source = DefaultSource
	}
	return &Publisher{client: client, eventBus: eventBus, source: source, logger: logger}
}

// Publish sends events in batches of at most ten. It stops at the first failing batch.
func (p *Publisher) Publish(ctx context.Context, evs []events.Event) error {
	for i := 0; i < len(evs); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(evs) {
			end = len(evs)
		}
		if err := p.publishBatch(ctx, evs[i:end]); err != nil {
			return fmt.Errorf("failed to publish event batch: %w", err)
		}
	}
	return nil
}

func (p *Publisher) publishBatch(ctx context.Context, batch []events.Event) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	for _, e := range batch {
		detail, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", e.ID, err)
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBus),
			Source:       aws.String(p.source),
			DetailType:   aws.String(e.Type),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(e.OccurredAt),
		})
	}

	out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to put events: %w", err)
	}

	if out.FailedEntryCount > 0 {
		for i, entry := range out.Entries {
			if entry.ErrorCode != nil {
				p.logger.Warn("eventbridge rejected event",
					zap.String("eventType", aws.ToString(entries[i].DetailType)),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)))
			}
		}
		return fmt.Errorf("%d events failed to publish", out.FailedEntryCount)
	}

	p.logger.Debug("published events", zap.Int("count", len(entries)), zap.String("bus", p.eventBus))
	return nil
}
