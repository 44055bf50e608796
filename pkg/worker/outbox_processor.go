package worker

import (
	"context"
	"time"

	"github.com/hmarroquin/labtrack-api/internal/repository"
	"github.com/hmarroquin/labtrack-api/pkg/logger"
	"github.com/hmarroquin/labtrack-api/pkg/messaging"
	"github.com/hmarroquin/labtrack-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	Channel      string
}

// OutboxProcessor drains pending outbox events to the broker. Events are
// written transactionally by the producing services; publication here is
// at-least-once.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.Channel == "" {
		config.Channel = "labtrack.events"
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processEvents(ctx); err != nil {
				p.logger.Error(err, "failed to process outbox events")
			}
		}
	}
}

func (p *OutboxProcessor) processEvents(ctx context.Context) error {
	events, err := p.repo.GetPendingEvents(ctx, p.config.BatchSize)
	if err != nil {
		return err
	}

	for _, event := range events {
		start := time.Now()
		err := p.broker.Publish(ctx, p.config.Channel, messaging.Message{
			Type:    event.EventType,
			Payload: event.Payload,
		})
		p.metrics.OutboxPublishLatency.Observe(time.Since(start).Seconds())

		if err != nil {
			p.metrics.OutboxEventsFailed.Inc()
			msg := err.Error()
			if markErr := p.repo.MarkFailed(ctx, event.ID, msg); markErr != nil {
				p.logger.Error(markErr, "failed to mark event failed", "event_id", event.ID)
			}
			continue
		}

		p.metrics.OutboxEventsProcessed.Inc()
		if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
			p.logger.Error(err, "failed to mark event processed", "event_id", event.ID)
		}
	}

	return nil
}
