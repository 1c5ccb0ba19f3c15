package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-chat/internal/domain/outbox"
	"marketplace-chat/internal/mailer"
	"marketplace-chat/internal/repository"
	"marketplace-chat/pkg/logger"

	"go.uber.org/zap"
)

// Processor retries deliveries that failed on the request path. Today the
// only kind is a notification email.
type Processor struct {
	repo       repository.OutboxRepository
	mailer     mailer.Mailer
	batchSize  int
	interval   time.Duration
	maxRetries int
	logger     *logger.Logger
}

func NewProcessor(repo repository.OutboxRepository, m mailer.Mailer, batchSize int, interval time.Duration, maxRetries int, l *logger.Logger) *Processor {
	if l == nil {
		l = logger.NewNop()
	}
	return &Processor{
		repo:       repo,
		mailer:     m,
		batchSize:  batchSize,
		interval:   interval,
		maxRetries: maxRetries,
		logger:     l,
	}
}

func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch handles one batch of pending events and returns how many
// were completed.
func (p *Processor) ProcessBatch(ctx context.Context) int {
	batch, err := p.repo.GetPending(ctx, p.batchSize)
	if err != nil {
		p.logger.Logger.Error("outbox fetch failed", zap.Error(err))
		return 0
	}

	completed := 0
	for _, e := range batch {
		log := p.logger.Logger.With(
			zap.String("outbox_id", e.ID.String()),
			zap.String("event_type", e.EventType),
			zap.Int("retry_count", e.RetryCount),
		)

		if e.RetryCount >= p.maxRetries {
			_ = p.repo.MarkFailed(ctx, e.ID, "max retries exceeded")
			log.Warn("outbox event gave up")
			continue
		}
		if err := p.repo.MarkProcessing(ctx, e.ID); err != nil {
			log.Error("outbox claim failed", zap.Error(err))
			continue
		}

		if err := p.handle(ctx, e); err != nil {
			log.Warn("outbox delivery failed", zap.Error(err))
			if e.RetryCount+1 >= p.maxRetries {
				_ = p.repo.MarkFailed(ctx, e.ID, err.Error())
				continue
			}
			_ = p.repo.IncrementRetry(ctx, e.ID, err.Error())
			continue
		}

		_ = p.repo.MarkCompleted(ctx, e.ID)
		completed++
	}
	return completed
}

func (p *Processor) handle(ctx context.Context, e outbox.OutboxEvent) error {
	switch e.EventType {
	case outbox.EventNotificationEmail:
		var email mailer.Email
		if err := json.Unmarshal(e.Payload, &email); err != nil {
			return fmt.Errorf("decode email: %w", err)
		}
		return p.mailer.Send(ctx, email)
	default:
		return fmt.Errorf("unknown outbox event type %q", e.EventType)
	}
}
