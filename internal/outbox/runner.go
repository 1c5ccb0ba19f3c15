package outbox

import (
	"context"
	"time"

	"marketplace-chat/config"
	"marketplace-chat/internal/mailer"
	"marketplace-chat/internal/repository"
	"marketplace-chat/pkg/logger"
)

type Runner struct {
	processor *Processor
}

func NewRunner(processor *Processor) *Runner {
	return &Runner{processor: processor}
}

func (r *Runner) Start(ctx context.Context) {
	go r.processor.Run(ctx)
}

func DefaultProcessor(cfg *config.Config, repo repository.OutboxRepository, m mailer.Mailer, l *logger.Logger) *Processor {
	interval := cfg.OutboxInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	maxRetries := cfg.OutboxMaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return NewProcessor(repo, m, 100, interval, maxRetries, l)
}
