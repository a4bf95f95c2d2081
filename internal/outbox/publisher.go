package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/hotel-reservations/internal/adapters/postgres"
	"github.com/robertarktes/hotel-reservations/internal/adapters/rabbit"
	"github.com/robertarktes/hotel-reservations/internal/observability"
)

// Publisher relays committed outbox rows to the broker. At-least-once:
// a row is marked PUBLISHED only after a successful publish, and consumers
// dedupe on the message id. Each batch is claimed and marked inside one
// transaction so the SKIP LOCKED row locks hold until the marks commit and
// concurrent publisher instances never share a batch.
type Publisher struct {
	repo      *postgres.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewPublisher(repo *postgres.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{repo: repo, rabbitPub: rabbitPub, logger: logger}
}

func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.drain(ctx, now)
		}
	}
}

func (p *Publisher) drain(ctx context.Context, now time.Time) {
	if lag, err := p.repo.OldestUnpublishedAge(ctx, now); err == nil {
		observability.OutboxLag.Set(lag.Seconds())
	}

	err := p.repo.WithTx(ctx, func(txCtx context.Context) error {
		records, err := p.repo.GetUnpublishedOutbox(txCtx, 50)
		if err != nil {
			return err
		}
		for _, rec := range records {
			msg := amqp.Publishing{
				MessageId:   rec.DedupeKey,
				ContentType: "application/json",
				Body:        rec.Payload,
			}
			if err := p.rabbitPub.Publish(txCtx, rec.EventType, msg); err != nil {
				p.logger.WithField("event_type", rec.EventType).Error("failed to publish outbox record: ", err)
				continue
			}
			if err := p.repo.MarkPublished(txCtx, rec.ID, time.Now()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		p.logger.Error("failed to drain outbox: ", err)
	}
}
