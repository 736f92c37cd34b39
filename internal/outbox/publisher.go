package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/orderflow/order-service/internal/queue"
	"github.com/orderflow/order-service/internal/repo"
)

// Publisher drains unprocessed outbox rows onto the message channel. Rows are
// retried every cycle until a submit succeeds; the processed mark is committed
// per event, so a crash mid-cycle duplicates at most the event in flight.
type Publisher struct {
	repo     repo.RepositoryInterface
	channel  queue.Submitter
	log      *zap.SugaredLogger
	interval time.Duration
	batch    int
}

func New(r repo.RepositoryInterface, ch queue.Submitter, log *zap.SugaredLogger, interval time.Duration, batch int) *Publisher {
	return &Publisher{repo: r, channel: ch, log: log, interval: interval, batch: batch}
}

// Run polls on a fixed interval until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Infof("outbox publisher started, interval=%s", p.interval)
	for {
		select {
		case <-ctx.Done():
			p.log.Info("outbox publisher stopped")
			return
		case <-ticker.C:
			p.Cycle(ctx)
		}
	}
}

// Cycle is one bounded unit of work: publish every currently unprocessed row,
// oldest first. A failed submit leaves the row for the next cycle.
func (p *Publisher) Cycle(ctx context.Context) {
	events, err := p.repo.PollOutbox(ctx, p.batch)
	if err != nil {
		p.log.Errorf("poll outbox: %v", err)
		return
	}
	for _, evt := range events {
		msg := queue.Message{
			Body:          evt.AggregateID.String(),
			CorrelationID: evt.CorrelationID,
			Subject:       evt.Type,
		}
		if err := p.channel.Submit(ctx, msg); err != nil {
			p.log.Errorf("publish outbox event %d: %v", evt.ID, err)
			continue
		}
		if err := p.repo.MarkOutboxProcessed(ctx, evt.ID); err != nil {
			p.log.Errorf("mark processed id=%d: %v", evt.ID, err)
		} else {
			p.log.Infof("outbox event %d sent", evt.ID)
		}
	}
}
