package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orderflow/order-service/internal/model"
	"github.com/orderflow/order-service/internal/queue"
	"github.com/orderflow/order-service/internal/repo"
)

// Notifier is the post-commit hook invoked after each persisted transition.
type Notifier interface {
	OrderUpdated(ctx context.Context, orderID uuid.UUID) error
}

// Consumer drives an order through Pending → Processing → Finalized. Handling
// is idempotent against redelivery: a finalized order is acknowledged without
// effect. Redelivery while the order sits in Processing re-runs the tail of
// the lifecycle, which can duplicate a history row and a notification but
// always converges on Finalized.
type Consumer struct {
	repo     repo.RepositoryInterface
	notifier Notifier
	log      *zap.SugaredLogger
	delay    time.Duration
}

func NewConsumer(r repo.RepositoryInterface, n Notifier, log *zap.SugaredLogger, delay time.Duration) *Consumer {
	return &Consumer{repo: r, notifier: n, log: log, delay: delay}
}

// Handle processes one delivery end to end and settles it.
func (c *Consumer) Handle(ctx context.Context, d queue.Delivery) {
	id, err := uuid.Parse(d.Body)
	if err != nil {
		c.log.Warnf("invalid order id %q: %v", d.Body, err)
		if err := d.DeadLetter(ctx, "invalid order id"); err != nil {
			c.log.Errorf("dead-letter: %v", err)
		}
		return
	}

	order, err := c.repo.GetOrder(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Stale or irrelevant event; nothing to do for this order.
		c.log.Warnf("order %s not found, completing message", id)
		c.ack(ctx, d)
		return
	}
	if err != nil {
		// Transient store failure: leave the message unsettled so the
		// channel redelivers it.
		c.log.Errorf("load order %s: %v", id, err)
		return
	}

	if order.Status == model.StatusFinalized {
		c.log.Infof("order %s already finalized, ignoring", id)
		c.ack(ctx, d)
		return
	}

	if err := c.transition(ctx, id, model.StatusProcessing); err != nil {
		c.log.Errorf("order %s -> %s: %v", id, model.StatusProcessing, err)
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(c.delay):
	}

	if err := c.transition(ctx, id, model.StatusFinalized); err != nil {
		c.log.Errorf("order %s -> %s: %v", id, model.StatusFinalized, err)
		return
	}

	c.log.Infof("order %s finalized", id)
	c.ack(ctx, d)
}

// transition persists the status change and then notifies. The notification
// runs after the commit and its failure never rolls the transition back.
func (c *Consumer) transition(ctx context.Context, id uuid.UUID, status string) error {
	order, err := c.repo.TransitionOrder(ctx, id, status)
	if err != nil {
		return err
	}
	if err := c.repo.CacheOrder(ctx, order); err != nil {
		c.log.Warnf("cache order %s: %v", id, err)
	}
	if err := c.notifier.OrderUpdated(ctx, id); err != nil {
		c.log.Warnf("notify order %s: %v", id, err)
	}
	return nil
}

func (c *Consumer) ack(ctx context.Context, d queue.Delivery) {
	if err := d.Ack(ctx); err != nil {
		c.log.Errorf("ack: %v", err)
	}
}
