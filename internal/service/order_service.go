package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orderflow/order-service/internal/model"
	"github.com/orderflow/order-service/internal/repo"
)

// EventOrderCreated tags the outbox row written when an order is created.
const EventOrderCreated = "OrderCreated"

// ErrInvalidAmount means a negative amount was passed.
var ErrInvalidAmount = errors.New("amount must not be negative")

// OrderService glues business logic and repository.
type OrderService struct {
	repo repo.RepositoryInterface
	log  *zap.SugaredLogger
}

// NewOrderService returns OrderService.
func NewOrderService(r repo.RepositoryInterface, logger *zap.SugaredLogger) *OrderService {
	return &OrderService{repo: r, log: logger}
}

// CreateOrder persists a new Pending order, its first history row and the
// OrderCreated outbox row in one transaction. The outbox publisher picks the
// row up later; nothing is sent to the channel here.
func (s *OrderService) CreateOrder(ctx context.Context, customer, product string, amount decimal.Decimal) (*model.Order, error) {
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	now := time.Now().UTC()
	order := &model.Order{
		ID:        uuid.New(),
		Customer:  customer,
		Product:   product,
		Amount:    amount,
		Status:    model.StatusPending,
		CreatedAt: now,
	}
	order.StatusHistories = []model.OrderStatusHistory{{
		OrderID:   order.ID,
		Status:    model.StatusPending,
		ChangedAt: now,
	}}

	payload, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}
	evt := &model.OutboxEvent{
		AggregateID:   order.ID,
		Type:          EventOrderCreated,
		Payload:       string(payload),
		CorrelationID: order.ID.String(),
	}

	err = s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.CreateOrder(ctx, tx, order); err != nil {
			return err
		}
		return s.repo.CreateOutboxEvent(ctx, tx, evt)
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.CacheOrder(ctx, order); err != nil {
		s.log.Warnf("cache order %s: %v", order.ID, err)
	}
	return order, nil
}

// GetOrder reads through the cache, falling back to the store.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	if o, err := s.repo.GetCachedOrder(ctx, id); err == nil {
		return o, nil
	}
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CacheOrder(ctx, o); err != nil {
		s.log.Warnf("cache order %s: %v", id, err)
	}
	return o, nil
}

// ListOrders returns all orders with histories.
func (s *OrderService) ListOrders(ctx context.Context) ([]model.Order, error) {
	return s.repo.ListOrders(ctx)
}

// BroadcastUpdate reloads an order and fans it out to live listeners. Backs
// the notify endpoint the worker calls after each transition.
func (s *OrderService) BroadcastUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.PublishOrderUpdate(ctx, o); err != nil {
		s.log.Warnf("broadcast order %s: %v", id, err)
	}
	return o, nil
}

// Ping reports store connectivity for health checks.
func (s *OrderService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Repo exposes underlying repository (unit tests helper).
func (s *OrderService) Repo() repo.RepositoryInterface {
	return s.repo
}
