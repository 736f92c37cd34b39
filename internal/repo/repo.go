package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/orderflow/order-service/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStatusRegression is returned when a transition would move an order
// backwards in its lifecycle.
var ErrStatusRegression = errors.New("order status cannot move backwards")

// ErrUnknownStatus is returned for a status outside the lifecycle enum.
var ErrUnknownStatus = errors.New("unknown order status")

// updatesChannel is the redis pub/sub channel live listeners subscribe to.
const updatesChannel = "orders:updates"

const orderCacheTTL = 5 * time.Minute

// RepositoryInterface restricts Repo methods (方便单元测试 mock)
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB
	Ping(ctx context.Context) error
	CreateOrder(ctx context.Context, tx *gorm.DB, o *model.Order) error
	CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	TransitionOrder(ctx context.Context, id uuid.UUID, status string) (*model.Order, error)
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uint64) error
	CacheOrder(ctx context.Context, o *model.Order) error
	GetCachedOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	PublishOrderUpdate(ctx context.Context, o *model.Order) error
}

// Repository implements RepositoryInterface.
type Repository struct {
	db  *gorm.DB
	rdb *redis.Client
	log *zap.SugaredLogger
}

// NewRepository constructs repo.
func NewRepository(db *gorm.DB, rdb *redis.Client, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CreateOrder inserts an order together with any pre-filled history rows.
func (r *Repository) CreateOrder(ctx context.Context, tx *gorm.DB, o *model.Order) error {
	return tx.WithContext(ctx).Create(o).Error
}

// CreateOutboxEvent writes event.
func (r *Repository) CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error {
	return tx.WithContext(ctx).Create(evt).Error
}

// GetOrder loads an order with its history ordered by change time.
func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("StatusHistories", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at asc")
		}).
		Where("id = ?", id).First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrders returns all orders with histories, newest first.
func (r *Repository) ListOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Preload("StatusHistories", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at asc")
		}).
		Order("created_at desc").
		Find(&orders).Error
	return orders, err
}

// TransitionOrder sets the order status and appends one history row in a
// single transaction. Reverse transitions are rejected; re-applying the
// current status is allowed (redelivery may repeat a transition).
func (r *Repository) TransitionOrder(ctx context.Context, id uuid.UUID, status string) (*model.Order, error) {
	newRank, ok := model.StatusRank(status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o model.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&o).Error; err != nil {
			return err
		}
		curRank, ok := model.StatusRank(o.Status)
		if ok && newRank < curRank {
			return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, o.Status, status)
		}
		now := time.Now().UTC()
		if err := tx.Model(&model.Order{}).Where("id = ?", id).
			Update("status", status).Error; err != nil {
			return err
		}
		return tx.Create(&model.OrderStatusHistory{
			OrderID:   id,
			Status:    status,
			ChangedAt: now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetOrder(ctx, id)
}

// PollOutbox pulls unprocessed events, oldest first.
func (r *Repository) PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var evts []model.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Order("created_at, id").
		Limit(limit).
		Find(&evts).Error
	return evts, err
}

// MarkOutboxProcessed sets the processed timestamp once.
func (r *Repository) MarkOutboxProcessed(ctx context.Context, id uint64) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).
		Where("id = ? AND processed_at IS NULL", id).
		Update("processed_at", &now).Error
}

// CacheOrder writes Redis.
func (r *Repository) CacheOrder(ctx context.Context, o *model.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, fmt.Sprintf("order:%s", o.ID), data, orderCacheTTL).Err()
}

// GetCachedOrder reads Redis.
func (r *Repository) GetCachedOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	str, err := r.rdb.Get(ctx, fmt.Sprintf("order:%s", id)).Result()
	if err != nil {
		return nil, err
	}
	var o model.Order
	if err := json.Unmarshal([]byte(str), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// PublishOrderUpdate fans the order out to live listeners via redis pub/sub.
func (r *Repository) PublishOrderUpdate(ctx context.Context, o *model.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, updatesChannel, data).Err()
}
