package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orderflow/order-service/internal/logger"
	"github.com/orderflow/order-service/internal/model"
	"github.com/orderflow/order-service/internal/repo"
)

func newTestService(t *testing.T) (*OrderService, context.Context) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&model.Order{}, &model.OrderStatusHistory{}, &model.OutboxEvent{}))

	// cache misses and failed Sets are tolerated, so no expectations needed
	rdb, _ := redismock.NewClientMock()
	log, _ := logger.NewLogger()
	repository := repo.NewRepository(db, rdb, log)
	return NewOrderService(repository, log), context.Background()
}

func TestCreateOrder_WritesOrderHistoryAndOutbox(t *testing.T) {
	svc, ctx := newTestService(t)

	order, err := svc.CreateOrder(ctx, "alice", "widget", decimal.NewFromInt(99))
	assert.NoError(t, err)
	assert.Equal(t, model.StatusPending, order.Status)

	got, err := svc.Repo().GetOrder(ctx, order.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Len(t, got.StatusHistories, 1)
	assert.Equal(t, model.StatusPending, got.StatusHistories[0].Status)

	evts, err := svc.Repo().PollOutbox(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, evts, 1)
	assert.Equal(t, order.ID, evts[0].AggregateID)
	assert.Equal(t, EventOrderCreated, evts[0].Type)
	assert.Equal(t, order.ID.String(), evts[0].CorrelationID)
	assert.Nil(t, evts[0].ProcessedAt)
}

func TestCreateOrder_RejectsNegativeAmount(t *testing.T) {
	svc, ctx := newTestService(t)

	_, err := svc.CreateOrder(ctx, "alice", "widget", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	orders, err := svc.ListOrders(ctx)
	assert.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrder_ZeroAmountAllowed(t *testing.T) {
	svc, ctx := newTestService(t)

	order, err := svc.CreateOrder(ctx, "bob", "sample", decimal.Zero)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusPending, order.Status)
}

func TestGetOrder_FallsBackToStoreOnCacheMiss(t *testing.T) {
	svc, ctx := newTestService(t)

	order, err := svc.CreateOrder(ctx, "alice", "widget", decimal.NewFromInt(5))
	assert.NoError(t, err)

	got, err := svc.GetOrder(ctx, order.ID)
	assert.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestBroadcastUpdate_UnknownOrder(t *testing.T) {
	svc, ctx := newTestService(t)

	_, err := svc.BroadcastUpdate(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
