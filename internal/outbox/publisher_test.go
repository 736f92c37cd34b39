package outbox

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orderflow/order-service/internal/logger"
	"github.com/orderflow/order-service/internal/model"
	"github.com/orderflow/order-service/internal/queue"
	"github.com/orderflow/order-service/internal/repo"
)

func newTestPublisher(t *testing.T) (*Publisher, *repo.Repository, *queue.Inmem, context.Context) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&model.Order{}, &model.OrderStatusHistory{}, &model.OutboxEvent{}))

	rdb, _ := redismock.NewClientMock()
	log, _ := logger.NewLogger()
	r := repo.NewRepository(db, rdb, log)
	q := queue.NewInmem()
	return New(r, q, log, time.Second, 100), r, q, context.Background()
}

func seedEvent(t *testing.T, r *repo.Repository, ctx context.Context, createdAt time.Time) *model.OutboxEvent {
	evt := &model.OutboxEvent{
		AggregateID:   uuid.New(),
		Type:          "OrderCreated",
		Payload:       "{}",
		CorrelationID: uuid.NewString(),
		CreatedAt:     createdAt,
	}
	assert.NoError(t, r.CreateOutboxEvent(ctx, r.DB(ctx), evt))
	return evt
}

func TestCycle_PublishesOldestFirstAndMarks(t *testing.T) {
	p, r, q, ctx := newTestPublisher(t)
	base := time.Now().UTC().Add(-time.Minute)
	second := seedEvent(t, r, ctx, base.Add(time.Second))
	first := seedEvent(t, r, ctx, base)

	p.Cycle(ctx)

	msgs := q.Messages()
	assert.Len(t, msgs, 2)
	assert.Equal(t, first.AggregateID.String(), msgs[0].Body)
	assert.Equal(t, first.CorrelationID, msgs[0].CorrelationID)
	assert.Equal(t, "OrderCreated", msgs[0].Subject)
	assert.Equal(t, second.AggregateID.String(), msgs[1].Body)

	left, err := r.PollOutbox(ctx, 10)
	assert.NoError(t, err)
	assert.Empty(t, left)

	// a second cycle must not republish processed rows
	p.Cycle(ctx)
	assert.Len(t, q.Messages(), 2)
}

func TestCycle_SubmitFailureLeavesRowUnprocessed(t *testing.T) {
	p, r, q, ctx := newTestPublisher(t)
	evt := seedEvent(t, r, ctx, time.Now().UTC())

	q.SubmitErr = errors.New("channel unavailable")
	p.Cycle(ctx)

	assert.Empty(t, q.Messages())
	left, err := r.PollOutbox(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, left, 1)
	assert.Equal(t, evt.ID, left[0].ID)

	// next cycle retries once the channel is back
	q.SubmitErr = nil
	p.Cycle(ctx)
	assert.Len(t, q.Messages(), 1)
	left, err = r.PollOutbox(ctx, 10)
	assert.NoError(t, err)
	assert.Empty(t, left)
}
