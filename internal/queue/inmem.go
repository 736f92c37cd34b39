package queue

import (
	"context"
	"sync"
)

// Settlement records how a dispatched delivery was settled.
type Settlement struct {
	Acked        bool
	DeadLettered bool
	Reason       string
}

// Inmem is an in-process channel used by tests and local development,
// in place of a real broker.
type Inmem struct {
	mu        sync.Mutex
	messages  []Message
	SubmitErr error // when set, Submit fails with this error
}

func NewInmem() *Inmem { return &Inmem{} }

func (q *Inmem) Submit(ctx context.Context, m Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.SubmitErr != nil {
		return q.SubmitErr
	}
	q.messages = append(q.messages, m)
	return nil
}

// Messages returns a snapshot of everything submitted so far.
func (q *Inmem) Messages() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Message, len(q.messages))
	copy(out, q.messages)
	return out
}

// Dispatch runs h against one message and reports how it was settled.
func (q *Inmem) Dispatch(ctx context.Context, h Handler, m Message) Settlement {
	var s Settlement
	h(ctx, Delivery{
		Message: m,
		Ack: func(context.Context) error {
			s.Acked = true
			return nil
		},
		DeadLetter: func(_ context.Context, reason string) error {
			s.DeadLettered = true
			s.Reason = reason
			return nil
		},
	})
	return s
}
