package queue

import "context"

// Message is the wire unit exchanged over the channel. Body carries the order
// id in canonical string form; there is no structured envelope yet.
// TODO: wrap the body in a versioned envelope before adding new event kinds.
type Message struct {
	Body          string
	CorrelationID string
	Subject       string
}

// Delivery is one received message plus its settlement handles. Exactly one
// of Ack or DeadLetter should be called; calling neither leaves the message
// for redelivery per the channel's own lease semantics.
type Delivery struct {
	Message
	Ack        func(ctx context.Context) error
	DeadLetter func(ctx context.Context, reason string) error
}

// Handler processes one delivery. It settles the message itself; errors it
// cannot settle are logged by the receive loop, never fatal.
type Handler func(ctx context.Context, d Delivery)

// Submitter is the producing half of the channel.
type Submitter interface {
	Submit(ctx context.Context, m Message) error
}
