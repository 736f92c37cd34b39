package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/orderflow/order-service/internal/config"
)

const (
	headerCorrelationID = "correlation-id"
	headerSubject       = "subject"
	headerDeadReason    = "dead-letter-reason"
)

// Kafka backs the channel with one topic for deliveries and one for dead
// letters. Reads use a consumer group with manual commits so an unsettled
// message is redelivered after a restart.
type Kafka struct {
	writer *kafka.Writer
	dead   *kafka.Writer
	reader *kafka.Reader
	log    *zap.SugaredLogger
}

// NewKafka wires the writers and the group reader. The group is only joined
// once Run starts fetching, so publisher-only processes stay out of it.
func NewKafka(cfg config.KafkaConfig, log *zap.SugaredLogger) *Kafka {
	k := &Kafka{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		},
		log: log,
	}
	if cfg.DeadLetterTopic != "" {
		k.dead = &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.DeadLetterTopic,
			Balancer: &kafka.LeastBytes{},
		}
	}
	k.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.Group,
	})
	return k
}

// Submit sends one message with correlation id and subject carried as headers.
func (k *Kafka) Submit(ctx context.Context, m Message) error {
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(m.CorrelationID),
		Value: []byte(m.Body),
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: headerCorrelationID, Value: []byte(m.CorrelationID)},
			{Key: headerSubject, Value: []byte(m.Subject)},
		},
	})
}

// Run fetches messages and hands them to h until ctx is cancelled. Fetch and
// settlement errors are logged and the loop keeps going.
func (k *Kafka) Run(ctx context.Context, h Handler) {
	for {
		km, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			k.log.Errorf("fetch message: %v", err)
			continue
		}
		h(ctx, k.delivery(km))
	}
}

func (k *Kafka) delivery(km kafka.Message) Delivery {
	m := Message{Body: string(km.Value)}
	for _, hd := range km.Headers {
		switch hd.Key {
		case headerCorrelationID:
			m.CorrelationID = string(hd.Value)
		case headerSubject:
			m.Subject = string(hd.Value)
		}
	}
	return Delivery{
		Message: m,
		Ack: func(ctx context.Context) error {
			return k.reader.CommitMessages(ctx, km)
		},
		DeadLetter: func(ctx context.Context, reason string) error {
			if k.dead == nil {
				return fmt.Errorf("no dead-letter topic configured")
			}
			dl := kafka.Message{
				Key:     km.Key,
				Value:   km.Value,
				Time:    time.Now(),
				Headers: append(km.Headers, kafka.Header{Key: headerDeadReason, Value: []byte(reason)}),
			}
			if err := k.dead.WriteMessages(ctx, dl); err != nil {
				return fmt.Errorf("write dead letter: %w", err)
			}
			return k.reader.CommitMessages(ctx, km)
		},
	}
}

// Close releases the kafka connections.
func (k *Kafka) Close() error {
	var errs []error
	if err := k.writer.Close(); err != nil {
		errs = append(errs, err)
	}
	if k.dead != nil {
		if err := k.dead.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := k.reader.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
