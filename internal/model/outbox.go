package model

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is a durable intent-to-publish row, written in the same
// transaction as the aggregate it describes. ProcessedAt == nil means the
// publisher has not sent it yet; the row is never deleted here.
type OutboxEvent struct {
	ID            uint64     `gorm:"primaryKey" json:"id"`
	AggregateID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"aggregate_id"`
	Type          string     `gorm:"size:64;not null" json:"type"`
	Payload       string     `gorm:"type:jsonb;not null" json:"payload"`
	CorrelationID string     `gorm:"size:64;not null" json:"correlation_id"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at"`
}

func (OutboxEvent) TableName() string { return "event_outbox" }
