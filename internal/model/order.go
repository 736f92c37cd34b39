package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order lifecycle statuses. Transitions only move forward.
const (
	StatusPending    = "Pending"
	StatusProcessing = "Processing"
	StatusFinalized  = "Finalized"
)

var statusRank = map[string]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusFinalized:  2,
}

// StatusRank returns the position of a status in the lifecycle.
// The second return value is false for unknown statuses.
func StatusRank(status string) (int, bool) {
	r, ok := statusRank[status]
	return r, ok
}

type Order struct {
	ID              uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	Customer        string               `gorm:"size:128;not null" json:"customer"`
	Product         string               `gorm:"size:128;not null" json:"product"`
	Amount          decimal.Decimal      `gorm:"type:numeric(20,8);not null" json:"amount"`
	Status          string               `gorm:"size:32;not null" json:"status"`
	CreatedAt       time.Time            `gorm:"autoCreateTime" json:"created_at"`
	StatusHistories []OrderStatusHistory `gorm:"foreignKey:OrderID" json:"status_histories"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
