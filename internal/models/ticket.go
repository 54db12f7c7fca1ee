package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Ticket struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;index" json:"user_id"`
	EventName   string          `json:"event_name"`
	TicketType  string          `json:"ticket_type"`
	Currency    string          `json:"currency"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_amount"`
	Delivered   bool            `json:"delivered"`
	DeliveredAt *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
