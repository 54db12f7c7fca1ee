package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Persisted installment statuses. Display state is derived, see internal/ledger.
const (
	InstallmentUnpaid   = "unpaid"
	InstallmentPaid     = "paid"
	InstallmentRejected = "rejected"
)

type Installment struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TicketID        uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_ticket_installment" json:"ticket_id"`
	Number          int             `gorm:"uniqueIndex:idx_ticket_installment" json:"number"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	DueDate         time.Time       `json:"due_date"`
	Status          string          `gorm:"index" json:"status"`
	AdminApproved   bool            `json:"admin_approved"`
	ProofURL        *string         `json:"proof_url,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
