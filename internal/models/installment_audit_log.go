package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type InstallmentAuditLog struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	InstallmentID  uuid.UUID `gorm:"type:uuid;index"`
	Action         string
	PreviousStatus string
	NewStatus      string
	PerformedBy    string
	Reason         string
	Details        datatypes.JSON
	CreatedAt      time.Time
}
