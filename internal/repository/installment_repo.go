package repository

import (
	"ravehub-payments-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InstallmentRepository struct {
	db *gorm.DB
}

func NewInstallmentRepository(db *gorm.DB) *InstallmentRepository {
	return &InstallmentRepository{db: db}
}

// Expose DB if needed
func (r *InstallmentRepository) DB() *gorm.DB {
	return r.db
}

// GetByID fetch a single installment by ID
func (r *InstallmentRepository) GetByID(id uuid.UUID) (*models.Installment, error) {
	var in models.Installment
	err := r.db.First(&in, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// ListByTicket returns the full ledger for one ticket in payment order.
func (r *InstallmentRepository) ListByTicket(ticketID uuid.UUID) ([]models.Installment, error) {
	var ledger []models.Installment
	err := r.db.
		Where("ticket_id = ?", ticketID).
		Order("number ASC").
		Find(&ledger).Error
	return ledger, err
}

// ListPending returns installments awaiting adjudication: a proof was
// uploaded, no admin approval yet, not rejected.
func (r *InstallmentRepository) ListPending(limit int) ([]models.Installment, error) {
	var pending []models.Installment
	err := r.db.
		Where("proof_url IS NOT NULL AND proof_url <> ''").
		Where("admin_approved = ?", false).
		Where("status <> ?", models.InstallmentRejected).
		Order("updated_at ASC").
		Limit(limit).
		Find(&pending).Error
	return pending, err
}

// UpdateWhere applies updates to the installment only when cond still holds,
// returning the number of rows touched. A zero count means another writer got
// there first and the caller must re-fetch.
func (r *InstallmentRepository) UpdateWhere(id uuid.UUID, updates map[string]interface{}, cond string, args ...interface{}) (int64, error) {
	res := r.db.Model(&models.Installment{}).
		Where("id = ?", id).
		Where(cond, args...).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// CreateBatch inserts a whole payment plan in one statement.
func (r *InstallmentRepository) CreateBatch(ledger []models.Installment) error {
	return r.db.Create(&ledger).Error
}
