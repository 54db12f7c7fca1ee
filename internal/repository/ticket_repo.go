package repository

import (
	"time"

	"ravehub-payments-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) GetByID(id uuid.UUID) (*models.Ticket, error) {
	var t models.Ticket
	if err := r.db.First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TicketRepository) ListByUser(userID uuid.UUID) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&tickets).Error
	return tickets, err
}

func (r *TicketRepository) Create(t *models.Ticket) error {
	return r.db.Create(t).Error
}

// SetDelivered flips the delivery gate once the ledger settles; Revert flips
// it back with delivered=false.
func (r *TicketRepository) SetDelivered(id uuid.UUID, delivered bool) error {
	updates := map[string]interface{}{"delivered": delivered}
	if delivered {
		updates["delivered_at"] = time.Now()
	} else {
		updates["delivered_at"] = nil
	}
	return r.db.Model(&models.Ticket{}).Where("id = ?", id).Updates(updates).Error
}
