package installments

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"ravehub-payments-backend/internal/config"
	"ravehub-payments-backend/internal/ledger"
	"ravehub-payments-backend/internal/models"
	"ravehub-payments-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrStaleState is returned when a conditional update touches zero rows:
// another writer changed the installment first. Callers must re-fetch the
// ledger before retrying.
var ErrStaleState = errors.New("installment state changed, re-fetch before retrying")

// ErrNotPayable is returned when a proof is submitted for an installment that
// is neither active nor rejected.
var ErrNotPayable = errors.New("installment is not currently payable")

const cacheTTL = 5 * time.Minute

type InstallmentService struct {
	installmentRepo  *repository.InstallmentRepository
	ticketRepo       *repository.TicketRepository
	notificationRepo *repository.NotificationRepository
	db               *gorm.DB
}

func NewInstallmentService(
	installmentRepo *repository.InstallmentRepository,
	ticketRepo *repository.TicketRepository,
	notificationRepo *repository.NotificationRepository,
) *InstallmentService {
	return &InstallmentService{
		installmentRepo:  installmentRepo,
		ticketRepo:       ticketRepo,
		notificationRepo: notificationRepo,
		db:               installmentRepo.DB(),
	}
}

// LedgerEntry is one installment plus its derived display state.
type LedgerEntry struct {
	models.Installment
	State ledger.State `json:"state"`
}

// LedgerView is the classified ledger of one ticket.
type LedgerView struct {
	TicketID  uuid.UUID     `json:"ticket_id"`
	Items     []LedgerEntry `json:"items"`
	AllPaid   bool          `json:"all_paid"`
	PaidCount int           `json:"paid_count"`
	Total     int           `json:"total"`
}

// GetLedger returns the ordered, classified ledger for a ticket. Served from
// the redis cache when one is configured; every mutation invalidates it.
func (s *InstallmentService) GetLedger(ticketID uuid.UUID) (*LedgerView, error) {
	if config.RDB != nil {
		if raw, err := config.RDB.Get(config.Ctx, cacheKey(ticketID)).Result(); err == nil {
			var view LedgerView
			if err := json.Unmarshal([]byte(raw), &view); err == nil {
				return &view, nil
			}
		}
	}

	rows, err := s.installmentRepo.ListByTicket(ticketID)
	if err != nil {
		return nil, err
	}

	states := ledger.Classify(rows)
	view := &LedgerView{
		TicketID: ticketID,
		Items:    make([]LedgerEntry, len(rows)),
		AllPaid:  ledger.AllPaid(rows),
	}
	view.PaidCount, view.Total = ledger.Progress(rows)
	for i, in := range rows {
		view.Items[i] = LedgerEntry{Installment: in, State: states[i]}
	}

	if config.RDB != nil {
		if raw, err := json.Marshal(view); err == nil {
			config.RDB.Set(config.Ctx, cacheKey(ticketID), raw, cacheTTL)
		}
	}

	return view, nil
}

// CreatePlan sets up the payment plan for a ticket: installment 0 is the
// reservation deposit, the remaining total is split into n equal cuotas with
// the rounding remainder folded into the last one.
func (s *InstallmentService) CreatePlan(ticketID uuid.UUID, deposit decimal.Decimal, cuotas int, firstDue time.Time, interval time.Duration) ([]models.Installment, error) {
	if cuotas < 1 {
		return nil, errors.New("plan needs at least one cuota")
	}

	ticket, err := s.ticketRepo.GetByID(ticketID)
	if err != nil {
		return nil, err
	}
	if existing, err := s.installmentRepo.ListByTicket(ticketID); err != nil {
		return nil, err
	} else if len(existing) > 0 {
		return nil, errors.New("ticket already has a payment plan")
	}

	remaining := ticket.TotalAmount.Sub(deposit)
	if deposit.IsNegative() || remaining.IsNegative() {
		return nil, errors.New("deposit exceeds ticket total")
	}

	per := remaining.Div(decimal.NewFromInt(int64(cuotas))).RoundDown(2)
	last := remaining.Sub(per.Mul(decimal.NewFromInt(int64(cuotas - 1))))

	now := time.Now()
	plan := make([]models.Installment, 0, cuotas+1)
	plan = append(plan, models.Installment{
		ID:        uuid.New(),
		TicketID:  ticketID,
		Number:    0,
		Amount:    deposit,
		DueDate:   firstDue,
		Status:    models.InstallmentUnpaid,
		CreatedAt: now,
		UpdatedAt: now,
	})
	for i := 1; i <= cuotas; i++ {
		amount := per
		if i == cuotas {
			amount = last
		}
		plan = append(plan, models.Installment{
			ID:        uuid.New(),
			TicketID:  ticketID,
			Number:    i,
			Amount:    amount,
			DueDate:   firstDue.Add(time.Duration(i) * interval),
			Status:    models.InstallmentUnpaid,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.installmentRepo.CreateBatch(plan); err != nil {
		return nil, err
	}
	s.invalidate(ticketID)
	return plan, nil
}

// SubmitProof attaches a proof-of-payment URL to an installment. Only the
// active installment or a rejected one accepts a proof; a rejected row is
// reset to unpaid so it classifies pending-approval again.
func (s *InstallmentService) SubmitProof(installmentID uuid.UUID, proofURL string) error {
	in, err := s.installmentRepo.GetByID(installmentID)
	if err != nil {
		return err
	}
	rows, err := s.installmentRepo.ListByTicket(in.TicketID)
	if err != nil {
		return err
	}

	idx := -1
	for i := range rows {
		if rows[i].ID == installmentID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return gorm.ErrRecordNotFound
	}
	if !ledger.Payable(rows, idx) {
		return ErrNotPayable
	}

	affected, err := s.installmentRepo.UpdateWhere(installmentID, map[string]interface{}{
		"proof_url":        proofURL,
		"status":           models.InstallmentUnpaid,
		"rejection_reason": nil,
		"updated_at":       time.Now(),
	}, "admin_approved = ? AND status <> ?", false, models.InstallmentPaid)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStaleState
	}

	s.invalidate(in.TicketID)
	return nil
}

// Approve settles a pending installment. The conditional update is the guard
// against two admins adjudicating the same row: the loser matches zero rows.
func (s *InstallmentService) Approve(installmentID uuid.UUID, adminEmail string) error {
	in, err := s.installmentRepo.GetByID(installmentID)
	if err != nil {
		return err
	}

	now := time.Now()
	affected, err := s.installmentRepo.UpdateWhere(installmentID, map[string]interface{}{
		"status":         models.InstallmentPaid,
		"admin_approved": true,
		"paid_at":        now,
		"updated_at":     now,
	}, "proof_url IS NOT NULL AND proof_url <> '' AND admin_approved = ? AND status = ?",
		false, models.InstallmentUnpaid)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStaleState
	}

	s.audit(installmentID, "approve", in.Status, models.InstallmentPaid, adminEmail, "")
	s.notifyHolder(in.TicketID, "Pago aprobado",
		fmt.Sprintf("La cuota %d fue aprobada.", in.Number))
	s.invalidate(in.TicketID)

	// Delivery unlocks once the whole ledger settles.
	rows, err := s.installmentRepo.ListByTicket(in.TicketID)
	if err != nil {
		return err
	}
	if ledger.AllPaid(rows) {
		if err := s.ticketRepo.SetDelivered(in.TicketID, true); err != nil {
			log.Println("failed to mark ticket delivered:", err)
			return err
		}
		s.notifyHolder(in.TicketID, "Plan de pagos completado",
			"Todas las cuotas fueron pagadas. Tu ticket está listo.")
	}
	return nil
}

// Reject turns down a pending proof. The proof URL is kept for audit; the
// rejected installment stays the payable target for a new submission.
func (s *InstallmentService) Reject(installmentID uuid.UUID, adminEmail, reason string) error {
	in, err := s.installmentRepo.GetByID(installmentID)
	if err != nil {
		return err
	}

	affected, err := s.installmentRepo.UpdateWhere(installmentID, map[string]interface{}{
		"status":           models.InstallmentRejected,
		"rejection_reason": reason,
		"updated_at":       time.Now(),
	}, "proof_url IS NOT NULL AND proof_url <> '' AND admin_approved = ? AND status = ?",
		false, models.InstallmentUnpaid)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStaleState
	}

	s.audit(installmentID, "reject", in.Status, models.InstallmentRejected, adminEmail, reason)
	s.notifyHolder(in.TicketID, "Comprobante rechazado",
		fmt.Sprintf("El comprobante de la cuota %d fue rechazado. Sube uno nuevo.", in.Number))
	s.invalidate(in.TicketID)
	return nil
}

// Revert undoes a settled installment: approval, paid timestamp and proof are
// cleared and the row goes back into contention. Destructive for delivery
// eligibility, so handlers require an explicit confirmation flag.
func (s *InstallmentService) Revert(installmentID uuid.UUID, adminEmail, reason string) error {
	in, err := s.installmentRepo.GetByID(installmentID)
	if err != nil {
		return err
	}

	affected, err := s.installmentRepo.UpdateWhere(installmentID, map[string]interface{}{
		"status":           models.InstallmentUnpaid,
		"admin_approved":   false,
		"paid_at":          nil,
		"proof_url":        nil,
		"rejection_reason": nil,
		"updated_at":       time.Now(),
	}, "status = ? AND admin_approved = ?", models.InstallmentPaid, true)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStaleState
	}

	s.audit(installmentID, "revert", in.Status, models.InstallmentUnpaid, adminEmail, reason)
	s.invalidate(in.TicketID)

	// A settled ledger is no longer settled.
	if err := s.ticketRepo.SetDelivered(in.TicketID, false); err != nil {
		log.Println("failed to clear ticket delivery flag:", err)
		return err
	}
	return nil
}

// ListPending is the admin adjudication queue.
func (s *InstallmentService) ListPending(limit int) ([]models.Installment, error) {
	return s.installmentRepo.ListPending(limit)
}

// AuditTrail returns the adjudication history of one installment.
func (s *InstallmentService) AuditTrail(installmentID uuid.UUID) ([]models.InstallmentAuditLog, error) {
	var logs []models.InstallmentAuditLog
	err := s.db.
		Where("installment_id = ?", installmentID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

func (s *InstallmentService) InstallmentRepo() *repository.InstallmentRepository {
	return s.installmentRepo
}

func (s *InstallmentService) TicketRepo() *repository.TicketRepository {
	return s.ticketRepo
}

func (s *InstallmentService) audit(installmentID uuid.UUID, action, prev, next, performedBy, reason string) {
	details, _ := json.Marshal(map[string]interface{}{
		"action":          action,
		"previous_status": prev,
		"new_status":      next,
	})
	entry := &models.InstallmentAuditLog{
		ID:             uuid.New(),
		InstallmentID:  installmentID,
		Action:         action,
		PreviousStatus: prev,
		NewStatus:      next,
		PerformedBy:    performedBy,
		Reason:         reason,
		Details:        details,
		CreatedAt:      time.Now(),
	}
	if err := s.db.Create(entry).Error; err != nil {
		log.Println("failed to write audit log:", err)
	}
}

func (s *InstallmentService) notifyHolder(ticketID uuid.UUID, title, body string) {
	ticket, err := s.ticketRepo.GetByID(ticketID)
	if err != nil {
		log.Println("notify: ticket lookup failed:", err)
		return
	}
	n := &models.Notification{
		ID:        uuid.New(),
		UserID:    ticket.UserID,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := s.notificationRepo.Create(n); err != nil {
		log.Println("notify: create failed:", err)
	}
}

func (s *InstallmentService) invalidate(ticketID uuid.UUID) {
	if config.RDB == nil {
		return
	}
	config.RDB.Del(config.Ctx, cacheKey(ticketID))
}

func cacheKey(ticketID uuid.UUID) string {
	return "ledger:" + ticketID.String()
}
