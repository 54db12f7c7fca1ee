package installments

import (
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"ravehub-payments-backend/internal/models"
	"ravehub-payments-backend/internal/repository"
)

func newMockService(t *testing.T) (*InstallmentService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("gorm open error: %v", err)
	}

	svc := NewInstallmentService(
		repository.NewInstallmentRepository(gdb),
		repository.NewTicketRepository(gdb),
		repository.NewNotificationRepository(gdb),
	)
	return svc, mock
}

func installmentColumns() []string {
	return []string{
		"id", "ticket_id", "number", "amount", "due_date", "status",
		"admin_approved", "proof_url", "paid_at", "rejection_reason",
		"created_at", "updated_at",
	}
}

func installmentRow(id, ticketID uuid.UUID, number int, status string, approved bool, proof driver.Value) []driver.Value {
	now := time.Now()
	return []driver.Value{
		id.String(), ticketID.String(), number, "100.00", now, status,
		approved, proof, nil, nil, now, now,
	}
}

func addRow(rows *sqlmock.Rows, vals []driver.Value) *sqlmock.Rows {
	return rows.AddRow(vals...)
}

func TestApproveConcurrentAdjudicationLoses(t *testing.T) {
	svc, mock := newMockService(t)
	mock.MatchExpectationsInOrder(false)

	id := uuid.New()
	ticketID := uuid.New()

	rows := sqlmock.NewRows(installmentColumns())
	addRow(rows, installmentRow(id, ticketID, 1, models.InstallmentUnpaid, false, "/uploads/payment-proofs/p.jpg"))
	mock.ExpectQuery(`SELECT \* FROM "installments"`).WillReturnRows(rows)

	// Another admin approved first: the conditional update matches nothing.
	mock.ExpectExec(`UPDATE "installments"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.Approve(id, "admin@ravehub.pe")
	if !errors.Is(err, ErrStaleState) {
		t.Fatalf("got %v, want ErrStaleState", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApproveWritesAuditAndNotification(t *testing.T) {
	svc, mock := newMockService(t)
	mock.MatchExpectationsInOrder(false)

	id := uuid.New()
	ticketID := uuid.New()
	userID := uuid.New()

	// load the pending installment
	pending := sqlmock.NewRows(installmentColumns())
	addRow(pending, installmentRow(id, ticketID, 1, models.InstallmentUnpaid, false, "/uploads/payment-proofs/p.jpg"))
	mock.ExpectQuery(`SELECT \* FROM "installments" WHERE id =`).WillReturnRows(pending)

	// conditional settle succeeds
	mock.ExpectExec(`UPDATE "installments"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// audit trail entry
	mock.ExpectExec(`INSERT INTO "installment_audit_logs"`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	// holder notification: ticket lookup then insert
	ticketRows := sqlmock.NewRows([]string{"id", "user_id", "event_name", "currency", "total_amount", "delivered"}).
		AddRow(ticketID.String(), userID.String(), "Ultra Lima", "PEN", "300.00", false)
	mock.ExpectQuery(`SELECT \* FROM "tickets"`).WillReturnRows(ticketRows)
	mock.ExpectExec(`INSERT INTO "notifications"`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	// ledger re-read for the delivery gate: installment 2 still unpaid,
	// so the ticket must not be marked delivered.
	ledgerRows := sqlmock.NewRows(installmentColumns())
	addRow(ledgerRows, installmentRow(id, ticketID, 1, models.InstallmentPaid, true, "/uploads/payment-proofs/p.jpg"))
	addRow(ledgerRows, installmentRow(uuid.New(), ticketID, 2, models.InstallmentUnpaid, false, nil))
	mock.ExpectQuery(`SELECT \* FROM "installments" WHERE ticket_id =`).WillReturnRows(ledgerRows)

	if err := svc.Approve(id, "admin@ravehub.pe"); err != nil {
		t.Fatalf("approve error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSubmitProofRefusedForFutureInstallment(t *testing.T) {
	svc, mock := newMockService(t)
	mock.MatchExpectationsInOrder(false)

	ticketID := uuid.New()
	firstID := uuid.New()
	secondID := uuid.New()

	one := sqlmock.NewRows(installmentColumns())
	addRow(one, installmentRow(secondID, ticketID, 2, models.InstallmentUnpaid, false, nil))
	mock.ExpectQuery(`SELECT \* FROM "installments" WHERE id =`).WillReturnRows(one)

	// installment 1 is still unpaid, so installment 2 classifies future
	ledgerRows := sqlmock.NewRows(installmentColumns())
	addRow(ledgerRows, installmentRow(firstID, ticketID, 1, models.InstallmentUnpaid, false, nil))
	addRow(ledgerRows, installmentRow(secondID, ticketID, 2, models.InstallmentUnpaid, false, nil))
	mock.ExpectQuery(`SELECT \* FROM "installments" WHERE ticket_id =`).WillReturnRows(ledgerRows)

	err := svc.SubmitProof(secondID, "/uploads/payment-proofs/early.jpg")
	if !errors.Is(err, ErrNotPayable) {
		t.Fatalf("got %v, want ErrNotPayable", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePlanSplitsTotal(t *testing.T) {
	svc, mock := newMockService(t)
	mock.MatchExpectationsInOrder(false)

	ticketID := uuid.New()
	userID := uuid.New()

	ticketRows := sqlmock.NewRows([]string{"id", "user_id", "event_name", "currency", "total_amount", "delivered"}).
		AddRow(ticketID.String(), userID.String(), "Ultra Lima", "PEN", "1000.00", false)
	mock.ExpectQuery(`SELECT \* FROM "tickets"`).WillReturnRows(ticketRows)

	// no plan exists yet
	mock.ExpectQuery(`SELECT \* FROM "installments" WHERE ticket_id =`).
		WillReturnRows(sqlmock.NewRows(installmentColumns()))

	mock.ExpectExec(`INSERT INTO "installments"`).
		WillReturnResult(sqlmock.NewResult(0, 4))

	firstDue := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	plan, err := svc.CreatePlan(ticketID, decimal.NewFromInt(250), 3, firstDue, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("create plan error: %v", err)
	}

	if len(plan) != 4 {
		t.Fatalf("got %d installments, want 4 (deposit + 3 cuotas)", len(plan))
	}
	if plan[0].Number != 0 || !plan[0].Amount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("deposit row wrong: number=%d amount=%s", plan[0].Number, plan[0].Amount)
	}

	sum := decimal.Zero
	for i, in := range plan {
		if in.Number != i {
			t.Errorf("installment %d has number %d", i, in.Number)
		}
		sum = sum.Add(in.Amount)
	}
	if !sum.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("plan sums to %s, want the ticket total 1000", sum)
	}

	if got := plan[2].DueDate; !got.Equal(firstDue.Add(2 * 30 * 24 * time.Hour)) {
		t.Errorf("cuota 2 due date %v not spaced by the interval", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRevertClearsSettlementAndDeliveryFlag(t *testing.T) {
	svc, mock := newMockService(t)
	mock.MatchExpectationsInOrder(false)

	id := uuid.New()
	ticketID := uuid.New()

	settled := sqlmock.NewRows(installmentColumns())
	addRow(settled, installmentRow(id, ticketID, 1, models.InstallmentPaid, true, "/uploads/payment-proofs/p.jpg"))
	mock.ExpectQuery(`SELECT \* FROM "installments" WHERE id =`).WillReturnRows(settled)

	mock.ExpectExec(`UPDATE "installments"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(`INSERT INTO "installment_audit_logs"`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	// delivery gate closes again
	mock.ExpectExec(`UPDATE "tickets"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.Revert(id, "admin@ravehub.pe", "duplicate receipt"); err != nil {
		t.Fatalf("revert error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
