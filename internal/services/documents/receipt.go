package documents

import (
	"bytes"
	"errors"
	"fmt"

	"ravehub-payments-backend/internal/ledger"
	"ravehub-payments-backend/internal/models"

	"github.com/phpdave11/gofpdf"
)

var ErrNotSettled = errors.New("receipt is only available for a settled installment")

// BuildReceiptPDF renders the payment receipt for one settled installment.
func BuildReceiptPDF(ticket *models.Ticket, in *models.Installment) ([]byte, string, error) {
	if !ledger.Settled(*in) {
		return nil, "", ErrNotSettled
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Recibo de Pago", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "RECIBO DE PAGO")
	pdf.Ln(12)

	label := fmt.Sprintf("Cuota %d", in.Number)
	if in.Number == 0 {
		label = "Reserva inicial"
	}

	paidAt := "-"
	if in.PaidAt != nil {
		paidAt = in.PaidAt.Format("02-01-2006 15:04")
	}

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Evento        : %s", ticket.EventName),
		fmt.Sprintf("Ticket        : %s (%s)", ticket.ID.String(), ticket.TicketType),
		fmt.Sprintf("Concepto      : %s", label),
		fmt.Sprintf("Monto         : %s %s", ticket.Currency, in.Amount.StringFixed(2)),
		fmt.Sprintf("Vencimiento   : %s", in.DueDate.Format("02-01-2006")),
		fmt.Sprintf("Fecha de pago : %s", paidAt),
		fmt.Sprintf("Referencia    : %s", in.ID.String()),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Este recibo confirma que el pago fue verificado y aprobado por el equipo de RaveHub.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("RECIBO_%s_cuota%d.pdf", ticket.ID.String()[:8], in.Number)
	return buf.Bytes(), filename, nil
}
