package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	service "ravehub-payments-backend/internal/services/installments"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type AdminHandler struct {
	service *service.InstallmentService
}

func NewAdminHandler(s *service.InstallmentService) *AdminHandler {
	return &AdminHandler{service: s}
}

func (h *AdminHandler) Approve(c *gin.Context) {
	installmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid installment ID"})
		return
	}

	if err := h.service.Approve(installmentID, c.GetString("userEmail")); err != nil {
		c.JSON(adjudicationStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "installment approved"})
}

func (h *AdminHandler) Reject(c *gin.Context) {
	installmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid installment ID"})
		return
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	if err := c.BindJSON(&payload); err != nil || payload.Reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "a rejection reason is required"})
		return
	}

	if err := h.service.Reject(installmentID, c.GetString("userEmail"), payload.Reason); err != nil {
		c.JSON(adjudicationStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "installment rejected"})
}

// Revert undoes a settled installment. Destructive for ticket delivery, so
// the caller must acknowledge with confirm=true.
func (h *AdminHandler) Revert(c *gin.Context) {
	installmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid installment ID"})
		return
	}

	var payload struct {
		Confirm bool   `json:"confirm"`
		Reason  string `json:"reason"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid payload"})
		return
	}
	if !payload.Confirm {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "revert requires confirm=true"})
		return
	}

	if err := h.service.Revert(installmentID, c.GetString("userEmail"), payload.Reason); err != nil {
		c.JSON(adjudicationStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "installment reverted"})
}

// ListPending is the adjudication queue, oldest submission first.
func (h *AdminHandler) ListPending(c *gin.Context) {
	pending, err := h.service.ListPending(100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": pending, "count": len(pending)})
}

func (h *AdminHandler) AuditTrail(c *gin.Context) {
	installmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid installment ID"})
		return
	}
	logs, err := h.service.AuditTrail(installmentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": logs})
}

// CreatePlan sets up the installment plan for a ticket.
func (h *AdminHandler) CreatePlan(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("ticketId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket ID"})
		return
	}

	var payload struct {
		Deposit      string `json:"deposit"`
		Cuotas       int    `json:"cuotas"`
		FirstDue     string `json:"first_due"` // "dd-mm-yyyy"
		IntervalDays int    `json:"interval_days"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	deposit, err := decimal.NewFromString(payload.Deposit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deposit amount"})
		return
	}
	firstDue, err := time.Parse("02-01-2006", payload.FirstDue)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid first due date, expected dd-mm-yyyy"})
		return
	}
	if payload.IntervalDays <= 0 {
		payload.IntervalDays = 30
	}

	plan, err := h.service.CreatePlan(ticketID, deposit, payload.Cuotas, firstDue,
		time.Duration(payload.IntervalDays)*24*time.Hour)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "payment plan created", "installments": plan})
}

// ExportPlan downloads one ticket's ledger as an xlsx workbook.
func (h *AdminHandler) ExportPlan(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("ticketId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket ID"})
		return
	}

	view, err := h.service.GetLedger(ticketID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	f := excelize.NewFile()
	sheetName := "Plan de pagos"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Cuota", "Monto", "Vencimiento", "Estado", "Aprobado", "Pagado el", "Comprobante"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, item := range view.Items {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), item.Number)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), item.Amount.StringFixed(2))
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), item.DueDate.Format("02.01.2006"))
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), string(item.State))
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), item.AdminApproved)
		if item.PaidAt != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), item.PaidAt.Format("02.01.2006"))
		}
		if item.ProofURL != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), *item.ProofURL)
		}
	}

	fileName := fmt.Sprintf("payment_plan_%s_%s.xlsx", ticketID.String()[:8], time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write Excel file"})
	}
}

func adjudicationStatus(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrStaleState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
