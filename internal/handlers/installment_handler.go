package handler

import (
	"errors"
	"log"
	"net/http"

	"ravehub-payments-backend/internal/services/documents"
	service "ravehub-payments-backend/internal/services/installments"
	"ravehub-payments-backend/internal/services/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InstallmentHandler struct {
	service *service.InstallmentService
	store   *storage.LocalStore
}

func NewInstallmentHandler(s *service.InstallmentService, store *storage.LocalStore) *InstallmentHandler {
	return &InstallmentHandler{service: s, store: store}
}

// GetLedger returns the classified payment plan of one ticket.
func (h *InstallmentHandler) GetLedger(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("ticketId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket ID"})
		return
	}

	if !h.callerOwnsTicket(c, ticketID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "ticket belongs to another user"})
		return
	}

	view, err := h.service.GetLedger(ticketID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitProof stores the uploaded proof file and attaches it to the
// installment. Either both the file and the reference are persisted or
// nothing changes.
func (h *InstallmentHandler) SubmitProof(c *gin.Context) {
	installmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid installment ID"})
		return
	}

	in, err := h.service.InstallmentRepo().GetByID(installmentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "installment not found"})
		return
	}
	if !h.callerOwnsTicket(c, in.TicketID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "installment belongs to another user"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file required"})
		return
	}
	defer file.Close()

	url, err := h.store.Save(file, header, "payment-proofs")
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrTooLarge) || errors.Is(err, storage.ErrBadType) {
			status = http.StatusBadRequest
		} else {
			log.Println("proof upload failed:", err)
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.service.SubmitProof(installmentID, url); err != nil {
		c.JSON(submitStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "proof_url": url})
}

// Receipt streams the PDF receipt of a settled installment.
func (h *InstallmentHandler) Receipt(c *gin.Context) {
	installmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid installment ID"})
		return
	}

	in, err := h.service.InstallmentRepo().GetByID(installmentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "installment not found"})
		return
	}
	if !h.callerOwnsTicket(c, in.TicketID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "installment belongs to another user"})
		return
	}

	ticket, err := h.service.TicketRepo().GetByID(in.TicketID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		return
	}

	pdf, filename, err := documents.BuildReceiptPDF(ticket, in)
	if err != nil {
		if errors.Is(err, documents.ErrNotSettled) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// callerOwnsTicket allows the ticket holder and any admin.
func (h *InstallmentHandler) callerOwnsTicket(c *gin.Context, ticketID uuid.UUID) bool {
	if c.GetString("userRole") == "admin" {
		return true
	}
	userID, err := uuid.Parse(c.GetString("userID"))
	if err != nil {
		return false
	}
	ticket, err := h.service.TicketRepo().GetByID(ticketID)
	if err != nil {
		return false
	}
	return ticket.UserID == userID
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotPayable):
		return http.StatusConflict
	case errors.Is(err, service.ErrStaleState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
