package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ravehub-payments-backend/internal/config"
	handler "ravehub-payments-backend/internal/handlers"
	"ravehub-payments-backend/internal/middleware"
	"ravehub-payments-backend/internal/repository"
	service "ravehub-payments-backend/internal/services/installments"
	"ravehub-payments-backend/internal/services/storage"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB) {
	installmentRepo := repository.NewInstallmentRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	installmentService := service.NewInstallmentService(
		installmentRepo,
		ticketRepo,
		notificationRepo,
	)

	store := storage.NewLocalStore(config.UploadDir(), config.PublicBaseURL())

	authHandler := handler.NewAuthHandler(userRepo)
	installmentHandler := handler.NewInstallmentHandler(installmentService, store)
	adminHandler := handler.NewAdminHandler(installmentService)
	notificationHandler := handler.NewNotificationHandler(notificationRepo)

	// Uploaded payment proofs are public by URL
	r.Static("/uploads", config.UploadDir())

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Payer routes
	authed := api.Group("/")
	authed.Use(middleware.RequireAuth())
	{
		authed.GET("/tickets/:ticketId/installments", installmentHandler.GetLedger)
		authed.POST("/installments/:id/proof", installmentHandler.SubmitProof)
		authed.GET("/installments/:id/receipt", installmentHandler.Receipt)
		authed.GET("/notifications", notificationHandler.List)
		authed.POST("/notifications/:id/read", notificationHandler.MarkRead)
	}

	// Admin adjudication routes
	admin := api.Group("/admin")
	admin.Use(middleware.RequireAuth(), middleware.RequireRoles("admin"))
	{
		admin.POST("/installments/:id/approve", adminHandler.Approve)
		admin.POST("/installments/:id/reject", adminHandler.Reject)
		admin.POST("/installments/:id/revert", adminHandler.Revert)
		admin.GET("/installments", adminHandler.ListPending)
		admin.GET("/installments/:id/audit", adminHandler.AuditTrail)
		admin.POST("/tickets/:ticketId/plan", adminHandler.CreatePlan)
		admin.GET("/tickets/:ticketId/plan/export", adminHandler.ExportPlan)
	}
}
