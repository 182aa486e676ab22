// internal/router/router.go
package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/land-escrow-backend/internal/config"
	"github.com/javajoker/land-escrow-backend/internal/handlers"
	"github.com/javajoker/land-escrow-backend/internal/middleware"
	"github.com/javajoker/land-escrow-backend/internal/services"
	"github.com/javajoker/land-escrow-backend/internal/utils"
)

// Services are the long-lived components the HTTP layer calls into. The
// caller owns their lifecycle.
type Services struct {
	Escrow   *services.EscrowService
	Disputes *services.DisputeService
	Fees     *services.FeeService
	Audit    *services.AuditService
	Payouts  *services.PayoutService
	Admin    *services.AdminService
	Storage  *services.StorageService
}

func Initialize(svc Services, cfg *config.Config) *gin.Engine {
	// Initialize handlers
	escrowHandler := handlers.NewEscrowHandler(svc.Escrow, svc.Audit, svc.Payouts)
	disputeHandler := handlers.NewDisputeHandler(svc.Disputes, svc.Audit, svc.Storage)
	feeHandler := handlers.NewFeeHandler(svc.Fees, svc.Escrow)
	adminHandler := handlers.NewAdminHandler(svc.Admin)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(allowedOrigins(cfg.Frontend.BaseURL)))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	if dir, local := svc.Storage.LocalDir(); local {
		r.Static("/uploads", dir)
	}

	// API v1 routes
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthRequired(), middleware.UserRateLimit())
	{
		// Transaction routes
		transactions := v1.Group("/transactions")
		{
			transactions.POST("", middleware.MutationRateLimit(), escrowHandler.OpenTransaction)
			transactions.GET("", escrowHandler.ListTransactions)
			transactions.GET("/:id", escrowHandler.GetTransaction)
			transactions.POST("/:id/transitions", middleware.MutationRateLimit(), escrowHandler.RequestTransition)
			transactions.GET("/:id/audit", escrowHandler.GetAuditTrail)
			transactions.GET("/:id/payouts", escrowHandler.ListPayouts)
			transactions.GET("/:id/disputes", disputeHandler.ListDisputes)
			transactions.POST("/:id/disputes", middleware.MutationRateLimit(), disputeHandler.RaiseDispute)
		}

		// Dispute routes
		disputes := v1.Group("/disputes")
		{
			disputes.POST("/evidence", middleware.UploadRateLimit(), disputeHandler.UploadEvidence)
			disputes.GET("/:id", disputeHandler.GetDispute)
			disputes.GET("/:id/audit", disputeHandler.GetAuditTrail)
			disputes.POST("/:id/resolve", middleware.ReviewerRequired(), disputeHandler.ResolveDispute)
		}

		// Fee routes
		v1.GET("/fees/quote", feeHandler.Quote)

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AdminRequired())
		{
			admin.GET("/settings/platform-fee", adminHandler.GetPlatformFee)
			admin.PUT("/settings/platform-fee", adminHandler.UpdatePlatformFee)
			admin.GET("/notifications/stats", adminHandler.GetNotificationStats)
			admin.POST("/payouts/retry", adminHandler.RetryPendingPayouts)
		}
	}

	return r
}

func allowedOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return origins
}
