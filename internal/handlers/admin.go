// internal/handlers/admin.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/land-escrow-backend/internal/i18n"
	"github.com/javajoker/land-escrow-backend/internal/services"
	"github.com/javajoker/land-escrow-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// GET /admin/settings/platform-fee
func (h *AdminHandler) GetPlatformFee(c *gin.Context) {
	percent, err := h.adminService.GetPlatformFeePercent(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"percent": percent})
}

// PUT /admin/settings/platform-fee
func (h *AdminHandler) UpdatePlatformFee(c *gin.Context) {
	adminID, _, ok := currentViewer(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.PlatformFeeUpdate
	if !bindAndValidate(c, &req) {
		return
	}

	setting, err := h.adminService.UpdatePlatformFeePercent(c.Request.Context(), req.Percent, adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"setting": setting,
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyFeeUpdated),
	})
}

// GET /admin/notifications/stats
func (h *AdminHandler) GetNotificationStats(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{"stats": h.adminService.NotificationStats()})
}

// POST /admin/payouts/retry?limit=
func (h *AdminHandler) RetryPendingPayouts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	attempted, err := h.adminService.RetryPendingPayouts(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"attempted": attempted})
}
