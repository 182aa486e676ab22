// internal/handlers/fee.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/land-escrow-backend/internal/services"
	"github.com/javajoker/land-escrow-backend/internal/utils"
)

type FeeHandler struct {
	feeService    *services.FeeService
	escrowService *services.EscrowService
}

func NewFeeHandler(feeService *services.FeeService, escrowService *services.EscrowService) *FeeHandler {
	return &FeeHandler{feeService: feeService, escrowService: escrowService}
}

// GET /fees/quote?seller_id=&price_ghs=[&buyer_share=]
func (h *FeeHandler) Quote(c *gin.Context) {
	sellerID, err := uuid.Parse(c.Query("seller_id"))
	if err != nil {
		utils.BadRequestResponse(c, "", gin.H{"param": "seller_id"})
		return
	}
	viewerID, isStaff, ok := currentViewer(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	allowed, err := h.escrowService.CanViewSellerTerms(c.Request.Context(), viewerID, isStaff, sellerID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !allowed {
		utils.ForbiddenResponse(c, "")
		return
	}

	price, err := strconv.ParseInt(c.Query("price_ghs"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "", gin.H{"param": "price_ghs"})
		return
	}

	var quote services.FeeQuote
	if raw := c.Query("buyer_share"); raw != "" {
		share, parseErr := decimal.NewFromString(raw)
		if parseErr != nil {
			utils.BadRequestResponse(c, "", gin.H{"param": "buyer_share"})
			return
		}
		quote, err = h.feeService.QuoteSplit(c.Request.Context(), sellerID, price, share)
	} else {
		quote, err = h.feeService.Quote(c.Request.Context(), sellerID, price)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"quote": quote})
}
