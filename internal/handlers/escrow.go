// internal/handlers/escrow.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/land-escrow-backend/internal/i18n"
	"github.com/javajoker/land-escrow-backend/internal/models"
	"github.com/javajoker/land-escrow-backend/internal/services"
	"github.com/javajoker/land-escrow-backend/internal/utils"
)

type EscrowHandler struct {
	escrowService *services.EscrowService
	auditService  *services.AuditService
	payoutService *services.PayoutService
}

func NewEscrowHandler(escrowService *services.EscrowService, auditService *services.AuditService, payoutService *services.PayoutService) *EscrowHandler {
	return &EscrowHandler{
		escrowService: escrowService,
		auditService:  auditService,
		payoutService: payoutService,
	}
}

// POST /transactions
func (h *EscrowHandler) OpenTransaction(c *gin.Context) {
	userID, _, ok := currentViewer(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.OpenTransactionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.BuyerID = userID

	txn, err := h.escrowService.OpenTransaction(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"transaction": txn,
		"message":     i18n.T(utils.GetLangFromContext(c), i18n.KeyTransactionCreated),
	})
}

// GET /transactions
func (h *EscrowHandler) ListTransactions(c *gin.Context) {
	userID, isStaff, ok := currentViewer(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	status := models.TransactionStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		utils.BadRequestResponse(c, "", gin.H{"status": string(status)})
		return
	}

	params := utils.GetPaginationParams(c)
	transactions, total, err := h.escrowService.ListTransactions(c.Request.Context(), userID, isStaff, status, params.Limit, params.Offset())
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(transactions, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /transactions/:id
func (h *EscrowHandler) GetTransaction(c *gin.Context) {
	userID, isStaff, ok := currentViewer(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	txn, err := h.escrowService.GetTransaction(c.Request.Context(), id, userID, isStaff)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"transaction":   txn,
		"next_statuses": services.NextStatuses(txn.Status),
	})
}

// POST /transactions/:id/transitions
func (h *EscrowHandler) RequestTransition(c *gin.Context) {
	userID, _, ok := currentViewer(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.TransitionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.TransactionID = id
	req.ActorID = userID

	lang := utils.GetLangFromContext(c)
	result, err := h.escrowService.RequestTransition(c.Request.Context(), req)
	if errors.Is(err, services.ErrAlreadyInTargetState) {
		// Repeating a request is not an error for the caller.
		utils.SuccessResponse(c, gin.H{
			"result":  result,
			"message": i18n.T(lang, i18n.KeyTransactionUnchanged),
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"result":  result,
		"message": i18n.T(lang, i18n.KeyTransactionUpdated),
	})
}

// GET /transactions/:id/audit
func (h *EscrowHandler) GetAuditTrail(c *gin.Context) {
	userID, isStaff, ok := currentViewer(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.escrowService.GetTransaction(c.Request.Context(), id, userID, isStaff); err != nil {
		respondError(c, err)
		return
	}

	entries, err := h.auditService.List(c.Request.Context(), services.EntityTransaction, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"entries": entries})
}

// GET /transactions/:id/payouts
func (h *EscrowHandler) ListPayouts(c *gin.Context) {
	userID, isStaff, ok := currentViewer(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.escrowService.GetTransaction(c.Request.Context(), id, userID, isStaff); err != nil {
		respondError(c, err)
		return
	}

	payouts, err := h.payoutService.ListForTransaction(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"payouts": payouts})
}
