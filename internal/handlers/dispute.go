// internal/handlers/dispute.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/land-escrow-backend/internal/i18n"
	"github.com/javajoker/land-escrow-backend/internal/services"
	"github.com/javajoker/land-escrow-backend/internal/utils"
)

type DisputeHandler struct {
	disputeService *services.DisputeService
	auditService   *services.AuditService
	storageService *services.StorageService
}

func NewDisputeHandler(disputeService *services.DisputeService, auditService *services.AuditService, storageService *services.StorageService) *DisputeHandler {
	return &DisputeHandler{
		disputeService: disputeService,
		auditService:   auditService,
		storageService: storageService,
	}
}

// POST /disputes/evidence
func (h *DisputeHandler) UploadEvidence(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "", gin.H{"field": "file"})
		return
	}
	defer file.Close()

	result, err := h.storageService.UploadFile(c.Request.Context(), file, header, services.EvidenceUploadOptions)
	switch {
	case errors.Is(err, services.ErrFileTooLarge), errors.Is(err, services.ErrFileTypeNotAllowed):
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	case err != nil:
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"upload": result})
}

// POST /transactions/:id/disputes
func (h *DisputeHandler) RaiseDispute(c *gin.Context) {
	userID, _, ok := currentViewer(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.RaiseDisputeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.TransactionID = id
	req.ActorID = userID

	dispute, err := h.disputeService.RaiseDispute(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"dispute": dispute,
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyDisputeRaised),
	})
}

// GET /transactions/:id/disputes
func (h *DisputeHandler) ListDisputes(c *gin.Context) {
	userID, isStaff, ok := currentViewer(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	disputes, err := h.disputeService.ListDisputes(c.Request.Context(), id, userID, isStaff)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"disputes": disputes})
}

// GET /disputes/:id
func (h *DisputeHandler) GetDispute(c *gin.Context) {
	userID, isStaff, ok := currentViewer(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	dispute, err := h.disputeService.GetDispute(c.Request.Context(), id, userID, isStaff)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"dispute": dispute})
}

// POST /disputes/:id/resolve
func (h *DisputeHandler) ResolveDispute(c *gin.Context) {
	userID, _, ok := currentViewer(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.ResolveDisputeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.DisputeID = id
	req.ResolverID = userID

	lang := utils.GetLangFromContext(c)
	result, err := h.disputeService.ResolveDispute(c.Request.Context(), req)
	if err != nil && !errors.Is(err, services.ErrAlreadyInTargetState) {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"result":  result,
		"message": i18n.T(lang, i18n.KeyDisputeUpdated),
	})
}

// GET /disputes/:id/audit
func (h *DisputeHandler) GetAuditTrail(c *gin.Context) {
	userID, isStaff, ok := currentViewer(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.disputeService.GetDispute(c.Request.Context(), id, userID, isStaff); err != nil {
		respondError(c, err)
		return
	}

	entries, err := h.auditService.List(c.Request.Context(), services.EntityDispute, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"entries": entries})
}
