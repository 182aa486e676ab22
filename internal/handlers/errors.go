// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/land-escrow-backend/internal/i18n"
	"github.com/javajoker/land-escrow-backend/internal/models"
	"github.com/javajoker/land-escrow-backend/internal/services"
	"github.com/javajoker/land-escrow-backend/internal/utils"
)

// respondError maps service errors onto HTTP responses. Anything unknown is
// logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var transition *services.TransitionError
	switch {
	case errors.Is(err, services.ErrTransactionNotFound):
		utils.NotFoundResponse(c, "transaction")
	case errors.Is(err, services.ErrDisputeNotFound):
		utils.NotFoundResponse(c, "dispute")
	case errors.Is(err, services.ErrListingNotFound):
		utils.NotFoundResponse(c, "listing")
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, "server")
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyAuthForbidden))
	case errors.As(err, &transition):
		utils.ConflictResponse(c, "INVALID_TRANSITION", i18n.T(lang, i18n.KeyTransactionInvalidStatus), gin.H{
			"entity":           transition.Entity,
			"current_status":   transition.From,
			"requested_status": transition.To,
		})
	case errors.Is(err, services.ErrDisputeAlreadyOpen):
		utils.ConflictResponse(c, "DISPUTE_ALREADY_OPEN", i18n.T(lang, i18n.KeyDisputeAlreadyOpen), nil)
	case errors.Is(err, services.ErrListingUnavailable):
		utils.ConflictResponse(c, "LISTING_UNAVAILABLE", i18n.T(lang, i18n.KeyListingUnavailable), nil)
	case errors.Is(err, services.ErrInvalidSplit):
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_SPLIT", i18n.T(lang, i18n.KeyFeeInvalidSplit), nil)
	case errors.Is(err, services.ErrInvalidFeeInput):
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_FEE_INPUT", i18n.T(lang, i18n.KeyFeeInvalidInput), err.Error())
	case errors.Is(err, services.ErrInvalidRequest):
		utils.BadRequestResponse(c, "", err.Error())
	default:
		logrus.WithError(err).WithField("request_id", c.GetString("request_id")).Error("Request failed")
		utils.InternalErrorResponse(c, "")
	}
}

// currentViewer returns the caller's id and whether they are staff.
func currentViewer(c *gin.Context) (uuid.UUID, bool, bool) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return uuid.Nil, false, false
	}
	role, _ := utils.GetRoleFromContext(c)
	return userID, models.UserRole(role).IsStaff(), true
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid), gin.H{"param": name})
		return uuid.Nil, false
	}
	return id, true
}

// bindAndValidate decodes the JSON body into req and runs struct validation.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid), err.Error())
		return false
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}
