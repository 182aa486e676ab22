// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"
	KeyAuthForbidden    = "auth.forbidden"

	// Transactions
	KeyTransactionCreated       = "transaction.created"
	KeyTransactionNotFound      = "transaction.not_found"
	KeyTransactionUpdated       = "transaction.updated"
	KeyTransactionUnchanged     = "transaction.unchanged"
	KeyTransactionInvalidStatus = "transaction.invalid_transition"
	KeyListingNotFound          = "listing.not_found"
	KeyListingUnavailable       = "listing.unavailable"

	// Disputes
	KeyDisputeRaised      = "dispute.raised"
	KeyDisputeNotFound    = "dispute.not_found"
	KeyDisputeUpdated     = "dispute.updated"
	KeyDisputeAlreadyOpen = "dispute.already_open"

	// Fees
	KeyFeeInvalidInput = "fee.invalid_input"
	KeyFeeInvalidSplit = "fee.invalid_split"
	KeyFeeUpdated      = "fee.updated"

	// Notifications
	KeyNotificationDisputed = "notification.transaction_disputed"
	KeyNotificationReleased = "notification.transaction_released"

	// Validation
	KeyValidationFailed   = "validation.failed"
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// Server
	KeyServerError        = "server.error"
	KeyServerRateLimit    = "server.rate_limit"
	KeyServerNotFound     = "server.not_found"
	KeyServerUnauthorized = "server.unauthorized"
)
