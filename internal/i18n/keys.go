// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeyInternalError     = "error.internal"
	KeyValidationInvalid = "validation.invalid"
	KeyAccessDenied      = "access.denied"
	KeyRateLimited       = "rate_limit.exceeded"
	KeyRequestTimeout    = "request.timeout"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthInactive           = "auth.inactive"
	KeyAuthLogoutSuccess      = "auth.logout_success"
	KeyAuthPasswordChanged    = "auth.password_changed"

	// Catalog
	KeyProductDeleted = "product.deleted"
	KeyBoMDeleted     = "bom.deleted"

	// Workflow
	KeyECODeleted = "eco.deleted"

	// Users
	KeyUserDeleted = "user.deleted"

	// Notifications
	KeyNotificationMarkedRead    = "notification.marked_read"
	KeyNotificationAllMarkedRead = "notification.all_marked_read"
	KeyNotificationProduct       = "notification.product_created"
	KeyNotificationECOSubmitted  = "notification.eco_submitted"
	KeyNotificationECODecision   = "notification.eco_decision"

	// Settings
	KeySettingsUpdated = "settings.updated"
)
