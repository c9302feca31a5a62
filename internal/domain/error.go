package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// Provisioning taxonomy. ErrPaymentNotPaid and ErrPlanNotFound are business
	// errors and must not be retried; ErrPersistence marks a rolled back write
	// sequence that is safe to re-invoke.
	ErrPaymentNotPaid = errors.New("payment is not paid")
	ErrPlanNotFound   = errors.New("plan not found or inactive")
	ErrPersistence    = errors.New("persistence failure")

	// Checkout / payment confirmation
	ErrAmountMismatch = errors.New("payment amount does not match expected amount")

	// Entitlements
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrFeatureDisabled      = errors.New("feature not enabled for plan")
	ErrQuotaExceeded        = errors.New("usage quota exceeded")
	ErrForbidden            = errors.New("permission denied")
)
