package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrPlanNotFound       = errors.New("unknown subscription plan")
	ErrInvalidPhone       = errors.New("phone number must be in format 2547XXXXXXXX")
	ErrAmountOutOfRange   = errors.New("donation amount out of allowed range")
	ErrInventoryEmpty     = errors.New("no credentials left for plan")
	ErrLockNotAcquired    = errors.New("could not acquire payment lock")
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid transaction context")

	// Gateway errors. ErrGatewayUnavailable covers transport/auth trouble
	// talking to the provider; ErrChargeRejected means the provider refused
	// to start the charge; ErrPaymentDeclined means the transaction itself
	// failed (user cancelled, insufficient funds).
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrChargeRejected     = errors.New("payment gateway rejected the charge")
	ErrPaymentDeclined    = errors.New("payment declined by payer or provider")
)
