package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/execution"
)

// ErrInvalidQueryParameters indicates that the request query string could not
// be parsed into the expected structure.
var ErrInvalidQueryParameters = fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")

// ErrInvalidBody indicates that the request body could not be parsed.
var ErrInvalidBody = fiber.NewError(fiber.StatusBadRequest, "invalid request body")

// ErrSameAddresses is returned when in and out addresses are identical.
var ErrSameAddresses = fiber.NewError(fiber.StatusBadRequest, "in and out addresses cannot be the same")

// ErrAmountRequired is returned when the amount parameter is missing.
var ErrAmountRequired = fiber.NewError(fiber.StatusBadRequest, "amount is required")

// ErrInvalidAmountFormat is returned when the amount cannot be parsed as a
// base-10 integer.
var ErrInvalidAmountFormat = fiber.NewError(fiber.StatusBadRequest, "invalid amount format")

// ErrAmountNonPositive is returned when the amount is zero or negative.
var ErrAmountNonPositive = fiber.NewError(fiber.StatusBadRequest, "amount must be greater than zero")

// ErrQuoteSuperseded means a newer quote replaced this one mid-flight.
var ErrQuoteSuperseded = fiber.NewError(fiber.StatusConflict, "quote superseded by a newer request")

// ErrExecutionDisabled is returned when no signing key is configured.
var ErrExecutionDisabled = fiber.NewError(fiber.StatusServiceUnavailable, "execution disabled: no signing key configured")

// ErrQuoteFailedInternal signals a generic server-side quoting error.
var ErrQuoteFailedInternal = fiber.NewError(fiber.StatusInternalServerError, "quote failed")

// NewAddressRequired returns a 400 Bad Request for a missing address field.
func NewAddressRequired(field string) error {
	return fiber.NewError(fiber.StatusBadRequest, field+" address is required")
}

// NewInvalidAddress returns a 400 Bad Request for an invalid address format.
func NewInvalidAddress(field string) error {
	return fiber.NewError(fiber.StatusBadRequest, "invalid "+field+" address")
}

// executionStatus maps a failure bucket onto an HTTP status. Preflight
// failures are the caller's to fix, infrastructure faults are not.
func executionStatus(err error) int {
	var execErr *execution.Error
	if !errors.As(err, &execErr) {
		return fiber.StatusInternalServerError
	}
	switch execErr.Kind {
	case execution.FailInsufficientBalance,
		execution.FailInsufficientAllowance,
		execution.FailSlippageExceeded,
		execution.FailPriceImpactTooHigh,
		execution.FailLiquidityUnavailable:
		return fiber.StatusBadRequest
	case execution.FailUserRejected:
		return fiber.StatusConflict
	case execution.FailOracleUnavailable, execution.FailApprovalTimeout:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
