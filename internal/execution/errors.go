package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// FailureKind buckets execution failures for the API surface and logs.
type FailureKind string

const (
	FailLiquidityUnavailable  FailureKind = "liquidity_unavailable"
	FailOracleUnavailable     FailureKind = "oracle_unavailable"
	FailInsufficientBalance   FailureKind = "insufficient_balance"
	FailInsufficientAllowance FailureKind = "insufficient_allowance"
	FailApproval              FailureKind = "approval_failed"
	FailApprovalTimeout       FailureKind = "approval_timeout"
	FailSlippageExceeded      FailureKind = "slippage_exceeded"
	FailPriceImpactTooHigh    FailureKind = "price_impact_too_high"
	FailUserRejected          FailureKind = "user_rejected"
	FailUnknown               FailureKind = "unknown"
)

// Error carries the failure bucket alongside the underlying cause.
type Error struct {
	Kind  FailureKind
	Phase Phase
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("execution failed in %s: %s: %v", e.Phase, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func failf(kind FailureKind, phase Phase, format string, args ...any) *Error {
	return &Error{Kind: kind, Phase: phase, Err: fmt.Errorf(format, args...)}
}

func fail(kind FailureKind, phase Phase, err error) *Error {
	return &Error{Kind: kind, Phase: phase, Err: err}
}

// Revert substrings the v2 routers and pairs emit, mapped to buckets the
// user can act on.
var revertKinds = []struct {
	needle string
	kind   FailureKind
}{
	{"insufficient_output_amount", FailSlippageExceeded},
	{"excessive_input_amount", FailSlippageExceeded},
	{"insufficient_liquidity", FailLiquidityUnavailable},
	{"insufficient_input_amount", FailSlippageExceeded},
	{"transfer_from_failed", FailInsufficientAllowance},
	{"transferhelper", FailInsufficientAllowance},
	{"expired", FailSlippageExceeded},
	{"k", FailSlippageExceeded},
}

// classifyRevert maps a node error onto the failure taxonomy. Cancellation
// is the user backing out, not a fault.
func classifyRevert(phase Phase, err error) *Error {
	if errors.Is(err, context.Canceled) {
		return fail(FailUserRejected, phase, err)
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "revert") && !strings.Contains(msg, "execution reverted") {
		return fail(FailUnknown, phase, err)
	}
	for _, rk := range revertKinds {
		if rk.needle == "k" {
			// The pair's invariant check reverts with the bare string "K".
			if strings.HasSuffix(strings.TrimSpace(msg), ": k") || strings.HasSuffix(msg, "'k'") {
				return fail(rk.kind, phase, err)
			}
			continue
		}
		if strings.Contains(msg, rk.needle) {
			return fail(rk.kind, phase, err)
		}
	}
	return fail(FailUnknown, phase, err)
}
