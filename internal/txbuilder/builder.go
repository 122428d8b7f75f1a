// Package txbuilder turns quotes into router calldata. Every encoder writes
// the head-tail layout by hand: the head offsets are fixed per function
// shape, so a wrong word count fails loudly in tests instead of silently on
// chain.
package txbuilder

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/dex"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

var (
	// ErrUnsupportedSwap is returned for direction/strategy combinations the
	// routers do not expose.
	ErrUnsupportedSwap = errors.New("txbuilder: unsupported swap shape")
	// ErrBadSlippage rejects slippage settings outside [0, 100).
	ErrBadSlippage = errors.New("txbuilder: slippage percent out of range")
)

// Path offsets for the two router calldata shapes. The ETH-input functions
// carry four head words before the path tail, the token-input functions
// five.
const (
	ethInPathOffset   = 4 * dex.WordSize
	tokenInPathOffset = 5 * dex.WordSize
)

const defaultDeadline = 20 * time.Minute

// Tx is an unsigned call ready for gas estimation and signing.
type Tx struct {
	To        common.Address
	Value     *big.Int
	Data      []byte
	Operation dex.Operation
}

// Builder encodes swap and liquidity calls against a venue's router.
type Builder struct {
	registry *dex.Registry
	deadline time.Duration
	now      func() time.Time
}

func New(registry *dex.Registry, deadline time.Duration) *Builder {
	if deadline <= 0 {
		deadline = defaultDeadline
	}
	return &Builder{registry: registry, deadline: deadline, now: time.Now}
}

// SelectOperation maps a swap's direction and strategy to the router
// function to call. Native input never takes a fee-supporting variant: the
// chain's native asset cannot tax transfers, and the router reverts on the
// mismatch.
func SelectOperation(nativeIn, nativeOut bool, strategy types.SwapStrategy) (dex.Operation, error) {
	switch {
	case nativeIn && nativeOut:
		return dex.OpUnknown, ErrUnsupportedSwap
	case nativeIn:
		if strategy == types.StrategyExactOutput {
			return dex.OpSwapETHForExactTokens, nil
		}
		return dex.OpSwapExactETHForTokens, nil
	case nativeOut:
		switch strategy {
		case types.StrategyExactOutput:
			return dex.OpSwapTokensForExactETH, nil
		case types.StrategySupportingFee:
			return dex.OpSwapExactTokensForETHSupportingFee, nil
		default:
			return dex.OpSwapExactTokensForETH, nil
		}
	default:
		switch strategy {
		case types.StrategyExactOutput:
			return dex.OpSwapTokensForExactTokens, nil
		case types.StrategySupportingFee:
			return dex.OpSwapExactTokensForTokensSupportingFee, nil
		default:
			return dex.OpSwapExactTokensForTokens, nil
		}
	}
}

// BuildSwap encodes the router call for an execution request. The quote's
// amounts become the slippage-adjusted bounds: minimum output for exact-in,
// maximum input for exact-out.
func (b *Builder) BuildSwap(req types.ExecutionRequest) (Tx, error) {
	if req.SlippagePct < 0 || req.SlippagePct >= 100 {
		return Tx{}, ErrBadSlippage
	}
	op, err := SelectOperation(req.TokenIn.IsNative(), req.TokenOut.IsNative(), req.Quote.Strategy)
	if err != nil {
		return Tx{}, err
	}
	sel, ok := dex.OperationSelector(op)
	if !ok {
		return Tx{}, fmt.Errorf("txbuilder: no selector for operation %d", op)
	}

	venue := b.registry.Venue(req.Quote.Route.Venue)
	deadline := b.deadlineWord(req.DeadlineUnix)
	recipient := dex.AddressWord(req.Signer)
	path := req.Quote.Route.Path

	var head [][]byte
	value := new(big.Int)

	switch op {
	case dex.OpSwapExactETHForTokens:
		value.Set(req.Quote.AmountIn)
		head = [][]byte{
			dex.Uint256Word(applySlippageDown(req.Quote.AmountOut, req.SlippagePct)),
			dex.OffsetWord(ethInPathOffset),
			recipient,
			deadline,
		}
	case dex.OpSwapETHForExactTokens:
		value.Set(applySlippageUp(req.Quote.AmountIn, req.SlippagePct))
		head = [][]byte{
			dex.Uint256Word(req.Quote.AmountOut),
			dex.OffsetWord(ethInPathOffset),
			recipient,
			deadline,
		}
	case dex.OpSwapTokensForExactETH, dex.OpSwapTokensForExactTokens:
		head = [][]byte{
			dex.Uint256Word(req.Quote.AmountOut),
			dex.Uint256Word(applySlippageUp(req.Quote.AmountIn, req.SlippagePct)),
			dex.OffsetWord(tokenInPathOffset),
			recipient,
			deadline,
		}
	default:
		// The exact-in token shapes, plain and fee-supporting.
		head = [][]byte{
			dex.Uint256Word(req.Quote.AmountIn),
			dex.Uint256Word(applySlippageDown(req.Quote.AmountOut, req.SlippagePct)),
			dex.OffsetWord(tokenInPathOffset),
			recipient,
			deadline,
		}
	}

	data := dex.EncodeCall(sel, head...)
	data = append(data, dex.AddressArrayTail(path)...)
	return Tx{To: venue.Router, Value: value, Data: data, Operation: op}, nil
}

// AddLiquidityRequest describes a two-token or token/native deposit. For
// the native side, Token is the sentinel and its desired amount rides as
// call value.
type AddLiquidityRequest struct {
	Venue          types.VenueID
	TokenA, TokenB types.Token
	AmountADesired *big.Int
	AmountBDesired *big.Int
	SlippagePct    float64
	Recipient      common.Address
	DeadlineUnix   int64
}

// BuildAddLiquidity encodes addLiquidity or addLiquidityETH. Minimum
// amounts are the desired amounts shaved by slippage.
func (b *Builder) BuildAddLiquidity(req AddLiquidityRequest) (Tx, error) {
	if req.SlippagePct < 0 || req.SlippagePct >= 100 {
		return Tx{}, ErrBadSlippage
	}
	venue := b.registry.Venue(req.Venue)
	deadline := b.deadlineWord(req.DeadlineUnix)

	// Canonicalize so the native side, if any, is side B.
	a, b2 := req.TokenA, req.TokenB
	amtA, amtB := req.AmountADesired, req.AmountBDesired
	if a.IsNative() {
		a, b2 = b2, a
		amtA, amtB = amtB, amtA
	}

	if b2.IsNative() {
		sel, _ := dex.OperationSelector(dex.OpAddLiquidityETH)
		data := dex.EncodeCall(sel,
			dex.AddressWord(a.Address),
			dex.Uint256Word(amtA),
			dex.Uint256Word(applySlippageDown(amtA, req.SlippagePct)),
			dex.Uint256Word(applySlippageDown(amtB, req.SlippagePct)),
			dex.AddressWord(req.Recipient),
			deadline,
		)
		return Tx{To: venue.Router, Value: new(big.Int).Set(amtB), Data: data, Operation: dex.OpAddLiquidityETH}, nil
	}

	sel, _ := dex.OperationSelector(dex.OpAddLiquidity)
	data := dex.EncodeCall(sel,
		dex.AddressWord(a.Address),
		dex.AddressWord(b2.Address),
		dex.Uint256Word(amtA),
		dex.Uint256Word(amtB),
		dex.Uint256Word(applySlippageDown(amtA, req.SlippagePct)),
		dex.Uint256Word(applySlippageDown(amtB, req.SlippagePct)),
		dex.AddressWord(req.Recipient),
		deadline,
	)
	return Tx{To: venue.Router, Value: new(big.Int), Data: data, Operation: dex.OpAddLiquidity}, nil
}

// RemoveLiquidityRequest burns LP tokens for the underlying pair.
type RemoveLiquidityRequest struct {
	Venue          types.VenueID
	TokenA, TokenB types.Token
	Liquidity      *big.Int
	AmountAMin     *big.Int
	AmountBMin     *big.Int
	Recipient      common.Address
	DeadlineUnix   int64
}

// BuildRemoveLiquidity encodes removeLiquidity or removeLiquidityETH.
func (b *Builder) BuildRemoveLiquidity(req RemoveLiquidityRequest) (Tx, error) {
	venue := b.registry.Venue(req.Venue)
	deadline := b.deadlineWord(req.DeadlineUnix)

	a, b2 := req.TokenA, req.TokenB
	minA, minB := req.AmountAMin, req.AmountBMin
	if a.IsNative() {
		a, b2 = b2, a
		minA, minB = minB, minA
	}

	if b2.IsNative() {
		sel, _ := dex.OperationSelector(dex.OpRemoveLiquidityETH)
		data := dex.EncodeCall(sel,
			dex.AddressWord(a.Address),
			dex.Uint256Word(req.Liquidity),
			dex.Uint256Word(minA),
			dex.Uint256Word(minB),
			dex.AddressWord(req.Recipient),
			deadline,
		)
		return Tx{To: venue.Router, Value: new(big.Int), Data: data, Operation: dex.OpRemoveLiquidityETH}, nil
	}

	sel, _ := dex.OperationSelector(dex.OpRemoveLiquidity)
	data := dex.EncodeCall(sel,
		dex.AddressWord(a.Address),
		dex.AddressWord(b2.Address),
		dex.Uint256Word(req.Liquidity),
		dex.Uint256Word(minA),
		dex.Uint256Word(minB),
		dex.AddressWord(req.Recipient),
		deadline,
	)
	return Tx{To: venue.Router, Value: new(big.Int), Data: data, Operation: dex.OpRemoveLiquidity}, nil
}

func (b *Builder) deadlineWord(overrideUnix int64) []byte {
	unix := overrideUnix
	if unix == 0 {
		unix = b.now().Add(b.deadline).Unix()
	}
	return dex.Uint256Word(big.NewInt(unix))
}

// applySlippageDown scales an amount to its acceptable minimum. Basis
// points keep the arithmetic integral.
func applySlippageDown(amount *big.Int, slippagePct float64) *big.Int {
	bps := big.NewInt(10_000 - int64(slippagePct*100))
	out := new(big.Int).Mul(amount, bps)
	return out.Div(out, big.NewInt(10_000))
}

// applySlippageUp scales an amount to its acceptable maximum.
func applySlippageUp(amount *big.Int, slippagePct float64) *big.Int {
	bps := big.NewInt(10_000 + int64(slippagePct*100))
	out := new(big.Int).Mul(amount, bps)
	return out.Div(out, big.NewInt(10_000))
}
