// Package execution walks a quoted swap through preflight, approval, gas
// estimation, and submission. The phase machine is linear: a failed check
// stops the run, nothing is retried past submission.
package execution

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog/log"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/dex"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/txbuilder"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

// Phase names the orchestrator's position in a run.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseCheckingLiquidity Phase = "checking_liquidity"
	PhaseCheckingBalance   Phase = "checking_balance"
	PhaseCheckingAllowance Phase = "checking_allowance"
	PhaseApproving         Phase = "approving"
	PhaseWaitingApproval   Phase = "waiting_approval"
	PhaseEstimatingGas     Phase = "estimating_gas"
	PhaseSubmitting        Phase = "submitting"
	PhaseSubmitted         Phase = "submitted"
	PhaseFailed            Phase = "failed"
)

// Estimation failures fall back to limits generous enough for any v2
// router path.
const (
	fallbackSwapGas    = uint64(500_000)
	fallbackApproveGas = uint64(100_000)

	// Gas estimates get 20% headroom; fee-token transfer hooks burn more
	// than the dry run reports.
	gasHeadroomPct = 20

	approvalPollInterval = 2 * time.Second
	approvalWaitTimeout  = 90 * time.Second
)

// maxImpactPct hard-stops swaps the quote itself calls punitive.
const maxImpactPct = 50.0

// Chain is the write-capable node surface the orchestrator drives.
type Chain interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
	EstimateGas(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonce(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// TxSigner turns raw call parameters into a signed transaction.
type TxSigner interface {
	Address() common.Address
	Sign(nonce uint64, to common.Address, value *big.Int, gasLimit uint64, gasPrice *big.Int, data []byte) (*ethtypes.Transaction, error)
}

// Receipt reports a submitted swap.
type Receipt struct {
	TxHash    common.Hash
	Operation dex.Operation
	GasLimit  uint64
	GasPrice  *big.Int
}

// Orchestrator runs one swap at a time through the phase machine.
type Orchestrator struct {
	chain   Chain
	signer  TxSigner
	builder *txbuilder.Builder

	phase Phase
}

func New(chain Chain, signer TxSigner, builder *txbuilder.Builder) *Orchestrator {
	return &Orchestrator{chain: chain, signer: signer, builder: builder, phase: PhaseIdle}
}

// Phase returns the most recent phase, for status surfaces.
func (o *Orchestrator) Phase() Phase { return o.phase }

func (o *Orchestrator) enter(p Phase) {
	o.phase = p
	log.Debug().Str("phase", string(p)).Msg("execution phase")
}

// Execute submits the swap described by the request. The quote must come
// from the quoting engine in the same session; amounts are trusted as
// quoted and only re-bounded by slippage.
func (o *Orchestrator) Execute(ctx context.Context, req types.ExecutionRequest) (Receipt, error) {
	o.enter(PhaseCheckingLiquidity)
	if !req.Quote.LiquidityAvailable || len(req.Quote.Route.Path) < 2 {
		return o.failed(fail(FailLiquidityUnavailable, PhaseCheckingLiquidity, ErrNoLiquidity))
	}
	if req.Quote.PriceImpactCalculated && req.Quote.PriceImpactPct > maxImpactPct {
		return o.failed(failf(FailPriceImpactTooHigh, PhaseCheckingLiquidity,
			"price impact %.2f%% exceeds %.0f%% limit", req.Quote.PriceImpactPct, maxImpactPct))
	}

	tx, err := o.builder.BuildSwap(req)
	if err != nil {
		return o.failed(fail(FailUnknown, PhaseCheckingLiquidity, err))
	}

	if err := o.checkBalance(ctx, req, tx); err != nil {
		return o.failed(err.(*Error))
	}
	if err := o.ensureAllowance(ctx, req, tx); err != nil {
		return o.failed(err.(*Error))
	}
	return o.submit(ctx, req, tx)
}

// ErrNoLiquidity is the cause wrapped when a quote arrives already marked
// unroutable.
var ErrNoLiquidity = errNoLiquidity{}

type errNoLiquidity struct{}

func (errNoLiquidity) Error() string { return "quote has no liquidity" }

// checkBalance reads live balances, never cached ones. A stale balance
// turns into a confusing on-chain revert, a fresh one into a clear error.
func (o *Orchestrator) checkBalance(ctx context.Context, req types.ExecutionRequest, tx txbuilder.Tx) error {
	o.enter(PhaseCheckingBalance)
	from := o.signer.Address()

	if req.TokenIn.IsNative() {
		bal, err := o.chain.Balance(ctx, from)
		if err != nil {
			return fail(FailOracleUnavailable, PhaseCheckingBalance, err)
		}
		if bal.Cmp(tx.Value) < 0 {
			return failf(FailInsufficientBalance, PhaseCheckingBalance,
				"native balance %s below required %s", bal, tx.Value)
		}
		return nil
	}

	data := dex.EncodeCall(dex.SelBalanceOf, dex.AddressWord(from))
	out, err := o.chain.Call(ctx, req.TokenIn.Address, data)
	if err != nil {
		return fail(FailOracleUnavailable, PhaseCheckingBalance, err)
	}
	bal, ok := dex.DecodeUint256(out)
	if !ok {
		return failf(FailOracleUnavailable, PhaseCheckingBalance, "malformed balanceOf response")
	}
	need := requiredInput(req)
	if bal.Cmp(need) < 0 {
		return failf(FailInsufficientBalance, PhaseCheckingBalance,
			"%s balance %s below required %s", req.TokenIn.Symbol, bal, need)
	}
	return nil
}

// ensureAllowance brings the router's allowance up to the required input.
// Fee-on-transfer tokens get a 200% buffer: their transferFrom hooks can
// consume allowance beyond the nominal amount. Tokens that demand a
// zero-reset before re-approval get one; its failure is logged and ignored
// since most tokens don't need it.
func (o *Orchestrator) ensureAllowance(ctx context.Context, req types.ExecutionRequest, tx txbuilder.Tx) error {
	if req.TokenIn.IsNative() {
		return nil
	}
	o.enter(PhaseCheckingAllowance)
	from := o.signer.Address()

	data := dex.EncodeCall(dex.SelAllowance, dex.AddressWord(from), dex.AddressWord(tx.To))
	out, err := o.chain.Call(ctx, req.TokenIn.Address, data)
	if err != nil {
		return fail(FailOracleUnavailable, PhaseCheckingAllowance, err)
	}
	allowance, ok := dex.DecodeUint256(out)
	if !ok {
		return failf(FailOracleUnavailable, PhaseCheckingAllowance, "malformed allowance response")
	}

	need := requiredInput(req)
	if req.Quote.Strategy == types.StrategySupportingFee {
		need = new(big.Int).Mul(need, big.NewInt(2))
	}
	if allowance.Cmp(need) >= 0 {
		return nil
	}

	o.enter(PhaseApproving)
	if allowance.Sign() > 0 {
		if err := o.sendApprove(ctx, req.TokenIn.Address, tx.To, big.NewInt(0), true); err != nil {
			log.Warn().Err(err).Str("token", req.TokenIn.Symbol).Msg("zero-reset approve failed, continuing")
		}
	}
	if err := o.sendApprove(ctx, req.TokenIn.Address, tx.To, need, false); err != nil {
		return fail(FailApproval, PhaseApproving, err)
	}
	return nil
}

// sendApprove submits an approve and, unless it is the optional zero
// reset, waits for its receipt so the swap's estimate sees the allowance.
func (o *Orchestrator) sendApprove(ctx context.Context, token, spender common.Address, amount *big.Int, optional bool) error {
	from := o.signer.Address()
	data := dex.EncodeCall(dex.SelApprove, dex.AddressWord(spender), dex.Uint256Word(amount))

	gasLimit, err := o.chain.EstimateGas(ctx, from, token, nil, data)
	if err != nil {
		gasLimit = fallbackApproveGas
	} else {
		gasLimit += gasLimit * gasHeadroomPct / 100
	}
	gasPrice, err := o.chain.SuggestGasPrice(ctx)
	if err != nil {
		return err
	}
	nonce, err := o.chain.PendingNonce(ctx, from)
	if err != nil {
		return err
	}
	signed, err := o.signer.Sign(nonce, token, big.NewInt(0), gasLimit, gasPrice, data)
	if err != nil {
		return err
	}
	if err := o.chain.SendTransaction(ctx, signed); err != nil {
		return err
	}
	log.Info().
		Str("token", token.Hex()).
		Str("spender", spender.Hex()).
		Str("amount", amount.String()).
		Str("tx", signed.Hash().Hex()).
		Msg("approve submitted")

	if optional {
		return nil
	}
	o.enter(PhaseWaitingApproval)
	return o.waitMined(ctx, signed.Hash())
}

func (o *Orchestrator) waitMined(ctx context.Context, txHash common.Hash) error {
	deadline := time.NewTimer(approvalWaitTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(approvalPollInterval)
	defer tick.Stop()

	for {
		receipt, err := o.chain.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				return failf(FailApproval, PhaseWaitingApproval, "approve reverted in tx %s", txHash.Hex())
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return fail(FailUserRejected, PhaseWaitingApproval, ctx.Err())
		case <-deadline.C:
			return failf(FailApprovalTimeout, PhaseWaitingApproval,
				"approve %s not mined within %s", txHash.Hex(), approvalWaitTimeout)
		case <-tick.C:
		}
	}
}

// submit estimates gas for the swap itself and sends it. An estimation
// revert is a real failure signal and is classified; other estimation
// faults fall back to a fixed limit.
func (o *Orchestrator) submit(ctx context.Context, req types.ExecutionRequest, tx txbuilder.Tx) (Receipt, error) {
	o.enter(PhaseEstimatingGas)
	from := o.signer.Address()

	gasLimit, err := o.chain.EstimateGas(ctx, from, tx.To, tx.Value, tx.Data)
	switch {
	case err == nil:
		gasLimit += gasLimit * gasHeadroomPct / 100
	case isRevert(err):
		return o.failed(classifyRevert(PhaseEstimatingGas, err))
	default:
		log.Warn().Err(err).Uint64("fallback", fallbackSwapGas).Msg("gas estimation unavailable, using fallback")
		gasLimit = fallbackSwapGas
	}

	o.enter(PhaseSubmitting)
	gasPrice, err := o.chain.SuggestGasPrice(ctx)
	if err != nil {
		return o.failed(fail(FailOracleUnavailable, PhaseSubmitting, err))
	}
	nonce, err := o.chain.PendingNonce(ctx, from)
	if err != nil {
		return o.failed(fail(FailOracleUnavailable, PhaseSubmitting, err))
	}
	signed, err := o.signer.Sign(nonce, tx.To, tx.Value, gasLimit, gasPrice, tx.Data)
	if err != nil {
		return o.failed(fail(FailUnknown, PhaseSubmitting, err))
	}
	if err := o.chain.SendTransaction(ctx, signed); err != nil {
		return o.failed(classifyRevert(PhaseSubmitting, err))
	}

	o.enter(PhaseSubmitted)
	log.Info().
		Str("tx", signed.Hash().Hex()).
		Str("operation", dex.OperationName(tx.Operation)).
		Uint64("gas_limit", gasLimit).
		Str("gas_price", gasPrice.String()).
		Msg("swap submitted")
	return Receipt{
		TxHash:    signed.Hash(),
		Operation: tx.Operation,
		GasLimit:  gasLimit,
		GasPrice:  gasPrice,
	}, nil
}

func (o *Orchestrator) failed(err *Error) (Receipt, error) {
	o.enter(PhaseFailed)
	return Receipt{}, err
}

// requiredInput is the worst-case input the wallet must cover: quoted
// input for exact-in, slippage-padded input for exact-out.
func requiredInput(req types.ExecutionRequest) *big.Int {
	if req.Quote.Strategy != types.StrategyExactOutput {
		return req.Quote.AmountIn
	}
	bps := big.NewInt(10_000 + int64(req.SlippagePct*100))
	need := new(big.Int).Mul(req.Quote.AmountIn, bps)
	return need.Div(need, big.NewInt(10_000))
}

func isRevert(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "revert")
}
