package quote

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/dex"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/oracle"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/router"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/swapmath"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

var (
	// ErrLiquidityUnavailable is returned when no venue can serve the pair.
	ErrLiquidityUnavailable = errors.New("quote: liquidity unavailable for pair")
	// ErrZeroAmount rejects quotes for nothing.
	ErrZeroAmount = errors.New("quote: amount must be positive")
)

const (
	baseSlippagePct     = 1.0
	feeSlippageFloorPct = 5.0
	highImpactThreshold = 3.0
	highImpactSlippage  = 8.0

	// Detected transfer fees are inflated before folding into impact. Fee
	// getters report the nominal rate, the realized skim is often worse.
	feeImpactPenalty = 1.5
)

// Caller executes read-only calls against the chain.
type Caller interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// ReserveSource is the slice of the oracle the engine reads mid-quote.
type ReserveSource interface {
	ResolvePair(ctx context.Context, venue types.VenueID, tokenA, tokenB common.Address) (types.PoolRef, bool, error)
	Reserves(ctx context.Context, ref types.PoolRef) (types.Reserves, error)
}

// Profiler classifies a token's transfer-fee behavior.
type Profiler interface {
	Profile(ctx context.Context, token common.Address, symbol, name string) types.FeeProfile
}

// Request describes one quote.
type Request struct {
	TokenIn  types.Token
	TokenOut types.Token
	AmountIn *big.Int
}

// ReverseRequest asks what input buys a desired output.
type ReverseRequest struct {
	TokenIn   types.Token
	TokenOut  types.Token
	AmountOut *big.Int
}

// Engine turns a route into priced amounts. The venue's own router
// contract computes amounts, so quoted numbers match what execution will
// see; price impact is derived separately from pool reserves and is
// advisory only.
type Engine struct {
	caller   Caller
	routes   *router.Selector
	reserves ReserveSource
	fees     Profiler
	registry *dex.Registry
}

func New(caller Caller, routes *router.Selector, reserves ReserveSource, fees Profiler, registry *dex.Registry) *Engine {
	return &Engine{
		caller:   caller,
		routes:   routes,
		reserves: reserves,
		fees:     fees,
		registry: registry,
	}
}

// Quote prices an exact-input swap.
func (e *Engine) Quote(ctx context.Context, req Request) (types.Quote, error) {
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return types.Quote{}, ErrZeroAmount
	}

	route, err := e.routes.Find(ctx, req.TokenIn.Address, req.TokenOut.Address)
	if err != nil {
		if errors.Is(err, router.ErrNoRoute) {
			return unavailableQuote(req.AmountIn, req.TokenOut), ErrLiquidityUnavailable
		}
		return types.Quote{}, err
	}

	amounts, err := e.routerAmounts(ctx, route, dex.SelGetAmountsOut, req.AmountIn)
	if err != nil {
		if ctx.Err() != nil {
			return types.Quote{}, ctx.Err()
		}
		return unavailableQuote(req.AmountIn, req.TokenOut), ErrLiquidityUnavailable
	}
	amountOut := amounts[len(amounts)-1]

	q := types.Quote{
		AmountIn:           req.AmountIn,
		AmountOut:          amountOut,
		AmountOutFormatted: FormatAmount(amountOut, req.TokenOut.Decimals),
		Route:              route,
		LiquidityAvailable: true,
	}
	e.finish(ctx, &q, req.TokenIn, req.TokenOut, amounts)
	return q, nil
}

// QuoteReverse prices an exact-output swap: how much input the desired
// output costs. Any failure degrades to a zero-amount quote so callers can
// render "insufficient liquidity" instead of an error page.
func (e *Engine) QuoteReverse(ctx context.Context, req ReverseRequest) (types.Quote, error) {
	if req.AmountOut == nil || req.AmountOut.Sign() <= 0 {
		return types.Quote{}, ErrZeroAmount
	}

	route, err := e.routes.Find(ctx, req.TokenIn.Address, req.TokenOut.Address)
	if err != nil {
		if errors.Is(err, router.ErrNoRoute) {
			return unavailableQuote(big.NewInt(0), req.TokenOut), ErrLiquidityUnavailable
		}
		return types.Quote{}, err
	}

	amounts, err := e.routerAmounts(ctx, route, dex.SelGetAmountsIn, req.AmountOut)
	if err != nil {
		if ctx.Err() != nil {
			return types.Quote{}, ctx.Err()
		}
		// getAmountsIn reverts outright when the pool cannot cover the
		// requested output.
		return unavailableQuote(big.NewInt(0), req.TokenOut), ErrLiquidityUnavailable
	}

	q := types.Quote{
		AmountIn:           amounts[0],
		AmountOut:          req.AmountOut,
		AmountOutFormatted: FormatAmount(req.AmountOut, req.TokenOut.Decimals),
		Route:              route,
		Strategy:           types.StrategyExactOutput,
		LiquidityAvailable: true,
	}
	e.finish(ctx, &q, req.TokenIn, req.TokenOut, amounts)
	return q, nil
}

// finish fills in fee handling, price impact, and recommended slippage.
// Impact failures degrade the quote rather than voiding it.
func (e *Engine) finish(ctx context.Context, q *types.Quote, tokenIn, tokenOut types.Token, amounts []*big.Int) {
	inProfile := e.fees.Profile(ctx, tokenIn.Address, tokenIn.Symbol, tokenIn.Name)
	outProfile := e.fees.Profile(ctx, tokenOut.Address, tokenOut.Symbol, tokenOut.Name)
	feePct := inProfile.MaxFeePct()
	if p := outProfile.MaxFeePct(); p > feePct {
		feePct = p
	}
	hasFee := inProfile.HasTransferFee || outProfile.HasTransferFee

	switch {
	case q.Strategy == types.StrategyExactOutput:
		if hasFee {
			// Fee-on-transfer tokens cannot honor an exact output.
			q.PriceImpactNote = appendNote(q.PriceImpactNote, "fee token: exact output is approximate")
		}
	case hasFee && !tokenIn.IsNative():
		q.Strategy = types.StrategySupportingFee
	default:
		q.Strategy = types.StrategyExactInput
	}

	impact, err := e.priceImpact(ctx, q.Route, amounts)
	if err != nil {
		q.PriceImpactCalculated = false
		q.PriceImpactNote = appendNote(q.PriceImpactNote, "reserves unavailable, impact not computed")
		log.Debug().Err(err).Msg("price impact unavailable")
	} else {
		if hasFee {
			impact *= feeImpactPenalty
		}
		q.PriceImpactPct = swapmath.ClampImpact(impact)
		q.PriceImpactCalculated = true
		if !q.Route.Direct() {
			q.PriceImpactNote = appendNote(q.PriceImpactNote, "two-hop impact is the sum of per-hop impacts")
		}
	}

	slippage := baseSlippagePct
	if hasFee {
		slippage = feeSlippageFloorPct
		if s := feePct + 3; s > slippage {
			slippage = s
		}
	}
	if q.PriceImpactCalculated && q.PriceImpactPct > highImpactThreshold && slippage < highImpactSlippage {
		slippage = highImpactSlippage
	}
	q.RecommendedSlippagePct = slippage
}

// routerAmounts asks the venue's router contract for hop amounts through
// the path. The same codec shape serves getAmountsOut and getAmountsIn.
func (e *Engine) routerAmounts(ctx context.Context, route types.Route, sel dex.Selector, amount *big.Int) ([]*big.Int, error) {
	venue := e.registry.Venue(route.Venue)

	data := dex.EncodeCall(sel, dex.Uint256Word(amount), dex.OffsetWord(0x40))
	data = append(data, dex.AddressArrayTail(route.Path)...)

	out, err := e.caller.Call(ctx, venue.Router, data)
	if err != nil {
		return nil, fmt.Errorf("router amounts on %s: %w", venue.Name, err)
	}
	amounts, ok := dex.DecodeUint256Array(out)
	if !ok {
		return nil, fmt.Errorf("router on %s returned malformed amounts", venue.Name)
	}
	if len(amounts) != len(route.Path) {
		return nil, fmt.Errorf("router returned %d amounts for %d-token path", len(amounts), len(route.Path))
	}
	return amounts, nil
}

// priceImpact sums per-hop impacts computed from each pool's reserves. The
// per-hop amounts come from the router, so the measure reflects the trade
// actually being priced.
func (e *Engine) priceImpact(ctx context.Context, route types.Route, amounts []*big.Int) (float64, error) {
	var total float64
	for i := 0; i+1 < len(route.Path); i++ {
		ref, ok, err := e.reserves.ResolvePair(ctx, route.Venue, route.Path[i], route.Path[i+1])
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, oracle.ErrOracleUnavailable
		}
		res, err := e.reserves.Reserves(ctx, ref)
		if err != nil {
			return 0, err
		}
		total += swapmath.PriceImpactPct(amounts[i], res.ReserveA)
	}
	return total, nil
}

func unavailableQuote(amountIn *big.Int, tokenOut types.Token) types.Quote {
	return types.Quote{
		AmountIn:           amountIn,
		AmountOut:          big.NewInt(0),
		AmountOutFormatted: FormatAmount(big.NewInt(0), tokenOut.Decimals),
		Strategy:           types.StrategyExactInput,
		PriceImpactNote:    "no route with liquidity for this pair",
		LiquidityAvailable: false,
	}
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "; " + note
}

// FormatAmount renders a raw integer amount in token units, trimming
// trailing zeros.
func FormatAmount(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(amount, scale, new(big.Int))
	if frac.Sign() == 0 {
		return whole.String()
	}
	digits := fmt.Sprintf("%0*s", int(decimals), frac.String())
	digits = strings.TrimRight(digits, "0")
	return whole.String() + "." + digits
}
