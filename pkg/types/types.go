package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NativeSentinel is the pseudo-address the frontend uses for the chain's
// native asset. It never appears on chain; the venue registry maps it to the
// wrapped token before any pair lookup.
var NativeSentinel = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Token represents an ERC20 token (or the native asset under its sentinel
// address). Immutable once constructed.
type Token struct {
	Symbol   string
	Name     string
	Address  common.Address
	Decimals uint8
	// PriceUSD is the last known price, zero when unknown. Advisory only.
	PriceUSD float64
}

// IsNative reports whether the token is the chain's native asset.
func (t Token) IsNative() bool {
	return t.Address == NativeSentinel
}

// VenueID identifies one of the two routable exchanges.
type VenueID string

const (
	VenuePrimary   VenueID = "primary"
	VenueSecondary VenueID = "secondary"
)

// Venue is a statically configured exchange: one factory, one swap router.
type Venue struct {
	ID      VenueID
	Name    string
	Factory common.Address
	Router  common.Address
}

// PoolRef locates a resolved pair on one venue. TokenA/TokenB are the
// normalized caller-order tokens, not the canonical token0/token1 order.
type PoolRef struct {
	Venue  VenueID
	Pair   common.Address
	TokenA common.Address
	TokenB common.Address
}

// Reserves holds a pool's reserves re-attributed to the caller's token order.
// Token0 is the pair's canonical first token, kept so callers can verify the
// attribution.
type Reserves struct {
	ReserveA *big.Int
	ReserveB *big.Int
	Token0   common.Address
}

// Route is an ordered token path (2 or 3 addresses, already normalized) plus
// the venue that carries every consecutive pair in it.
type Route struct {
	Path  []common.Address
	Venue VenueID
}

// Direct reports whether the route has no intermediate hop.
func (r Route) Direct() bool { return len(r.Path) == 2 }

// TokenIn returns the first token of the path.
func (r Route) TokenIn() common.Address { return r.Path[0] }

// TokenOut returns the last token of the path.
func (r Route) TokenOut() common.Address { return r.Path[len(r.Path)-1] }

// FeeProfile records a token's transfer-fee characteristics. Fee policy
// changes rarely, so profiles are cached on an hours scale.
type FeeProfile struct {
	Token           common.Address
	HasTransferFee  bool
	BuyFeePct       float64
	SellFeePct      float64
	SpecialHandling bool
	// Source names the detection stage that produced the profile
	// ("native", "static", "probe", "simulation", "heuristic", "default").
	Source string
}

// MaxFeePct returns the larger of the buy and sell fee estimates.
func (p FeeProfile) MaxFeePct() float64 {
	if p.BuyFeePct > p.SellFeePct {
		return p.BuyFeePct
	}
	return p.SellFeePct
}

// SwapStrategy tags which family of router operations a quote expects.
type SwapStrategy string

const (
	StrategyExactInput    SwapStrategy = "exactInput"
	StrategyExactOutput   SwapStrategy = "exactOutput"
	StrategySupportingFee SwapStrategy = "supportingFee"
)

// Quote is the value object produced for every quote request. It is never
// mutated after construction.
type Quote struct {
	// AmountIn is the input in the input token's smallest unit. For reverse
	// (exact-output) quotes this is the computed required input.
	AmountIn *big.Int
	// AmountOut is the output in the output token's smallest unit.
	AmountOut *big.Int
	// AmountOutFormatted is AmountOut scaled by the output token's decimals.
	AmountOutFormatted string

	Route    Route
	Strategy SwapStrategy

	// PriceImpactPct is clamped to [0, 100). Valid only when
	// PriceImpactCalculated is true; PriceImpactNote carries the reason
	// otherwise. Price impact is best effort, the amounts are not.
	PriceImpactPct        float64
	PriceImpactCalculated bool
	PriceImpactNote       string

	RecommendedSlippagePct float64
	LiquidityAvailable     bool
}

// ExecutionRequest carries everything the orchestrator needs to submit a swap.
type ExecutionRequest struct {
	Quote       Quote
	TokenIn     Token
	TokenOut    Token
	Signer      common.Address
	SlippagePct float64
	// DeadlineUnix overrides the default now+20m horizon when non-zero.
	DeadlineUnix int64
}
