// Package swapmath implements the exact-integer constant-product formulas
// used by v2-style pairs. Both venues charge the standard 0.3% pool fee,
// applied as a 997/1000 multiplier on the input side.
package swapmath

import "math/big"

var (
	feeMul  = big.NewInt(997)
	feeDen  = big.NewInt(1000)
	oneInt  = big.NewInt(1)
	hundred = big.NewFloat(100)
)

// GetAmountOut returns the output amount for swapping amountIn against a pool
// with the given reserves. Returns zero when either reserve or the input is
// not positive.
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	if amountIn == nil || amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return new(big.Int)
	}
	inWithFee := new(big.Int).Mul(amountIn, feeMul)
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, feeDen)
	denominator.Add(denominator, inWithFee)
	return numerator.Div(numerator, denominator)
}

// GetAmountIn returns the input amount required to receive amountOut from a
// pool with the given reserves. The pair contract rounds the required input
// up, so the +1 matches on-chain behavior exactly. Returns zero when the
// request cannot be satisfied (amountOut >= reserveOut or empty reserves).
func GetAmountIn(amountOut, reserveIn, reserveOut *big.Int) *big.Int {
	if amountOut == nil || amountOut.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return new(big.Int)
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return new(big.Int)
	}
	numerator := new(big.Int).Mul(reserveIn, amountOut)
	numerator.Mul(numerator, feeDen)
	denominator := new(big.Int).Sub(reserveOut, amountOut)
	denominator.Mul(denominator, feeMul)
	numerator.Div(numerator, denominator)
	return numerator.Add(numerator, oneInt)
}

// PriceImpactPct computes the percentage deviation of the trade's realized
// rate from the pool's pre-trade marginal rate (reserveOut/reserveIn). The
// realized rate is taken from the exact constant-product rational, not from
// a truncated integer output whose rounding would dominate dust-sized
// trades; the pool fee is part of the quoted amounts, not of impact. With
// the exact pre-fee output reserveOut*amountIn/(reserveIn+amountIn), the
// deviation reduces to amountIn/(reserveIn+amountIn): zero in the limit of
// a vanishing trade and non-decreasing in amountIn. Clamped to [0, 100).
func PriceImpactPct(amountIn, reserveIn *big.Int) float64 {
	if amountIn == nil || amountIn.Sign() <= 0 || reserveIn == nil || reserveIn.Sign() <= 0 {
		return 0
	}

	in := new(big.Float).SetInt(amountIn)
	total := new(big.Float).SetInt(new(big.Int).Add(reserveIn, amountIn))

	impact := new(big.Float).Quo(in, total)
	impact.Mul(impact, hundred)

	v, _ := impact.Float64()
	return ClampImpact(v)
}

// ClampImpact bounds a price-impact percentage to [0, 100). Summed multi-hop
// approximations can drift past 100; the clamp keeps the published number in
// range.
func ClampImpact(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct >= 100 {
		return 99.99
	}
	return pct
}
