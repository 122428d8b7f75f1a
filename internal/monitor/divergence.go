// Package monitor watches the price gap between the two venues. A wide gap
// means the priority router is about to hand users a visibly worse rate
// than the market has, which is worth an operator's attention.
package monitor

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/dex"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

// PoolSource is the oracle surface the monitor reads.
type PoolSource interface {
	ResolvePair(ctx context.Context, venue types.VenueID, tokenA, tokenB common.Address) (types.PoolRef, bool, error)
	Reserves(ctx context.Context, ref types.PoolRef) (types.Reserves, error)
}

// Pair names one watched token pair.
type Pair struct {
	TokenA common.Address
	TokenB common.Address
}

// Divergence is one observation of both venues quoting the same pair.
type Divergence struct {
	Pair          Pair
	PrimaryRate   *big.Float
	SecondaryRate *big.Float
	// GapPct is the secondary's rate advantage over the primary in
	// percent. Positive means the secondary pays better.
	GapPct float64
}

// Monitor periodically compares mid-prices for its pairs across venues.
type Monitor struct {
	pools    PoolSource
	registry *dex.Registry
	pairs    []Pair
	interval time.Duration
	alertPct float64
}

func New(pools PoolSource, registry *dex.Registry, pairs []Pair, interval time.Duration, alertPct float64) *Monitor {
	if interval <= 0 {
		interval = time.Minute
	}
	if alertPct <= 0 {
		alertPct = 1.0
	}
	for i := range pairs {
		pairs[i].TokenA = registry.Normalize(pairs[i].TokenA)
		pairs[i].TokenB = registry.Normalize(pairs[i].TokenB)
	}
	return &Monitor{
		pools:    pools,
		registry: registry,
		pairs:    pairs,
		interval: interval,
		alertPct: alertPct,
	}
}

// Run observes until the context ends. Pairs missing on either venue are
// skipped quietly; there is nothing to compare.
func (m *Monitor) Run(ctx context.Context) {
	if len(m.pairs) == 0 {
		return
	}
	log.Info().
		Int("pairs", len(m.pairs)).
		Dur("interval", m.interval).
		Float64("alertPct", m.alertPct).
		Msg("Divergence monitor started")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *Monitor) sweep(ctx context.Context) {
	for _, pair := range m.pairs {
		obs, ok := m.Observe(ctx, pair)
		if !ok {
			continue
		}
		evt := log.Debug()
		if obs.GapPct >= m.alertPct || obs.GapPct <= -m.alertPct {
			evt = log.Warn()
		}
		evt.
			Str("tokenA", pair.TokenA.Hex()).
			Str("tokenB", pair.TokenB.Hex()).
			Float64("gapPct", obs.GapPct).
			Msg("Venue price divergence")
	}
}

// Observe reads both venues' mid-price for the pair. The second return is
// false when either venue has no usable pool.
func (m *Monitor) Observe(ctx context.Context, pair Pair) (Divergence, bool) {
	primary, ok := m.midPrice(ctx, types.VenuePrimary, pair)
	if !ok {
		return Divergence{}, false
	}
	secondary, ok := m.midPrice(ctx, types.VenueSecondary, pair)
	if !ok {
		return Divergence{}, false
	}

	gap := new(big.Float).Sub(secondary, primary)
	gap.Quo(gap, primary)
	gap.Mul(gap, big.NewFloat(100))
	pct, _ := gap.Float64()

	return Divergence{
		Pair:          pair,
		PrimaryRate:   primary,
		SecondaryRate: secondary,
		GapPct:        pct,
	}, true
}

// midPrice is reserveB/reserveA: how much of tokenB one unit of tokenA
// buys at the margin, before fees.
func (m *Monitor) midPrice(ctx context.Context, venue types.VenueID, pair Pair) (*big.Float, bool) {
	ref, ok, err := m.pools.ResolvePair(ctx, venue, pair.TokenA, pair.TokenB)
	if err != nil || !ok {
		return nil, false
	}
	res, err := m.pools.Reserves(ctx, ref)
	if err != nil {
		return nil, false
	}
	price := new(big.Float).Quo(
		new(big.Float).SetInt(res.ReserveB),
		new(big.Float).SetInt(res.ReserveA),
	)
	return price, true
}
