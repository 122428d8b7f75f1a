// Package oracle resolves pairs and reads live reserves from the two venue
// factories. Liveness rule: an RPC-layer fault is reported as
// ErrOracleUnavailable and callers must treat it exactly like "pair absent":
// quoting must never hinge on a single read succeeding.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/cache"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/dex"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

var (
	// ErrOracleUnavailable marks a transient RPC failure. Same shape as
	// "absent" for routing decisions.
	ErrOracleUnavailable = errors.New("reserve oracle unavailable")

	// ErrEmptyReserves marks a pool with a zero reserve on either side. Such
	// a pool is non-existent for quoting purposes.
	ErrEmptyReserves = errors.New("pool has empty reserves")
)

// Caller executes read-only ledger calls.
type Caller interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Oracle resolves pool addresses and reserves. The reserve cache is a short
// TTL performance aid, never a correctness guarantee.
type Oracle struct {
	caller   Caller
	registry *dex.Registry
	reserves *cache.TTL[reserveKey, types.Reserves]
}

type reserveKey struct {
	pair   common.Address
	tokenA common.Address
}

// New builds an oracle with the given reserve cache TTL.
func New(caller Caller, registry *dex.Registry, reserveTTL time.Duration) *Oracle {
	return &Oracle{
		caller:   caller,
		registry: registry,
		reserves: cache.New[reserveKey, types.Reserves](reserveTTL),
	}
}

// ResolvePair normalizes both tokens, asks the venue factory for their pair
// and returns it, or ok=false when the factory reports the zero address.
// Pair resolution is invariant to argument order.
func (o *Oracle) ResolvePair(ctx context.Context, venueID types.VenueID, tokenA, tokenB common.Address) (types.PoolRef, bool, error) {
	if !o.registry.Known(venueID) {
		return types.PoolRef{}, false, fmt.Errorf("unknown venue %q", venueID)
	}
	venue := o.registry.Venue(venueID)

	a := o.registry.Normalize(tokenA)
	b := o.registry.Normalize(tokenB)
	if a == b {
		return types.PoolRef{}, false, nil
	}

	sorted0, sorted1 := dex.SortTokens(a, b)
	data := dex.EncodeCall(dex.SelGetPair, dex.AddressWord(sorted0), dex.AddressWord(sorted1))

	result, err := o.caller.Call(ctx, venue.Factory, data)
	if err != nil {
		if ctx.Err() != nil {
			return types.PoolRef{}, false, ctx.Err()
		}
		return types.PoolRef{}, false, fmt.Errorf("%w: getPair on %s: %v", ErrOracleUnavailable, venue.Name, err)
	}

	pair, ok := dex.DecodeAddress(result)
	if !ok || pair == (common.Address{}) {
		return types.PoolRef{}, false, nil
	}

	return types.PoolRef{Venue: venueID, Pair: pair, TokenA: a, TokenB: b}, true, nil
}

// Reserves reads the pool's reserves and re-attributes them to the caller's
// token order. Three reads (reserves, token0, token1) are issued concurrently
// and joined; the canonical token0 decides the attribution, never the
// caller-supplied argument order.
func (o *Oracle) Reserves(ctx context.Context, ref types.PoolRef) (types.Reserves, error) {
	key := reserveKey{pair: ref.Pair, tokenA: ref.TokenA}
	if cached, ok := o.reserves.Get(key); ok {
		return cached, nil
	}

	res, err := o.readPair(ctx, ref)
	if err != nil {
		return types.Reserves{}, err
	}

	if res.ReserveA.Sign() == 0 || res.ReserveB.Sign() == 0 {
		return types.Reserves{}, ErrEmptyReserves
	}

	o.reserves.Set(key, res)
	return res, nil
}

func (o *Oracle) readPair(ctx context.Context, ref types.PoolRef) (types.Reserves, error) {
	var (
		r0, r1         *big.Int
		token0, token1 common.Address
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := o.caller.Call(gctx, ref.Pair, dex.EncodeCall(dex.SelGetReserves))
		if err != nil {
			return err
		}
		a, b, ok := dex.DecodeReserves(data)
		if !ok {
			return fmt.Errorf("malformed getReserves result from %s", ref.Pair.Hex())
		}
		r0, r1 = a, b
		return nil
	})
	g.Go(func() error {
		data, err := o.caller.Call(gctx, ref.Pair, dex.EncodeCall(dex.SelToken0))
		if err != nil {
			return err
		}
		addr, ok := dex.DecodeAddress(data)
		if !ok {
			return fmt.Errorf("malformed token0 result from %s", ref.Pair.Hex())
		}
		token0 = addr
		return nil
	})
	g.Go(func() error {
		data, err := o.caller.Call(gctx, ref.Pair, dex.EncodeCall(dex.SelToken1))
		if err != nil {
			return err
		}
		addr, ok := dex.DecodeAddress(data)
		if !ok {
			return fmt.Errorf("malformed token1 result from %s", ref.Pair.Hex())
		}
		token1 = addr
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return types.Reserves{}, ctx.Err()
		}
		return types.Reserves{}, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}

	switch ref.TokenA {
	case token0:
		return types.Reserves{ReserveA: r0, ReserveB: r1, Token0: token0}, nil
	case token1:
		return types.Reserves{ReserveA: r1, ReserveB: r0, Token0: token0}, nil
	}
	return types.Reserves{}, fmt.Errorf("pair %s does not hold token %s", ref.Pair.Hex(), ref.TokenA.Hex())
}

// InvalidateReserves drops any cached reserves for the pool so the next read
// is fresh. Used after a swap is submitted.
func (o *Oracle) InvalidateReserves(ref types.PoolRef) {
	o.reserves.Delete(reserveKey{pair: ref.Pair, tokenA: ref.TokenA})
	o.reserves.Delete(reserveKey{pair: ref.Pair, tokenA: ref.TokenB})
}
