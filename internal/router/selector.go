package router

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/cache"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/dex"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/oracle"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

// ErrNoRoute is returned when neither venue can connect the pair, directly
// or through wrapped native.
var ErrNoRoute = errors.New("router: no route between tokens")

// PoolSource is the slice of the oracle the router depends on.
type PoolSource interface {
	ResolvePair(ctx context.Context, venue types.VenueID, tokenA, tokenB common.Address) (types.PoolRef, bool, error)
	Reserves(ctx context.Context, ref types.PoolRef) (types.Reserves, error)
}

type routeKey struct {
	in  common.Address
	out common.Address
}

type routeEntry struct {
	route types.Route
	found bool
}

// Selector picks the venue and path for a token pair. The policy is a
// fixed priority ladder, not a price comparison: primary venue direct,
// secondary direct, primary two-hop through wrapped native, secondary
// two-hop.
type Selector struct {
	pools       PoolSource
	registry    *dex.Registry
	routes      *cache.TTL[routeKey, routeEntry]
	negativeTTL time.Duration
}

func New(pools PoolSource, registry *dex.Registry, positiveTTL, negativeTTL time.Duration) *Selector {
	return &Selector{
		pools:       pools,
		registry:    registry,
		routes:      cache.New[routeKey, routeEntry](positiveTTL),
		negativeTTL: negativeTTL,
	}
}

// Find resolves a route for the pair. Found routes are cached longer than
// misses so a pool created moments ago is picked up quickly. An oracle
// outage on one venue only removes that venue from consideration.
func (s *Selector) Find(ctx context.Context, tokenIn, tokenOut common.Address) (types.Route, error) {
	in := s.registry.Normalize(tokenIn)
	out := s.registry.Normalize(tokenOut)
	if in == out {
		return types.Route{}, ErrNoRoute
	}

	key := routeKey{in: in, out: out}
	if entry, ok := s.routes.Get(key); ok {
		if !entry.found {
			return types.Route{}, ErrNoRoute
		}
		return entry.route, nil
	}

	route, err := s.discover(ctx, in, out)
	if err != nil {
		if errors.Is(err, ErrNoRoute) {
			s.routes.SetWithTTL(key, routeEntry{}, s.negativeTTL)
		}
		return types.Route{}, err
	}

	s.routes.Set(key, routeEntry{route: route, found: true})
	log.Debug().
		Str("token_in", in.Hex()).
		Str("token_out", out.Hex()).
		Str("venue", s.registry.Venue(route.Venue).Name).
		Int("hops", len(route.Path)-1).
		Msg("route resolved")
	return route, nil
}

func (s *Selector) discover(ctx context.Context, in, out common.Address) (types.Route, error) {
	venues := s.registry.Ordered()

	// Both venues' direct pools are probed concurrently, then combined in
	// priority order.
	var direct [2]bool
	g, gctx := errgroup.WithContext(ctx)
	for i, venue := range venues {
		i, venue := i, venue
		g.Go(func() error {
			ok, err := s.usable(gctx, venue.ID, in, out)
			if err != nil {
				return err
			}
			direct[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.Route{}, err
	}
	for i, venue := range venues {
		if direct[i] {
			return types.Route{Path: []common.Address{in, out}, Venue: venue.ID}, nil
		}
	}

	// Two-hop only makes sense when wrapped native is not already an
	// endpoint.
	wn := s.registry.WrappedNative()
	if in == wn || out == wn {
		return types.Route{}, ErrNoRoute
	}
	for _, venue := range venues {
		firstLeg, err := s.usable(ctx, venue.ID, in, wn)
		if err != nil {
			return types.Route{}, err
		}
		if !firstLeg {
			continue
		}
		secondLeg, err := s.usable(ctx, venue.ID, wn, out)
		if err != nil {
			return types.Route{}, err
		}
		if secondLeg {
			return types.Route{Path: []common.Address{in, wn, out}, Venue: venue.ID}, nil
		}
	}
	return types.Route{}, ErrNoRoute
}

// usable reports whether a venue has a pool for the pair with liquidity on
// both sides. Oracle outages and empty pools both read as unusable rather
// than errors, so routing degrades instead of failing.
func (s *Selector) usable(ctx context.Context, venue types.VenueID, a, b common.Address) (bool, error) {
	ref, ok, err := s.pools.ResolvePair(ctx, venue, a, b)
	if err != nil {
		if errors.Is(err, oracle.ErrOracleUnavailable) {
			return false, nil
		}
		return false, err
	}
	if !ok {
		return false, nil
	}
	if _, err := s.pools.Reserves(ctx, ref); err != nil {
		if errors.Is(err, oracle.ErrOracleUnavailable) || errors.Is(err, oracle.ErrEmptyReserves) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Invalidate drops any cached route for the pair, in both directions.
func (s *Selector) Invalidate(tokenIn, tokenOut common.Address) {
	in := s.registry.Normalize(tokenIn)
	out := s.registry.Normalize(tokenOut)
	s.routes.Delete(routeKey{in: in, out: out})
	s.routes.Delete(routeKey{in: out, out: in})
}
