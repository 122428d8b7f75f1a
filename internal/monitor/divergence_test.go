package monitor

import (
	"context"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/dex"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

var (
	wrappedNative = common.HexToAddress("0x8B6087AF806ee12e3eEf3EC6efBF2bC6E17bCC2F")
	tokenA        = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenB        = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func testRegistry() *dex.Registry {
	return dex.NewRegistry(
		types.Venue{Name: "ReachSwap", Factory: common.HexToAddress("0x01"), Router: common.HexToAddress("0x02")},
		types.Venue{Name: "LoopSwap", Factory: common.HexToAddress("0x03"), Router: common.HexToAddress("0x04")},
		wrappedNative,
	)
}

// fakePools serves per-venue reserves for a single pair.
type fakePools struct {
	reserves map[types.VenueID]types.Reserves
}

func (f *fakePools) ResolvePair(_ context.Context, venue types.VenueID, a, b common.Address) (types.PoolRef, bool, error) {
	if _, ok := f.reserves[venue]; !ok {
		return types.PoolRef{}, false, nil
	}
	return types.PoolRef{Venue: venue, Pair: common.HexToAddress("0xdead"), TokenA: a, TokenB: b}, true, nil
}

func (f *fakePools) Reserves(_ context.Context, ref types.PoolRef) (types.Reserves, error) {
	return f.reserves[ref.Venue], nil
}

func TestObserve_GapBetweenVenues(t *testing.T) {
	t.Parallel()

	// Primary prices B at 2.0 per A, secondary at 2.1: a 5% gap in the
	// secondary's favor.
	pools := &fakePools{reserves: map[types.VenueID]types.Reserves{
		types.VenuePrimary:   {ReserveA: big.NewInt(1_000_000), ReserveB: big.NewInt(2_000_000)},
		types.VenueSecondary: {ReserveA: big.NewInt(1_000_000), ReserveB: big.NewInt(2_100_000)},
	}}
	m := New(pools, testRegistry(), []Pair{{TokenA: tokenA, TokenB: tokenB}}, time.Minute, 1)

	obs, ok := m.Observe(context.Background(), Pair{TokenA: tokenA, TokenB: tokenB})
	if !ok {
		t.Fatal("Observe = not ok, want observation")
	}
	if math.Abs(obs.GapPct-5.0) > 0.01 {
		t.Fatalf("GapPct = %v, want 5.0", obs.GapPct)
	}
}

func TestObserve_MissingVenueSkips(t *testing.T) {
	t.Parallel()

	pools := &fakePools{reserves: map[types.VenueID]types.Reserves{
		types.VenuePrimary: {ReserveA: big.NewInt(1), ReserveB: big.NewInt(1)},
	}}
	m := New(pools, testRegistry(), nil, time.Minute, 1)

	if _, ok := m.Observe(context.Background(), Pair{TokenA: tokenA, TokenB: tokenB}); ok {
		t.Fatal("pair absent on one venue must not produce an observation")
	}
}

func TestNew_NormalizesNativeSentinel(t *testing.T) {
	t.Parallel()

	pools := &fakePools{reserves: map[types.VenueID]types.Reserves{}}
	m := New(pools, testRegistry(), []Pair{{TokenA: types.NativeSentinel, TokenB: tokenA}}, time.Minute, 1)

	if m.pairs[0].TokenA != wrappedNative {
		t.Fatalf("TokenA = %s, want wrapped native", m.pairs[0].TokenA.Hex())
	}
}
