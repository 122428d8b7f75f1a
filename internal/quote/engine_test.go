package quote

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/dex"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/oracle"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/router"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

var (
	wrappedNative = common.HexToAddress("0x8B6087AF806ee12e3eEf3EC6efBF2bC6E17bCC2F")
	primaryRouter = common.HexToAddress("0x0000000000000000000000000000000000000102")

	tokenIn  = types.Token{Symbol: "AAA", Name: "Token A", Address: common.HexToAddress("0xaa"), Decimals: 18}
	tokenOut = types.Token{Symbol: "BBB", Name: "Token B", Address: common.HexToAddress("0xbb"), Decimals: 18}
	native   = types.Token{Symbol: "REACH", Name: "Reach", Address: types.NativeSentinel, Decimals: 18}
)

func testRegistry() *dex.Registry {
	return dex.NewRegistry(
		types.Venue{Name: "ReachSwap", Factory: common.HexToAddress("0x0101"), Router: primaryRouter},
		types.Venue{Name: "LoopSwap", Factory: common.HexToAddress("0x0201"), Router: common.HexToAddress("0x0202")},
		wrappedNative,
	)
}

// fakeChain answers getAmountsOut/getAmountsIn with canned hop amounts.
type fakeChain struct {
	amounts []*big.Int
	err     error
}

func (f *fakeChain) Call(_ context.Context, _ common.Address, data []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !bytes.Equal(data[:4], dex.SelGetAmountsOut.Bytes()) &&
		!bytes.Equal(data[:4], dex.SelGetAmountsIn.Bytes()) {
		return nil, errors.New("execution reverted")
	}
	out := dex.OffsetWord(0x20)
	out = append(out, dex.Uint256Word(big.NewInt(int64(len(f.amounts))))...)
	for _, a := range f.amounts {
		out = append(out, dex.Uint256Word(a)...)
	}
	return out, nil
}

// fakeReserves serves every primary-venue pair from one reserve pair and
// can be switched to failing mid-test.
type fakeReserves struct {
	mu         sync.Mutex
	reserveIn  *big.Int
	reserveOut *big.Int
	failing    bool
}

func (f *fakeReserves) ResolvePair(_ context.Context, venue types.VenueID, a, b common.Address) (types.PoolRef, bool, error) {
	if venue != types.VenuePrimary {
		return types.PoolRef{}, false, nil
	}
	return types.PoolRef{Venue: venue, Pair: common.HexToAddress("0xdead"), TokenA: a, TokenB: b}, true, nil
}

func (f *fakeReserves) Reserves(_ context.Context, ref types.PoolRef) (types.Reserves, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return types.Reserves{}, oracle.ErrOracleUnavailable
	}
	return types.Reserves{ReserveA: f.reserveIn, ReserveB: f.reserveOut, Token0: ref.TokenA}, nil
}

// fakeProfiler returns a fixed profile for flagged tokens.
type fakeProfiler struct {
	feeTokens map[common.Address]float64
}

func (f *fakeProfiler) Profile(_ context.Context, token common.Address, _, _ string) types.FeeProfile {
	if pct, ok := f.feeTokens[token]; ok {
		return types.FeeProfile{Token: token, HasTransferFee: true, BuyFeePct: pct, SellFeePct: pct, Source: "static"}
	}
	return types.FeeProfile{Token: token, Source: "default"}
}

func newEngine(chain *fakeChain, reserves *fakeReserves, profiler *fakeProfiler) *Engine {
	reg := testRegistry()
	sel := router.New(reserves, reg, 30*time.Second, 5*time.Second)
	if profiler == nil {
		profiler = &fakeProfiler{}
	}
	return New(chain, sel, reserves, profiler, reg)
}

func million() *big.Int { return big.NewInt(1_000_000) }

func TestQuote_DirectPair(t *testing.T) {
	t.Parallel()

	chain := &fakeChain{amounts: []*big.Int{big.NewInt(10_000), big.NewInt(9_871)}}
	reserves := &fakeReserves{reserveIn: million(), reserveOut: million()}
	e := newEngine(chain, reserves, nil)

	q, err := e.Quote(context.Background(), Request{
		TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: big.NewInt(10_000),
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.AmountOut.Int64() != 9_871 {
		t.Fatalf("AmountOut = %s, want 9871", q.AmountOut)
	}
	if !q.LiquidityAvailable {
		t.Fatal("LiquidityAvailable = false")
	}
	if q.Strategy != types.StrategyExactInput {
		t.Fatalf("Strategy = %q, want exactInput", q.Strategy)
	}
	if !q.PriceImpactCalculated {
		t.Fatalf("impact not calculated: %q", q.PriceImpactNote)
	}
	if q.PriceImpactPct < 0.9 || q.PriceImpactPct > 1.1 {
		t.Fatalf("PriceImpactPct = %v, want around 0.99", q.PriceImpactPct)
	}
	if q.RecommendedSlippagePct != 1.0 {
		t.Fatalf("RecommendedSlippagePct = %v, want 1.0", q.RecommendedSlippagePct)
	}
}

func TestQuote_FeeTokenRaisesSlippageAndStrategy(t *testing.T) {
	t.Parallel()

	chain := &fakeChain{amounts: []*big.Int{big.NewInt(10_000), big.NewInt(9_871)}}
	reserves := &fakeReserves{reserveIn: million(), reserveOut: million()}
	profiler := &fakeProfiler{feeTokens: map[common.Address]float64{tokenIn.Address: 4}}
	e := newEngine(chain, reserves, profiler)

	q, err := e.Quote(context.Background(), Request{
		TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: big.NewInt(10_000),
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Strategy != types.StrategySupportingFee {
		t.Fatalf("Strategy = %q, want supportingFee", q.Strategy)
	}
	// 4% fee: floor 5, fee+3 = 7.
	if q.RecommendedSlippagePct != 7 {
		t.Fatalf("RecommendedSlippagePct = %v, want 7", q.RecommendedSlippagePct)
	}
}

func TestQuote_NativeInputNeverUsesFeeStrategy(t *testing.T) {
	t.Parallel()

	chain := &fakeChain{amounts: []*big.Int{big.NewInt(10_000), big.NewInt(9_871)}}
	reserves := &fakeReserves{reserveIn: million(), reserveOut: million()}
	profiler := &fakeProfiler{feeTokens: map[common.Address]float64{tokenOut.Address: 2}}
	e := newEngine(chain, reserves, profiler)

	q, err := e.Quote(context.Background(), Request{
		TokenIn: native, TokenOut: tokenOut, AmountIn: big.NewInt(10_000),
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Strategy != types.StrategyExactInput {
		t.Fatalf("Strategy = %q, want exactInput for native input", q.Strategy)
	}
	// The fee still widens slippage even though the variant stays plain.
	if q.RecommendedSlippagePct != 5 {
		t.Fatalf("RecommendedSlippagePct = %v, want 5", q.RecommendedSlippagePct)
	}
}

func TestQuote_DegradesWhenReservesVanish(t *testing.T) {
	t.Parallel()

	chain := &fakeChain{amounts: []*big.Int{big.NewInt(10_000), big.NewInt(9_871)}}
	reserves := &fakeReserves{reserveIn: million(), reserveOut: million()}
	e := newEngine(chain, reserves, nil)

	// Prime the route cache while the oracle works, then break it. The
	// quote must still be served, minus the impact figure.
	if _, err := e.Quote(context.Background(), Request{TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: big.NewInt(1)}); err != nil {
		t.Fatalf("priming quote: %v", err)
	}
	reserves.mu.Lock()
	reserves.failing = true
	reserves.mu.Unlock()

	q, err := e.Quote(context.Background(), Request{
		TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: big.NewInt(10_000),
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.AmountOut.Int64() != 9_871 {
		t.Fatalf("AmountOut = %s, want amounts despite missing impact", q.AmountOut)
	}
	if q.PriceImpactCalculated {
		t.Fatal("impact must be marked uncalculated")
	}
	if q.PriceImpactNote == "" {
		t.Fatal("degraded quote must say why")
	}
}

func TestQuote_NoRoute(t *testing.T) {
	t.Parallel()

	chain := &fakeChain{amounts: []*big.Int{big.NewInt(1), big.NewInt(1)}}
	reserves := &fakeReserves{reserveIn: million(), reserveOut: million(), failing: true}
	e := newEngine(chain, reserves, nil)

	q, err := e.Quote(context.Background(), Request{
		TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: big.NewInt(10_000),
	})
	if !errors.Is(err, ErrLiquidityUnavailable) {
		t.Fatalf("err = %v, want ErrLiquidityUnavailable", err)
	}
	if q.LiquidityAvailable {
		t.Fatal("LiquidityAvailable must be false")
	}
	if q.AmountOut.Sign() != 0 {
		t.Fatalf("AmountOut = %s, want 0", q.AmountOut)
	}
}

func TestQuote_RejectsZeroAmount(t *testing.T) {
	t.Parallel()

	e := newEngine(&fakeChain{}, &fakeReserves{reserveIn: million(), reserveOut: million()}, nil)
	if _, err := e.Quote(context.Background(), Request{TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: big.NewInt(0)}); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("err = %v, want ErrZeroAmount", err)
	}
}

func TestQuoteReverse_ComputesRequiredInput(t *testing.T) {
	t.Parallel()

	chain := &fakeChain{amounts: []*big.Int{big.NewInt(10_132), big.NewInt(10_000)}}
	reserves := &fakeReserves{reserveIn: million(), reserveOut: million()}
	e := newEngine(chain, reserves, nil)

	q, err := e.QuoteReverse(context.Background(), ReverseRequest{
		TokenIn: tokenIn, TokenOut: tokenOut, AmountOut: big.NewInt(10_000),
	})
	if err != nil {
		t.Fatalf("QuoteReverse: %v", err)
	}
	if q.AmountIn.Int64() != 10_132 {
		t.Fatalf("AmountIn = %s, want 10132", q.AmountIn)
	}
	if q.Strategy != types.StrategyExactOutput {
		t.Fatalf("Strategy = %q, want exactOutput", q.Strategy)
	}
}

func TestQuoteReverse_RevertDegradesToUnavailable(t *testing.T) {
	t.Parallel()

	chain := &fakeChain{amounts: []*big.Int{big.NewInt(1), big.NewInt(1)}}
	reserves := &fakeReserves{reserveIn: million(), reserveOut: million()}
	e := newEngine(chain, reserves, nil)

	// Prime the route, then make the router contract revert.
	if _, err := e.QuoteReverse(context.Background(), ReverseRequest{TokenIn: tokenIn, TokenOut: tokenOut, AmountOut: big.NewInt(1)}); err != nil {
		t.Fatalf("priming quote: %v", err)
	}
	chain.err = errors.New("execution reverted: ds-math-sub-underflow")

	q, err := e.QuoteReverse(context.Background(), ReverseRequest{
		TokenIn: tokenIn, TokenOut: tokenOut, AmountOut: million(),
	})
	if !errors.Is(err, ErrLiquidityUnavailable) {
		t.Fatalf("err = %v, want ErrLiquidityUnavailable", err)
	}
	if q.LiquidityAvailable || q.AmountIn.Sign() != 0 {
		t.Fatalf("quote = %+v, want zero-amount unavailable shape", q)
	}
}

func TestFormatAmount(t *testing.T) {
	t.Parallel()

	wei := new(big.Int)
	wei.SetString("1500000000000000000", 10)

	cases := []struct {
		amount   *big.Int
		decimals uint8
		want     string
	}{
		{big.NewInt(0), 18, "0"},
		{wei, 18, "1.5"},
		{big.NewInt(10_000), 0, "10000"},
		{big.NewInt(1), 18, "0.000000000000000001"},
		{big.NewInt(123_456), 6, "0.123456"},
		{nil, 18, "0"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.amount, tc.decimals); got != tc.want {
			t.Errorf("FormatAmount(%v, %d) = %q, want %q", tc.amount, tc.decimals, got, tc.want)
		}
	}
}
