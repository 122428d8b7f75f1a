package oracle

import (
	"bytes"
	"context"
	"errors"
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
	pairAddr      = common.HexToAddress("0x0000000000000000000000000000000000000abc")
)

func testRegistry() *dex.Registry {
	return dex.NewRegistry(
		types.Venue{Name: "ReachSwap", Factory: common.HexToAddress("0x01"), Router: common.HexToAddress("0x02")},
		types.Venue{Name: "LoopSwap", Factory: common.HexToAddress("0x03"), Router: common.HexToAddress("0x04")},
		wrappedNative,
	)
}

// fakeCaller answers calls by selector, optionally failing every call.
type fakeCaller struct {
	pair     common.Address
	token0   common.Address
	token1   common.Address
	reserve0 *big.Int
	reserve1 *big.Int
	err      error

	getPairCalldata []byte
}

func (f *fakeCaller) Call(_ context.Context, _ common.Address, data []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	switch {
	case bytes.Equal(data[:4], dex.SelGetPair.Bytes()):
		f.getPairCalldata = data
		return dex.AddressWord(f.pair), nil
	case bytes.Equal(data[:4], dex.SelGetReserves.Bytes()):
		out := dex.Uint256Word(f.reserve0)
		out = append(out, dex.Uint256Word(f.reserve1)...)
		out = append(out, dex.Uint256Word(big.NewInt(0))...)
		return out, nil
	case bytes.Equal(data[:4], dex.SelToken0.Bytes()):
		return dex.AddressWord(f.token0), nil
	case bytes.Equal(data[:4], dex.SelToken1.Bytes()):
		return dex.AddressWord(f.token1), nil
	}
	return nil, nil
}

func TestResolvePair_OrderInvariant(t *testing.T) {
	t.Parallel()

	fc := &fakeCaller{pair: pairAddr}
	o := New(fc, testRegistry(), time.Minute)

	ref1, ok1, err1 := o.ResolvePair(context.Background(), types.VenuePrimary, tokenA, tokenB)
	if err1 != nil || !ok1 {
		t.Fatalf("ResolvePair(a,b) = %v, %v", ok1, err1)
	}
	first := append([]byte(nil), fc.getPairCalldata...)

	ref2, ok2, err2 := o.ResolvePair(context.Background(), types.VenuePrimary, tokenB, tokenA)
	if err2 != nil || !ok2 {
		t.Fatalf("ResolvePair(b,a) = %v, %v", ok2, err2)
	}

	if !bytes.Equal(first, fc.getPairCalldata) {
		t.Fatal("getPair calldata must not depend on argument order")
	}
	if ref1.Pair != ref2.Pair {
		t.Fatalf("pair mismatch: %s vs %s", ref1.Pair.Hex(), ref2.Pair.Hex())
	}
}

func TestResolvePair_NormalizesNativeSentinel(t *testing.T) {
	t.Parallel()

	fc := &fakeCaller{pair: pairAddr}
	o := New(fc, testRegistry(), time.Minute)

	ref, ok, err := o.ResolvePair(context.Background(), types.VenuePrimary, types.NativeSentinel, tokenA)
	if err != nil || !ok {
		t.Fatalf("ResolvePair = %v, %v", ok, err)
	}
	if ref.TokenA != wrappedNative {
		t.Fatalf("TokenA = %s, want wrapped native", ref.TokenA.Hex())
	}
}

func TestResolvePair_ZeroAddressMeansAbsent(t *testing.T) {
	t.Parallel()

	fc := &fakeCaller{pair: common.Address{}}
	o := New(fc, testRegistry(), time.Minute)

	_, ok, err := o.ResolvePair(context.Background(), types.VenuePrimary, tokenA, tokenB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("zero-address pair must resolve as absent")
	}
}

func TestResolvePair_RPCFaultIsOracleUnavailable(t *testing.T) {
	t.Parallel()

	fc := &fakeCaller{err: errors.New("429 too many requests")}
	o := New(fc, testRegistry(), time.Minute)

	_, ok, err := o.ResolvePair(context.Background(), types.VenuePrimary, tokenA, tokenB)
	if ok {
		t.Fatal("fault must not resolve a pair")
	}
	if !errors.Is(err, ErrOracleUnavailable) {
		t.Fatalf("err = %v, want ErrOracleUnavailable", err)
	}
}

func TestReserves_CanonicalAttribution(t *testing.T) {
	t.Parallel()

	// The pair's canonical order is (tokenA, tokenB): reserve0 belongs to
	// tokenA. A caller asking in (tokenB, tokenA) order must still get the
	// right attribution.
	fc := &fakeCaller{
		token0:   tokenA,
		token1:   tokenB,
		reserve0: big.NewInt(111),
		reserve1: big.NewInt(222),
	}
	o := New(fc, testRegistry(), time.Minute)

	ref := types.PoolRef{Venue: types.VenuePrimary, Pair: pairAddr, TokenA: tokenB, TokenB: tokenA}
	res, err := o.Reserves(context.Background(), ref)
	if err != nil {
		t.Fatalf("Reserves: %v", err)
	}
	if res.ReserveA.Int64() != 222 || res.ReserveB.Int64() != 111 {
		t.Fatalf("attribution wrong: ReserveA=%s ReserveB=%s", res.ReserveA, res.ReserveB)
	}
	if res.Token0 != tokenA {
		t.Fatalf("Token0 = %s, want %s", res.Token0.Hex(), tokenA.Hex())
	}
}

func TestReserves_EmptyPoolIsNonExistent(t *testing.T) {
	t.Parallel()

	fc := &fakeCaller{
		token0:   tokenA,
		token1:   tokenB,
		reserve0: big.NewInt(0),
		reserve1: big.NewInt(500),
	}
	o := New(fc, testRegistry(), time.Minute)

	ref := types.PoolRef{Venue: types.VenuePrimary, Pair: pairAddr, TokenA: tokenA, TokenB: tokenB}
	_, err := o.Reserves(context.Background(), ref)
	if !errors.Is(err, ErrEmptyReserves) {
		t.Fatalf("err = %v, want ErrEmptyReserves", err)
	}
}

func TestReserves_CachesWithinTTL(t *testing.T) {
	t.Parallel()

	fc := &fakeCaller{
		token0:   tokenA,
		token1:   tokenB,
		reserve0: big.NewInt(10),
		reserve1: big.NewInt(20),
	}
	o := New(fc, testRegistry(), time.Minute)
	ref := types.PoolRef{Venue: types.VenuePrimary, Pair: pairAddr, TokenA: tokenA, TokenB: tokenB}

	if _, err := o.Reserves(context.Background(), ref); err != nil {
		t.Fatalf("first read: %v", err)
	}

	// A later read must be served from cache even if the ledger now fails.
	fc.err = errors.New("boom")
	res, err := o.Reserves(context.Background(), ref)
	if err != nil {
		t.Fatalf("cached read: %v", err)
	}
	if res.ReserveA.Int64() != 10 {
		t.Fatalf("cached ReserveA = %s", res.ReserveA)
	}

	// Invalidation forces a fresh (now failing) read.
	o.InvalidateReserves(ref)
	if _, err := o.Reserves(context.Background(), ref); !errors.Is(err, ErrOracleUnavailable) {
		t.Fatalf("err after invalidate = %v, want ErrOracleUnavailable", err)
	}
}
