package dex

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

func testRegistry() *Registry {
	return NewRegistry(
		types.Venue{Name: "ReachSwap", Factory: common.HexToAddress("0x01"), Router: common.HexToAddress("0x02")},
		types.Venue{Name: "LoopSwap", Factory: common.HexToAddress("0x03"), Router: common.HexToAddress("0x04")},
		common.HexToAddress("0x8B6087AF806ee12e3eEf3EC6efBF2bC6E17bCC2F"),
	)
}

func TestRegistry_VenueResolvesBothIdentities(t *testing.T) {
	t.Parallel()

	r := testRegistry()

	primary := r.Venue(types.VenuePrimary)
	if primary.Name != "ReachSwap" || primary.ID != types.VenuePrimary {
		t.Fatalf("primary venue = %+v", primary)
	}
	secondary := r.Venue(types.VenueSecondary)
	if secondary.Name != "LoopSwap" || secondary.ID != types.VenueSecondary {
		t.Fatalf("secondary venue = %+v", secondary)
	}
}

func TestRegistry_Known(t *testing.T) {
	t.Parallel()

	r := testRegistry()
	if !r.Known(types.VenuePrimary) || !r.Known(types.VenueSecondary) {
		t.Fatal("configured identities must be known")
	}
	if r.Known(types.VenueID("sushiswap")) {
		t.Fatal("foreign identity must not be known")
	}
}

func TestRegistry_NormalizeMapsSentinel(t *testing.T) {
	t.Parallel()

	r := testRegistry()
	wrapped := common.HexToAddress("0x8B6087AF806ee12e3eEf3EC6efBF2bC6E17bCC2F")

	if got := r.Normalize(types.NativeSentinel); got != wrapped {
		t.Fatalf("Normalize(sentinel) = %s, want %s", got.Hex(), wrapped.Hex())
	}
	other := common.HexToAddress("0xaa")
	if got := r.Normalize(other); got != other {
		t.Fatalf("Normalize(%s) = %s, want identity", other.Hex(), got.Hex())
	}
}
