// Package dex holds the static venue registry and the hand-rolled ABI layer
// shared by every on-chain component: selector constants derived from the
// canonical v2 router/factory/pair signatures, word-level calldata encoding,
// and safe decoding of call results.
package dex

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

// Registry is the static two-venue configuration. Venues are fixed at
// construction and never created or destroyed at runtime.
type Registry struct {
	primary       types.Venue
	secondary     types.Venue
	wrappedNative common.Address
}

// NewRegistry builds the registry. The primary venue is the network's native
// exchange and always wins ties.
func NewRegistry(primary, secondary types.Venue, wrappedNative common.Address) *Registry {
	primary.ID = types.VenuePrimary
	secondary.ID = types.VenueSecondary
	return &Registry{
		primary:       primary,
		secondary:     secondary,
		wrappedNative: wrappedNative,
	}
}

// Venue returns the venue with the given identity. The two identities are a
// closed set; callers validate foreign input with Known before resolving.
func (r *Registry) Venue(id types.VenueID) types.Venue {
	if id == types.VenueSecondary {
		return r.secondary
	}
	return r.primary
}

// Known reports whether the identity names one of the two configured venues.
func (r *Registry) Known(id types.VenueID) bool {
	return id == types.VenuePrimary || id == types.VenueSecondary
}

// Ordered returns both venues in routing priority order.
func (r *Registry) Ordered() [2]types.Venue {
	return [2]types.Venue{r.primary, r.secondary}
}

// WrappedNative returns the wrapped form of the chain's native asset, used as
// the bridge asset for two-hop routes.
func (r *Registry) WrappedNative() common.Address {
	return r.wrappedNative
}

// Normalize maps the native sentinel to the wrapped token address. Every
// on-chain pair lookup must operate on normalized addresses.
func (r *Registry) Normalize(token common.Address) common.Address {
	if token == types.NativeSentinel {
		return r.wrappedNative
	}
	return token
}

// IsNativeOrWrapped reports whether the address is the native sentinel or its
// wrapped representation.
func (r *Registry) IsNativeOrWrapped(token common.Address) bool {
	return token == types.NativeSentinel || token == r.wrappedNative
}

// SortTokens orders two addresses the way the factory does when deriving a
// pair, so cache keys and getPair arguments are order-independent.
func SortTokens(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		return b, a
	}
	return a, b
}
