package feedetect

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/cache"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/dex"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

// Caller is the read surface the detector needs from the ledger client.
type Caller interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	CallFrom(ctx context.Context, from, to common.Address, data []byte, value *big.Int) ([]byte, error)
}

// Reflection-style tokens expose their fee knobs as public getters. Any of
// these answering is a strong signal the token skims transfers.
var probeSelectors = []struct {
	name string
	sel  dex.Selector
}{
	{"_taxFee", dex.SelectorOf("_taxFee()")},
	{"buyTax", dex.SelectorOf("buyTax()")},
	{"sellTax", dex.SelectorOf("sellTax()")},
	{"totalFees", dex.SelectorOf("totalFees()")},
	{"_liquidityFee", dex.SelectorOf("_liquidityFee()")},
	{"_burnFee", dex.SelectorOf("_burnFee()")},
}

var selIsExcludedFromFee = dex.SelectorOf("isExcludedFromFee(address)")

// Name fragments that almost always belong to reflection or meme tokens
// with transfer taxes.
var suspiciousFragments = []string{
	"safe", "moon", "elon", "inu", "baby", "rocket",
	"fee", "tax", "reflect", "rfi",
}

// assumedFeePct is what we charge against a token we suspect but cannot
// measure. Overshooting slippage is recoverable, undershooting reverts.
const assumedFeePct = 5.0

// Detector classifies tokens by whether their transfer function skims a
// fee, so routing can pick the fee-supporting swap variants.
type Detector struct {
	caller   Caller
	registry *dex.Registry
	known    map[common.Address]types.FeeProfile
	profiles *cache.TTL[common.Address, types.FeeProfile]
}

func New(caller Caller, registry *dex.Registry, profileTTL time.Duration) *Detector {
	return &Detector{
		caller:   caller,
		registry: registry,
		known:    make(map[common.Address]types.FeeProfile),
		profiles: cache.New[common.Address, types.FeeProfile](profileTTL),
	}
}

// Register pins a static profile for a token, bypassing on-chain probes.
func (d *Detector) Register(profile types.FeeProfile) {
	d.known[profile.Token] = profile
}

// Profile runs the detection pipeline for a token. Stages short-circuit:
// native and wrapped-native are fee-free, a static entry wins outright,
// then on-chain probes, then a transfer simulation, and finally a lexical
// heuristic. Detection never fails: when every stage is inconclusive the
// token is assumed to carry a small fee.
func (d *Detector) Profile(ctx context.Context, token common.Address, symbol, name string) types.FeeProfile {
	token = d.registry.Normalize(token)

	if d.registry.IsNativeOrWrapped(token) {
		return types.FeeProfile{Token: token, Source: "native"}
	}
	if p, ok := d.known[token]; ok {
		return p
	}
	if p, ok := d.profiles.Get(token); ok {
		return p
	}

	p, conclusive := d.probe(ctx, token)
	if !conclusive {
		p, conclusive = d.simulate(ctx, token)
	}
	if !conclusive {
		p = d.lexical(token, symbol, name)
	}

	if p.HasTransferFee {
		log.Debug().
			Str("token", token.Hex()).
			Str("source", p.Source).
			Float64("fee_pct", p.MaxFeePct()).
			Msg("transfer fee detected")
	}
	d.profiles.Set(token, p)
	return p
}

// probe calls the fee getters reflection tokens expose. A successful call
// with a plausible value is conclusive either way: a nonzero fee means the
// token taxes transfers, an answering getter with every fee at zero means
// the mechanism exists but is switched off.
func (d *Detector) probe(ctx context.Context, token common.Address) (types.FeeProfile, bool) {
	answered := false
	var total float64

	for _, pr := range probeSelectors {
		out, err := d.caller.Call(ctx, token, dex.EncodeCall(pr.sel))
		if err != nil || len(out) < dex.WordSize {
			continue
		}
		v, ok := dex.DecodeUint256(out)
		if !ok {
			continue
		}
		answered = true
		if pct := plausiblePct(v); pct > 0 {
			total += pct
		}
	}
	if !answered {
		return types.FeeProfile{}, false
	}

	p := types.FeeProfile{Token: token, Source: "probe"}
	if total > 0 {
		if total > assumedFeePct*5 {
			total = assumedFeePct * 5
		}
		p.HasTransferFee = true
		p.BuyFeePct = total
		p.SellFeePct = total
	}
	return p, true
}

// simulate asks the node to dry-run a transfer of a small fraction of the
// token contract's own balance, never a state-changing transaction. A revert
// or an explicit false marks the token as needing special handling; a clean
// true is conclusive fee-free. Zero balance falls through to the heuristic.
func (d *Detector) simulate(ctx context.Context, token common.Address) (types.FeeProfile, bool) {
	// Checking the fee-exclusion map is a cheaper secondary probe: only
	// fee-charging contracts bother implementing it.
	data := dex.EncodeCall(selIsExcludedFromFee, dex.AddressWord(token))
	if out, err := d.caller.Call(ctx, token, data); err == nil && len(out) >= dex.WordSize {
		return types.FeeProfile{
			Token:          token,
			HasTransferFee: true,
			BuyFeePct:      assumedFeePct,
			SellFeePct:     assumedFeePct,
			Source:         "simulation",
		}, true
	}

	// The token contract is the one address guaranteed to hold a balance on
	// reflection-style tokens, so it plays the sender.
	balData := dex.EncodeCall(dex.SelBalanceOf, dex.AddressWord(token))
	out, err := d.caller.Call(ctx, token, balData)
	if err != nil {
		return types.FeeProfile{}, false
	}
	balance, ok := dex.DecodeUint256(out)
	if !ok || balance.Sign() == 0 {
		return types.FeeProfile{}, false
	}
	amount := new(big.Int).Div(balance, big.NewInt(1000))
	if amount.Sign() == 0 {
		amount = big.NewInt(1)
	}

	// Honest tokens return true; fee tokens with transfer hooks frequently
	// revert or answer false on zero-fee paths.
	transfer := dex.EncodeCall(dex.SelTransfer,
		dex.AddressWord(token), dex.Uint256Word(amount))
	out, err = d.caller.CallFrom(ctx, token, token, transfer, nil)
	if err != nil {
		return types.FeeProfile{
			Token:           token,
			HasTransferFee:  true,
			BuyFeePct:       assumedFeePct,
			SellFeePct:      assumedFeePct,
			SpecialHandling: true,
			Source:          "simulation",
		}, true
	}
	returned, decoded := dex.DecodeBool(out)
	if !decoded {
		return types.FeeProfile{}, false
	}
	if !returned {
		return types.FeeProfile{
			Token:          token,
			HasTransferFee: true,
			BuyFeePct:      assumedFeePct,
			SellFeePct:     assumedFeePct,
			Source:         "simulation",
		}, true
	}
	return types.FeeProfile{Token: token, Source: "simulation"}, true
}

// lexical is the last resort: meme-token naming conventions, then the
// conservative default. A token nothing could classify is assumed to carry
// a small fee; undershooting slippage reverts the swap, overshooting only
// widens the bound.
func (d *Detector) lexical(token common.Address, symbol, name string) types.FeeProfile {
	haystack := strings.ToLower(symbol + " " + name)
	for _, frag := range suspiciousFragments {
		if strings.Contains(haystack, frag) {
			return types.FeeProfile{
				Token:          token,
				HasTransferFee: true,
				BuyFeePct:      assumedFeePct,
				SellFeePct:     assumedFeePct,
				Source:         "heuristic",
			}
		}
	}
	return types.FeeProfile{
		Token:          token,
		HasTransferFee: true,
		BuyFeePct:      assumedFeePct,
		SellFeePct:     assumedFeePct,
		Source:         "default",
	}
}

// plausiblePct interprets a fee getter's raw value as a percentage.
// Reflection tokens store whole percents, a few store basis points.
func plausiblePct(v *big.Int) float64 {
	if !v.IsInt64() {
		return 0
	}
	n := v.Int64()
	switch {
	case n <= 0:
		return 0
	case n <= 30:
		return float64(n)
	case n <= 3000:
		return float64(n) / 100
	default:
		return 0
	}
}
