// Package engine assembles the quoting and execution pipeline behind one
// facade. It owns every cache and holds the only reference to the signing
// key.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/cache"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/config"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/dex"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/eth"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/execution"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/feedetect"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/monitor"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/oracle"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/output"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/quote"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/router"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/txbuilder"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

// ErrNoSigner is returned from Execute when no private key is configured.
var ErrNoSigner = errors.New("engine: no signing key configured, quoting only")

// Engine is the facade the API layer talks to.
type Engine struct {
	cfg      *config.Config
	client   *eth.Client
	registry *dex.Registry
	oracle   *oracle.Oracle
	quotes   *quote.Engine
	builder  *txbuilder.Builder
	logger   *output.Logger

	// orchestrator is nil in quote-only deployments.
	orchestrator *execution.Orchestrator
	signer       *eth.Signer

	tokens *cache.TTL[common.Address, types.Token]

	// quoteMu guards the supersession slot: a new quote cancels the one
	// in flight so the caller never renders a stale answer.
	quoteMu  sync.Mutex
	inFlight *quoteSlot

	// execMu serializes swaps; concurrent submissions from one key race
	// on the nonce.
	execMu sync.Mutex
}

func New(cfg *config.Config, client *eth.Client, logger *output.Logger) (*Engine, error) {
	primary, secondary := cfg.Venues()
	registry := dex.NewRegistry(primary, secondary, cfg.Chain.WrappedNative)

	orc := oracle.New(client, registry, cfg.Engine.ReserveTTL)
	routes := router.New(orc, registry, cfg.Engine.RouteTTL, cfg.Engine.RouteNegativeTTL)
	fees := feedetect.New(client, registry, cfg.Engine.FeeProfileTTL)
	quotes := quote.New(client, routes, orc, fees, registry)
	builder := txbuilder.New(registry, cfg.Engine.DeadlineHorizon)

	e := &Engine{
		cfg:      cfg,
		client:   client,
		registry: registry,
		oracle:   orc,
		quotes:   quotes,
		builder:  builder,
		logger:   logger,
		tokens:   cache.New[common.Address, types.Token](cfg.Engine.FeeProfileTTL),
	}

	if cfg.Chain.PrivateKey != "" {
		signer, err := eth.NewSigner(cfg.Chain.PrivateKey, client.ChainID())
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.signer = signer
		e.orchestrator = execution.New(client, signer, builder)
	}
	return e, nil
}

// Quote prices an exact-input swap. A newer call supersedes any quote
// still in flight: the older one is cancelled and reports
// context.Canceled, which callers treat as "discard silently".
func (e *Engine) Quote(ctx context.Context, req quote.Request) (types.Quote, error) {
	ctx, done := e.supersede(ctx)
	defer done()

	start := time.Now()
	q, err := e.quotes.Quote(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			e.logger.LogQuoteSuperseded()
		}
		return q, err
	}
	e.logger.LogQuote(&q, time.Since(start))
	return q, nil
}

// QuoteReverse prices an exact-output swap under the same supersession
// slot as Quote.
func (e *Engine) QuoteReverse(ctx context.Context, req quote.ReverseRequest) (types.Quote, error) {
	ctx, done := e.supersede(ctx)
	defer done()

	start := time.Now()
	q, err := e.quotes.QuoteReverse(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			e.logger.LogQuoteSuperseded()
		}
		return q, err
	}
	e.logger.LogQuote(&q, time.Since(start))
	return q, nil
}

type quoteSlot struct {
	cancel context.CancelFunc
}

// supersede cancels the in-flight quote, if any, and installs this one as
// the current holder of the slot. The returned done must run when the
// quote finishes, win or lose.
func (e *Engine) supersede(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	slot := &quoteSlot{cancel: cancel}

	e.quoteMu.Lock()
	if e.inFlight != nil {
		e.inFlight.cancel()
	}
	e.inFlight = slot
	e.quoteMu.Unlock()

	return ctx, func() {
		e.quoteMu.Lock()
		// Only vacate the slot if a newer quote hasn't taken it.
		if e.inFlight == slot {
			e.inFlight = nil
		}
		e.quoteMu.Unlock()
		cancel()
	}
}

// Execute submits a quoted swap. Swaps are serialized; the second caller
// waits, it is not rejected.
func (e *Engine) Execute(ctx context.Context, req types.ExecutionRequest) (execution.Receipt, error) {
	if e.orchestrator == nil {
		return execution.Receipt{}, ErrNoSigner
	}
	if req.SlippagePct == 0 {
		req.SlippagePct = e.cfg.Engine.DefaultSlippage
	}
	if req.Signer == (common.Address{}) {
		req.Signer = e.signer.Address()
	}

	e.execMu.Lock()
	defer e.execMu.Unlock()

	receipt, err := e.orchestrator.Execute(ctx, req)
	if err != nil {
		var execErr *execution.Error
		if errors.As(err, &execErr) {
			e.logger.LogFailure(string(execErr.Kind), err)
		} else {
			e.logger.LogFailure(string(execution.FailUnknown), err)
		}
		return execution.Receipt{}, err
	}
	e.logger.LogSubmission(receipt.TxHash.Hex(), req.Quote.Route.Venue, receipt.GasLimit)
	return receipt, nil
}

// TokenInfo resolves a token's symbol, name, and decimals from chain
// metadata. The native sentinel answers from configuration; ERC-20
// metadata is cached on the fee-profile timescale since it never changes.
func (e *Engine) TokenInfo(ctx context.Context, addr common.Address) (types.Token, error) {
	if addr == types.NativeSentinel {
		return types.Token{Symbol: "REACH", Name: "Reach", Address: addr, Decimals: 18}, nil
	}
	if tok, ok := e.tokens.Get(addr); ok {
		return tok, nil
	}

	tok := types.Token{Address: addr, Decimals: 18}

	if out, err := e.client.Call(ctx, addr, dex.EncodeCall(dex.SelDecimals)); err == nil {
		if dec, ok := dex.DecodeUint256(out); ok && dec.IsUint64() && dec.Uint64() <= 77 {
			tok.Decimals = uint8(dec.Uint64())
		}
	} else {
		return types.Token{}, fmt.Errorf("engine: token %s: %w", addr.Hex(), err)
	}
	if out, err := e.client.Call(ctx, addr, dex.EncodeCall(dex.SelSymbol)); err == nil {
		if s, ok := dex.DecodeString(out); ok {
			tok.Symbol = s
		}
	}
	if out, err := e.client.Call(ctx, addr, dex.EncodeCall(dex.SelName)); err == nil {
		if s, ok := dex.DecodeString(out); ok {
			tok.Name = s
		}
	}

	e.tokens.Set(addr, tok)
	return tok, nil
}

// Phase exposes the orchestrator's current phase for status endpoints.
func (e *Engine) Phase() execution.Phase {
	if e.orchestrator == nil {
		return execution.PhaseIdle
	}
	return e.orchestrator.Phase()
}

// Stats returns the engine counters.
func (e *Engine) Stats() *output.Stats {
	return e.logger.GetStats()
}

// CanExecute reports whether a signing key is configured.
func (e *Engine) CanExecute() bool { return e.orchestrator != nil }

// DefaultSlippage returns the configured fallback slippage percent.
func (e *Engine) DefaultSlippage() float64 { return e.cfg.Engine.DefaultSlippage }

// DivergenceMonitor builds the optional venue price monitor over the
// engine's oracle. Malformed pair entries are logged and skipped.
func (e *Engine) DivergenceMonitor(cfg config.MonitorConfig) *monitor.Monitor {
	var pairs []monitor.Pair
	for _, raw := range cfg.Pairs {
		a, b, ok := strings.Cut(raw, ":")
		if !ok || !common.IsHexAddress(a) || !common.IsHexAddress(b) {
			log.Warn().Str("pair", raw).Msg("skipping malformed monitor pair")
			continue
		}
		pairs = append(pairs, monitor.Pair{
			TokenA: common.HexToAddress(a),
			TokenB: common.HexToAddress(b),
		})
	}
	return monitor.New(e.oracle, e.registry, pairs, cfg.Interval, cfg.AlertPct)
}
