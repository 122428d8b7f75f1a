// Package handler defines the HTTP surface over the swap engine.
package handler

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/execution"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/output"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/quote"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

// SwapEngine is the engine surface the handlers consume.
type SwapEngine interface {
	Quote(ctx context.Context, req quote.Request) (types.Quote, error)
	QuoteReverse(ctx context.Context, req quote.ReverseRequest) (types.Quote, error)
	Execute(ctx context.Context, req types.ExecutionRequest) (execution.Receipt, error)
	TokenInfo(ctx context.Context, addr common.Address) (types.Token, error)
	CanExecute() bool
	DefaultSlippage() float64
	Phase() execution.Phase
	Stats() *output.Stats
}

// BaseHandler provides common dependencies for HTTP handlers.
type BaseHandler struct {
	engine SwapEngine
}
