package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/dex"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/quote"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

type ExecuteHandler struct {
	BaseHandler
}

func NewExecuteHandler(engine SwapEngine) *ExecuteHandler {
	return &ExecuteHandler{BaseHandler: BaseHandler{engine: engine}}
}

type ExecuteRequest struct {
	In           string  `json:"in"`
	Out          string  `json:"out"`
	AmountIn     string  `json:"amount_in"`
	SlippagePct  float64 `json:"slippage_pct"`
	DeadlineUnix int64   `json:"deadline_unix"`
}

type ExecuteResponse struct {
	TxHash    string `json:"tx_hash"`
	Operation string `json:"operation"`
	GasLimit  uint64 `json:"gas_limit"`
	GasPrice  string `json:"gas_price"`

	Quote QuoteResponse `json:"quote"`
}

// Handle quotes the pair fresh and submits the swap in one request. The
// quote embedded in the response is the one that was executed, not an
// estimate.
func (h *ExecuteHandler) Handle() fiber.Handler {
	return func(c fiber.Ctx) error {
		if !h.engine.CanExecute() {
			return ErrExecutionDisabled
		}

		var req ExecuteRequest
		if err := c.Bind().Body(&req); err != nil {
			log.Debug().Err(err).Msg("failed to bind request body")
			return ErrInvalidBody
		}
		if err := validateAddressPair(req.In, req.Out); err != nil {
			return err
		}
		amount, err := parseAmount(req.AmountIn)
		if err != nil {
			return err
		}
		if req.SlippagePct < 0 || req.SlippagePct >= 100 {
			return fiber.NewError(fiber.StatusBadRequest, "slippage_pct must be in [0, 100)")
		}

		tokenIn, tokenOut, err := h.resolveTokens(c.Context(), req.In, req.Out)
		if err != nil {
			return err
		}

		q, err := h.engine.Quote(c.Context(), quote.Request{
			TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: amount,
		})
		if err != nil && !errors.Is(err, quote.ErrLiquidityUnavailable) {
			log.Error().Err(err).Msg("pre-execution quote failed")
			return ErrQuoteFailedInternal
		}

		slippage := req.SlippagePct
		if slippage == 0 {
			slippage = q.RecommendedSlippagePct
		}

		receipt, err := h.engine.Execute(c.Context(), types.ExecutionRequest{
			Quote:        q,
			TokenIn:      tokenIn,
			TokenOut:     tokenOut,
			SlippagePct:  slippage,
			DeadlineUnix: req.DeadlineUnix,
		})
		if err != nil {
			return fiber.NewError(executionStatus(err), err.Error())
		}

		return c.JSON(ExecuteResponse{
			TxHash:    receipt.TxHash.Hex(),
			Operation: dex.OperationName(receipt.Operation),
			GasLimit:  receipt.GasLimit,
			GasPrice:  receipt.GasPrice.String(),
			Quote:     toQuoteResponse(q),
		})
	}
}
