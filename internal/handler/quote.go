package handler

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/quote"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

type QuoteHandler struct {
	BaseHandler
}

func NewQuoteHandler(engine SwapEngine) *QuoteHandler {
	return &QuoteHandler{BaseHandler: BaseHandler{engine: engine}}
}

type QuoteRequest struct {
	In     string `query:"in" json:"in"`
	Out    string `query:"out" json:"out"`
	Amount string `query:"amount" json:"amount"`
	// Exact is "in" (default) or "out".
	Exact string `query:"exact" json:"exact"`
}

type QuoteResponse struct {
	AmountIn           string           `json:"amount_in"`
	AmountOut          string           `json:"amount_out"`
	AmountOutFormatted string           `json:"amount_out_formatted"`
	Venue              types.VenueID    `json:"venue,omitempty"`
	Path               []common.Address `json:"path,omitempty"`
	Strategy           string           `json:"strategy"`

	PriceImpactPct        float64 `json:"price_impact_pct"`
	PriceImpactCalculated bool    `json:"price_impact_calculated"`
	PriceImpactNote       string  `json:"price_impact_note,omitempty"`

	RecommendedSlippagePct float64 `json:"recommended_slippage_pct"`
	LiquidityAvailable     bool    `json:"liquidity_available"`
}

func (h *QuoteHandler) Handle() fiber.Handler {
	return func(c fiber.Ctx) error {
		req, err := h.parseAndValidateRequest(c)
		if err != nil {
			return err
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return err
		}

		tokenIn, tokenOut, err := h.resolveTokens(c.Context(), req.In, req.Out)
		if err != nil {
			return err
		}

		var q types.Quote
		if req.Exact == "out" {
			q, err = h.engine.QuoteReverse(c.Context(), quote.ReverseRequest{
				TokenIn: tokenIn, TokenOut: tokenOut, AmountOut: amount,
			})
		} else {
			q, err = h.engine.Quote(c.Context(), quote.Request{
				TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: amount,
			})
		}
		switch {
		case err == nil || errors.Is(err, quote.ErrLiquidityUnavailable):
			// Degraded quotes still render: the body says there is no
			// liquidity, which is an answer, not an error.
			return c.JSON(toQuoteResponse(q))
		case errors.Is(err, context.Canceled):
			return ErrQuoteSuperseded
		case errors.Is(err, quote.ErrZeroAmount):
			return ErrAmountNonPositive
		default:
			log.Error().Err(err).Msg("quote failed")
			return ErrQuoteFailedInternal
		}
	}
}

func (h *QuoteHandler) parseAndValidateRequest(c fiber.Ctx) (*QuoteRequest, error) {
	var req QuoteRequest
	if err := c.Bind().Query(&req); err != nil {
		log.Debug().Err(err).Msg("failed to bind query parameters")
		return nil, ErrInvalidQueryParameters
	}
	if err := validateAddressPair(req.In, req.Out); err != nil {
		return nil, err
	}
	if req.Exact != "" && req.Exact != "in" && req.Exact != "out" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "exact must be \"in\" or \"out\"")
	}
	return &req, nil
}

func (h *BaseHandler) resolveTokens(ctx context.Context, in, out string) (types.Token, types.Token, error) {
	tokenIn, err := h.engine.TokenInfo(ctx, common.HexToAddress(in))
	if err != nil {
		return types.Token{}, types.Token{}, NewInvalidAddress("in")
	}
	tokenOut, err := h.engine.TokenInfo(ctx, common.HexToAddress(out))
	if err != nil {
		return types.Token{}, types.Token{}, NewInvalidAddress("out")
	}
	return tokenIn, tokenOut, nil
}

func validateAddressPair(in, out string) error {
	for field, addr := range map[string]string{"in": in, "out": out} {
		if addr == "" {
			return NewAddressRequired(field)
		}
		if !common.IsHexAddress(addr) {
			return NewInvalidAddress(field)
		}
	}
	if common.HexToAddress(in) == common.HexToAddress(out) {
		return ErrSameAddresses
	}
	return nil
}

func parseAmount(amountStr string) (*big.Int, error) {
	if amountStr == "" {
		return nil, ErrAmountRequired
	}
	amount, ok := new(big.Int).SetString(amountStr, 10)
	if !ok {
		return nil, ErrInvalidAmountFormat
	}
	if amount.Sign() <= 0 {
		return nil, ErrAmountNonPositive
	}
	return amount, nil
}

func toQuoteResponse(q types.Quote) QuoteResponse {
	resp := QuoteResponse{
		AmountIn:               q.AmountIn.String(),
		AmountOut:              q.AmountOut.String(),
		AmountOutFormatted:     q.AmountOutFormatted,
		Strategy:               string(q.Strategy),
		PriceImpactPct:         q.PriceImpactPct,
		PriceImpactCalculated:  q.PriceImpactCalculated,
		PriceImpactNote:        q.PriceImpactNote,
		RecommendedSlippagePct: q.RecommendedSlippagePct,
		LiquidityAvailable:     q.LiquidityAvailable,
	}
	if q.LiquidityAvailable {
		resp.Venue = q.Route.Venue
		resp.Path = q.Route.Path
	}
	return resp
}
