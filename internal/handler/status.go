package handler

import (
	"time"

	"github.com/gofiber/fiber/v3"
)

type StatusHandler struct {
	BaseHandler
}

func NewStatusHandler(engine SwapEngine) *StatusHandler {
	return &StatusHandler{BaseHandler: BaseHandler{engine: engine}}
}

type StatusResponse struct {
	Phase            string `json:"phase"`
	ExecutionEnabled bool   `json:"execution_enabled"`
	QuotesServed     uint64 `json:"quotes_served"`
	QuotesSuperseded uint64 `json:"quotes_superseded"`
	SwapsSubmitted   uint64 `json:"swaps_submitted"`
	SwapsFailed      uint64 `json:"swaps_failed"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
}

func (h *StatusHandler) Handle() fiber.Handler {
	return func(c fiber.Ctx) error {
		stats := h.engine.Stats()
		return c.JSON(StatusResponse{
			Phase:            string(h.engine.Phase()),
			ExecutionEnabled: h.engine.CanExecute(),
			QuotesServed:     stats.QuotesServed.Load(),
			QuotesSuperseded: stats.QuotesSuperseded.Load(),
			SwapsSubmitted:   stats.SwapsSubmitted.Load(),
			SwapsFailed:      stats.SwapsFailed.Load(),
			UptimeSeconds:    int64(time.Since(stats.StartTime).Seconds()),
		})
	}
}
