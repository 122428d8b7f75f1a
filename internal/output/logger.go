package output

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/config"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

// Logger handles structured output for the swap engine.
type Logger struct {
	stats *Stats
}

// Stats tracks engine counters since startup.
type Stats struct {
	QuotesServed     atomic.Uint64
	QuotesSuperseded atomic.Uint64
	SwapsSubmitted   atomic.Uint64
	SwapsFailed      atomic.Uint64
	StartTime        time.Time
}

// NewLogger configures zerolog and returns an engine logger.
func NewLogger(cfg config.LoggingConfig) *Logger {
	switch cfg.Format {
	case "json":
		// Default JSON output
	case "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	switch cfg.Level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}

	return &Logger{
		stats: &Stats{StartTime: time.Now()},
	}
}

// LogQuote logs a served quote.
func (l *Logger) LogQuote(q *types.Quote, duration time.Duration) {
	l.stats.QuotesServed.Add(1)

	evt := log.Info().
		Str("venue", string(q.Route.Venue)).
		Int("hops", len(q.Route.Path)-1).
		Str("amountOut", q.AmountOut.String()).
		Str("strategy", string(q.Strategy)).
		Bool("liquidity", q.LiquidityAvailable).
		Float64("slippagePct", q.RecommendedSlippagePct).
		Dur("duration", duration)
	if q.PriceImpactCalculated {
		evt = evt.Float64("priceImpactPct", q.PriceImpactPct)
	} else {
		evt = evt.Str("priceImpactNote", q.PriceImpactNote)
	}
	evt.Msg("Quote served")
}

// LogQuoteSuperseded records a quote cancelled by a newer request. Not an
// error; superseded quotes never surface to the caller.
func (l *Logger) LogQuoteSuperseded() {
	l.stats.QuotesSuperseded.Add(1)
	log.Debug().Msg("Quote superseded by newer request")
}

// LogSubmission logs a submitted swap transaction.
func (l *Logger) LogSubmission(txID string, venue types.VenueID, gasLimit uint64) {
	l.stats.SwapsSubmitted.Add(1)
	log.Info().
		Str("txID", txID).
		Str("venue", string(venue)).
		Uint64("gasLimit", gasLimit).
		Msg("Swap submitted")
}

// LogFailure logs a classified execution failure.
func (l *Logger) LogFailure(kind string, err error) {
	l.stats.SwapsFailed.Add(1)
	log.Warn().
		Err(err).
		Str("kind", kind).
		Msg("Swap failed")
}

// LogStats logs current engine statistics.
func (l *Logger) LogStats() {
	log.Info().
		Uint64("quotesServed", l.stats.QuotesServed.Load()).
		Uint64("quotesSuperseded", l.stats.QuotesSuperseded.Load()).
		Uint64("swapsSubmitted", l.stats.SwapsSubmitted.Load()).
		Uint64("swapsFailed", l.stats.SwapsFailed.Load()).
		Dur("uptime", time.Since(l.stats.StartTime)).
		Msg("Engine stats")
}

// LogError logs an error with context.
func (l *Logger) LogError(err error, context string) {
	log.Error().
		Err(err).
		Str("context", context).
		Msg("Error occurred")
}

// GetStats returns current statistics.
func (l *Logger) GetStats() *Stats {
	return l.stats
}
