package portfolio

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/anandsharma/kite-bridge/internal/clients/kite"
)

// KiteAPI is the slice of the upstream client the aggregator needs
type KiteAPI interface {
	Holdings(ctx context.Context) ([]kite.Holding, error)
	Quote(ctx context.Context, instruments ...string) (map[string]kite.Quote, error)
}

// Aggregator joins raw holdings with batched quotes and derives the
// portfolio's financial metrics.
type Aggregator struct {
	log zerolog.Logger
}

// NewAggregator creates a new portfolio aggregator
func NewAggregator(log zerolog.Logger) *Aggregator {
	return &Aggregator{
		log: log.With().Str("component", "aggregator").Logger(),
	}
}

// Build fetches holdings and quotes from upstream and computes a fresh
// snapshot. Exactly two upstream calls are made regardless of portfolio
// size: one holdings listing and one batched quote request. A holding
// whose instrument token has no quote in the batch is dropped silently.
func (a *Aggregator) Build(ctx context.Context, api KiteAPI) (*Snapshot, error) {
	start := time.Now()

	holdings, err := api.Holdings(ctx)
	if err != nil {
		return nil, &FetchError{Stage: StageHoldings, Err: err}
	}

	snap := &Snapshot{
		Holdings: []Position{},
		Quotes:   map[string]QuoteRef{},
		BuildMetrics: BuildMetrics{
			HoldingsFetched: true,
		},
	}

	if len(holdings) == 0 {
		a.log.Info().Msg("No holdings in account")
		snap.BuildMetrics.EmptyHoldings = true
		a.finish(snap, start)
		return snap, nil
	}

	instruments := make([]string, 0, len(holdings))
	for _, h := range holdings {
		instruments = append(instruments, kite.TokenKey(h.InstrumentToken))
	}

	quotes, err := api.Quote(ctx, instruments...)
	if err != nil {
		return nil, &FetchError{Stage: StageQuotes, Err: err}
	}
	snap.BuildMetrics.QuotesFetched = true

	// Index every returned quote, matched or not
	for key, q := range quotes {
		snap.Quotes[key] = QuoteRef{
			PriorClose: q.OHLC.Close,
			LastPrice:  q.LastPrice,
		}
	}

	// Single pass over holdings. Running sums stay unrounded so totals
	// don't accumulate per-position rounding error.
	var sumInvested, sumCurrent, sumToday float64

	for _, h := range holdings {
		q, ok := quotes[kite.TokenKey(h.InstrumentToken)]
		if !ok {
			a.log.Warn().
				Str("symbol", h.TradingSymbol).
				Int("instrument_token", h.InstrumentToken).
				Msg("No quote for holding, skipping")
			continue
		}

		qty := float64(h.Quantity)
		invested := h.AveragePrice * qty
		current := q.LastPrice * qty
		netAbs := current - invested
		todayAbs := (q.LastPrice - q.OHLC.Close) * qty

		snap.Holdings = append(snap.Holdings, Position{
			Symbol:        h.TradingSymbol,
			Exchange:      h.Exchange,
			Quantity:      h.Quantity,
			AvgPrice:      round2(h.AveragePrice),
			InvestedValue: round2(invested),
			LastPrice:     round2(q.LastPrice),
			CurrentValue:  round2(current),
			NetPnLAbs:     round2(netAbs),
			NetPnLPct:     round2(pctOf(netAbs, invested)),
			TodaysPnLAbs:  round2(todayAbs),
			TodaysPnLPct:  round2(pctOf(todayAbs, invested)),
		})

		sumInvested += invested
		sumCurrent += current
		sumToday += todayAbs
	}

	sumNet := sumCurrent - sumInvested
	snap.Totals = Totals{
		InvestedValue: round2(sumInvested),
		CurrentValue:  round2(sumCurrent),
		NetPnLAbs:     round2(sumNet),
		NetPnLPct:     round2(pctOf(sumNet, sumInvested)),
		TodaysPnLAbs:  round2(sumToday),
		TodaysPnLPct:  round2(pctOf(sumToday, sumInvested)),
	}

	a.finish(snap, start)

	a.log.Info().
		Int("positions", len(snap.Holdings)).
		Int("quotes", len(snap.Quotes)).
		Int64("duration_ms", snap.BuildMetrics.DurationMs).
		Msg("Portfolio snapshot built")

	return snap, nil
}

func (a *Aggregator) finish(snap *Snapshot, start time.Time) {
	snap.BuildMetrics.DurationMs = time.Since(start).Milliseconds()
	snap.BuildMetrics.CompletedAtUTC = time.Now().UTC().Format(time.RFC3339)
}

// pctOf is the zero-guarded percentage: 0 when the base is exactly 0,
// never a division fault or NaN.
func pctOf(value, base float64) float64 {
	if base == 0 {
		return 0
	}
	return value / base * 100
}

// round2 rounds a monetary value to 2 decimal places
func round2(val float64) float64 {
	return math.Round(val*100) / 100
}
