package portfolio

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anandsharma/kite-bridge/internal/clients/kite"
)

// fakeAPI implements KiteAPI for aggregator tests
type fakeAPI struct {
	holdings    []kite.Holding
	holdingsErr error
	quotes      map[string]kite.Quote
	quotesErr   error

	quoteCalls      int
	lastInstruments []string
}

func (f *fakeAPI) Holdings(ctx context.Context) ([]kite.Holding, error) {
	if f.holdingsErr != nil {
		return nil, f.holdingsErr
	}
	return f.holdings, nil
}

func (f *fakeAPI) Quote(ctx context.Context, instruments ...string) (map[string]kite.Quote, error) {
	f.quoteCalls++
	f.lastInstruments = instruments
	if f.quotesErr != nil {
		return nil, f.quotesErr
	}
	return f.quotes, nil
}

func quote(token int, last, priorClose float64) kite.Quote {
	return kite.Quote{
		InstrumentToken: token,
		LastPrice:       last,
		OHLC:            kite.OHLC{Close: priorClose},
	}
}

func TestBuild_EnrichesPosition(t *testing.T) {
	api := &fakeAPI{
		holdings: []kite.Holding{
			{TradingSymbol: "ACME", Exchange: "NSE", Quantity: 10, AveragePrice: 100.00, InstrumentToken: 111},
		},
		quotes: map[string]kite.Quote{
			"111": quote(111, 120.00, 115.00),
		},
	}

	agg := NewAggregator(zerolog.Nop())
	snap, err := agg.Build(context.Background(), api)
	require.NoError(t, err)
	require.Len(t, snap.Holdings, 1)

	pos := snap.Holdings[0]
	assert.Equal(t, "ACME", pos.Symbol)
	assert.Equal(t, "NSE", pos.Exchange)
	assert.Equal(t, 10, pos.Quantity)
	assert.Equal(t, 100.00, pos.AvgPrice)
	assert.Equal(t, 1000.00, pos.InvestedValue)
	assert.Equal(t, 120.00, pos.LastPrice)
	assert.Equal(t, 1200.00, pos.CurrentValue)
	assert.Equal(t, 200.00, pos.NetPnLAbs)
	assert.Equal(t, 20.00, pos.NetPnLPct)
	assert.Equal(t, 50.00, pos.TodaysPnLAbs)
	assert.Equal(t, 5.00, pos.TodaysPnLPct)

	assert.Equal(t, 1000.00, snap.Totals.InvestedValue)
	assert.Equal(t, 1200.00, snap.Totals.CurrentValue)
	assert.Equal(t, 200.00, snap.Totals.NetPnLAbs)
	assert.Equal(t, 20.00, snap.Totals.NetPnLPct)

	assert.Equal(t, QuoteRef{PriorClose: 115.00, LastPrice: 120.00}, snap.Quotes["111"])

	m := snap.BuildMetrics
	assert.True(t, m.HoldingsFetched)
	assert.True(t, m.QuotesFetched)
	assert.False(t, m.EmptyHoldings)
	assert.NotEmpty(t, m.CompletedAtUTC)
}

func TestBuild_DropsHoldingWithoutQuote(t *testing.T) {
	api := &fakeAPI{
		holdings: []kite.Holding{
			{TradingSymbol: "ACME", Exchange: "NSE", Quantity: 10, AveragePrice: 100, InstrumentToken: 111},
			{TradingSymbol: "ORPHAN", Exchange: "NSE", Quantity: 5, AveragePrice: 50, InstrumentToken: 222},
		},
		quotes: map[string]kite.Quote{
			"111": quote(111, 120, 115),
			// 222 missing, 333 returned without a matching holding
			"333": quote(333, 9, 8),
		},
	}

	agg := NewAggregator(zerolog.Nop())
	snap, err := agg.Build(context.Background(), api)
	require.NoError(t, err)

	require.Len(t, snap.Holdings, 1)
	assert.Equal(t, "ACME", snap.Holdings[0].Symbol)

	// Dropped holding contributes nothing to totals
	assert.Equal(t, 1000.00, snap.Totals.InvestedValue)
	assert.Equal(t, 1200.00, snap.Totals.CurrentValue)

	// Quotes index carries every returned quote, matched or not
	assert.Len(t, snap.Quotes, 2)
	assert.Contains(t, snap.Quotes, "111")
	assert.Contains(t, snap.Quotes, "333")
}

func TestBuild_ZeroInvestedGuard(t *testing.T) {
	api := &fakeAPI{
		holdings: []kite.Holding{
			{TradingSymbol: "FREE", Exchange: "NSE", Quantity: 10, AveragePrice: 0, InstrumentToken: 111},
		},
		quotes: map[string]kite.Quote{
			"111": quote(111, 5, 4),
		},
	}

	agg := NewAggregator(zerolog.Nop())
	snap, err := agg.Build(context.Background(), api)
	require.NoError(t, err)
	require.Len(t, snap.Holdings, 1)

	pos := snap.Holdings[0]
	assert.Equal(t, 0.00, pos.InvestedValue)
	assert.Equal(t, 50.00, pos.CurrentValue)
	assert.Equal(t, 0.00, pos.NetPnLPct)
	assert.Equal(t, 0.00, pos.TodaysPnLPct)
	assert.Equal(t, 0.00, snap.Totals.NetPnLPct)
	assert.Equal(t, 0.00, snap.Totals.TodaysPnLPct)
}

func TestBuild_TotalsUseUnroundedSums(t *testing.T) {
	// Three positions invested 0.125 each. Rounded per-position that is
	// 3 x 0.13 = 0.39; the correct total is round(0.375) = 0.38.
	holdings := make([]kite.Holding, 3)
	quotes := make(map[string]kite.Quote, 3)
	for i := range holdings {
		token := 100 + i
		holdings[i] = kite.Holding{
			TradingSymbol:   fmt.Sprintf("PENNY%d", i),
			Exchange:        "NSE",
			Quantity:        1,
			AveragePrice:    0.125,
			InstrumentToken: token,
		}
		quotes[fmt.Sprint(token)] = quote(token, 0.125, 0.125)
	}

	agg := NewAggregator(zerolog.Nop())
	snap, err := agg.Build(context.Background(), &fakeAPI{holdings: holdings, quotes: quotes})
	require.NoError(t, err)

	assert.Equal(t, 0.13, snap.Holdings[0].InvestedValue)
	assert.Equal(t, 0.38, snap.Totals.InvestedValue)
}

func TestBuild_ShortPosition(t *testing.T) {
	api := &fakeAPI{
		holdings: []kite.Holding{
			{TradingSymbol: "SHRT", Exchange: "NSE", Quantity: -5, AveragePrice: 100, InstrumentToken: 111},
		},
		quotes: map[string]kite.Quote{
			"111": quote(111, 90, 95),
		},
	}

	agg := NewAggregator(zerolog.Nop())
	snap, err := agg.Build(context.Background(), api)
	require.NoError(t, err)
	require.Len(t, snap.Holdings, 1)

	pos := snap.Holdings[0]
	assert.Equal(t, -500.00, pos.InvestedValue)
	assert.Equal(t, -450.00, pos.CurrentValue)
	assert.Equal(t, 50.00, pos.NetPnLAbs)
	assert.Equal(t, 25.00, pos.TodaysPnLAbs)
}

func TestBuild_EmptyHoldings(t *testing.T) {
	api := &fakeAPI{holdings: nil}

	agg := NewAggregator(zerolog.Nop())
	snap, err := agg.Build(context.Background(), api)
	require.NoError(t, err)

	assert.NotNil(t, snap.Holdings)
	assert.Empty(t, snap.Holdings)
	assert.Empty(t, snap.Quotes)
	assert.Equal(t, Totals{}, snap.Totals)
	assert.True(t, snap.BuildMetrics.EmptyHoldings)
	assert.True(t, snap.BuildMetrics.HoldingsFetched)
	assert.Zero(t, api.quoteCalls, "no quote call should be made for an empty portfolio")
}

func TestBuild_SingleBatchedQuoteCall(t *testing.T) {
	api := &fakeAPI{
		holdings: []kite.Holding{
			{TradingSymbol: "A", Quantity: 1, AveragePrice: 1, InstrumentToken: 111},
			{TradingSymbol: "B", Quantity: 1, AveragePrice: 1, InstrumentToken: 222},
			{TradingSymbol: "C", Quantity: 1, AveragePrice: 1, InstrumentToken: 333},
		},
		quotes: map[string]kite.Quote{
			"111": quote(111, 1, 1),
			"222": quote(222, 1, 1),
			"333": quote(333, 1, 1),
		},
	}

	agg := NewAggregator(zerolog.Nop())
	_, err := agg.Build(context.Background(), api)
	require.NoError(t, err)

	assert.Equal(t, 1, api.quoteCalls)
	assert.Equal(t, []string{"111", "222", "333"}, api.lastInstruments)
}

func TestBuild_HoldingsFetchError(t *testing.T) {
	api := &fakeAPI{holdingsErr: errors.New("connection reset")}

	agg := NewAggregator(zerolog.Nop())
	_, err := agg.Build(context.Background(), api)
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, StageHoldings, fetchErr.Stage)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestBuild_QuotesFetchError(t *testing.T) {
	api := &fakeAPI{
		holdings:  []kite.Holding{{TradingSymbol: "A", Quantity: 1, AveragePrice: 1, InstrumentToken: 111}},
		quotesErr: errors.New("timeout"),
	}

	agg := NewAggregator(zerolog.Nop())
	_, err := agg.Build(context.Background(), api)
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, StageQuotes, fetchErr.Stage)
}
