package portfolio

import "fmt"

// Mode is the client-requested data-source strategy
type Mode string

const (
	ModeLive  Mode = "live"
	ModeCache Mode = "cache"
	ModeAuto  Mode = "auto"
)

// ParseMode validates a mode query parameter. Empty defaults to auto.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "":
		return ModeAuto, nil
	case string(ModeLive):
		return ModeLive, nil
	case string(ModeCache):
		return ModeCache, nil
	case string(ModeAuto):
		return ModeAuto, nil
	}
	return "", fmt.Errorf("invalid mode %q, expected live, cache or auto", s)
}

// Data provenance values attached to served snapshots
const (
	SourceLive = "LIVE"
	SourceEOD  = "EOD"
)

// Strategy paths recorded in mode_used
const (
	ModeUsedLive         = "live"
	ModeUsedCache        = "cache"
	ModeUsedAutoLive     = "auto_live"
	ModeUsedAutoFallback = "auto_fallback"
)

// Position is one holding enriched with quote data and derived metrics.
// All monetary fields are rounded to 2 decimal places.
type Position struct {
	Symbol        string  `json:"symbol"`
	Exchange      string  `json:"exchange"`
	Quantity      int     `json:"quantity"`
	AvgPrice      float64 `json:"avg_price"`
	InvestedValue float64 `json:"invested_value"`
	LastPrice     float64 `json:"last_price"`
	CurrentValue  float64 `json:"current_value"`
	NetPnLAbs     float64 `json:"net_pnl_abs"`
	NetPnLPct     float64 `json:"net_pnl_pct"`
	TodaysPnLAbs  float64 `json:"todays_pnl_abs"`
	TodaysPnLPct  float64 `json:"todays_pnl_pct"`
}

// Totals aggregates the portfolio. Percentages are computed from the
// summed unrounded values, not averaged across positions.
type Totals struct {
	InvestedValue float64 `json:"invested_value"`
	CurrentValue  float64 `json:"current_value"`
	NetPnLAbs     float64 `json:"net_pnl_abs"`
	NetPnLPct     float64 `json:"net_pnl_pct"`
	TodaysPnLAbs  float64 `json:"todays_pnl_abs"`
	TodaysPnLPct  float64 `json:"todays_pnl_pct"`
}

// QuoteRef is the per-instrument slice of the quotes index
type QuoteRef struct {
	PriorClose float64 `json:"prior_close"`
	LastPrice  float64 `json:"last_price"`
}

// BuildMetrics records how an aggregation run went
type BuildMetrics struct {
	DurationMs      int64  `json:"duration_ms"`
	HoldingsFetched bool   `json:"holdings_fetched"`
	QuotesFetched   bool   `json:"quotes_fetched"`
	EmptyHoldings   bool   `json:"empty_holdings"`
	CompletedAtUTC  string `json:"completed_at_utc"`
}

// Snapshot is the full computed portfolio state. The same shape is served
// over HTTP and persisted to disk; Source, ModeUsed and LiveError are
// response-time annotations.
type Snapshot struct {
	Holdings     []Position          `json:"holdings"`
	Totals       Totals              `json:"totals"`
	Quotes       map[string]QuoteRef `json:"quotes"`
	BuildMetrics BuildMetrics        `json:"build_metrics"`
	Source       string              `json:"source,omitempty"`
	ModeUsed     string              `json:"mode_used,omitempty"`
	LiveError    string              `json:"live_error,omitempty"`
}

// SaveReceipt confirms a persisted end-of-day snapshot
type SaveReceipt struct {
	SnapshotID   string `json:"snapshot_id"`
	TimestampUTC string `json:"timestamp_utc"`
	Positions    int    `json:"positions"`
}
