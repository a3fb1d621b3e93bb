package portfolio

import (
	"errors"
	"fmt"
)

// Stage identifies which upstream call failed during aggregation
type Stage string

const (
	StageHoldings Stage = "holdings"
	StageQuotes   Stage = "quotes"
)

// FetchError wraps a failed upstream call with the stage it failed in
type FetchError struct {
	Stage Stage
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("upstream %s fetch failed: %v", e.Stage, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// UnavailableError is terminal: every path the requested mode allows has
// been exhausted. Handlers render it as HTTP 503.
type UnavailableError struct {
	Reason string
}

func (e *UnavailableError) Error() string {
	return "service unavailable: " + e.Reason
}

// ErrUnauthenticated is returned by Save when no live session exists.
// There is no cache fallback for saving; re-persisting stale data would
// defeat the point of the daily snapshot.
var ErrUnauthenticated = errors.New("not authenticated with upstream")
