package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/anandsharma/kite-bridge/internal/clients/kite"
	"github.com/anandsharma/kite-bridge/internal/modules/portfolio"
)

// handlePortfolio serves the enriched portfolio snapshot.
// ?mode=live|cache|auto selects the data-source strategy; default auto.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	mode, err := portfolio.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.portfolio.Get(r.Context(), mode)
	if err != nil {
		var unavailable *portfolio.UnavailableError
		if errors.As(err, &unavailable) {
			s.writeError(w, http.StatusServiceUnavailable, unavailable.Reason)
			return
		}
		s.log.Error().Err(err).Str("mode", string(mode)).Msg("Portfolio request failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, snap)
}

// handleSaveDailyData persists the end-of-day snapshot. Intended for an
// external scheduler to call once per trading day after market close.
func (s *Server) handleSaveDailyData(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.portfolio.Save(r.Context())
	if err != nil {
		if errors.Is(err, portfolio.ErrUnauthenticated) {
			s.writeError(w, http.StatusUnauthorized, "authentication required: no valid upstream session, log in via /auth/login")
			return
		}
		s.log.Error().Err(err).Msg("Daily snapshot save failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "success",
		"message":       fmt.Sprintf("snapshot with %d positions saved", receipt.Positions),
		"timestamp_utc": receipt.TimestampUTC,
		"snapshot_id":   receipt.SnapshotID,
	})
}

// handlePositions passes through the account's day/net positions
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	client, err := s.sessions.Acquire()
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "authentication failed: no valid upstream session, log in via /auth/login")
		return
	}

	positions, err := client.Positions(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Positions fetch failed")
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, positions)
}

// handleQuote passes through live quotes for explicit instruments,
// requested the way the upstream API takes them:
// /api/quote?i=NSE:RELIANCE&i=BSE:TCS
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	instruments := r.URL.Query()["i"]
	if len(instruments) == 0 {
		s.writeError(w, http.StatusBadRequest, "provide at least one instrument via i=EXCHANGE:SYMBOL")
		return
	}

	client, err := s.sessions.Acquire()
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "authentication failed: no valid upstream session, log in via /auth/login")
		return
	}

	quotes, err := client.Quote(r.Context(), instruments...)
	if err != nil {
		s.log.Error().Err(err).Msg("Quote fetch failed")
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, quotes)
}

var validIntervals = map[string]bool{
	"minute":   true,
	"3minute":  true,
	"5minute":  true,
	"10minute": true,
	"15minute": true,
	"30minute": true,
	"60minute": true,
	"day":      true,
}

// handleOHLC passes through historical candles for one instrument.
// The instrument is given either as ?instrument_token=... or as
// ?symbol=...&exchange=..., in which case the token is resolved through a
// quote lookup.
func (s *Server) handleOHLC(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	interval := q.Get("interval")
	if interval == "" {
		interval = "day"
	}
	if !validIntervals[interval] {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid interval %q", interval))
		return
	}

	to := time.Now()
	var err error
	if v := q.Get("to"); v != "" {
		if to, err = time.Parse("2006-01-02", v); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
			return
		}
	}
	from := to.AddDate(0, 0, -30)
	if v := q.Get("from"); v != "" {
		if from, err = time.Parse("2006-01-02", v); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return
		}
	}
	if from.After(to) {
		s.writeError(w, http.StatusBadRequest, "from date is after to date")
		return
	}

	token := 0
	if v := q.Get("instrument_token"); v != "" {
		if token, err = strconv.Atoi(v); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid instrument_token")
			return
		}
	} else if q.Get("symbol") == "" || q.Get("exchange") == "" {
		s.writeError(w, http.StatusBadRequest, "provide either instrument_token or symbol and exchange")
		return
	}

	client, err := s.sessions.Acquire()
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "authentication failed: no valid upstream session, log in via /auth/login")
		return
	}

	if token == 0 {
		token, err = s.resolveInstrument(r, client, q.Get("exchange"), q.Get("symbol"))
		if err != nil {
			if errors.Is(err, errNoInstrument) {
				s.writeError(w, http.StatusNotFound, err.Error())
			} else {
				s.writeError(w, http.StatusBadGateway, err.Error())
			}
			return
		}
	}

	candles, err := client.Historical(r.Context(), token, interval, from, to)
	if err != nil {
		s.log.Error().Err(err).Int("instrument_token", token).Msg("Historical fetch failed")
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"instrument_token": token,
		"interval":         interval,
		"candles":          candles,
	})
}

// errNoInstrument means the lookup call succeeded but nothing matched
var errNoInstrument = errors.New("no instrument found")

// resolveInstrument looks up an instrument token via a single quote call
// on EXCHANGE:SYMBOL. Cheaper than shipping the full instruments dump.
func (s *Server) resolveInstrument(r *http.Request, client *kite.Client, exchange, symbol string) (int, error) {
	key := exchange + ":" + symbol
	quotes, err := client.Quote(r.Context(), key)
	if err != nil {
		return 0, fmt.Errorf("instrument lookup failed: %w", err)
	}
	quote, ok := quotes[key]
	if !ok {
		return 0, fmt.Errorf("%w for %s", errNoInstrument, key)
	}
	return quote.InstrumentToken, nil
}
