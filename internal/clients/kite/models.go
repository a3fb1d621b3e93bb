package kite

import (
	"encoding/json"
	"fmt"
)

// Holding is a single holding record from /portfolio/holdings.
// Quantity can be zero or negative (short delivery positions).
type Holding struct {
	TradingSymbol   string  `json:"tradingsymbol"`
	Exchange        string  `json:"exchange"`
	InstrumentToken int     `json:"instrument_token"`
	ISIN            string  `json:"isin"`
	Product         string  `json:"product"`
	Quantity        int     `json:"quantity"`
	T1Quantity      int     `json:"t1_quantity"`
	AveragePrice    float64 `json:"average_price"`
	LastPrice       float64 `json:"last_price"`
	ClosePrice      float64 `json:"close_price"`
	PnL             float64 `json:"pnl"`
}

// OHLC is the open/high/low/close reference block of a quote.
// Close is the prior trading day's close.
type OHLC struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Quote is a full market quote from /quote, keyed upstream by the
// instrument string it was requested with.
type Quote struct {
	InstrumentToken int     `json:"instrument_token"`
	LastPrice       float64 `json:"last_price"`
	Volume          int64   `json:"volume"`
	OHLC            OHLC    `json:"ohlc"`
}

// Position is a single entry from /portfolio/positions.
type Position struct {
	TradingSymbol   string  `json:"tradingsymbol"`
	Exchange        string  `json:"exchange"`
	InstrumentToken int     `json:"instrument_token"`
	Product         string  `json:"product"`
	Quantity        int     `json:"quantity"`
	AveragePrice    float64 `json:"average_price"`
	LastPrice       float64 `json:"last_price"`
	ClosePrice      float64 `json:"close_price"`
	PnL             float64 `json:"pnl"`
	M2M             float64 `json:"m2m"`
}

// Positions is the day/net split returned by /portfolio/positions.
type Positions struct {
	Net []Position `json:"net"`
	Day []Position `json:"day"`
}

// UserSession is the result of a request-token exchange.
type UserSession struct {
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
	PublicToken string `json:"public_token"`
	LoginTime   string `json:"login_time"`
}

// UserProfile is the lightweight identity record from /user/profile.
type UserProfile struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Broker   string `json:"broker"`
}

// Candle is one historical OHLCV bar. The upstream API serves candles as
// positional JSON arrays: [timestamp, open, high, low, close, volume].
type Candle struct {
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// UnmarshalJSON decodes the positional candle array.
func (c *Candle) UnmarshalJSON(b []byte) error {
	var row []interface{}
	if err := json.Unmarshal(b, &row); err != nil {
		return err
	}
	if len(row) < 6 {
		return fmt.Errorf("candle: expected 6 fields, got %d", len(row))
	}

	ts, ok := row[0].(string)
	if !ok {
		return fmt.Errorf("candle: timestamp is not a string")
	}

	c.Timestamp = ts
	c.Open = asFloat(row[1])
	c.High = asFloat(row[2])
	c.Low = asFloat(row[3])
	c.Close = asFloat(row[4])
	c.Volume = int64(asFloat(row[5]))
	return nil
}

func asFloat(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}
