package kite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"
)

const (
	baseURL     = "https://api.kite.trade"
	loginURL    = "https://kite.zerodha.com/connect/login"
	kiteVersion = "3"

	// Upstream calls are synchronous and otherwise unbounded; every
	// request carries this timeout so a hung call cannot pin a worker.
	requestTimeout = 15 * time.Second
)

// Error is an error reported by the Kite API itself (non-2xx response
// with the standard error envelope).
type Error struct {
	Code    int
	Type    string
	Message string
}

func (e *Error) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("kite: %s (%s)", e.Message, e.Type)
	}
	return fmt.Sprintf("kite: %s", e.Message)
}

// IsTokenError reports whether err is an expired/invalid access token
// response from the upstream API.
func IsTokenError(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Type == "TokenException" || apiErr.Code == 403
}

// Client is a Kite Connect v3 REST client
type Client struct {
	apiKey      string
	accessToken string
	c           *resty.Client
	log         zerolog.Logger
}

// envelope is the standard {status, data} wrapper on every Kite response
type envelope struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	ErrorType string          `json:"error_type"`
}

// NewClient creates a new Kite Connect client bound to an application key
func NewClient(apiKey string, log zerolog.Logger) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetHeader("X-Kite-Version", kiteVersion)

	return &Client{
		apiKey: apiKey,
		c:      c,
		log:    log.With().Str("client", "kite").Logger(),
	}
}

// SetBaseURL overrides the upstream API address. Used by tests.
func (c *Client) SetBaseURL(u string) {
	c.c.SetBaseURL(u)
}

// SetAccessToken binds an access token to all subsequent requests
func (c *Client) SetAccessToken(token string) {
	c.accessToken = token
	c.c.SetHeader("Authorization", "token "+c.apiKey+":"+token)
}

// LoginURL returns the Kite Connect OAuth login URL for this application.
// No network call is involved.
func (c *Client) LoginURL() string {
	return loginURL + "?v=" + kiteVersion + "&api_key=" + url.QueryEscape(c.apiKey)
}

// GenerateSession exchanges a request token from the OAuth callback for an
// access token. The checksum is SHA-256 over apiKey+requestToken+apiSecret.
func (c *Client) GenerateSession(ctx context.Context, requestToken, apiSecret string) (*UserSession, error) {
	sum := sha256.Sum256([]byte(c.apiKey + requestToken + apiSecret))

	req := c.c.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"api_key":       c.apiKey,
			"request_token": requestToken,
			"checksum":      hex.EncodeToString(sum[:]),
		}).
		SetResult(&envelope{}).
		SetError(&envelope{})

	resp, err := req.Post("/session/token")
	if err != nil {
		return nil, fmt.Errorf("session token request failed: %w", err)
	}
	defer resp.Body.Close()

	var session UserSession
	if err := c.decode(resp, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Profile fetches the authenticated user's profile. Cheapest call that
// verifies an access token is still valid.
func (c *Client) Profile(ctx context.Context) (*UserProfile, error) {
	var profile UserProfile
	if err := c.get(ctx, "/user/profile", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Holdings fetches the account's long-term holdings
func (c *Client) Holdings(ctx context.Context) ([]Holding, error) {
	var holdings []Holding
	if err := c.get(ctx, "/portfolio/holdings", nil, &holdings); err != nil {
		return nil, err
	}
	return holdings, nil
}

// Positions fetches the account's day and net positions
func (c *Client) Positions(ctx context.Context) (*Positions, error) {
	var positions Positions
	if err := c.get(ctx, "/portfolio/positions", nil, &positions); err != nil {
		return nil, err
	}
	return &positions, nil
}

// Quote fetches full quotes for a batch of instruments in a single call.
// Instruments may be "EXCHANGE:TRADINGSYMBOL" pairs or bare instrument
// tokens; the response map is keyed by whatever was requested.
func (c *Client) Quote(ctx context.Context, instruments ...string) (map[string]Quote, error) {
	if len(instruments) == 0 {
		return map[string]Quote{}, nil
	}

	quotes := make(map[string]Quote)
	if err := c.get(ctx, "/quote", url.Values{"i": instruments}, &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

// Historical fetches OHLCV candles for one instrument and interval
func (c *Client) Historical(ctx context.Context, instrumentToken int, interval string, from, to time.Time) ([]Candle, error) {
	path := fmt.Sprintf("/instruments/historical/%d/%s", instrumentToken, interval)
	query := url.Values{
		"from": []string{from.Format("2006-01-02 15:04:05")},
		"to":   []string{to.Format("2006-01-02 15:04:05")},
	}

	var data struct {
		Candles []Candle `json:"candles"`
	}
	if err := c.get(ctx, path, query, &data); err != nil {
		return nil, err
	}
	return data.Candles, nil
}

// get performs a GET request and decodes the envelope's data into out
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	req := c.c.R().
		SetContext(ctx).
		SetResult(&envelope{}).
		SetError(&envelope{})

	if query != nil {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("kite request failed: %w", err)
	}
	defer resp.Body.Close()

	return c.decode(resp, out)
}

// decode maps an upstream response onto out, converting error envelopes
// into *Error values
func (c *Client) decode(resp *resty.Response, out interface{}) error {
	if resp.IsError() {
		if env, ok := resp.Error().(*envelope); ok && env.Message != "" {
			c.log.Debug().
				Int("status", resp.StatusCode()).
				Str("error_type", env.ErrorType).
				Msg("Upstream API error")
			return &Error{Code: resp.StatusCode(), Type: env.ErrorType, Message: env.Message}
		}
		return &Error{Code: resp.StatusCode(), Message: resp.Status()}
	}

	env, ok := resp.Result().(*envelope)
	if !ok || env == nil {
		return fmt.Errorf("kite: unexpected response shape")
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("kite: failed to parse response data: %w", err)
	}
	return nil
}

// TokenKey renders an instrument token the way the quote API keys its
// response map when queried by token.
func TokenKey(instrumentToken int) string {
	return strconv.Itoa(instrumentToken)
}
