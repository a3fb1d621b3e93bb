package session

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/anandsharma/kite-bridge/internal/clients/kite"
)

// ErrUnavailable means no usable authenticated session exists right now.
// It is a sentinel, not a fault: callers branch on it with errors.Is.
var ErrUnavailable = errors.New("no valid upstream session")

// Provider produces authenticated Kite clients from the configured
// credential. The token is rotated out-of-band by the operator (via the
// /auth/login flow plus a config update), so a fresh client is built on
// every Acquire rather than cached.
type Provider struct {
	apiKey      string
	accessToken string
	log         zerolog.Logger
}

// New creates a session provider bound to the application identity and
// the current access token. An empty token is valid configuration.
func New(apiKey, accessToken string, log zerolog.Logger) *Provider {
	return &Provider{
		apiKey:      apiKey,
		accessToken: accessToken,
		log:         log.With().Str("component", "session").Logger(),
	}
}

// Acquire returns an authenticated client, or ErrUnavailable when the
// credential is missing or cannot be bound. One attempt, no retry, and
// nothing below this ever escapes as a panic or raw fault.
func (p *Provider) Acquire() (*kite.Client, error) {
	if p.accessToken == "" {
		p.log.Debug().Msg("No access token configured")
		return nil, ErrUnavailable
	}
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrUnavailable)
	}

	c := kite.NewClient(p.apiKey, p.log)
	c.SetAccessToken(p.accessToken)
	return c, nil
}
