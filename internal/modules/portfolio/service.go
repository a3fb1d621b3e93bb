package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/anandsharma/kite-bridge/internal/clients/kite"
	"github.com/anandsharma/kite-bridge/internal/modules/session"
)

// SessionProvider yields an authenticated upstream client or a sentinel
// error when none is available.
type SessionProvider interface {
	Acquire() (*kite.Client, error)
}

// SnapshotStore persists at most one snapshot. Load returns an error when
// no usable snapshot exists; the reason (missing vs corrupt) is the
// store's concern, not ours.
type SnapshotStore interface {
	Save(snap *Snapshot) error
	Load() (*Snapshot, error)
}

// Service orchestrates session provider, aggregator and snapshot store
// per request, according to the requested mode.
type Service struct {
	sessions SessionProvider
	agg      *Aggregator
	store    SnapshotStore
	log      zerolog.Logger
}

// NewService creates the portfolio endpoint service
func NewService(sessions SessionProvider, store SnapshotStore, log zerolog.Logger) *Service {
	return &Service{
		sessions: sessions,
		agg:      NewAggregator(log),
		store:    store,
		log:      log.With().Str("service", "portfolio").Logger(),
	}
}

// Get returns a portfolio snapshot using the strategy the mode allows.
// Failures after every allowed path is exhausted come back as
// *UnavailableError.
func (s *Service) Get(ctx context.Context, mode Mode) (*Snapshot, error) {
	switch mode {
	case ModeLive:
		snap, err := s.buildLive(ctx)
		if err != nil {
			return nil, &UnavailableError{Reason: liveFailureReason(err)}
		}
		snap.Source = SourceLive
		snap.ModeUsed = ModeUsedLive
		return snap, nil

	case ModeCache:
		snap, err := s.store.Load()
		if err != nil {
			return nil, &UnavailableError{Reason: "no cached snapshot available"}
		}
		snap.Source = SourceEOD
		snap.ModeUsed = ModeUsedCache
		return snap, nil

	case ModeAuto:
		snap, liveErr := s.buildLive(ctx)
		if liveErr == nil {
			snap.Source = SourceLive
			snap.ModeUsed = ModeUsedAutoLive
			return snap, nil
		}

		reason := liveFailureReason(liveErr)
		s.log.Warn().Str("reason", reason).Msg("Live path failed, falling back to cached snapshot")

		snap, cacheErr := s.store.Load()
		if cacheErr != nil {
			return nil, &UnavailableError{
				Reason: fmt.Sprintf("%s; no cached snapshot available", reason),
			}
		}
		snap.Source = SourceEOD
		snap.ModeUsed = ModeUsedAutoFallback
		snap.LiveError = reason
		return snap, nil
	}

	return nil, fmt.Errorf("unknown mode %q", mode)
}

// Save builds a fresh live snapshot and persists it. Meant to be hit once
// per trading day after close, by cron or an external scheduler. There is
// deliberately no cache fallback here.
func (s *Service) Save(ctx context.Context) (*SaveReceipt, error) {
	client, err := s.sessions.Acquire()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	snap, err := s.agg.Build(ctx, client)
	if err != nil {
		return nil, err
	}
	snap.Source = SourceLive

	if err := s.store.Save(snap); err != nil {
		return nil, fmt.Errorf("failed to persist snapshot: %w", err)
	}

	receipt := &SaveReceipt{
		SnapshotID:   uuid.NewString(),
		TimestampUTC: time.Now().UTC().Format(time.RFC3339),
		Positions:    len(snap.Holdings),
	}

	s.log.Info().
		Str("snapshot_id", receipt.SnapshotID).
		Int("positions", receipt.Positions).
		Msg("Daily snapshot saved")

	return receipt, nil
}

// buildLive runs the full live path: acquire a session, then aggregate
func (s *Service) buildLive(ctx context.Context) (*Snapshot, error) {
	client, err := s.sessions.Acquire()
	if err != nil {
		return nil, err
	}
	return s.agg.Build(ctx, client)
}

// liveFailureReason renders a live-path failure for operators. Auth
// problems are named as such so a 503 is never mistaken for an upstream
// outage.
func liveFailureReason(err error) string {
	if errors.Is(err, session.ErrUnavailable) {
		return "authentication failed: no valid upstream session, log in via /auth/login"
	}
	if kite.IsTokenError(err) {
		return "authentication failed: access token expired or revoked, log in via /auth/login"
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Error()
	}
	return err.Error()
}
