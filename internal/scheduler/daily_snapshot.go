package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/anandsharma/kite-bridge/internal/modules/portfolio"
)

// DailySnapshot persists the end-of-day portfolio snapshot. It shares the
// save path with GET /api/save_daily_data, so operators can use either
// the in-process cron or an external scheduler.
type DailySnapshot struct {
	svc *portfolio.Service
	log zerolog.Logger
}

// NewDailySnapshot creates the daily snapshot job
func NewDailySnapshot(svc *portfolio.Service, log zerolog.Logger) *DailySnapshot {
	return &DailySnapshot{
		svc: svc,
		log: log.With().Str("job", "daily_snapshot").Logger(),
	}
}

// Name implements Job
func (j *DailySnapshot) Name() string {
	return "daily_snapshot"
}

// Run implements Job
func (j *DailySnapshot) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	receipt, err := j.svc.Save(ctx)
	if err != nil {
		return err
	}

	j.log.Info().
		Str("snapshot_id", receipt.SnapshotID).
		Str("timestamp_utc", receipt.TimestampUTC).
		Int("positions", receipt.Positions).
		Msg("End-of-day snapshot persisted")

	return nil
}
