package stores

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultRetentionSchedule runs the trace pruner hourly.
const DefaultRetentionSchedule = "@hourly"

// Retention prunes request traces older than MaxAge on a cron schedule.
type Retention struct {
	Store    TraceStore
	MaxAge   time.Duration
	Schedule string
	Logger   *log.Logger

	now func() time.Time
}

// RunOnce prunes once and returns the number of deleted traces.
func (r *Retention) RunOnce(ctx context.Context) (int64, error) {
	if r.MaxAge <= 0 {
		return 0, nil
	}
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	return r.Store.PruneTraces(ctx, now().Add(-r.MaxAge))
}

// Register adds the pruner to c. The caller starts and stops c.
func (r *Retention) Register(c *cron.Cron) (cron.EntryID, error) {
	schedule := r.Schedule
	if schedule == "" {
		schedule = DefaultRetentionSchedule
	}
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}
	id, err := c.AddFunc(schedule, func() {
		n, err := r.RunOnce(context.Background())
		if err != nil {
			logger.Printf("[RETENTION] prune failed: %v", err)
			return
		}
		if n > 0 {
			logger.Printf("[RETENTION] pruned %d traces older than %s", n, r.MaxAge)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	return id, nil
}
