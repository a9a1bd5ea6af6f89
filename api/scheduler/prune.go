package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPruneSchedule runs hourly at minute 17.
const DefaultPruneSchedule = "17 * * * *"

// EventPruner deletes processed webhook event ids recorded before a cutoff.
type EventPruner interface {
	PruneProcessedEvents(ctx context.Context, before time.Time) (int64, error)
}

// PruneJob removes processed-event records older than the retention window.
type PruneJob struct {
	Store     EventPruner
	Retention time.Duration
	Timeout   time.Duration
	Now       func() time.Time
}

func (j PruneJob) Run() {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cutoff := now().Add(-j.Retention)
	n, err := j.Store.PruneProcessedEvents(ctx, cutoff)
	if err != nil {
		slog.Error("pruning processed events failed", "cutoff", cutoff, "err", err)
		return
	}
	if n > 0 {
		slog.Info("pruned processed events", "count", n, "cutoff", cutoff)
	}
}

// Start schedules job and starts the cron runner. Stop the returned
// runner on shutdown.
func Start(schedule string, job PruneJob) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddJob(schedule, job); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
