// Package refresh enqueues periodic group syncs so the cache tracks the
// upstream without reader traffic driving fetches.
package refresh

import (
	"context"
	"encoding/json"

	"newsdb/internal/schedule"
	"newsdb/pkg/config"
	"newsdb/pkg/ingest"
	"newsdb/pkg/logger"
	"newsdb/pkg/models"
	"newsdb/pkg/store"
	"newsdb/pkg/utils"
)

// Start launches the refresh scheduler if enabled. Returns a no-op
// cancel when disabled.
func Start(ctx context.Context, cfg *config.Config, q *ingest.Queue) (context.CancelFunc, error) {
	if !cfg.Refresh.Enabled {
		logger.Info("refresh_disabled")
		return func() {}, nil
	}
	expr := cfg.Refresh.Cron
	if expr == "" {
		expr = "*/15 * * * *"
	}
	return schedule.Start(ctx, "refresh", expr, func(ctx context.Context) error {
		return RunOnce(ctx, q)
	})
}

// RunOnce enqueues one sync per subscribed group. Groups that do not fit
// in the queue are skipped until the next tick.
func RunOnce(ctx context.Context, q *ingest.Queue) error {
	rows, err := store.ListGroups()
	if err != nil {
		return err
	}
	id := utils.GenSyncID()
	enqueued := 0
	for _, row := range rows {
		var g models.Group
		if json.Unmarshal([]byte(row), &g) != nil || g.Name == "" {
			continue
		}
		if !g.Subscribed {
			continue
		}
		if err := q.EnqueueSync(g.Name, id); err != nil {
			logger.Warn("refresh_enqueue_failed", "group", g.Name, "sync_id", id, "error", err)
			continue
		}
		enqueued++
	}
	logger.Info("refresh_tick", "sync_id", id, "groups", enqueued)
	return nil
}
