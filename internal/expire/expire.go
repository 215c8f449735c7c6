// Package expire trims the article cache to the configured retention
// policy: a maximum age, a per-group row cap and a per-group byte
// budget. Expiry only ever removes a prefix of the number range, which
// matches how numbers age out upstream.
package expire

import (
	"context"
	"encoding/json"
	"time"

	"newsdb/internal/schedule"
	"newsdb/pkg/config"
	"newsdb/pkg/logger"
	"newsdb/pkg/models"
	"newsdb/pkg/store"
	"newsdb/pkg/telemetry"
)

// Start launches the retention sweeper if enabled. Returns a no-op
// cancel when disabled.
func Start(ctx context.Context, cfg *config.Config) (context.CancelFunc, error) {
	if !cfg.Retention.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}
	expr := cfg.Retention.Cron
	if expr == "" {
		expr = "0 2 * * *"
	}
	return schedule.Start(ctx, "retention", expr, func(ctx context.Context) error {
		return RunOnce(ctx, cfg)
	})
}

// RunOnce sweeps every group once, applying all configured limits. The
// effective floor is the strictest of the three.
func RunOnce(ctx context.Context, cfg *config.Config) error {
	rows, err := store.ListGroups()
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		var g models.Group
		if json.Unmarshal([]byte(row), &g) != nil || g.Name == "" {
			continue
		}
		if err := sweepGroup(g.Name, cfg.Retention); err != nil {
			logger.Error("retention_sweep_failed", "group", g.Name, "error", err)
		}
	}
	return nil
}

func sweepGroup(group string, rc config.RetentionConfig) error {
	nums, err := store.ListArticleNumbers(group)
	if err != nil {
		return err
	}
	if len(nums) == 0 {
		return nil
	}

	var floor int64

	if maxAge := rc.MaxAge.Duration(); maxAge > 0 {
		f, err := ageFloor(group, time.Now().Add(-maxAge))
		if err != nil {
			return err
		}
		if f > floor {
			floor = f
		}
	}

	if rc.MaxArticles > 0 && len(nums) > rc.MaxArticles {
		// keep the newest MaxArticles rows
		f := nums[len(nums)-rc.MaxArticles]
		if f > floor {
			floor = f
		}
	}

	if budget := rc.MaxBytes.Int64(); budget > 0 {
		f, err := byteFloor(group, budget)
		if err != nil {
			return err
		}
		if f > floor {
			floor = f
		}
	}

	if floor == 0 {
		return nil
	}

	if rc.DryRun {
		doomed := 0
		for _, n := range nums {
			if n < floor {
				doomed++
			}
		}
		logger.Info("retention_dry_run", "group", group, "floor", floor, "would_remove", doomed)
		return nil
	}

	removed, err := store.DeleteArticlesBelow(group, floor)
	if err != nil {
		return err
	}
	telemetry.RecordExpired(group, removed)
	return nil
}

// ageFloor walks the rows in number order and returns the first number
// that is young enough to keep. Rows with unparseable dates stop the
// walk; age alone never removes them.
func ageFloor(group string, cutoff time.Time) (int64, error) {
	rows, err := store.ListArticles(group, 0, 0, 0)
	if err != nil {
		return 0, err
	}
	var floor int64
	for _, row := range rows {
		var a models.Article
		if err := json.Unmarshal([]byte(row), &a); err != nil {
			break
		}
		t := a.Time()
		if t.IsZero() || !t.Before(cutoff) {
			break
		}
		floor = a.Number + 1
	}
	return floor, nil
}

// byteFloor walks the rows newest-first accumulating their sizes and
// returns the number below which the byte budget is exhausted.
func byteFloor(group string, budget int64) (int64, error) {
	rows, err := store.ListArticles(group, 0, 0, 0)
	if err != nil {
		return 0, err
	}
	var used int64
	for i := len(rows) - 1; i >= 0; i-- {
		var a models.Article
		if err := json.Unmarshal([]byte(rows[i]), &a); err != nil {
			continue
		}
		used += a.Bytes
		if used > budget {
			return a.Number + 1, nil
		}
	}
	return 0, nil
}
