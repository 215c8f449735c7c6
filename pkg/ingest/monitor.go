package ingest

import (
	"context"
	"time"

	"newsdb/pkg/logger"
	"newsdb/pkg/telemetry"
)

// StartMonitor samples queue depth on a fixed interval, exports it to the
// metrics registry and warns when the queue runs close to capacity or
// starts dropping ops.
func StartMonitor(ctx context.Context, q *Queue, every time.Duration) {
	if every <= 0 {
		every = 5 * time.Second
	}
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		var lastDropped uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				depth := q.Len()
				telemetry.RecordQueueDepth(depth)
				if q.Cap() > 0 && depth*10 >= q.Cap()*9 {
					logger.Warn("ingest_queue_near_capacity", "depth", depth, "capacity", q.Cap())
				}
				if d := q.Dropped(); d != lastDropped {
					logger.Warn("ingest_ops_dropped", "total", d, "new", d-lastDropped)
					lastDropped = d
				}
			}
		}
	}()
}
