package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"newsdb/pkg/logger"
	"newsdb/pkg/models"
	"newsdb/pkg/nntp"
	"newsdb/pkg/store"
	"newsdb/pkg/telemetry"
)

// Upstream is the slice of the NNTP client the fetcher needs. nntp.Client
// implements it.
type Upstream interface {
	Group(ctx context.Context, name string) (models.Group, error)
	Over(ctx context.Context, low, high int64) ([]models.Article, error)
	Post(ctx context.Context, r io.Reader) error
}

// Dialer opens a fresh upstream session.
type Dialer func() (Upstream, error)

// Fetcher pulls overview data from the upstream into the store and
// forwards outbound articles. The NNTP session is stateful (OVER acts on
// the last selected group), so one op sequence runs at a time.
type Fetcher struct {
	dial     Dialer
	limiter  *rate.Limiter
	chunk    int64
	maxFetch int64

	// sess guards conn and serializes upstream command sequences
	sess sync.Mutex
	conn Upstream
}

// NewFetcher builds a Fetcher. chunk is the OVER window size, maxFetch
// caps how far behind a sync will reach (0 = unlimited), rps and burst
// shape the upstream command rate.
func NewFetcher(dial Dialer, chunk, maxFetch int64, rps float64, burst int) *Fetcher {
	if chunk <= 0 {
		chunk = 200
	}
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 4
	}
	return &Fetcher{
		dial:     dial,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		chunk:    chunk,
		maxFetch: maxFetch,
	}
}

// connect returns the cached session, dialing when necessary. Callers
// hold f.sess.
func (f *Fetcher) connect() (Upstream, error) {
	if f.conn != nil {
		return f.conn, nil
	}
	u, err := f.dial()
	if err != nil {
		telemetry.RecordDial("error")
		return nil, err
	}
	telemetry.RecordDial("success")
	f.conn = u
	return u, nil
}

// dropConn discards the session after a transport fault so the next op
// redials. Callers hold f.sess.
func (f *Fetcher) dropConn() {
	if c, ok := f.conn.(io.Closer); ok && c != nil {
		_ = c.Close()
	}
	f.conn = nil
}

// protocolErr reports whether the upstream answered with a clean NNTP
// status. Anything else left the connection in an unknown state.
func protocolErr(err error) bool {
	return errors.Is(err, nntp.ErrNoSuchGroup) ||
		errors.Is(err, nntp.ErrNoGroupSelected) ||
		errors.Is(err, nntp.ErrNoSuchArticle) ||
		errors.Is(err, nntp.ErrAuthRequired) ||
		errors.Is(err, nntp.ErrAuthRejected) ||
		errors.Is(err, nntp.ErrPostingNotAllowed) ||
		errors.Is(err, nntp.ErrPostingFailed) ||
		errors.Is(err, nntp.ErrUnsupported)
}

func (f *Fetcher) fail(err error) error {
	if !protocolErr(err) {
		f.dropConn()
	}
	telemetry.RecordSync("error")
	return err
}

// Probe asks the upstream for a group's watermarks without touching the
// store. Subscribe uses it to reject groups the upstream does not carry.
func (f *Fetcher) Probe(ctx context.Context, name string) (models.Group, error) {
	f.sess.Lock()
	defer f.sess.Unlock()

	u, err := f.connect()
	if err != nil {
		return models.Group{}, err
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return models.Group{}, err
	}
	g, err := u.Group(ctx, name)
	if err != nil {
		if !protocolErr(err) {
			f.dropConn()
		}
		return models.Group{}, err
	}
	return g, nil
}

// SyncGroup pulls overview rows the cache is missing for one group and
// advances its watermarks. It returns how many rows were written and how
// many were skipped for lacking a message-id.
func (f *Fetcher) SyncGroup(ctx context.Context, name string) (added, skipped int, err error) {
	f.sess.Lock()
	defer f.sess.Unlock()
	start := time.Now()

	u, err := f.connect()
	if err != nil {
		telemetry.RecordSync("error")
		return 0, 0, err
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, 0, err
	}
	g, err := u.Group(ctx, name)
	if err != nil {
		return 0, 0, f.fail(err)
	}

	var prev models.Group
	if s, gerr := store.GetGroup(name); gerr == nil {
		_ = json.Unmarshal([]byte(s), &prev)
	}

	from := g.Low
	if prev.SyncedHigh > 0 && prev.SyncedHigh+1 > from {
		from = prev.SyncedHigh + 1
	}
	if f.maxFetch > 0 && g.High-from+1 > f.maxFetch {
		logger.Warn("sync_window_clamped", "group", name, "behind", g.High-from+1, "max_fetch", f.maxFetch)
		from = g.High - f.maxFetch + 1
	}

	for lo := from; lo <= g.High; lo += f.chunk {
		hi := lo + f.chunk - 1
		if hi > g.High {
			hi = g.High
		}
		if err := f.limiter.Wait(ctx); err != nil {
			return added, skipped, err
		}
		arts, err := u.Over(ctx, lo, hi)
		if err != nil {
			return added, skipped, f.fail(err)
		}
		for _, art := range arts {
			if art.MessageID == "" {
				skipped++
				telemetry.RecordRowSkipped(name, "no_message_id")
				continue
			}
			if err := store.SaveArticle(name, art); err != nil {
				telemetry.RecordSync("error")
				return added, skipped, err
			}
			added++
		}
	}
	telemetry.RecordArticlesIngested(name, added)

	next := prev
	next.Name = name
	next.Low, next.High, next.Count = g.Low, g.High, g.Count
	next.Posting = g.Posting
	next.SyncedHigh = g.High
	next.LastSyncTS = time.Now().UTC().UnixNano()
	if err := store.SaveGroup(next); err != nil {
		telemetry.RecordSync("error")
		return added, skipped, err
	}
	telemetry.RecordSync("success")
	logger.Info("group_synced",
		"group", name, "added", added, "skipped", skipped,
		"synced_high", g.High, "elapsed", time.Since(start).String())
	return added, skipped, nil
}

// PostArticle forwards one complete article to the upstream.
func (f *Fetcher) PostArticle(ctx context.Context, payload []byte) error {
	f.sess.Lock()
	defer f.sess.Unlock()

	u, err := f.connect()
	if err != nil {
		return err
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := u.Post(ctx, bytes.NewReader(payload)); err != nil {
		if !protocolErr(err) {
			f.dropConn()
		}
		return err
	}
	return nil
}

// RunWorkers starts n goroutines draining q into f until ctx ends.
func RunWorkers(ctx context.Context, q *Queue, f *Fetcher, n int) {
	if n <= 0 {
		n = 2
	}
	for i := 0; i < n; i++ {
		go q.RunWorker(ctx.Done(), func(op *Op) error {
			switch op.Type {
			case OpSync:
				_, _, err := f.SyncGroup(ctx, op.Group)
				if err != nil {
					logger.Error("sync_failed", "group", op.Group, "sync_id", op.ID, "error", err)
				}
				return err
			case OpPost:
				if err := f.PostArticle(ctx, op.Payload); err != nil {
					logger.Error("post_failed", "id", op.ID, "error", err)
					return err
				}
				logger.Info("article_posted", "id", op.ID, "bytes", len(op.Payload))
				return nil
			}
			logger.Warn("ingest_unknown_op", "type", string(op.Type))
			return nil
		})
	}
}
