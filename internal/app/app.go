package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"newsdb/internal/expire"
	"newsdb/internal/refresh"
	"newsdb/pkg/api/handlers"
	"newsdb/pkg/config"
	"newsdb/pkg/ingest"
	"newsdb/pkg/logger"
	"newsdb/pkg/models"
	"newsdb/pkg/store"
)

// App wires the store, the ingest pipeline, the background jobs and the
// HTTP server together.
type App struct {
	cfg       *config.Config
	rc        *config.RuntimeConfig
	cfgSource string
	version   string
	commit    string
	buildDate string

	queue   *ingest.Queue
	fetcher *ingest.Fetcher
	srv     *http.Server
}

// New initializes everything that needs no running context: runtime keys,
// the pebble store, the ingest queue and the upstream fetcher. It does not
// start workers or the HTTP server; call Run for that.
func New(cfg *config.Config, rc *config.RuntimeConfig, cfgSource, version, commit, buildDate string) (*App, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	config.SetRuntime(rc)

	if err := store.Open(cfg.Server.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", cfg.Server.DBPath, err)
	}

	q := ingest.NewQueue(cfg.Ingest.Queue.Capacity)
	ingest.SetDefaultQueue(q)
	ingest.SetMaxPooledBuffer(cfg.Ingest.Queue.MaxPooledBufferBytes.Int64())

	a := &App{
		cfg:       cfg,
		rc:        rc,
		cfgSource: cfgSource,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		queue:     q,
	}

	if cfg.Upstream.Address != "" {
		a.fetcher = ingest.NewFetcher(
			nntpDialer(cfg),
			int64(cfg.Refresh.Chunk),
			int64(cfg.Refresh.MaxFetch),
			cfg.Refresh.RateRPS,
			cfg.Refresh.RateBurst,
		)
		handlers.SetProber(a.fetcher)
	} else {
		logger.Warn("no_upstream_configured", "detail", "serving cached data only; subscribe and sync are disabled")
	}
	handlers.SetMaxThreadArticles(cfg.Threads.MaxArticles)

	if err := seedGroups(cfg.Groups); err != nil {
		return nil, err
	}
	return a, nil
}

// seedGroups subscribes the groups named in config so a fresh deployment
// starts pulling without an API call. Existing records are left alone.
func seedGroups(names []string) error {
	for _, name := range names {
		if _, err := store.GetGroup(name); err == nil {
			continue
		}
		if err := store.SaveGroup(models.Group{Name: name, Subscribed: true}); err != nil {
			return fmt.Errorf("failed to seed group %s: %w", name, err)
		}
		logger.Info("group_seeded", "group", name)
	}
	return nil
}

// Run starts the ingest workers, the cron jobs and the HTTP server, and
// blocks until ctx is canceled or the server fails.
func (a *App) Run(ctx context.Context) error {
	bg, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.fetcher != nil {
		ingest.RunWorkers(bg, a.queue, a.fetcher, a.cfg.Ingest.Queue.Workers)
		if _, err := refresh.Start(bg, a.cfg, a.queue); err != nil {
			return err
		}
	}
	if _, err := expire.Start(bg, a.cfg); err != nil {
		return err
	}
	ingest.StartMonitor(bg, a.queue, 5*time.Second)

	a.printBanner()

	errCh := a.startHTTP()

	select {
	case <-ctx.Done():
		a.shutdown(cancel)
		return nil
	case err := <-errCh:
		a.shutdown(cancel)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// shutdown stops accepting requests, then the background jobs, then drains
// queued work and closes the store. Producers that race the drain get
// ErrQueueClosed rather than a panic.
func (a *App) shutdown(cancel context.CancelFunc) {
	if a.srv != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.srv.Shutdown(sctx)
		scancel()
	}
	cancel()
	a.queue.CloseAndDrain()
	if err := store.Close(); err != nil {
		logger.Error("store_close_failed", "error", err.Error())
	}
	logger.Info("shutdown_complete")
}
