// Package collector orchestrates collection runs: one authenticated hub
// session per run, reference registry pulls, the per-device snapshot build,
// and the snapshot/ledger writes at the end.
package collector

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"zha_status/core-go/internal/haws"
	"zha_status/core-go/internal/history"
	"zha_status/core-go/internal/metrics"
	"zha_status/core-go/internal/snapshot"
)

// Session is the slice of a hub session the collector needs.
// *haws.Session satisfies this.
type Session interface {
	Call(ctx context.Context, msgType string, fields map[string]any) (*haws.Envelope, error)
	Close() error
}

// DialFunc opens a new authenticated session. Called once per run.
type DialFunc func(ctx context.Context) (Session, error)

// History is the optional run-history sink. *history.Store satisfies this.
type History interface {
	RecordRun(ctx context.Context, run history.RunRecord, devices []snapshot.DeviceSnapshot) error
}

type Worker struct {
	log              zerolog.Logger
	dial             DialFunc
	hist             History
	metrics          *metrics.Metrics
	interval         time.Duration
	maxRuntime       time.Duration
	deviceDelay      time.Duration
	offlineThreshold time.Duration
	snapshotPath     string
	ledgerPath       string
	neighborsEnabled bool
	trigger          chan struct{}
}

type Options struct {
	// Interval between scheduled runs.
	Interval time.Duration
	// MaxRuntime bounds a single run end to end.
	MaxRuntime time.Duration
	// DeviceDelay is the fixed pacing pause between devices, bounding the
	// request rate against the hub.
	DeviceDelay time.Duration
	// OfflineThreshold is the last_seen staleness window.
	OfflineThreshold time.Duration
	SnapshotPath     string
	LedgerPath       string
	NeighborsEnabled bool
}

func New(log zerolog.Logger, dial DialFunc, opts Options, m *metrics.Metrics, hist History) *Worker {
	interval := opts.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	maxRuntime := opts.MaxRuntime
	if maxRuntime <= 0 {
		maxRuntime = 10 * time.Minute
	}
	deviceDelay := opts.DeviceDelay
	if deviceDelay < 0 {
		deviceDelay = 0
	}
	threshold := opts.OfflineThreshold
	if threshold <= 0 {
		threshold = 60 * time.Minute
	}
	snapshotPath := opts.SnapshotPath
	if snapshotPath == "" {
		snapshotPath = "data/zha_data.json"
	}
	ledgerPath := opts.LedgerPath
	if ledgerPath == "" {
		ledgerPath = "data/zha_ledger.json"
	}

	return &Worker{
		log:              log,
		dial:             dial,
		hist:             hist,
		metrics:          m,
		interval:         interval,
		maxRuntime:       maxRuntime,
		deviceDelay:      deviceDelay,
		offlineThreshold: threshold,
		snapshotPath:     snapshotPath,
		ledgerPath:       ledgerPath,
		neighborsEnabled: opts.NeighborsEnabled,
		trigger:          make(chan struct{}, 1),
	}
}

// Run executes collection runs on the configured interval until ctx is done.
// The first run starts immediately. Failed runs back off exponentially; a
// trigger via TriggerCollect starts the next run without waiting.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.dial == nil {
		return
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	var consecutiveFailures int
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-w.trigger:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		if err := w.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			consecutiveFailures++
			w.log.Error().Err(err).
				Int("consecutive_failures", consecutiveFailures).
				Msg("collection run failed")
		} else {
			consecutiveFailures = 0
		}

		timer.Reset(backoffDuration(w.interval, consecutiveFailures))
	}
}

// TriggerCollect requests an immediate run. Returns false when a trigger is
// already pending.
func (w *Worker) TriggerCollect() bool {
	if w == nil {
		return false
	}
	select {
	case w.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func backoffDuration(base time.Duration, failures int) time.Duration {
	if base <= 0 {
		base = 15 * time.Minute
	}
	if failures <= 0 {
		return base
	}

	// Exponential-ish backoff: base * 2^failures, capped.
	if failures > 6 {
		failures = 6
	}
	d := base * time.Duration(1<<failures)
	if d > time.Hour {
		return time.Hour
	}
	return d
}

// RunOnce performs one complete collection run. A run either finishes and
// writes both output files, or fails and leaves them untouched.
func (w *Worker) RunOnce(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, w.maxRuntime)
	defer cancel()

	start := time.Now()
	err := w.collect(runCtx, start)
	w.metrics.ObserveCollectorRunDuration(time.Since(start))
	if err != nil {
		w.metrics.IncCollectorRun("failed")
		return err
	}
	w.metrics.IncCollectorRun("succeeded")
	return nil
}
