package scan

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ostrand/lansweep/internal/errors"
	"github.com/ostrand/lansweep/internal/logging"
	"github.com/ostrand/lansweep/internal/metrics"
)

// Orchestrator owns one scan's lifecycle: it consumes work units, drives
// each through the gate, attempt, and probe stages, updates the shared
// tracker, and assembles the final result set. At most one scan is ever
// Running; Start rejects a second scan instead of superseding the first.
type Orchestrator struct {
	logger  *logging.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	state   State
	scanID  uuid.UUID
	cfg     Config
	cancel  context.CancelFunc
	done    chan struct{}
	tracker tracker
}

// New creates an idle orchestrator. The metrics registry may be nil.
func New(logger *logging.Logger, m *metrics.Metrics) *Orchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		logger:  logger.WithComponent("scanner"),
		metrics: m,
	}
}

// Start validates the configuration and begins an asynchronous scan.
// It fails without mutating shared state when a scan is already
// Running or when the configuration yields no work.
func (o *Orchestrator) Start(cfg Config) (uuid.UUID, error) {
	cfg = cfg.normalized()
	if err := cfg.validate(); err != nil {
		return uuid.Nil, err
	}

	enum := newEnumerator(cfg)
	total := enum.Total()
	if total == 0 {
		return uuid.Nil, errors.ErrEmptyWorkSet()
	}

	o.mu.Lock()
	if o.state == StateRunning {
		o.mu.Unlock()
		return uuid.Nil, errors.ErrAlreadyRunning()
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.state = StateRunning
	o.scanID = uuid.New()
	o.cfg = cfg
	o.cancel = cancel
	o.done = make(chan struct{})
	o.tracker.reset(total)
	scanID := o.scanID
	done := o.done
	o.mu.Unlock()

	log := o.logger.WithScanID(scanID.String())
	log.Info("scan started",
		"targets", len(cfg.Targets),
		"ports", len(cfg.Ports),
		"total", total,
		"concurrency", cfg.Concurrency,
		"timeout", cfg.Timeout)

	if o.metrics != nil {
		o.metrics.ScanStarted()
	}

	go o.run(ctx, cfg, enum, log, done)
	return scanID, nil
}

// Cancel requests cooperative cancellation of the running scan. It is
// idempotent and has no effect while Idle or Done. Units already
// admitted through the gate run to their bounded completion.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateRunning || o.cancel == nil {
		return
	}
	o.cancel()
}

// Status returns a point-in-time progress snapshot. Valid in any
// state; Idle yields a zeroed snapshot.
func (o *Orchestrator) Status() Snapshot {
	o.mu.Lock()
	state := o.state
	o.mu.Unlock()

	total, scanned, open := o.tracker.counters()
	return Snapshot{
		State:   state.String(),
		Total:   total,
		Scanned: scanned,
		Open:    open,
	}
}

// Results returns the current result set. It is partial while Running
// and static once the scan reaches Done.
func (o *Orchestrator) Results() Results {
	o.mu.Lock()
	scanID := o.scanID
	o.mu.Unlock()

	entries := o.tracker.snapshotEntries()
	total, scanned, _ := o.tracker.counters()

	id := ""
	if scanID != uuid.Nil {
		id = scanID.String()
	}
	return Results{
		ScanID:  id,
		Total:   total,
		Scanned: scanned,
		Open:    int64(len(entries)),
		Entries: entries,
	}
}

// Done returns a channel closed when the current scan completes. It
// returns nil when no scan has been started.
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

// run dispatches work units through the gate and waits for all admitted
// units to drain before transitioning to Done.
func (o *Orchestrator) run(ctx context.Context, cfg Config, enum *enumerator, log *logging.Logger, done chan struct{}) {
	start := time.Now()
	gate := semaphore.NewWeighted(int64(cfg.Concurrency))
	var wg sync.WaitGroup

	cancelled := false
dispatch:
	for {
		unit, ok := enum.Next()
		if !ok {
			break
		}

		// Cancellation is checked once per dispatch decision. Units
		// already admitted keep their permit until attempt and probe
		// complete.
		select {
		case <-ctx.Done():
			cancelled = true
			break dispatch
		default:
		}

		if err := gate.Acquire(ctx, 1); err != nil {
			cancelled = true
			break
		}

		wg.Add(1)
		go func(unit WorkUnit) {
			defer wg.Done()
			defer gate.Release(1)
			o.processUnit(unit, cfg)
		}(unit)
	}

	wg.Wait()

	o.mu.Lock()
	o.state = StateDone
	o.cancel = nil
	o.mu.Unlock()
	close(done)

	_, scanned, open := o.tracker.counters()
	if o.metrics != nil {
		o.metrics.ScanFinished(cancelled, time.Since(start))
	}
	log.Info("scan finished",
		"scanned", scanned,
		"open", open,
		"cancelled", cancelled,
		"duration", time.Since(start))
}

// processUnit runs the attempt and probe stages for one work unit and
// records the outcome. Per-unit failures never propagate.
func (o *Orchestrator) processUnit(unit WorkUnit, cfg Config) {
	outcome, conn := attempt(unit, cfg.Timeout)

	if outcome.Kind == outcomeError {
		o.logger.WithTarget(unit.Addr.String()).WithError(outcome.Reason).
			Debug("attempt failed", "port", unit.Port)
	}

	if outcome.Kind == outcomeOpen {
		service, banner := "", ""
		if conn != nil {
			strategy := strategyFor(unit.Port, cfg.ProbeRedis)
			service, banner = runProbe(conn, unit, strategy)
			_ = conn.Close()
		}
		o.logger.InfoScan("open port found", unit.Addr.String(),
			"port", unit.Port,
			"service", service,
			"latency_ms", outcome.Latency.Milliseconds())
		o.tracker.recordOpen(Entry{
			Address:   unit.Addr.String(),
			Port:      unit.Port,
			Service:   service,
			LatencyMS: outcome.Latency.Milliseconds(),
			Banner:    banner,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}

	o.tracker.markScanned()
	if o.metrics != nil {
		o.metrics.AttemptResolved(outcomeLabel(outcome.Kind), outcome.Latency)
	}
}

func outcomeLabel(kind outcomeKind) string {
	switch kind {
	case outcomeOpen:
		return "open"
	case outcomeClosed:
		return "closed"
	case outcomeTimedOut:
		return "timeout"
	default:
		return "error"
	}
}
