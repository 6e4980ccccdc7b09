package scanner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/rfscan-go/internal/errors"
	"github.com/tphakala/rfscan-go/internal/events"
	"github.com/tphakala/rfscan-go/internal/logger"
	"github.com/tphakala/rfscan-go/internal/observability/metrics"
	"github.com/tphakala/rfscan-go/internal/observation"
	"github.com/tphakala/rfscan-go/internal/radio"
	"github.com/tphakala/rfscan-go/internal/rpa"
)

// EventPublisher receives scan lifecycle events. *events.EventBus implements it.
type EventPublisher interface {
	PublishScan(event *events.ScanEvent) bool
}

// Deps are the collaborators of an Orchestrator. Aggregator is required;
// any scanner left nil is treated as unavailable.
type Deps struct {
	Aggregator Aggregator
	Keys       KeyStore
	Wifi       WifiScanner
	BLE        BleScanner
	Classic    ClassicScanner
	Position   PositionSource
	Events     EventPublisher
	Metrics    metrics.ScannerRecorder
	Logger     logger.Logger
}

// Orchestrator is the scan state machine: Idle → Running → Stopping → Idle.
//
// Start and Stop are serialized. While running, one goroutine runs the
// periodic cycle, sub-scanner callbacks run on the scanners' goroutines and
// a worker pool performs every store write. State shared between them is
// held in atomics.
type Orchestrator struct {
	deps Deps
	cfg  Config
	log  logger.Logger

	lifecycle sync.Mutex // serializes Start and Stop
	state     atomic.Int32
	opts      atomic.Pointer[Options]

	position  atomic.Pointer[radio.Position]
	sessionID atomic.Pointer[string]
	startedAt atomic.Pointer[time.Time]

	// counters of the latest run; kept after Stop
	counters atomic.Pointer[runCounters]

	errMu sync.Mutex
	errs  []string

	run *run // owned by the lifecycle lock

	subMu   sync.Mutex
	subs    map[uint64]chan Snapshot
	nextSub uint64
}

// New creates an idle Orchestrator.
func New(deps Deps, cfg Config, opts Options) *Orchestrator {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = GetLogger()
	}
	o := &Orchestrator{
		deps: deps,
		cfg:  cfg.withDefaults(),
		log:  deps.Logger,
		subs: make(map[uint64]chan Snapshot),
	}
	o.opts.Store(&opts)
	return o
}

// GetLogger returns the scanner package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("scanner")
}

// SetOptions replaces the options. Cycles and callbacks pick them up the
// next time they run.
func (o *Orchestrator) SetOptions(opts Options) {
	o.opts.Store(&opts)
}

// Options returns the current options.
func (o *Orchestrator) Options() Options {
	return *o.opts.Load()
}

// State returns the lifecycle state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Start begins a scan run. It is a no-op when a run is already active.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	if o.State() != StateIdle {
		return nil
	}

	sessionID, err := o.deps.Aggregator.StartSession(ctx, "")
	if err != nil {
		return errors.New(err).
			Component("scanner").
			Category(errors.CategorySession).
			Context("operation", "start").
			Build()
	}

	o.position.Store(nil)
	o.errMu.Lock()
	o.errs = nil
	o.errMu.Unlock()
	now := time.Now()
	o.startedAt.Store(&now)
	o.sessionID.Store(&sessionID)

	// The run outlives the caller's context; only Stop ends it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := newRun(o, runCtx, cancel, sessionID, o.loadKeys(ctx))
	o.run = r
	o.counters.Store(r.counters)
	r.startWorkers()

	o.state.Store(int32(StateRunning))

	opts := o.Options()
	o.startSources(r, opts)
	r.loop.Go(func() { o.cycleLoop(r) })

	o.log.Info("scan started",
		logger.String("session_id", sessionID),
		logger.Int("identity_keys", r.matcher.Len()),
		logger.Bool("wifi", opts.WifiEnabled),
		logger.Bool("ble", opts.BLEEnabled),
		logger.Bool("classic", opts.ClassicEnabled))
	o.publish(&events.ScanEvent{Type: events.ScanStarted, SessionID: sessionID})
	o.notify()
	return nil
}

// loadKeys builds the run's key snapshot. Keys added later are not seen
// until the next run.
func (o *Orchestrator) loadKeys(ctx context.Context) []rpa.NamedKey {
	if o.deps.Keys == nil {
		return nil
	}
	stored, err := o.deps.Keys.List(ctx)
	if err != nil {
		o.log.Warn("identity keys unavailable, resolution disabled for this run", logger.Error(err))
		return nil
	}
	keys := make([]rpa.NamedKey, 0, len(stored))
	for _, k := range stored {
		parsed, err := rpa.ParseKey(k.Key)
		if err != nil {
			o.log.Warn("skipping malformed identity key", logger.String("irk_id", k.ID))
			continue
		}
		keys = append(keys, rpa.NamedKey{ID: k.ID, Key: parsed})
	}
	return keys
}

// startSources starts the position source and the callback scanners.
func (o *Orchestrator) startSources(r *run, opts Options) {
	if o.deps.Position != nil {
		if err := o.deps.Position.Start(r.ctx, func(p radio.Position) { o.onPosition(r, p) }); err != nil {
			o.positionFailed(err)
		} else {
			r.positionStarted = true
		}
	}

	o.deps.Metrics.SetScannerEnabled(ScannerWifi, opts.WifiEnabled && o.deps.Wifi != nil)

	if opts.BLEEnabled && o.deps.BLE != nil {
		if err := o.deps.BLE.StartContinuousScan(r.ctx, func(a BleAdvertisement) { o.onAdvertisement(r, a) }); err != nil {
			o.fail(r, ScannerBLE, err)
		} else {
			r.bleStarted = true
			o.deps.Metrics.SetScannerEnabled(ScannerBLE, true)
		}
	}

	if opts.ClassicEnabled && o.deps.Classic != nil {
		if err := o.deps.Classic.StartDiscovery(r.ctx, func(d ClassicDevice) { o.onClassicDevice(r, d) }); err != nil {
			o.fail(r, ScannerClassic, err)
		} else {
			r.classicStarted = true
			o.deps.Metrics.SetScannerEnabled(ScannerClassic, true)
		}
	}
}

// Stop ends the current run: sub-scanners and the cycle stop, queued writes
// get DrainTimeout to finish, then the session is closed with its totals.
// It is a no-op when idle.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	if o.State() != StateRunning {
		return nil
	}
	r := o.run
	o.state.Store(int32(StateStopping))
	o.notify()

	r.cancel()
	o.stopSources(r)
	r.loop.Wait()

	if pending := r.drain(ctx, o.cfg.DrainTimeout); pending > 0 {
		o.log.Warn("stopped before all writes completed",
			logger.Int("pending", pending),
			logger.Duration("drain_timeout", o.cfg.DrainTimeout))
	}
	r.matcher.Flush()

	sessionID := r.sessionID
	summary := observation.SessionSummary{
		NewNetworks:    r.counters.newEntities.Load(),
		TotalSightings: r.counters.totalSightings.Load(),
	}
	var endErr error
	if err := o.deps.Aggregator.EndSession(ctx, sessionID, summary); err != nil {
		o.log.Error("session close failed", logger.String("session_id", sessionID), logger.Error(err))
		o.deps.Metrics.RecordError(metrics.OpWrite, "session")
		endErr = err
	}

	o.sessionID.Store(nil)
	o.run = nil
	o.state.Store(int32(StateIdle))

	o.log.Info("scan stopped",
		logger.String("session_id", sessionID),
		logger.Int64("new_networks", summary.NewNetworks),
		logger.Int64("sightings", summary.TotalSightings))
	o.publish(&events.ScanEvent{
		Type:      events.ScanStopped,
		SessionID: sessionID,
		Metadata: map[string]any{
			"new_networks":    summary.NewNetworks,
			"total_sightings": summary.TotalSightings,
		},
	})
	o.notify()
	return endErr
}

func (o *Orchestrator) stopSources(r *run) {
	stop := func(name string, started bool, fn func() error) {
		if !started {
			return
		}
		if err := fn(); err != nil {
			o.log.Warn("sub-scanner stop failed", logger.String("scanner", name), logger.Error(err))
		}
	}
	stop(ScannerBLE, r.bleStarted, func() error { return o.deps.BLE.Stop() })
	stop(ScannerClassic, r.classicStarted, func() error { return o.deps.Classic.Stop() })
	stop(ScannerPosition, r.positionStarted, func() error { return o.deps.Position.Stop() })
}

// SessionID returns the active session id, or "" when idle.
func (o *Orchestrator) SessionID() string {
	if id := o.sessionID.Load(); id != nil {
		return *id
	}
	return ""
}

// fail disables a sub-scanner for the rest of the run. Only the first
// failure of each scanner is reported.
func (o *Orchestrator) fail(r *run, scanner string, err error) {
	if !r.disable(scanner) {
		return
	}
	o.recordError(scanner, err)
	o.deps.Metrics.SetScannerEnabled(scanner, false)
	o.deps.Metrics.RecordError(scanner, "scanner")

	enhanced := errors.New(err).
		Component("scanner").
		Category(errors.CategoryScanner).
		Context("scanner", scanner).
		Build()
	o.log.Warn("sub-scanner disabled for this run",
		logger.String("scanner", scanner),
		logger.Error(enhanced))
	o.publish(&events.ScanEvent{
		Type:      events.ScannerFailed,
		SessionID: o.SessionID(),
		Scanner:   scanner,
		Error:     err.Error(),
	})
	o.notify()
}

// positionFailed records a position source failure. The run continues
// without fixes, so sightings are not aggregated.
func (o *Orchestrator) positionFailed(err error) {
	o.recordError(ScannerPosition, err)
	o.deps.Metrics.RecordOperation(metrics.OpPosition, metrics.StatusError)
	o.log.Warn("position source failed", logger.Error(errors.New(err).
		Component("scanner").
		Category(errors.CategoryPosition).
		Build()))
	o.publish(&events.ScanEvent{
		Type:      events.PositionFailed,
		SessionID: o.SessionID(),
		Scanner:   ScannerPosition,
		Error:     err.Error(),
	})
}

func (o *Orchestrator) recordError(scanner string, err error) {
	o.errMu.Lock()
	o.errs = append(o.errs, fmt.Sprintf("%s: %v", scanner, err))
	o.errMu.Unlock()
}

func (o *Orchestrator) publish(e *events.ScanEvent) {
	if o.deps.Events != nil {
		o.deps.Events.PublishScan(e)
	}
}
