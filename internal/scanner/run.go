package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/rfscan-go/internal/events"
	"github.com/tphakala/rfscan-go/internal/logger"
	"github.com/tphakala/rfscan-go/internal/observability/metrics"
	"github.com/tphakala/rfscan-go/internal/observation"
	"github.com/tphakala/rfscan-go/internal/radio"
	"github.com/tphakala/rfscan-go/internal/rpa"
)

// job is one store write executed by a worker.
type job struct {
	sighting *observation.Sighting
	irkID    string // set for the first resolution of an address in this run
	route    *radio.Position
}

// runCounters are monotonic within one run. Workers of a run that outlived
// its drain keep counting into their own run, never into the next one.
type runCounters struct {
	newEntities    atomic.Int64
	totalSightings atomic.Int64
}

// run holds everything scoped to one Start/Stop cycle.
type run struct {
	o         *Orchestrator
	ctx       context.Context
	cancel    context.CancelFunc
	sessionID string
	matcher   *rpa.CachingMatcher
	counters  *runCounters

	loop    sync.WaitGroup // cycle goroutine and Wi-Fi triggers
	workers sync.WaitGroup

	queueMu sync.RWMutex
	queue   chan job
	closed  bool

	wifiDisabled    atomic.Bool
	bleDisabled     atomic.Bool
	classicDisabled atomic.Bool
	triggering      atomic.Bool

	// addresses already credited to an identity key in this run
	resolved sync.Map

	positionStarted bool
	bleStarted      bool
	classicStarted  bool
}

func newRun(o *Orchestrator, ctx context.Context, cancel context.CancelFunc, sessionID string, keys []rpa.NamedKey) *run {
	return &run{
		o:         o,
		ctx:       ctx,
		cancel:    cancel,
		sessionID: sessionID,
		matcher:   rpa.NewCachingMatcher(keys, o.cfg.ResolverCacheTTL),
		counters:  &runCounters{},
		queue:     make(chan job, o.cfg.QueueSize),
	}
}

// disable marks a sub-scanner failed and reports whether this call did it.
func (r *run) disable(scanner string) bool {
	switch scanner {
	case ScannerWifi:
		return !r.wifiDisabled.Swap(true)
	case ScannerBLE:
		return !r.bleDisabled.Swap(true)
	case ScannerClassic:
		return !r.classicDisabled.Swap(true)
	default:
		return true
	}
}

// enqueue hands j to the workers without blocking. It reports false when
// the queue is full or already closed.
func (r *run) enqueue(j job) bool {
	r.queueMu.RLock()
	defer r.queueMu.RUnlock()
	if r.closed {
		return false
	}
	select {
	case r.queue <- j:
		r.o.deps.Metrics.SetQueueDepth(len(r.queue))
		return true
	default:
		return false
	}
}

func (r *run) startWorkers() {
	// Writes finish even after Stop cancels the run.
	writeCtx := context.WithoutCancel(r.ctx)
	for range r.o.cfg.Workers {
		r.workers.Go(func() {
			for j := range r.queue {
				r.o.deps.Metrics.SetQueueDepth(len(r.queue))
				r.process(writeCtx, j)
			}
		})
	}
}

// drain closes the queue and waits for the workers up to timeout or until
// ctx ends. It returns the number of jobs still queued when it gave up.
func (r *run) drain(ctx context.Context, timeout time.Duration) int {
	r.queueMu.Lock()
	r.closed = true
	close(r.queue)
	r.queueMu.Unlock()

	done := make(chan struct{})
	go func() {
		r.workers.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return 0
	case <-timer.C:
	case <-ctx.Done():
	}
	return max(len(r.queue), 1)
}

func (r *run) process(ctx context.Context, j job) {
	switch {
	case j.route != nil:
		r.writeRoutePoint(ctx, j.route)
	case j.sighting != nil:
		r.writeSighting(ctx, j)
	}
}

func (r *run) writeSighting(ctx context.Context, j job) {
	o := r.o
	s := j.sighting
	kind := string(s.Details.Kind())

	start := time.Now()
	isNew, err := o.deps.Aggregator.Upsert(ctx, *s)
	o.deps.Metrics.RecordDuration(metrics.OpWrite, time.Since(start).Seconds())
	if err != nil {
		o.deps.Metrics.RecordOperation(metrics.OpWrite, metrics.StatusError)
		o.deps.Metrics.RecordError(metrics.OpWrite, "upsert")
		o.log.Warn("sighting write failed",
			logger.String("kind", kind),
			logger.Error(err))
		o.publish(&events.ScanEvent{
			Type:      events.WriteFailed,
			SessionID: r.sessionID,
			Address:   s.Address,
			Kind:      kind,
			Error:     err.Error(),
		})
		return
	}
	o.deps.Metrics.RecordOperation(metrics.OpWrite, metrics.StatusSuccess)
	r.counters.totalSightings.Add(1)

	if isNew {
		r.counters.newEntities.Add(1)
		o.deps.Metrics.RecordNewNetwork(kind)
		o.publish(&events.ScanEvent{
			Type:      events.NewEntity,
			SessionID: r.sessionID,
			Address:   radio.NormalizeAddress(s.Address),
			Kind:      kind,
			Name:      s.Name,
			Level:     s.Level,
		})
	}

	if j.irkID != "" && o.deps.Keys != nil {
		if err := o.deps.Keys.IncrementResolved(ctx, j.irkID, 1); err != nil {
			o.log.Warn("identity key counter update failed",
				logger.String("irk_id", j.irkID),
				logger.Error(err))
		}
	}
}

func (r *run) writeRoutePoint(ctx context.Context, pos *radio.Position) {
	o := r.o
	if err := o.deps.Aggregator.RecordRoutePoint(ctx, r.sessionID, pos); err != nil {
		o.deps.Metrics.RecordOperation(metrics.OpRoutePoint, metrics.StatusError)
		o.log.Warn("route point write failed", logger.Error(err))
		return
	}
	o.deps.Metrics.RecordOperation(metrics.OpRoutePoint, metrics.StatusSuccess)
}
