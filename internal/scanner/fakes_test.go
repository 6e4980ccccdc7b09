package scanner

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tphakala/rfscan-go/internal/events"
	"github.com/tphakala/rfscan-go/internal/observability/metrics"
	"github.com/tphakala/rfscan-go/internal/observation"
	"github.com/tphakala/rfscan-go/internal/radio"
)

// fakeWifi hands out each pushed batch of results once. With block set,
// TriggerScan waits for its context like a long running scan command.
type fakeWifi struct {
	mu         sync.Mutex
	pending    []WifiResult
	triggers   atomic.Int32
	finished   atomic.Int32
	reads      atomic.Int32
	triggerErr error
	block      bool
}

func (f *fakeWifi) TriggerScan(ctx context.Context) error {
	f.triggers.Add(1)
	defer f.finished.Add(1)
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.triggerErr
}

func (f *fakeWifi) GetLastResults(context.Context) ([]WifiResult, error) {
	f.reads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.pending
	f.pending = nil
	return out, nil
}

func (f *fakeWifi) push(results ...WifiResult) {
	f.mu.Lock()
	f.pending = append(f.pending, results...)
	f.mu.Unlock()
}

// fakeStream is a callback source driven by the test.
type fakeStream[T any] struct {
	mu       sync.Mutex
	cb       func(T)
	startErr error
	stops    int
}

func (f *fakeStream[T]) start(cb func(T)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.cb = cb
	return nil
}

func (f *fakeStream[T]) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = nil
	f.stops++
	return nil
}

// emit delivers v synchronously, like a scanner callback.
func (f *fakeStream[T]) emit(v T) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

type fakeBLE struct{ fakeStream[BleAdvertisement] }

func (f *fakeBLE) StartContinuousScan(_ context.Context, cb func(BleAdvertisement)) error {
	return f.start(cb)
}

type fakeClassic struct{ fakeStream[ClassicDevice] }

func (f *fakeClassic) StartDiscovery(_ context.Context, cb func(ClassicDevice)) error {
	return f.start(cb)
}

type fakePosition struct{ fakeStream[radio.Position] }

func (f *fakePosition) Start(_ context.Context, cb func(radio.Position)) error {
	return f.start(cb)
}

// fakeAggregator records calls. When gate is set, Upsert waits on it.
type fakeAggregator struct {
	mu        sync.Mutex
	sightings []observation.Sighting
	seen      map[string]bool
	sessions  int
	ended     []observation.SessionSummary
	routes    int
	endErr    error

	entered chan struct{}
	gate    chan struct{}
}

func newFakeAggregator() *fakeAggregator {
	return &fakeAggregator{seen: make(map[string]bool), entered: make(chan struct{}, 64)}
}

func (f *fakeAggregator) Upsert(_ context.Context, s observation.Sighting) (bool, error) {
	select {
	case f.entered <- struct{}{}:
	default:
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sightings = append(f.sightings, s)
	isNew := !f.seen[s.Address]
	f.seen[s.Address] = true
	return isNew, nil
}

func (f *fakeAggregator) StartSession(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions++
	return fmt.Sprintf("session-%d", f.sessions), nil
}

func (f *fakeAggregator) EndSession(_ context.Context, _ string, summary observation.SessionSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, summary)
	return f.endErr
}

func (f *fakeAggregator) RecordRoutePoint(context.Context, string, *radio.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes++
	return nil
}

func (f *fakeAggregator) upserts() []observation.Sighting {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sightings)
}

func (f *fakeAggregator) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions
}

// recordingPublisher keeps every published scan event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.ScanEvent
}

func (p *recordingPublisher) PublishScan(e *events.ScanEvent) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return true
}

func (p *recordingPublisher) types() []events.ScanEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.ScanEventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *recordingPublisher) ofType(t events.ScanEventType) []*events.ScanEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*events.ScanEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// positionSwapper moves the orchestrator to next after the first accepted
// sighting, like a fix arriving in the middle of a cycle.
type positionSwapper struct {
	metrics.NopRecorder
	o    *Orchestrator
	next radio.Position
	once sync.Once
}

func (p *positionSwapper) RecordOperation(operation, status string) {
	if operation == metrics.OpSighting && status == metrics.StatusAccepted {
		p.once.Do(func() { p.o.position.Store(&p.next) })
	}
}
