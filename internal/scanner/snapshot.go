package scanner

import (
	"slices"
)

// Snapshot returns the current observer view.
func (o *Orchestrator) Snapshot() Snapshot {
	state := o.State()
	snap := Snapshot{
		State:          state,
		Scanning:       state == StateRunning,
		SessionID: o.SessionID(),
	}
	if c := o.counters.Load(); c != nil {
		snap.NewEntities = c.newEntities.Load()
		snap.TotalSightings = c.totalSightings.Load()
	}
	if pos := o.position.Load(); pos != nil {
		p := *pos
		snap.Position = &p
	}
	if t := o.startedAt.Load(); t != nil && state != StateIdle {
		snap.StartedAt = *t
	}
	o.errMu.Lock()
	snap.Errors = slices.Clone(o.errs)
	o.errMu.Unlock()
	return snap
}

// Subscribe returns a channel receiving a snapshot after every state change,
// cycle and position update, and a function that ends the subscription.
// A subscriber that does not keep up misses snapshots; it never blocks the
// orchestrator.
func (o *Orchestrator) Subscribe(buffer int) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, max(buffer, 1))

	o.subMu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	o.subMu.Unlock()

	// The current view is delivered first.
	ch <- o.Snapshot()

	unsubscribe := func() {
		o.subMu.Lock()
		defer o.subMu.Unlock()
		if _, ok := o.subs[id]; ok {
			delete(o.subs, id)
			close(ch)
		}
	}
	return ch, unsubscribe
}

func (o *Orchestrator) notify() {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	if len(o.subs) == 0 {
		return
	}
	snap := o.Snapshot()
	for _, ch := range o.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
