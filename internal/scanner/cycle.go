package scanner

import (
	"time"

	"github.com/tphakala/rfscan-go/internal/events"
	"github.com/tphakala/rfscan-go/internal/logger"
	"github.com/tphakala/rfscan-go/internal/observability/metrics"
	"github.com/tphakala/rfscan-go/internal/observation"
	"github.com/tphakala/rfscan-go/internal/radio"
	"github.com/tphakala/rfscan-go/internal/rpa"
)

// cycleLoop runs one cycle per interval until the run is cancelled. The
// first Wi-Fi scan is triggered immediately so the first tick has results.
func (o *Orchestrator) cycleLoop(r *run) {
	interval := o.Options().interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if opts := o.Options(); opts.WifiEnabled {
		o.triggerWifi(r)
	}

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			opts := o.Options()
			if next := opts.interval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
			o.cycle(r, opts)
		}
	}
}

// cycle aggregates the last Wi-Fi results and triggers the next scan.
// Without a position fix nothing is aggregated but the scan is still triggered.
func (o *Orchestrator) cycle(r *run, opts Options) {
	start := time.Now()
	defer func() {
		o.deps.Metrics.RecordOperation(metrics.OpCycle, metrics.StatusSuccess)
		o.deps.Metrics.RecordDuration(metrics.OpCycle, time.Since(start).Seconds())
		o.notify()
	}()

	if !opts.WifiEnabled || o.deps.Wifi == nil || r.wifiDisabled.Load() {
		return
	}

	if pos := o.position.Load(); pos != nil {
		results, err := o.deps.Wifi.GetLastResults(r.ctx)
		if err != nil {
			if r.ctx.Err() == nil {
				o.fail(r, ScannerWifi, err)
			}
			return
		}
		for i := range results {
			o.submit(r, opts, pos, wifiSighting(&results[i]), "")
		}
	}

	o.triggerWifi(r)
}

// triggerWifi starts a Wi-Fi scan without waiting for it. A trigger still in
// flight from the previous cycle is not doubled. It must be called from the
// cycle goroutine so Stop waits for the trigger too.
func (o *Orchestrator) triggerWifi(r *run) {
	if o.deps.Wifi == nil || r.wifiDisabled.Load() || !r.triggering.CompareAndSwap(false, true) {
		return
	}
	r.loop.Go(func() {
		defer r.triggering.Store(false)
		if err := o.deps.Wifi.TriggerScan(r.ctx); err != nil && r.ctx.Err() == nil {
			o.fail(r, ScannerWifi, err)
		}
	})
}

func wifiSighting(res *WifiResult) observation.Sighting {
	return observation.Sighting{
		Address:   res.BSSID,
		Name:      res.SSID,
		Details:   radio.WifiDetails{Frequency: res.Frequency, Capabilities: res.Capabilities},
		Level:     res.Level,
		Timestamp: res.Timestamp,
	}
}

// onAdvertisement classifies and resolves one BLE advertisement.
func (o *Orchestrator) onAdvertisement(r *run, adv BleAdvertisement) {
	opts := o.Options()
	if !opts.BLEEnabled || r.bleDisabled.Load() || r.ctx.Err() != nil {
		return
	}

	address := radio.NormalizeAddress(adv.Address)
	// Malformed addresses are simply not resolvable.
	isRPA, err := rpa.IsResolvablePrivateAddress(address)
	isRPA = isRPA && err == nil

	details := radio.BleDetails{
		ServiceUUIDs:     adv.ServiceUUIDs,
		ManufacturerData: adv.ManufacturerData,
		TxPower:          adv.TxPower,
		Connectable:      adv.Connectable,
		IsRPA:            isRPA,
	}

	var creditKey string
	if isRPA {
		if key, ok := r.matcher.Match(address); ok {
			details.ResolvedIRKID = key.ID
			o.deps.Metrics.RecordOperation(metrics.OpResolve, metrics.StatusResolved)
			if _, seen := r.resolved.LoadOrStore(address, struct{}{}); !seen {
				creditKey = key.ID
			}
		} else {
			o.deps.Metrics.RecordOperation(metrics.OpResolve, metrics.StatusUnresolved)
		}
	}

	queued := o.submit(r, opts, o.position.Load(), observation.Sighting{
		Address:   address,
		Name:      adv.Name,
		Details:   details,
		Level:     adv.RSSI,
		Timestamp: adv.Timestamp,
	}, creditKey)
	if creditKey == "" {
		return
	}
	if !queued {
		// Credit the key with the next sighting that is queued.
		r.resolved.Delete(address)
		return
	}
	o.log.Debug("private address resolved", logger.String("irk_id", creditKey))
	o.publish(&events.ScanEvent{
		Type:      events.IRKResolved,
		SessionID: r.sessionID,
		Address:   address,
		Kind:      string(details.Kind()),
		IRKID:     creditKey,
	})
}

// onClassicDevice handles one classic discovery result.
func (o *Orchestrator) onClassicDevice(r *run, dev ClassicDevice) {
	opts := o.Options()
	if !opts.ClassicEnabled || r.classicDisabled.Load() || r.ctx.Err() != nil {
		return
	}
	o.submit(r, opts, o.position.Load(), observation.Sighting{
		Address:   dev.Address,
		Name:      dev.Name,
		Details:   radio.BluetoothDetails{BluetoothType: dev.BluetoothType, DeviceClass: dev.DeviceClass},
		Level:     dev.RSSI,
		Timestamp: dev.Timestamp,
	}, "")
}

// onPosition swaps the cached fix and queues a route point.
func (o *Orchestrator) onPosition(r *run, pos radio.Position) {
	if r.ctx.Err() != nil {
		return
	}
	if pos.Timestamp.IsZero() {
		pos.Timestamp = time.Now()
	}
	o.position.Store(&pos)
	o.deps.Metrics.RecordOperation(metrics.OpPosition, metrics.StatusSuccess)

	if o.Options().LogRoute {
		routePos := pos
		if !r.enqueue(job{route: &routePos}) {
			o.deps.Metrics.RecordOperation(metrics.OpRoutePoint, metrics.StatusDropped)
		}
	}
	o.notify()
}

// submit applies the signal floor, stamps s with pos and queues it for the
// workers. A cycle passes the fix it loaded once so all of its results share
// it. A non-empty irkID credits that key once s is written. It reports
// whether s was queued.
func (o *Orchestrator) submit(r *run, opts Options, pos *radio.Position, s observation.Sighting, irkID string) bool {
	if pos == nil {
		return false
	}
	if s.Level < opts.MinSignalLevel {
		o.deps.Metrics.RecordOperation(metrics.OpSighting, metrics.StatusFiltered)
		return false
	}

	fix := *pos
	s.Position = &fix
	s.SessionID = r.sessionID
	if !r.enqueue(job{sighting: &s, irkID: irkID}) {
		o.deps.Metrics.RecordOperation(metrics.OpSighting, metrics.StatusDropped)
		return false
	}
	o.deps.Metrics.RecordOperation(metrics.OpSighting, metrics.StatusAccepted)
	return true
}
