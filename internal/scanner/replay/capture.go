package replay

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/rfscan-go/internal/errors"
	"github.com/tphakala/rfscan-go/internal/logger"
	"github.com/tphakala/rfscan-go/internal/radio"
	"github.com/tphakala/rfscan-go/internal/scanner"
)

// Capture plays records back against a shared clock. The clock starts with
// the first source call after construction or Rewind; a record is due once
// its offset from the first record, divided by the speed, has elapsed.
// A speed of 0 plays everything at once.
type Capture struct {
	byKind map[Kind][]Record
	origin time.Time
	speed  float64
	now    func() time.Time
	log    logger.Logger

	clockMu sync.Mutex
	begin   time.Time

	wifi     *wifiSource
	ble      *bleSource
	classic  *classicSource
	position *positionSource
}

// New creates a capture over records, which must be in time order.
func New(records []Record, speed float64) *Capture {
	c := &Capture{
		byKind: make(map[Kind][]Record),
		speed:  max(speed, 0),
		now:    time.Now,
		log:    logger.Global().Module("replay"),
	}
	if len(records) > 0 {
		c.origin = records[0].Time
	}
	for _, r := range records {
		c.byKind[r.Type] = append(c.byKind[r.Type], r)
	}
	c.wifi = &wifiSource{c: c}
	c.ble = &bleSource{stream{c: c, kind: KindBLE}}
	c.classic = &classicSource{stream{c: c, kind: KindClassic}}
	c.position = &positionSource{stream{c: c, kind: KindPosition}}
	return c
}

// Open loads a capture file.
func Open(path string, speed float64) (*Capture, error) {
	records, err := Load(path)
	if err != nil {
		return nil, err
	}
	c := New(records, speed)
	c.log.Info("capture loaded",
		logger.String("path", path),
		logger.Int("records", len(records)),
		logger.Float64("speed", speed))
	return c, nil
}

// Wifi returns the polled Wi-Fi source.
func (c *Capture) Wifi() scanner.WifiScanner { return c.wifi }

// BLE returns the advertisement source.
func (c *Capture) BLE() scanner.BleScanner { return c.ble }

// Classic returns the classic discovery source.
func (c *Capture) Classic() scanner.ClassicScanner { return c.classic }

// Position returns the position source.
func (c *Capture) Position() scanner.PositionSource { return c.position }

// Len returns the number of records of kind.
func (c *Capture) Len(kind Kind) int { return len(c.byKind[kind]) }

// Rewind restarts playback from the first record. Streams already running
// finish their current pass.
func (c *Capture) Rewind() {
	c.clockMu.Lock()
	c.begin = time.Time{}
	c.clockMu.Unlock()

	c.wifi.mu.Lock()
	c.wifi.cursor = 0
	c.wifi.last = nil
	c.wifi.mu.Unlock()
}

// elapsed returns the playback time, starting the clock on first use.
func (c *Capture) elapsed() time.Duration {
	c.clockMu.Lock()
	defer c.clockMu.Unlock()
	now := c.now()
	if c.begin.IsZero() {
		c.begin = now
	}
	return now.Sub(c.begin)
}

// due returns the playback time at which r is delivered.
func (c *Capture) due(r *Record) time.Duration {
	if c.speed == 0 {
		return 0
	}
	return time.Duration(float64(r.Time.Sub(c.origin)) / c.speed)
}

// stream delivers one record kind from a goroutine until the records run
// out or the stream is stopped.
type stream struct {
	c    *Capture
	kind Kind

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (s *stream) start(ctx context.Context, deliver func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.Newf("replay %s source already started", s.kind).
			Component("replay").
			Category(errors.CategoryState).
			Build()
	}
	playCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Go(func() { s.play(playCtx, deliver) })
	return nil
}

func (s *stream) play(ctx context.Context, deliver func(*Record)) {
	records := s.c.byKind[s.kind]
	for i := range records {
		wait := s.c.due(&records[i]) - s.c.elapsed()
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return
		}
		deliver(&records[i])
	}
	s.c.log.Debug("replay stream finished", logger.String("kind", string(s.kind)), logger.Int("records", len(records)))
}

// Stop ends playback and waits for the stream goroutine.
func (s *stream) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return nil
}

type bleSource struct{ stream }

func (s *bleSource) StartContinuousScan(ctx context.Context, onAdvertisement func(scanner.BleAdvertisement)) error {
	return s.start(ctx, func(r *Record) {
		adv := *r.BLE
		if adv.Timestamp.IsZero() {
			adv.Timestamp = r.Time
		}
		onAdvertisement(adv)
	})
}

type classicSource struct{ stream }

func (s *classicSource) StartDiscovery(ctx context.Context, onDevice func(scanner.ClassicDevice)) error {
	return s.start(ctx, func(r *Record) {
		dev := *r.Classic
		if dev.Timestamp.IsZero() {
			dev.Timestamp = r.Time
		}
		onDevice(dev)
	})
}

type positionSource struct{ stream }

func (s *positionSource) Start(ctx context.Context, onPosition func(radio.Position)) error {
	return s.start(ctx, func(r *Record) {
		pos := *r.Position
		if pos.Timestamp.IsZero() {
			pos.Timestamp = r.Time
		}
		onPosition(pos)
	})
}

// wifiSource answers each scan with the results that became due since the
// previous scan. Each batch is handed out once, so a replay reproduces the
// capture's sighting count however often the results are polled.
type wifiSource struct {
	c *Capture

	mu     sync.Mutex
	cursor int
	last   []scanner.WifiResult
}

func (w *wifiSource) TriggerScan(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	records := w.c.byKind[KindWifi]
	now := w.c.elapsed()

	w.mu.Lock()
	defer w.mu.Unlock()
	var batch []scanner.WifiResult
	for w.cursor < len(records) && w.c.due(&records[w.cursor]) <= now {
		r := &records[w.cursor]
		res := *r.Wifi
		if res.Timestamp.IsZero() {
			res.Timestamp = r.Time
		}
		batch = append(batch, res)
		w.cursor++
	}
	w.last = append(w.last, batch...)
	return nil
}

func (w *wifiSource) GetLastResults(context.Context) ([]scanner.WifiResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.last
	w.last = nil
	return out, nil
}
