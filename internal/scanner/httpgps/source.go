// Package httpgps is a position source that polls a JSON GPS endpoint,
// such as a gpsd bridge or a phone exposing its location over HTTP.
package httpgps

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/rfscan-go/internal/errors"
	"github.com/tphakala/rfscan-go/internal/httpclient"
	"github.com/tphakala/rfscan-go/internal/logger"
	"github.com/tphakala/rfscan-go/internal/radio"
)

// Defaults.
const (
	DefaultPollInterval = time.Second
	DefaultMinDistance  = 5.0 // meters
)

// Config configures a Source.
type Config struct {
	URL          string
	PollInterval time.Duration
	// MinDistance suppresses fixes closer than this many meters to the last
	// delivered one.
	MinDistance float64
}

// Source polls Config.URL and reports fixes. It implements the scanner
// PositionSource interface.
type Source struct {
	client *httpclient.Client
	cfg    Config
	log    logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a stopped Source. client may be nil.
func New(client *httpclient.Client, cfg Config) *Source {
	if client == nil {
		client = httpclient.New(nil)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MinDistance < 0 {
		cfg.MinDistance = 0
	}
	return &Source{
		client: client,
		cfg:    cfg,
		log:    logger.Global().Module("gps"),
	}
}

// Start polls until ctx ends or Stop is called.
func (s *Source) Start(ctx context.Context, onPosition func(radio.Position)) error {
	if s.cfg.URL == "" {
		return errors.Newf("position URL is not configured").
			Component("httpgps").
			Category(errors.CategoryConfiguration).
			Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.Newf("position source already started").
			Component("httpgps").
			Category(errors.CategoryState).
			Build()
	}

	pollCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Go(func() { s.poll(pollCtx, onPosition) })
	return nil
}

// Stop ends polling and waits for the poller to exit.
func (s *Source) Stop() error {
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

func (s *Source) poll(ctx context.Context, onPosition func(radio.Position)) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	var last *radio.Position
	failing := false

	for {
		pos, ok, err := s.fetch(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			// Log the first failure of a streak loudly, the rest quietly.
			if !failing {
				s.log.Warn("position poll failed", logger.String("url", s.cfg.URL), logger.Error(err))
			} else {
				s.log.Debug("position poll still failing", logger.Error(err))
			}
			failing = true
		case err == nil:
			if failing {
				s.log.Info("position poll recovered", logger.String("url", s.cfg.URL))
				failing = false
			}
			if ok && (last == nil || last.DistanceTo(pos) >= s.cfg.MinDistance) {
				last = &pos
				onPosition(pos)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Source) fetch(ctx context.Context) (radio.Position, bool, error) {
	obj, err := s.client.GetJSON(ctx, s.cfg.URL)
	if err != nil {
		return radio.Position{}, false, errors.New(err).
			Component("httpgps").
			Category(errors.CategoryPosition).
			Context("url", s.cfg.URL).
			Build()
	}
	return ParseFix(obj)
}

// ParseFix reads a position from a JSON document. Both plain objects
// ({"lat", "lon", "altitude", "accuracy"}) and gpsd TPV reports
// ({"class": "TPV", "mode", "lat", "lon", "alt", "eph"}) are accepted.
// ok is false when the document carries no fix.
func ParseFix(obj *jason.Object) (pos radio.Position, ok bool, err error) {
	if class, cerr := obj.GetString("class"); cerr == nil && class != "TPV" {
		return pos, false, nil
	}
	if mode, merr := obj.GetInt64("mode"); merr == nil && mode < 2 {
		return pos, false, nil
	}

	lat, latOK := firstFloat(obj, "lat", "latitude")
	lon, lonOK := firstFloat(obj, "lon", "lng", "longitude")
	if !latOK || !lonOK {
		return pos, false, nil
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return pos, false, fmt.Errorf("coordinates out of range: %f, %f", lat, lon)
	}

	pos.Lat, pos.Lon = lat, lon
	pos.Altitude, _ = firstFloat(obj, "altitude", "alt", "altHAE", "altMSL")
	pos.Accuracy, _ = firstFloat(obj, "accuracy", "eph", "epx")
	if v, found := firstFloat(obj, "speed"); found {
		pos.Speed = &v
	}
	if v, found := firstFloat(obj, "bearing", "track"); found {
		pos.Bearing = &v
	}
	for _, key := range []string{"timestamp", "time"} {
		if raw, terr := obj.GetString(key); terr == nil {
			if ts, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
				pos.Timestamp = ts
				break
			}
		}
	}
	return pos, true, nil
}

func firstFloat(obj *jason.Object, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, err := obj.GetFloat64(key); err == nil {
			return v, true
		}
	}
	return 0, false
}
