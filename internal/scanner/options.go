package scanner

import (
	"time"

	"github.com/tphakala/rfscan-go/internal/conf"
)

// Options are the settings read at the start of every cycle and callback.
type Options struct {
	WifiEnabled    bool
	BLEEnabled     bool
	ClassicEnabled bool
	LogRoute       bool
	MinSignalLevel int // dBm, sightings below are ignored
	Interval       time.Duration
}

// Config holds the settings fixed for the lifetime of an Orchestrator.
type Config struct {
	Workers          int
	QueueSize        int
	DrainTimeout     time.Duration
	ResolverCacheTTL time.Duration
}

// Defaults.
const (
	DefaultInterval       = 2 * time.Second
	DefaultWorkers        = 4
	DefaultQueueSize      = 1024
	DefaultDrainTimeout   = 2 * time.Second
	DefaultMinSignalLevel = -100
)

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		WifiEnabled:    true,
		BLEEnabled:     true,
		LogRoute:       true,
		MinSignalLevel: DefaultMinSignalLevel,
		Interval:       DefaultInterval,
	}
}

// OptionsFromSettings maps scan settings to Options.
func OptionsFromSettings(s *conf.ScanSettings) Options {
	return Options{
		WifiEnabled:    s.Wifi.Enabled,
		BLEEnabled:     s.BLE.Enabled,
		ClassicEnabled: s.Classic.Enabled,
		LogRoute:       s.LogRoute,
		MinSignalLevel: s.MinSignalLevel,
		Interval:       s.Interval,
	}
}

// ConfigFromSettings maps scan settings to Config.
func ConfigFromSettings(s *conf.ScanSettings) Config {
	return Config{
		Workers:          s.Workers,
		QueueSize:        s.QueueSize,
		DrainTimeout:     s.DrainTimeout,
		ResolverCacheTTL: s.ResolverCacheTTL,
	}
}

func (c Config) withDefaults() Config {
	if c.Workers < 1 {
		c.Workers = DefaultWorkers
	}
	if c.QueueSize < 1 {
		c.QueueSize = DefaultQueueSize
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	return c
}

func (o Options) interval() time.Duration {
	if o.Interval <= 0 {
		return DefaultInterval
	}
	return o.Interval
}
