package survey

import (
	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/errors"
	"github.com/tphakala/rfscan-go/internal/httpclient"
	"github.com/tphakala/rfscan-go/internal/logger"
	"github.com/tphakala/rfscan-go/internal/scanner"
	"github.com/tphakala/rfscan-go/internal/scanner/httpgps"
	"github.com/tphakala/rfscan-go/internal/scanner/iw"
	"github.com/tphakala/rfscan-go/internal/scanner/replay"
)

// Sources are the radio and position sources for one process lifetime.
// Nil members are unavailable.
type Sources struct {
	Wifi     scanner.WifiScanner
	BLE      scanner.BleScanner
	Classic  scanner.ClassicScanner
	Position scanner.PositionSource

	closers []func()
}

// Close releases resources held by the sources.
func (s *Sources) Close() {
	for _, c := range s.closers {
		c()
	}
	s.closers = nil
}

// OpenSources builds the sources selected by the scan settings.
func OpenSources(settings *conf.ScanSettings, version string) (*Sources, error) {
	log := GetLogger()
	src := &Sources{}

	var capture *replay.Capture
	switch settings.Source.Type {
	case conf.SourceReplay:
		var err error
		capture, err = replay.Open(settings.Source.ReplayFile, settings.Source.ReplaySpeed)
		if err != nil {
			return nil, errors.New(err).
				Component("survey").
				Category(errors.CategoryFileIO).
				Context("operation", "open_replay").
				Build()
		}
		src.Wifi = capture.Wifi()
		src.BLE = capture.BLE()
		src.Classic = capture.Classic()
		log.Info("replaying capture",
			logger.String("file", settings.Source.ReplayFile),
			logger.Float64("speed", settings.Source.ReplaySpeed),
			logger.Int("wifi_records", capture.Len(replay.KindWifi)),
			logger.Int("ble_records", capture.Len(replay.KindBLE)),
			logger.Int("classic_records", capture.Len(replay.KindClassic)))
	default:
		if settings.Wifi.Enabled {
			src.Wifi = iw.New(settings.Wifi.Interface, nil)
		}
		// There is no live Bluetooth backend; BLE and classic discovery are
		// reported unavailable when enabled.
		if settings.BLE.Enabled || settings.Classic.Enabled {
			log.Warn("live Bluetooth scanning is not supported, use a replay capture")
		}
	}

	switch settings.Position.Type {
	case conf.PositionHTTP:
		client := httpclient.New(&httpclient.Config{UserAgent: "rfscan/" + version})
		src.closers = append(src.closers, client.Close)
		src.Position = httpgps.New(client, httpgps.Config{
			URL:          settings.Position.URL,
			PollInterval: settings.Position.PollInterval,
			MinDistance:  settings.Position.MinDistance,
		})
	case conf.PositionReplay:
		if capture == nil {
			return nil, errors.Newf("position type %q requires a replay source", conf.PositionReplay).
				Component("survey").
				Category(errors.CategoryConfiguration).
				Build()
		}
		src.Position = capture.Position()
	}

	return src, nil
}
