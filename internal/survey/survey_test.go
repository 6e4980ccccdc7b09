package survey

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/datastore"
	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"github.com/tphakala/rfscan-go/internal/logger"
)

const driveCapture = "../scanner/replay/testdata/drive.jsonl"

func replaySettings(t *testing.T) *conf.Settings {
	t.Helper()
	dir := t.TempDir()
	return &conf.Settings{
		Main: conf.MainSettings{Name: "test", DataDir: dir},
		Scan: conf.ScanSettings{
			Interval:       50 * time.Millisecond,
			Wifi:           conf.WifiSettings{Enabled: true},
			BLE:            conf.ToggleSettings{Enabled: true},
			Classic:        conf.ToggleSettings{Enabled: true},
			LogRoute:       true,
			MinSignalLevel: -100,
			DrainTimeout:   time.Second,
			Workers:        2,
			QueueSize:      64,
			Source:         conf.SourceSettings{Type: conf.SourceReplay, ReplayFile: driveCapture},
			Position:       conf.PositionSettings{Type: conf.PositionReplay},
		},
		Database: conf.DatabaseSettings{
			Type:   conf.DatabaseSQLite,
			SQLite: conf.SQLiteSettings{Path: "rfscan.db"},
		},
	}
}

func TestRunReplaysCaptureIntoStore(t *testing.T) {
	settings := replaySettings(t)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, settings, Options{Version: "test", AutoStart: true})
	}()

	// Speed 0 delivers the whole capture on the first cycles
	time.Sleep(2 * time.Second)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	store, err := datastore.Open(settings, nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	counts, err := store.Networks.CountByKind(t.Context())
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[entities.KindWifi])
	assert.EqualValues(t, 1, counts[entities.KindBLE])
	assert.EqualValues(t, 1, counts[entities.KindBluetooth])

	open, err := store.Sessions.Open(t.Context())
	require.NoError(t, err)
	assert.Empty(t, open, "the session is closed on shutdown")

	sessions, err := store.Sessions.List(t.Context(), 10, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.EqualValues(t, 4, sessions[0].TotalNetworks)
}

func TestRunFailsOnMissingCapture(t *testing.T) {
	settings := replaySettings(t)
	settings.Scan.Source.ReplayFile = filepath.Join(t.TempDir(), "missing.jsonl")

	err := Run(t.Context(), settings, Options{Version: "test"})
	require.Error(t, err)
}

func TestOpenSources(t *testing.T) {
	t.Run("replay", func(t *testing.T) {
		s := replaySettings(t)
		src, err := OpenSources(&s.Scan, "test")
		require.NoError(t, err)
		defer src.Close()
		assert.NotNil(t, src.Wifi)
		assert.NotNil(t, src.BLE)
		assert.NotNil(t, src.Classic)
		assert.NotNil(t, src.Position)
	})

	t.Run("live with http position", func(t *testing.T) {
		s := replaySettings(t)
		s.Scan.Source = conf.SourceSettings{Type: conf.SourceLive}
		s.Scan.Wifi.Interface = "wlan0"
		s.Scan.Position = conf.PositionSettings{Type: conf.PositionHTTP, URL: "http://127.0.0.1:9/fix"}
		src, err := OpenSources(&s.Scan, "test")
		require.NoError(t, err)
		defer src.Close()
		assert.NotNil(t, src.Wifi)
		assert.Nil(t, src.BLE)
		assert.Nil(t, src.Classic)
		assert.NotNil(t, src.Position)
	})

	t.Run("live without position", func(t *testing.T) {
		s := replaySettings(t)
		s.Scan.Source = conf.SourceSettings{Type: conf.SourceLive}
		s.Scan.Wifi.Enabled = false
		s.Scan.Position = conf.PositionSettings{Type: conf.PositionNone}
		src, err := OpenSources(&s.Scan, "test")
		require.NoError(t, err)
		assert.Nil(t, src.Wifi)
		assert.Nil(t, src.Position)
	})

	t.Run("replay position needs replay source", func(t *testing.T) {
		s := replaySettings(t)
		s.Scan.Source = conf.SourceSettings{Type: conf.SourceLive}
		_, err := OpenSources(&s.Scan, "test")
		assert.Error(t, err)
	})
}

type fakeGauges struct {
	mu    sync.Mutex
	rows  map[string]int64
	open  int
	calls int
}

func (g *fakeGauges) UpdateTableRowCount(table string, n int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rows == nil {
		g.rows = make(map[string]int64)
	}
	g.rows[table] = n
}

func (g *fakeGauges) UpdateConnectionMetrics(open, _ int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = open
	g.calls++
}

func TestUpdateDatastoreGauges(t *testing.T) {
	mgr, err := datastore.NewSQLiteManager(datastore.SQLiteConfig{
		Path:   filepath.Join(t.TempDir(), "gauges.db"),
		Logger: logger.NewSlogLogger(nil, logger.LogLevelError, nil),
	})
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize())
	store, err := datastore.New(mgr, nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	now := time.Now().UTC()
	require.NoError(t, store.Networks.Insert(t.Context(), &entities.Network{
		Address: "AA:BB:CC:DD:EE:01", Kind: entities.KindWifi, BestLevel: -60,
		FirstSeen: now, LastSeen: now, TimesObserved: 1,
	}))

	g := &fakeGauges{}
	updateDatastoreGauges(t.Context(), store, g)

	assert.EqualValues(t, 1, g.rows["networks"])
	assert.EqualValues(t, 0, g.rows["sightings"])
	assert.Len(t, g.rows, 5)
	assert.Equal(t, 1, g.calls)
}

func TestSetupLogging(t *testing.T) {
	prev := logger.Global()
	t.Cleanup(func() { logger.SetGlobal(prev) })

	settings := &conf.Settings{Debug: true, Main: conf.MainSettings{DataDir: t.TempDir()}}
	cl, err := SetupLogging(settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cl.Close() })
	assert.Same(t, cl, logger.Global())
	assert.Empty(t, settings.Logging.DefaultLevel, "settings are not mutated")

	settings.Logging.Timezone = "Not/AZone"
	_, err = SetupLogging(settings)
	assert.Error(t, err)
}
