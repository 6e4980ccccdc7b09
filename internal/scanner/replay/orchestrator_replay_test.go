package replay

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rfscan-go/internal/datastore"
	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"github.com/tphakala/rfscan-go/internal/datastore/repository"
	"github.com/tphakala/rfscan-go/internal/logger"
	"github.com/tphakala/rfscan-go/internal/observation"
	"github.com/tphakala/rfscan-go/internal/scanner"
)

// TestReplayDrivesOrchestrator plays a capture through the full scan
// pipeline into a SQLite store.
func TestReplayDrivesOrchestrator(t *testing.T) {
	ctx := t.Context()
	quiet := logger.NewSlogLogger(nil, logger.LogLevelError, nil)

	mgr, err := datastore.NewSQLiteManager(datastore.SQLiteConfig{
		Path:   filepath.Join(t.TempDir(), "replay.db"),
		Logger: quiet,
	})
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize())
	store, err := datastore.New(mgr, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	capture, err := Open(filepath.Join("testdata", "drive.jsonl"), 20)
	require.NoError(t, err)

	o := scanner.New(scanner.Deps{
		Aggregator: observation.New(store, observation.WithLogger(quiet)),
		Keys:       store.IRKs,
		Wifi:       capture.Wifi(),
		BLE:        capture.BLE(),
		Classic:    capture.Classic(),
		Position:   capture.Position(),
		Logger:     quiet,
	}, scanner.Config{Workers: 2, QueueSize: 64}, scanner.Options{
		WifiEnabled:    true,
		BLEEnabled:     true,
		ClassicEnabled: true,
		LogRoute:       true,
		MinSignalLevel: -100,
		Interval:       5 * time.Millisecond,
	})

	require.NoError(t, o.Start(ctx))
	require.Eventually(t, func() bool { return o.Snapshot().TotalSightings == 6 }, 5*time.Second, 10*time.Millisecond)
	sessionID := o.SessionID()
	require.NoError(t, o.Stop(ctx))

	snap := o.Snapshot()
	assert.EqualValues(t, 4, snap.NewEntities)

	counts, err := store.Networks.CountByKind(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[entities.KindWifi])
	assert.EqualValues(t, 1, counts[entities.KindBLE])
	assert.EqualValues(t, 1, counts[entities.KindBluetooth])

	depot, err := store.Networks.GetByAddress(ctx, "AA:BB:CC:00:00:01")
	require.NoError(t, err)
	assert.Equal(t, -55, depot.BestLevel)
	assert.EqualValues(t, 2, depot.TimesObserved)

	sightings, err := store.Sightings.ListBySession(ctx, sessionID, 0)
	require.NoError(t, err)
	assert.Len(t, sightings, 6)

	session, err := store.Sessions.GetByID(ctx, sessionID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, session.NewNetworks)
	assert.InDelta(t, 111.2, session.Distance, 1.0)

	_, err = store.Networks.GetByAddress(ctx, "00:00:00:00:00:00")
	require.ErrorIs(t, err, repository.ErrNetworkNotFound)
}
