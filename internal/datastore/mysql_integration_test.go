//go:build integration

package datastore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"github.com/tphakala/rfscan-go/internal/datastore/repository"
	"github.com/tphakala/rfscan-go/internal/logger"
)

// newMySQLStore starts a disposable MySQL server and opens a store on it.
func newMySQLStore(t *testing.T) *Store {
	t.Helper()
	ctx := t.Context()

	ctr, err := mysql.Run(ctx, "mysql:8.0.36",
		mysql.WithDatabase("rfscan"),
		mysql.WithUsername("rfscan"),
		mysql.WithPassword("rfscan"),
	)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	mgr, err := NewMySQLManager(&MySQLConfig{
		Host:     host,
		Port:     port.Port(),
		Username: "rfscan",
		Password: "rfscan",
		Database: "rfscan",
		Logger:   logger.NewSlogLogger(nil, logger.LogLevelError, nil),
	})
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize())
	assert.True(t, mgr.IsMySQL())
	assert.True(t, mgr.Exists())

	store, err := New(mgr, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMySQLApplyObservationConcurrent(t *testing.T) {
	store := newMySQLStore(t)
	ctx := t.Context()

	addr := "AA:BB:CC:DD:EE:01"
	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.Networks.Insert(ctx, &entities.Network{
		Address: addr, Kind: entities.KindWifi, BestLevel: -100,
		FirstSeen: now, LastSeen: now, TimesObserved: 1,
	}))

	// Without an application lock the single UPDATE still keeps the maximum.
	var wg sync.WaitGroup
	for level := -95; level <= -40; level++ {
		wg.Go(func() {
			err := store.Networks.ApplyObservation(ctx, addr, repository.Observation{
				Level: level, Lat: float64(-level), Lon: float64(-level), Timestamp: now,
			})
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	got, err := store.Networks.GetByAddress(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, -40, got.BestLevel)
	assert.InDelta(t, 40.0, got.BestLat, 0, "best position belongs to the best level")
	assert.InDelta(t, 40.0, got.BestLon, 0)
	assert.Equal(t, int64(57), got.TimesObserved)
}

func TestMySQLRepositories(t *testing.T) {
	store := newMySQLStore(t)
	ctx := t.Context()

	key := &entities.IRK{Key: "ec0234a357c8ad05341010a60a397d9b", Name: "phone"}
	require.NoError(t, store.IRKs.Add(ctx, key))
	require.ErrorIs(t, store.IRKs.Add(ctx, &entities.IRK{Key: key.Key}), repository.ErrDuplicateKey)
	require.NoError(t, store.IRKs.Update(ctx, key.ID, "phone", ""), "unchanged values are not an error")

	s := &entities.Session{StartTime: time.Now().UTC()}
	require.NoError(t, store.Sessions.Create(ctx, s))
	require.NoError(t, store.Sessions.Close(ctx, s.ID, time.Now().UTC(), repository.SessionTotals{TotalNetworks: 1}))
	require.ErrorIs(t, store.Sessions.Close(ctx, s.ID, time.Now().UTC(), repository.SessionTotals{}), repository.ErrSessionClosed)

	found, err := store.Networks.List(ctx, repository.NetworkFilter{Search: "100%_"})
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, store.ClearAll(ctx))
	require.NoError(t, store.Manager().Delete())
}
