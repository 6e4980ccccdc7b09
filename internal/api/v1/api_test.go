package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/rfscan-go/internal/datastore"
	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"github.com/tphakala/rfscan-go/internal/logger"
	"github.com/tphakala/rfscan-go/internal/observation"
	"github.com/tphakala/rfscan-go/internal/rpa"
	"github.com/tphakala/rfscan-go/internal/scanner"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

type fakeScanner struct {
	mu      sync.Mutex
	state   scanner.State
	opts    scanner.Options
	starts  int
	stops   int
	updates chan scanner.Snapshot
}

func newFakeScanner() *fakeScanner {
	return &fakeScanner{opts: scanner.DefaultOptions(), updates: make(chan scanner.Snapshot, 4)}
}

func (f *fakeScanner) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.state = scanner.StateRunning
	return nil
}

func (f *fakeScanner) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.state = scanner.StateIdle
	return nil
}

func (f *fakeScanner) Snapshot() scanner.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return scanner.Snapshot{State: f.state, Scanning: f.state == scanner.StateRunning}
}

func (f *fakeScanner) Subscribe(int) (<-chan scanner.Snapshot, func()) {
	return f.updates, func() {}
}

func (f *fakeScanner) Options() scanner.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts
}

func (f *fakeScanner) SetOptions(o scanner.Options) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = o
}

type testEnv struct {
	e       *echo.Echo
	c       *Controller
	store   *datastore.Store
	scanner *fakeScanner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mgr, err := datastore.NewSQLiteManager(datastore.SQLiteConfig{
		Path:   filepath.Join(t.TempDir(), "api.db"),
		Logger: logger.NewSlogLogger(nil, logger.LogLevelError, nil),
	})
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize())
	store, err := datastore.New(mgr, nil)
	require.NoError(t, err)

	sc := newFakeScanner()
	e := echo.New()
	c := New(e, store, sc, observation.New(store))
	t.Cleanup(func() {
		c.Shutdown()
		_ = store.Close()
	})
	return &testEnv{e: e, c: c, store: store, scanner: sc}
}

func (env *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, Prefix+path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, Prefix+path, http.NoBody)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (env *testEnv) seedNetworks(t *testing.T) {
	t.Helper()
	ctx := t.Context()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := []*entities.Network{
		{Address: "AA:BB:CC:DD:EE:01", Name: "depot", Kind: entities.KindWifi, Security: "WPA2", Channel: 6,
			BestLevel: -50, BestLat: 60.17, BestLon: 24.94, FirstSeen: base, LastSeen: base.Add(time.Minute)},
		{Address: "AA:BB:CC:DD:EE:02", Name: "cafe", Kind: entities.KindWifi, BestLevel: -80,
			FirstSeen: base, LastSeen: base.Add(2 * time.Minute)},
		{Address: "C4:7C:8D:6A:11:22", Name: "tag", Kind: entities.KindBLE, BestLevel: -70, TxPower: -59,
			FirstSeen: base, LastSeen: base.Add(3 * time.Minute)},
	}
	for _, n := range rows {
		n.TimesObserved = 1
		require.NoError(t, env.store.Networks.Insert(ctx, n))
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestScanControl(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/scan/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[map[string]any](t, rec)
	assert.Equal(t, "running", snap["state"])
	assert.Equal(t, true, snap["scanning"])

	rec = env.do(t, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", decode[map[string]any](t, rec)["state"])

	rec = env.do(t, http.MethodPost, "/scan/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", decode[map[string]any](t, rec)["state"])
	assert.Equal(t, 1, env.scanner.starts)
	assert.Equal(t, 1, env.scanner.stops)
}

func TestScanControlWithoutScanner(t *testing.T) {
	env := newTestEnv(t)
	env.c.scanner = nil

	rec := env.do(t, http.MethodPost, "/scan/start", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Len(t, resp.CorrelationID, 8)
}

func TestUpdateOptions(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/scan/options", `{"ble_enabled": false, "min_signal_level": -85, "interval": "5s"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[OptionsResponse](t, rec)
	assert.False(t, resp.BLEEnabled)
	assert.True(t, resp.WifiEnabled, "absent fields keep their value")
	assert.Equal(t, -85, resp.MinSignalLevel)
	assert.Equal(t, "5s", resp.Interval)

	opts := env.scanner.Options()
	assert.Equal(t, 5*time.Second, opts.Interval)
	assert.False(t, opts.BLEEnabled)

	tests := []struct {
		name string
		body string
	}{
		{"level too high", `{"min_signal_level": 5}`},
		{"level too low", `{"min_signal_level": -200}`},
		{"interval too short", `{"interval": "10ms"}`},
		{"interval malformed", `{"interval": "soon"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPut, "/scan/options", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Equal(t, 5*time.Second, env.scanner.Options().Interval, "rejected updates change nothing")
}

func TestListNetworks(t *testing.T) {
	env := newTestEnv(t)
	env.seedNetworks(t)

	rec := env.do(t, http.MethodGet, "/networks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[NetworkListResponse](t, rec)
	assert.EqualValues(t, 3, all.Total)
	require.Len(t, all.Networks, 3)
	assert.Equal(t, "C4:7C:8D:6A:11:22", all.Networks[0].Address, "newest first by default")
	require.NotNil(t, all.Networks[0].Bluetooth)
	assert.Greater(t, all.Networks[0].Bluetooth.EstimatedDistance, 0.0)

	rec = env.do(t, http.MethodGet, "/networks?kind=wifi&order=signal", "")
	require.Equal(t, http.StatusOK, rec.Code)
	wifi := decode[NetworkListResponse](t, rec)
	assert.EqualValues(t, 2, wifi.Total)
	require.Len(t, wifi.Networks, 2)
	assert.Equal(t, "depot", wifi.Networks[0].Name)
	require.NotNil(t, wifi.Networks[0].Wifi)
	assert.Equal(t, "WPA2", wifi.Networks[0].Wifi.Security)

	rec = env.do(t, http.MethodGet, "/networks?min_level=-60", "")
	assert.EqualValues(t, 1, decode[NetworkListResponse](t, rec).Total)

	rec = env.do(t, http.MethodGet, "/networks?located=true", "")
	assert.EqualValues(t, 1, decode[NetworkListResponse](t, rec).Total)

	rec = env.do(t, http.MethodGet, "/networks?limit=1&offset=1", "")
	page := decode[NetworkListResponse](t, rec)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Networks, 1)
}

func TestListNetworksRejectsBadParams(t *testing.T) {
	env := newTestEnv(t)
	for _, q := range []string{"kind=radio", "order=name", "limit=0", "limit=5000", "offset=-1", "min_level=x", "since=yesterday", "located=maybe"} {
		t.Run(q, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/networks?"+q, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetNetwork(t *testing.T) {
	env := newTestEnv(t)
	env.seedNetworks(t)

	rec := env.do(t, http.MethodGet, "/networks/aa-bb-cc-dd-ee-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	n := decode[NetworkResponse](t, rec)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", n.Address)
	assert.Equal(t, "WIFI", n.Kind)

	rec = env.do(t, http.MethodGet, "/networks/AA:BB:CC:DD:EE:99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/networks/AA:BB:CC:DD:EE:01/sightings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]SightingResponse](t, rec))
}

func TestDeleteOldNetworks(t *testing.T) {
	env := newTestEnv(t)
	env.seedNetworks(t)

	rec := env.do(t, http.MethodDelete, "/networks?older_than=1h", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decode[map[string]int64](t, rec)["deleted"])

	rec = env.do(t, http.MethodDelete, "/networks", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	agg := observation.New(env.store)

	id, err := agg.StartSession(ctx, "commute")
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[SessionListResponse](t, rec)
	assert.EqualValues(t, 1, list.Total)
	require.Len(t, list.Sessions, 1)
	assert.True(t, list.Sessions[0].Active)

	rec = env.do(t, http.MethodDelete, "/sessions/"+id, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.NoError(t, agg.EndSession(ctx, id, observation.SessionSummary{}))

	rec = env.do(t, http.MethodGet, "/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[SessionResponse](t, rec).Active)

	rec = env.do(t, http.MethodGet, "/sessions/"+id+"/route", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]RoutePointResponse](t, rec))

	rec = env.do(t, http.MethodDelete, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRouteValidatesWindow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/route", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/route?from=2025-06-02T00:00:00Z&to=2025-06-01T00:00:00Z", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/route?from=2025-01-01T00:00:00Z&to=2025-06-01T00:00:00Z", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIRKLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/irks", `{"key": "EC:02:34:A3:57:C8:AD:05:34:10:10:A6:0A:39:7D:9B", "name": "phone", "device_type": "android"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decode[IRKResponse](t, rec)
	assert.Equal(t, "ec0234a357c8ad05341010a60a397d9b", added.Key)
	assert.NotEmpty(t, added.ID)

	rec = env.do(t, http.MethodPost, "/irks", `{"key": "ec0234a357c8ad05341010a60a397d9b", "name": "again"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/irks", `{"key": "not-a-key", "name": "bad"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/irks", `{"key": "ec0234a357c8ad05341010a60a397d9b"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/irks/"+added.ID, `{"name": "work phone", "device_type": "android"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "work phone", decode[IRKResponse](t, rec).Name)

	rec = env.do(t, http.MethodGet, "/irks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]IRKResponse](t, rec), 1)

	rec = env.do(t, http.MethodDelete, "/irks/"+added.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodDelete, "/irks/"+added.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveAddress(t *testing.T) {
	env := newTestEnv(t)

	key, err := rpa.ParseKey("ec0234a357c8ad05341010a60a397d9b")
	require.NoError(t, err)
	require.NoError(t, env.store.IRKs.Add(t.Context(), &entities.IRK{Key: key.String(), Name: "phone"}))
	addr := rpa.Generate(key, [3]byte{0x70, 0x81, 0x94})

	rec := env.do(t, http.MethodPost, "/irks/resolve", `{"address": "`+addr.String()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ResolveResponse](t, rec)
	assert.True(t, resp.Resolvable)
	assert.True(t, resp.Resolved)
	assert.Equal(t, "phone", resp.Name)

	rec = env.do(t, http.MethodPost, "/irks/resolve", `{"address": "00:11:22:33:44:55"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[ResolveResponse](t, rec)
	assert.False(t, resp.Resolvable)
	assert.False(t, resp.Resolved)

	rec = env.do(t, http.MethodPost, "/irks/resolve", `{"address": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsCacheInvalidatedByWrites(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[StatsResponse](t, rec)
	assert.Zero(t, first.TotalNetworks)
	assert.Nil(t, first.LastSeen)

	env.seedNetworks(t)

	rec = env.do(t, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[StatsResponse](t, rec)
	assert.EqualValues(t, 3, second.TotalNetworks)
	assert.EqualValues(t, 2, second.NetworksByKind["WIFI"])
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)
	env.seedNetworks(t)

	rec := env.do(t, http.MethodGet, "/export.csv?kind=WIFI", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "rfscan_export_")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "MAC,SSID"))
}

func TestStreamStatus(t *testing.T) {
	env := newTestEnv(t)
	env.scanner.updates <- scanner.Snapshot{State: scanner.StateRunning, Scanning: true}
	close(env.scanner.updates)

	rec := env.do(t, http.MethodGet, "/status/stream", "")
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "event: status\ndata: {\"state\":\"running\"")
}
