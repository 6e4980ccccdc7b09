package httpgps

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/rfscan-go/internal/httpclient"
	"github.com/tphakala/rfscan-go/internal/radio"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const fixURL = "http://gps.local/fix"

func mockedClient(t *testing.T) *httpclient.Client {
	t.Helper()
	client := httpclient.New(nil)
	httpmock.ActivateNonDefault(client.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	t.Cleanup(client.Close)
	return client
}

// sequenceResponder replays bodies in order and repeats the last one.
func sequenceResponder(bodies ...string) (httpmock.Responder, *atomic.Int32) {
	var calls atomic.Int32
	return func(*http.Request) (*http.Response, error) {
		i := int(calls.Add(1)) - 1
		body := bodies[min(i, len(bodies)-1)]
		if body == "" {
			return httpmock.NewStringResponse(http.StatusServiceUnavailable, "no gps"), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, body), nil
	}, &calls
}

type collector struct {
	mu    sync.Mutex
	fixes []radio.Position
}

func (c *collector) add(p radio.Position) {
	c.mu.Lock()
	c.fixes = append(c.fixes, p)
	c.mu.Unlock()
}

func (c *collector) snapshot() []radio.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]radio.Position(nil), c.fixes...)
}

func TestSourceFiltersByMinDistance(t *testing.T) {
	client := mockedClient(t)
	responder, calls := sequenceResponder(
		`{"lat": 60.0, "lon": 24.0}`,
		`{"lat": 60.00001, "lon": 24.0}`, // about 1 m
		``,                               // transient failure
		`{"lat": 60.0001, "lon": 24.0, "accuracy": 3.5}`,
	)
	httpmock.RegisterResponder(http.MethodGet, fixURL, responder)

	src := New(client, Config{URL: fixURL, PollInterval: 5 * time.Millisecond, MinDistance: 5})
	var got collector
	require.NoError(t, src.Start(t.Context(), got.add))

	require.Eventually(t, func() bool { return calls.Load() >= 6 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, src.Stop())

	fixes := got.snapshot()
	require.Len(t, fixes, 2)
	assert.InDelta(t, 60.0, fixes[0].Lat, 1e-9)
	assert.InDelta(t, 60.0001, fixes[1].Lat, 1e-9)
	assert.InDelta(t, 3.5, fixes[1].Accuracy, 1e-9)
}

func TestSourceRequiresURL(t *testing.T) {
	src := New(nil, Config{})
	err := src.Start(t.Context(), func(radio.Position) {})
	require.Error(t, err)
	require.NoError(t, src.Stop())
}

func TestSourceRejectsDoubleStart(t *testing.T) {
	client := mockedClient(t)
	responder, _ := sequenceResponder(`{"lat": 1, "lon": 1}`)
	httpmock.RegisterResponder(http.MethodGet, fixURL, responder)

	src := New(client, Config{URL: fixURL, PollInterval: time.Hour})
	require.NoError(t, src.Start(t.Context(), func(radio.Position) {}))
	require.Error(t, src.Start(t.Context(), func(radio.Position) {}))
	require.NoError(t, src.Stop())
	require.NoError(t, src.Stop())
}

func TestParseFix(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantOK  bool
		wantErr bool
		check   func(t *testing.T, p radio.Position)
	}{
		{
			name:   "plain object",
			body:   `{"latitude": 51.5, "longitude": -0.12, "altitude": 11, "accuracy": 4, "timestamp": "2026-05-01T10:00:00Z"}`,
			wantOK: true,
			check: func(t *testing.T, p radio.Position) {
				t.Helper()
				assert.InDelta(t, 51.5, p.Lat, 1e-9)
				assert.InDelta(t, -0.12, p.Lon, 1e-9)
				assert.InDelta(t, 11.0, p.Altitude, 1e-9)
				assert.Nil(t, p.Speed)
				assert.Equal(t, time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC), p.Timestamp)
			},
		},
		{
			name:   "gpsd tpv",
			body:   `{"class": "TPV", "mode": 3, "lat": 60.17, "lon": 24.94, "alt": 20.5, "eph": 6, "speed": 1.5, "track": 270, "time": "2026-05-01T10:00:00.500Z"}`,
			wantOK: true,
			check: func(t *testing.T, p radio.Position) {
				t.Helper()
				assert.InDelta(t, 20.5, p.Altitude, 1e-9)
				assert.InDelta(t, 6.0, p.Accuracy, 1e-9)
				require.NotNil(t, p.Speed)
				assert.InDelta(t, 1.5, *p.Speed, 1e-9)
				require.NotNil(t, p.Bearing)
				assert.InDelta(t, 270.0, *p.Bearing, 1e-9)
			},
		},
		{name: "gpsd without fix", body: `{"class": "TPV", "mode": 1}`},
		{name: "gpsd sky report", body: `{"class": "SKY", "satellites": []}`},
		{name: "missing longitude", body: `{"lat": 1}`},
		{name: "out of range", body: `{"lat": 91, "lon": 0}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := jason.NewObjectFromReader(strings.NewReader(tt.body))
			require.NoError(t, err)

			pos, ok, err := ParseFix(obj)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.check != nil {
				tt.check(t, pos)
			}
		})
	}
}
