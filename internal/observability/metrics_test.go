package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/observability/metrics"
)

// NewMetrics uses a private registry, so concurrent calls must not collide.
func TestNewMetricsConcurrency(t *testing.T) {
	t.Parallel()
	const n = 20

	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			m, err := NewMetrics()
			if !assert.NoError(t, err) {
				return
			}
			assert.NotNil(t, m.Scanner)
			assert.NotNil(t, m.Datastore)
			assert.NotNil(t, m.MQTT)
			assert.NotNil(t, m.Notification)
			assert.NotNil(t, m.HTTP)
		})
	}
	wg.Wait()
}

func TestMetricsHandlerExposesScannerMetrics(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics()
	require.NoError(t, err)
	m.Scanner.RecordOperation(metrics.OpSighting, metrics.StatusDropped)

	mux := http.NewServeMux()
	m.RegisterHandlers(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "scanner_sightings_dropped_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewEndpointRequiresTelemetry(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics()
	require.NoError(t, err)

	_, err = NewEndpoint(&conf.Settings{}, m)
	require.Error(t, err)

	settings := &conf.Settings{Telemetry: conf.TelemetrySettings{Enabled: true, Listen: "127.0.0.1:0"}}
	e, err := NewEndpoint(settings, m)
	require.NoError(t, err)
	assert.Same(t, m, e.GetMetrics())
}
