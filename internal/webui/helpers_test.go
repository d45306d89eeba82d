package webui

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pebfutar.app/internal/app"
	"pebfutar.app/internal/appconf"
	"pebfutar.app/internal/logging"
	"pebfutar.app/internal/metrics"
	"pebfutar.app/internal/transit"
)

const stopsBody = `{
  "code": 200,
  "currentTime": 1700000000000,
  "data": {
    "list": [
      {"id": "BKK_F01080", "name": "Oktogon", "lat": 47.5055, "lon": 19.0632, "routeIds": ["BKK_0060"]}
    ],
    "references": {"routes": {"BKK_0060": {"id": "BKK_0060", "shortName": "6", "type": 0, "description": "Nagykörút"}}}
  }
}`

func testConfig() appconf.Config {
	cfg := appconf.Default()
	cfg.Env = appconf.Test
	cfg.API.Key = "secret-api-key"
	return cfg
}

// newTestWebUI builds a WebUI over a real Application whose transport
// serves stopsBody. When run is true the controller loop is started.
func newTestWebUI(t *testing.T, cfg appconf.Config, run bool) *WebUI {
	t.Helper()
	logger := logging.Discard()
	m := metrics.NewWithLogger(logger)
	hub := NewHub(m, logger)

	a, err := app.Build(context.Background(), cfg, app.Options{
		Renderer: hub,
		Transport: transit.TransportFunc(func(context.Context, string) (string, error) {
			return stopsBody, nil
		}),
		Logger:  logger,
		Metrics: m,
	})
	require.NoError(t, err)

	if run {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = a.Run(ctx)
		}()
		require.Eventually(t, a.Loop.Running, time.Second, time.Millisecond)
		t.Cleanup(func() {
			cancel()
			<-done
		})
	}
	t.Cleanup(a.Close)
	return New(a, hub)
}
