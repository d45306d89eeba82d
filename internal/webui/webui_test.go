package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pebfutar.app/internal/appconf"
	"pebfutar.app/internal/presentation"
)

func serve(t *testing.T, webUI *WebUI, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	webUI.Routes().ServeHTTP(rr, req)
	return rr
}

func TestDebugIndexHandler_ProductionReturns404(t *testing.T) {
	cfg := testConfig()
	cfg.Env = appconf.Production
	webUI := newTestWebUI(t, cfg, true)

	rr := serve(t, webUI, "/debug?dataType=state")

	assert.Equal(t, http.StatusNotFound, rr.Code, "Should return 404 in Production")
}

func TestDebugIndexHandler_DataTypes(t *testing.T) {
	webUI := newTestWebUI(t, testConfig(), true)

	tests := []struct {
		dataType string
		title    string
		contains []string
		absent   []string
	}{
		{dataType: "state", title: "Controller - State", contains: []string{"idle"}},
		{dataType: "menus", title: "Controller - Menus", contains: []string{"Stops"}},
		{dataType: "favorites", title: "Favorites"},
		{dataType: "config", title: "Configuration", contains: []string{"REDACTED", "futar.bkk.hu"}, absent: []string{"secret-api-key"}},
		{dataType: "", title: "Choose a data type", contains: []string{"Please use one of the following"}},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			rr := serve(t, webUI, "/debug?dataType="+tt.dataType)

			require.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
			body := rr.Body.String()
			assert.Contains(t, body, "<h1>"+tt.title+"</h1>")
			for _, s := range tt.contains {
				assert.Contains(t, body, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, body, s)
			}
		})
	}
}

func TestDebugIndexHandler_LoopDown(t *testing.T) {
	webUI := newTestWebUI(t, testConfig(), false)

	rr := serve(t, webUI, "/debug?dataType=state")

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHealthHandler(t *testing.T) {
	t.Run("running", func(t *testing.T) {
		webUI := newTestWebUI(t, testConfig(), true)
		rr := serve(t, webUI, "/healthz")

		require.Equal(t, http.StatusOK, rr.Code)
		var resp HealthResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "ok", resp.Status)
	})

	t.Run("stopped", func(t *testing.T) {
		webUI := newTestWebUI(t, testConfig(), false)
		rr := serve(t, webUI, "/healthz")

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		var resp HealthResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "unavailable", resp.Status)
		assert.NotEmpty(t, resp.Detail)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	webUI := newTestWebUI(t, testConfig(), true)
	serve(t, webUI, "/healthz")

	rr := serve(t, webUI, "/metrics")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "futar_http_requests_total")
	assert.Equal(t, 1.0, testutil.ToFloat64(webUI.Metrics.HTTPRequestsTotal.WithLabelValues("GET", "GET /healthz", "200")))
}

func TestTokenGuard(t *testing.T) {
	cfg := testConfig()
	cfg.Debug.Token = "letmein"
	webUI := newTestWebUI(t, cfg, true)

	assert.Equal(t, http.StatusUnauthorized, serve(t, webUI, "/debug?dataType=state").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, webUI, "/metrics?key=wrong").Code)
	assert.Equal(t, http.StatusOK, serve(t, webUI, "/metrics?key=letmein").Code)
	assert.Equal(t, http.StatusOK, serve(t, webUI, "/healthz").Code)

	rr := serve(t, webUI, "/debug?dataType=state&key=letmein")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "&amp;key=letmein")
}

func TestStaticHandler(t *testing.T) {
	webUI := newTestWebUI(t, testConfig(), false)

	tests := []struct {
		target      string
		status      int
		contentType string
	}{
		{target: "/", status: http.StatusOK, contentType: "text/html"},
		{target: "/index.html", status: http.StatusOK, contentType: "text/html"},
		{target: "/app.js", status: http.StatusOK, contentType: "text/javascript"},
		{target: "/app.css", status: http.StatusOK, contentType: "text/css"},
		{target: "/missing.js", status: http.StatusNotFound},
		{target: "/config.yaml", status: http.StatusNotFound},
		{target: "/static/index.html", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := serve(t, webUI, tt.target)
			assert.Equal(t, tt.status, rr.Code)
			if tt.contentType != "" {
				assert.Contains(t, rr.Header().Get("Content-Type"), tt.contentType)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetRequestID(r.Context())))
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "valid id is kept", incoming: "abc-123.def:4", keep: true},
		{name: "missing id is minted"},
		{name: "invalid id is replaced", incoming: "<script>"},
		{name: "long id is replaced", incoming: strings.Repeat("a", 129)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set("X-Request-ID", tt.incoming)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			id := rr.Header().Get("X-Request-ID")
			assert.Equal(t, id, rr.Body.String())
			if tt.keep {
				assert.Equal(t, tt.incoming, id)
			} else {
				assert.Len(t, id, 36)
			}
		})
	}
}

func TestStatusRecorder_HijackUnsupported(t *testing.T) {
	rw := &statusRecorder{ResponseWriter: httptest.NewRecorder()}

	_, _, err := rw.Hijack()

	assert.Error(t, err)
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) Frame {
	t.Helper()
	var f Frame
	require.NoError(t, wsjson.Read(ctx, conn, &f))
	return f
}

func TestWebsocket_DrivesController(t *testing.T) {
	webUI := newTestWebUI(t, testConfig(), true)
	srv := httptest.NewServer(webUI.Routes())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": "ping"}))
	assert.Equal(t, "pong", readFrame(t, ctx, conn).Type)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{not json")))
	assert.Equal(t, "error", readFrame(t, ctx, conn).Type)

	require.NoError(t, wsjson.Write(ctx, conn, presentation.Command{Kind: presentation.CommandRetry}))
	rejected := readFrame(t, ctx, conn)
	assert.Equal(t, "error", rejected.Type)
	assert.Equal(t, presentation.ErrNothingToRetry.Error(), rejected.Message)

	require.NoError(t, wsjson.Write(ctx, conn, presentation.Command{Kind: presentation.CommandRefresh, Flow: presentation.FlowStops}))

	for {
		f := readFrame(t, ctx, conn)
		if f.Type == "show" && f.Screen == presentation.ScreenStops.String() {
			break
		}
	}

	snap, err := webUI.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, presentation.PhaseContent, snap.States["stops"].Phase)
	assert.Equal(t, 1, webUI.Hub.ClientCount())
}
