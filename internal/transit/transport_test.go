package transit

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pebfutar.app/internal/i18n"
	"pebfutar.app/internal/logging"
	"pebfutar.app/internal/metrics"
)

func TestHTTPTransport_FetchText(t *testing.T) {
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		_, _ = w.Write([]byte(`{"code":200}`))
	}))
	defer server.Close()

	m := metrics.New()
	tr := NewHTTPTransport(HTTPOptions{Metrics: m, Logger: logging.Discard(), UserAgent: "futar-test"})

	body, err := tr.FetchText(withEndpoint(context.Background(), EndpointTripDetails), server.URL+"/trip-details.json")

	require.NoError(t, err)
	assert.Equal(t, `{"code":200}`, body)
	assert.Equal(t, "gzip", gotHeaders.Get("Accept-Encoding"))
	assert.Equal(t, "futar-test", gotHeaders.Get("User-Agent"))
	_, uuidErr := uuid.Parse(gotHeaders.Get("X-Request-ID"))
	assert.NoError(t, uuidErr)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransitRequestsTotal.WithLabelValues(EndpointTripDetails, metrics.OutcomeOK)))
}

func TestHTTPTransport_InflatesGzip(t *testing.T) {
	payload := fixture(t, "arrivals_and_departures_entry.json")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte(payload))
		_ = gz.Close()
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer server.Close()

	tr := NewHTTPTransport(HTTPOptions{})
	body, err := tr.FetchText(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, payload, body)
}

func TestHTTPTransport_BadStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"envelope text", http.StatusUnauthorized, `{"code":401,"text":"permission denied"}`, "permission denied"},
		{"status line", http.StatusServiceUnavailable, "<html>down</html>", "HTTP 503 Service Unavailable"},
		{"unknown status", 599, "", "HTTP 599"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			m := metrics.New()
			tr := NewHTTPTransport(HTTPOptions{Metrics: m})
			_, err := tr.FetchText(withEndpoint(context.Background(), EndpointStopsForLocation), server.URL)

			var failure *Failure
			require.True(t, errors.As(err, &failure))
			assert.Equal(t, tt.status, failure.StatusCode)
			assert.Equal(t, tt.message, failure.Message)
			assert.Equal(t, 1.0, testutil.ToFloat64(
				m.TransitRequestsTotal.WithLabelValues(EndpointStopsForLocation, metrics.OutcomeStatus)))
		})
	}
}

func TestHTTPTransport_ConnectionFailureHasNoMessage(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	tr := NewHTTPTransport(HTTPOptions{Timeout: time.Second})
	_, err := tr.FetchText(context.Background(), addr)

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Empty(t, failure.Message)
	assert.Error(t, failure.Err)
}

func TestHTTPTransport_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	tr := NewHTTPTransport(HTTPOptions{MaxBodyBytes: 16})
	_, err := tr.FetchText(context.Background(), server.URL)

	assert.ErrorIs(t, err, errBodyTooLarge)
}

func TestHTTPTransport_Throttled(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	m := metrics.New()
	tr := NewHTTPTransport(HTTPOptions{RateLimit: 0.001, Burst: 1, Metrics: m})

	_, err := tr.FetchText(context.Background(), server.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = tr.FetchText(ctx, server.URL)

	require.Error(t, err)
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransitRequestsTotal.WithLabelValues("unknown", metrics.OutcomeThrottled)))
}

func TestHTTPTransport_WithClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/where/stops-for-location.json", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(fixture(t, "stops_for_location.json")))
	}))
	defer server.Close()

	c := NewClient(NewHTTPTransport(HTTPOptions{}), Config{BaseURL: server.URL + "/where/", Key: "k"}, i18n.New("en"), nil)
	stops, err := c.FetchNearbyStops(context.Background(), 0, 0, 400, nil)

	require.NoError(t, err)
	assert.Len(t, stops, 4)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "http://api.test/x.json?key=REDACTED&lat=1", redactURL("http://api.test/x.json?lat=1&key=secret"))
	assert.Equal(t, "http://api.test/x.json", redactURL("http://api.test/x.json"))
}

func TestTransportFunc(t *testing.T) {
	var tr Transport = TransportFunc(func(_ context.Context, rawURL string) (string, error) {
		return rawURL, nil
	})
	body, err := tr.FetchText(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, "u", body)
}
