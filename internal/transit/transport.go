package transit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"

	"pebfutar.app/internal/clock"
	"pebfutar.app/internal/logging"
	"pebfutar.app/internal/metrics"
)

// Transport fetches a URL and returns the body as text. A failure should be
// a *Failure; its Message, when set, is shown to the rider verbatim.
type Transport interface {
	FetchText(ctx context.Context, rawURL string) (string, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, rawURL string) (string, error)

func (f TransportFunc) FetchText(ctx context.Context, rawURL string) (string, error) {
	return f(ctx, rawURL)
}

// DefaultMaxBodyBytes caps a response body. Trip details for long routes are
// the largest payloads and stay well below this.
const DefaultMaxBodyBytes = 8 << 20

// HTTPOptions configures an HTTPTransport. Zero values pick defaults.
type HTTPOptions struct {
	Timeout time.Duration
	// RateLimit is the sustained request rate per second; zero or less
	// disables throttling.
	RateLimit    float64
	Burst        int
	MaxBodyBytes int64
	UserAgent    string

	Client  *http.Client
	Clock   clock.Clock
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// HTTPTransport is the production Transport: throttled, gzip-aware GET
// requests, each tagged with a fresh X-Request-ID.
type HTTPTransport struct {
	client    *http.Client
	limiter   *rate.Limiter
	maxBody   int64
	userAgent string
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewHTTPTransport builds an HTTPTransport from opts.
func NewHTTPTransport(opts HTTPOptions) *HTTPTransport {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				// Accept-Encoding is set explicitly and inflated below.
				DisableCompression: true,
			},
		}
	}

	limit := rate.Inf
	burst := opts.Burst
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
		if burst <= 0 {
			burst = 1
		}
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	c := opts.Clock
	if c == nil {
		c = clock.RealClock{}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "futar"
	}

	return &HTTPTransport{
		client:    client,
		limiter:   rate.NewLimiter(limit, burst),
		maxBody:   maxBody,
		userAgent: userAgent,
		clock:     c,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
}

func (t *HTTPTransport) FetchText(ctx context.Context, rawURL string) (string, error) {
	endpoint := endpointFromContext(ctx)
	start := t.clock.Now()

	if err := t.limiter.Wait(ctx); err != nil {
		t.metrics.ObserveTransitRequest(endpoint, metrics.OutcomeThrottled, t.clock.Now().Sub(start))
		return "", &Failure{Err: fmt.Errorf("waiting for rate limiter: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &Failure{Err: fmt.Errorf("creating request: %w", err)}
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("X-Request-ID", reqID)

	resp, err := t.client.Do(req)
	if err != nil {
		t.finish(endpoint, rawURL, reqID, 0, metrics.OutcomeTransport, start)
		return "", &Failure{Err: fmt.Errorf("executing request: %w", err)}
	}
	defer logging.SafeCloseWithLogging(resp.Body, t.logger, "transit response body")

	body, readErr := t.readBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.finish(endpoint, rawURL, reqID, resp.StatusCode, metrics.OutcomeStatus, start)
		return "", &Failure{
			Message:    statusMessage(resp.StatusCode, body),
			StatusCode: resp.StatusCode,
		}
	}
	if readErr != nil {
		t.finish(endpoint, rawURL, reqID, resp.StatusCode, metrics.OutcomeTransport, start)
		return "", &Failure{StatusCode: resp.StatusCode, Err: readErr}
	}

	t.finish(endpoint, rawURL, reqID, resp.StatusCode, metrics.OutcomeOK, start)
	return string(body), nil
}

var errBodyTooLarge = errors.New("response body too large")

func (t *HTTPTransport) readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("opening gzip body: %w", err)
		}
		defer logging.SafeCloseWithLogging(gz, t.logger, "gzip reader")
		r = gz
	}

	body, err := io.ReadAll(io.LimitReader(r, t.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(body)) > t.maxBody {
		return nil, errBodyTooLarge
	}
	return body, nil
}

func (t *HTTPTransport) finish(endpoint, rawURL, reqID string, status int, outcome string, start time.Time) {
	elapsed := t.clock.Now().Sub(start)
	t.metrics.ObserveTransitRequest(endpoint, outcome, elapsed)
	logging.LogRequest(t.logger, http.MethodGet, redactURL(rawURL), status,
		float64(elapsed.Nanoseconds())/1e6,
		slog.String("endpoint", endpoint),
		slog.String("request_id", reqID),
		slog.String("component", "transit"))
}

// statusMessage prefers the "text" of an OneBusAway error envelope and falls
// back to the HTTP status line.
func statusMessage(code int, body []byte) string {
	var envelope struct {
		Text string `json:"text"`
	}
	if len(body) > 0 && json.Unmarshal(body, &envelope) == nil && strings.TrimSpace(envelope.Text) != "" {
		return strings.TrimSpace(envelope.Text)
	}
	if text := http.StatusText(code); text != "" {
		return fmt.Sprintf("HTTP %d %s", code, text)
	}
	return fmt.Sprintf("HTTP %d", code)
}

// redactURL strips the API key before a URL is logged.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

type endpointKey struct{}

func withEndpoint(ctx context.Context, endpoint string) context.Context {
	return context.WithValue(ctx, endpointKey{}, endpoint)
}

func endpointFromContext(ctx context.Context) string {
	if e, ok := ctx.Value(endpointKey{}).(string); ok && e != "" {
		return e
	}
	return "unknown"
}
