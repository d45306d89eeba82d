// Package transit talks to a OneBusAway "where" API deployment and turns its
// payloads into display-ready summaries.
package transit

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"pebfutar.app/internal/i18n"
	"pebfutar.app/internal/logging"
	"pebfutar.app/internal/models"
)

// DefaultBaseURL is the BKK FUTÁR deployment.
const DefaultBaseURL = "http://futar.bkk.hu/bkk-utvonaltervezo-api/ws/otp/api/where/"

// Endpoint names, also used as metric labels.
const (
	EndpointStopsForLocation      = "stops-for-location"
	EndpointArrivalsAndDepartures = "arrivals-and-departures-for-stop"
	EndpointTripDetails           = "trip-details"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Key     string
	// Granularity overrides the distance rounding step. Zero rounds to the
	// accuracy of the reference fix, as the stop list always has.
	Granularity float64
	// Location converts trip times to wall-clock time. Nil means time.Local.
	Location *time.Location
}

// Client issues one request per call and keeps no state between calls.
type Client struct {
	transport Transport
	baseURL   string
	key       string
	gran      float64
	loc       *time.Location
	localizer i18n.Localizer
	logger    *slog.Logger
}

// NewClient builds a Client. A nil localizer falls back to English.
func NewClient(transport Transport, cfg Config, localizer i18n.Localizer, logger *slog.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	if localizer == nil {
		localizer = i18n.New("en")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{
		transport: transport,
		baseURL:   base,
		key:       cfg.Key,
		gran:      cfg.Granularity,
		loc:       loc,
		localizer: localizer,
		logger:    logger.With(slog.String("component", "transit")),
	}
}

func (c *Client) endpointURL(path string, q url.Values) string {
	if c.key != "" {
		if q == nil {
			q = url.Values{}
		}
		q.Set("key", c.key)
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// fetch runs one request and decodes its envelope. Every failure leaves as
// a *Error.
func fetch[T any](ctx context.Context, c *Client, endpoint, rawURL string) (*models.Response[T], error) {
	c.logger.Debug("request started", slog.String("endpoint", endpoint), slog.String("url", redactURL(rawURL)))

	body, err := c.transport.FetchText(withEndpoint(ctx, endpoint), rawURL)
	if err != nil {
		return nil, c.classify(endpoint, KindTransport, err)
	}

	resp, err := models.DecodeResponse[T]([]byte(body))
	if err != nil {
		return nil, c.classify(endpoint, KindParse, err)
	}
	return resp, nil
}

// classify wraps a failure of the given kind. A transport or server message
// is surfaced verbatim; everything else gets the localized generic message.
func (c *Client) classify(endpoint string, kind Kind, err error) error {
	e := &Error{Kind: kind, Endpoint: endpoint, Err: err}

	var failure *Failure
	var apiErr *models.APIError
	switch {
	case errors.As(err, &failure):
		e.Message = strings.TrimSpace(failure.Message)
	case errors.As(err, &apiErr):
		e.Kind = KindRemote
		e.Message = strings.TrimSpace(apiErr.Text)
	}

	if e.Message == "" {
		e.Message = c.localizer.Lookup(i18n.ErrorGenericComm)
		e.Generic = true
	}

	c.logger.Warn("request failed", slog.String("endpoint", endpoint), slog.String("error", e.Describe()))
	return e
}
