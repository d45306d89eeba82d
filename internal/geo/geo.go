// Package geo acquires the rider's position.
package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pebfutar.app/internal/clock"
	"pebfutar.app/internal/logging"
	"pebfutar.app/internal/models"
	"pebfutar.app/internal/utils"
)

// Options is the acquisition policy.
type Options struct {
	// Timeout bounds one acquisition.
	Timeout time.Duration
	// MaxAge is how old a cached fix may be and still be returned.
	MaxAge       time.Duration
	HighAccuracy bool
}

// DefaultOptions is the policy the stop list has always used.
func DefaultOptions() Options {
	return Options{Timeout: 15 * time.Second, MaxAge: 30 * time.Second, HighAccuracy: true}
}

// Code follows the W3C geolocation error codes.
type Code int

const (
	PermissionDenied    Code = 1
	PositionUnavailable Code = 2
	Timeout             Code = 3
)

func (c Code) String() string {
	switch c {
	case PermissionDenied:
		return "permission_denied"
	case PositionUnavailable:
		return "position_unavailable"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("code_%d", int(c))
	}
}

// Error is a failed acquisition. Message is shown to the rider as is.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Locator produces one fix per call, or an *Error.
type Locator interface {
	Acquire(ctx context.Context, opts Options) (models.Coordinates, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context, opts Options) (models.Coordinates, error)

func (f LocatorFunc) Acquire(ctx context.Context, opts Options) (models.Coordinates, error) {
	return f(ctx, opts)
}

// StaticLocator always reports the same fix, e.g. one taken from configuration.
type StaticLocator struct {
	Fix models.Coordinates
}

// NewStaticLocator validates the coordinates up front.
func NewStaticLocator(lat, lon, accuracy float64) (*StaticLocator, error) {
	if !utils.IsValidLatLon(lat, lon) {
		return nil, fmt.Errorf("invalid coordinates %v,%v", lat, lon)
	}
	return &StaticLocator{Fix: models.Coordinates{Latitude: lat, Longitude: lon, AccuracyMeters: accuracy}}, nil
}

func (s *StaticLocator) Acquire(ctx context.Context, _ Options) (models.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return models.Coordinates{}, &Error{Code: Timeout, Message: "Location request cancelled", Err: err}
	}
	return s.Fix, nil
}

// Unavailable is a Locator with no position source.
type Unavailable struct {
	Message string
}

func (u Unavailable) Acquire(context.Context, Options) (models.Coordinates, error) {
	msg := u.Message
	if msg == "" {
		msg = "Position unavailable"
	}
	return models.Coordinates{}, &Error{Code: PositionUnavailable, Message: msg}
}

// CachingLocator wraps a Locator with the acquisition policy: a fix younger
// than MaxAge is reused, and a fresh acquisition is cut off after Timeout.
type CachingLocator struct {
	next   Locator
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	last    models.Coordinates
	takenAt time.Time
	hasFix  bool
}

func NewCachingLocator(next Locator, c clock.Clock, logger *slog.Logger) *CachingLocator {
	if c == nil {
		c = clock.RealClock{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &CachingLocator{next: next, clock: c, logger: logger.With(slog.String("component", "geo"))}
}

func (l *CachingLocator) Acquire(ctx context.Context, opts Options) (models.Coordinates, error) {
	if fix, ok := l.cached(opts.MaxAge); ok {
		l.logger.Debug("reusing cached fix", slog.Float64("lat", fix.Latitude), slog.Float64("lon", fix.Longitude))
		return fix, nil
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	fix, err := l.next.Acquire(ctx, opts)
	if err != nil {
		err = normalize(ctx, err)
		var gerr *Error
		if errors.As(err, &gerr) {
			l.logger.Warn("location error", slog.String("code", gerr.Code.String()), slog.String("message", gerr.Message))
		}
		return models.Coordinates{}, err
	}

	l.mu.Lock()
	l.last, l.takenAt, l.hasFix = fix, l.clock.Now(), true
	l.mu.Unlock()

	l.logger.Debug("location acquired", slog.Float64("lat", fix.Latitude), slog.Float64("lon", fix.Longitude),
		slog.Float64("accuracy", fix.AccuracyMeters))
	return fix, nil
}

func (l *CachingLocator) cached(maxAge time.Duration) (models.Coordinates, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.hasFix || maxAge <= 0 {
		return models.Coordinates{}, false
	}
	if l.clock.Now().Sub(l.takenAt) > maxAge {
		return models.Coordinates{}, false
	}
	return l.last, true
}

// normalize turns any failure into an *Error.
func normalize(ctx context.Context, err error) error {
	var gerr *Error
	if errors.As(err, &gerr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Code: Timeout, Message: "Timeout expired", Err: err}
	}
	return &Error{Code: PositionUnavailable, Message: err.Error(), Err: err}
}
