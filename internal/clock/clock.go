// Package clock abstracts "now" so fix-age checks, countdowns and request
// timings can be driven deterministically in tests.
package clock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
	NowUnixMilli() int64
}

// RealClock reads the system time.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

// MockClock is a settable, thread-safe clock for tests.
type MockClock struct {
	currentTime time.Time
	mu          sync.Mutex
}

// NewMockClock creates a MockClock frozen at t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime
}

func (m *MockClock) NowUnixMilli() int64 {
	return m.Now().UnixMilli()
}

// Set moves the clock to t.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = t
}

// Advance moves the clock by d; negative durations go backwards.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.currentTime.Add(d)
}

// EnvironmentClock reports the time held in an environment variable, falling
// back to the system time when the variable is unset or unparsable. It lets a
// demo session run against a recorded API snapshot.
type EnvironmentClock struct {
	envVar   string
	location *time.Location
}

// NewEnvironmentClock reads envVar on every call. location is used for values
// without a zone offset.
func NewEnvironmentClock(envVar string, location *time.Location) *EnvironmentClock {
	return &EnvironmentClock{envVar: envVar, location: location}
}

func (e *EnvironmentClock) Now() time.Time {
	t, err := e.fromEnv()
	if err == nil {
		return t
	}
	slog.Debug("environment clock falling back to system time",
		slog.String("envVar", e.envVar), slog.String("reason", err.Error()))
	return time.Now()
}

func (e *EnvironmentClock) NowUnixMilli() int64 {
	return e.Now().UnixMilli()
}

func (e *EnvironmentClock) fromEnv() (time.Time, error) {
	if e.envVar == "" {
		return time.Time{}, errors.New("environment variable name not configured")
	}
	value := strings.TrimSpace(os.Getenv(e.envVar))
	if value == "" {
		return time.Time{}, errors.New("environment variable is empty: " + e.envVar)
	}
	return ParseTime(value, e.location)
}

// ParseTime accepts RFC3339, or a zone-less "2006-01-02 15:04:05" /
// "2006-01-02T15:04:05" / "2006-01-02" interpreted in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if loc == nil {
		return time.Time{}, errors.New("timezone not configured")
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time %q: expected RFC3339 or YYYY-MM-DD[ HH:MM:SS]", s)
}
