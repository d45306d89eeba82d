// Package settings persists small string values across sessions.
package settings

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Store is a persisted key-value slot. ReadString reports found=false for a
// key that was never written.
type Store interface {
	ReadString(ctx context.Context, key string) (value string, found bool, err error)
	WriteString(ctx context.Context, key, value string) error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Backend       string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open builds the configured store. The returned closer releases the
// backend's resources and is never nil.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, io.Closer, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nopCloser{}, nil
	case BackendSQLite:
		s, err := OpenSQLite(ctx, cfg.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case BackendRedis:
		s, err := NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown settings backend %q", cfg.Backend)
	}
}

// MemoryStore keeps values for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) ReadString(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) WriteString(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
