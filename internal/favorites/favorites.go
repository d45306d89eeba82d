// Package favorites keeps the rider's favorite stops in a settings slot.
package favorites

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"pebfutar.app/internal/logging"
	"pebfutar.app/internal/models"
	"pebfutar.app/internal/settings"
)

// SettingKey is the slot holding the JSON array of favorites.
const SettingKey = "favorite_stops"

// Store is an ordered set of favorite stops keyed by stop id. The slot is
// read once, on first use; every change is written through immediately.
type Store struct {
	settings settings.Store
	logger   *slog.Logger

	mu     sync.Mutex
	loaded bool
	stops  []models.FavoriteStop
}

func New(s settings.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{settings: s, logger: logger.With(slog.String("component", "favorites"))}
}

// List returns the favorites in the order they were added.
func (s *Store) List(ctx context.Context) []models.FavoriteStop {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.load(ctx)
	return slices.Clone(s.stops)
}

func (s *Store) IsFavorite(ctx context.Context, stopID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.load(ctx)
	return s.index(stopID) >= 0
}

// SetFavorite adds or removes fav. Asking for the current state is a no-op
// and writes nothing. If the write fails the change is undone and the error
// returned, so the cache never drifts from the slot. Nothing is written while
// the slot cannot be read, since that would clobber it.
func (s *Store) SetFavorite(ctx context.Context, fav models.FavoriteStop, wanted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return err
	}

	i := s.index(fav.Stop.ID)
	var next []models.FavoriteStop
	switch {
	case wanted && i < 0:
		next = append(slices.Clone(s.stops), fav)
	case !wanted && i >= 0:
		next = slices.Delete(slices.Clone(s.stops), i, i+1)
	default:
		return nil
	}

	if err := s.persist(ctx, next); err != nil {
		logging.LogError(s.logger, "failed to persist favorites", err, slog.String("stop_id", fav.Stop.ID))
		return err
	}
	s.stops = next

	s.logger.Debug("favorite changed", slog.String("stop_id", fav.Stop.ID), slog.Bool("favorite", wanted),
		slog.Int("count", len(next)))
	return nil
}

func (s *Store) index(stopID string) int {
	return slices.IndexFunc(s.stops, func(f models.FavoriteStop) bool { return f.Stop.ID == stopID })
}

func (s *Store) persist(ctx context.Context, stops []models.FavoriteStop) error {
	if stops == nil {
		stops = []models.FavoriteStop{}
	}
	data, err := json.Marshal(stops)
	if err != nil {
		return fmt.Errorf("encoding favorites: %w", err)
	}
	return s.settings.WriteString(ctx, SettingKey, string(data))
}

// load reads the slot once. Missing or malformed data counts as no
// favorites; a read error leaves the store unloaded so the next call retries.
func (s *Store) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	raw, found, err := s.settings.ReadString(ctx, SettingKey)
	if err != nil {
		logging.LogError(s.logger, "failed to read favorites", err)
		return fmt.Errorf("reading favorites: %w", err)
	}

	s.loaded = true
	s.stops = nil
	if found {
		s.stops = decode(raw, s.logger)
	}
	s.logger.Debug("favorites loaded", slog.Int("count", len(s.stops)))
	return nil
}

// decode keeps the object entries of a JSON array, dropping anything else,
// entries without a stop id and repeated ids.
func decode(raw string, logger *slog.Logger) []models.FavoriteStop {
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		logger.Warn("ignoring malformed favorites", slog.String("error", err.Error()))
		return nil
	}

	out := make([]models.FavoriteStop, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		entry = bytes.TrimSpace(entry)
		if len(entry) == 0 || entry[0] != '{' {
			continue
		}
		var fav models.FavoriteStop
		if err := json.Unmarshal(entry, &fav); err != nil || fav.Stop.ID == "" {
			continue
		}
		if _, dup := seen[fav.Stop.ID]; dup {
			continue
		}
		seen[fav.Stop.ID] = struct{}{}
		out = append(out, fav)
	}
	return out
}
