package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"pebfutar.app/internal/appconf"
	"pebfutar.app/internal/clock"
	"pebfutar.app/internal/favorites"
	"pebfutar.app/internal/geo"
	"pebfutar.app/internal/i18n"
	"pebfutar.app/internal/logging"
	"pebfutar.app/internal/metrics"
	"pebfutar.app/internal/presentation"
	"pebfutar.app/internal/settings"
	"pebfutar.app/internal/transit"
)

const (
	// DBStatsInterval is how often the SQLite settings pool is sampled.
	DBStatsInterval = 15 * time.Second

	defaultLoopBuffer = 64
)

// Application holds the long-lived collaborators shared by the front-ends
// and the debug server.
type Application struct {
	Config     appconf.Config
	Logger     *slog.Logger
	Clock      clock.Clock
	Metrics    *metrics.Metrics
	Localizer  *i18n.Catalog
	Transit    *transit.Client
	Settings   settings.Store
	Favorites  *favorites.Store
	Locator    geo.Locator
	Loop       *presentation.Loop
	Controller *presentation.Controller

	settingsCloser io.Closer
}

// Options overrides collaborators Build would otherwise derive from the
// configuration. Zero values pick the production defaults.
type Options struct {
	Renderer  presentation.Renderer
	Transport transit.Transport
	Locator   geo.Locator
	Clock     clock.Clock
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	// LoopBuffer is the depth of the controller's task queue.
	LoopBuffer int
}

// Build wires an Application from cfg. The caller runs App.Run and must
// Close it.
func Build(ctx context.Context, cfg appconf.Config, opts Options) (*Application, error) {
	if opts.Renderer == nil {
		return nil, errors.New("a renderer is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel, slog.LevelInfo), cfg.LogFormat)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	tz, err := cfg.TimeLocation()
	if err != nil {
		return nil, err
	}

	m := opts.Metrics
	if m == nil {
		m = metrics.NewWithLogger(logger)
	}
	catalog := i18n.New(cfg.Language)

	transport := opts.Transport
	if transport == nil {
		transport = transit.NewHTTPTransport(transit.HTTPOptions{
			Timeout:   cfg.API.Timeout,
			RateLimit: cfg.API.RateLimit,
			Burst:     cfg.API.Burst,
			UserAgent: cfg.API.UserAgent,
			Clock:     clk,
			Metrics:   m,
			Logger:    logger,
		})
	}
	client := transit.NewClient(transport, transit.Config{
		BaseURL:     cfg.API.BaseURL,
		Key:         cfg.API.Key,
		Granularity: float64(cfg.Stops.DistanceGranularity),
		Location:    tz,
	}, catalog, logger)

	store, closer, err := settings.Open(ctx, cfg.SettingsStoreConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}
	if sqlite, ok := store.(*settings.SQLiteStore); ok {
		m.StartDBStatsCollector(sqlite.DB(), DBStatsInterval)
	}

	locator := opts.Locator
	if locator == nil {
		static, err := geo.NewStaticLocator(cfg.Location.Latitude, cfg.Location.Longitude, cfg.Location.Accuracy)
		if err != nil {
			logging.SafeCloseWithLogging(closer, logger, "settings store")
			return nil, err
		}
		locator = static
	}
	locator = geo.NewCachingLocator(locator, clk, logger)

	favs := favorites.New(store, logger)
	buffer := opts.LoopBuffer
	if buffer <= 0 {
		buffer = defaultLoopBuffer
	}
	loop := presentation.NewLoop(buffer, logger)
	ctrl := presentation.New(presentation.Config{
		Transit:   client,
		Locator:   locator,
		Favorites: favs,
		Localizer: catalog,
		Renderer:  opts.Renderer,
		Scheduler: loop,
		LocationOptions: geo.Options{
			Timeout:      cfg.Location.Timeout,
			MaxAge:       cfg.Location.MaxAge,
			HighAccuracy: true,
		},
		RadiusMeters: cfg.Stops.RadiusMeters,
		Metrics:      m,
		Logger:       logger,
	})

	logging.LogOperation(logger, "application_built",
		slog.String("env", cfg.Env.String()),
		slog.String("language", catalog.Language().String()),
		slog.String("settings_backend", cfg.Settings.Backend))

	return &Application{
		Config:         cfg,
		Logger:         logger,
		Clock:          clk,
		Metrics:        m,
		Localizer:      catalog,
		Transit:        client,
		Settings:       store,
		Favorites:      favs,
		Locator:        locator,
		Loop:           loop,
		Controller:     ctrl,
		settingsCloser: closer,
	}, nil
}

// Run drives the controller loop until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	err := a.Loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Do runs fn against the controller on its loop and waits for it.
func (a *Application) Do(ctx context.Context, fn func(*presentation.Controller)) error {
	return a.Loop.Call(ctx, func() { fn(a.Controller) })
}

// Snapshot reads the controller state from the loop.
func (a *Application) Snapshot(ctx context.Context) (presentation.Snapshot, error) {
	var snap presentation.Snapshot
	err := a.Do(ctx, func(c *presentation.Controller) { snap = c.Snapshot() })
	return snap, err
}

// Close cancels outstanding requests and releases the settings backend.
func (a *Application) Close() {
	err := presentation.ErrLoopStopped
	if a.Loop.Running() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		err = a.Do(ctx, (*presentation.Controller).Close)
	}
	switch {
	case errors.Is(err, presentation.ErrLoopStopped):
		// Nothing else touches the controller once its loop has exited.
		a.Controller.Close()
	case err != nil:
		logging.LogError(a.Logger, "failed to stop controller", err)
	}
	a.Metrics.Shutdown()
	logging.SafeCloseWithLogging(a.settingsCloser, a.Logger, "settings store")
}
