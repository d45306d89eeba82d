// Package presentation drives the three rider-facing flows (nearby stops,
// departures from a stop, stops of a trip) and tells a Renderer what to show.
//
// A Controller is not safe for concurrent use: all of its methods, and every
// continuation its Scheduler posts back, must run on one goroutine (see Loop).
package presentation

import (
	"context"
	"fmt"
	"log/slog"

	"pebfutar.app/internal/geo"
	"pebfutar.app/internal/i18n"
	"pebfutar.app/internal/logging"
	"pebfutar.app/internal/metrics"
	"pebfutar.app/internal/models"
)

// TransitService is the part of transit.Client the controller uses.
type TransitService interface {
	FetchNearbyStops(ctx context.Context, lat, lon float64, radiusMeters int, ref *models.Coordinates) ([]models.StopSummary, error)
	FetchDeparturesForStop(ctx context.Context, stopID string) ([]models.DepartureSummary, error)
	FetchTripDetails(ctx context.Context, tripID string) ([]models.TripStopSummary, error)
}

// FavoritesService is the part of favorites.Store the controller uses.
type FavoritesService interface {
	List(ctx context.Context) []models.FavoriteStop
	IsFavorite(ctx context.Context, stopID string) bool
	SetFavorite(ctx context.Context, fav models.FavoriteStop, wanted bool) error
}

// DefaultRadiusMeters is the stop search radius.
const DefaultRadiusMeters = 400

// Config wires a Controller.
type Config struct {
	Transit   TransitService
	Locator   geo.Locator
	Favorites FavoritesService
	Localizer i18n.Localizer
	Renderer  Renderer
	Scheduler Scheduler

	LocationOptions geo.Options
	RadiusMeters    int

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// TripSelection is the departure a trip detail flow was started from.
type TripSelection struct {
	TripID string `json:"tripId"`
	Name   string `json:"name"`
}

const flowCount = 3

type Controller struct {
	transit   TransitService
	locator   geo.Locator
	favorites FavoritesService
	loc       i18n.Localizer
	render    Renderer
	sched     Scheduler
	locOpts   geo.Options
	radius    int
	metrics   *metrics.Metrics
	logger    *slog.Logger

	base       context.Context
	cancelBase context.CancelFunc

	states  [flowCount]ViewState
	gens    [flowCount]uint64
	cancels [flowCount]context.CancelFunc
	menus   [flowCount][]Section

	retry  RetrySlot
	status Status
	active Flow

	currentStop *models.StopSummary
	currentTrip *TripSelection
	favorite    bool

	// toggles counts started favorite toggles and toggled counts applied
	// ones. Favorite reads queued before either moved are out of date.
	toggles uint64
	toggled uint64
}

func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	loc := cfg.Localizer
	if loc == nil {
		loc = i18n.New("en")
	}
	radius := cfg.RadiusMeters
	if radius <= 0 {
		radius = DefaultRadiusMeters
	}
	locOpts := cfg.LocationOptions
	if locOpts == (geo.Options{}) {
		locOpts = geo.DefaultOptions()
	}

	base, cancel := context.WithCancel(context.Background())
	return &Controller{
		transit:    cfg.Transit,
		locator:    cfg.Locator,
		favorites:  cfg.Favorites,
		loc:        loc,
		render:     cfg.Renderer,
		sched:      cfg.Scheduler,
		locOpts:    locOpts,
		radius:     radius,
		metrics:    cfg.Metrics,
		logger:     logger.With(slog.String("component", "controller")),
		base:       base,
		cancelBase: cancel,
		status:     Status{Title: AppTitle},
		menus: [flowCount][]Section{
			FlowStops:      make([]Section, 3),
			FlowDepartures: make([]Section, 2),
			FlowTripDetail: make([]Section, 1),
		},
	}
}

// Close cancels every outstanding request. Late completions are dropped.
func (c *Controller) Close() {
	c.cancelBase()
	for f := range c.gens {
		c.gens[f]++
	}
}

// State returns the current state of a flow.
func (c *Controller) State(f Flow) ViewState {
	return c.states[f]
}

func (c *Controller) RetrySlot() RetrySlot {
	return c.retry
}

func (c *Controller) CurrentStop() (models.StopSummary, bool) {
	if c.currentStop == nil {
		return models.StopSummary{}, false
	}
	return *c.currentStop, true
}

func (c *Controller) CurrentTrip() (TripSelection, bool) {
	if c.currentTrip == nil {
		return TripSelection{}, false
	}
	return *c.currentTrip, true
}

// Menu returns a copy of a flow's current sections.
func (c *Controller) Menu(f Flow) []Section {
	return append([]Section(nil), c.menus[f]...)
}

// RefreshStops starts the stops flow: locate, then search around the fix.
func (c *Controller) RefreshStops() {
	gen, ctx := c.begin(FlowStops)
	c.setRetry(RetryNone)
	c.transition(FlowStops, Locating(), c.loc.Lookup(i18n.MsgLocation))
	c.refreshFavorites()
	c.setSection(FlowStops, StopsSectionTools, toolsSection(c.loc, i18n.BtnRefresh))

	c.async(FlowStops, gen, func() func() {
		fix, err := c.locator.Acquire(ctx, c.locOpts)
		return func() {
			if err != nil {
				// Location failures are not offered for retry; only a fresh
				// start recovers.
				c.transition(FlowStops, Failed(err.Error(), false), err.Error())
				return
			}
			c.searchStops(ctx, gen, fix)
		}
	})
}

func (c *Controller) searchStops(ctx context.Context, gen uint64, fix models.Coordinates) {
	c.setRetryFor(FlowStops, RetryNone)
	c.transition(FlowStops, Searching(), c.loc.Lookup(i18n.MsgStopSearch))

	c.async(FlowStops, gen, func() func() {
		stops, err := c.transit.FetchNearbyStops(ctx, fix.Latitude, fix.Longitude, c.radius, &fix)
		return func() {
			c.setRetryFor(FlowStops, RetryStops)
			switch {
			case err != nil:
				c.transition(FlowStops, Failed(err.Error(), true), err.Error())
			case len(stops) == 0:
				c.transition(FlowStops, Empty(), c.loc.Lookup(i18n.MsgNoStopsNearby))
			default:
				items := stopItems(stops)
				c.setSection(FlowStops, StopsSectionNearby, Section{Title: c.loc.Lookup(i18n.TitleNearbyStops), Items: items})
				c.transition(FlowStops, Content(items), "")
			}
		}
	})
}

// SelectStop starts the departures flow for stop. The stop is remembered so
// RefreshDepartures and Retry replay the same request.
func (c *Controller) SelectStop(stop models.StopSummary) {
	c.currentStop = &stop
	c.showDepartures(stop)
}

// RefreshDepartures replays the departures request for the selected stop.
func (c *Controller) RefreshDepartures() {
	if c.currentStop == nil {
		return
	}
	c.showDepartures(*c.currentStop)
}

func (c *Controller) showDepartures(stop models.StopSummary) {
	gen, ctx := c.begin(FlowDepartures)
	c.setRetry(RetryNone)
	c.transition(FlowDepartures, Searching(),
		i18n.Format(c.loc, i18n.MsgDepartureLoadingFormat, map[string]string{"stop": stop.Name}))
	toggles := c.toggles

	c.async(FlowDepartures, gen, func() func() {
		favorite := c.favorites.IsFavorite(ctx, stop.ID)
		deps, err := c.transit.FetchDeparturesForStop(ctx, stop.ID)
		return func() {
			c.setRetryFor(FlowDepartures, RetryDepartures)
			// A toggle started since the read owns the flag.
			if c.toggles == toggles {
				c.favorite = favorite
			}
			switch {
			case err != nil:
				c.transition(FlowDepartures, Failed(err.Error(), true), err.Error())
			case len(deps) == 0:
				c.transition(FlowDepartures, Empty(), c.loc.Lookup(i18n.MsgNoDepartures))
			default:
				items := departureItems(deps)
				c.menus[FlowDepartures][DeparturesSectionList] = Section{Title: stop.Name, Items: items}
				c.menus[FlowDepartures][DeparturesSectionTools] = c.departureTools()
				c.renderMenu(FlowDepartures)
				c.transition(FlowDepartures, Content(items), "")
			}
		}
	})
}

func (c *Controller) departureTools() Section {
	return toolsSection(c.loc, favoriteToolKey(c.favorite), i18n.BtnInfo, i18n.BtnRefresh)
}

// SelectDeparture starts the trip detail flow. Its failures are never
// offered for retry.
func (c *Controller) SelectDeparture(d models.DepartureSummary) {
	trip := TripSelection{TripID: d.TripID, Name: d.TripName()}
	c.currentTrip = &trip

	gen, ctx := c.begin(FlowTripDetail)
	c.setRetry(RetryNone)
	c.transition(FlowTripDetail, Searching(),
		i18n.Format(c.loc, i18n.MsgTripLoadingFormat, map[string]string{"trip": trip.Name}))

	c.async(FlowTripDetail, gen, func() func() {
		stops, err := c.transit.FetchTripDetails(ctx, trip.TripID)
		return func() {
			switch {
			case err != nil:
				c.transition(FlowTripDetail, Failed(err.Error(), false), err.Error())
			case len(stops) == 0:
				c.transition(FlowTripDetail, Empty(), c.loc.Lookup(i18n.MsgNoStops))
			default:
				items := tripItems(stops)
				c.setSection(FlowTripDetail, 0, Section{Title: trip.Name, Items: items})
				c.transition(FlowTripDetail, Content(items), "")
			}
		}
	})
}

// ShowStopDetail opens the route card of a stop.
func (c *Controller) ShowStopDetail(stop models.StopSummary) {
	c.logger.Debug("showing stop detail", slog.String("stop_id", stop.ID))
	c.render.Detail(stop.Name, StopDetailBody(stop))
	c.render.Show(ScreenStopDetail)
}

// ToggleFavorite flips the favorite state of the selected stop. View states
// are left alone; only the tools affordance and the favorites section change.
func (c *Controller) ToggleFavorite() {
	if c.currentStop == nil {
		return
	}
	stop := *c.currentStop
	ctx := c.base
	c.toggles++
	seq := c.toggles

	c.sched.Go(func() func() {
		wanted := !c.favorites.IsFavorite(ctx, stop.ID)
		err := c.favorites.SetFavorite(ctx, models.NewFavoriteStop(stop), wanted)
		now := c.favorites.IsFavorite(ctx, stop.ID)
		favs := c.favorites.List(ctx)
		return func() {
			if err != nil {
				logging.LogError(c.logger, "failed to change favorite", err, slog.String("stop_id", stop.ID))
			} else {
				c.logger.Debug("favorite toggled", slog.String("stop_id", stop.ID), slog.Bool("favorite", now))
			}
			if seq != c.toggles {
				// A later toggle renders fresher favorites.
				return
			}
			c.toggled++
			if c.currentStop != nil && c.currentStop.ID == stop.ID {
				c.favorite = now
				if len(c.menus[FlowDepartures][DeparturesSectionTools].Items) > 0 {
					c.setSection(FlowDepartures, DeparturesSectionTools, c.departureTools())
				}
			}
			c.setFavoritesSection(favs)
		}
	})
}

// Retry replays the flow named by the retry slot. It reports whether
// anything was replayed.
func (c *Controller) Retry() bool {
	switch c.retry {
	case RetryStops:
		c.logger.Debug("retrying", slog.String("flow", FlowStops.String()))
		c.metrics.ObserveRetry(FlowStops.String())
		c.RefreshStops()
		return true
	case RetryDepartures:
		if c.currentStop == nil {
			return false
		}
		c.logger.Debug("retrying", slog.String("flow", FlowDepartures.String()))
		c.metrics.ObserveRetry(FlowDepartures.String())
		c.RefreshDepartures()
		return true
	default:
		return false
	}
}

// Select handles a press on a menu row.
func (c *Controller) Select(f Flow, section, item int) error {
	it, err := c.item(f, section, item)
	if err != nil {
		return err
	}

	switch f {
	case FlowStops:
		switch section {
		case StopsSectionNearby, StopsSectionFavorites:
			if stop, ok := it.Payload.(models.StopSummary); ok {
				c.SelectStop(stop)
			}
		case StopsSectionTools:
			c.RefreshStops()
		}
	case FlowDepartures:
		switch section {
		case DeparturesSectionList:
			if d, ok := it.Payload.(models.DepartureSummary); ok {
				c.SelectDeparture(d)
			}
		case DeparturesSectionTools:
			switch item {
			case DepartureToolFavorite:
				c.ToggleFavorite()
			case DepartureToolInfo:
				if c.currentStop != nil {
					c.ShowStopDetail(*c.currentStop)
				}
			case DepartureToolRefresh:
				c.RefreshDepartures()
			}
		}
	}
	return nil
}

// LongSelect handles a long press; on a stop row it opens the stop detail.
func (c *Controller) LongSelect(f Flow, section, item int) error {
	it, err := c.item(f, section, item)
	if err != nil {
		return err
	}
	if stop, ok := it.Payload.(models.StopSummary); ok && f == FlowStops {
		c.ShowStopDetail(stop)
	}
	return nil
}

func (c *Controller) item(f Flow, section, item int) (Item, error) {
	if f < 0 || f >= flowCount {
		return Item{}, fmt.Errorf("unknown flow %d", int(f))
	}
	menu := c.menus[f]
	if section < 0 || section >= len(menu) {
		return Item{}, fmt.Errorf("%s has no section %d", f, section)
	}
	items := menu[section].Items
	if item < 0 || item >= len(items) {
		return Item{}, fmt.Errorf("%s section %d has no item %d", f, section, item)
	}
	return items[item], nil
}

// begin supersedes any outstanding request of the flow and returns the new
// generation with a fresh request context.
func (c *Controller) begin(f Flow) (uint64, context.Context) {
	if cancel := c.cancels[f]; cancel != nil {
		cancel()
	}
	c.gens[f]++
	ctx, cancel := context.WithCancel(c.base)
	c.cancels[f] = cancel
	c.active = f
	return c.gens[f], ctx
}

func (c *Controller) current(f Flow, gen uint64) bool {
	return c.gens[f] == gen
}

// async runs work through the scheduler and drops its continuation if the
// flow has moved on by the time it arrives. A panicking collaborator fails
// the flow instead of the process.
func (c *Controller) async(f Flow, gen uint64, work func() func()) {
	c.sched.Go(func() (cont func()) {
		defer func() {
			if r := recover(); r != nil {
				panicked := fmt.Sprint(r)
				cont = func() {
					c.logger.Error("collaborator panicked", slog.String("flow", f.String()), slog.String("panic", panicked))
					msg := c.loc.Lookup(i18n.ErrorGenericComm)
					c.transition(f, Failed(msg, false), msg)
				}
			}
			inner := cont
			if inner == nil {
				return
			}
			cont = func() {
				if !c.current(f, gen) {
					c.logger.Debug("discarding stale completion", slog.String("flow", f.String()), slog.Uint64("generation", gen))
					c.metrics.ObserveStale(f.String())
					return
				}
				inner()
			}
		}()
		return work()
	})
}

// transition replaces the flow's state and renders it. Only the most
// recently started flow drives the status card and the foreground screen.
func (c *Controller) transition(f Flow, next ViewState, statusBody string) {
	prev := c.states[f]
	c.states[f] = next
	c.metrics.ObserveTransition(f.String(), next.Phase.String())
	c.logger.Debug("transition", slog.String("flow", f.String()),
		slog.String("from", prev.Phase.String()), slog.String("to", next.Phase.String()))
	if next.Phase == PhaseError {
		c.logger.Warn("flow failed", slog.String("flow", f.String()), slog.String("message", next.Message),
			slog.Bool("retryable", next.Retryable))
	}

	if f != c.active {
		return
	}
	if next.Phase == PhaseContent {
		c.render.Show(screenFor(f))
		return
	}
	c.status.Body = statusBody
	c.render.Status(c.status)
	c.render.Show(ScreenStatus)
}

// setRetryFor changes the retry slot on behalf of f, unless another flow
// has been started since.
func (c *Controller) setRetryFor(f Flow, slot RetrySlot) {
	if f == c.active {
		c.setRetry(slot)
	}
}

func (c *Controller) setRetry(slot RetrySlot) {
	if c.retry == slot {
		return
	}
	c.logger.Debug("retry slot changed", slog.String("from", c.retry.String()), slog.String("to", slot.String()))
	c.retry = slot
	c.status.Retry = slot != RetryNone
	c.render.Status(c.status)
}

func (c *Controller) setSection(f Flow, index int, s Section) {
	c.menus[f][index] = s
	c.renderMenu(f)
}

func (c *Controller) renderMenu(f Flow) {
	c.render.Sections(f, c.Menu(f))
}

func (c *Controller) refreshFavorites() {
	ctx := c.base
	toggles, toggled := c.toggles, c.toggled
	c.sched.Go(func() func() {
		favs := c.favorites.List(ctx)
		return func() {
			if c.toggles != toggles || c.toggled != toggled {
				c.logger.Debug("discarding favorites read older than a toggle")
				return
			}
			c.setFavoritesSection(favs)
		}
	})
}

func (c *Controller) setFavoritesSection(favs []models.FavoriteStop) {
	c.setSection(FlowStops, StopsSectionFavorites,
		Section{Title: c.loc.Lookup(i18n.TitleFavoriteStops), Items: favoriteItems(favs)})
}

// Snapshot is a read-only copy of the controller state for diagnostics.
type Snapshot struct {
	States      map[string]ViewState `json:"states"`
	Retry       string               `json:"retry"`
	Active      string               `json:"active"`
	Status      Status               `json:"status"`
	CurrentStop *models.StopSummary  `json:"currentStop,omitempty"`
	CurrentTrip *TripSelection       `json:"currentTrip,omitempty"`
	Favorite    bool                 `json:"favorite"`
}

func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		States:   make(map[string]ViewState, flowCount),
		Retry:    c.retry.String(),
		Active:   c.active.String(),
		Status:   c.status,
		Favorite: c.favorite,
	}
	for f := Flow(0); f < flowCount; f++ {
		s.States[f.String()] = c.states[f]
	}
	if stop, ok := c.CurrentStop(); ok {
		s.CurrentStop = &stop
	}
	if trip, ok := c.CurrentTrip(); ok {
		s.CurrentTrip = &trip
	}
	return s
}
