package presentation

import (
	"context"
	"errors"
	"sync"

	"pebfutar.app/internal/favorites"
	"pebfutar.app/internal/geo"
	"pebfutar.app/internal/i18n"
	"pebfutar.app/internal/models"
	"pebfutar.app/internal/settings"
)

// manualScheduler queues work so tests decide when and in which order
// completions arrive. The test goroutine plays the loop.
type manualScheduler struct {
	queue []func() func()
}

func (s *manualScheduler) Go(work func() func()) {
	s.queue = append(s.queue, work)
}

func (s *manualScheduler) pending() int {
	return len(s.queue)
}

// run executes the i-th queued work item and its continuation.
func (s *manualScheduler) run(i int) {
	work := s.queue[i]
	s.queue = append(s.queue[:i:i], s.queue[i+1:]...)
	if cont := work(); cont != nil {
		cont()
	}
}

// work executes the i-th queued work item and hands back its continuation
// so the test can deliver it later.
func (s *manualScheduler) work(i int) func() {
	work := s.queue[i]
	s.queue = append(s.queue[:i:i], s.queue[i+1:]...)
	if cont := work(); cont != nil {
		return cont
	}
	return func() {}
}

func (s *manualScheduler) drain() {
	for len(s.queue) > 0 {
		s.run(0)
	}
}

type fakeTransit struct {
	mu sync.Mutex

	stops    []models.StopSummary
	stopsErr error
	deps     map[string][]models.DepartureSummary
	depsErr  error
	trip     []models.TripStopSummary
	tripErr  error
	panicOn  string

	stopCalls  int
	depCalls   []string
	tripCalls  []string
	lastRadius int
	lastRef    *models.Coordinates
}

func (f *fakeTransit) FetchNearbyStops(_ context.Context, _, _ float64, radius int, ref *models.Coordinates) ([]models.StopSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	f.lastRadius = radius
	f.lastRef = ref
	return f.stops, f.stopsErr
}

func (f *fakeTransit) FetchDeparturesForStop(_ context.Context, stopID string) ([]models.DepartureSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.depCalls = append(f.depCalls, stopID)
	if stopID == f.panicOn {
		panic("departures for " + stopID)
	}
	return f.deps[stopID], f.depsErr
}

func (f *fakeTransit) FetchTripDetails(_ context.Context, tripID string) ([]models.TripStopSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tripCalls = append(f.tripCalls, tripID)
	return f.trip, f.tripErr
}

type fakeRenderer struct {
	sections map[Flow][]Section
	statuses []Status
	screens  []Screen
	detail   [2]string
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{sections: make(map[Flow][]Section)}
}

func (r *fakeRenderer) Sections(flow Flow, sections []Section) { r.sections[flow] = sections }
func (r *fakeRenderer) Status(status Status)                   { r.statuses = append(r.statuses, status) }
func (r *fakeRenderer) Detail(title, body string)              { r.detail = [2]string{title, body} }
func (r *fakeRenderer) Show(screen Screen)                     { r.screens = append(r.screens, screen) }

func (r *fakeRenderer) lastStatus() Status {
	if len(r.statuses) == 0 {
		return Status{}
	}
	return r.statuses[len(r.statuses)-1]
}

func (r *fakeRenderer) lastScreen() Screen {
	if len(r.screens) == 0 {
		return -1
	}
	return r.screens[len(r.screens)-1]
}

var errOffline = errors.New("HTTP 503 Service Unavailable")

type fixture struct {
	ctrl      *Controller
	sched     *manualScheduler
	transit   *fakeTransit
	render    *fakeRenderer
	favorites *favorites.Store
	slot      *settings.MemoryStore
	locator   geo.Locator
}

func newFixture(locator geo.Locator) *fixture {
	if locator == nil {
		locator = &geo.StaticLocator{Fix: models.Coordinates{Latitude: 47.4979, Longitude: 19.0402, AccuracyMeters: 25}}
	}
	f := &fixture{
		sched:   &manualScheduler{},
		transit: &fakeTransit{deps: make(map[string][]models.DepartureSummary)},
		render:  newFakeRenderer(),
		slot:    settings.NewMemoryStore(),
		locator: locator,
	}
	f.favorites = favorites.New(f.slot, nil)
	f.ctrl = New(Config{
		Transit:   f.transit,
		Locator:   locator,
		Favorites: f.favorites,
		Localizer: i18n.New("en"),
		Renderer:  f.render,
		Scheduler: f.sched,
	})
	return f
}

func route(id, short string, typ int, desc string) *models.RouteRef {
	return &models.RouteRef{ID: id, ShortName: short, Type: typ, Description: desc}
}

func stop(id, name string, distance int, routes ...*models.RouteRef) models.StopSummary {
	return models.StopSummary{
		ID:             id,
		Name:           name,
		DistanceMeters: distance,
		Routes:         routes,
		Title:          models.RouteTitle(routes),
	}
}

func eta(ms int64) *int64 {
	return &ms
}
