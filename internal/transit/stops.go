package transit

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strconv"

	"pebfutar.app/internal/models"
	"pebfutar.app/internal/utils"
)

// FetchNearbyStops lists the stops within radiusMeters of lat/lon, nearest
// first. Stops served by no route are left out. Distances are measured from
// ref; without ref every distance is zero and source order is kept.
func (c *Client) FetchNearbyStops(ctx context.Context, lat, lon float64, radiusMeters int, ref *models.Coordinates) ([]models.StopSummary, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("radius", strconv.Itoa(radiusMeters))

	resp, err := fetch[models.StopsForLocationData](ctx, c, EndpointStopsForLocation,
		c.endpointURL("stops-for-location.json", q))
	if err != nil {
		return nil, err
	}

	stops := c.summarizeStops(resp.Data, ref)
	c.logger.Debug("stops parsed", slog.Int("count", len(stops)))
	return stops, nil
}

func (c *Client) summarizeStops(data *models.StopsForLocationData, ref *models.Coordinates) []models.StopSummary {
	granularity := c.gran
	if granularity <= 0 && ref != nil {
		granularity = ref.AccuracyMeters
	}

	// One RouteRef per route id, shared by every stop that lists it.
	resolved := make(map[string]*models.RouteRef)
	lookup := func(id string) *models.RouteRef {
		if r, ok := resolved[id]; ok {
			return r
		}
		var ref *models.RouteRef
		if route, ok := data.References.Routes[id]; ok && route != nil {
			ref = toRouteRef(id, route)
		}
		resolved[id] = ref
		return ref
	}

	items := data.Items()
	out := make([]models.StopSummary, 0, len(items))
	for _, stop := range items {
		if len(stop.RouteIDs) == 0 {
			continue
		}

		routes := make([]*models.RouteRef, len(stop.RouteIDs))
		for i, id := range stop.RouteIDs {
			routes[i] = lookup(id)
		}

		summary := models.StopSummary{
			ID:     stop.ID,
			Name:   utils.FixAccents(stop.Name),
			Routes: routes,
			Title:  models.RouteTitle(routes),
		}
		if ref != nil {
			summary.DistanceMeters = utils.RoundedDistance(ref.Latitude, ref.Longitude, stop.Lat, stop.Lon, granularity)
		}
		out = append(out, summary)
	}

	slices.SortStableFunc(out, func(a, b models.StopSummary) int {
		return a.DistanceMeters - b.DistanceMeters
	})
	return out
}

func toRouteRef(id string, r *models.Route) *models.RouteRef {
	if r.ID != "" {
		id = r.ID
	}
	return &models.RouteRef{
		ID:          id,
		ShortName:   utils.FixAccents(r.ShortName),
		LongName:    utils.FixAccents(r.LongName),
		Type:        r.Type,
		Description: utils.FixAccents(r.Description),
	}
}
