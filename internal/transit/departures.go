package transit

import (
	"context"
	"log/slog"
	"net/url"

	"pebfutar.app/internal/models"
	"pebfutar.app/internal/utils"
)

// FetchDeparturesForStop lists the upcoming departures from a stop. ETAs are
// measured against the server's currentTime, not the local clock.
func (c *Client) FetchDeparturesForStop(ctx context.Context, stopID string) ([]models.DepartureSummary, error) {
	rawURL := c.endpointURL("arrivals-and-departures-for-stop/"+url.PathEscape(stopID)+".json", nil)

	resp, err := fetch[models.ArrivalsAndDeparturesData](ctx, c, EndpointArrivalsAndDepartures, rawURL)
	if err != nil {
		return nil, err
	}

	items := resp.Data.Items()
	out := make([]models.DepartureSummary, 0, len(items))
	for _, ad := range items {
		d := models.DepartureSummary{
			RouteID:        ad.RouteID,
			TripID:         ad.TripID,
			RouteShortName: utils.FixAccents(ad.RouteShortName),
			TripHeadsign:   utils.FixAccents(ad.TripHeadsign),
		}
		if at := ad.ArrivalTime(); at != 0 {
			eta := at - resp.CurrentTime
			d.ETAMillis = &eta
		}
		out = append(out, d)
	}

	c.logger.Debug("departures parsed", slog.String("stop_id", stopID), slog.Int("count", len(out)))
	return out, nil
}
