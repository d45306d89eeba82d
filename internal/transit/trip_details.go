package transit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"pebfutar.app/internal/models"
	"pebfutar.app/internal/utils"
)

// FetchTripDetails lists the calls of a trip in order. Every stop time must
// resolve against the stop reference table and carry a time; one that does
// not fails the whole request, since the list is positional.
func (c *Client) FetchTripDetails(ctx context.Context, tripID string) ([]models.TripStopSummary, error) {
	q := url.Values{}
	q.Set("tripId", tripID)

	resp, err := fetch[models.TripDetailsData](ctx, c, EndpointTripDetails, c.endpointURL("trip-details.json", q))
	if err != nil {
		return nil, err
	}

	if resp.Data.Entry == nil {
		return nil, c.classify(EndpointTripDetails, KindParse, errors.New("response has no trip entry"))
	}

	stopTimes := resp.Data.StopTimes()
	out := make([]models.TripStopSummary, 0, len(stopTimes))
	for i, st := range stopTimes {
		stop, ok := resp.Data.References.Stops[st.StopID]
		if !ok || stop == nil {
			return nil, c.classify(EndpointTripDetails, KindParse,
				fmt.Errorf("stop time %d: stop %q not in references", i, st.StopID))
		}

		at := st.EffectiveArrival()
		if at == 0 {
			return nil, c.classify(EndpointTripDetails, KindParse,
				fmt.Errorf("stop time %d: stop %q has no arrival or departure time", i, st.StopID))
		}
		arrival := time.Unix(at, 0).In(c.loc)
		out = append(out, models.TripStopSummary{
			StopName:      utils.FixAccents(stop.Name),
			ArrivalHour:   arrival.Hour(),
			ArrivalMinute: arrival.Minute(),
			Raw:           st,
		})
	}

	c.logger.Debug("trip details parsed", slog.String("trip_id", tripID), slog.Int("count", len(out)))
	return out, nil
}
