package models

import (
	"fmt"
	"math"
	"strings"
)

// Coordinates is one location fix.
type Coordinates struct {
	Latitude       float64 `json:"lat"`
	Longitude      float64 `json:"lon"`
	AccuracyMeters float64 `json:"accuracy"`
}

// RouteRef is a normalized route. Stops share RouteRef pointers taken from
// the response's reference table.
type RouteRef struct {
	ID          string `json:"id"`
	ShortName   string `json:"shortName,omitempty"`
	LongName    string `json:"longName,omitempty"`
	Type        int    `json:"type"`
	Description string `json:"description,omitempty"`
}

// DisplayName is the short name, else the long name.
func (r *RouteRef) DisplayName() string {
	if r == nil {
		return ""
	}
	if r.ShortName != "" {
		return r.ShortName
	}
	return r.LongName
}

// StopSummary is a stop ready for display. Routes is index-aligned with the
// stop's route ids; ids missing from the reference table leave a nil entry.
type StopSummary struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	DistanceMeters int         `json:"distance"`
	Routes         []*RouteRef `json:"routes"`
	Title          string      `json:"-"`
}

// RouteTitle joins the distinct route display names in first-seen order.
func RouteTitle(routes []*RouteRef) string {
	seen := make(map[string]struct{}, len(routes))
	names := make([]string, 0, len(routes))
	for _, r := range routes {
		if r == nil {
			continue
		}
		name := r.DisplayName()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

// DepartureSummary is one upcoming departure from a stop.
type DepartureSummary struct {
	RouteID        string `json:"routeId"`
	TripID         string `json:"tripId"`
	RouteShortName string `json:"routeShortName"`
	TripHeadsign   string `json:"tripHeadsign"`
	// ETAMillis is nil when the departure carries no time at all.
	ETAMillis *int64 `json:"etaMillis,omitempty"`
}

// ETAMinutes rounds the ETA up to whole minutes.
func (d DepartureSummary) ETAMinutes() (int, bool) {
	if d.ETAMillis == nil {
		return 0, false
	}
	return int(math.Ceil(float64(*d.ETAMillis) / 60000)), true
}

// TripName is the label carried into the trip detail flow.
func (d DepartureSummary) TripName() string {
	return d.RouteShortName + " > " + d.TripHeadsign
}

// TripStopSummary is one stop of a trip with its local arrival time.
type TripStopSummary struct {
	StopName      string       `json:"stopName"`
	ArrivalHour   int          `json:"arrivalHour"`
	ArrivalMinute int          `json:"arrivalMinute"`
	Raw           TripStopTime `json:"raw"`
}

// Clock formats the arrival as HH:MM.
func (t TripStopSummary) Clock() string {
	return fmt.Sprintf("%02d:%02d", t.ArrivalHour, t.ArrivalMinute)
}

// FavoriteStop is a persisted stop list item.
type FavoriteStop struct {
	Title    string      `json:"title"`
	Subtitle string      `json:"subtitle"`
	Stop     StopSummary `json:"stop"`
}

// NewFavoriteStop captures s as it is displayed in the stop list.
func NewFavoriteStop(s StopSummary) FavoriteStop {
	return FavoriteStop{Title: s.Title, Subtitle: s.Name, Stop: s}
}

// Summary restores the StopSummary, including its display title.
func (f FavoriteStop) Summary() StopSummary {
	s := f.Stop
	s.Title = f.Title
	return s
}
