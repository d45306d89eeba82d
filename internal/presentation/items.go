package presentation

import (
	"fmt"
	"strings"

	"github.com/OneBusAway/go-gtfs"

	"pebfutar.app/internal/i18n"
	"pebfutar.app/internal/models"
)

// AppTitle heads the status card.
const AppTitle = "PebFUTÁR"

// Menu layout.
const (
	StopsSectionNearby    = 0
	StopsSectionFavorites = 1
	StopsSectionTools     = 2

	DeparturesSectionList  = 0
	DeparturesSectionTools = 1

	DepartureToolFavorite = 0
	DepartureToolInfo     = 1
	DepartureToolRefresh  = 2
)

func stopItems(stops []models.StopSummary) []Item {
	items := make([]Item, len(stops))
	for i, s := range stops {
		items[i] = Item{Title: s.Title, Subtitle: s.Name, Payload: s}
	}
	return items
}

func favoriteItems(favs []models.FavoriteStop) []Item {
	items := make([]Item, len(favs))
	for i, f := range favs {
		items[i] = Item{Title: f.Title, Subtitle: f.Subtitle, Payload: f.Summary()}
	}
	return items
}

// departureItem renders "3' - 7" over "> Újpalota", or "? - 7" without an ETA.
func departureItem(d models.DepartureSummary) Item {
	eta := "?"
	if minutes, ok := d.ETAMinutes(); ok {
		eta = fmt.Sprintf("%d'", minutes)
	}
	return Item{
		Title:    eta + " - " + d.RouteShortName,
		Subtitle: "> " + d.TripHeadsign,
		Payload:  d,
	}
}

func departureItems(deps []models.DepartureSummary) []Item {
	items := make([]Item, len(deps))
	for i, d := range deps {
		items[i] = departureItem(d)
	}
	return items
}

func tripItems(stops []models.TripStopSummary) []Item {
	items := make([]Item, len(stops))
	for i, s := range stops {
		items[i] = Item{Title: s.Clock(), Subtitle: s.StopName, Payload: s}
	}
	return items
}

func toolsSection(l i18n.Localizer, keys ...string) Section {
	items := make([]Item, len(keys))
	for i, k := range keys {
		items[i] = Item{Title: l.Lookup(k)}
	}
	return Section{Title: l.Lookup(i18n.TitleTools), Items: items}
}

func favoriteToolKey(favorite bool) string {
	if favorite {
		return i18n.BtnUnfavorite
	}
	return i18n.BtnFavorite
}

// StopDetailBody lists the routes serving a stop, one block per known route:
// "{name} ({type})" then the description.
func StopDetailBody(stop models.StopSummary) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, r := range stop.Routes {
		if r == nil {
			continue
		}
		fmt.Fprintf(&b, "%s (%s)\n%s\n\n", r.DisplayName(), RouteTypeLabel(r.Type), r.Description)
	}
	return b.String()
}

// RouteTypeLabel names a GTFS route_type using the GTFS library's own
// labels.
func RouteTypeLabel(t int) string {
	return gtfs.RouteType(t).String()
}
