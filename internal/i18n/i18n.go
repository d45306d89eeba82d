// Package i18n holds the display strings of the client and picks a table
// from a BCP-47 language tag.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Message keys.
const (
	ErrorGenericComm          = "error_generic_comm"
	MsgLocation               = "msg_location"
	MsgStopSearch             = "msg_stop_search"
	TitleFavoriteStops        = "title_favorite_stops"
	TitleNearbyStops          = "title_nearby_stops"
	MsgNoStopsNearby          = "msg_no_stops_nearby"
	MsgNoDepartures           = "msg_no_departures"
	MsgNoStops                = "msg_no_stops"
	MsgTripLoadingFormat      = "msg_trip_loading_format"
	MsgDepartureLoadingFormat = "msg_departure_loading_format"
	TitleTools                = "title_tools"
	BtnFavorite               = "btn_favorite"
	BtnUnfavorite             = "btn_unfavorite"
	BtnRefresh                = "btn_refresh"
	BtnInfo                   = "btn_info"
)

// Localizer resolves a message key to display text.
type Localizer interface {
	Lookup(key string) string
}

var tables = map[string]map[string]string{
	"en": {
		ErrorGenericComm:          "Communication error!",
		MsgLocation:               "Acquiring location…",
		MsgStopSearch:             "Searching for nearby stops…",
		TitleFavoriteStops:        "Favorite stops",
		TitleNearbyStops:          "Nearby stops",
		MsgNoStopsNearby:          "No stops found nearby.",
		MsgNoDepartures:           "No departures found from this stop.",
		MsgNoStops:                "No stops found for this trip.",
		MsgTripLoadingFormat:      "Loading stops for {trip}…",
		MsgDepartureLoadingFormat: "Loading departures for {stop}…",
		TitleTools:                "Tools",
		BtnFavorite:               "Favorite",
		BtnUnfavorite:             "Unfavorite",
		BtnRefresh:                "Refresh",
		BtnInfo:                   "Trip info",
	},
	"hu": {
		ErrorGenericComm:          "Kommunikációs hiba!",
		MsgLocation:               "Helymeghatározás…",
		MsgStopSearch:             "Megállók keresése…",
		TitleFavoriteStops:        "Kedvenc megállók",
		TitleNearbyStops:          "Megállók a közelben",
		MsgNoStopsNearby:          "Nincs megálló a közelben.",
		MsgNoDepartures:           "Nem indulnak járatok ebből a megállóból.",
		MsgNoStops:                "Nincs megálló a kért járathoz.",
		MsgTripLoadingFormat:      "Megállók keresése a {trip} járathoz…",
		MsgDepartureLoadingFormat: "Járatok keresése a {stop} megállóban…",
		TitleTools:                "Eszközök",
		BtnFavorite:               "Kedvenc",
		BtnUnfavorite:             "Nem kedvenc",
		BtnRefresh:                "Frissítés",
		BtnInfo:                   "Járatok",
	},
}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Hungarian})

// Catalog is a Localizer over the built-in tables. Lookups fall back from
// the matched language to English and finally to the key itself.
type Catalog struct {
	tag   language.Tag
	table map[string]string
}

// New returns the catalog best matching lang, e.g. "hu-HU" or "en-US".
// Unknown or malformed tags get English.
func New(lang string) *Catalog {
	tag, _, _ := matcher.Match(language.Make(lang))
	base, _ := tag.Base()

	table, ok := tables[base.String()]
	if !ok {
		base, _ = language.English.Base()
		table = tables["en"]
	}
	return &Catalog{tag: language.Make(base.String()), table: table}
}

// Language is the base language the catalog resolved to.
func (c *Catalog) Language() language.Tag {
	return c.tag
}

func (c *Catalog) Lookup(key string) string {
	if s, ok := c.table[key]; ok {
		return s
	}
	if s, ok := tables["en"][key]; ok {
		return s
	}
	return key
}

// Format looks key up and substitutes "{name}" placeholders.
func Format(l Localizer, key string, args map[string]string) string {
	s := l.Lookup(key)
	for name, value := range args {
		s = strings.ReplaceAll(s, "{"+name+"}", value)
	}
	return s
}
