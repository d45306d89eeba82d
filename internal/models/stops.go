package models

// Stop is a stop as listed by stops-for-location and in reference tables.
type Stop struct {
	ID           string   `json:"id"`
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	Direction    string   `json:"direction"`
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
	LocationType int      `json:"locationType"`
	RouteIDs     []string `json:"routeIds"`
}

// Route is a route reference entry.
type Route struct {
	ID          string `json:"id"`
	AgencyID    string `json:"agencyId"`
	ShortName   string `json:"shortName"`
	LongName    string `json:"longName"`
	Description string `json:"description"`
	Type        int    `json:"type"`
	Color       string `json:"color"`
	TextColor   string `json:"textColor"`
}

// StopsForLocationData is the data object of stops-for-location.json. Older
// deployments put the stops under "stops", newer ones under "list".
type StopsForLocationData struct {
	Stops         []Stop     `json:"stops"`
	List          []Stop     `json:"list"`
	LimitExceeded bool       `json:"limitExceeded"`
	OutOfRange    bool       `json:"outOfRange"`
	References    References `json:"references"`
}

// Items returns whichever stop array the server filled in, preferring
// "stops" whenever it is present, even if empty.
func (d StopsForLocationData) Items() []Stop {
	if d.Stops != nil {
		return d.Stops
	}
	return d.List
}
