package models

// ArrivalAndDeparture is one predicted or scheduled call at a stop. Times are
// epoch milliseconds; zero means absent.
type ArrivalAndDeparture struct {
	RouteID                string `json:"routeId"`
	TripID                 string `json:"tripId"`
	StopID                 string `json:"stopId"`
	ServiceDate            int64  `json:"serviceDate"`
	RouteShortName         string `json:"routeShortName"`
	RouteLongName          string `json:"routeLongName"`
	TripHeadsign           string `json:"tripHeadsign"`
	Predicted              bool   `json:"predicted"`
	PredictedArrivalTime   int64  `json:"predictedArrivalTime"`
	ScheduledArrivalTime   int64  `json:"scheduledArrivalTime"`
	PredictedDepartureTime int64  `json:"predictedDepartureTime"`
	ScheduledDepartureTime int64  `json:"scheduledDepartureTime"`
	VehicleID              string `json:"vehicleId"`
}

// ArrivalTime is the predicted arrival, else the scheduled one, else zero.
func (a ArrivalAndDeparture) ArrivalTime() int64 {
	if a.PredictedArrivalTime != 0 {
		return a.PredictedArrivalTime
	}
	return a.ScheduledArrivalTime
}

// StopWithArrivalsAndDepartures is the entry form of the departures payload.
type StopWithArrivalsAndDepartures struct {
	StopID                string                `json:"stopId"`
	ArrivalsAndDepartures []ArrivalAndDeparture `json:"arrivalsAndDepartures"`
	NearbyStopIDs         []string              `json:"nearbyStopIds"`
}

// ArrivalsAndDeparturesData is the data object of
// arrivals-and-departures-for-stop. The list is either wrapped in "entry" or
// sits directly in data.
type ArrivalsAndDeparturesData struct {
	Entry                 *StopWithArrivalsAndDepartures `json:"entry"`
	ArrivalsAndDepartures []ArrivalAndDeparture          `json:"arrivalsAndDepartures"`
	References            References                     `json:"references"`
}

// Items returns the departures from whichever shape was sent.
func (d ArrivalsAndDeparturesData) Items() []ArrivalAndDeparture {
	if d.Entry != nil {
		return d.Entry.ArrivalsAndDepartures
	}
	return d.ArrivalsAndDepartures
}
