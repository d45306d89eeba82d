package models

// TripStopTime is one call of a trip. In the entry form times are epoch
// seconds; zero means absent.
type TripStopTime struct {
	StopID                 string  `json:"stopId"`
	ArrivalTime            int64   `json:"arrivalTime"`
	DepartureTime          int64   `json:"departureTime"`
	PredictedArrivalTime   int64   `json:"predictedArrivalTime"`
	PredictedDepartureTime int64   `json:"predictedDepartureTime"`
	StopHeadsign           string  `json:"stopHeadsign,omitempty"`
	DistanceAlongTrip      float64 `json:"distanceAlongTrip,omitempty"`
}

// EffectiveArrival picks the first present time in the order predicted
// arrival, scheduled arrival, predicted departure, scheduled departure.
func (st TripStopTime) EffectiveArrival() int64 {
	for _, t := range []int64{st.PredictedArrivalTime, st.ArrivalTime, st.PredictedDepartureTime, st.DepartureTime} {
		if t != 0 {
			return t
		}
	}
	return 0
}

// TripSchedule is the schedule block emitted by the reference server, whose
// stop times are offsets in seconds from the service date.
type TripSchedule struct {
	TimeZone  string         `json:"timeZone"`
	StopTimes []TripStopTime `json:"stopTimes"`
}

type TripDetails struct {
	TripID      string         `json:"tripId"`
	ServiceDate int64          `json:"serviceDate"`
	StopTimes   []TripStopTime `json:"stopTimes"`
	Schedule    *TripSchedule  `json:"schedule"`
}

// TripDetailsData is the data object of trip-details.json.
type TripDetailsData struct {
	Entry      *TripDetails `json:"entry"`
	References References   `json:"references"`
}

// StopTimes returns the trip's stop times with absolute epoch-second times.
// Entry-level stop times are already absolute; schedule stop times are
// shifted by the service date.
func (d TripDetailsData) StopTimes() []TripStopTime {
	if d.Entry == nil {
		return nil
	}
	if d.Entry.StopTimes != nil || d.Entry.Schedule == nil {
		return d.Entry.StopTimes
	}

	base := d.Entry.ServiceDate / 1000
	out := make([]TripStopTime, len(d.Entry.Schedule.StopTimes))
	for i, st := range d.Entry.Schedule.StopTimes {
		out[i] = st
		out[i].ArrivalTime = shift(st.ArrivalTime, base)
		out[i].DepartureTime = shift(st.DepartureTime, base)
		out[i].PredictedArrivalTime = shift(st.PredictedArrivalTime, base)
		out[i].PredictedDepartureTime = shift(st.PredictedDepartureTime, base)
	}
	return out
}

func shift(offset, base int64) int64 {
	if offset == 0 {
		return 0
	}
	return base + offset
}
