package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteTitle_DeduplicatesInFirstSeenOrder(t *testing.T) {
	four := &RouteRef{ID: "r4", ShortName: "4"}
	six := &RouteRef{ID: "r6", ShortName: "6"}
	fourNight := &RouteRef{ID: "r4n", ShortName: "4"}

	assert.Equal(t, "4, 6", RouteTitle([]*RouteRef{four, fourNight, six, four}))
}

func TestRouteTitle_FallsBackToLongNameAndSkipsMissing(t *testing.T) {
	routes := []*RouteRef{
		nil,
		{ID: "h5", LongName: "Szentendrei HÉV"},
		{ID: "r9", ShortName: "9"},
		nil,
	}

	assert.Equal(t, "Szentendrei HÉV, 9", RouteTitle(routes))
	assert.Equal(t, "", RouteTitle(nil))
}

func TestDisplayName_NilRoute(t *testing.T) {
	var r *RouteRef
	assert.Equal(t, "", r.DisplayName())
}

func TestETAMinutes(t *testing.T) {
	ms := func(v int64) *int64 { return &v }

	tests := []struct {
		name    string
		eta     *int64
		minutes int
		known   bool
	}{
		{"unknown", nil, 0, false},
		{"two and a half minutes rounds up", ms(150000), 3, true},
		{"exact minute", ms(120000), 2, true},
		{"one millisecond", ms(1), 1, true},
		{"departed thirty seconds ago", ms(-30000), 0, true},
		{"departed ninety seconds ago", ms(-90000), -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minutes, known := DepartureSummary{ETAMillis: tt.eta}.ETAMinutes()
			assert.Equal(t, tt.known, known)
			assert.Equal(t, tt.minutes, minutes)
		})
	}
}

func TestTripStopSummaryClock(t *testing.T) {
	assert.Equal(t, "07:05", TripStopSummary{ArrivalHour: 7, ArrivalMinute: 5}.Clock())
	assert.Equal(t, "23:59", TripStopSummary{ArrivalHour: 23, ArrivalMinute: 59}.Clock())
}

func TestFavoriteStopKeepsTitle(t *testing.T) {
	stop := StopSummary{ID: "BKK_F01", Name: "Deák Ferenc tér", Title: "M1, M2, M3"}

	fav := NewFavoriteStop(stop)

	assert.Equal(t, "M1, M2, M3", fav.Title)
	assert.Equal(t, "Deák Ferenc tér", fav.Subtitle)
	assert.Equal(t, stop, fav.Summary())
}
