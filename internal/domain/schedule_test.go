package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleTimes(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	date, dep, arr, err := ScheduleTimes("2026-03-10", "08:00:00", "14:30:00", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), date)
	assert.Equal(t, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), dep)
	assert.Equal(t, time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC), arr)

	tests := []struct {
		name                     string
		date, departure, arrival string
		field                    string
	}{
		{name: "past date", date: "2026-03-09", departure: "08:00:00", arrival: "09:00:00", field: "travel_date"},
		{name: "bad date", date: "10/03/2026", departure: "08:00:00", arrival: "09:00:00", field: "travel_date"},
		{name: "bad departure", date: "2026-03-11", departure: "8:00", arrival: "09:00:00", field: "departure_time"},
		{name: "arrival first", date: "2026-03-11", departure: "09:00:00", arrival: "09:00:00", field: "arrival_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := ScheduleTimes(tt.date, tt.departure, tt.arrival, now)
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestScheduleBalanced(t *testing.T) {
	assert.True(t, Schedule{AvailableSeats: 30, OccupiedSeats: 10}.Balanced(40))
	assert.False(t, Schedule{AvailableSeats: 30, OccupiedSeats: 11}.Balanced(40))
	assert.False(t, Schedule{AvailableSeats: 41, OccupiedSeats: -1}.Balanced(40))
}
