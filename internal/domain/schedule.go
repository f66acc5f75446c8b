package domain

import (
	"time"
)

const (
	ClockLayout = "15:04:05"
	DateLayout  = "2006-01-02"
)

type Schedule struct {
	ID             int64     `json:"id"`
	BusID          int64     `json:"bus_id"`
	TravelDate     time.Time `json:"travel_date"`
	DepartureAt    time.Time `json:"departure_at"`
	ArrivalAt      time.Time `json:"arrival_at"`
	AvailableSeats int       `json:"available_seats"`
	OccupiedSeats  int       `json:"occupied_seats"`
	CreatedAt      time.Time `json:"created_at"`
}

// Balanced reports whether the counters add up to the bus capacity.
func (s Schedule) Balanced(capacity int) bool {
	return s.AvailableSeats >= 0 && s.OccupiedSeats >= 0 && s.AvailableSeats+s.OccupiedSeats == capacity
}

// ParseClock parses a HH:MM:SS time of day.
func ParseClock(field, value string) (time.Duration, error) {
	t, err := time.Parse(ClockLayout, value)
	if err != nil {
		return 0, ValidationError{Field: field, Msg: "must be HH:MM:SS"}
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
}

// ParseDate parses a YYYY-MM-DD date at UTC midnight.
func ParseDate(field, value string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, ValidationError{Field: field, Msg: "must be YYYY-MM-DD"}
	}
	return d, nil
}

// ScheduleTimes resolves the travel date and the departure/arrival clock
// times into absolute timestamps. The travel date may not be before the day
// of now and arrival must be strictly after departure.
func ScheduleTimes(travelDate, departure, arrival string, now time.Time) (date, departAt, arriveAt time.Time, err error) {
	date, err = ParseDate("travel_date", travelDate)
	if err != nil {
		return
	}
	dep, err := ParseClock("departure_time", departure)
	if err != nil {
		return
	}
	arr, err := ParseClock("arrival_time", arrival)
	if err != nil {
		return
	}
	if arr <= dep {
		err = ValidationError{Field: "arrival_time", Msg: "must be after departure time"}
		return
	}
	today := now.UTC().Truncate(24 * time.Hour)
	if date.Before(today) {
		err = ValidationError{Field: "travel_date", Msg: "must not be in the past"}
		return
	}
	return date, date.Add(dep), date.Add(arr), nil
}
