package domain

import (
	"strings"
	"time"
)

type Booking struct {
	ID            int64     `json:"id"`
	Reference     string    `json:"reference"`
	CustomerID    int64     `json:"customer_id"`
	BusID         int64     `json:"bus_id"`
	ScheduleID    int64     `json:"schedule_id"`
	BookingDate   time.Time `json:"booking_date"`
	NumberOfSeats int       `json:"number_of_seats"`
	SeatLabels    []string  `json:"seat_labels"`
	Destination   string    `json:"destination"`
	DepartureTime string    `json:"departure_time"`
	PickupAddress string    `json:"pickup_address"`
	TotalCost     int64     `json:"total_cost"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TotalCost is the price of n seats on a bus.
func TotalCost(costPerSeat int64, seats int) int64 {
	return costPerSeat * int64(seats)
}

// Reservation is the outcome of a successful seat reservation.
type Reservation struct {
	BusID          int64    `json:"bus_id"`
	ScheduleID     int64    `json:"schedule_id"`
	Seats          []string `json:"seats"`
	AvailableSeats int      `json:"available_seats"`
	OccupiedSeats  int      `json:"occupied_seats"`
}

func ValidateBookingDetails(destination, departureTime, pickupAddress string) error {
	if strings.TrimSpace(destination) == "" {
		return ValidationError{Field: "destination", Msg: "is required"}
	}
	if strings.TrimSpace(pickupAddress) == "" {
		return ValidationError{Field: "pickup_address", Msg: "is required"}
	}
	if _, err := ParseClock("departure_time", departureTime); err != nil {
		return err
	}
	return nil
}
