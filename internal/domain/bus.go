package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusBooked    SeatStatus = "booked"
)

const (
	MaxSeatsPerBus  = 100
	seatLabelPrefix = "S"
)

type Bus struct {
	ID            int64     `json:"id"`
	DriverID      int64     `json:"driver_id"`
	Name          string    `json:"name"`
	CostPerSeat   int64     `json:"cost_per_seat"`
	NumberOfSeats int       `json:"number_of_seats"`
	Route         string    `json:"route"`
	TravelTime    string    `json:"travel_time"`
	NumberPlate   string    `json:"number_plate"`
	Image         string    `json:"image,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Seat struct {
	ID        int64      `json:"id"`
	BusID     int64      `json:"bus_id"`
	Label     string     `json:"label"`
	Status    SeatStatus `json:"status"`
	BookingID *int64     `json:"booking_id,omitempty"`
}

func (s Seat) IsAvailable() bool {
	return s.Status == SeatStatusAvailable
}

// SeatLabel returns the durable label of the seat at 1-based index i, e.g. S001.
func SeatLabel(i int) string {
	return fmt.Sprintf("%s%03d", seatLabelPrefix, i)
}

// SeatIndex parses a label produced by SeatLabel.
func SeatIndex(label string) (int, bool) {
	if !strings.HasPrefix(label, seatLabelPrefix) || len(label) < len(seatLabelPrefix)+3 {
		return 0, false
	}
	n, err := strconv.Atoi(label[len(seatLabelPrefix):])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SeatLabelsRange returns the labels for indexes from..to inclusive.
func SeatLabelsRange(from, to int) []string {
	if to < from {
		return nil
	}
	labels := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		labels = append(labels, SeatLabel(i))
	}
	return labels
}

// NormalizeSeatLabels trims, upper-cases and de-duplicates labels keeping first-seen order.
func NormalizeSeatLabels(labels []string) ([]string, error) {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, raw := range labels {
		label := strings.ToUpper(strings.TrimSpace(raw))
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	if len(out) == 0 {
		return nil, ValidationError{Field: "seat_labels", Msg: "at least one seat is required"}
	}
	return out, nil
}

// NormalizePlate removes spaces and upper-cases a number plate.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(plate), " ", ""))
}

func ValidateBus(b *Bus) error {
	if strings.TrimSpace(b.Name) == "" {
		return ValidationError{Field: "name", Msg: "is required"}
	}
	if b.CostPerSeat <= 0 {
		return ValidationError{Field: "cost_per_seat", Msg: "must be positive"}
	}
	if err := ValidateSeatCount(b.NumberOfSeats); err != nil {
		return err
	}
	if strings.TrimSpace(b.Route) == "" {
		return ValidationError{Field: "route", Msg: "is required"}
	}
	if _, err := ParseClock("travel_time", b.TravelTime); err != nil {
		return err
	}
	return ValidatePlate(b.NumberPlate)
}

func ValidateSeatCount(n int) error {
	if n <= 0 || n > MaxSeatsPerBus {
		return ValidationError{Field: "number_of_seats", Msg: fmt.Sprintf("must be between 1 and %d", MaxSeatsPerBus)}
	}
	return nil
}

func ValidatePlate(plate string) error {
	if len(plate) != 7 {
		return ValidationError{Field: "number_plate", Msg: "must be 7 characters"}
	}
	for _, r := range plate {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return ValidationError{Field: "number_plate", Msg: "must be alphanumeric"}
		}
	}
	return nil
}
