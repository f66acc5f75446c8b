package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgError translates driver errors into domain errors for resource.
func pgError(err error, resource string, id ...int64) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		keys := make([]string, 0, len(id))
		for _, v := range id {
			keys = append(keys, formatID(v))
		}
		return domain.NotFoundError{Resource: resource, Keys: keys, Err: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domain.ConflictError{Resource: resource, Msg: uniqueField(pgErr) + " already exists", Err: err}
		case pgForeignKeyViolation:
			return domain.ConflictError{Resource: resource, Msg: "still referenced by " + pgErr.TableName, Err: err}
		}
	}
	return err
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// uniqueField extracts the column from default constraint names such as customers_email_key.
func uniqueField(pgErr *pgconn.PgError) string {
	name := strings.TrimSuffix(pgErr.ConstraintName, "_key")
	if pgErr.TableName != "" {
		name = strings.TrimPrefix(name, pgErr.TableName+"_")
	}
	if name == "" {
		return "value"
	}
	return name
}

const busColumns = `id, driver_id, name, cost_per_seat, number_of_seats, route, travel_time::text, number_plate, image, created_at, updated_at`

func scanBus(row pgx.Row) (*domain.Bus, error) {
	var b domain.Bus
	if err := row.Scan(&b.ID, &b.DriverID, &b.Name, &b.CostPerSeat, &b.NumberOfSeats, &b.Route, &b.TravelTime, &b.NumberPlate, &b.Image, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBuses(rows pgx.Rows) ([]domain.Bus, error) {
	defer rows.Close()
	buses := make([]domain.Bus, 0)
	for rows.Next() {
		b, err := scanBus(rows)
		if err != nil {
			return nil, err
		}
		buses = append(buses, *b)
	}
	return buses, rows.Err()
}

const seatColumns = `id, bus_id, label, status, booking_id`

func collectSeats(rows pgx.Rows) ([]domain.Seat, error) {
	defer rows.Close()
	seats := make([]domain.Seat, 0)
	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(&s.ID, &s.BusID, &s.Label, &s.Status, &s.BookingID); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

const scheduleColumns = `id, bus_id, travel_date, departure_at, arrival_at, available_seats, occupied_seats, created_at`

func scanSchedule(row pgx.Row) (*domain.Schedule, error) {
	var s domain.Schedule
	if err := row.Scan(&s.ID, &s.BusID, &s.TravelDate, &s.DepartureAt, &s.ArrivalAt, &s.AvailableSeats, &s.OccupiedSeats, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.TravelDate = s.TravelDate.UTC()
	s.DepartureAt = s.DepartureAt.UTC()
	s.ArrivalAt = s.ArrivalAt.UTC()
	return &s, nil
}

func collectSchedules(rows pgx.Rows) ([]domain.Schedule, error) {
	defer rows.Close()
	schedules := make([]domain.Schedule, 0)
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

const bookingColumns = `id, reference, customer_id, bus_id, schedule_id, booking_date, number_of_seats, seat_labels, destination, departure_time::text, pickup_address, total_cost, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.Reference, &b.CustomerID, &b.BusID, &b.ScheduleID, &b.BookingDate, &b.NumberOfSeats, &b.SeatLabels, &b.Destination, &b.DepartureTime, &b.PickupAddress, &b.TotalCost, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()
	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}
