package repository

import (
	"context"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGInventoryStore struct {
	db *pgxpool.Pool
}

func NewInventoryStore(db *pgxpool.Pool) InventoryStore {
	return &PGInventoryStore{db: db}
}

// WithBusLocks takes row locks on the buses in ascending id order before
// running fn, so two transactions touching overlapping buses serialize
// instead of deadlocking.
func (s *PGInventoryStore) WithBusLocks(ctx context.Context, busIDs []int64, fn func(tx InventoryTx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ids := SortedUnique(busIDs)
	if len(ids) > 0 {
		rows, err := tx.Query(ctx, `SELECT id FROM buses WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
		if err != nil {
			return err
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
	}

	if err := fn(&pgInventoryTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgInventoryTx struct {
	tx pgx.Tx
}

func (t *pgInventoryTx) GetBus(ctx context.Context, id int64) (*domain.Bus, error) {
	b, err := scanBus(t.tx.QueryRow(ctx, `SELECT `+busColumns+` FROM buses WHERE id=$1`, id))
	if err != nil {
		return nil, pgError(err, "bus", id)
	}
	return b, nil
}

func (t *pgInventoryTx) UpdateBus(ctx context.Context, bus *domain.Bus) error {
	err := t.tx.QueryRow(ctx, `UPDATE buses SET name=$1, cost_per_seat=$2, number_of_seats=$3, route=$4, travel_time=$5::time,
		number_plate=$6, image=$7, updated_at=now() WHERE id=$8 RETURNING updated_at`,
		bus.Name, bus.CostPerSeat, bus.NumberOfSeats, bus.Route, bus.TravelTime, bus.NumberPlate, bus.Image, bus.ID).
		Scan(&bus.UpdatedAt)
	return pgError(err, "bus", bus.ID)
}

func (t *pgInventoryTx) DeleteBus(ctx context.Context, id int64) error {
	res, err := t.tx.Exec(ctx, `DELETE FROM buses WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NotFoundError{Resource: "bus", Keys: []string{formatID(id)}}
	}
	return nil
}

func (t *pgInventoryTx) HasBookings(ctx context.Context, busID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE bus_id=$1)`, busID).Scan(&exists)
	return exists, err
}

func (t *pgInventoryTx) ListSeats(ctx context.Context, busID int64) ([]domain.Seat, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+seatColumns+` FROM seats WHERE bus_id=$1 ORDER BY label`, busID)
	if err != nil {
		return nil, err
	}
	return collectSeats(rows)
}

func (t *pgInventoryTx) SeatsByLabels(ctx context.Context, busID int64, labels []string) ([]domain.Seat, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+seatColumns+` FROM seats WHERE bus_id=$1 AND label = ANY($2) ORDER BY label`, busID, labels)
	if err != nil {
		return nil, err
	}
	return collectSeats(rows)
}

func (t *pgInventoryTx) SeatsByBooking(ctx context.Context, bookingID int64) ([]domain.Seat, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+seatColumns+` FROM seats WHERE booking_id=$1 ORDER BY label`, bookingID)
	if err != nil {
		return nil, err
	}
	return collectSeats(rows)
}

func (t *pgInventoryTx) SetSeatStatus(ctx context.Context, seatIDs []int64, status domain.SeatStatus, bookingID *int64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	_, err := t.tx.Exec(ctx, `UPDATE seats SET status=$1, booking_id=$2 WHERE id = ANY($3)`, status, bookingID, seatIDs)
	return err
}

func (t *pgInventoryTx) AppendSeats(ctx context.Context, busID int64, labels []string) error {
	return insertSeats(ctx, t.tx, busID, labels)
}

func (t *pgInventoryTx) DeleteSeats(ctx context.Context, seatIDs []int64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	_, err := t.tx.Exec(ctx, `DELETE FROM seats WHERE id = ANY($1)`, seatIDs)
	return err
}

func (t *pgInventoryTx) LatestSchedule(ctx context.Context, busID int64) (*domain.Schedule, error) {
	return latestSchedule(ctx, t.tx, busID)
}

func (t *pgInventoryTx) ListSchedules(ctx context.Context, busID int64) ([]domain.Schedule, error) {
	return listSchedules(ctx, t.tx, busID)
}

func (t *pgInventoryTx) InsertSchedule(ctx context.Context, s *domain.Schedule) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO schedules (bus_id, travel_date, departure_at, arrival_at, available_seats, occupied_seats)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		s.BusID, s.TravelDate, s.DepartureAt, s.ArrivalAt, s.AvailableSeats, s.OccupiedSeats).
		Scan(&s.ID, &s.CreatedAt)
	return pgError(err, "schedule")
}

func (t *pgInventoryTx) UpdateScheduleCounts(ctx context.Context, scheduleID int64, available, occupied int) error {
	res, err := t.tx.Exec(ctx, `UPDATE schedules SET available_seats=$1, occupied_seats=$2 WHERE id=$3`, available, occupied, scheduleID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NotFoundError{Resource: "schedule", Keys: []string{formatID(scheduleID)}}
	}
	return nil
}

func (t *pgInventoryTx) DeleteSchedule(ctx context.Context, id int64) error {
	res, err := t.tx.Exec(ctx, `DELETE FROM schedules WHERE id=$1`, id)
	if err != nil {
		return pgError(err, "schedule", id)
	}
	if res.RowsAffected() == 0 {
		return domain.NotFoundError{Resource: "schedule", Keys: []string{formatID(id)}}
	}
	return nil
}

func (t *pgInventoryTx) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return getBooking(ctx, t.tx, id)
}

func (t *pgInventoryTx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO bookings (reference, customer_id, bus_id, schedule_id, booking_date, number_of_seats,
		seat_labels, destination, departure_time, pickup_address, total_cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::time, $10, $11)
		RETURNING id, created_at, updated_at`,
		b.Reference, b.CustomerID, b.BusID, b.ScheduleID, b.BookingDate, b.NumberOfSeats,
		b.SeatLabels, b.Destination, b.DepartureTime, b.PickupAddress, b.TotalCost).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	return pgError(err, "booking")
}

func (t *pgInventoryTx) UpdateBooking(ctx context.Context, b *domain.Booking) error {
	err := t.tx.QueryRow(ctx, `UPDATE bookings SET bus_id=$1, schedule_id=$2, number_of_seats=$3, seat_labels=$4,
		destination=$5, departure_time=$6::time, pickup_address=$7, total_cost=$8, updated_at=now()
		WHERE id=$9 RETURNING updated_at`,
		b.BusID, b.ScheduleID, b.NumberOfSeats, b.SeatLabels, b.Destination, b.DepartureTime, b.PickupAddress, b.TotalCost, b.ID).
		Scan(&b.UpdatedAt)
	return pgError(err, "booking", b.ID)
}

func (t *pgInventoryTx) DeleteBooking(ctx context.Context, id int64) error {
	res, err := t.tx.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NotFoundError{Resource: "booking", Keys: []string{formatID(id)}}
	}
	return nil
}

var (
	_ InventoryStore = (*PGInventoryStore)(nil)
	_ InventoryTx    = (*pgInventoryTx)(nil)
)
