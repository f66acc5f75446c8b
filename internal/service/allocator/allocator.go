// Package allocator reserves and releases individual seats on a bus's active
// schedule and keeps the schedule counters in step with the seat rows.
//
// Every read-check-write sequence runs inside InventoryStore.WithBusLocks, so
// a reservation either flips all requested seats or none of them, and two
// callers racing for the same seat cannot both succeed.
package allocator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/repository"
)

type SeatAllocator interface {
	ReserveTx(ctx context.Context, tx repository.InventoryTx, busID int64, labels []string, bookingID *int64) (*domain.Reservation, error)
	ReleaseTx(ctx context.Context, tx repository.InventoryTx, bookingID int64) (*Release, error)
	Availability(ctx context.Context, busID int64) (*Availability, error)
	Audit(ctx context.Context) ([]Drift, error)
}

// Release describes the seats returned to a bus by ReleaseTx.
type Release struct {
	BusID          int64    `json:"bus_id"`
	ScheduleID     int64    `json:"schedule_id,omitempty"`
	Seats          []string `json:"seats"`
	AvailableSeats int      `json:"available_seats"`
	OccupiedSeats  int      `json:"occupied_seats"`
}

// Availability is a read-only snapshot of a bus's active schedule.
type Availability struct {
	BusID          int64    `json:"bus_id"`
	ScheduleID     int64    `json:"schedule_id"`
	NumberOfSeats  int      `json:"number_of_seats"`
	AvailableSeats int      `json:"available_seats"`
	OccupiedSeats  int      `json:"occupied_seats"`
	Available      []string `json:"available"`
	Booked         []string `json:"booked"`
}

// Drift is an active schedule whose counters disagree with the seat rows.
type Drift struct {
	BusID          int64 `json:"bus_id"`
	ScheduleID     int64 `json:"schedule_id"`
	NumberOfSeats  int   `json:"number_of_seats"`
	SeatRows       int   `json:"seat_rows"`
	BookedSeats    int   `json:"booked_seats"`
	AvailableSeats int   `json:"available_seats"`
	OccupiedSeats  int   `json:"occupied_seats"`
}

type Allocator struct {
	store          repository.InventoryStore
	buses          repository.BusRepository
	logger         *slog.Logger
	strictCapacity bool
}

type Option func(*Allocator)

// WithStrictCapacity rejects reservations larger than the schedule's
// available counter instead of clamping the counter at zero.
func WithStrictCapacity(strict bool) Option {
	return func(a *Allocator) {
		a.strictCapacity = strict
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) {
		a.logger = logger
	}
}

func New(store repository.InventoryStore, buses repository.BusRepository, opts ...Option) *Allocator {
	a := &Allocator{
		store:  store,
		buses:  buses,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ReserveTx reserves labels on busID inside an open transaction that already
// holds the bus lock. bookingID, when set, is linked to every flipped seat.
func (a *Allocator) ReserveTx(ctx context.Context, tx repository.InventoryTx, busID int64, labels []string, bookingID *int64) (*domain.Reservation, error) {
	labels, err := domain.NormalizeSeatLabels(labels)
	if err != nil {
		return nil, err
	}

	if _, err := tx.GetBus(ctx, busID); err != nil {
		return nil, err
	}
	schedule, err := tx.LatestSchedule(ctx, busID)
	if err != nil {
		return nil, err
	}

	seats, err := tx.SeatsByLabels(ctx, busID, labels)
	if err != nil {
		return nil, fmt.Errorf("load seats: %w", err)
	}
	byLabel := make(map[string]domain.Seat, len(seats))
	for _, s := range seats {
		byLabel[s.Label] = s
	}

	var missing, taken []string
	ids := make([]int64, 0, len(labels))
	for _, label := range labels {
		seat, ok := byLabel[label]
		switch {
		case !ok:
			missing = append(missing, label)
		case !seat.IsAvailable():
			taken = append(taken, label)
		default:
			ids = append(ids, seat.ID)
		}
	}
	if len(missing) > 0 {
		return nil, domain.NotFoundError{Resource: "seat", Keys: missing}
	}
	if len(taken) > 0 {
		return nil, domain.SeatsUnavailable(taken)
	}

	n := len(ids)
	if a.strictCapacity && schedule.AvailableSeats < n {
		return nil, domain.ConflictError{
			Resource: "schedule",
			Msg:      fmt.Sprintf("only %d seats available", schedule.AvailableSeats),
		}
	}

	if err := tx.SetSeatStatus(ctx, ids, domain.SeatStatusBooked, bookingID); err != nil {
		return nil, fmt.Errorf("book seats: %w", err)
	}

	occupied := schedule.OccupiedSeats + n
	available := max(schedule.AvailableSeats-n, 0)
	if err := tx.UpdateScheduleCounts(ctx, schedule.ID, available, occupied); err != nil {
		return nil, fmt.Errorf("update schedule counters: %w", err)
	}

	return &domain.Reservation{
		BusID:          busID,
		ScheduleID:     schedule.ID,
		Seats:          labels,
		AvailableSeats: available,
		OccupiedSeats:  occupied,
	}, nil
}

// ReleaseTx flips the booking's seats back to available and gives them back
// to the bus's active schedule. A booking with no linked seats is a no-op.
func (a *Allocator) ReleaseTx(ctx context.Context, tx repository.InventoryTx, bookingID int64) (*Release, error) {
	seats, err := tx.SeatsByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load booking seats: %w", err)
	}
	if len(seats) == 0 {
		return &Release{Seats: []string{}}, nil
	}

	busID := seats[0].BusID
	ids := make([]int64, 0, len(seats))
	labels := make([]string, 0, len(seats))
	for _, s := range seats {
		ids = append(ids, s.ID)
		labels = append(labels, s.Label)
	}
	if err := tx.SetSeatStatus(ctx, ids, domain.SeatStatusAvailable, nil); err != nil {
		return nil, fmt.Errorf("release seats: %w", err)
	}

	rel := &Release{BusID: busID, Seats: labels}
	schedule, err := tx.LatestSchedule(ctx, busID)
	if domain.IsNotFound(err) {
		return rel, nil
	}
	if err != nil {
		return nil, err
	}
	bus, err := tx.GetBus(ctx, busID)
	if err != nil {
		return nil, err
	}

	n := len(ids)
	occupied := max(schedule.OccupiedSeats-n, 0)
	available := min(schedule.AvailableSeats+n, bus.NumberOfSeats-occupied)
	if err := tx.UpdateScheduleCounts(ctx, schedule.ID, available, occupied); err != nil {
		return nil, fmt.Errorf("update schedule counters: %w", err)
	}
	rel.ScheduleID = schedule.ID
	rel.AvailableSeats = available
	rel.OccupiedSeats = occupied
	return rel, nil
}

func (a *Allocator) Availability(ctx context.Context, busID int64) (*Availability, error) {
	var out *Availability
	err := a.store.WithBusLocks(ctx, []int64{busID}, func(tx repository.InventoryTx) error {
		bus, err := tx.GetBus(ctx, busID)
		if err != nil {
			return err
		}
		schedule, err := tx.LatestSchedule(ctx, busID)
		if err != nil {
			return err
		}
		seats, err := tx.ListSeats(ctx, busID)
		if err != nil {
			return err
		}
		out = &Availability{
			BusID:          busID,
			ScheduleID:     schedule.ID,
			NumberOfSeats:  bus.NumberOfSeats,
			AvailableSeats: schedule.AvailableSeats,
			OccupiedSeats:  schedule.OccupiedSeats,
			Available:      make([]string, 0, len(seats)),
			Booked:         make([]string, 0),
		}
		for _, s := range seats {
			if s.IsAvailable() {
				out.Available = append(out.Available, s.Label)
			} else {
				out.Booked = append(out.Booked, s.Label)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Audit compares each bus's active schedule with its seat rows. It never writes.
func (a *Allocator) Audit(ctx context.Context) ([]Drift, error) {
	buses, err := a.buses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list buses: %w", err)
	}

	drifts := make([]Drift, 0)
	for _, bus := range buses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := a.store.WithBusLocks(ctx, []int64{bus.ID}, func(tx repository.InventoryTx) error {
			schedule, err := tx.LatestSchedule(ctx, bus.ID)
			if domain.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			seats, err := tx.ListSeats(ctx, bus.ID)
			if err != nil {
				return err
			}
			booked := 0
			for _, s := range seats {
				if !s.IsAvailable() {
					booked++
				}
			}
			if schedule.Balanced(bus.NumberOfSeats) && schedule.OccupiedSeats == booked && len(seats) == bus.NumberOfSeats {
				return nil
			}
			d := Drift{
				BusID:          bus.ID,
				ScheduleID:     schedule.ID,
				NumberOfSeats:  bus.NumberOfSeats,
				SeatRows:       len(seats),
				BookedSeats:    booked,
				AvailableSeats: schedule.AvailableSeats,
				OccupiedSeats:  schedule.OccupiedSeats,
			}
			drifts = append(drifts, d)
			a.logger.Warn("schedule counters drifted",
				slog.Int64("bus_id", d.BusID),
				slog.Int64("schedule_id", d.ScheduleID),
				slog.Int("available", d.AvailableSeats),
				slog.Int("occupied", d.OccupiedSeats),
				slog.Int("booked", d.BookedSeats),
			)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return drifts, nil
}

var _ SeatAllocator = (*Allocator)(nil)
