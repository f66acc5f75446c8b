package repository

import (
	"context"
	"slices"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
)

type BusRepository interface {
	// CreateWithSeats inserts the bus and its seats S001..SNNN atomically.
	CreateWithSeats(ctx context.Context, bus *domain.Bus) error
	GetByID(ctx context.Context, id int64) (*domain.Bus, error)
	List(ctx context.Context) ([]domain.Bus, error)
	ListByDriver(ctx context.Context, driverID int64) ([]domain.Bus, error)
	ListSeats(ctx context.Context, busID int64) ([]domain.Seat, error)
}

type ScheduleRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Schedule, error)
	GetLatestByBus(ctx context.Context, busID int64) (*domain.Schedule, error)
	List(ctx context.Context) ([]domain.Schedule, error)
	ListByBus(ctx context.Context, busID int64) ([]domain.Schedule, error)
	// UpdateTimes changes the trip date and times only. Counters belong to the allocator.
	UpdateTimes(ctx context.Context, id int64, travelDate, departureAt, arrivalAt time.Time) (*domain.Schedule, error)
}

type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.Booking, error)
	List(ctx context.Context) ([]domain.Booking, error)
}

type AccountRepository interface {
	CreateCustomer(ctx context.Context, c *domain.Customer) error
	GetCustomerByID(ctx context.Context, id int64) (*domain.Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)

	CreateDriver(ctx context.Context, d *domain.Driver) error
	GetDriverByID(ctx context.Context, id int64) (*domain.Driver, error)
	GetDriverByEmail(ctx context.Context, email string) (*domain.Driver, error)
	ListDrivers(ctx context.Context) ([]domain.Driver, error)
	DeleteDriver(ctx context.Context, id int64) error

	CreateAdmin(ctx context.Context, a *domain.Admin) error
	GetAdminByID(ctx context.Context, id int64) (*domain.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error)
}

// InventoryStore runs read-check-write sequences over seats, schedules and
// bookings. fn runs inside one transaction that holds exclusive locks on
// every listed bus; a non-nil error from fn rolls back every write it made.
type InventoryStore interface {
	WithBusLocks(ctx context.Context, busIDs []int64, fn func(tx InventoryTx) error) error
}

// InventoryTx is the write surface available while bus locks are held.
// Callers must only touch buses they locked.
type InventoryTx interface {
	GetBus(ctx context.Context, id int64) (*domain.Bus, error)
	UpdateBus(ctx context.Context, bus *domain.Bus) error
	DeleteBus(ctx context.Context, id int64) error
	HasBookings(ctx context.Context, busID int64) (bool, error)

	ListSeats(ctx context.Context, busID int64) ([]domain.Seat, error)
	// SeatsByLabels returns the seats of the bus matching labels; unknown labels are skipped.
	SeatsByLabels(ctx context.Context, busID int64, labels []string) ([]domain.Seat, error)
	SeatsByBooking(ctx context.Context, bookingID int64) ([]domain.Seat, error)
	SetSeatStatus(ctx context.Context, seatIDs []int64, status domain.SeatStatus, bookingID *int64) error
	AppendSeats(ctx context.Context, busID int64, labels []string) error
	DeleteSeats(ctx context.Context, seatIDs []int64) error

	LatestSchedule(ctx context.Context, busID int64) (*domain.Schedule, error)
	ListSchedules(ctx context.Context, busID int64) ([]domain.Schedule, error)
	InsertSchedule(ctx context.Context, s *domain.Schedule) error
	UpdateScheduleCounts(ctx context.Context, scheduleID int64, available, occupied int) error
	// DeleteSchedule refuses with a ConflictError while bookings reference the schedule.
	DeleteSchedule(ctx context.Context, id int64) error

	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	InsertBooking(ctx context.Context, b *domain.Booking) error
	UpdateBooking(ctx context.Context, b *domain.Booking) error
	DeleteBooking(ctx context.Context, id int64) error
}

// SortedUnique returns ids ascending without duplicates; locks are taken in this order.
func SortedUnique(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
