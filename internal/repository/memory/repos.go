package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/repository"
)

type busRepo struct{ s *Store }

func (r busRepo) CreateWithSeats(ctx context.Context, bus *domain.Bus) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.buses {
		if b.NumberPlate == bus.NumberPlate {
			return conflict("bus", "number_plate")
		}
	}
	now := s.now()
	bus.ID = s.nextID("buses")
	bus.CreatedAt, bus.UpdatedAt = now, now
	s.buses[bus.ID] = *bus
	s.insertSeats(bus.ID, domain.SeatLabelsRange(1, bus.NumberOfSeats))
	return nil
}

func (r busRepo) GetByID(ctx context.Context, id int64) (*domain.Bus, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.buses[id]
	if !ok {
		return nil, notFound("bus", id)
	}
	return &b, nil
}

func (r busRepo) List(ctx context.Context) ([]domain.Bus, error) {
	return r.filter(func(domain.Bus) bool { return true }), nil
}

func (r busRepo) ListByDriver(ctx context.Context, driverID int64) ([]domain.Bus, error) {
	return r.filter(func(b domain.Bus) bool { return b.DriverID == driverID }), nil
}

func (r busRepo) filter(keep func(domain.Bus) bool) []domain.Bus {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Bus, 0)
	for _, b := range r.s.buses {
		if keep(b) {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b domain.Bus) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (r busRepo) ListSeats(ctx context.Context, busID int64) ([]domain.Seat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.seatsOf(busID), nil
}

type scheduleRepo struct{ s *Store }

func (r scheduleRepo) GetByID(ctx context.Context, id int64) (*domain.Schedule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sc, ok := r.s.schedules[id]
	if !ok {
		return nil, notFound("schedule", id)
	}
	return &sc, nil
}

func (r scheduleRepo) GetLatestByBus(ctx context.Context, busID int64) (*domain.Schedule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sc, ok := r.s.latestOf(busID)
	if !ok {
		return nil, notFound("schedule for bus", busID)
	}
	return &sc, nil
}

func (r scheduleRepo) List(ctx context.Context) ([]domain.Schedule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Schedule, 0, len(r.s.schedules))
	for _, sc := range r.s.schedules {
		out = append(out, sc)
	}
	slices.SortFunc(out, func(a, b domain.Schedule) int {
		if c := a.TravelDate.Compare(b.TravelDate); c != 0 {
			return c
		}
		if c := a.DepartureAt.Compare(b.DepartureAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r scheduleRepo) ListByBus(ctx context.Context, busID int64) ([]domain.Schedule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.schedulesOf(busID), nil
}

func (r scheduleRepo) UpdateTimes(ctx context.Context, id int64, travelDate, departureAt, arrivalAt time.Time) (*domain.Schedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sc, ok := r.s.schedules[id]
	if !ok {
		return nil, notFound("schedule", id)
	}
	sc.TravelDate, sc.DepartureAt, sc.ArrivalAt = travelDate, departureAt, arrivalAt
	r.s.schedules[id] = sc
	return &sc, nil
}

type bookingRepo struct{ s *Store }

func (r bookingRepo) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, notFound("booking", id)
	}
	b = cloneBooking(b)
	return &b, nil
}

func (r bookingRepo) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool { return b.CustomerID == customerID }), nil
}

func (r bookingRepo) List(ctx context.Context) ([]domain.Booking, error) {
	return r.filter(func(domain.Booking) bool { return true }), nil
}

func (r bookingRepo) filter(keep func(domain.Booking) bool) []domain.Booking {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Booking, 0)
	for _, b := range r.s.bookings {
		if keep(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sortBookingsNewestFirst(out)
	return out
}

var (
	_ repository.BusRepository      = busRepo{}
	_ repository.ScheduleRepository = scheduleRepo{}
	_ repository.BookingRepository  = bookingRepo{}
)
