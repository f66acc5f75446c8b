package memory

import (
	"context"
	"slices"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/repository"
)

// tx records an undo step for every write so a failed callback leaves the
// store exactly as it found it.
type tx struct {
	s    *Store
	undo []func()
}

func (t *tx) record(step func()) {
	t.undo = append(t.undo, step)
}

func (t *tx) rollback() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) GetBus(ctx context.Context, id int64) (*domain.Bus, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	b, ok := t.s.buses[id]
	if !ok {
		return nil, notFound("bus", id)
	}
	return &b, nil
}

func (t *tx) UpdateBus(ctx context.Context, bus *domain.Bus) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.buses[bus.ID]
	if !ok {
		return notFound("bus", bus.ID)
	}
	for id, other := range s.buses {
		if id != bus.ID && other.NumberPlate == bus.NumberPlate {
			return conflict("bus", "number_plate")
		}
	}
	bus.UpdatedAt = s.now()
	s.buses[bus.ID] = *bus
	t.record(func() { s.buses[prev.ID] = prev })
	return nil
}

// DeleteBus cascades to the bus's seats and schedules.
func (t *tx) DeleteBus(ctx context.Context, id int64) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.buses[id]
	if !ok {
		return notFound("bus", id)
	}
	for _, b := range s.bookings {
		if b.BusID == id {
			return domain.ConflictError{Resource: "bus", Msg: "still referenced by bookings"}
		}
	}

	var seats []domain.Seat
	for sid, seat := range s.seats {
		if seat.BusID == id {
			seats = append(seats, seat)
			delete(s.seats, sid)
		}
	}
	var schedules []domain.Schedule
	for sid, sc := range s.schedules {
		if sc.BusID == id {
			schedules = append(schedules, sc)
			delete(s.schedules, sid)
		}
	}
	delete(s.buses, id)

	t.record(func() {
		s.buses[prev.ID] = prev
		for _, seat := range seats {
			s.seats[seat.ID] = seat
		}
		for _, sc := range schedules {
			s.schedules[sc.ID] = sc
		}
	})
	return nil
}

func (t *tx) HasBookings(ctx context.Context, busID int64) (bool, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	for _, b := range t.s.bookings {
		if b.BusID == busID {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) ListSeats(ctx context.Context, busID int64) ([]domain.Seat, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.seatsOf(busID), nil
}

func (t *tx) SeatsByLabels(ctx context.Context, busID int64, labels []string) ([]domain.Seat, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	out := make([]domain.Seat, 0, len(labels))
	for _, seat := range t.s.seats {
		if seat.BusID == busID && slices.Contains(labels, seat.Label) {
			out = append(out, cloneSeat(seat))
		}
	}
	sortSeats(out)
	return out, nil
}

func (t *tx) SeatsByBooking(ctx context.Context, bookingID int64) ([]domain.Seat, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	out := make([]domain.Seat, 0)
	for _, seat := range t.s.seats {
		if seat.BookingID != nil && *seat.BookingID == bookingID {
			out = append(out, cloneSeat(seat))
		}
	}
	sortSeats(out)
	return out, nil
}

func (t *tx) SetSeatStatus(ctx context.Context, seatIDs []int64, status domain.SeatStatus, bookingID *int64) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := make([]domain.Seat, 0, len(seatIDs))
	for _, id := range seatIDs {
		seat, ok := s.seats[id]
		if !ok {
			continue
		}
		prev = append(prev, seat)
		seat.Status = status
		seat.BookingID = nil
		if bookingID != nil {
			ref := *bookingID
			seat.BookingID = &ref
		}
		s.seats[id] = seat
	}
	t.record(func() {
		for _, seat := range prev {
			s.seats[seat.ID] = seat
		}
	})
	return nil
}

func (t *tx) AppendSeats(ctx context.Context, busID int64, labels []string) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seat := range s.seats {
		if seat.BusID == busID && slices.Contains(labels, seat.Label) {
			return conflict("seat", "label "+seat.Label)
		}
	}
	ids := s.insertSeats(busID, labels)
	t.record(func() {
		for _, id := range ids {
			delete(s.seats, id)
		}
	})
	return nil
}

func (t *tx) DeleteSeats(ctx context.Context, seatIDs []int64) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make([]domain.Seat, 0, len(seatIDs))
	for _, id := range seatIDs {
		if seat, ok := s.seats[id]; ok {
			removed = append(removed, seat)
			delete(s.seats, id)
		}
	}
	t.record(func() {
		for _, seat := range removed {
			s.seats[seat.ID] = seat
		}
	})
	return nil
}

func (t *tx) LatestSchedule(ctx context.Context, busID int64) (*domain.Schedule, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	sc, ok := t.s.latestOf(busID)
	if !ok {
		return nil, notFound("schedule for bus", busID)
	}
	return &sc, nil
}

func (t *tx) ListSchedules(ctx context.Context, busID int64) ([]domain.Schedule, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.schedulesOf(busID), nil
}

func (t *tx) InsertSchedule(ctx context.Context, sc *domain.Schedule) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buses[sc.BusID]; !ok {
		return notFound("bus", sc.BusID)
	}
	sc.ID = s.nextID("schedules")
	sc.CreatedAt = s.now()
	s.schedules[sc.ID] = *sc
	id := sc.ID
	t.record(func() { delete(s.schedules, id) })
	return nil
}

func (t *tx) UpdateScheduleCounts(ctx context.Context, scheduleID int64, available, occupied int) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.schedules[scheduleID]
	if !ok {
		return notFound("schedule", scheduleID)
	}
	next := prev
	next.AvailableSeats, next.OccupiedSeats = available, occupied
	s.schedules[scheduleID] = next
	t.record(func() { s.schedules[prev.ID] = prev })
	return nil
}

func (t *tx) DeleteSchedule(ctx context.Context, id int64) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.schedules[id]
	if !ok {
		return notFound("schedule", id)
	}
	for _, b := range s.bookings {
		if b.ScheduleID == id {
			return domain.ConflictError{Resource: "schedule", Msg: "still referenced by bookings"}
		}
	}
	delete(s.schedules, id)
	t.record(func() { s.schedules[prev.ID] = prev })
	return nil
}

func (t *tx) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	b, ok := t.s.bookings[id]
	if !ok {
		return nil, notFound("booking", id)
	}
	b = cloneBooking(b)
	return &b, nil
}

func (t *tx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.bookings {
		if other.Reference == b.Reference {
			return conflict("booking", "reference")
		}
	}
	now := s.now()
	b.ID = s.nextID("bookings")
	b.CreatedAt, b.UpdatedAt = now, now
	s.bookings[b.ID] = cloneBooking(*b)
	id := b.ID
	t.record(func() { delete(s.bookings, id) })
	return nil
}

func (t *tx) UpdateBooking(ctx context.Context, b *domain.Booking) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.bookings[b.ID]
	if !ok {
		return notFound("booking", b.ID)
	}
	b.UpdatedAt = s.now()
	s.bookings[b.ID] = cloneBooking(*b)
	t.record(func() { s.bookings[prev.ID] = prev })
	return nil
}

func (t *tx) DeleteBooking(ctx context.Context, id int64) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.bookings[id]
	if !ok {
		return notFound("booking", id)
	}
	delete(s.bookings, id)
	t.record(func() { s.bookings[prev.ID] = prev })
	return nil
}

var _ repository.InventoryTx = (*tx)(nil)
