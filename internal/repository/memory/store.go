// Package memory is an in-process inventory store used by tests and by the
// "memory" database driver. It mirrors the PostgreSQL store's semantics:
// unique fields, cascades and bus-scoped all-or-nothing transactions.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/repository"
)

type Store struct {
	mu sync.RWMutex

	locksMu  sync.Mutex
	busLocks map[int64]*sync.Mutex

	buses     map[int64]domain.Bus
	seats     map[int64]domain.Seat
	schedules map[int64]domain.Schedule
	bookings  map[int64]domain.Booking
	customers map[int64]domain.Customer
	drivers   map[int64]domain.Driver
	admins    map[int64]domain.Admin

	seq map[string]int64
	now func() time.Time
}

func New() *Store {
	return &Store{
		busLocks:  make(map[int64]*sync.Mutex),
		buses:     make(map[int64]domain.Bus),
		seats:     make(map[int64]domain.Seat),
		schedules: make(map[int64]domain.Schedule),
		bookings:  make(map[int64]domain.Booking),
		customers: make(map[int64]domain.Customer),
		drivers:   make(map[int64]domain.Driver),
		admins:    make(map[int64]domain.Admin),
		seq:       make(map[string]int64),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Buses() repository.BusRepository          { return busRepo{s} }
func (s *Store) Schedules() repository.ScheduleRepository { return scheduleRepo{s} }
func (s *Store) Bookings() repository.BookingRepository   { return bookingRepo{s} }
func (s *Store) Accounts() repository.AccountRepository   { return accountRepo{s} }

// nextID must be called with mu held for writing.
func (s *Store) nextID(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func (s *Store) busLock(id int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.busLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.busLocks[id] = l
	}
	return l
}

// WithBusLocks locks the buses in ascending id order and runs fn. Writes made
// through the transaction are undone in reverse order if fn fails or panics.
func (s *Store) WithBusLocks(ctx context.Context, busIDs []int64, fn func(tx repository.InventoryTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, id := range repository.SortedUnique(busIDs) {
		l := s.busLock(id)
		l.Lock()
		defer l.Unlock()
	}

	t := &tx{s: s}
	committed := false
	defer func() {
		if !committed {
			t.rollback()
		}
	}()

	if err := fn(t); err != nil {
		return err
	}
	committed = true
	return nil
}

func cloneSeat(seat domain.Seat) domain.Seat {
	if seat.BookingID != nil {
		id := *seat.BookingID
		seat.BookingID = &id
	}
	return seat
}

func cloneBooking(b domain.Booking) domain.Booking {
	b.SeatLabels = slices.Clone(b.SeatLabels)
	return b
}

func sortSeats(seats []domain.Seat) {
	slices.SortFunc(seats, func(a, b domain.Seat) int { return strings.Compare(a.Label, b.Label) })
}

func sortBookingsNewestFirst(bookings []domain.Booking) {
	slices.SortFunc(bookings, func(a, b domain.Booking) int {
		if c := b.BookingDate.Compare(a.BookingDate); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func notFound(resource string, id int64) error {
	return domain.NotFoundError{Resource: resource, Keys: []string{formatID(id)}}
}

func conflict(resource, field string) error {
	return domain.ConflictError{Resource: resource, Msg: field + " already exists"}
}

// seatsOf and latestOf must be called with mu held.
func (s *Store) seatsOf(busID int64) []domain.Seat {
	out := make([]domain.Seat, 0)
	for _, seat := range s.seats {
		if seat.BusID == busID {
			out = append(out, cloneSeat(seat))
		}
	}
	sortSeats(out)
	return out
}

func (s *Store) latestOf(busID int64) (domain.Schedule, bool) {
	var latest domain.Schedule
	found := false
	for _, sc := range s.schedules {
		if sc.BusID == busID && (!found || sc.ID > latest.ID) {
			latest, found = sc, true
		}
	}
	return latest, found
}

func (s *Store) schedulesOf(busID int64) []domain.Schedule {
	out := make([]domain.Schedule, 0)
	for _, sc := range s.schedules {
		if sc.BusID == busID {
			out = append(out, sc)
		}
	}
	slices.SortFunc(out, func(a, b domain.Schedule) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *Store) insertSeats(busID int64, labels []string) []int64 {
	ids := make([]int64, 0, len(labels))
	for _, label := range labels {
		id := s.nextID("seats")
		s.seats[id] = domain.Seat{ID: id, BusID: busID, Label: label, Status: domain.SeatStatusAvailable}
		ids = append(ids, id)
	}
	return ids
}

var _ repository.InventoryStore = (*Store)(nil)
