package booking

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/kafka"
	"github.com/Domenick1991/busbooking/internal/policy"
	"github.com/Domenick1991/busbooking/internal/repository"
	"github.com/Domenick1991/busbooking/internal/repository/memory"
	"github.com/Domenick1991/busbooking/internal/service/allocator"
	"github.com/Domenick1991/busbooking/internal/service/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value any) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) InvalidateListings(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

const (
	eventsTopic        = "booking-events"
	notificationsTopic = "booking-notifications"
)

var (
	alice = domain.Principal{ID: 1, Role: domain.RoleCustomer}
	bob   = domain.Principal{ID: 2, Role: domain.RoleCustomer}
	admin = domain.Principal{ID: 1, Role: domain.RoleAdmin}
	drv   = domain.Principal{ID: 1, Role: domain.RoleDriver}
)

type fixture struct {
	svc      *BookingService
	store    *memory.Store
	producer *MockProducer
	cache    *MockCache
	busID    int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authz, err := policy.NewAuthorizer(ctx)
	require.NoError(t, err)
	store := memory.New()
	busID := addBus(t, store, "KAA123B", 3, 100)

	f := &fixture{store: store, producer: &MockProducer{}, cache: &MockCache{}, busID: busID}
	f.svc = NewBookingService(
		store,
		store.Bookings(),
		store.Buses(),
		store.Schedules(),
		allocator.New(store, store.Buses(), allocator.WithLogger(logger)),
		authz,
		WithCache(f.cache),
		WithProducer(f.producer, eventsTopic, notificationsTopic),
		WithLogger(logger),
		WithClock(func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }),
	)
	return f
}

func addBus(t *testing.T, store *memory.Store, plate string, seats int, cost int64) int64 {
	t.Helper()
	ctx := context.Background()
	bus := &domain.Bus{DriverID: 1, Name: "Bus " + plate, CostPerSeat: cost, NumberOfSeats: seats, Route: "A-B", TravelTime: "08:00:00", NumberPlate: plate}
	require.NoError(t, store.Buses().CreateWithSeats(ctx, bus))
	require.NoError(t, store.WithBusLocks(ctx, []int64{bus.ID}, func(tx repository.InventoryTx) error {
		return tx.InsertSchedule(ctx, &domain.Schedule{BusID: bus.ID, AvailableSeats: seats})
	}))
	return bus.ID
}

func (f *fixture) expectEvents(eventType string, times int) {
	isType := mock.MatchedBy(func(e kafka.BookingEvent) bool { return e.Type == eventType })
	f.producer.On("Publish", mock.Anything, eventsTopic, mock.AnythingOfType("string"), isType).Return(nil).Times(times)
	f.producer.On("Publish", mock.Anything, notificationsTopic, mock.AnythingOfType("string"), isType).Return(nil).Times(times)
	f.cache.On("InvalidateListings", mock.Anything).Return(nil).Times(times)
}

func (f *fixture) schedule(t *testing.T, busID int64) *domain.Schedule {
	t.Helper()
	sc, err := f.store.Schedules().GetLatestByBus(context.Background(), busID)
	require.NoError(t, err)
	return sc
}

func (f *fixture) seatStatus(t *testing.T, busID int64) map[string]domain.SeatStatus {
	t.Helper()
	seats, err := f.store.Buses().ListSeats(context.Background(), busID)
	require.NoError(t, err)
	out := make(map[string]domain.SeatStatus, len(seats))
	for _, s := range seats {
		out[s.Label] = s.Status
	}
	return out
}

func validInput(busID int64, labels ...string) CreateBookingInput {
	return CreateBookingInput{
		BusID:         busID,
		SeatLabels:    labels,
		Destination:   "Mombasa",
		DepartureTime: "08:00:00",
		PickupAddress: "Main stage",
	}
}

func TestBookingService_CreateBooking_Success(t *testing.T) {
	f := newFixture(t)
	f.expectEvents(kafka.EventBookingCreated, 1)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, alice, validInput(f.busID, "s001", "S002"))
	require.NoError(t, err)
	assert.NotEmpty(t, b.Reference)
	assert.Equal(t, alice.ID, b.CustomerID)
	assert.Equal(t, []string{"S001", "S002"}, b.SeatLabels)
	assert.Equal(t, 2, b.NumberOfSeats)
	assert.Equal(t, int64(200), b.TotalCost)

	sc := f.schedule(t, f.busID)
	assert.Equal(t, sc.ID, b.ScheduleID)
	assert.Equal(t, 1, sc.AvailableSeats)
	assert.Equal(t, 2, sc.OccupiedSeats)

	seats, err := f.store.Buses().ListSeats(ctx, f.busID)
	require.NoError(t, err)
	for _, s := range seats[:2] {
		require.NotNil(t, s.BookingID)
		assert.Equal(t, b.ID, *s.BookingID)
	}
	assert.True(t, seats[2].IsAvailable())

	f.producer.AssertExpectations(t)
	f.cache.AssertExpectations(t)
}

func TestBookingService_CreateBooking_SeatTakenRollsBack(t *testing.T) {
	f := newFixture(t)
	f.expectEvents(kafka.EventBookingCreated, 1)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, alice, validInput(f.busID, "S002"))
	require.NoError(t, err)

	_, err = f.svc.CreateBooking(ctx, bob, validInput(f.busID, "S001", "S002"))
	var ce domain.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"S002"}, ce.Seats)

	bookings, err := f.store.Bookings().ListByCustomer(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, bookings)
	assert.Equal(t, domain.SeatStatusAvailable, f.seatStatus(t, f.busID)["S001"])
	assert.Equal(t, 1, f.schedule(t, f.busID).OccupiedSeats)
	f.producer.AssertExpectations(t)
}

func TestBookingService_CreateBooking_Invalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	three := 3

	tests := []struct {
		name  string
		p     domain.Principal
		input CreateBookingInput
		check func(error) bool
	}{
		{"admin cannot book", admin, validInput(f.busID, "S001"), domain.IsForbidden},
		{"driver cannot book", drv, validInput(f.busID, "S001"), domain.IsForbidden},
		{"no seats", alice, validInput(f.busID), domain.IsValidation},
		{"unknown seat", alice, validInput(f.busID, "S009"), domain.IsNotFound},
		{"unknown bus", alice, validInput(99, "S001"), domain.IsNotFound},
		{"bad departure", alice, CreateBookingInput{BusID: f.busID, SeatLabels: []string{"S001"}, Destination: "X", PickupAddress: "Y", DepartureTime: "noon"}, domain.IsValidation},
		{"missing destination", alice, CreateBookingInput{BusID: f.busID, SeatLabels: []string{"S001"}, PickupAddress: "Y", DepartureTime: "08:00:00"}, domain.IsValidation},
		{"seat count mismatch", alice, CreateBookingInput{BusID: f.busID, SeatLabels: []string{"S001"}, NumberOfSeats: &three, Destination: "X", PickupAddress: "Y", DepartureTime: "08:00:00"}, domain.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateBooking(ctx, tt.p, tt.input)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}

	all, err := f.store.Bookings().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	f.producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_CreateBooking_NoSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bus := &domain.Bus{DriverID: 1, Name: "Bare", CostPerSeat: 10, NumberOfSeats: 2, Route: "A-B", TravelTime: "08:00:00", NumberPlate: "KBB222B"}
	require.NoError(t, f.store.Buses().CreateWithSeats(ctx, bus))

	_, err := f.svc.CreateBooking(ctx, alice, validInput(bus.ID, "S001"))
	assert.True(t, domain.IsNotFound(err))
	assert.Equal(t, domain.SeatStatusAvailable, f.seatStatus(t, bus.ID)["S001"])
}

func TestBookingService_CreateBooking_PublishFailureIgnored(t *testing.T) {
	f := newFixture(t)
	f.producer.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	f.cache.On("InvalidateListings", mock.Anything).Return(errors.New("redis down"))

	b, err := f.svc.CreateBooking(context.Background(), alice, validInput(f.busID, "S003"))
	require.NoError(t, err)
	assert.Equal(t, []string{"S003"}, b.SeatLabels)
	f.producer.AssertNumberOfCalls(t, "Publish", 2)
}

func TestBookingService_GetAndList(t *testing.T) {
	f := newFixture(t)
	f.expectEvents(kafka.EventBookingCreated, 2)
	ctx := context.Background()

	mine, err := f.svc.CreateBooking(ctx, alice, validInput(f.busID, "S001"))
	require.NoError(t, err)
	_, err = f.svc.CreateBooking(ctx, bob, validInput(f.busID, "S002"))
	require.NoError(t, err)

	got, err := f.svc.GetBooking(ctx, alice, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.Reference, got.Reference)

	_, err = f.svc.GetBooking(ctx, bob, mine.ID)
	assert.True(t, domain.IsForbidden(err))

	_, err = f.svc.GetBooking(ctx, admin, mine.ID)
	assert.NoError(t, err)

	_, err = f.svc.GetBooking(ctx, alice, 404)
	assert.True(t, domain.IsNotFound(err))

	list, err := f.svc.ListBookings(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	all, err := f.svc.ListBookings(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.ListBookings(ctx, drv)
	assert.True(t, domain.IsForbidden(err))
}

func TestBookingService_UpdateBooking_MoveSeats(t *testing.T) {
	f := newFixture(t)
	f.expectEvents(kafka.EventBookingCreated, 1)
	f.expectEvents(kafka.EventBookingUpdated, 2)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, alice, validInput(f.busID, "S001"))
	require.NoError(t, err)

	updated, err := f.svc.UpdateBooking(ctx, alice, b.ID, UpdateBookingInput{SeatLabels: []string{"S002", "S003"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"S002", "S003"}, updated.SeatLabels)
	assert.Equal(t, int64(200), updated.TotalCost)
	status := f.seatStatus(t, f.busID)
	assert.Equal(t, domain.SeatStatusAvailable, status["S001"])
	assert.Equal(t, domain.SeatStatusBooked, status["S002"])
	assert.Equal(t, domain.SeatStatusBooked, status["S003"])
	sc := f.schedule(t, f.busID)
	assert.Equal(t, 2, sc.OccupiedSeats)
	assert.Equal(t, 1, sc.AvailableSeats)

	other := addBus(t, f.store, "KCC333C", 2, 50)
	moved, err := f.svc.UpdateBooking(ctx, alice, b.ID, UpdateBookingInput{BusID: &other, SeatLabels: []string{"S001"}})
	require.NoError(t, err)
	assert.Equal(t, other, moved.BusID)
	assert.Equal(t, int64(50), moved.TotalCost)
	assert.Equal(t, f.schedule(t, other).ID, moved.ScheduleID)
	assert.Equal(t, 0, f.schedule(t, f.busID).OccupiedSeats)
	assert.Equal(t, 3, f.schedule(t, f.busID).AvailableSeats)
	assert.Equal(t, 1, f.schedule(t, other).OccupiedSeats)
	f.producer.AssertExpectations(t)
}

func TestBookingService_UpdateBooking_Failures(t *testing.T) {
	f := newFixture(t)
	f.expectEvents(kafka.EventBookingCreated, 2)
	f.expectEvents(kafka.EventBookingUpdated, 1)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, alice, validInput(f.busID, "S001"))
	require.NoError(t, err)
	_, err = f.svc.CreateBooking(ctx, bob, validInput(f.busID, "S002"))
	require.NoError(t, err)

	_, err = f.svc.UpdateBooking(ctx, alice, b.ID, UpdateBookingInput{SeatLabels: []string{"S002"}, Destination: strPtr("Kisumu")})
	assert.True(t, domain.IsConflict(err))
	got, err := f.store.Bookings().GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mombasa", got.Destination)
	assert.Equal(t, []string{"S001"}, got.SeatLabels)
	assert.Equal(t, domain.SeatStatusBooked, f.seatStatus(t, f.busID)["S001"])

	_, err = f.svc.UpdateBooking(ctx, bob, b.ID, UpdateBookingInput{Destination: strPtr("Kisumu")})
	assert.True(t, domain.IsForbidden(err))

	_, err = f.svc.UpdateBooking(ctx, admin, b.ID, UpdateBookingInput{Destination: strPtr("Kisumu")})
	assert.True(t, domain.IsForbidden(err))

	_, err = f.svc.UpdateBooking(ctx, alice, b.ID, UpdateBookingInput{DepartureTime: strPtr("late")})
	assert.True(t, domain.IsValidation(err))

	updated, err := f.svc.UpdateBooking(ctx, alice, b.ID, UpdateBookingInput{Destination: strPtr("Kisumu")})
	require.NoError(t, err)
	assert.Equal(t, "Kisumu", updated.Destination)
	assert.Equal(t, []string{"S001"}, updated.SeatLabels)
}

func TestBookingService_CancelBooking(t *testing.T) {
	f := newFixture(t)
	f.expectEvents(kafka.EventBookingCreated, 1)
	f.expectEvents(kafka.EventBookingCancelled, 1)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, alice, validInput(f.busID, "S001", "S002"))
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(ctx, bob, b.ID)
	assert.True(t, domain.IsForbidden(err))

	cancelled, err := f.svc.CancelBooking(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, cancelled.ID)

	_, err = f.store.Bookings().GetByID(ctx, b.ID)
	assert.True(t, domain.IsNotFound(err))
	for _, st := range f.seatStatus(t, f.busID) {
		assert.Equal(t, domain.SeatStatusAvailable, st)
	}
	sc := f.schedule(t, f.busID)
	assert.Equal(t, 3, sc.AvailableSeats)
	assert.Equal(t, 0, sc.OccupiedSeats)

	_, err = f.svc.CancelBooking(ctx, alice, b.ID)
	assert.True(t, domain.IsNotFound(err))
	f.producer.AssertExpectations(t)
}

func TestBookingService_CancelBooking_AcrossSchedules(t *testing.T) {
	ctx := context.Background()
	newInventory := func(t *testing.T, f *fixture) *inventory.InventoryService {
		t.Helper()
		authz, err := policy.NewAuthorizer(ctx)
		require.NoError(t, err)
		return inventory.NewInventoryService(f.store, f.store.Buses(), f.store.Schedules(), f.store.Accounts(), authz,
			inventory.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			inventory.WithClock(func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }),
		)
	}
	nextSchedule := inventory.CreateScheduleInput{TravelDate: "2026-03-12", DepartureTime: "08:00:00", ArrivalTime: "14:00:00"}

	assertCapacity := func(t *testing.T, sc *domain.Schedule) {
		t.Helper()
		assert.Equal(t, 3, sc.AvailableSeats+sc.OccupiedSeats)
		assert.Equal(t, 0, sc.AvailableSeats)
		assert.Equal(t, 3, sc.OccupiedSeats)
	}

	t.Run("newer schedule deleted", func(t *testing.T) {
		f := newFixture(t)
		f.expectEvents(kafka.EventBookingCreated, 2)
		f.expectEvents(kafka.EventBookingCancelled, 1)
		inv := newInventory(t, f)
		first := f.schedule(t, f.busID)

		b, err := f.svc.CreateBooking(ctx, alice, validInput(f.busID, "S001", "S002"))
		require.NoError(t, err)
		input := nextSchedule
		input.BusID = f.busID
		second, err := inv.CreateSchedule(ctx, drv, input)
		require.NoError(t, err)

		_, err = f.svc.CancelBooking(ctx, alice, b.ID)
		require.NoError(t, err)
		require.NoError(t, inv.DeleteSchedule(ctx, drv, second.ID))
		assert.Equal(t, first.ID, f.schedule(t, f.busID).ID)

		all, err := f.svc.CreateBooking(ctx, bob, validInput(f.busID, "S001", "S002", "S003"))
		require.NoError(t, err)
		assert.Equal(t, first.ID, all.ScheduleID)
		assertCapacity(t, f.schedule(t, f.busID))
	})

	t.Run("newer schedule kept", func(t *testing.T) {
		f := newFixture(t)
		f.expectEvents(kafka.EventBookingCreated, 2)
		f.expectEvents(kafka.EventBookingCancelled, 1)
		inv := newInventory(t, f)

		b, err := f.svc.CreateBooking(ctx, alice, validInput(f.busID, "S001", "S002"))
		require.NoError(t, err)
		input := nextSchedule
		input.BusID = f.busID
		second, err := inv.CreateSchedule(ctx, drv, input)
		require.NoError(t, err)

		_, err = f.svc.CancelBooking(ctx, alice, b.ID)
		require.NoError(t, err)
		_, err = f.svc.CreateBooking(ctx, bob, validInput(f.busID, "S001", "S002", "S003"))
		require.NoError(t, err)

		sc := f.schedule(t, f.busID)
		assert.Equal(t, second.ID, sc.ID)
		assertCapacity(t, sc)
	})
}

// movingStore runs before once, ahead of the first lock it hands out.
type movingStore struct {
	repository.InventoryStore
	before func()
}

func (s *movingStore) WithBusLocks(ctx context.Context, busIDs []int64, fn func(repository.InventoryTx) error) error {
	if before := s.before; before != nil {
		s.before = nil
		before()
	}
	return s.InventoryStore.WithBusLocks(ctx, busIDs, fn)
}

func TestBookingService_CancelBooking_BookingMovedBeforeLock(t *testing.T) {
	f := newFixture(t)
	f.expectEvents(kafka.EventBookingCreated, 1)
	f.expectEvents(kafka.EventBookingUpdated, 1)
	ctx := context.Background()
	other := addBus(t, f.store, "KCC333C", 2, 50)

	b, err := f.svc.CreateBooking(ctx, alice, validInput(f.busID, "S001"))
	require.NoError(t, err)

	authz, err := policy.NewAuthorizer(ctx)
	require.NoError(t, err)
	store := &movingStore{InventoryStore: f.store}
	store.before = func() {
		_, err := f.svc.UpdateBooking(ctx, alice, b.ID, UpdateBookingInput{BusID: &other, SeatLabels: []string{"S002"}})
		require.NoError(t, err)
	}
	svc := NewBookingService(store, f.store.Bookings(), f.store.Buses(), f.store.Schedules(),
		allocator.New(f.store, f.store.Buses()), authz,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	cancelled, err := svc.CancelBooking(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, other, cancelled.BusID)

	for _, st := range f.seatStatus(t, other) {
		assert.Equal(t, domain.SeatStatusAvailable, st)
	}
	sc := f.schedule(t, other)
	assert.Equal(t, 2, sc.AvailableSeats)
	assert.Equal(t, 0, sc.OccupiedSeats)
	assert.Equal(t, 3, f.schedule(t, f.busID).AvailableSeats)
	f.producer.AssertExpectations(t)
}

func TestBookingService_UpdateBooking_GivesUpWhenBookingKeepsMoving(t *testing.T) {
	f := newFixture(t)
	f.expectEvents(kafka.EventBookingCreated, 1)
	ctx := context.Background()
	other := addBus(t, f.store, "KCC333C", 2, 50)

	b, err := f.svc.CreateBooking(ctx, alice, validInput(f.busID, "S001"))
	require.NoError(t, err)

	authz, err := policy.NewAuthorizer(ctx)
	require.NoError(t, err)
	bookings := &flippingBookings{BookingRepository: f.store.Bookings(), busID: other}
	svc := NewBookingService(f.store, bookings, f.store.Buses(), f.store.Schedules(),
		allocator.New(f.store, f.store.Buses()), authz,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err = svc.UpdateBooking(ctx, alice, b.ID, UpdateBookingInput{Destination: strPtr("Kisumu")})
	assert.True(t, domain.IsConflict(err))
	assert.Equal(t, maxLockAttempts, bookings.reads)

	got, err := f.store.Bookings().GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mombasa", got.Destination)
}

// flippingBookings always reports the booking on busID, so the locked bus
// never matches the one seen under the lock.
type flippingBookings struct {
	repository.BookingRepository
	busID int64
	reads int
}

func (r *flippingBookings) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	r.reads++
	b, err := r.BookingRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	b.BusID = r.busID
	return b, nil
}

func TestBookingService_Ticket(t *testing.T) {
	f := newFixture(t)
	f.expectEvents(kafka.EventBookingCreated, 1)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, alice, validInput(f.busID, "S001"))
	require.NoError(t, err)

	pdf, name, err := f.svc.Ticket(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	assert.Equal(t, "ticket-"+b.Reference+".pdf", name)

	_, _, err = f.svc.Ticket(ctx, bob, b.ID)
	assert.True(t, domain.IsForbidden(err))
}

func strPtr(v string) *string { return &v }
