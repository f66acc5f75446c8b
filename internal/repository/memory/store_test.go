package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBus(t *testing.T, s *Store, seats int, plate string) *domain.Bus {
	t.Helper()
	bus := &domain.Bus{DriverID: 1, Name: "Coast Express", CostPerSeat: 100, NumberOfSeats: seats, Route: "Nairobi-Mombasa", TravelTime: "08:00:00", NumberPlate: plate}
	require.NoError(t, s.Buses().CreateWithSeats(context.Background(), bus))
	return bus
}

func TestCreateWithSeats(t *testing.T) {
	s := New()
	bus := newBus(t, s, 3, "KAA123B")

	seats, err := s.Buses().ListSeats(context.Background(), bus.ID)
	require.NoError(t, err)
	require.Len(t, seats, 3)
	assert.Equal(t, "S001", seats[0].Label)
	assert.Equal(t, "S003", seats[2].Label)
	for _, seat := range seats {
		assert.Equal(t, domain.SeatStatusAvailable, seat.Status)
		assert.Nil(t, seat.BookingID)
	}

	err = s.Buses().CreateWithSeats(context.Background(), &domain.Bus{NumberPlate: "KAA123B", NumberOfSeats: 1})
	assert.True(t, domain.IsConflict(err))
}

func TestWithBusLocks_RollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	bus := newBus(t, s, 2, "KAA123B")

	boom := errors.New("boom")
	err := s.WithBusLocks(ctx, []int64{bus.ID}, func(tx repository.InventoryTx) error {
		seats, err := tx.SeatsByLabels(ctx, bus.ID, []string{"S001"})
		require.NoError(t, err)
		id := int64(42)
		require.NoError(t, tx.SetSeatStatus(ctx, []int64{seats[0].ID}, domain.SeatStatusBooked, &id))
		require.NoError(t, tx.InsertSchedule(ctx, &domain.Schedule{BusID: bus.ID, AvailableSeats: 2}))
		require.NoError(t, tx.AppendSeats(ctx, bus.ID, []string{"S003"}))
		require.NoError(t, tx.InsertBooking(ctx, &domain.Booking{Reference: "ref", BusID: bus.ID}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	seats, _ := s.Buses().ListSeats(ctx, bus.ID)
	require.Len(t, seats, 2)
	assert.Equal(t, domain.SeatStatusAvailable, seats[0].Status)
	assert.Nil(t, seats[0].BookingID)

	_, err = s.Schedules().GetLatestByBus(ctx, bus.ID)
	assert.True(t, domain.IsNotFound(err))

	bookings, _ := s.Bookings().List(ctx)
	assert.Empty(t, bookings)
}

func TestWithBusLocks_RollsBackOnPanic(t *testing.T) {
	s := New()
	ctx := context.Background()
	bus := newBus(t, s, 1, "KAA123B")

	assert.Panics(t, func() {
		_ = s.WithBusLocks(ctx, []int64{bus.ID}, func(tx repository.InventoryTx) error {
			seats, _ := tx.ListSeats(ctx, bus.ID)
			_ = tx.SetSeatStatus(ctx, []int64{seats[0].ID}, domain.SeatStatusBooked, nil)
			panic("boom")
		})
	})

	seats, _ := s.Buses().ListSeats(ctx, bus.ID)
	assert.Equal(t, domain.SeatStatusAvailable, seats[0].Status)

	// the bus lock must have been released
	done := make(chan struct{})
	go func() {
		_ = s.WithBusLocks(ctx, []int64{bus.ID}, func(repository.InventoryTx) error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bus lock was not released")
	}
}

func TestWithBusLocks_SerializesSameBus(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := newBus(t, s, 1, "KAA111A")
	b := newBus(t, s, 1, "KAA222B")

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		ids := []int64{a.ID, b.ID}
		if i%2 == 0 {
			ids = []int64{b.ID, a.ID}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithBusLocks(ctx, ids, func(repository.InventoryTx) error {
				mu.Lock()
				active++
				maxSeen = max(maxSeen, active)
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestWithBusLocks_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New().WithBusLocks(ctx, []int64{1}, func(repository.InventoryTx) error {
		t.Fatal("callback must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeleteBus_CascadesAndRefusesBooked(t *testing.T) {
	s := New()
	ctx := context.Background()
	bus := newBus(t, s, 2, "KAA123B")

	err := s.WithBusLocks(ctx, []int64{bus.ID}, func(tx repository.InventoryTx) error {
		return tx.InsertBooking(ctx, &domain.Booking{Reference: "r1", BusID: bus.ID})
	})
	require.NoError(t, err)

	err = s.WithBusLocks(ctx, []int64{bus.ID}, func(tx repository.InventoryTx) error {
		return tx.DeleteBus(ctx, bus.ID)
	})
	assert.True(t, domain.IsConflict(err))

	other := newBus(t, s, 2, "KBB999Z")
	err = s.WithBusLocks(ctx, []int64{other.ID}, func(tx repository.InventoryTx) error {
		if err := tx.InsertSchedule(ctx, &domain.Schedule{BusID: other.ID, AvailableSeats: 2}); err != nil {
			return err
		}
		return tx.DeleteBus(ctx, other.ID)
	})
	require.NoError(t, err)

	seats, _ := s.Buses().ListSeats(ctx, other.ID)
	assert.Empty(t, seats)
	schedules, _ := s.Schedules().ListByBus(ctx, other.ID)
	assert.Empty(t, schedules)
}

func TestScheduleDelete_RefusesReferenced(t *testing.T) {
	s := New()
	ctx := context.Background()
	bus := newBus(t, s, 2, "KAA123B")

	var sc domain.Schedule
	err := s.WithBusLocks(ctx, []int64{bus.ID}, func(tx repository.InventoryTx) error {
		sc = domain.Schedule{BusID: bus.ID, AvailableSeats: 2}
		if err := tx.InsertSchedule(ctx, &sc); err != nil {
			return err
		}
		return tx.InsertBooking(ctx, &domain.Booking{Reference: "r1", BusID: bus.ID, ScheduleID: sc.ID})
	})
	require.NoError(t, err)

	deleteSchedule := func(id int64) error {
		return s.WithBusLocks(ctx, []int64{bus.ID}, func(tx repository.InventoryTx) error {
			return tx.DeleteSchedule(ctx, id)
		})
	}
	assert.True(t, domain.IsConflict(deleteSchedule(sc.ID)))
	assert.True(t, domain.IsNotFound(deleteSchedule(sc.ID+100)))
	_, err = s.Schedules().GetByID(ctx, sc.ID)
	assert.NoError(t, err)
}

func TestAccounts_UniqueFields(t *testing.T) {
	s := New()
	ctx := context.Background()
	accounts := s.Accounts()

	c := &domain.Customer{Email: "a@example.com", PhoneNumber: "0712345678", IDOrPassport: "123456789"}
	require.NoError(t, accounts.CreateCustomer(ctx, c))

	err := accounts.CreateCustomer(ctx, &domain.Customer{Email: "b@example.com", PhoneNumber: "0712345678", IDOrPassport: "987654321"})
	var ce domain.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "phone_number already exists", ce.Msg)

	found, err := accounts.GetCustomerByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)

	d := &domain.Driver{Email: "d@example.com", PhoneNumber: "0700000000", LicenseNumber: "111111111"}
	require.NoError(t, accounts.CreateDriver(ctx, d))
	newBus(t, s, 1, "KAA123B")
	assert.True(t, domain.IsConflict(accounts.DeleteDriver(ctx, d.ID)))
}
