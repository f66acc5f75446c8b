package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/policy"
	"github.com/Domenick1991/busbooking/internal/repository"
)

type InventoryUseCase interface {
	RegisterBus(ctx context.Context, p domain.Principal, input RegisterBusInput) (*domain.Bus, error)
	GetBus(ctx context.Context, id int64) (*domain.Bus, error)
	ListBuses(ctx context.Context) ([]domain.Bus, error)
	ListBusesByDriver(ctx context.Context, driverID int64) ([]domain.Bus, error)
	ListSeats(ctx context.Context, busID int64) ([]domain.Seat, error)
	EditBus(ctx context.Context, p domain.Principal, busID int64, input EditBusInput) (*domain.Bus, error)
	DeleteBus(ctx context.Context, p domain.Principal, busID int64) error

	CreateSchedule(ctx context.Context, p domain.Principal, input CreateScheduleInput) (*domain.Schedule, error)
	GetSchedule(ctx context.Context, id int64) (*domain.Schedule, error)
	ListSchedules(ctx context.Context) ([]domain.Schedule, error)
	GetBusSchedule(ctx context.Context, busID int64) (*domain.Schedule, error)
	EditSchedule(ctx context.Context, p domain.Principal, id int64, input EditScheduleInput) (*domain.Schedule, error)
	DeleteSchedule(ctx context.Context, p domain.Principal, id int64) error
}

// ListingCache holds the public bus and schedule listings. Getters return
// nil without error on a miss.
type ListingCache interface {
	GetBuses(ctx context.Context) ([]domain.Bus, error)
	SetBuses(ctx context.Context, buses []domain.Bus) error
	GetSchedules(ctx context.Context) ([]domain.Schedule, error)
	SetSchedules(ctx context.Context, schedules []domain.Schedule) error
	InvalidateListings(ctx context.Context) error
}

type DriverLookup interface {
	GetDriverByID(ctx context.Context, id int64) (*domain.Driver, error)
}

type RegisterBusInput struct {
	DriverID      int64  `json:"driver_id,omitempty"`
	Name          string `json:"name"`
	CostPerSeat   int64  `json:"cost_per_seat"`
	NumberOfSeats int    `json:"number_of_seats"`
	Route         string `json:"route"`
	TravelTime    string `json:"travel_time"`
	NumberPlate   string `json:"number_plate"`
	Image         string `json:"image,omitempty"`
}

// EditBusInput is a partial update; nil fields are left unchanged.
type EditBusInput struct {
	Name          *string `json:"name,omitempty"`
	CostPerSeat   *int64  `json:"cost_per_seat,omitempty"`
	NumberOfSeats *int    `json:"number_of_seats,omitempty"`
	Route         *string `json:"route,omitempty"`
	TravelTime    *string `json:"travel_time,omitempty"`
	NumberPlate   *string `json:"number_plate,omitempty"`
	Image         *string `json:"image,omitempty"`
}

type CreateScheduleInput struct {
	BusID         int64  `json:"bus_id"`
	TravelDate    string `json:"travel_date"`
	DepartureTime string `json:"departure_time"`
	ArrivalTime   string `json:"arrival_time"`
	SeatCount     *int   `json:"seat_count,omitempty"`
}

type EditScheduleInput struct {
	TravelDate    *string `json:"travel_date,omitempty"`
	DepartureTime *string `json:"departure_time,omitempty"`
	ArrivalTime   *string `json:"arrival_time,omitempty"`
}

type InventoryService struct {
	store     repository.InventoryStore
	buses     repository.BusRepository
	schedules repository.ScheduleRepository
	drivers   DriverLookup
	authz     policy.Authorizer
	cache     ListingCache
	logger    *slog.Logger
	now       func() time.Time
}

type InventoryServiceOption func(*InventoryService)

func WithCache(cache ListingCache) InventoryServiceOption {
	return func(s *InventoryService) {
		s.cache = cache
	}
}

func WithLogger(logger *slog.Logger) InventoryServiceOption {
	return func(s *InventoryService) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) InventoryServiceOption {
	return func(s *InventoryService) {
		s.now = now
	}
}

func NewInventoryService(
	store repository.InventoryStore,
	buses repository.BusRepository,
	schedules repository.ScheduleRepository,
	drivers DriverLookup,
	authz policy.Authorizer,
	opts ...InventoryServiceOption,
) *InventoryService {
	s := &InventoryService{
		store:     store,
		buses:     buses,
		schedules: schedules,
		drivers:   drivers,
		authz:     authz,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InventoryService) RegisterBus(ctx context.Context, p domain.Principal, input RegisterBusInput) (*domain.Bus, error) {
	driverID := p.ID
	if p.Is(domain.RoleAdmin) {
		if input.DriverID <= 0 {
			return nil, domain.ValidationError{Field: "driver_id", Msg: "is required"}
		}
		if _, err := s.drivers.GetDriverByID(ctx, input.DriverID); err != nil {
			return nil, err
		}
		driverID = input.DriverID
	}
	if err := s.authorize(ctx, policy.ActionCreate, p, policy.KindBus, driverID); err != nil {
		return nil, err
	}

	bus := &domain.Bus{
		DriverID:      driverID,
		Name:          input.Name,
		CostPerSeat:   input.CostPerSeat,
		NumberOfSeats: input.NumberOfSeats,
		Route:         input.Route,
		TravelTime:    input.TravelTime,
		NumberPlate:   domain.NormalizePlate(input.NumberPlate),
		Image:         input.Image,
	}
	if err := domain.ValidateBus(bus); err != nil {
		return nil, err
	}
	if err := s.buses.CreateWithSeats(ctx, bus); err != nil {
		return nil, err
	}

	s.logger.Info("bus registered", slog.Int64("bus_id", bus.ID), slog.Int64("driver_id", driverID), slog.Int("seats", bus.NumberOfSeats))
	s.invalidate(ctx)
	return bus, nil
}

func (s *InventoryService) GetBus(ctx context.Context, id int64) (*domain.Bus, error) {
	return s.buses.GetByID(ctx, id)
}

func (s *InventoryService) ListBuses(ctx context.Context) ([]domain.Bus, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetBuses(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	buses, err := s.buses.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetBuses(ctx, buses); err != nil {
			s.logger.Warn("cache buses", slog.Any("error", err))
		}
	}
	return buses, nil
}

func (s *InventoryService) ListBusesByDriver(ctx context.Context, driverID int64) ([]domain.Bus, error) {
	return s.buses.ListByDriver(ctx, driverID)
}

func (s *InventoryService) ListSeats(ctx context.Context, busID int64) ([]domain.Seat, error) {
	if _, err := s.buses.GetByID(ctx, busID); err != nil {
		return nil, err
	}
	return s.buses.ListSeats(ctx, busID)
}

func (s *InventoryService) EditBus(ctx context.Context, p domain.Principal, busID int64, input EditBusInput) (*domain.Bus, error) {
	var updated *domain.Bus
	err := s.store.WithBusLocks(ctx, []int64{busID}, func(tx repository.InventoryTx) error {
		bus, err := tx.GetBus(ctx, busID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, policy.ActionUpdate, p, policy.KindBus, bus.DriverID); err != nil {
			return err
		}

		oldSeats := bus.NumberOfSeats
		applyBusEdit(bus, input)
		if err := domain.ValidateBus(bus); err != nil {
			return err
		}
		if bus.NumberOfSeats != oldSeats {
			if err := resizeSeats(ctx, tx, bus.ID, oldSeats, bus.NumberOfSeats); err != nil {
				return err
			}
		}
		if err := tx.UpdateBus(ctx, bus); err != nil {
			return err
		}
		updated = bus
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bus updated", slog.Int64("bus_id", busID), slog.Int("seats", updated.NumberOfSeats))
	s.invalidate(ctx)
	return updated, nil
}

func applyBusEdit(bus *domain.Bus, input EditBusInput) {
	if input.Name != nil {
		bus.Name = *input.Name
	}
	if input.CostPerSeat != nil {
		bus.CostPerSeat = *input.CostPerSeat
	}
	if input.NumberOfSeats != nil {
		bus.NumberOfSeats = *input.NumberOfSeats
	}
	if input.Route != nil {
		bus.Route = *input.Route
	}
	if input.TravelTime != nil {
		bus.TravelTime = *input.TravelTime
	}
	if input.NumberPlate != nil {
		bus.NumberPlate = domain.NormalizePlate(*input.NumberPlate)
	}
	if input.Image != nil {
		bus.Image = *input.Image
	}
}

// resizeSeats grows the bus by appending the next labels or shrinks it by
// removing the highest labels, then rebuilds every schedule of the bus from
// the remaining seat rows.
func resizeSeats(ctx context.Context, tx repository.InventoryTx, busID int64, from, to int) error {
	if to > from {
		if err := tx.AppendSeats(ctx, busID, domain.SeatLabelsRange(from+1, to)); err != nil {
			return fmt.Errorf("append seats: %w", err)
		}
	} else {
		seats, err := tx.ListSeats(ctx, busID)
		if err != nil {
			return err
		}
		var ids []int64
		var booked []string
		for _, seat := range seats {
			idx, ok := domain.SeatIndex(seat.Label)
			if !ok || idx <= to {
				continue
			}
			if !seat.IsAvailable() {
				booked = append(booked, seat.Label)
			}
			ids = append(ids, seat.ID)
		}
		if len(booked) > 0 {
			return domain.ConflictError{
				Resource: "bus",
				Msg:      "cannot remove booked seats " + strings.Join(booked, ", "),
				Seats:    booked,
			}
		}
		if err := tx.DeleteSeats(ctx, ids); err != nil {
			return fmt.Errorf("delete seats: %w", err)
		}
	}

	booked, err := bookedSeats(ctx, tx, busID)
	if err != nil {
		return err
	}
	schedules, err := tx.ListSchedules(ctx, busID)
	if err != nil {
		return err
	}
	for _, sc := range schedules {
		if err := tx.UpdateScheduleCounts(ctx, sc.ID, to-booked, booked); err != nil {
			return err
		}
	}
	return nil
}

func bookedSeats(ctx context.Context, tx repository.InventoryTx, busID int64) (int, error) {
	seats, err := tx.ListSeats(ctx, busID)
	if err != nil {
		return 0, err
	}
	booked := 0
	for _, seat := range seats {
		if !seat.IsAvailable() {
			booked++
		}
	}
	return booked, nil
}

func (s *InventoryService) DeleteBus(ctx context.Context, p domain.Principal, busID int64) error {
	err := s.store.WithBusLocks(ctx, []int64{busID}, func(tx repository.InventoryTx) error {
		bus, err := tx.GetBus(ctx, busID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, policy.ActionDelete, p, policy.KindBus, bus.DriverID); err != nil {
			return err
		}
		hasBookings, err := tx.HasBookings(ctx, busID)
		if err != nil {
			return err
		}
		if hasBookings {
			return domain.ConflictError{Resource: "bus", Msg: "bus has bookings"}
		}
		return tx.DeleteBus(ctx, busID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("bus deleted", slog.Int64("bus_id", busID))
	s.invalidate(ctx)
	return nil
}

func (s *InventoryService) CreateSchedule(ctx context.Context, p domain.Principal, input CreateScheduleInput) (*domain.Schedule, error) {
	date, departAt, arriveAt, err := domain.ScheduleTimes(input.TravelDate, input.DepartureTime, input.ArrivalTime, s.now())
	if err != nil {
		return nil, err
	}

	var created *domain.Schedule
	err = s.store.WithBusLocks(ctx, []int64{input.BusID}, func(tx repository.InventoryTx) error {
		bus, err := tx.GetBus(ctx, input.BusID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, policy.ActionCreate, p, policy.KindSchedule, bus.DriverID); err != nil {
			return err
		}
		if input.SeatCount != nil && *input.SeatCount != bus.NumberOfSeats {
			return domain.ValidationError{
				Field: "seat_count",
				Msg:   fmt.Sprintf("must equal the bus capacity of %d", bus.NumberOfSeats),
			}
		}

		booked, err := bookedSeats(ctx, tx, bus.ID)
		if err != nil {
			return err
		}

		sc := &domain.Schedule{
			BusID:          bus.ID,
			TravelDate:     date,
			DepartureAt:    departAt,
			ArrivalAt:      arriveAt,
			AvailableSeats: bus.NumberOfSeats - booked,
			OccupiedSeats:  booked,
		}
		if err := tx.InsertSchedule(ctx, sc); err != nil {
			return err
		}
		created = sc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("schedule created", slog.Int64("schedule_id", created.ID), slog.Int64("bus_id", created.BusID))
	s.invalidate(ctx)
	return created, nil
}

func (s *InventoryService) GetSchedule(ctx context.Context, id int64) (*domain.Schedule, error) {
	return s.schedules.GetByID(ctx, id)
}

func (s *InventoryService) ListSchedules(ctx context.Context) ([]domain.Schedule, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetSchedules(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	schedules, err := s.schedules.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetSchedules(ctx, schedules); err != nil {
			s.logger.Warn("cache schedules", slog.Any("error", err))
		}
	}
	return schedules, nil
}

// GetBusSchedule returns the bus's active schedule, the one seats are booked against.
func (s *InventoryService) GetBusSchedule(ctx context.Context, busID int64) (*domain.Schedule, error) {
	return s.schedules.GetLatestByBus(ctx, busID)
}

func (s *InventoryService) EditSchedule(ctx context.Context, p domain.Principal, id int64, input EditScheduleInput) (*domain.Schedule, error) {
	current, err := s.scheduleOwnedBy(ctx, p, policy.ActionUpdate, id)
	if err != nil {
		return nil, err
	}

	travelDate := current.TravelDate.Format(domain.DateLayout)
	departure := current.DepartureAt.Format(domain.ClockLayout)
	arrival := current.ArrivalAt.Format(domain.ClockLayout)
	if input.TravelDate != nil {
		travelDate = *input.TravelDate
	}
	if input.DepartureTime != nil {
		departure = *input.DepartureTime
	}
	if input.ArrivalTime != nil {
		arrival = *input.ArrivalTime
	}
	date, departAt, arriveAt, err := domain.ScheduleTimes(travelDate, departure, arrival, s.now())
	if err != nil {
		return nil, err
	}

	updated, err := s.schedules.UpdateTimes(ctx, id, date, departAt, arriveAt)
	if err != nil {
		return nil, err
	}
	s.logger.Info("schedule updated", slog.Int64("schedule_id", id))
	s.invalidate(ctx)
	return updated, nil
}

// DeleteSchedule removes a schedule no booking references. When it was the
// bus's active schedule, the next latest one takes over with counters rebuilt
// from the seat rows.
func (s *InventoryService) DeleteSchedule(ctx context.Context, p domain.Principal, id int64) error {
	sc, err := s.scheduleOwnedBy(ctx, p, policy.ActionDelete, id)
	if err != nil {
		return err
	}

	err = s.store.WithBusLocks(ctx, []int64{sc.BusID}, func(tx repository.InventoryTx) error {
		active, err := tx.LatestSchedule(ctx, sc.BusID)
		if err != nil {
			return err
		}
		if err := tx.DeleteSchedule(ctx, id); err != nil {
			return err
		}
		if active.ID != id {
			return nil
		}

		next, err := tx.LatestSchedule(ctx, sc.BusID)
		if domain.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		bus, err := tx.GetBus(ctx, sc.BusID)
		if err != nil {
			return err
		}
		booked, err := bookedSeats(ctx, tx, bus.ID)
		if err != nil {
			return err
		}
		return tx.UpdateScheduleCounts(ctx, next.ID, bus.NumberOfSeats-booked, booked)
	})
	if err != nil {
		return err
	}
	s.logger.Info("schedule deleted", slog.Int64("schedule_id", id), slog.Int64("bus_id", sc.BusID))
	s.invalidate(ctx)
	return nil
}

func (s *InventoryService) scheduleOwnedBy(ctx context.Context, p domain.Principal, action policy.Action, id int64) (*domain.Schedule, error) {
	sc, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	bus, err := s.buses.GetByID(ctx, sc.BusID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, action, p, policy.KindSchedule, bus.DriverID); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *InventoryService) authorize(ctx context.Context, action policy.Action, p domain.Principal, kind policy.Kind, ownerID int64) error {
	return s.authz.Authorize(ctx, policy.Request{
		Action:   action,
		Subject:  p,
		Resource: policy.Resource{Kind: kind, OwnerID: ownerID},
	})
}

func (s *InventoryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateListings(ctx); err != nil {
		s.logger.Warn("invalidate listings", slog.Any("error", err))
	}
}

var _ InventoryUseCase = (*InventoryService)(nil)
