package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/kafka"
	"github.com/Domenick1991/busbooking/internal/policy"
	"github.com/Domenick1991/busbooking/internal/repository"
	"github.com/Domenick1991/busbooking/internal/service/allocator"
	"github.com/Domenick1991/busbooking/internal/ticket"
	"github.com/google/uuid"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, p domain.Principal, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, p domain.Principal, id int64) (*domain.Booking, error)
	ListBookings(ctx context.Context, p domain.Principal) ([]domain.Booking, error)
	UpdateBooking(ctx context.Context, p domain.Principal, id int64, input UpdateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, p domain.Principal, id int64) (*domain.Booking, error)
	Ticket(ctx context.Context, p domain.Principal, id int64) ([]byte, string, error)
}

// Allocator is the part of the seat allocator the ledger drives inside its
// own transactions.
type Allocator interface {
	ReserveTx(ctx context.Context, tx repository.InventoryTx, busID int64, labels []string, bookingID *int64) (*domain.Reservation, error)
	ReleaseTx(ctx context.Context, tx repository.InventoryTx, bookingID int64) (*allocator.Release, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type Cache interface {
	InvalidateListings(ctx context.Context) error
}

type CreateBookingInput struct {
	BusID         int64    `json:"bus_id"`
	SeatLabels    []string `json:"seat_labels"`
	NumberOfSeats *int     `json:"number_of_seats,omitempty"`
	Destination   string   `json:"destination"`
	DepartureTime string   `json:"departure_time"`
	PickupAddress string   `json:"pickup_address"`
}

// UpdateBookingInput is a partial update. A new bus or seat list moves the
// booking's seats.
type UpdateBookingInput struct {
	BusID         *int64   `json:"bus_id,omitempty"`
	SeatLabels    []string `json:"seat_labels,omitempty"`
	Destination   *string  `json:"destination,omitempty"`
	DepartureTime *string  `json:"departure_time,omitempty"`
	PickupAddress *string  `json:"pickup_address,omitempty"`
}

type BookingService struct {
	store              repository.InventoryStore
	bookings           repository.BookingRepository
	buses              repository.BusRepository
	schedules          repository.ScheduleRepository
	allocator          Allocator
	authz              policy.Authorizer
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	logger             *slog.Logger
	now                func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithCache(cache Cache) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = cache
	}
}

func WithProducer(producer Producer, bookingTopic, notificationsTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.bookingTopic = bookingTopic
		s.notificationsTopic = notificationsTopic
	}
}

func WithLogger(logger *slog.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	store repository.InventoryStore,
	bookings repository.BookingRepository,
	buses repository.BusRepository,
	schedules repository.ScheduleRepository,
	alloc Allocator,
	authz policy.Authorizer,
	opts ...BookingServiceOption,
) *BookingService {
	s := &BookingService{
		store:     store,
		bookings:  bookings,
		buses:     buses,
		schedules: schedules,
		allocator: alloc,
		authz:     authz,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BookingService) CreateBooking(ctx context.Context, p domain.Principal, input CreateBookingInput) (*domain.Booking, error) {
	if err := s.authorize(ctx, policy.ActionCreate, p, p.ID); err != nil {
		return nil, err
	}
	if err := domain.ValidateBookingDetails(input.Destination, input.DepartureTime, input.PickupAddress); err != nil {
		return nil, err
	}
	labels, err := domain.NormalizeSeatLabels(input.SeatLabels)
	if err != nil {
		return nil, err
	}
	if input.NumberOfSeats != nil && *input.NumberOfSeats != len(labels) {
		return nil, domain.ValidationError{Field: "number_of_seats", Msg: "must match the number of seat labels"}
	}

	booking := &domain.Booking{
		Reference:     uuid.NewString(),
		CustomerID:    p.ID,
		BusID:         input.BusID,
		BookingDate:   s.now().UTC(),
		NumberOfSeats: len(labels),
		SeatLabels:    labels,
		Destination:   input.Destination,
		DepartureTime: input.DepartureTime,
		PickupAddress: input.PickupAddress,
	}
	err = s.store.WithBusLocks(ctx, []int64{input.BusID}, func(tx repository.InventoryTx) error {
		bus, err := tx.GetBus(ctx, input.BusID)
		if err != nil {
			return err
		}
		schedule, err := tx.LatestSchedule(ctx, bus.ID)
		if err != nil {
			return err
		}
		booking.ScheduleID = schedule.ID
		booking.TotalCost = domain.TotalCost(bus.CostPerSeat, len(labels))
		if err := tx.InsertBooking(ctx, booking); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		_, err = s.allocator.ReserveTx(ctx, tx, bus.ID, labels, &booking.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		slog.Int64("booking_id", booking.ID),
		slog.Int64("bus_id", booking.BusID),
		slog.Any("seats", booking.SeatLabels),
	)
	s.invalidate(ctx)
	s.publish(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, p domain.Principal, id int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, policy.ActionRead, p, b.CustomerID); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBookings returns the caller's bookings, or every booking for an admin.
func (s *BookingService) ListBookings(ctx context.Context, p domain.Principal) ([]domain.Booking, error) {
	if p.Is(domain.RoleAdmin) {
		return s.bookings.List(ctx)
	}
	if err := s.authorize(ctx, policy.ActionRead, p, p.ID); err != nil {
		return nil, err
	}
	return s.bookings.ListByCustomer(ctx, p.ID)
}

func (s *BookingService) UpdateBooking(ctx context.Context, p domain.Principal, id int64, input UpdateBookingInput) (*domain.Booking, error) {
	var extra []int64
	if input.BusID != nil {
		extra = append(extra, *input.BusID)
	}

	var updated *domain.Booking
	err := s.withBookingLocks(ctx, p, policy.ActionUpdate, id, extra, func(tx repository.InventoryTx, b *domain.Booking) error {
		if input.Destination != nil {
			b.Destination = *input.Destination
		}
		if input.PickupAddress != nil {
			b.PickupAddress = *input.PickupAddress
		}
		if input.DepartureTime != nil {
			b.DepartureTime = *input.DepartureTime
		}
		if err := domain.ValidateBookingDetails(b.Destination, b.DepartureTime, b.PickupAddress); err != nil {
			return err
		}

		if input.BusID != nil || input.SeatLabels != nil {
			if err := s.moveSeats(ctx, tx, b, input); err != nil {
				return err
			}
		}
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking updated",
		slog.Int64("booking_id", updated.ID),
		slog.Int64("bus_id", updated.BusID),
		slog.Any("seats", updated.SeatLabels),
	)
	s.invalidate(ctx)
	s.publish(ctx, kafka.EventBookingUpdated, updated)
	return updated, nil
}

// moveSeats releases the booking's seats and reserves the requested ones,
// recomputing the seat count and cost from the target bus.
func (s *BookingService) moveSeats(ctx context.Context, tx repository.InventoryTx, b *domain.Booking, input UpdateBookingInput) error {
	busID := b.BusID
	if input.BusID != nil {
		busID = *input.BusID
	}
	labels := b.SeatLabels
	if input.SeatLabels != nil {
		labels = input.SeatLabels
	}
	labels, err := domain.NormalizeSeatLabels(labels)
	if err != nil {
		return err
	}
	if busID == b.BusID && slices.Equal(labels, b.SeatLabels) {
		return nil
	}

	bus, err := tx.GetBus(ctx, busID)
	if err != nil {
		return err
	}
	if _, err := s.allocator.ReleaseTx(ctx, tx, b.ID); err != nil {
		return err
	}
	res, err := s.allocator.ReserveTx(ctx, tx, bus.ID, labels, &b.ID)
	if err != nil {
		return err
	}

	b.BusID = bus.ID
	b.ScheduleID = res.ScheduleID
	b.SeatLabels = res.Seats
	b.NumberOfSeats = len(res.Seats)
	b.TotalCost = domain.TotalCost(bus.CostPerSeat, len(res.Seats))
	return nil
}

// CancelBooking deletes the booking and gives its seats back to the bus.
func (s *BookingService) CancelBooking(ctx context.Context, p domain.Principal, id int64) (*domain.Booking, error) {
	var cancelled *domain.Booking
	err := s.withBookingLocks(ctx, p, policy.ActionDelete, id, nil, func(tx repository.InventoryTx, b *domain.Booking) error {
		if _, err := s.allocator.ReleaseTx(ctx, tx, b.ID); err != nil {
			return err
		}
		if err := tx.DeleteBooking(ctx, b.ID); err != nil {
			return err
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking cancelled",
		slog.Int64("booking_id", cancelled.ID),
		slog.Int64("bus_id", cancelled.BusID),
		slog.Any("seats", cancelled.SeatLabels),
	)
	s.invalidate(ctx)
	s.publish(ctx, kafka.EventBookingCancelled, cancelled)
	return cancelled, nil
}

// maxLockAttempts bounds how often a booking is re-read when it moves to
// another bus between the read and the lock.
const maxLockAttempts = 3

var errBookingMoved = errors.New("booking moved to another bus")

// withBookingLocks authorizes p against the booking, locks its bus plus extra
// and runs fn with the booking as read under the locks. It starts over when
// the booking no longer sits on a locked bus.
func (s *BookingService) withBookingLocks(ctx context.Context, p domain.Principal, action policy.Action, id int64, extra []int64, fn func(tx repository.InventoryTx, b *domain.Booking) error) error {
	for attempt := 1; ; attempt++ {
		current, err := s.bookings.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, action, p, current.CustomerID); err != nil {
			return err
		}

		lockIDs := append([]int64{current.BusID}, extra...)
		err = s.store.WithBusLocks(ctx, lockIDs, func(tx repository.InventoryTx) error {
			b, err := tx.GetBooking(ctx, id)
			if err != nil {
				return err
			}
			if b.CustomerID != current.CustomerID {
				return domain.ForbiddenError{Action: string(action), Resource: string(policy.KindBooking)}
			}
			if !slices.Contains(lockIDs, b.BusID) {
				return errBookingMoved
			}
			return fn(tx, b)
		})
		if !errors.Is(err, errBookingMoved) {
			return err
		}
		if attempt == maxLockAttempts {
			return domain.ConflictError{Resource: "booking", Msg: "booking changed concurrently, retry"}
		}
		s.logger.Warn("booking moved before lock, retrying", slog.Int64("booking_id", id), slog.Int("attempt", attempt))
	}
}

// Ticket renders the booking's e-ticket and returns it with its file name.
func (s *BookingService) Ticket(ctx context.Context, p domain.Principal, id int64) ([]byte, string, error) {
	b, err := s.GetBooking(ctx, p, id)
	if err != nil {
		return nil, "", err
	}
	bus, err := s.buses.GetByID(ctx, b.BusID)
	if err != nil {
		return nil, "", err
	}
	data := ticket.Data{Booking: *b, Bus: *bus}
	if sc, err := s.schedules.GetByID(ctx, b.ScheduleID); err == nil {
		data.Schedule = sc
	} else if !domain.IsNotFound(err) {
		return nil, "", err
	}

	pdf, err := ticket.Render(data)
	if err != nil {
		return nil, "", err
	}
	return pdf, ticket.Filename(*b), nil
}

func (s *BookingService) authorize(ctx context.Context, action policy.Action, p domain.Principal, ownerID int64) error {
	return s.authz.Authorize(ctx, policy.Request{
		Action:   action,
		Subject:  p,
		Resource: policy.Resource{Kind: policy.KindBooking, OwnerID: ownerID},
	})
}

func (s *BookingService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateListings(ctx); err != nil {
		s.logger.Warn("invalidate listings", slog.Any("error", err))
	}
}

// publish is best effort: a broker failure is logged and never fails the booking.
func (s *BookingService) publish(ctx context.Context, eventType string, b *domain.Booking) {
	if s.producer == nil {
		return
	}
	event := kafka.BookingEvent{
		Type:       eventType,
		BookingID:  b.ID,
		Reference:  b.Reference,
		CustomerID: b.CustomerID,
		BusID:      b.BusID,
		Seats:      b.SeatLabels,
		TotalCost:  b.TotalCost,
		OccurredAt: s.now().UTC(),
	}
	for _, topic := range []string{s.bookingTopic, s.notificationsTopic} {
		if topic == "" {
			continue
		}
		if err := s.producer.Publish(ctx, topic, b.Reference, event); err != nil {
			s.logger.Warn("publish booking event",
				slog.String("topic", topic),
				slog.String("type", eventType),
				slog.Int64("booking_id", b.ID),
				slog.Any("error", err),
			)
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
