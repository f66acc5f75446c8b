// Command seed loads a small demo data set: one admin, two drivers with a bus
// and a schedule each, and a handful of customers holding bookings.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Domenick1991/busbooking/config"
	"github.com/Domenick1991/busbooking/internal/auth"
	"github.com/Domenick1991/busbooking/internal/bootstrap"
	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/policy"
	"github.com/Domenick1991/busbooking/internal/service/account"
	"github.com/Domenick1991/busbooking/internal/service/allocator"
	"github.com/Domenick1991/busbooking/internal/service/booking"
	"github.com/Domenick1991/busbooking/internal/service/inventory"
	"github.com/spf13/pflag"
)

const demoPassword = "password123"

func main() {
	cfgPath := pflag.StringP("config", "c", "config.yaml", "path to the YAML config file")
	customers := pflag.Int("customers", 5, "number of demo customers")
	pflag.Parse()

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := bootstrap.NewLogger(cfg.Log, os.Stdout)

	if err := seed(context.Background(), cfg, *customers, logger); err != nil {
		logger.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
}

type services struct {
	accounts  *account.AccountService
	inventory *inventory.InventoryService
	bookings  *booking.BookingService
}

func seed(ctx context.Context, cfg *config.Config, customerCount int, logger *slog.Logger) error {
	store, err := bootstrap.OpenStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	authz, err := policy.NewAuthorizer(ctx)
	if err != nil {
		return err
	}
	alloc := allocator.New(store.Inventory, store.Buses, allocator.WithLogger(logger))
	svc := services{
		accounts: account.NewAccountService(store.Accounts,
			auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL()),
			auth.NewMemoryRevocations(), authz, account.WithLogger(logger)),
		inventory: inventory.NewInventoryService(store.Inventory, store.Buses, store.Schedules, store.Accounts, authz, inventory.WithLogger(logger)),
		bookings:  booking.NewBookingService(store.Inventory, store.Bookings, store.Buses, store.Schedules, alloc, authz, booking.WithLogger(logger)),
	}

	if _, _, err := svc.accounts.SignupAdmin(ctx, account.SignupAdminInput{
		Username: "admin_user",
		Email:    "admin@example.com",
		Password: demoPassword,
	}); err != nil {
		return fmt.Errorf("admin: %w", err)
	}

	buses := make([]*domain.Bus, 0, 2)
	for i := range 2 {
		bus, err := svc.seedDriver(ctx, i)
		if err != nil {
			return err
		}
		buses = append(buses, bus)
	}

	nextSeat := make(map[int64]int, len(buses))
	booked := 0
	for i := range customerCount {
		c, _, err := svc.accounts.SignupCustomer(ctx, account.SignupCustomerInput{
			FirstName:    "Customer",
			LastName:     fmt.Sprintf("Demo%d", i+1),
			Email:        fmt.Sprintf("customer%d@example.com", i+1),
			Password:     demoPassword,
			Address:      fmt.Sprintf("%d Station Road", 10+i),
			PhoneNumber:  fmt.Sprintf("07%08d", 10000000+i),
			IDOrPassport: fmt.Sprintf("%09d", 100000000+i),
		})
		if err != nil {
			return fmt.Errorf("customer %d: %w", i+1, err)
		}

		bus := buses[i%len(buses)]
		from := nextSeat[bus.ID] + 1
		to := min(from+i%3, bus.NumberOfSeats)
		if from > to {
			logger.Warn("bus full, skipping booking", slog.Int64("bus_id", bus.ID))
			continue
		}
		nextSeat[bus.ID] = to

		_, err = svc.bookings.CreateBooking(ctx, domain.Principal{ID: c.ID, Role: domain.RoleCustomer}, booking.CreateBookingInput{
			BusID:         bus.ID,
			SeatLabels:    domain.SeatLabelsRange(from, to),
			Destination:   bus.Route,
			DepartureTime: bus.TravelTime,
			PickupAddress: fmt.Sprintf("%d Station Road", 10+i),
		})
		if err != nil {
			return fmt.Errorf("booking for customer %d: %w", i+1, err)
		}
		booked++
	}

	logger.Info("seed finished",
		slog.Int("drivers", len(buses)),
		slog.Int("buses", len(buses)),
		slog.Int("customers", customerCount),
		slog.Int("bookings", booked),
	)
	return nil
}

var routes = []struct {
	name, route, plate, travel string
	seats                      int
	cost                       int64
}{
	{name: "Coastline Express", route: "Mombasa - Nairobi", plate: "KBA123A", travel: "06:30:00", seats: 40, cost: 150},
	{name: "Lakeside Shuttle", route: "Kisumu - Nakuru", plate: "KCD456B", travel: "09:15:00", seats: 32, cost: 120},
}

func (s services) seedDriver(ctx context.Context, i int) (*domain.Bus, error) {
	d, _, err := s.accounts.SignupDriver(ctx, account.SignupDriverInput{
		FirstName:       "Driver",
		LastName:        fmt.Sprintf("Demo%d", i+1),
		Email:           fmt.Sprintf("driver%d@example.com", i+1),
		Password:        demoPassword,
		LicenseNumber:   fmt.Sprintf("%09d", 200000000+i),
		ExperienceYears: 3 + i*4,
		PhoneNumber:     fmt.Sprintf("07%08d", 20000000+i),
	})
	if err != nil {
		return nil, fmt.Errorf("driver %d: %w", i+1, err)
	}
	p := domain.Principal{ID: d.ID, Role: domain.RoleDriver}

	r := routes[i%len(routes)]
	bus, err := s.inventory.RegisterBus(ctx, p, inventory.RegisterBusInput{
		Name:          r.name,
		CostPerSeat:   r.cost,
		NumberOfSeats: r.seats,
		Route:         r.route,
		TravelTime:    r.travel,
		NumberPlate:   r.plate,
	})
	if err != nil {
		return nil, fmt.Errorf("bus for driver %d: %w", i+1, err)
	}

	travelDate := time.Now().AddDate(0, 0, 7*(i+1)).Format(time.DateOnly)
	if _, err := s.inventory.CreateSchedule(ctx, p, inventory.CreateScheduleInput{
		BusID:         bus.ID,
		TravelDate:    travelDate,
		DepartureTime: "14:30:00",
		ArrivalTime:   "16:30:00",
	}); err != nil {
		return nil, fmt.Errorf("schedule for bus %d: %w", bus.ID, err)
	}
	return bus, nil
}
