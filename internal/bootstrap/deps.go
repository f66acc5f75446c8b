package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Domenick1991/busbooking/config"
	"github.com/Domenick1991/busbooking/internal/repository"
	"github.com/Domenick1991/busbooking/internal/repository/memory"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store bundles the repositories of one backing database.
type Store struct {
	Inventory repository.InventoryStore
	Buses     repository.BusRepository
	Schedules repository.ScheduleRepository
	Bookings  repository.BookingRepository
	Accounts  repository.AccountRepository
	Ready     ReadyFunc

	close func()
}

func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStore connects to PostgreSQL or builds an in-process store, depending
// on cfg.Driver.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		m := memory.New()
		return &Store{
			Inventory: m,
			Buses:     m.Buses(),
			Schedules: m.Schedules(),
			Bookings:  m.Bookings(),
			Accounts:  m.Accounts(),
		}, nil
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return &Store{
			Inventory: repository.NewInventoryStore(pool),
			Buses:     repository.NewBusRepository(pool),
			Schedules: repository.NewScheduleRepository(pool),
			Bookings:  repository.NewBookingRepository(pool),
			Accounts:  repository.NewAccountRepository(pool),
			Ready:     pool.Ping,
			close:     pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
