package repository

import (
	"context"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGBusRepository struct {
	db *pgxpool.Pool
}

func NewBusRepository(db *pgxpool.Pool) BusRepository {
	return &PGBusRepository{db: db}
}

func (r *PGBusRepository) CreateWithSeats(ctx context.Context, bus *domain.Bus) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, `INSERT INTO buses (driver_id, name, cost_per_seat, number_of_seats, route, travel_time, number_plate, image)
		VALUES ($1, $2, $3, $4, $5, $6::time, $7, $8)
		RETURNING id, created_at, updated_at`,
		bus.DriverID, bus.Name, bus.CostPerSeat, bus.NumberOfSeats, bus.Route, bus.TravelTime, bus.NumberPlate, bus.Image).
		Scan(&bus.ID, &bus.CreatedAt, &bus.UpdatedAt); err != nil {
		return pgError(err, "bus")
	}

	if err := insertSeats(ctx, tx, bus.ID, domain.SeatLabelsRange(1, bus.NumberOfSeats)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGBusRepository) GetByID(ctx context.Context, id int64) (*domain.Bus, error) {
	b, err := scanBus(r.db.QueryRow(ctx, `SELECT `+busColumns+` FROM buses WHERE id=$1`, id))
	if err != nil {
		return nil, pgError(err, "bus", id)
	}
	return b, nil
}

func (r *PGBusRepository) List(ctx context.Context) ([]domain.Bus, error) {
	rows, err := r.db.Query(ctx, `SELECT `+busColumns+` FROM buses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectBuses(rows)
}

func (r *PGBusRepository) ListByDriver(ctx context.Context, driverID int64) ([]domain.Bus, error) {
	rows, err := r.db.Query(ctx, `SELECT `+busColumns+` FROM buses WHERE driver_id=$1 ORDER BY id`, driverID)
	if err != nil {
		return nil, err
	}
	return collectBuses(rows)
}

func (r *PGBusRepository) ListSeats(ctx context.Context, busID int64) ([]domain.Seat, error) {
	rows, err := r.db.Query(ctx, `SELECT `+seatColumns+` FROM seats WHERE bus_id=$1 ORDER BY label`, busID)
	if err != nil {
		return nil, err
	}
	return collectSeats(rows)
}

func insertSeats(ctx context.Context, q querier, busID int64, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `INSERT INTO seats (bus_id, label, status)
		SELECT $1, label, $3 FROM unnest($2::text[]) AS label`, busID, labels, domain.SeatStatusAvailable)
	return pgError(err, "seat")
}

var _ BusRepository = (*PGBusRepository)(nil)
