package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGScheduleRepository struct {
	db *pgxpool.Pool
}

func NewScheduleRepository(db *pgxpool.Pool) ScheduleRepository {
	return &PGScheduleRepository{db: db}
}

func (r *PGScheduleRepository) GetByID(ctx context.Context, id int64) (*domain.Schedule, error) {
	s, err := scanSchedule(r.db.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id=$1`, id))
	if err != nil {
		return nil, pgError(err, "schedule", id)
	}
	return s, nil
}

func (r *PGScheduleRepository) GetLatestByBus(ctx context.Context, busID int64) (*domain.Schedule, error) {
	return latestSchedule(ctx, r.db, busID)
}

func (r *PGScheduleRepository) List(ctx context.Context) ([]domain.Schedule, error) {
	rows, err := r.db.Query(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY travel_date, departure_at, id`)
	if err != nil {
		return nil, err
	}
	return collectSchedules(rows)
}

func (r *PGScheduleRepository) ListByBus(ctx context.Context, busID int64) ([]domain.Schedule, error) {
	return listSchedules(ctx, r.db, busID)
}

func (r *PGScheduleRepository) UpdateTimes(ctx context.Context, id int64, travelDate, departureAt, arrivalAt time.Time) (*domain.Schedule, error) {
	s, err := scanSchedule(r.db.QueryRow(ctx, `UPDATE schedules SET travel_date=$1, departure_at=$2, arrival_at=$3
		WHERE id=$4 RETURNING `+scheduleColumns, travelDate, departureAt, arrivalAt, id))
	if err != nil {
		return nil, pgError(err, "schedule", id)
	}
	return s, nil
}

func latestSchedule(ctx context.Context, q querier, busID int64) (*domain.Schedule, error) {
	s, err := scanSchedule(q.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE bus_id=$1 ORDER BY id DESC LIMIT 1`, busID))
	if err != nil {
		if err = pgError(err, "schedule"); domain.IsNotFound(err) {
			return nil, domain.NotFoundError{Resource: "schedule for bus", Keys: []string{formatID(busID)}}
		}
		return nil, err
	}
	return s, nil
}

func listSchedules(ctx context.Context, q querier, busID int64) ([]domain.Schedule, error) {
	rows, err := q.Query(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE bus_id=$1 ORDER BY id`, busID)
	if err != nil {
		return nil, err
	}
	return collectSchedules(rows)
}

var _ ScheduleRepository = (*PGScheduleRepository)(nil)
