package repository

import (
	"context"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGAccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) AccountRepository {
	return &PGAccountRepository{db: db}
}

const customerColumns = `id, first_name, last_name, email, password_hash, address, phone_number, id_or_passport`

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.PasswordHash, &c.Address, &c.PhoneNumber, &c.IDOrPassport); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PGAccountRepository) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	err := r.db.QueryRow(ctx, `INSERT INTO customers (first_name, last_name, email, password_hash, address, phone_number, id_or_passport)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		c.FirstName, c.LastName, c.Email, c.PasswordHash, c.Address, c.PhoneNumber, c.IDOrPassport).Scan(&c.ID)
	return pgError(err, "customer")
}

func (r *PGAccountRepository) GetCustomerByID(ctx context.Context, id int64) (*domain.Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id))
	if err != nil {
		return nil, pgError(err, "customer", id)
	}
	return c, nil
}

func (r *PGAccountRepository) GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE email=$1`, email))
	if err != nil {
		return nil, pgError(err, "customer")
	}
	return c, nil
}

func (r *PGAccountRepository) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := r.db.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

const driverColumns = `id, first_name, last_name, license_number, experience_years, phone_number, email, password_hash`

func scanDriver(row pgx.Row) (*domain.Driver, error) {
	var d domain.Driver
	if err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.LicenseNumber, &d.ExperienceYears, &d.PhoneNumber, &d.Email, &d.PasswordHash); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PGAccountRepository) CreateDriver(ctx context.Context, d *domain.Driver) error {
	err := r.db.QueryRow(ctx, `INSERT INTO drivers (first_name, last_name, license_number, experience_years, phone_number, email, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		d.FirstName, d.LastName, d.LicenseNumber, d.ExperienceYears, d.PhoneNumber, d.Email, d.PasswordHash).Scan(&d.ID)
	return pgError(err, "driver")
}

func (r *PGAccountRepository) GetDriverByID(ctx context.Context, id int64) (*domain.Driver, error) {
	d, err := scanDriver(r.db.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id=$1`, id))
	if err != nil {
		return nil, pgError(err, "driver", id)
	}
	return d, nil
}

func (r *PGAccountRepository) GetDriverByEmail(ctx context.Context, email string) (*domain.Driver, error) {
	d, err := scanDriver(r.db.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE email=$1`, email))
	if err != nil {
		return nil, pgError(err, "driver")
	}
	return d, nil
}

func (r *PGAccountRepository) ListDrivers(ctx context.Context) ([]domain.Driver, error) {
	rows, err := r.db.Query(ctx, `SELECT `+driverColumns+` FROM drivers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drivers := make([]domain.Driver, 0)
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, *d)
	}
	return drivers, rows.Err()
}

// DeleteDriver refuses to remove a driver that still owns buses.
func (r *PGAccountRepository) DeleteDriver(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var owned bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM buses WHERE driver_id=$1)`, id).Scan(&owned); err != nil {
		return err
	}
	if owned {
		return domain.ConflictError{Resource: "driver", Msg: "driver still owns buses"}
	}

	res, err := tx.Exec(ctx, `DELETE FROM drivers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NotFoundError{Resource: "driver", Keys: []string{formatID(id)}}
	}
	return tx.Commit(ctx)
}

func (r *PGAccountRepository) CreateAdmin(ctx context.Context, a *domain.Admin) error {
	err := r.db.QueryRow(ctx, `INSERT INTO admins (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		a.Username, a.Email, a.PasswordHash).Scan(&a.ID)
	return pgError(err, "admin")
}

func (r *PGAccountRepository) GetAdminByID(ctx context.Context, id int64) (*domain.Admin, error) {
	var a domain.Admin
	err := r.db.QueryRow(ctx, `SELECT id, username, email, password_hash FROM admins WHERE id=$1`, id).
		Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash)
	if err != nil {
		return nil, pgError(err, "admin", id)
	}
	return &a, nil
}

func (r *PGAccountRepository) GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	var a domain.Admin
	err := r.db.QueryRow(ctx, `SELECT id, username, email, password_hash FROM admins WHERE email=$1`, email).
		Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash)
	if err != nil {
		return nil, pgError(err, "admin")
	}
	return &a, nil
}

var _ AccountRepository = (*PGAccountRepository)(nil)
