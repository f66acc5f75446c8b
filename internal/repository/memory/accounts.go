package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/repository"
)

type accountRepo struct{ s *Store }

func (r accountRepo) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.customers {
		switch {
		case other.Email == c.Email:
			return conflict("customer", "email")
		case other.PhoneNumber == c.PhoneNumber:
			return conflict("customer", "phone_number")
		case other.IDOrPassport == c.IDOrPassport:
			return conflict("customer", "id_or_passport")
		}
	}
	c.ID = r.s.nextID("customers")
	r.s.customers[c.ID] = *c
	return nil
}

func (r accountRepo) GetCustomerByID(ctx context.Context, id int64) (*domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, notFound("customer", id)
	}
	return &c, nil
}

func (r accountRepo) GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.customers {
		if c.Email == email {
			return &c, nil
		}
	}
	return nil, domain.NotFoundError{Resource: "customer"}
}

func (r accountRepo) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Customer, 0, len(r.s.customers))
	for _, c := range r.s.customers {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Customer) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r accountRepo) CreateDriver(ctx context.Context, d *domain.Driver) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.drivers {
		switch {
		case other.Email == d.Email:
			return conflict("driver", "email")
		case other.PhoneNumber == d.PhoneNumber:
			return conflict("driver", "phone_number")
		case other.LicenseNumber == d.LicenseNumber:
			return conflict("driver", "license_number")
		}
	}
	d.ID = r.s.nextID("drivers")
	r.s.drivers[d.ID] = *d
	return nil
}

func (r accountRepo) GetDriverByID(ctx context.Context, id int64) (*domain.Driver, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.drivers[id]
	if !ok {
		return nil, notFound("driver", id)
	}
	return &d, nil
}

func (r accountRepo) GetDriverByEmail(ctx context.Context, email string) (*domain.Driver, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, d := range r.s.drivers {
		if d.Email == email {
			return &d, nil
		}
	}
	return nil, domain.NotFoundError{Resource: "driver"}
}

func (r accountRepo) ListDrivers(ctx context.Context) ([]domain.Driver, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Driver, 0, len(r.s.drivers))
	for _, d := range r.s.drivers {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b domain.Driver) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r accountRepo) DeleteDriver(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.drivers[id]; !ok {
		return notFound("driver", id)
	}
	for _, b := range r.s.buses {
		if b.DriverID == id {
			return domain.ConflictError{Resource: "driver", Msg: "driver still owns buses"}
		}
	}
	delete(r.s.drivers, id)
	return nil
}

func (r accountRepo) CreateAdmin(ctx context.Context, a *domain.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.admins {
		if other.Email == a.Email {
			return conflict("admin", "email")
		}
	}
	a.ID = r.s.nextID("admins")
	r.s.admins[a.ID] = *a
	return nil
}

func (r accountRepo) GetAdminByID(ctx context.Context, id int64) (*domain.Admin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.admins[id]
	if !ok {
		return nil, notFound("admin", id)
	}
	return &a, nil
}

func (r accountRepo) GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.admins {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, domain.NotFoundError{Resource: "admin"}
}

var _ repository.AccountRepository = accountRepo{}
