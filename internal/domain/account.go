package domain

import (
	"net/mail"
	"strings"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleDriver   Role = "driver"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated caller as seen by the services.
type Principal struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

func (p Principal) Is(role Role) bool { return p.Role == role }

type Customer struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Address      string `json:"address"`
	PhoneNumber  string `json:"phone_number"`
	IDOrPassport string `json:"id_or_passport"`
}

type Driver struct {
	ID              int64  `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	LicenseNumber   string `json:"license_number"`
	ExperienceYears int    `json:"experience_years"`
	PhoneNumber     string `json:"phone_number"`
	Email           string `json:"email"`
	PasswordHash    string `json:"-"`
}

type Admin struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	if !strings.Contains(email, "@") {
		return ValidationError{Field: "email", Msg: "invalid email format"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ValidationError{Field: "email", Msg: "invalid email format"}
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 6 {
		return ValidationError{Field: "password", Msg: "must be at least 6 characters"}
	}
	return nil
}

func ValidatePhoneNumber(phone string) error {
	if !digits(phone, 10) {
		return ValidationError{Field: "phone_number", Msg: "must be exactly 10 digits"}
	}
	return nil
}

func ValidateCustomer(c *Customer) error {
	if strings.TrimSpace(c.FirstName) == "" {
		return ValidationError{Field: "first_name", Msg: "is required"}
	}
	if strings.TrimSpace(c.LastName) == "" {
		return ValidationError{Field: "last_name", Msg: "is required"}
	}
	if err := ValidateEmail(c.Email); err != nil {
		return err
	}
	if strings.TrimSpace(c.Address) == "" {
		return ValidationError{Field: "address", Msg: "is required"}
	}
	if err := ValidatePhoneNumber(c.PhoneNumber); err != nil {
		return err
	}
	if !digits(c.IDOrPassport, 9) {
		return ValidationError{Field: "id_or_passport", Msg: "must be exactly 9 digits"}
	}
	return nil
}

func ValidateDriver(d *Driver) error {
	if strings.TrimSpace(d.FirstName) == "" {
		return ValidationError{Field: "first_name", Msg: "is required"}
	}
	if strings.TrimSpace(d.LastName) == "" {
		return ValidationError{Field: "last_name", Msg: "is required"}
	}
	if !digits(d.LicenseNumber, 9) {
		return ValidationError{Field: "license_number", Msg: "must be exactly 9 digits"}
	}
	if d.ExperienceYears < 0 {
		return ValidationError{Field: "experience_years", Msg: "must not be negative"}
	}
	if err := ValidatePhoneNumber(d.PhoneNumber); err != nil {
		return err
	}
	return ValidateEmail(d.Email)
}

func ValidateAdmin(a *Admin) error {
	if strings.TrimSpace(a.Username) == "" {
		return ValidationError{Field: "username", Msg: "is required"}
	}
	return ValidateEmail(a.Email)
}

func digits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
