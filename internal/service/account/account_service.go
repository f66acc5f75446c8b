package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Domenick1991/busbooking/internal/auth"
	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/policy"
	"github.com/Domenick1991/busbooking/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type AccountUseCase interface {
	SignupCustomer(ctx context.Context, input SignupCustomerInput) (*domain.Customer, *auth.TokenPair, error)
	SignupDriver(ctx context.Context, input SignupDriverInput) (*domain.Driver, *auth.TokenPair, error)
	SignupAdmin(ctx context.Context, input SignupAdminInput) (*domain.Admin, *auth.TokenPair, error)
	Login(ctx context.Context, role domain.Role, input LoginInput) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, accessToken string) (domain.Principal, error)
	Profile(ctx context.Context, p domain.Principal) (any, error)

	ListCustomers(ctx context.Context, p domain.Principal) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, p domain.Principal, id int64) (*domain.Customer, error)
	ListDrivers(ctx context.Context, p domain.Principal) ([]domain.Driver, error)
	DeleteDriver(ctx context.Context, p domain.Principal, id int64) error
}

type SignupCustomerInput struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Address      string `json:"address"`
	PhoneNumber  string `json:"phone_number"`
	IDOrPassport string `json:"id_or_passport"`
}

type SignupDriverInput struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	LicenseNumber   string `json:"license_number"`
	ExperienceYears int    `json:"experience_years"`
	PhoneNumber     string `json:"phone_number"`
}

type SignupAdminInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AccountService struct {
	accounts    repository.AccountRepository
	issuer      *auth.Issuer
	revocations auth.RevocationStore
	authz       policy.Authorizer
	logger      *slog.Logger
	hashCost    int
}

type AccountServiceOption func(*AccountService)

func WithLogger(logger *slog.Logger) AccountServiceOption {
	return func(s *AccountService) {
		s.logger = logger
	}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) AccountServiceOption {
	return func(s *AccountService) {
		s.hashCost = cost
	}
}

func NewAccountService(
	accounts repository.AccountRepository,
	issuer *auth.Issuer,
	revocations auth.RevocationStore,
	authz policy.Authorizer,
	opts ...AccountServiceOption,
) *AccountService {
	s := &AccountService{
		accounts:    accounts,
		issuer:      issuer,
		revocations: revocations,
		authz:       authz,
		logger:      slog.Default(),
		hashCost:    bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AccountService) SignupCustomer(ctx context.Context, input SignupCustomerInput) (*domain.Customer, *auth.TokenPair, error) {
	c := &domain.Customer{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        domain.NormalizeEmail(input.Email),
		Address:      input.Address,
		PhoneNumber:  input.PhoneNumber,
		IDOrPassport: input.IDOrPassport,
	}
	if err := domain.ValidateCustomer(c); err != nil {
		return nil, nil, err
	}
	hash, err := s.hash(input.Password)
	if err != nil {
		return nil, nil, err
	}
	c.PasswordHash = hash
	if err := s.accounts.CreateCustomer(ctx, c); err != nil {
		return nil, nil, err
	}

	pair, err := s.signedUp(domain.Principal{ID: c.ID, Role: domain.RoleCustomer})
	if err != nil {
		return nil, nil, err
	}
	return c, pair, nil
}

func (s *AccountService) SignupDriver(ctx context.Context, input SignupDriverInput) (*domain.Driver, *auth.TokenPair, error) {
	d := &domain.Driver{
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Email:           domain.NormalizeEmail(input.Email),
		LicenseNumber:   input.LicenseNumber,
		ExperienceYears: input.ExperienceYears,
		PhoneNumber:     input.PhoneNumber,
	}
	if err := domain.ValidateDriver(d); err != nil {
		return nil, nil, err
	}
	hash, err := s.hash(input.Password)
	if err != nil {
		return nil, nil, err
	}
	d.PasswordHash = hash
	if err := s.accounts.CreateDriver(ctx, d); err != nil {
		return nil, nil, err
	}

	pair, err := s.signedUp(domain.Principal{ID: d.ID, Role: domain.RoleDriver})
	if err != nil {
		return nil, nil, err
	}
	return d, pair, nil
}

func (s *AccountService) SignupAdmin(ctx context.Context, input SignupAdminInput) (*domain.Admin, *auth.TokenPair, error) {
	a := &domain.Admin{
		Username: input.Username,
		Email:    domain.NormalizeEmail(input.Email),
	}
	if err := domain.ValidateAdmin(a); err != nil {
		return nil, nil, err
	}
	hash, err := s.hash(input.Password)
	if err != nil {
		return nil, nil, err
	}
	a.PasswordHash = hash
	if err := s.accounts.CreateAdmin(ctx, a); err != nil {
		return nil, nil, err
	}

	pair, err := s.signedUp(domain.Principal{ID: a.ID, Role: domain.RoleAdmin})
	if err != nil {
		return nil, nil, err
	}
	return a, pair, nil
}

func (s *AccountService) signedUp(p domain.Principal) (*auth.TokenPair, error) {
	s.logger.Info("account created", slog.Int64("account_id", p.ID), slog.String("role", string(p.Role)))
	return s.issuer.Issue(p)
}

func (s *AccountService) hash(password string) (string, error) {
	if err := domain.ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login checks the password of the role's account registered under the email.
func (s *AccountService) Login(ctx context.Context, role domain.Role, input LoginInput) (*auth.TokenPair, error) {
	email := domain.NormalizeEmail(input.Email)

	var (
		id   int64
		hash string
		err  error
	)
	switch role {
	case domain.RoleCustomer:
		var c *domain.Customer
		if c, err = s.accounts.GetCustomerByEmail(ctx, email); err == nil {
			id, hash = c.ID, c.PasswordHash
		}
	case domain.RoleDriver:
		var d *domain.Driver
		if d, err = s.accounts.GetDriverByEmail(ctx, email); err == nil {
			id, hash = d.ID, d.PasswordHash
		}
	case domain.RoleAdmin:
		var a *domain.Admin
		if a, err = s.accounts.GetAdminByEmail(ctx, email); err == nil {
			id, hash = a.ID, a.PasswordHash
		}
	default:
		return nil, domain.ValidationError{Field: "role", Msg: "unknown role"}
	}
	if domain.IsNotFound(err) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(input.Password)); err != nil {
		s.logger.Info("login rejected", slog.String("role", string(role)), slog.Int64("account_id", id))
		return nil, domain.ErrInvalidCredentials
	}

	s.logger.Info("login", slog.String("role", string(role)), slog.Int64("account_id", id))
	return s.issuer.Issue(domain.Principal{ID: id, Role: role})
}

// Refresh trades a live refresh token for a new access token. The refresh
// token itself is returned unchanged.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.verify(ctx, refreshToken, auth.TokenRefresh)
	if err != nil {
		return nil, err
	}
	p, err := claims.Principal()
	if err != nil {
		return nil, err
	}
	access, exp, err := s.issuer.IssueAccess(p)
	if err != nil {
		return nil, err
	}
	return &auth.TokenPair{
		AccessToken:      access,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  exp,
		RefreshExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the presented token, access or refresh, until it expires.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	claims, err := s.verify(ctx, token, "")
	if err != nil {
		return err
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Info("logout", slog.String("subject", claims.Subject), slog.String("jti", claims.ID))
	return nil
}

func (s *AccountService) Authenticate(ctx context.Context, accessToken string) (domain.Principal, error) {
	claims, err := s.verify(ctx, accessToken, auth.TokenAccess)
	if err != nil {
		return domain.Principal{}, err
	}
	return claims.Principal()
}

func (s *AccountService) verify(ctx context.Context, token string, want auth.TokenType) (*auth.Claims, error) {
	claims, err := s.issuer.Parse(token, want)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", domain.ErrInvalidCredentials)
	}
	return claims, nil
}

// Profile loads the account behind p.
func (s *AccountService) Profile(ctx context.Context, p domain.Principal) (any, error) {
	var (
		account any
		err     error
	)
	switch p.Role {
	case domain.RoleCustomer:
		account, err = s.accounts.GetCustomerByID(ctx, p.ID)
	case domain.RoleDriver:
		account, err = s.accounts.GetDriverByID(ctx, p.ID)
	case domain.RoleAdmin:
		account, err = s.accounts.GetAdminByID(ctx, p.ID)
	default:
		return nil, errors.New("unknown role")
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AccountService) ListCustomers(ctx context.Context, p domain.Principal) ([]domain.Customer, error) {
	if err := s.authorize(ctx, policy.ActionRead, p, policy.KindCustomer, 0); err != nil {
		return nil, err
	}
	return s.accounts.ListCustomers(ctx)
}

func (s *AccountService) GetCustomer(ctx context.Context, p domain.Principal, id int64) (*domain.Customer, error) {
	if err := s.authorize(ctx, policy.ActionRead, p, policy.KindCustomer, id); err != nil {
		return nil, err
	}
	return s.accounts.GetCustomerByID(ctx, id)
}

func (s *AccountService) ListDrivers(ctx context.Context, p domain.Principal) ([]domain.Driver, error) {
	if err := s.authorize(ctx, policy.ActionRead, p, policy.KindDriver, 0); err != nil {
		return nil, err
	}
	return s.accounts.ListDrivers(ctx)
}

func (s *AccountService) DeleteDriver(ctx context.Context, p domain.Principal, id int64) error {
	if err := s.authorize(ctx, policy.ActionDelete, p, policy.KindDriver, id); err != nil {
		return err
	}
	if err := s.accounts.DeleteDriver(ctx, id); err != nil {
		return err
	}
	s.logger.Info("driver deleted", slog.Int64("driver_id", id))
	return nil
}

func (s *AccountService) authorize(ctx context.Context, action policy.Action, p domain.Principal, kind policy.Kind, ownerID int64) error {
	return s.authz.Authorize(ctx, policy.Request{
		Action:   action,
		Subject:  p,
		Resource: policy.Resource{Kind: kind, OwnerID: ownerID},
	})
}

var _ AccountUseCase = (*AccountService)(nil)
