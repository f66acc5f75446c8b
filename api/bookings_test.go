package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, p domain.Principal, input booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, p, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, p domain.Principal, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListBookings(ctx context.Context, p domain.Principal) ([]domain.Booking, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) UpdateBooking(ctx context.Context, p domain.Principal, id int64, input booking.UpdateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, p, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, p domain.Principal, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Ticket(ctx context.Context, p domain.Principal, id int64) ([]byte, string, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.Principal), args.Error(1)
}

var (
	customer = domain.Principal{ID: 5, Role: domain.RoleCustomer}
	admin    = domain.Principal{ID: 1, Role: domain.RoleAdmin}
)

func newTestRouter(authn Authenticator, handlers ...Registrar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}, authn, handlers...)
}

func signedIn(p domain.Principal) *MockAuthenticator {
	authn := &MockAuthenticator{}
	authn.On("Authenticate", mock.Anything, "good").Return(p, nil)
	authn.On("Authenticate", mock.Anything, mock.Anything).Return(domain.Principal{}, domain.ErrInvalidCredentials)
	return authn
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBookingHandler_create(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	input := booking.CreateBookingInput{
		BusID:         1,
		SeatLabels:    []string{"S001", "S002"},
		Destination:   "Mombasa",
		DepartureTime: "08:00:00",
		PickupAddress: "Main stage",
	}
	body, _ := json.Marshal(input)
	c.Request = httptest.NewRequest("POST", "/api/bookings", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(principalKey, customer)

	created := &domain.Booking{ID: 1, Reference: "ref-1", CustomerID: customer.ID, BusID: 1, SeatLabels: input.SeatLabels, NumberOfSeats: 2, TotalCost: 200}
	mockService.On("CreateBooking", c.Request.Context(), customer, input).Return(created, nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response domain.Booking
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ref-1", response.Reference)
	assert.Equal(t, int64(200), response.TotalCost)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_create_SeatConflict(t *testing.T) {
	mockService := &MockBookingUseCase{}
	r := newTestRouter(signedIn(customer), NewBookingHandler(mockService))

	mockService.On("CreateBooking", mock.Anything, customer, mock.AnythingOfType("booking.CreateBookingInput")).
		Return(nil, domain.SeatsUnavailable([]string{"S002"}))

	w := do(t, r, http.MethodPost, "/api/bookings", booking.CreateBookingInput{BusID: 1, SeatLabels: []string{"S001", "S002"}})

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "conflict", resp.Code)
	assert.Equal(t, []string{"S002"}, resp.Seats)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, resp.RequestID, w.Header().Get(requestIDHeader))
}

func TestBookingHandler_RequiresCustomer(t *testing.T) {
	mockService := &MockBookingUseCase{}
	r := newTestRouter(signedIn(admin), NewBookingHandler(mockService))

	w := do(t, r, http.MethodPost, "/api/bookings", booking.CreateBookingInput{BusID: 1})
	assert.Equal(t, http.StatusForbidden, w.Code)
	mockService.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingHandler_MissingToken(t *testing.T) {
	mockService := &MockBookingUseCase{}
	r := newTestRouter(signedIn(customer), NewBookingHandler(mockService))

	req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	req.Header.Set("Authorization", "Bearer stale")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decodeError(t, w).Code)
}

func TestBookingHandler_list(t *testing.T) {
	mockService := &MockBookingUseCase{}
	r := newTestRouter(signedIn(customer), NewBookingHandler(mockService))
	mockService.On("ListBookings", mock.Anything, customer).Return([]domain.Booking{{ID: 2}, {ID: 1}}, nil)

	w := do(t, r, http.MethodGet, "/api/bookings", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var got []domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestBookingHandler_update(t *testing.T) {
	mockService := &MockBookingUseCase{}
	r := newTestRouter(signedIn(customer), NewBookingHandler(mockService))
	dest := "Kisumu"
	mockService.On("UpdateBooking", mock.Anything, customer, int64(3), booking.UpdateBookingInput{Destination: &dest}).
		Return(&domain.Booking{ID: 3, Destination: dest}, nil)

	w := do(t, r, http.MethodPatch, "/api/bookings/3", map[string]string{"destination": dest})

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancel(t *testing.T) {
	mockService := &MockBookingUseCase{}
	r := newTestRouter(signedIn(customer), NewBookingHandler(mockService))
	mockService.On("CancelBooking", mock.Anything, customer, int64(3)).Return(&domain.Booking{ID: 3}, nil)
	mockService.On("CancelBooking", mock.Anything, customer, int64(4)).Return(nil, domain.NotFoundError{Resource: "booking"})
	mockService.On("CancelBooking", mock.Anything, customer, int64(5)).Return(nil, domain.ForbiddenError{Action: "delete", Resource: "booking"})

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodDelete, "/api/bookings/3", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/api/bookings/4", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodDelete, "/api/bookings/5", nil).Code)

	w := do(t, r, http.MethodDelete, "/api/bookings/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", decodeError(t, w).Code)
}

func TestBookingHandler_ticket(t *testing.T) {
	mockService := &MockBookingUseCase{}
	r := newTestRouter(signedIn(customer), NewBookingHandler(mockService))
	mockService.On("Ticket", mock.Anything, customer, int64(3)).Return([]byte("%PDF-1.3"), "ticket-ref.pdf", nil)

	w := do(t, r, http.MethodGet, "/api/bookings/3/ticket", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="ticket-ref.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3", w.Body.String())
}
