package api

import (
	"fmt"
	"net/http"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	bookings := router.Group("/bookings", requireAuth)
	bookings.POST("", RequireRole(domain.RoleCustomer), h.create)
	bookings.GET("", RequireRole(domain.RoleCustomer, domain.RoleAdmin), h.list)
	bookings.GET("/:id", h.get)
	bookings.GET("/:id/ticket", h.ticket)
	bookings.PATCH("/:id", h.update)
	bookings.DELETE("/:id", h.cancel)
}

// @Summary Book seats on a bus
// @Description Reserves every requested seat or none of them.
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param booking body booking.CreateBookingInput true "booking"
// @Success 201 {object} domain.Booking
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse "seats already booked"
// @Router /bookings [post]
func (h *BookingHandler) create(c *gin.Context) {
	var req booking.CreateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	p, _ := PrincipalFrom(c)
	b, err := h.service.CreateBooking(c.Request.Context(), p, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) list(c *gin.Context) {
	p, _ := PrincipalFrom(c)
	bookings, err := h.service.ListBookings(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, _ := PrincipalFrom(c)
	b, err := h.service.GetBooking(c.Request.Context(), p, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// @Summary Download the booking's e-ticket
// @Tags bookings
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "booking id"
// @Success 200 {file} file
// @Router /bookings/{id}/ticket [get]
func (h *BookingHandler) ticket(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, _ := PrincipalFrom(c)
	pdf, filename, err := h.service.Ticket(c.Request.Context(), p, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *BookingHandler) update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req booking.UpdateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	p, _ := PrincipalFrom(c)
	b, err := h.service.UpdateBooking(c.Request.Context(), p, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// @Summary Cancel a booking and release its seats
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path int true "booking id"
// @Success 200 {object} domain.Booking
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /bookings/{id} [delete]
func (h *BookingHandler) cancel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, _ := PrincipalFrom(c)
	b, err := h.service.CancelBooking(c.Request.Context(), p, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
