package api

import (
	"context"
	"net/http"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/service/allocator"
	"github.com/Domenick1991/busbooking/internal/service/inventory"
	"github.com/gin-gonic/gin"
)

type AvailabilityReader interface {
	Availability(ctx context.Context, busID int64) (*allocator.Availability, error)
}

type BusHandler struct {
	service inventory.InventoryUseCase
	seats   AvailabilityReader
}

func NewBusHandler(service inventory.InventoryUseCase, seats AvailabilityReader) *BusHandler {
	return &BusHandler{service: service, seats: seats}
}

func (h *BusHandler) Register(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	buses := router.Group("/buses")
	buses.GET("", h.list)
	buses.GET("/:id", h.get)
	buses.GET("/:id/seats", h.listSeats)
	buses.GET("/:id/schedule", h.schedule)
	buses.GET("/:id/availability", h.availability)
	buses.POST("", requireAuth, RequireRole(domain.RoleDriver, domain.RoleAdmin), h.create)
	buses.PATCH("/:id", requireAuth, h.edit)
	buses.DELETE("/:id", requireAuth, h.delete)

	router.GET("/drivers/:id/buses", h.listByDriver)
}

// @Summary List buses
// @Tags buses
// @Produce json
// @Success 200 {array} domain.Bus
// @Router /buses [get]
func (h *BusHandler) list(c *gin.Context) {
	buses, err := h.service.ListBuses(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buses)
}

func (h *BusHandler) get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	bus, err := h.service.GetBus(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bus)
}

func (h *BusHandler) listSeats(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	seats, err := h.service.ListSeats(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, seats)
}

func (h *BusHandler) schedule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sc, err := h.service.GetBusSchedule(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

// @Summary Seat availability on the bus's active schedule
// @Tags buses
// @Produce json
// @Param id path int true "bus id"
// @Success 200 {object} allocator.Availability
// @Failure 404 {object} errorResponse
// @Router /buses/{id}/availability [get]
func (h *BusHandler) availability(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	av, err := h.seats.Availability(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, av)
}

func (h *BusHandler) listByDriver(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	buses, err := h.service.ListBusesByDriver(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buses)
}

// @Summary Register a bus and its seats
// @Tags buses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param bus body inventory.RegisterBusInput true "bus"
// @Success 201 {object} domain.Bus
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /buses [post]
func (h *BusHandler) create(c *gin.Context) {
	var req inventory.RegisterBusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	p, _ := PrincipalFrom(c)
	bus, err := h.service.RegisterBus(c.Request.Context(), p, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bus)
}

// @Summary Edit a bus, including its seat count
// @Tags buses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "bus id"
// @Param bus body inventory.EditBusInput true "fields to change"
// @Success 200 {object} domain.Bus
// @Failure 409 {object} errorResponse
// @Router /buses/{id} [patch]
func (h *BusHandler) edit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req inventory.EditBusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	p, _ := PrincipalFrom(c)
	bus, err := h.service.EditBus(c.Request.Context(), p, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bus)
}

func (h *BusHandler) delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, _ := PrincipalFrom(c)
	if err := h.service.DeleteBus(c.Request.Context(), p, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
