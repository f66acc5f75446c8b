package api

import (
	"net/http"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/service/inventory"
	"github.com/gin-gonic/gin"
)

type ScheduleHandler struct {
	service inventory.InventoryUseCase
}

func NewScheduleHandler(service inventory.InventoryUseCase) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

func (h *ScheduleHandler) Register(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	schedules := router.Group("/schedules")
	schedules.GET("", h.list)
	schedules.GET("/:id", h.get)
	schedules.POST("", requireAuth, RequireRole(domain.RoleDriver, domain.RoleAdmin), h.create)
	schedules.PATCH("/:id", requireAuth, h.edit)
	schedules.DELETE("/:id", requireAuth, h.delete)
}

func (h *ScheduleHandler) list(c *gin.Context) {
	schedules, err := h.service.ListSchedules(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedules)
}

func (h *ScheduleHandler) get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sc, err := h.service.GetSchedule(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

// @Summary Create a schedule for a bus
// @Tags schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param schedule body inventory.CreateScheduleInput true "schedule"
// @Success 201 {object} domain.Schedule
// @Failure 400 {object} errorResponse
// @Router /schedules [post]
func (h *ScheduleHandler) create(c *gin.Context) {
	var req inventory.CreateScheduleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	p, _ := PrincipalFrom(c)
	sc, err := h.service.CreateSchedule(c.Request.Context(), p, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sc)
}

func (h *ScheduleHandler) edit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req inventory.EditScheduleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	p, _ := PrincipalFrom(c)
	sc, err := h.service.EditSchedule(c.Request.Context(), p, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (h *ScheduleHandler) delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, _ := PrincipalFrom(c)
	if err := h.service.DeleteSchedule(c.Request.Context(), p, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
