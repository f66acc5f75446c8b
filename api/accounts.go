package api

import (
	"net/http"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/service/account"
	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	service account.AccountUseCase
}

func NewAccountHandler(service account.AccountUseCase) *AccountHandler {
	return &AccountHandler{service: service}
}

func (h *AccountHandler) Register(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	customers := router.Group("/customers", requireAuth)
	customers.GET("", RequireRole(domain.RoleDriver, domain.RoleAdmin), h.listCustomers)
	customers.GET("/:id", h.getCustomer)

	admin := router.Group("/admin", requireAuth, RequireRole(domain.RoleAdmin))
	admin.GET("/drivers", h.listDrivers)
	admin.DELETE("/drivers/:id", h.deleteDriver)
}

func (h *AccountHandler) listCustomers(c *gin.Context) {
	p, _ := PrincipalFrom(c)
	customers, err := h.service.ListCustomers(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *AccountHandler) getCustomer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, _ := PrincipalFrom(c)
	customer, err := h.service.GetCustomer(c.Request.Context(), p, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *AccountHandler) listDrivers(c *gin.Context) {
	p, _ := PrincipalFrom(c)
	drivers, err := h.service.ListDrivers(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, drivers)
}

func (h *AccountHandler) deleteDriver(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, _ := PrincipalFrom(c)
	if err := h.service.DeleteDriver(c.Request.Context(), p, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
