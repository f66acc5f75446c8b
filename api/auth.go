package api

import (
	"net/http"

	"github.com/Domenick1991/busbooking/internal/auth"
	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/service/account"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service account.AccountUseCase
}

type signupResponse struct {
	Account any             `json:"account"`
	Tokens  *auth.TokenPair `json:"tokens"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func NewAuthHandler(service account.AccountUseCase) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	group := router.Group("/auth")
	group.POST("/customers/signup", h.signupCustomer)
	group.POST("/drivers/signup", h.signupDriver)
	group.POST("/admins/signup", h.signupAdmin)
	group.POST("/customers/login", h.login(domain.RoleCustomer))
	group.POST("/drivers/login", h.login(domain.RoleDriver))
	group.POST("/admins/login", h.login(domain.RoleAdmin))
	group.POST("/refresh", h.refresh)
	group.POST("/logout", requireAuth, h.logout)
	group.GET("/me", requireAuth, h.me)
}

func (h *AuthHandler) signupCustomer(c *gin.Context) {
	var req account.SignupCustomerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	acc, tokens, err := h.service.SignupCustomer(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, signupResponse{Account: acc, Tokens: tokens})
}

func (h *AuthHandler) signupDriver(c *gin.Context) {
	var req account.SignupDriverInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	acc, tokens, err := h.service.SignupDriver(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, signupResponse{Account: acc, Tokens: tokens})
}

func (h *AuthHandler) signupAdmin(c *gin.Context) {
	var req account.SignupAdminInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	acc, tokens, err := h.service.SignupAdmin(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, signupResponse{Account: acc, Tokens: tokens})
}

// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body account.LoginInput true "credentials"
// @Success 200 {object} auth.TokenPair
// @Failure 401 {object} errorResponse
// @Router /auth/customers/login [post]
func (h *AuthHandler) login(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req account.LoginInput
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "body", err)
			return
		}
		tokens, err := h.service.Login(c.Request.Context(), role, req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, tokens)
	}
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "refresh_token", err)
		return
	}
	tokens, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

// logout revokes the bearer token and, when given, the refresh token.
func (h *AuthHandler) logout(c *gin.Context) {
	var req logoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "body", err)
			return
		}
	}

	ctx := c.Request.Context()
	if err := h.service.Logout(ctx, c.GetString(tokenKey)); err != nil {
		writeError(c, err)
		return
	}
	if req.RefreshToken != "" {
		if err := h.service.Logout(ctx, req.RefreshToken); err != nil {
			writeError(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) me(c *gin.Context) {
	p, _ := PrincipalFrom(c)
	acc, err := h.service.Profile(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"principal": p, "account": acc})
}
