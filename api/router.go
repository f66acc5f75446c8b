package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Registrar mounts a handler's routes under /api. requireAuth must precede
// any handler that reads the principal.
type Registrar interface {
	Register(router *gin.RouterGroup, requireAuth gin.HandlerFunc)
}

type RouterConfig struct {
	CORSOrigins []string
	Swagger     bool
	Logger      *slog.Logger
	// Ready reports whether the backing store is usable; nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(cfg RouterConfig, authn Authenticator, handlers ...Registrar) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(RequestID(), Logger(logger), gin.Recovery(), cors.New(corsConfig(cfg.CORSOrigins)))
	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Warn("set trusted proxies", slog.Any("error", err))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "route not found", Code: "not_found", RequestID: RequestIDFrom(c)})
	})

	if cfg.Swagger {
		r.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))))
	}

	api := r.Group("/api")
	api.GET("/health", health(cfg.Ready))

	requireAuth := RequireAuth(authn)
	for _, h := range handlers {
		h.Register(api, requireAuth)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader, "Content-Disposition"},
		AllowCredentials: len(origins) > 0,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func health(ready func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			if err := ready(c.Request.Context()); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
