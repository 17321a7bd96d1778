package main

import (
	"net/http"

	"restro-system/config"
	"restro-system/internal/gateway/handlers"
	"restro-system/internal/gateway/middleware"

	"github.com/gin-gonic/gin"
)

type routeHandlers struct {
	catalog      *handlers.CatalogHTTPHandler
	orders       *handlers.OrderHTTPHandler
	reservations *handlers.ReservationHTTPHandler
	health       *handlers.HealthHTTPHandler
}

func setupRouter(cfg config.Config, h routeHandlers) (*gin.Engine, error) {
	rateLimit, err := middleware.RateLimit(cfg.App.RateLimit)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(cfg.App.CORSOrigins))
	r.Use(middleware.Logger())
	r.Use(gin.Recovery())

	h.health.RegisterRoutes(r)

	api := r.Group("/api/v1")
	api.Use(rateLimit)
	api.Use(middleware.JWTAuth(cfg.Auth.JWTSecret != ""))
	{
		h.catalog.RegisterRoutes(api)
		h.orders.RegisterRoutes(api)
		h.reservations.RegisterRoutes(api)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Route not found",
		})
	})

	return r, nil
}
