// Package router builds the echo instance and registers the API routes with
// their middleware.
package router

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/hostel-bed-reservation/internal/handler"
	"github.com/iliyamo/hostel-bed-reservation/internal/middleware"
	"github.com/iliyamo/hostel-bed-reservation/internal/utils"
)

// NewEcho returns an echo instance with request validation, panic recovery
// and one access log line per request.
func NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("http: %s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency.Round(time.Microsecond))
			return nil
		},
	}))
	return e
}

// RegisterRoutes registers routes that need no dependencies.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the read-only guest endpoints.  cache wraps the
// responses that only change with occupancy.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	e.GET("/rooms", p.ListRooms, cache)
	e.GET("/availability", p.Availability, cache)
	e.GET("/quote", p.Quote, cache)
	e.GET("/bookings/status", p.BookingStatus)
}

// RegisterHolds registers the hold lifecycle.  Hold creation is rate
// limited; every mutation drops cached availability.  Confirm creates a
// paid booking, so only the payment gateway may call it.
func RegisterHolds(e *echo.Echo, h *handler.HoldHandler, jwtSecret string, limiter echo.MiddlewareFunc, inv *middleware.CacheInvalidator) {
	g := e.Group("/holds", inv.Middleware())
	g.POST("/start", h.Start, limiter)
	g.POST("/confirm", h.Confirm, middleware.JWTAuth(jwtSecret), middleware.RequireRole(utils.RoleGateway))
	g.POST("/release", h.Release)
	e.GET("/holds/:id", h.Get)
}

// RegisterPayments registers the gateway webhook behind a GATEWAY token.
func RegisterPayments(e *echo.Echo, p *handler.PaymentHandler, jwtSecret string, limiter echo.MiddlewareFunc, inv *middleware.CacheInvalidator) {
	e.POST("/payments/webhook", p.Webhook,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleGateway),
		limiter,
		inv.Middleware(),
	)
}

// RegisterAdmin registers the operator surface.  Login is public; every
// other route requires an ADMIN token.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string, limiter echo.MiddlewareFunc, inv *middleware.CacheInvalidator) {
	e.POST("/v1/admin/login", a.Login, limiter)

	g := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole(utils.RoleAdmin))
	g.GET("/holds", a.ListHolds)
	g.POST("/sweep", a.Sweep, inv.Middleware())
	g.POST("/gateway-token", a.GatewayToken)
}
