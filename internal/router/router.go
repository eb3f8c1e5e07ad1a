package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing

	"github.com/iliyamo/event-registration/internal/handler"
)

// RegisterRoutes registers routes that require no authentication or
// middleware.  Currently that is only the health check used by load
// balancers to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterRegistration wires the registration subsystem under /v1.
// The verify-payment callback stays outside the authenticated group:
// the gateway-signed payload is its credential, and the checkout
// redirect carries no session.  Both write endpoints sit behind the
// rate limiter.
func RegisterRegistration(e *echo.Echo, h *handler.RegistrationHandler, auth, ratelimit echo.MiddlewareFunc) {
	e.POST("/v1/registrations/verify-payment", h.VerifyPayment, ratelimit)

	g := e.Group("/v1/registrations")
	g.Use(auth)
	g.POST("/create-order", h.CreateOrder, ratelimit)
	g.POST("", h.RegisterFree)
	g.GET("", h.ListRegistrations)
	g.GET("/my-registrations", h.MyRegistrations)
}
