package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/event-registration/internal/client"
	"github.com/iliyamo/event-registration/internal/middleware"
	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/repository"
	"github.com/iliyamo/event-registration/internal/service"
)

// OrderService is the registration workflow surface the handler needs.
// Implemented by service.OrderCoordinator.
type OrderService interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (service.CreateOrderResult, error)
	RegisterFree(ctx context.Context, in service.CreateOrderInput) (service.CreateOrderResult, error)
}

// PaymentService verifies gateway payment callbacks.  Implemented by
// service.PaymentConfirmation.
type PaymentService interface {
	VerifyPayment(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) error
}

// RegistrationLister serves the read-only listing endpoints.
// Implemented by repository.RegistrationRepo.
type RegistrationLister interface {
	ListAll(ctx context.Context) ([]model.Registration, error)
	ListByEmail(ctx context.Context, email string) ([]model.Registration, error)
}

// RegistrationHandler exposes the registration subsystem over HTTP.
// Authentication is handled by middleware; handlers only consume the
// resolved Principal.
type RegistrationHandler struct {
	Orders   OrderService
	Payments PaymentService
	Listed   RegistrationLister
}

// NewRegistrationHandler constructs a RegistrationHandler with the
// provided services.  All dependencies must be non-nil.
func NewRegistrationHandler(orders OrderService, payments PaymentService, listed RegistrationLister) *RegistrationHandler {
	if orders == nil || payments == nil || listed == nil {
		panic("nil dependency passed to NewRegistrationHandler")
	}
	return &RegistrationHandler{Orders: orders, Payments: payments, Listed: listed}
}

// registrationBody is the shared request payload for create-order and
// the free-event endpoint.
type registrationBody struct {
	EventSlug  string  `json:"eventSlug"`
	EventTitle string  `json:"eventTitle"`
	FullName   string  `json:"fullName"`
	Email      string  `json:"email"`
	Phone      *string `json:"phone"`
}

func (b registrationBody) toInput() service.CreateOrderInput {
	return service.CreateOrderInput{
		EventSlug:  b.EventSlug,
		EventTitle: b.EventTitle,
		FullName:   b.FullName,
		Email:      b.Email,
		Phone:      b.Phone,
	}
}

// CreateOrder handles POST /v1/registrations/create-order.  It reserves
// a seat, opens a gateway order and returns the order details the
// frontend needs to launch the checkout.  Free events come back already
// confirmed with no order id.
func (h *RegistrationHandler) CreateOrder(c echo.Context) error {
	if _, ok := middleware.CurrentPrincipal(c); !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "unauthorized"})
	}
	var body registrationBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request body"})
	}
	result, err := h.Orders.CreateOrder(c.Request().Context(), body.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"orderId":        result.OrderID,
			"amount":         result.Amount,
			"currency":       result.Currency,
			"registrationId": result.RegistrationID,
			"confirmed":      result.Confirmed,
		},
	})
}

// RegisterFree handles POST /v1/registrations, the free-event fast
// path.  Paid events are refused with 400; capacity is still enforced.
func (h *RegistrationHandler) RegisterFree(c echo.Context) error {
	if _, ok := middleware.CurrentPrincipal(c); !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "unauthorized"})
	}
	var body registrationBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request body"})
	}
	result, err := h.Orders.RegisterFree(c.Request().Context(), body.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Registration successful",
		"data":    echo.Map{"registrationId": result.RegistrationID},
	})
}

// VerifyPayment handles POST /v1/registrations/verify-payment, the
// callback the frontend fires after the gateway checkout completes.
// The route is unauthenticated: the signature is the credential.
func (h *RegistrationHandler) VerifyPayment(c echo.Context) error {
	var body struct {
		GatewayOrderID   string `json:"gatewayOrderId"`
		GatewayPaymentID string `json:"gatewayPaymentId"`
		Signature        string `json:"signature"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request body"})
	}
	if err := h.Payments.VerifyPayment(c.Request().Context(), body.GatewayOrderID, body.GatewayPaymentID, body.Signature); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Payment verified successfully"})
}

// ListRegistrations handles GET /v1/registrations and returns every
// registration, newest first, for admin tooling.
func (h *RegistrationHandler) ListRegistrations(c echo.Context) error {
	if _, ok := middleware.CurrentPrincipal(c); !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "unauthorized"})
	}
	regs, err := h.Listed.ListAll(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": toDTOs(regs)})
}

// MyRegistrations handles GET /v1/registrations/my-registrations and
// returns the caller's own registrations, matched by principal email.
func (h *RegistrationHandler) MyRegistrations(c echo.Context) error {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "unauthorized"})
	}
	regs, err := h.Listed.ListByEmail(c.Request().Context(), principal.Email)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": toDTOs(regs)})
}

// registrationDTO is the wire shape of a registration in listings.
type registrationDTO struct {
	ID               string  `json:"id"`
	EventSlug        string  `json:"eventSlug"`
	EventTitle       string  `json:"eventTitle"`
	FullName         string  `json:"fullName"`
	Email            string  `json:"email"`
	Phone            *string `json:"phone,omitempty"`
	GatewayOrderID   *string `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID *string `json:"gatewayPaymentId,omitempty"`
	PaymentStatus    string  `json:"paymentStatus"`
	Status           string  `json:"status"`
	MirrorStatus     string  `json:"mirrorStatus"`
	ReservedAt       string  `json:"reservedAt"`
	ConfirmedAt      *string `json:"confirmedAt,omitempty"`
}

func toDTOs(regs []model.Registration) []registrationDTO {
	out := make([]registrationDTO, 0, len(regs))
	for _, r := range regs {
		dto := registrationDTO{
			ID:               r.ID,
			EventSlug:        r.EventSlug,
			EventTitle:       r.EventTitle,
			FullName:         r.FullName,
			Email:            r.Email,
			Phone:            r.Phone,
			GatewayOrderID:   r.GatewayOrderID,
			GatewayPaymentID: r.GatewayPaymentID,
			PaymentStatus:    r.PaymentStatus,
			Status:           r.Status,
			MirrorStatus:     r.MirrorStatus,
			ReservedAt:       r.ReservedAt.Format(time.RFC3339),
		}
		if r.ConfirmedAt != nil {
			s := r.ConfirmedAt.Format(time.RFC3339)
			dto.ConfirmedAt = &s
		}
		out = append(out, dto)
	}
	return out
}

// writeError maps subsystem errors onto HTTP responses.  Anything not
// in the taxonomy is a 500 with a generic message; internals never leak
// to the caller.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "validation error"})
	case errors.Is(err, client.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "event not found"})
	case errors.Is(err, repository.ErrSoldOut):
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "message": "event is sold out"})
	case errors.Is(err, service.ErrGateway):
		return c.JSON(http.StatusBadGateway, echo.Map{"success": false, "message": "payment gateway unavailable"})
	case errors.Is(err, repository.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "payment order not found"})
	case errors.Is(err, service.ErrBadSignature):
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid payment signature"})
	case errors.Is(err, service.ErrReservationExpired):
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "message": "reservation expired before payment"})
	case errors.Is(err, service.ErrFeeRequired):
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "event requires payment"})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "internal error"})
	}
}
