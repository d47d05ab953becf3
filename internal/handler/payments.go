package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-bed-reservation/internal/model"
	"github.com/iliyamo/hostel-bed-reservation/internal/service"
)

// PaymentHandler receives payment gateway callbacks.  The route is guarded
// by a GATEWAY bearer token.
type PaymentHandler struct {
	holds *service.HoldManager
}

func NewPaymentHandler(holds *service.HoldManager) *PaymentHandler {
	if holds == nil {
		panic("nil hold manager passed to NewPaymentHandler")
	}
	return &PaymentHandler{holds: holds}
}

type webhookRequest struct {
	HoldID         string `json:"holdId" validate:"required,max=64"`
	IdempotencyKey string `json:"idempotencyKey" validate:"max=128"`
	AmountCents    int64  `json:"amountCents" validate:"gte=0"`
	Success        *bool  `json:"success" validate:"required"`
	Reference      string `json:"reference" validate:"max=128"`
}

// Webhook handles POST /payments/webhook.  Replays of a processed
// (holdId, idempotencyKey) pair answer 200 with "duplicate": true.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	var req webhookRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	key := req.IdempotencyKey
	if key == "" {
		key = c.Request().Header.Get("Idempotency-Key")
	}
	out, err := h.holds.HandlePayment(c.Request().Context(), service.PaymentNotification{
		HoldID:         req.HoldID,
		IdempotencyKey: key,
		Amount:         model.Money(req.AmountCents),
		Success:        *req.Success,
		Reference:      req.Reference,
	})
	if err != nil {
		return writeError(c, err)
	}
	resp := echo.Map{
		"holdId":    out.Hold.ID,
		"status":    out.Hold.Status,
		"duplicate": out.Duplicate,
	}
	if out.Booking != nil {
		resp["bookingId"] = out.Booking.ID
		resp["paymentStatus"] = out.Booking.PaymentStatus
	}
	return c.JSON(http.StatusOK, resp)
}
