package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-bed-reservation/internal/model"
	"github.com/iliyamo/hostel-bed-reservation/internal/service"
)

// HoldHandler drives the hold lifecycle on behalf of guests.
type HoldHandler struct {
	holds *service.HoldManager
}

func NewHoldHandler(holds *service.HoldManager) *HoldHandler {
	if holds == nil {
		panic("nil hold manager passed to NewHoldHandler")
	}
	return &HoldHandler{holds: holds}
}

// startHoldRequest is the POST /holds/start body.  The idempotency key may
// also be sent in the Idempotency-Key header.  Guest counts are checked by
// the service so that errors keep their documented order.
type startHoldRequest struct {
	Beds           model.BedSelection `json:"beds"`
	CheckIn        string             `json:"checkIn"`
	CheckOut       string             `json:"checkOut"`
	GuestCounts    model.GuestCounts  `json:"guestCounts" validate:"-"`
	Guest          model.Guest        `json:"guest"`
	IdempotencyKey string             `json:"idempotencyKey" validate:"max=128"`
}

type holdIDRequest struct {
	HoldID         string `json:"holdId" validate:"required,max=64"`
	IdempotencyKey string `json:"idempotencyKey" validate:"max=128"`
}

// Start handles POST /holds/start.  It responds 201 with the hold id, its
// deadline and the frozen price snapshot.
func (h *HoldHandler) Start(c echo.Context) error {
	var req startHoldRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	stay, err := model.ParseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		return writeError(c, err)
	}
	key := req.IdempotencyKey
	if key == "" {
		key = c.Request().Header.Get("Idempotency-Key")
	}
	hold, err := h.holds.CreateHold(c.Request().Context(), service.CreateHoldInput{
		Beds:           req.Beds,
		Stay:           stay,
		Guests:         req.GuestCounts,
		Guest:          req.Guest,
		IdempotencyKey: key,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"holdId":        hold.ID,
		"expiresAt":     hold.ExpiresAt,
		"priceSnapshot": hold.PriceSnapshot,
	})
}

// Confirm handles POST /holds/confirm.  Confirming twice returns the same
// booking.
func (h *HoldHandler) Confirm(c echo.Context) error {
	var req holdIDRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	res, err := h.holds.ConfirmHold(c.Request().Context(), service.ConfirmHoldInput{
		HoldID:         req.HoldID,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":    model.HoldStatusConfirmed,
		"bookingId": res.Booking.ID,
	})
}

// Release handles POST /holds/release.  The reported status is the final
// one: a hold that was already confirmed or expired keeps that status.
func (h *HoldHandler) Release(c echo.Context) error {
	var req holdIDRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	hold, err := h.holds.ReleaseHold(c.Request().Context(), req.HoldID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": hold.Status})
}

// Get handles GET /holds/:id.
func (h *HoldHandler) Get(c echo.Context) error {
	hold, err := h.holds.GetHold(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, hold)
}
