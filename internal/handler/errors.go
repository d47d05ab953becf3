// Package handler contains the echo handlers of the hostel reservation API.
// Handlers decode and validate requests, call the service layer and map its
// sentinel errors to HTTP statuses.
package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-bed-reservation/internal/model"
	"github.com/iliyamo/hostel-bed-reservation/internal/pricing"
)

// Error codes returned in the "code" field of error bodies.
const (
	codeInvalidRequest         = "InvalidRequest"
	codeInvalidDateRange       = "InvalidDateRange"
	codeCarnivalMinimumNights  = "CarnivalMinimumNights"
	codeInvalidGuestCounts     = "InvalidGuestCounts"
	codeInvalidBedSelection    = "InvalidBedSelection"
	codeRoomNotFound           = "RoomNotFound"
	codeOverbookingConflict    = "OverbookingConflict"
	codeFemaleOnlyRoom         = "FemaleOnlyRoom"
	codeHoldNotFound           = "HoldNotFound"
	codeHoldExpired            = "HoldExpired"
	codeHoldReleased           = "HoldReleased"
	codePaymentAmountMismatch  = "PaymentAmountMismatch"
	codeBookingNotFound        = "BookingNotFound"
	codeIdempotencyKeyConflict = "IdempotencyKeyConflict"
	codeIdempotencyKeyRequired = "IdempotencyKeyRequired"
	codeInvalidCredentials     = "InvalidCredentials"
	codeInternalError          = "InternalError"
)

func errorBody(msg, code string) echo.Map {
	return echo.Map{"error": msg, "code": code}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody(msg, codeInvalidRequest))
}

var errInvalidBody = errors.New("invalid request body")

// bindAndValidate decodes the body into req and runs its validate tags.  The
// returned error is meant for badRequest.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errInvalidBody
	}
	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid field %s: %s", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}
	return nil
}

// writeError maps service errors to their status and code.  Unknown errors
// are logged and reported as 500 without detail.
func writeError(c echo.Context, err error) error {
	var (
		carnival *model.CarnivalMinimumNightsError
		overbook *model.OverbookingError
	)
	switch {
	case errors.As(err, &carnival):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   err.Error(),
			"code":    codeCarnivalMinimumNights,
			"nights":  carnival.Nights,
			"minimum": carnival.Minimum,
		})
	case errors.As(err, &overbook):
		return c.JSON(http.StatusConflict, echo.Map{
			"error": err.Error(),
			"code":  codeOverbookingConflict,
			"beds":  overbook.Beds,
		})
	}

	status, code := http.StatusInternalServerError, codeInternalError
	switch {
	case errors.Is(err, model.ErrInvalidDateRange), errors.Is(err, pricing.ErrInvalidNights):
		status, code = http.StatusBadRequest, codeInvalidDateRange
	case errors.Is(err, model.ErrCarnivalMinimumNights):
		status, code = http.StatusBadRequest, codeCarnivalMinimumNights
	case errors.Is(err, model.ErrInvalidGuestCounts):
		status, code = http.StatusBadRequest, codeInvalidGuestCounts
	case errors.Is(err, model.ErrInvalidBedSelection), errors.Is(err, pricing.ErrEmptySelection):
		status, code = http.StatusBadRequest, codeInvalidBedSelection
	case errors.Is(err, model.ErrIdempotencyKeyRequired):
		status, code = http.StatusBadRequest, codeIdempotencyKeyRequired
	case errors.Is(err, model.ErrRoomNotFound):
		status, code = http.StatusNotFound, codeRoomNotFound
	case errors.Is(err, model.ErrHoldNotFound):
		status, code = http.StatusNotFound, codeHoldNotFound
	case errors.Is(err, model.ErrBookingNotFound):
		status, code = http.StatusNotFound, codeBookingNotFound
	case errors.Is(err, model.ErrOverbookingConflict):
		status, code = http.StatusConflict, codeOverbookingConflict
	case errors.Is(err, model.ErrDuplicateIdempotencyKey):
		status, code = http.StatusConflict, codeIdempotencyKeyConflict
	case errors.Is(err, model.ErrFemaleOnlyRoom):
		status, code = http.StatusUnprocessableEntity, codeFemaleOnlyRoom
	case errors.Is(err, model.ErrHoldExpired):
		status, code = http.StatusGone, codeHoldExpired
	case errors.Is(err, model.ErrHoldReleased):
		status, code = http.StatusGone, codeHoldReleased
	case errors.Is(err, model.ErrPaymentAmountMismatch):
		status, code = http.StatusUnprocessableEntity, codePaymentAmountMismatch
	}
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(status, errorBody("internal error", code))
	}
	return c.JSON(status, errorBody(err.Error(), code))
}
