package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-bed-reservation/internal/model"
	"github.com/iliyamo/hostel-bed-reservation/internal/pricing"
)

func TestParseBedsParam(t *testing.T) {
	t.Parallel()

	sel, err := parseBedsParam("mixed-12a:1, 2;female-7:7;")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := sel["mixed-12a"]; len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected mixed-12a beds %v", got)
	}
	if got := sel["female-7"]; len(got) != 1 || got[0] != 7 {
		t.Fatalf("unexpected female-7 beds %v", got)
	}

	for _, raw := range []string{"", ";", "mixed-7", ":1", "mixed-7:x", "mixed-7:1,,2"} {
		if _, err := parseBedsParam(raw); !errors.Is(err, model.ErrInvalidBedSelection) {
			t.Fatalf("%q: expected ErrInvalidBedSelection, got %v", raw, err)
		}
	}
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{model.ErrInvalidDateRange, http.StatusBadRequest, codeInvalidDateRange},
		{pricing.ErrInvalidNights, http.StatusBadRequest, codeInvalidDateRange},
		{&model.CarnivalMinimumNightsError{Nights: 2, Minimum: 5}, http.StatusBadRequest, codeCarnivalMinimumNights},
		{model.ErrInvalidGuestCounts, http.StatusBadRequest, codeInvalidGuestCounts},
		{pricing.ErrEmptySelection, http.StatusBadRequest, codeInvalidBedSelection},
		{model.ErrRoomNotFound, http.StatusNotFound, codeRoomNotFound},
		{&model.OverbookingError{Beds: []model.Bed{{RoomID: "mixed-7", Index: 1}}}, http.StatusConflict, codeOverbookingConflict},
		{model.ErrDuplicateIdempotencyKey, http.StatusConflict, codeIdempotencyKeyConflict},
		{model.ErrFemaleOnlyRoom, http.StatusUnprocessableEntity, codeFemaleOnlyRoom},
		{model.ErrHoldNotFound, http.StatusNotFound, codeHoldNotFound},
		{fmt.Errorf("load: %w", model.ErrHoldExpired), http.StatusGone, codeHoldExpired},
		{model.ErrHoldReleased, http.StatusGone, codeHoldReleased},
		{model.ErrPaymentAmountMismatch, http.StatusUnprocessableEntity, codePaymentAmountMismatch},
		{model.ErrBookingNotFound, http.StatusNotFound, codeBookingNotFound},
		{model.ErrIdempotencyKeyRequired, http.StatusBadRequest, codeIdempotencyKeyRequired},
		{errors.New("connection refused"), http.StatusInternalServerError, codeInternalError},
	}
	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			if err := writeError(c, tc.err); err != nil {
				t.Fatalf("writeError: %v", err)
			}
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["code"] != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, body["code"])
			}
			if tc.status == http.StatusInternalServerError && body["error"] != "internal error" {
				t.Fatalf("internal errors must not leak detail, got %v", body["error"])
			}
		})
	}
}

func TestWriteError_Details(t *testing.T) {
	t.Parallel()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/holds/start", nil), rec)
	_ = writeError(c, &model.CarnivalMinimumNightsError{Nights: 2, Minimum: 5})

	var body struct {
		Nights  int `json:"nights"`
		Minimum int `json:"minimum"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Nights != 2 || body.Minimum != 5 {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/holds/start", nil), rec)
	_ = writeError(c, &model.OverbookingError{Beds: []model.Bed{{RoomID: "mixed-7", Index: 3}}})
	var conflict struct {
		Beds []model.Bed `json:"beds"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &conflict); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(conflict.Beds) != 1 || conflict.Beds[0].Index != 3 {
		t.Fatalf("expected conflicting beds in body, got %s", rec.Body.String())
	}
}

func TestValidator(t *testing.T) {
	t.Parallel()

	v := NewValidator()
	if err := v.Validate(&holdIDRequest{}); err == nil {
		t.Fatalf("expected holdId to be required")
	}
	if err := v.Validate(&startHoldRequest{Guest: model.Guest{Email: "not-an-email"}}); err == nil {
		t.Fatalf("expected invalid guest email to fail")
	}
	ok := startHoldRequest{GuestCounts: model.GuestCounts{Male: -1}, Guest: model.Guest{Email: "a@b.co"}}
	if err := v.Validate(&ok); err != nil {
		t.Fatalf("guest counts are left to the service, got %v", err)
	}
}
