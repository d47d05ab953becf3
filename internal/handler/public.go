package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-bed-reservation/internal/catalog"
	"github.com/iliyamo/hostel-bed-reservation/internal/model"
	"github.com/iliyamo/hostel-bed-reservation/internal/service"
)

// PublicHandler serves the unauthenticated read endpoints: the room list,
// availability, price quotes and booking status.
type PublicHandler struct {
	catalog        *catalog.Catalog
	holds          *service.HoldManager
	advertisedBeds int
}

func NewPublicHandler(cat *catalog.Catalog, holds *service.HoldManager, advertisedBeds int) *PublicHandler {
	if cat == nil || holds == nil {
		panic("nil dependency passed to NewPublicHandler")
	}
	return &PublicHandler{catalog: cat, holds: holds, advertisedBeds: advertisedBeds}
}

// ListRooms handles GET /rooms.  The configured advertised bed count is
// returned next to the sum of room capacities; the two may differ.
func (h *PublicHandler) ListRooms(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"rooms":          h.catalog.ListRooms(),
		"totalBeds":      h.catalog.TotalBeds(),
		"advertisedBeds": h.advertisedBeds,
	})
}

// Availability handles GET /availability?from=&to=.  Every room appears in
// "occupied", with an empty list when no bed is taken.  "roomTypes" reports
// the gender policy in force for the stay.
func (h *PublicHandler) Availability(c echo.Context) error {
	stay, err := stayFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	occupied, err := h.holds.Ledger().Availability(ctx, stay)
	if err != nil {
		return writeError(c, err)
	}
	types, err := h.holds.Ledger().EffectiveRoomTypes(ctx, stay)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"from":      stay.CheckIn.Format(model.DateLayout),
		"to":        stay.CheckOut.Format(model.DateLayout),
		"occupied":  occupied,
		"roomTypes": types,
	})
}

// Quote handles GET /quote?from=&to=&beds=room:1,2;room2:3.  It prices the
// selection without reserving anything.
func (h *PublicHandler) Quote(c echo.Context) error {
	stay, err := stayFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	sel, err := parseBedsParam(c.QueryParam("beds"))
	if err != nil {
		return writeError(c, err)
	}
	snap, err := h.holds.Quote(c.Request().Context(), service.QuoteInput{Beds: sel, Stay: stay})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"priceSnapshot": snap})
}

// BookingStatus handles GET /bookings/status?bookingId= (or ?holdId=).
func (h *PublicHandler) BookingStatus(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		b   model.Booking
		err error
	)
	switch bookingID, holdID := c.QueryParam("bookingId"), c.QueryParam("holdId"); {
	case bookingID != "":
		b, err = h.holds.GetBooking(ctx, bookingID)
	case holdID != "":
		b, err = h.holds.GetBookingByHold(ctx, holdID)
	default:
		return badRequest(c, "bookingId is required")
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"bookingId":       b.ID,
		"holdId":          b.HoldID,
		"paid":            b.Paid(),
		"status":          b.PaymentStatus,
		"total":           b.Total,
		"depositAmount":   b.DepositAmount,
		"remainingAmount": b.RemainingAmount,
	})
}

func stayFromQuery(c echo.Context) (model.Stay, error) {
	return model.ParseStay(c.QueryParam("from"), c.QueryParam("to"))
}

// parseBedsParam reads "roomA:1,2;roomB:3".  Shape errors are reported as
// ErrInvalidBedSelection; range and room checks belong to the service.
func parseBedsParam(raw string) (model.BedSelection, error) {
	sel := model.BedSelection{}
	for _, group := range strings.Split(raw, ";") {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		roomID, list, ok := strings.Cut(group, ":")
		roomID = strings.TrimSpace(roomID)
		if !ok || roomID == "" {
			return nil, model.ErrInvalidBedSelection
		}
		for _, v := range strings.Split(list, ",") {
			idx, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, model.ErrInvalidBedSelection
			}
			sel[roomID] = append(sel[roomID], idx)
		}
	}
	if len(sel) == 0 {
		return nil, model.ErrInvalidBedSelection
	}
	return sel, nil
}
