package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-bed-reservation/internal/model"
	"github.com/iliyamo/hostel-bed-reservation/internal/service"
	"github.com/iliyamo/hostel-bed-reservation/internal/utils"
)

// AdminTokens configures the tokens minted by the admin surface.  Tokens
// are stamped with wall-clock time since JWTAuth verifies them against it.
type AdminTokens struct {
	Secret     string
	AccessTTL  time.Duration
	GatewayTTL time.Duration
}

// AdminHandler serves the operator endpoints under /v1/admin.
type AdminHandler struct {
	holds  *service.HoldManager
	creds  utils.AdminCredentials
	tokens AdminTokens
}

func NewAdminHandler(holds *service.HoldManager, creds utils.AdminCredentials, tokens AdminTokens) *AdminHandler {
	if holds == nil {
		panic("nil hold manager passed to NewAdminHandler")
	}
	return &AdminHandler{holds: holds, creds: creds, tokens: tokens}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

type gatewayTokenRequest struct {
	Subject string `json:"subject" validate:"required,max=64"`
}

// Login handles POST /v1/admin/login and returns an ADMIN access token.
func (h *AdminHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if !h.creds.Check(req.Username, req.Password) {
		return c.JSON(http.StatusUnauthorized, errorBody("invalid credentials", codeInvalidCredentials))
	}
	tok, err := utils.NewAccessToken(h.tokens.Secret, req.Username, utils.RoleAdmin, h.tokens.AccessTTL, time.Now())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tok)
}

// GatewayToken handles POST /v1/admin/gateway-token.  The token is handed
// to the payment gateway to authenticate its webhook calls.
func (h *AdminHandler) GatewayToken(c echo.Context) error {
	var req gatewayTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	tok, err := utils.NewAccessToken(h.tokens.Secret, req.Subject, utils.RoleGateway, h.tokens.GatewayTTL, time.Now())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, tok)
}

// ListHolds handles GET /v1/admin/holds?status=.  Statuses are effective:
// a pending hold past its deadline is listed as expired.
func (h *AdminHandler) ListHolds(c echo.Context) error {
	var status model.HoldStatus
	if raw := c.QueryParam("status"); raw != "" {
		s, ok := model.ParseHoldStatus(raw)
		if !ok {
			return badRequest(c, "unknown status "+raw)
		}
		status = s
	}
	holds, err := h.holds.ListHolds(c.Request().Context(), status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"holds": holds, "count": len(holds)})
}

// Sweep handles POST /v1/admin/sweep and runs one expiry pass now.
func (h *AdminHandler) Sweep(c echo.Context) error {
	n, err := h.holds.Expire(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"expired": n})
}
