package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/equipment-locker/internal/middleware"
	"github.com/iliyamo/equipment-locker/internal/model"
	"github.com/iliyamo/equipment-locker/internal/service"
)

// LeaseHandler serves lease creation and the terminal pickup/return calls.
type LeaseHandler struct {
	Leases *service.Leases
}

func NewLeaseHandler(l *service.Leases) *LeaseHandler {
	return &LeaseHandler{Leases: l}
}

type createLeaseReq struct {
	TypeID uint64 `json:"type_id" validate:"required"`
}

// The code format is checked by the service so that a malformed code
// reports invalid_code like an unknown one would.
type codeReq struct {
	Code string `json:"code" validate:"required"`
}

// Create: POST /v1/leases.  The response carries the pickup code, which
// is not retrievable later.
func (h *LeaseHandler) Create(c echo.Context) error {
	var req createLeaseReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Leases.Create(ctx, middleware.CurrentUser(c), req.TypeID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// List: GET /v1/leases?with_closed=true
func (h *LeaseHandler) List(c echo.Context) error {
	withClosed := false
	if v := c.QueryParam("with_closed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "message": "with_closed must be a boolean"})
		}
		withClosed = b
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Leases.ListByUser(ctx, middleware.CurrentUser(c), withClosed)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []model.Lease{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Take: POST /v1/equipment/take
func (h *LeaseHandler) Take(c echo.Context) error {
	var req codeReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Leases.TakeEquipment(ctx, req.Code)
	if err != nil {
		return writeError(c, err)
	}
	if id := middleware.TerminalID(c); id != "" {
		c.Logger().Infof("terminal %s opened cell %d", id, res.CellID)
	}
	return c.JSON(http.StatusOK, res)
}

// Return: POST /v1/equipment/return
func (h *LeaseHandler) Return(c echo.Context) error {
	var req codeReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Leases.ReturnEquipment(ctx, req.Code)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
