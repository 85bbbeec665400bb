package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/equipment-locker/internal/middleware"
	"github.com/iliyamo/equipment-locker/internal/service"
)

// CellHandler serves the cell catalog and inventory administration.
type CellHandler struct {
	Inventory *service.Inventory
}

func NewCellHandler(inv *service.Inventory) *CellHandler {
	return &CellHandler{Inventory: inv}
}

type addCellTypeReq struct {
	Name string `json:"name" validate:"required,max=64"`
}

type addCellsReq struct {
	TypeID uint64 `json:"type_id" validate:"required"`
	Count  int    `json:"count" validate:"omitempty,min=1,max=1000"`
}

// ListTypes: GET /v1/cell_types
func (h *CellHandler) ListTypes(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Inventory.CellTypes(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Available: GET /v1/cell_types/available lists the ids of types with at
// least one free cell.  The answer is advisory; allocation re-checks.
func (h *CellHandler) Available(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	ids, err := h.Inventory.AvailableTypes(ctx)
	if err != nil {
		return writeError(c, err)
	}
	if ids == nil {
		ids = []uint64{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": ids})
}

// AddType: POST /v1/cell_types
func (h *CellHandler) AddType(c echo.Context) error {
	var req addCellTypeReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	ct, err := h.Inventory.AddCellType(ctx, middleware.CurrentUser(c), req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, ct)
}

// AddCells: POST /v1/cells.  Count defaults to one.
func (h *CellHandler) AddCells(c echo.Context) error {
	var req addCellsReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if req.Count == 0 {
		req.Count = 1
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cells, err := h.Inventory.AddCells(ctx, middleware.CurrentUser(c), req.TypeID, req.Count)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"items": cells})
}
