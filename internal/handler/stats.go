package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/equipment-locker/internal/middleware"
	"github.com/iliyamo/equipment-locker/internal/model"
	"github.com/iliyamo/equipment-locker/internal/service"
)

// StatsHandler serves /v1/admin/stats/*.
type StatsHandler struct {
	Stats *service.Stats
}

func NewStatsHandler(s *service.Stats) *StatsHandler {
	return &StatsHandler{Stats: s}
}

func serveStats[T any](c echo.Context, fn func(context.Context, model.User) ([]T, error)) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := fn(ctx, middleware.CurrentUser(c))
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// UserGrowth: GET /v1/admin/stats/users
func (h *StatsHandler) UserGrowth(c echo.Context) error {
	return serveStats(c, h.Stats.UserGrowth)
}

// LeaseGrowth: GET /v1/admin/stats/leases
func (h *StatsHandler) LeaseGrowth(c echo.Context) error {
	return serveStats(c, h.Stats.LeaseGrowth)
}

// FreeRatio: GET /v1/admin/stats/free_ratio
func (h *StatsHandler) FreeRatio(c echo.Context) error {
	return serveStats(c, h.Stats.EquipmentFreeRatio)
}

// LeasesByType: GET /v1/admin/stats/leases_by_type
func (h *StatsHandler) LeasesByType(c echo.Context) error {
	return serveStats(c, h.Stats.LeasesByType)
}

// LeasesByTypeAndDate: GET /v1/admin/stats/leases_by_type_date
func (h *StatsHandler) LeasesByTypeAndDate(c echo.Context) error {
	return serveStats(c, h.Stats.LeasesByTypeAndDate)
}
