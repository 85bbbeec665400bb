package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/equipment-locker/internal/handler"
	"github.com/iliyamo/equipment-locker/internal/middleware"
)

// Deps is everything the routes need.  Nil middlewares are skipped.
type Deps struct {
	Auth    *handler.AuthHandler
	Users   *handler.UserHandler
	Cells   *handler.CellHandler
	Leases  *handler.LeaseHandler
	Stats   *handler.StatsHandler
	Health  echo.HandlerFunc
	Metrics http.Handler

	Sessions        middleware.SessionResolver
	RateLimit       echo.MiddlewareFunc
	Cache           echo.MiddlewareFunc
	CacheInvalidate echo.MiddlewareFunc
	TerminalSecret  string
}

// Register installs the request validator and mounts every route on e.
func Register(e *echo.Echo, d Deps) {
	e.Validator = handler.NewValidator()
	RegisterRoutes(e, d.Health, d.Metrics)

	v1 := e.Group("/v1")
	RegisterAuth(v1, d.Auth, d.Sessions, d.RateLimit)

	// The limiter runs after SessionAuth so per-user keys see the user.
	// Session middleware is attached per route: a group with an empty
	// prefix would claim every unknown /v1 path and answer 401.
	sess := chain(middleware.SessionAuth(d.Sessions), d.RateLimit)
	RegisterUsers(v1, d.Users, sess)
	RegisterCells(v1, d.Cells, sess, d.Cache, d.CacheInvalidate)
	RegisterLeases(v1, d.Leases, sess)
	RegisterAdmin(v1, d.Stats, sess)

	RegisterEquipment(v1, d.Leases, d.TerminalSecret, d.RateLimit)
}

// with returns base followed by extra in a fresh slice.
func with(base []echo.MiddlewareFunc, extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, chain(extra...)...)
}

func chain(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisterRoutes mounts the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc, metrics http.Handler) {
	if health == nil {
		health = handler.Health(nil)
	}
	e.GET("/healthz", health)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterAuth mounts /auth.  Only logout needs a session.
func RegisterAuth(g *echo.Group, a *handler.AuthHandler, sessions middleware.SessionResolver, rl echo.MiddlewareFunc) {
	open := chain(rl)
	g.POST("/auth/register", a.Register, open...)
	g.POST("/auth/login", a.Login, open...)
	g.POST("/auth/logout", a.Logout, with(open, middleware.SessionAuth(sessions))...)
}

func RegisterUsers(g *echo.Group, u *handler.UserHandler, sess []echo.MiddlewareFunc) {
	admin := with(sess, middleware.RequireAdmin())
	g.GET("/me", u.Me, sess...)
	g.PUT("/me/password", u.ChangePassword, sess...)
	g.GET("/users", u.List, admin...)
	g.GET("/users/:id", u.Get, sess...)
	g.PUT("/users/:id", u.Update, sess...)
	g.PUT("/users/:id/admin", u.SetAdmin, admin...)
}

// RegisterCells mounts the catalog.  Only the catalog itself is cached;
// availability changes with every lease.  Adding a type drops the cached
// catalog.
func RegisterCells(g *echo.Group, h *handler.CellHandler, sess []echo.MiddlewareFunc, cache, invalidate echo.MiddlewareFunc) {
	g.GET("/cell_types", h.ListTypes, with(sess, cache)...)
	g.GET("/cell_types/available", h.Available, sess...)
	g.POST("/cell_types", h.AddType, with(sess, middleware.RequireAdmin(), invalidate)...)
	g.POST("/cells", h.AddCells, with(sess, middleware.RequireAdmin())...)
}

func RegisterLeases(g *echo.Group, h *handler.LeaseHandler, sess []echo.MiddlewareFunc) {
	g.POST("/leases", h.Create, sess...)
	g.GET("/leases", h.List, sess...)
}

func RegisterAdmin(g *echo.Group, h *handler.StatsHandler, sess []echo.MiddlewareFunc) {
	admin := with(sess, middleware.RequireAdmin())
	sg := g.Group("/admin/stats")
	sg.GET("/users", h.UserGrowth, admin...)
	sg.GET("/leases", h.LeaseGrowth, admin...)
	sg.GET("/free_ratio", h.FreeRatio, admin...)
	sg.GET("/leases_by_type", h.LeasesByType, admin...)
	sg.GET("/leases_by_type_date", h.LeasesByTypeAndDate, admin...)
}

// RegisterEquipment mounts the locker terminal endpoints.  They are keyed
// by pickup code, not by session; an empty secret leaves them open.
func RegisterEquipment(g *echo.Group, h *handler.LeaseHandler, terminalSecret string, rl echo.MiddlewareFunc) {
	term := chain(rl, middleware.TerminalAuth(terminalSecret))
	g.POST("/equipment/take", h.Take, term...)
	g.POST("/equipment/return", h.Return, term...)
}
