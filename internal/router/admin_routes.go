package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-management/internal/handler"    // room and billing handlers
	"github.com/iliyamo/hostel-management/internal/middleware" // JWT + role middlewares
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.
// All routes require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, r *handler.RoomHandler, b *handler.BillingHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)

	// ---- Rooms ----
	g.GET("/rooms", r.ListRooms)
	g.POST("/rooms", r.AddRoom)
	g.PUT("/rooms/:id/capacity", r.UpdateCapacity)
	g.DELETE("/rooms/:id", r.DeleteRoom)

	// ---- Allocations ----
	g.POST("/rooms/:id/allocate", r.Allocate)
	g.POST("/rooms/:id/vacate", r.Vacate)

	// ---- Billing ----
	// static segments are matched before :roll_no
	g.GET("/billing/summary", b.Summary)
	g.GET("/billing/:roll_no", b.Manage)
	g.POST("/billing/save-year", b.SaveYear)
	g.POST("/billing/save-all", b.SaveAll)
	g.POST("/billing/add", b.Add)
}
