package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-management/internal/handler"
	"github.com/iliyamo/hostel-management/internal/middleware"
)

// RegisterStudent registers per-student read endpoints.  Students may only
// read their own roll number; admins may read any.
func RegisterStudent(e *echo.Echo, r *handler.RoomHandler, b *handler.BillingHandler, jwtSecret string) {
	g := e.Group(
		"/v1/students/:roll_no",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN", "STUDENT"),
		middleware.RequireOwnRoll("roll_no"),
	)
	g.GET("/billing", b.StudentBilling)
	g.GET("/room", r.StudentRoom)
}
