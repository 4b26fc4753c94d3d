package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-management/internal/handler"
	"github.com/iliyamo/hostel-management/internal/middleware"
)

// RegisterResidentServices registers the application workflow,
// announcements and complaints.  Students work under /v1/me, admins under
// /v1/admin, and the announcement board is open to both roles.
func RegisterResidentServices(e *echo.Echo, ap *handler.ApplicationHandler, an *handler.AnnouncementHandler, cm *handler.ComplaintHandler, jwtSecret string) {
	auth := middleware.JWTAuth(jwtSecret)

	e.GET("/v1/announcements", an.List, auth, middleware.RequireRole("ADMIN", "STUDENT"))

	me := e.Group("/v1/me", auth, middleware.RequireRole("STUDENT"))
	me.POST("/applications", ap.Submit)
	me.GET("/applications", ap.Mine)
	me.POST("/complaints", cm.Create)
	me.GET("/complaints", cm.Mine)

	admin := e.Group("/v1/admin", auth, middleware.RequireRole("ADMIN"))

	// ---- Applications ----
	admin.GET("/applications", ap.List)
	admin.GET("/applications/:id", ap.Get)
	admin.POST("/applications/:id/approve", ap.Approve)
	admin.POST("/applications/:id/reject", ap.Reject)

	// ---- Announcements ----
	admin.POST("/announcements", an.Create)
	admin.DELETE("/announcements/:id", an.Delete)

	// ---- Complaints ----
	admin.GET("/complaints", cm.List)
	admin.GET("/complaints/:id", cm.Get)
	admin.PUT("/complaints/:id/status", cm.UpdateStatus)
	admin.DELETE("/complaints/:id", cm.Delete)
}
