package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/hostel-management/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/hostel-management/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication:
// liveness and readiness checks.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers all authentication-related routes.  Registration
// and login live under /v1/auth behind the rate limiter (limiter may be
// nil) together with the password reset flow; /v1/me, password changes
// and the notification feed require an access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, n *handler.NotificationHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/register/request-otp", a.RequestOTP)
	g.POST("/register/verify-otp", a.VerifyOTP)
	g.POST("/login", a.Login)
	// refresh rotates the refresh token
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.POST("/password/forgot", a.RequestPasswordReset)
	g.POST("/password/reset", a.ResetPassword)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole("ADMIN", "STUDENT"))
	auth.GET("/me", a.Me)
	auth.POST("/me/password", a.ChangePassword)
	auth.GET("/notifications", n.List)
	auth.POST("/notifications/:id/read", n.MarkRead)
}
