package middleware

// identity.go holds helpers that read the caller identity JWTAuth stored
// in the Echo context.

import (
    "fmt"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hostel-management/internal/model"
)

// userKey renders the caller's user id for use in rate limit keys.  It
// returns "anon" when no user is authenticated.
func userKey(c echo.Context) string {
    switch v := c.Get("user_id").(type) {
    case string:
        if v != "" {
            return v
        }
    case float64:
        return fmt.Sprintf("%.0f", v)
    case uint64, int64, int:
        return fmt.Sprint(v)
    }
    return "anon"
}

// RequireOwnRoll lets admins through and limits students to the roll
// number in the named path parameter.  A student asking for another
// student's data gets 403.
func RequireOwnRoll(param string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if role, _ := c.Get("role").(string); role == model.RoleAdmin {
                return next(c)
            }
            own, _ := c.Get("roll_no").(string)
            if own == "" || strings.TrimSpace(c.Param(param)) != own {
                return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Access denied"})
            }
            return next(c)
        }
    }
}
