package handler // handler defines http handlers

import (
    "errors"   // errors provides sentinel values used in getUserID
    "log"      // log records persistence failures with detail
    "net/http" // http provides status code constants
    "strconv"  // strconv converts strings to numeric types

    "github.com/labstack/echo/v4" // echo defines request context types

    "github.com/iliyamo/hostel-management/internal/apperr" // apperr is the shared error taxonomy
)

// respond writes a successful structured body: {"success": true, ...payload}.
func respond(c echo.Context, code int, message string, payload echo.Map) error {
    body := echo.Map{"success": true} // every response carries the success flag
    if message != "" {
        body["message"] = message
    }
    for k, v := range payload { // merge payload fields at the top level
        body[k] = v
    }
    return c.JSON(code, body)
}

// failure writes {"success": false, "message": msg} with the given status.
func failure(c echo.Context, code int, msg string) error {
    return c.JSON(code, echo.Map{"success": false, "message": msg})
}

// fail maps an error from the core onto an HTTP status.  Persistence
// failures are logged with their cause and answered with a generic text.
func fail(c echo.Context, err error) error {
    code := statusOf(err)
    if code == http.StatusInternalServerError {
        log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
    }
    body := echo.Map{"success": false, "message": apperr.PublicMessage(err)}
    var ae *apperr.Error
    if errors.As(err, &ae) && ae.Field != "" && code == http.StatusBadRequest {
        body["field"] = ae.Field
    }
    return c.JSON(code, body)
}

func statusOf(err error) int {
    switch {
    case errors.Is(err, apperr.ErrPersistence):
        return http.StatusInternalServerError
    case errors.Is(err, apperr.ErrValidation):
        return http.StatusBadRequest
    case errors.Is(err, apperr.ErrNotFound):
        return http.StatusNotFound
    case errors.Is(err, apperr.ErrAlreadyAllocated),
        errors.Is(err, apperr.ErrRoomFull),
        errors.Is(err, apperr.ErrConflict):
        return http.StatusConflict
    }
    return http.StatusInternalServerError
}

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
    switch t := c.Get("user_id").(type) { // JWT numbers arrive as float64
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}
