package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-management/internal/apperr"
	"github.com/iliyamo/hostel-management/internal/model"
	"github.com/iliyamo/hostel-management/internal/repository"
)

// NotificationHandler serves the dashboard notification feeds.
type NotificationHandler struct {
	Repo *repository.NotificationRepo
}

func NewNotificationHandler(r *repository.NotificationRepo) *NotificationHandler {
	return &NotificationHandler{Repo: r}
}

// List handles GET /v1/notifications.  Admins see unread Admin/All
// notifications; students see their own plus broadcasts.
func (h *NotificationHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		items []model.Notification
		err   error
	)
	if role, _ := c.Get("role").(string); role == model.RoleAdmin {
		items, err = h.Repo.UnreadForAdmins(ctx)
	} else {
		uid, uerr := getUserID(c)
		if uerr != nil {
			return failure(c, http.StatusUnauthorized, "unauthorized")
		}
		items, err = h.Repo.ForStudent(ctx, uid)
	}
	if err != nil {
		return fail(c, apperr.Persistence("list notifications", err))
	}
	return respond(c, http.StatusOK, "", echo.Map{"notifications": items})
}

// MarkRead handles POST /v1/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return failure(c, http.StatusBadRequest, "invalid notification id")
	}
	var owner uint64
	if role, _ := c.Get("role").(string); role != model.RoleAdmin {
		uid, err := getUserID(c)
		if err != nil {
			return failure(c, http.StatusUnauthorized, "unauthorized")
		}
		owner = uid
	}
	err := h.Repo.MarkRead(c.Request().Context(), id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, apperr.NotFound("notification"))
	}
	if err != nil {
		return fail(c, apperr.Persistence("mark notification", err))
	}
	return respond(c, http.StatusOK, "Notification marked as read", nil)
}
