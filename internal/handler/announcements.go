package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-management/internal/apperr"
	"github.com/iliyamo/hostel-management/internal/model"
	"github.com/iliyamo/hostel-management/internal/repository"
	"github.com/iliyamo/hostel-management/internal/service"
)

// AnnouncementHandler publishes admin notices.  Each new announcement is
// also broadcast as an "All" notification.
type AnnouncementHandler struct {
	Repo     *repository.AnnouncementRepo
	Notifier service.Notifier
}

func NewAnnouncementHandler(r *repository.AnnouncementRepo, n service.Notifier) *AnnouncementHandler {
	if n == nil {
		n = service.Nop{}
	}
	return &AnnouncementHandler{Repo: r, Notifier: n}
}

type announcementReq struct {
	Title   string `json:"title" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Create handles POST /v1/admin/announcements.
func (h *AnnouncementHandler) Create(c echo.Context) error {
	var req announcementReq
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)
	if err := apperr.Struct(req); err != nil {
		return fail(c, err)
	}
	ctx := c.Request().Context()
	id, err := h.Repo.Create(ctx, req.Title, req.Message)
	if err != nil {
		return fail(c, apperr.Persistence("create announcement", err))
	}
	service.Dispatch(ctx, h.Notifier, model.Notification{
		RecipientType: model.RecipientAll,
		AlertType:     "Announcement",
		Title:         req.Title,
		Message:       req.Message,
	})
	return respond(c, http.StatusCreated, "Announcement added", echo.Map{"id": id})
}

// List handles GET /v1/announcements for any signed-in user.
func (h *AnnouncementHandler) List(c echo.Context) error {
	items, err := h.Repo.List(c.Request().Context())
	if err != nil {
		return fail(c, apperr.Persistence("list announcements", err))
	}
	return respond(c, http.StatusOK, "", echo.Map{"announcements": items})
}

// Delete handles DELETE /v1/admin/announcements/:id.
func (h *AnnouncementHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return failure(c, http.StatusBadRequest, "invalid announcement id")
	}
	err := h.Repo.Delete(c.Request().Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, apperr.NotFound("announcement"))
	}
	if err != nil {
		return fail(c, apperr.Persistence("delete announcement", err))
	}
	return respond(c, http.StatusOK, "Announcement deleted", nil)
}
