package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-management/internal/apperr"
	"github.com/iliyamo/hostel-management/internal/model"
	"github.com/iliyamo/hostel-management/internal/repository"
	"github.com/iliyamo/hostel-management/internal/service"
)

type ComplaintHandler struct {
	Repo     *repository.ComplaintRepo
	Notifier service.Notifier
}

func NewComplaintHandler(r *repository.ComplaintRepo, n service.Notifier) *ComplaintHandler {
	if n == nil {
		n = service.Nop{}
	}
	return &ComplaintHandler{Repo: r, Notifier: n}
}

type complaintReq struct {
	ComplaintType string `json:"complaint_type" validate:"required,max=50"`
	Description   string `json:"description" validate:"required,max=2000"`
}

type complaintStatusReq struct {
	Status string `json:"status" validate:"required,oneof='Pending' 'In Progress' 'Resolved'"`
}

// Create handles POST /v1/me/complaints.
func (h *ComplaintHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return failure(c, http.StatusUnauthorized, "unauthorized")
	}
	var req complaintReq
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	req.ComplaintType = strings.TrimSpace(req.ComplaintType)
	req.Description = strings.TrimSpace(req.Description)
	if err := apperr.Struct(req); err != nil {
		return fail(c, err)
	}
	ctx := c.Request().Context()
	id, err := h.Repo.Create(ctx, uid, req.ComplaintType, req.Description)
	if err != nil {
		return fail(c, apperr.Persistence("create complaint", err))
	}
	roll, _ := c.Get("roll_no").(string)
	service.Dispatch(ctx, h.Notifier, model.Notification{
		RecipientType: model.RecipientAdmin,
		AlertType:     "Complaint",
		Title:         "New complaint: " + req.ComplaintType,
		Message:       fmt.Sprintf("Student %s filed complaint #%d.", roll, id),
	})
	return respond(c, http.StatusCreated, "Complaint submitted", echo.Map{"complaint_id": id})
}

// Mine handles GET /v1/me/complaints.
func (h *ComplaintHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return failure(c, http.StatusUnauthorized, "unauthorized")
	}
	items, err := h.Repo.ByStudent(c.Request().Context(), uid)
	if err != nil {
		return fail(c, apperr.Persistence("list complaints", err))
	}
	return respond(c, http.StatusOK, "", echo.Map{"complaints": items})
}

// List handles GET /v1/admin/complaints?status=.
func (h *ComplaintHandler) List(c echo.Context) error {
	status := c.QueryParam("status")
	switch status {
	case "", model.ComplaintPending, model.ComplaintInProgress, model.ComplaintResolved:
	default:
		return fail(c, apperr.Validation("status", "status must be Pending, In Progress or Resolved"))
	}
	items, err := h.Repo.List(c.Request().Context(), status)
	if err != nil {
		return fail(c, apperr.Persistence("list complaints", err))
	}
	return respond(c, http.StatusOK, "", echo.Map{"complaints": items})
}

// Get handles GET /v1/admin/complaints/:id.
func (h *ComplaintHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return failure(c, http.StatusBadRequest, "invalid complaint id")
	}
	item, err := h.Repo.Get(c.Request().Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, apperr.NotFound("complaint"))
	}
	if err != nil {
		return fail(c, apperr.Persistence("load complaint", err))
	}
	return respond(c, http.StatusOK, "", echo.Map{"complaint": item})
}

// UpdateStatus handles PUT /v1/admin/complaints/:id/status and tells the
// student about the change.
func (h *ComplaintHandler) UpdateStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return failure(c, http.StatusBadRequest, "invalid complaint id")
	}
	var req complaintStatusReq
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	if err := apperr.Struct(req); err != nil {
		return fail(c, err)
	}
	ctx := c.Request().Context()
	item, err := h.Repo.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, apperr.NotFound("complaint"))
	}
	if err != nil {
		return fail(c, apperr.Persistence("load complaint", err))
	}
	err = h.Repo.UpdateStatus(ctx, id, req.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, apperr.NotFound("complaint"))
	}
	if err != nil {
		return fail(c, apperr.Persistence("update complaint", err))
	}
	if item.Status != req.Status {
		sid := item.StudentID
		service.Dispatch(ctx, h.Notifier, model.Notification{
			UserID:        &sid,
			RecipientType: model.RecipientStudent,
			AlertType:     "Complaint",
			Title:         "Complaint " + strings.ToLower(req.Status),
			Message:       fmt.Sprintf("Your %s complaint #%d is now %s.", item.ComplaintType, id, req.Status),
		})
	}
	return respond(c, http.StatusOK, "Complaint status updated", echo.Map{"status": req.Status})
}

// Delete handles DELETE /v1/admin/complaints/:id.
func (h *ComplaintHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return failure(c, http.StatusBadRequest, "invalid complaint id")
	}
	err := h.Repo.Delete(c.Request().Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, apperr.NotFound("complaint"))
	}
	if err != nil {
		return fail(c, apperr.Persistence("delete complaint", err))
	}
	return respond(c, http.StatusOK, "Complaint deleted", nil)
}
