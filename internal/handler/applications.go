package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-management/internal/apperr"
	"github.com/iliyamo/hostel-management/internal/database"
	"github.com/iliyamo/hostel-management/internal/model"
	"github.com/iliyamo/hostel-management/internal/repository"
	"github.com/iliyamo/hostel-management/internal/service"
)

// ApplicationHandler runs the hostel application workflow: students
// submit, admins approve or reject.  Only Pending applications can be
// decided.
type ApplicationHandler struct {
	DB       *sql.DB
	Apps     *repository.ApplicationRepo
	Users    *repository.UserRepo
	Notifier service.Notifier
}

func NewApplicationHandler(db *sql.DB, apps *repository.ApplicationRepo, users *repository.UserRepo, n service.Notifier) *ApplicationHandler {
	if n == nil {
		n = service.Nop{}
	}
	return &ApplicationHandler{DB: db, Apps: apps, Users: users, Notifier: n}
}

type applicationForm struct {
	FullName        string `json:"full_name" validate:"required,max=150"`
	Email           string `json:"email" validate:"required,email"`
	Contact         string `json:"contact" validate:"required,numeric,min=10,max=15"`
	Course          string `json:"course" validate:"required,max=100"`
	Branch          string `json:"branch" validate:"required,max=100"`
	Year            string `json:"year" validate:"required,max=16"`
	Gender          string `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	FoodPreference  string `json:"food_preference" validate:"omitempty,oneof=Veg Non-Veg"`
	ApplicationType string `json:"application_type" validate:"omitempty,max=32"`
	DistanceKm      *int   `json:"distance_km" validate:"omitempty,min=0"`
}

type rejectReq struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

// Submit handles POST /v1/me/applications.
func (h *ApplicationHandler) Submit(c echo.Context) error {
	roll, _ := c.Get("roll_no").(string)
	if roll == "" {
		return failure(c, http.StatusForbidden, "only students can apply")
	}
	var f applicationForm
	if err := c.Bind(&f); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	f.FullName = strings.TrimSpace(f.FullName)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Contact = strings.TrimSpace(f.Contact)
	if err := apperr.Struct(f); err != nil {
		return fail(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	open, err := h.Apps.HasOpen(ctx, roll)
	if err != nil {
		return fail(c, apperr.Persistence("check application", err))
	}
	if open {
		return fail(c, apperr.Conflict("Application already submitted"))
	}
	id, ref, err := h.Apps.Create(ctx, repository.NewApplication{
		RollNo:          roll,
		FullName:        f.FullName,
		Email:           f.Email,
		Contact:         f.Contact,
		Course:          f.Course,
		Branch:          f.Branch,
		Year:            f.Year,
		Gender:          f.Gender,
		FoodPreference:  f.FoodPreference,
		ApplicationType: f.ApplicationType,
		DistanceKm:      f.DistanceKm,
	})
	if err != nil {
		return fail(c, apperr.Persistence("create application", err))
	}
	service.Dispatch(ctx, h.Notifier, model.Notification{
		RecipientType: model.RecipientAdmin,
		AlertType:     "Application",
		Title:         "New hostel application",
		Message:       fmt.Sprintf("%s (%s) submitted application %s.", f.FullName, roll, ref),
	})
	return respond(c, http.StatusCreated, "Application submitted", echo.Map{"application_id": id, "ref_number": ref})
}

// Mine handles GET /v1/me/applications.
func (h *ApplicationHandler) Mine(c echo.Context) error {
	roll, _ := c.Get("roll_no").(string)
	if roll == "" {
		return failure(c, http.StatusForbidden, "only students have applications")
	}
	apps, err := h.Apps.ByRoll(c.Request().Context(), roll)
	if err != nil {
		return fail(c, apperr.Persistence("list applications", err))
	}
	return respond(c, http.StatusOK, "", echo.Map{"applications": apps})
}

// List handles GET /v1/admin/applications?status=.
func (h *ApplicationHandler) List(c echo.Context) error {
	status := c.QueryParam("status")
	switch status {
	case "", model.ApplicationPending, model.ApplicationApproved, model.ApplicationRejected:
	default:
		return fail(c, apperr.Validation("status", "status must be Pending, Approved or Rejected"))
	}
	apps, err := h.Apps.List(c.Request().Context(), status)
	if err != nil {
		return fail(c, apperr.Persistence("list applications", err))
	}
	return respond(c, http.StatusOK, "", echo.Map{"applications": apps})
}

// Get handles GET /v1/admin/applications/:id.
func (h *ApplicationHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return failure(c, http.StatusBadRequest, "invalid application id")
	}
	a, err := h.Apps.Get(c.Request().Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, apperr.NotFound("application"))
	}
	if err != nil {
		return fail(c, apperr.Persistence("load application", err))
	}
	return respond(c, http.StatusOK, "", echo.Map{"application": a})
}

// Approve handles POST /v1/admin/applications/:id/approve.  The student's
// profile takes the name, email and contact from the application.
func (h *ApplicationHandler) Approve(c echo.Context) error {
	return h.decide(c, model.ApplicationApproved, "")
}

// Reject handles POST /v1/admin/applications/:id/reject.
func (h *ApplicationHandler) Reject(c echo.Context) error {
	var req rejectReq
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := apperr.Struct(req); err != nil {
		return fail(c, err)
	}
	return h.decide(c, model.ApplicationRejected, req.Reason)
}

func (h *ApplicationHandler) decide(c echo.Context, status, reason string) error {
	id, ok := pathID(c, "id")
	if !ok {
		return failure(c, http.StatusBadRequest, "invalid application id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	var app model.Application
	err := database.WithTx(ctx, h.DB, func(tx *sql.Tx) error {
		a, err := h.Apps.GetForUpdateTx(ctx, tx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("application")
		}
		if err != nil {
			return err
		}
		if a.Status != model.ApplicationPending {
			return apperr.Conflict("Application already " + strings.ToLower(a.Status))
		}
		if err := h.Apps.SetStatusTx(ctx, tx, id, status, reason); err != nil {
			return err
		}
		if status == model.ApplicationApproved {
			err := h.Users.UpdateContactTx(ctx, tx, a.RollNo, a.FullName, a.Email, a.Contact)
			if errors.Is(err, repository.ErrUserExists) {
				return apperr.Conflict("Email already used by another account")
			}
			if err != nil {
				return err
			}
		}
		a.Status, a.RejectionReason = status, reason
		app = a
		return nil
	})
	if err != nil {
		return fail(c, apperr.Persistence("decide application", err))
	}

	h.notifyStudent(ctx, app)
	msg := "Application approved"
	if status == model.ApplicationRejected {
		msg = "Application rejected"
	}
	return respond(c, http.StatusOK, msg, echo.Map{"application": app})
}

func (h *ApplicationHandler) notifyStudent(ctx context.Context, a model.Application) {
	uid, err := h.Users.IDByRoll(ctx, a.RollNo)
	if err != nil {
		log.Printf("applications: no user for roll %s: %v", a.RollNo, err)
		return
	}
	text := fmt.Sprintf("Your hostel application %s was approved.", a.RefNumber)
	if a.Status == model.ApplicationRejected {
		text = fmt.Sprintf("Your hostel application %s was rejected: %s", a.RefNumber, a.RejectionReason)
	}
	service.Dispatch(ctx, h.Notifier, model.Notification{
		UserID:        &uid,
		RecipientType: model.RecipientStudent,
		AlertType:     "Application",
		Title:         "Application " + strings.ToLower(a.Status),
		Message:       text,
	})
}
