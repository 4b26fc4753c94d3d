package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-management/internal/allocation"
	"github.com/iliyamo/hostel-management/internal/apperr"
	"github.com/iliyamo/hostel-management/internal/model"
	"github.com/iliyamo/hostel-management/internal/repository"
)

type recorder struct {
	sent []model.Notification
	otps []string
}

func (r *recorder) Notify(_ context.Context, n model.Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

func (r *recorder) SendOTP(_ context.Context, _, _, code string, _ time.Time) error {
	r.otps = append(r.otps, code)
	return nil
}

func q(s string) string { return regexp.QuoteMeta(s) }

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// newCtx builds an echo context for a JSON request.
func newCtx(method, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestStatusOfMapsErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validation("month", "Invalid month"), http.StatusBadRequest},
		{apperr.NotFound("room"), http.StatusNotFound},
		{apperr.AlreadyAllocated(), http.StatusConflict},
		{apperr.RoomFull(), http.StatusConflict},
		{apperr.Conflict("dup"), http.StatusConflict},
		{apperr.Persistence("x", errors.New("boom")), http.StatusInternalServerError},
		{errors.New("unknown"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusOf(tc.err); got != tc.want {
			t.Errorf("statusOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestFailHidesPersistenceDetail(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "")
	_ = fail(c, apperr.Persistence("allocate", errors.New("dial tcp 10.0.0.1:3306: refused")))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.1") {
		t.Fatalf("internal detail leaked: %s", rec.Body.String())
	}
	if body := decode(t, rec); body["success"] != false {
		t.Fatalf("success flag missing: %v", body)
	}
}

func TestFailAddsFieldOnValidation(t *testing.T) {
	c, rec := newCtx(http.MethodPost, "")
	_ = fail(c, apperr.Validation("capacity", "capacity must be at least 0"))
	body := decode(t, rec)
	if rec.Code != http.StatusBadRequest || body["field"] != "capacity" {
		t.Fatalf("got %d %v", rec.Code, body)
	}
}

func TestAllocateAlreadyAllocatedIs409(t *testing.T) {
	db, mock := newMock(t)
	h := NewRoomHandler(allocation.New(db, &recorder{}))

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT room_id FROM room_allocations WHERE roll_no = ? FOR UPDATE")).
		WithArgs("2101").WillReturnRows(sqlmock.NewRows([]string{"room_id"}).AddRow(4))
	mock.ExpectRollback()

	c, rec := newCtx(http.MethodPost, `{"roll_no":"2101"}`)
	c.SetParamNames("id")
	c.SetParamValues("3")
	if err := h.Allocate(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	body := decode(t, rec)
	if rec.Code != http.StatusConflict || body["message"] != "Student already allocated. Vacate first." {
		t.Fatalf("got %d %v", rec.Code, body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAllocateRejectsBadRoomID(t *testing.T) {
	db, _ := newMock(t)
	h := NewRoomHandler(allocation.New(db, nil))
	c, rec := newCtx(http.MethodPost, `{"roll_no":"2101"}`)
	c.SetParamNames("id")
	c.SetParamValues("abc")
	_ = h.Allocate(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUpdateCapacityRequiresValue(t *testing.T) {
	db, mock := newMock(t)
	h := NewRoomHandler(allocation.New(db, nil))
	c, rec := newCtx(http.MethodPut, `{}`)
	c.SetParamNames("id")
	c.SetParamValues("3")
	_ = h.UpdateCapacity(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected db use: %v", err)
	}
}

func TestStudentRoomNullWhenUnallocated(t *testing.T) {
	db, mock := newMock(t)
	h := NewRoomHandler(allocation.New(db, nil))
	mock.ExpectQuery(q("FROM room_allocations a")).WithArgs("2101").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, rec := newCtx(http.MethodGet, "")
	c.SetParamNames("roll_no")
	c.SetParamValues("2101")
	_ = h.StudentRoom(c)
	body := decode(t, rec)
	if rec.Code != http.StatusOK || body["room"] != nil {
		t.Fatalf("got %d %v", rec.Code, body)
	}
}

func TestMarkReadMissingIs404(t *testing.T) {
	db, mock := newMock(t)
	h := NewNotificationHandler(repository.NewNotificationRepo(db))
	mock.ExpectExec(q("UPDATE notifications SET is_read = 1 WHERE notification_id = ? AND user_id = ?")).
		WithArgs(9, 5).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT user_id FROM notifications WHERE notification_id = ?")).
		WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	c, rec := newCtx(http.MethodPost, "")
	c.SetParamNames("id")
	c.SetParamValues("9")
	c.Set("role", model.RoleStudent)
	c.Set("user_id", float64(5))
	_ = h.MarkRead(c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func markReadAsStudent(t *testing.T, owner any) int {
	t.Helper()
	db, mock := newMock(t)
	h := NewNotificationHandler(repository.NewNotificationRepo(db))
	mock.ExpectExec(q("UPDATE notifications SET is_read = 1 WHERE notification_id = ? AND user_id = ?")).
		WithArgs(9, 5).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT user_id FROM notifications WHERE notification_id = ?")).
		WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(owner))

	c, rec := newCtx(http.MethodPost, "")
	c.SetParamNames("id")
	c.SetParamValues("9")
	c.Set("role", model.RoleStudent)
	c.Set("user_id", float64(5))
	_ = h.MarkRead(c)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
	return rec.Code
}

func TestMarkReadOtherStudentsNotificationIs404(t *testing.T) {
	if code := markReadAsStudent(t, 6); code != http.StatusNotFound {
		t.Fatalf("status = %d", code)
	}
}

func TestMarkReadBroadcastAsStudentIs404(t *testing.T) {
	if code := markReadAsStudent(t, nil); code != http.StatusNotFound {
		t.Fatalf("status = %d", code)
	}
}

func TestMarkReadAlreadyReadOwnNotification(t *testing.T) {
	if code := markReadAsStudent(t, 5); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
}

func TestListNotificationsForAdmin(t *testing.T) {
	db, mock := newMock(t)
	h := NewNotificationHandler(repository.NewNotificationRepo(db))
	cols := []string{"notification_id", "user_id", "recipient_type", "alert_type", "title", "message", "is_read", "created_at"}
	mock.ExpectQuery(q("WHERE recipient_type IN ('Admin','All') AND is_read = 0")).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(2, nil, "Admin", "Security", "Account locked", "Account 2101 locked", false, time.Now()))

	c, rec := newCtx(http.MethodGet, "")
	c.Set("role", model.RoleAdmin)
	_ = h.List(c)
	body := decode(t, rec)
	items, _ := body["notifications"].([]any)
	if rec.Code != http.StatusOK || len(items) != 1 {
		t.Fatalf("got %d %v", rec.Code, body)
	}
}

func TestReadyReportsDatabaseState(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectPing()
	c, rec := newCtx(http.MethodGet, "")
	_ = Ready(db)(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	mock.ExpectPing().WillReturnError(errors.New("down"))
	c, rec = newCtx(http.MethodGet, "")
	_ = Ready(db)(c)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}
