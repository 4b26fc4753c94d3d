package allocation

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hostel-management/internal/apperr"
	"github.com/iliyamo/hostel-management/internal/model"
)

type recorder struct{ sent []model.Notification }

func (r *recorder) Notify(_ context.Context, n model.Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

func (r *recorder) SendOTP(context.Context, string, string, string, time.Time) error { return nil }

var fixedNow = time.Date(2024, 8, 1, 9, 30, 0, 0, time.UTC)

func newTestAllocator(t *testing.T) (*Allocator, sqlmock.Sqlmock, *recorder) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	rec := &recorder{}
	a := New(db, rec)
	a.now = func() time.Time { return fixedNow }
	return a, mock, rec
}

func q(s string) string { return regexp.QuoteMeta(s) }

var roomCols = []string{"id", "hostel_name", "room_no", "floor", "category", "capacity", "created_at"}

func expectHeldRoom(mock sqlmock.Sqlmock, roll string, roomID int64) {
	rows := sqlmock.NewRows([]string{"room_id"})
	if roomID != 0 {
		rows.AddRow(roomID)
	}
	mock.ExpectQuery(q("SELECT room_id FROM room_allocations WHERE roll_no = ? FOR UPDATE")).
		WithArgs(roll).WillReturnRows(rows)
}

func expectStudent(mock sqlmock.Sqlmock, roll string, userID int64) {
	rows := sqlmock.NewRows([]string{"id"})
	if userID != 0 {
		rows.AddRow(userID)
	}
	mock.ExpectQuery(q("SELECT id FROM users WHERE roll_no = ? AND role = 'STUDENT'")).
		WithArgs(roll).WillReturnRows(rows)
}

func expectLockRoom(mock sqlmock.Sqlmock, roomID int64, capacity int) {
	rows := sqlmock.NewRows(roomCols)
	if capacity >= 0 {
		rows.AddRow(roomID, "Boys Hostel", "A-12", "1", nil, capacity, fixedNow)
	}
	mock.ExpectQuery(q("FROM rooms WHERE id = ? FOR UPDATE")).WithArgs(roomID).WillReturnRows(rows)
}

func expectCount(mock sqlmock.Sqlmock, roomID int64, n int) {
	mock.ExpectQuery(q("SELECT COUNT(*) FROM room_allocations WHERE room_id = ?")).
		WithArgs(roomID).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(n))
}

// expectAllocate scripts a successful allocation of roll into a room of
// the given capacity already holding occupied students.
func expectAllocate(mock sqlmock.Sqlmock, roll string, userID, roomID int64, capacity, occupied int) {
	mock.ExpectBegin()
	expectHeldRoom(mock, roll, 0)
	expectStudent(mock, roll, userID)
	expectLockRoom(mock, roomID, capacity)
	expectCount(mock, roomID, occupied)
	mock.ExpectExec(q("INSERT INTO room_allocations (roll_no, room_id, allocated_at)")).
		WithArgs(roll, roomID, fixedNow).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q("UPDATE hostel_applications SET hostel_name = ?, room_no = ? WHERE roll_no = ?")).
		WithArgs("Boys Hostel", "A-12", roll).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE users SET hostel_name = ?, room_no = ? WHERE roll_no = ?")).
		WithArgs("Boys Hostel", "A-12", roll).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func expectVacate(mock sqlmock.Sqlmock, roll string, userID, roomID int64) {
	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM room_allocations WHERE roll_no = ? AND room_id = ?")).
		WithArgs(roll, roomID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE hostel_applications SET hostel_name = NULL, room_no = NULL WHERE roll_no IN (?)")).
		WithArgs(roll).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE users SET hostel_name = NULL, room_no = NULL WHERE roll_no IN (?)")).
		WithArgs(roll).WillReturnResult(sqlmock.NewResult(0, 1))
	expectStudent(mock, roll, userID)
	mock.ExpectCommit()
}

func TestAllocateSuccessCopiesLabelsAndNotifies(t *testing.T) {
	a, mock, rec := newTestAllocator(t)
	expectAllocate(mock, "2101", 7, 3, 2, 0)

	got, err := a.Allocate(context.Background(), " 2101 ", 3)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if got.RollNo != "2101" || got.RoomID != 3 || !got.AllocatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected allocation %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
	if len(rec.sent) != 1 || rec.sent[0].UserID == nil || *rec.sent[0].UserID != 7 {
		t.Fatalf("expected one student notification, got %+v", rec.sent)
	}
}

func TestAllocateRejectsStudentWithRoom(t *testing.T) {
	a, mock, rec := newTestAllocator(t)
	mock.ExpectBegin()
	expectHeldRoom(mock, "2101", 9)
	mock.ExpectRollback()

	_, err := a.Allocate(context.Background(), "2101", 3)
	if !errors.Is(err, apperr.ErrAlreadyAllocated) {
		t.Fatalf("expected already allocated, got %v", err)
	}
	if apperr.PublicMessage(err) != "Student already allocated. Vacate first." {
		t.Fatalf("unexpected message %q", apperr.PublicMessage(err))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
	if len(rec.sent) != 0 {
		t.Fatalf("no notification expected on failure")
	}
}

func TestAllocateUnknownStudentOrRoom(t *testing.T) {
	a, mock, _ := newTestAllocator(t)
	mock.ExpectBegin()
	expectHeldRoom(mock, "9999", 0)
	expectStudent(mock, "9999", 0)
	mock.ExpectRollback()
	if _, err := a.Allocate(context.Background(), "9999", 3); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for student, got %v", err)
	}

	mock.ExpectBegin()
	expectHeldRoom(mock, "2101", 0)
	expectStudent(mock, "2101", 7)
	expectLockRoom(mock, 42, -1)
	mock.ExpectRollback()
	_, err := a.Allocate(context.Background(), "2101", 42)
	if !errors.Is(err, apperr.ErrNotFound) || apperr.PublicMessage(err) != "room not found" {
		t.Fatalf("expected room not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAllocateDuplicateKeyRaceMapsToAlreadyAllocated(t *testing.T) {
	a, mock, _ := newTestAllocator(t)
	mock.ExpectBegin()
	expectHeldRoom(mock, "2101", 0)
	expectStudent(mock, "2101", 7)
	expectLockRoom(mock, 3, 2)
	expectCount(mock, 3, 0)
	mock.ExpectExec(q("INSERT INTO room_allocations")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	if _, err := a.Allocate(context.Background(), "2101", 3); !errors.Is(err, apperr.ErrAlreadyAllocated) {
		t.Fatalf("expected already allocated, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAllocateLabelFailureRollsBack(t *testing.T) {
	a, mock, rec := newTestAllocator(t)
	mock.ExpectBegin()
	expectHeldRoom(mock, "2101", 0)
	expectStudent(mock, "2101", 7)
	expectLockRoom(mock, 3, 2)
	expectCount(mock, 3, 0)
	mock.ExpectExec(q("INSERT INTO room_allocations")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q("UPDATE hostel_applications SET hostel_name = ?")).WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	_, err := a.Allocate(context.Background(), "2101", 3)
	if !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if apperr.PublicMessage(err) != "Server error" {
		t.Fatalf("detail must not leak: %q", apperr.PublicMessage(err))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
	if len(rec.sent) != 0 {
		t.Fatalf("no notification expected after rollback")
	}
}

func TestAllocateValidatesInput(t *testing.T) {
	a, mock, _ := newTestAllocator(t)
	if _, err := a.Allocate(context.Background(), "  ", 3); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := a.Allocate(context.Background(), "2101", 0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no SQL expected: %v", err)
	}
}

// Room with capacity 2: A and B fit, C is refused, after A vacates C fits.
func TestCapacityTwoScenario(t *testing.T) {
	a, mock, _ := newTestAllocator(t)
	ctx := context.Background()

	expectAllocate(mock, "A", 1, 5, 2, 0)
	expectAllocate(mock, "B", 2, 5, 2, 1)
	mock.ExpectBegin()
	expectHeldRoom(mock, "C", 0)
	expectStudent(mock, "C", 3)
	expectLockRoom(mock, 5, 2)
	expectCount(mock, 5, 2)
	mock.ExpectRollback()
	expectVacate(mock, "A", 1, 5)
	expectAllocate(mock, "C", 3, 5, 2, 1)

	if _, err := a.Allocate(ctx, "A", 5); err != nil {
		t.Fatalf("allocate A: %v", err)
	}
	if _, err := a.Allocate(ctx, "B", 5); err != nil {
		t.Fatalf("allocate B: %v", err)
	}
	_, err := a.Allocate(ctx, "C", 5)
	if !errors.Is(err, apperr.ErrRoomFull) || apperr.PublicMessage(err) != "Room full" {
		t.Fatalf("expected room full, got %v", err)
	}
	vacated, err := a.Vacate(ctx, "A", 5)
	if err != nil || !vacated {
		t.Fatalf("vacate A: vacated=%v err=%v", vacated, err)
	}
	if _, err := a.Allocate(ctx, "C", 5); err != nil {
		t.Fatalf("allocate C after vacate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestVacateWithoutMatchIsNoop(t *testing.T) {
	a, mock, rec := newTestAllocator(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM room_allocations WHERE roll_no = ? AND room_id = ?")).
		WithArgs("2101", 8).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	vacated, err := a.Vacate(context.Background(), "2101", 8)
	if err != nil {
		t.Fatalf("Vacate: %v", err)
	}
	if vacated {
		t.Fatalf("expected vacated=false")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("labels must not be touched: %v", err)
	}
	if len(rec.sent) != 0 {
		t.Fatalf("no notification expected")
	}
}

func TestListRoomsAttachesOccupants(t *testing.T) {
	a, mock, _ := newTestAllocator(t)
	mock.ExpectQuery(q("FROM rooms WHERE 1=1 AND hostel_name = ? ORDER BY hostel_name, floor, room_no")).
		WithArgs("Boys Hostel").
		WillReturnRows(sqlmock.NewRows(roomCols).
			AddRow(1, "Boys Hostel", "A-11", "1", "AC", 2, fixedNow).
			AddRow(2, "Boys Hostel", "A-12", "1", nil, 3, fixedNow))
	mock.ExpectQuery(q("SELECT room_id, roll_no FROM room_allocations WHERE room_id IN (?, ?)")).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"room_id", "roll_no"}).
			AddRow(1, "2101").AddRow(1, "2102"))

	rooms, err := a.ListRooms(context.Background(), RoomFilter{HostelName: "Boys Hostel", Floor: "all"})
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
	if rooms[0].CurrentOccupants != 2 || rooms[0].Remaining != 0 || rooms[0].OccupantRolls[1] != "2102" {
		t.Fatalf("unexpected first room %+v", rooms[0])
	}
	if rooms[1].CurrentOccupants != 0 || rooms[1].Remaining != 3 || rooms[1].OccupantRolls == nil {
		t.Fatalf("unexpected second room %+v", rooms[1])
	}
	if rooms[1].Category != "" {
		t.Fatalf("null category should be empty, got %q", rooms[1].Category)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListRoomsByRollIgnoresOtherFilters(t *testing.T) {
	a, mock, _ := newTestAllocator(t)
	mock.ExpectQuery(q("WHERE id IN (SELECT room_id FROM room_allocations WHERE roll_no = ?)")).
		WithArgs("2101").
		WillReturnRows(sqlmock.NewRows(roomCols).AddRow(1, "Boys Hostel", "A-11", "1", "AC", 2, fixedNow))
	mock.ExpectQuery(q("FROM room_allocations WHERE room_id IN (?)")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"room_id", "roll_no"}).AddRow(1, "2101"))

	rooms, err := a.ListRooms(context.Background(), RoomFilter{HostelName: "Girls Hostel", Floor: "3", RollNo: "2101"})
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].OccupantRolls[0] != "2101" {
		t.Fatalf("unexpected rooms %+v", rooms)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAddRoomValidation(t *testing.T) {
	a, mock, _ := newTestAllocator(t)
	cases := []NewRoom{
		{RoomNo: "1", Floor: "G", Capacity: 2},
		{HostelName: "H", Floor: "G", Capacity: 2},
		{HostelName: "H", RoomNo: "1", Capacity: 2},
		{HostelName: "H", RoomNo: "1", Floor: "G"},
		{HostelName: "  ", RoomNo: "1", Floor: "G", Capacity: 2},
	}
	for i, in := range cases {
		if _, err := a.AddRoom(context.Background(), in); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no SQL expected: %v", err)
	}
}

func TestAddRoomStoresRoom(t *testing.T) {
	a, mock, _ := newTestAllocator(t)
	mock.ExpectExec(q("INSERT INTO rooms (hostel_name, room_no, floor, category, capacity)")).
		WithArgs("Boys Hostel", "A-12", "1", "AC", 3).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectQuery(q("FROM rooms WHERE id = ?")).WithArgs(12).
		WillReturnRows(sqlmock.NewRows(roomCols).AddRow(12, "Boys Hostel", "A-12", "1", "AC", 3, fixedNow))

	rm, err := a.AddRoom(context.Background(), NewRoom{HostelName: "Boys Hostel", RoomNo: "A-12", Floor: "1", Category: "AC", Capacity: 3})
	if err != nil {
		t.Fatalf("AddRoom: %v", err)
	}
	if rm.ID != 12 || rm.Capacity != 3 {
		t.Fatalf("unexpected room %+v", rm)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAddRoomDuplicate(t *testing.T) {
	a, mock, _ := newTestAllocator(t)
	mock.ExpectExec(q("INSERT INTO rooms")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	_, err := a.AddRoom(context.Background(), NewRoom{HostelName: "H", RoomNo: "1", Floor: "G", Capacity: 1})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateCapacityReportsOverCapacity(t *testing.T) {
	a, mock, _ := newTestAllocator(t)
	mock.ExpectBegin()
	expectLockRoom(mock, 3, 3)
	mock.ExpectExec(q("UPDATE rooms SET capacity = ? WHERE id = ?")).WithArgs(1, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT roll_no FROM room_allocations WHERE room_id = ?")).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"roll_no"}).AddRow("2101").AddRow("2102"))
	mock.ExpectCommit()

	res, err := a.UpdateCapacity(context.Background(), 3, 1)
	if err != nil {
		t.Fatalf("UpdateCapacity: %v", err)
	}
	if !res.OverCapacity || res.Room.Capacity != 1 || res.Room.Remaining != -1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateCapacityMissingRoom(t *testing.T) {
	a, mock, _ := newTestAllocator(t)
	mock.ExpectBegin()
	expectLockRoom(mock, 77, -1)
	mock.ExpectRollback()
	if _, err := a.UpdateCapacity(context.Background(), 77, 4); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteRoomEvictsAndClearsLabels(t *testing.T) {
	a, mock, rec := newTestAllocator(t)
	mock.ExpectBegin()
	expectLockRoom(mock, 3, 2)
	mock.ExpectQuery(q("SELECT roll_no FROM room_allocations WHERE room_id = ?")).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"roll_no"}).AddRow("2101").AddRow("2102"))
	mock.ExpectExec(q("DELETE FROM room_allocations WHERE room_id = ?")).WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("UPDATE hostel_applications SET hostel_name = NULL, room_no = NULL WHERE roll_no IN (?, ?)")).
		WithArgs("2101", "2102").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("UPDATE users SET hostel_name = NULL, room_no = NULL WHERE roll_no IN (?, ?)")).
		WithArgs("2101", "2102").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("DELETE FROM rooms WHERE id = ?")).WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	evicted, err := a.DeleteRoom(context.Background(), 3)
	if err != nil {
		t.Fatalf("DeleteRoom: %v", err)
	}
	if len(evicted) != 2 {
		t.Fatalf("expected 2 evicted, got %v", evicted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
	if len(rec.sent) != 1 || rec.sent[0].RecipientType != model.RecipientAdmin {
		t.Fatalf("expected admin notification, got %+v", rec.sent)
	}
}

func TestRoomOfUnallocated(t *testing.T) {
	a, mock, _ := newTestAllocator(t)
	mock.ExpectQuery(q("FROM room_allocations a JOIN rooms rm ON rm.id = a.room_id")).
		WithArgs("2101").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	rm, err := a.RoomOf(context.Background(), "2101")
	if err != nil || rm != nil {
		t.Fatalf("expected nil room, got %+v err=%v", rm, err)
	}
}
