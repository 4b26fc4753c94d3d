package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	err := Validation("capacity", "capacity is required")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation kind, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("validation error must not match not-found")
	}
	wrapped := fmt.Errorf("add room: %w", err)
	var ae *Error
	if !errors.As(wrapped, &ae) || ae.Field != "capacity" {
		t.Fatalf("expected field capacity, got %+v", ae)
	}
}

func TestPersistenceHidesDetail(t *testing.T) {
	err := Persistence("allocate", sql.ErrConnDone)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected persistence kind")
	}
	if !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("expected cause to stay reachable for logs")
	}
	if got := PublicMessage(err); got != "Server error" {
		t.Fatalf("expected generic message got %q", got)
	}
}

func TestPersistenceKeepsBusinessErrors(t *testing.T) {
	if err := Persistence("allocate", ErrRoomFull); err != ErrRoomFull {
		t.Fatalf("expected ErrRoomFull to pass through, got %v", err)
	}
	nf := NotFound("room")
	if err := Persistence("allocate", nf); err != nf {
		t.Fatalf("expected typed error to pass through, got %v", err)
	}
	if Persistence("noop", nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestPublicMessage(t *testing.T) {
	cases := map[error]string{
		NotFound("room"):                  "room not found",
		ErrAlreadyAllocated:               "Student already allocated. Vacate first.",
		ErrRoomFull:                       "Room full",
		Conflict("billing month exists"):  "billing month exists",
		errors.New("driver: bad conn"):    "Server error",
		Validation("month", "bad month"):  "bad month",
	}
	for err, want := range cases {
		if got := PublicMessage(err); got != want {
			t.Fatalf("PublicMessage(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestStructReportsJSONFieldName(t *testing.T) {
	type req struct {
		RollNo   string `json:"roll_no" validate:"required,numeric"`
		Capacity int    `json:"capacity" validate:"min=1"`
	}
	err := Struct(req{Capacity: 2})
	var ae *Error
	if !errors.As(err, &ae) || ae.Field != "roll_no" || ae.Message != "roll_no is required" {
		t.Fatalf("unexpected error %#v", err)
	}
	err = Struct(req{RollNo: "12", Capacity: 0})
	if !errors.As(err, &ae) || ae.Field != "capacity" || !errors.Is(err, ErrValidation) {
		t.Fatalf("unexpected error %#v", err)
	}
	if err := Struct(req{RollNo: "12", Capacity: 1}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
