package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestWithTxCommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE rooms SET capacity").WithArgs(3, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE rooms SET capacity=? WHERE id=?", 3, 1)
		return err
	})
	if err != nil {
		t.Fatalf("expected nil error got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = WithTx(context.Background(), db, func(tx *sql.Tx) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic to propagate")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	}()
	_ = WithTx(context.Background(), db, func(tx *sql.Tx) error { panic("kaboom") })
}

func TestStatementsCoverEveryTable(t *testing.T) {
	stmts := Statements()
	want := []string{"users", "hostel_applications", "rooms", "room_allocations", "student_billing", "refresh_tokens", "notifications", "announcements", "complaints"}
	if len(stmts) != len(want) {
		t.Fatalf("expected %d statements got %d", len(want), len(stmts))
	}
	for i, table := range want {
		if !strings.Contains(stmts[i], "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Fatalf("statement %d does not create %s: %q", i, table, stmts[i][:40])
		}
		if strings.HasSuffix(stmts[i], ";") {
			t.Fatalf("statement %d still carries a trailing semicolon", i)
		}
	}
}
