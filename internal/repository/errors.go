// Package repository holds the MySQL data access code.  Repositories take a
// *sql.DB for standalone reads and expose ...Tx variants that run inside a
// caller-owned *sql.Tx so services can compose several writes into one
// atomic unit.  Every query uses ? placeholders; no caller value is ever
// concatenated into query text.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrRoomNotFound is returned when a room lookup fails.
var ErrRoomNotFound = errors.New("room not found")

// ErrStudentNotFound is returned when no STUDENT user has the roll number.
var ErrStudentNotFound = errors.New("student not found")

// ErrDuplicate is returned when an insert violates a unique key, e.g. a
// second allocation for the same roll number or a second billing row for
// the same month.
var ErrDuplicate = errors.New("duplicate key")

// ErrUserExists is returned when registering a roll number or email that
// is already taken.
var ErrUserExists = errors.New("user already exists")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// placeholders returns "?, ?, ?" with n markers for IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}
