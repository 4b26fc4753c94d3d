package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/hostel-management/internal/model"
)

// StudentRepo reads student data and maintains the hostel/room labels that
// are cached on the application (hostel_applications) and profile (users)
// records.  The labels are copies of the room a student is allocated to;
// they are written in the same transaction as the allocation change.
type StudentRepo struct {
	db *sql.DB
}

func NewStudentRepo(db *sql.DB) *StudentRepo { return &StudentRepo{db: db} }

// UserIDTx returns the user id of the STUDENT with rollNo.  ok is false
// when no such student exists.
func (r *StudentRepo) UserIDTx(ctx context.Context, tx *sql.Tx, rollNo string) (id uint64, ok bool, err error) {
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE roll_no = ? AND role = 'STUDENT' LIMIT 1`, rollNo,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// SetRoomLabelsTx copies the room's hostel name and number onto the
// student's application and profile rows.
func (r *StudentRepo) SetRoomLabelsTx(ctx context.Context, tx *sql.Tx, rollNo, hostelName, roomNo string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE hostel_applications SET hostel_name = ?, room_no = ? WHERE roll_no = ?`,
		hostelName, roomNo, rollNo,
	); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET hostel_name = ?, room_no = ? WHERE roll_no = ?`,
		hostelName, roomNo, rollNo,
	)
	return err
}

// ClearRoomLabelsTx resets the cached labels of the given students to NULL.
// Passing no roll numbers has no effect.
func (r *StudentRepo) ClearRoomLabelsTx(ctx context.Context, tx *sql.Tx, rollNos ...string) error {
	if len(rollNos) == 0 {
		return nil
	}
	args := make([]any, 0, len(rollNos))
	for _, roll := range rollNos {
		args = append(args, roll)
	}
	in := placeholders(len(rollNos))
	if _, err := tx.ExecContext(ctx,
		`UPDATE hostel_applications SET hostel_name = NULL, room_no = NULL WHERE roll_no IN (`+in+`)`, args...,
	); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET hostel_name = NULL, room_no = NULL WHERE roll_no IN (`+in+`)`, args...,
	)
	return err
}

// Profile returns the billing header for a student: name from the user
// row, course details and labels from the latest application.  Returns
// ErrStudentNotFound when no user has the roll number.
func (r *StudentRepo) Profile(ctx context.Context, rollNo string) (*model.StudentProfile, error) {
	const q = `SELECT u.roll_no, u.full_name,
	                  IFNULL(sa.room_no, '-'), IFNULL(sa.hostel_name, '-'),
	                  IFNULL(sa.course, ''), IFNULL(sa.branch, ''), IFNULL(sa.year, '')
	           FROM users u
	           LEFT JOIN hostel_applications sa ON sa.roll_no = u.roll_no
	           WHERE u.roll_no = ?
	           ORDER BY sa.application_date DESC
	           LIMIT 1`
	var p model.StudentProfile
	err := r.db.QueryRowContext(ctx, q, rollNo).Scan(&p.RollNo, &p.Name, &p.RoomNo, &p.HostelName, &p.Course, &p.Branch, &p.Year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Labels returns the name and cached hostel/room labels of a student from
// the profile row.  Unallocated students have empty labels.
func (r *StudentRepo) Labels(ctx context.Context, rollNo string) (name, hostelName, roomNo string, err error) {
	var hostel, room sql.NullString
	err = r.db.QueryRowContext(ctx,
		`SELECT full_name, hostel_name, room_no FROM users WHERE roll_no = ? LIMIT 1`, rollNo,
	).Scan(&name, &hostel, &room)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", "", ErrStudentNotFound
	}
	if err != nil {
		return "", "", "", err
	}
	return name, hostel.String, room.String, nil
}
