package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/iliyamo/hostel-management/internal/model"
)

// ApplicationRepo stores hostel applications.  Status transitions run
// inside a caller-owned transaction so an approval and the matching
// profile update commit together.
type ApplicationRepo struct {
	db *sql.DB
}

func NewApplicationRepo(db *sql.DB) *ApplicationRepo { return &ApplicationRepo{db: db} }

// NewApplication is a submitted application form.  RollNo comes from the
// caller's token, never from the form.
type NewApplication struct {
	RollNo          string
	FullName        string
	Email           string
	Contact         string
	Course          string
	Branch          string
	Year            string
	Gender          string
	FoodPreference  string
	ApplicationType string
	DistanceKm      *int
}

const applicationColumns = `application_id, ref_number, roll_no, full_name, IFNULL(email,''), IFNULL(contact,''),
	IFNULL(course,''), IFNULL(branch,''), IFNULL(year,''), IFNULL(gender,''), IFNULL(food_preference,''),
	IFNULL(application_type,''), distance_km, IFNULL(hostel_name,''), IFNULL(room_no,''),
	approval_status, IFNULL(rejection_reason,''), application_date`

func scanApplication(s rowScanner) (model.Application, error) {
	var (
		a    model.Application
		dist sql.NullInt64
	)
	err := s.Scan(&a.ID, &a.RefNumber, &a.RollNo, &a.FullName, &a.Email, &a.Contact,
		&a.Course, &a.Branch, &a.Year, &a.Gender, &a.FoodPreference,
		&a.ApplicationType, &dist, &a.HostelName, &a.RoomNo,
		&a.Status, &a.RejectionReason, &a.AppliedAt)
	if dist.Valid {
		d := int(dist.Int64)
		a.DistanceKm = &d
	}
	return a, err
}

// refNumber returns "REF" followed by six digits.
func refNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("REF%d", n.Int64()+100000), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Create inserts a Pending application and returns its id and reference
// number.
func (r *ApplicationRepo) Create(ctx context.Context, a NewApplication) (uint64, string, error) {
	ref, err := refNumber()
	if err != nil {
		return 0, "", err
	}
	var dist any
	if a.DistanceKm != nil {
		dist = *a.DistanceKm
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO hostel_applications
		   (ref_number, roll_no, full_name, email, contact, course, branch, year,
		    gender, food_preference, application_type, distance_km)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		ref, a.RollNo, a.FullName, nullable(a.Email), nullable(a.Contact),
		nullable(a.Course), nullable(a.Branch), nullable(a.Year),
		nullable(a.Gender), nullable(a.FoodPreference), nullable(a.ApplicationType), dist)
	if err != nil {
		return 0, "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, "", err
	}
	return uint64(id), ref, nil
}

// HasOpen reports whether rollNo already has a Pending or Approved
// application.
func (r *ApplicationRepo) HasOpen(ctx context.Context, rollNo string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM hostel_applications WHERE roll_no = ? AND approval_status IN ('Pending','Approved') LIMIT 1`,
		rollNo).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// ByRoll lists a student's applications, newest first.
func (r *ApplicationRepo) ByRoll(ctx context.Context, rollNo string) ([]model.Application, error) {
	return r.list(ctx,
		`SELECT `+applicationColumns+` FROM hostel_applications WHERE roll_no = ?
		 ORDER BY application_date DESC, application_id DESC`, rollNo)
}

// List returns all applications, newest first.  A non-empty status keeps
// only applications in that state.
func (r *ApplicationRepo) List(ctx context.Context, status string) ([]model.Application, error) {
	if status == "" {
		return r.list(ctx, `SELECT `+applicationColumns+` FROM hostel_applications ORDER BY application_id DESC`)
	}
	return r.list(ctx,
		`SELECT `+applicationColumns+` FROM hostel_applications WHERE approval_status = ? ORDER BY application_id DESC`,
		status)
}

// Get returns one application or sql.ErrNoRows.
func (r *ApplicationRepo) Get(ctx context.Context, id uint64) (model.Application, error) {
	return scanApplication(r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM hostel_applications WHERE application_id = ?`, id))
}

// GetForUpdateTx locks and returns one application or sql.ErrNoRows.
func (r *ApplicationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Application, error) {
	return scanApplication(tx.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM hostel_applications WHERE application_id = ? FOR UPDATE`, id))
}

// SetStatusTx records a decision.  reason is stored only for rejections.
func (r *ApplicationRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status, reason string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE hostel_applications SET approval_status = ?, rejection_reason = ? WHERE application_id = ?`,
		status, nullable(reason), id)
	return err
}

func (r *ApplicationRepo) list(ctx context.Context, q string, args ...any) ([]model.Application, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
