package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hostel-management/internal/model"
)

// ComplaintRepo stores student complaints.  Rows are removed with their
// student (ON DELETE CASCADE).
type ComplaintRepo struct {
	db *sql.DB
}

func NewComplaintRepo(db *sql.DB) *ComplaintRepo { return &ComplaintRepo{db: db} }

const complaintColumns = `c.complaint_id, c.student_id, IFNULL(u.roll_no,''), u.full_name,
	c.complaint_type, c.description, c.status, c.created_at, c.updated_at`

const complaintFrom = ` FROM complaints c JOIN users u ON u.id = c.student_id`

func scanComplaint(s rowScanner) (model.Complaint, error) {
	var c model.Complaint
	err := s.Scan(&c.ID, &c.StudentID, &c.RollNo, &c.StudentName,
		&c.ComplaintType, &c.Description, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create files a Pending complaint for studentID.
func (r *ComplaintRepo) Create(ctx context.Context, studentID uint64, complaintType, description string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO complaints (student_id, complaint_type, description) VALUES (?, ?, ?)`,
		studentID, complaintType, description)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// ByStudent lists one student's complaints, newest first.
func (r *ComplaintRepo) ByStudent(ctx context.Context, studentID uint64) ([]model.Complaint, error) {
	return r.list(ctx, `SELECT `+complaintColumns+complaintFrom+
		` WHERE c.student_id = ? ORDER BY c.created_at DESC, c.complaint_id DESC`, studentID)
}

// List returns every complaint, newest first.  A non-empty status filters.
func (r *ComplaintRepo) List(ctx context.Context, status string) ([]model.Complaint, error) {
	if status == "" {
		return r.list(ctx, `SELECT `+complaintColumns+complaintFrom+` ORDER BY c.created_at DESC, c.complaint_id DESC`)
	}
	return r.list(ctx, `SELECT `+complaintColumns+complaintFrom+
		` WHERE c.status = ? ORDER BY c.created_at DESC, c.complaint_id DESC`, status)
}

// Get returns one complaint or sql.ErrNoRows.
func (r *ComplaintRepo) Get(ctx context.Context, id uint64) (model.Complaint, error) {
	return scanComplaint(r.db.QueryRowContext(ctx,
		`SELECT `+complaintColumns+complaintFrom+` WHERE c.complaint_id = ?`, id))
}

// UpdateStatus sets a complaint's status.  It returns sql.ErrNoRows when
// id does not exist.
func (r *ComplaintRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE complaints SET status = ? WHERE complaint_id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// 0 also means "same status"; tell the two apart.
		var one int
		return r.db.QueryRowContext(ctx, `SELECT 1 FROM complaints WHERE complaint_id = ?`, id).Scan(&one)
	}
	return nil
}

// Delete removes a complaint or returns sql.ErrNoRows.
func (r *ComplaintRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM complaints WHERE complaint_id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *ComplaintRepo) list(ctx context.Context, q string, args ...any) ([]model.Complaint, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Complaint, 0)
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
