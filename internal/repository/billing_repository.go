package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/hostel-management/internal/model"
)

// BillingRepo provides access to the student_billing table.  A student's
// rows for an academic year are replaced as a whole: ReplaceYearTx deletes
// the year and re-inserts the new set inside the caller's transaction.
type BillingRepo struct {
    db *sql.DB
}

// NewBillingRepo returns a BillingRepo bound to db.
func NewBillingRepo(db *sql.DB) *BillingRepo { return &BillingRepo{db: db} }

// DB exposes the handle for services that open their own transactions.
func (r *BillingRepo) DB() *sql.DB { return r.db }

// calendar order for ORDER BY; month values are always canonical tokens
const monthOrder = `FIELD(month,'Jan','Feb','Mar','Apr','May','Jun','Jul','Aug','Sep','Oct','Nov','Dec')`

// YearTotals is the aggregate of one student's most recent academic year.
type YearTotals struct {
    RollNo           string
    Name             string
    AcademicYear     string
    TotalFee         decimal.Decimal
    TotalPaid        decimal.Decimal
    TotalScholarship decimal.Decimal
}

// ListByRoll returns every billing row of a student ordered by academic
// year and calendar month.  An empty slice is returned when none exist.
func (r *BillingRepo) ListByRoll(ctx context.Context, rollNo string) ([]model.BillingRecord, error) {
    q := `SELECT bill_id, roll_no, academic_year, month, monthly_fee, paid_amount, scholarship
          FROM student_billing
          WHERE roll_no = ?
          ORDER BY academic_year ASC, ` + monthOrder
    rows, err := r.db.QueryContext(ctx, q, rollNo)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.BillingRecord, 0)
    for rows.Next() {
        var b model.BillingRecord
        if err := rows.Scan(&b.ID, &b.RollNo, &b.AcademicYear, &b.Month, &b.MonthlyFee, &b.PaidAmount, &b.Scholarship); err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// LatestYearTotals sums fee, paid and scholarship per student over that
// student's most recent academic year only.  Rows are ordered by roll
// number.  The name comes from the profile and is empty when the billing
// rows belong to a roll number without a user.
func (r *BillingRepo) LatestYearTotals(ctx context.Context) ([]YearTotals, error) {
    const q = `SELECT b.roll_no,
                      IFNULL(u.full_name, ''),
                      b.academic_year,
                      SUM(b.monthly_fee),
                      SUM(b.paid_amount),
                      SUM(b.scholarship)
               FROM student_billing b
               LEFT JOIN users u ON u.roll_no = b.roll_no
               WHERE b.academic_year = (
                   SELECT MAX(b2.academic_year)
                   FROM student_billing b2
                   WHERE b2.roll_no = b.roll_no
               )
               GROUP BY b.roll_no, u.full_name, b.academic_year
               ORDER BY b.roll_no ASC`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]YearTotals, 0)
    for rows.Next() {
        var t YearTotals
        if err := rows.Scan(&t.RollNo, &t.Name, &t.AcademicYear, &t.TotalFee, &t.TotalPaid, &t.TotalScholarship); err != nil {
            return nil, err
        }
        out = append(out, t)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// ReplaceYearTx deletes all rows of (rollNo, academicYear) and inserts
// records in a single multi-row statement.  Records must already carry
// canonical months.  Passing no records leaves the year empty.
func (r *BillingRepo) ReplaceYearTx(ctx context.Context, tx *sql.Tx, rollNo, academicYear string, records []model.BillingRecord) error {
    if _, err := tx.ExecContext(ctx,
        `DELETE FROM student_billing WHERE roll_no = ? AND academic_year = ?`,
        rollNo, academicYear,
    ); err != nil {
        return err
    }
    if len(records) == 0 {
        return nil
    }
    var sb strings.Builder
    sb.WriteString(`INSERT INTO student_billing (roll_no, academic_year, month, monthly_fee, paid_amount, scholarship) VALUES `)
    args := make([]any, 0, len(records)*6)
    for i, b := range records {
        if i > 0 {
            sb.WriteString(",")
        }
        sb.WriteString("(?, ?, ?, ?, ?, ?)")
        args = append(args, rollNo, academicYear, b.Month, b.MonthlyFee.StringFixed(2), b.PaidAmount.StringFixed(2), b.Scholarship.StringFixed(2))
    }
    if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
        if isDuplicateKey(err) {
            return ErrDuplicate
        }
        return err
    }
    return nil
}

// Create inserts a single billing row including the denormalized labels.
// A second row for the same (roll, year, month) yields ErrDuplicate.
func (r *BillingRepo) Create(ctx context.Context, b *model.BillingRecord) error {
    const q = `INSERT INTO student_billing
               (roll_no, student_name, room_no, hostel_name, academic_year, month, monthly_fee, paid_amount, scholarship)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q,
        b.RollNo, nullIfEmpty(b.StudentName), nullIfEmpty(b.RoomNo), nullIfEmpty(b.HostelName),
        b.AcademicYear, b.Month,
        b.MonthlyFee.StringFixed(2), b.PaidAmount.StringFixed(2), b.Scholarship.StringFixed(2),
    )
    if err != nil {
        if isDuplicateKey(err) {
            return ErrDuplicate
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    return nil
}

func nullIfEmpty(s string) sql.NullString {
    if s == "" {
        return sql.NullString{}
    }
    return sql.NullString{String: s, Valid: true}
}
