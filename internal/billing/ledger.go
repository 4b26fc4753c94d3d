// Package billing keeps the per-student, per-month hostel fee ledger and
// derives due / remaining balances from it.  Saves replace the whole set of
// rows for an academic year inside one transaction; there is no partial
// update of a year.
package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/hostel-management/internal/apperr"
	"github.com/iliyamo/hostel-management/internal/database"
	"github.com/iliyamo/hostel-management/internal/model"
	"github.com/iliyamo/hostel-management/internal/repository"
	"github.com/iliyamo/hostel-management/internal/service"
)

// RoomLocator resolves the room a student currently occupies.  It is used
// only to fill the denormalized labels of single-row inserts.
type RoomLocator interface {
	RoomOf(ctx context.Context, rollNo string) (*model.Room, error)
}

// Ledger implements the billing operations.
type Ledger struct {
	db       *sql.DB
	bills    *repository.BillingRepo
	students *repository.StudentRepo
	rooms    RoomLocator
	notifier service.Notifier
}

// New builds a Ledger on db.  rooms may be nil, in which case labels come
// from the profile only.
func New(db *sql.DB, rooms RoomLocator, notifier service.Notifier) *Ledger {
	if notifier == nil {
		notifier = service.Nop{}
	}
	return &Ledger{
		db:       db,
		bills:    repository.NewBillingRepo(db),
		students: repository.NewStudentRepo(db),
		rooms:    rooms,
		notifier: notifier,
	}
}

// RowInput is one month of a save request.  Amounts default to zero.
type RowInput struct {
	Month       string          `json:"month"`
	MonthlyFee  decimal.Decimal `json:"monthly_fee"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	Scholarship decimal.Decimal `json:"scholarship"`
}

// YearInput is the full row set of one academic year.
type YearInput struct {
	AcademicYear string     `json:"academic_year"`
	Rows         []RowInput `json:"rows"`
}

// SaveResult reports how many rows were written and how many were dropped
// because their month did not normalize.
type SaveResult struct {
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
}

// NewRecord is the input of AddRecord.
type NewRecord struct {
	RollNo       string          `json:"roll_no" validate:"required"`
	AcademicYear string          `json:"academic_year" validate:"required"`
	Month        string          `json:"month" validate:"required"`
	MonthlyFee   decimal.Decimal `json:"monthly_fee"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	Scholarship  decimal.Decimal `json:"scholarship"`
}

// Line is one rendered row of a billing sheet.  Amounts carry two
// decimals.  The synthetic per-year total has Month "Total" and ID "#".
type Line struct {
	ID          string `json:"id"`
	Month       string `json:"month"`
	Fee         string `json:"fee"`
	Paid        string `json:"paid"`
	Scholarship string `json:"scholarship"`
	Remaining   string `json:"remaining"`
	Due         string `json:"due"`
}

// YearSheet groups the lines of one academic year.
type YearSheet struct {
	Year    string `json:"year"`
	Records []Line `json:"records"`
}

// SummaryRow is one student in the admin summary.  Zero amounts are
// rendered as Placeholder.
type SummaryRow struct {
	RollNo           string `json:"roll_no"`
	Name             string `json:"name"`
	AcademicYear     string `json:"academic_year"`
	TotalFee         string `json:"total_fee"`
	TotalPaid        string `json:"total_paid"`
	TotalScholarship string `json:"total_scholarship"`
	Due              string `json:"due"`
	Remaining        string `json:"remaining"`
}

// ManageView is the admin billing page of one student.
type ManageView struct {
	Student       model.StudentProfile `json:"student"`
	BillingByYear []YearSheet          `json:"billing_by_year"`
}

// GetStudentBilling returns a student's ledger grouped by academic year,
// years ascending and months in calendar order, each year closed by a
// Total line.  A student without rows gets an empty list.
func (l *Ledger) GetStudentBilling(ctx context.Context, rollNo string) ([]YearSheet, error) {
	rollNo = strings.TrimSpace(rollNo)
	if rollNo == "" {
		return nil, apperr.Validation("roll_no", "roll_no is required")
	}
	rows, err := l.bills.ListByRoll(ctx, rollNo)
	if err != nil {
		return nil, apperr.Persistence("get student billing", err)
	}
	seq := 0
	return sheets(rows, true, func(model.BillingRecord) string {
		seq++
		return strconv.Itoa(seq)
	}), nil
}

// sheets groups rows, which must already be ordered by year then month.
func sheets(rows []model.BillingRecord, withTotal bool, id func(model.BillingRecord) string) []YearSheet {
	out := make([]YearSheet, 0)
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i < len(rows) && rows[i].AcademicYear == rows[start].AcademicYear {
			continue
		}
		year := rows[start:i]
		sheet := YearSheet{Year: year[0].AcademicYear, Records: make([]Line, 0, len(year)+1)}
		for _, r := range year {
			b := Compute(r.MonthlyFee, r.PaidAmount, r.Scholarship)
			sheet.Records = append(sheet.Records, Line{
				ID:          id(r),
				Month:       r.Month,
				Fee:         FormatAmount(r.MonthlyFee),
				Paid:        FormatAmount(r.PaidAmount),
				Scholarship: FormatAmount(r.Scholarship),
				Remaining:   FormatAmount(b.Remaining),
				Due:         FormatAmount(b.Due),
			})
		}
		if withTotal {
			t := Aggregate(year)
			sheet.Records = append(sheet.Records, Line{
				ID:          "#",
				Month:       "Total",
				Fee:         FormatAmount(t.Fee),
				Paid:        FormatAmount(t.Paid),
				Scholarship: FormatAmount(t.Scholarship),
				Remaining:   FormatAmount(t.Remaining),
				Due:         FormatAmount(t.Due),
			})
		}
		out = append(out, sheet)
		start = i
	}
	return out
}

// GetBillingSummary returns one row per student built from that student's
// most recent academic year only.
func (l *Ledger) GetBillingSummary(ctx context.Context) ([]SummaryRow, error) {
	totals, err := l.bills.LatestYearTotals(ctx)
	if err != nil {
		return nil, apperr.Persistence("billing summary", err)
	}
	out := make([]SummaryRow, 0, len(totals))
	for _, t := range totals {
		b := Compute(t.TotalFee, t.TotalPaid, t.TotalScholarship)
		out = append(out, SummaryRow{
			RollNo:           t.RollNo,
			Name:             t.Name,
			AcademicYear:     t.AcademicYear,
			TotalFee:         formatOrPlaceholder(t.TotalFee),
			TotalPaid:        formatOrPlaceholder(t.TotalPaid),
			TotalScholarship: formatOrPlaceholder(t.TotalScholarship),
			Due:              formatOrPlaceholder(b.Due),
			Remaining:        formatOrPlaceholder(b.Remaining),
		})
	}
	return out, nil
}

// SaveYear replaces every row of (rollNo, academicYear) with rows.  Rows
// whose month does not normalize are skipped and counted; the call still
// succeeds.
func (l *Ledger) SaveYear(ctx context.Context, rollNo, academicYear string, rows []RowInput) (SaveResult, error) {
	return l.SaveAllYears(ctx, rollNo, []YearInput{{AcademicYear: academicYear, Rows: rows}})
}

// SaveAllYears applies SaveYear to every year inside a single transaction.
// A failure in any year rolls back all of them.
func (l *Ledger) SaveAllYears(ctx context.Context, rollNo string, years []YearInput) (SaveResult, error) {
	var res SaveResult
	rollNo = strings.TrimSpace(rollNo)
	if rollNo == "" {
		return res, apperr.Validation("roll_no", "roll_no is required")
	}
	if len(years) == 0 {
		return res, apperr.Validation("years", "years is required")
	}
	type yearSet struct {
		year    string
		records []model.BillingRecord
	}
	sets := make([]yearSet, 0, len(years))
	for _, y := range years {
		year := strings.TrimSpace(y.AcademicYear)
		if year == "" {
			return SaveResult{}, apperr.Validation("academic_year", "academic_year is required")
		}
		records, skipped, err := prepareRows(rollNo, year, y.Rows)
		if err != nil {
			return SaveResult{}, err
		}
		res.Saved += len(records)
		res.Skipped += skipped
		sets = append(sets, yearSet{year: year, records: records})
	}

	var (
		userID  uint64
		student bool
	)
	err := database.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		for _, s := range sets {
			if err := l.bills.ReplaceYearTx(ctx, tx, rollNo, s.year, s.records); err != nil {
				return err
			}
		}
		var err error
		userID, student, err = l.students.UserIDTx(ctx, tx, rollNo)
		return err
	})
	if err != nil {
		return SaveResult{}, apperr.Persistence("save billing", err)
	}
	if student {
		service.Dispatch(ctx, l.notifier, model.Notification{
			UserID:        &userID,
			RecipientType: model.RecipientStudent,
			AlertType:     "Billing",
			Title:         "Billing updated",
			Message:       fmt.Sprintf("Your hostel billing was updated (%d month(s)).", res.Saved),
		})
	}
	return res, nil
}

// prepareRows normalizes months and validates amounts.  A negative amount
// or a month given twice rejects the call; an unknown month only skips its
// row.
func prepareRows(rollNo, year string, rows []RowInput) ([]model.BillingRecord, int, error) {
	out := make([]model.BillingRecord, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	skipped := 0
	for _, r := range rows {
		month, ok := NormalizeMonth(r.Month)
		if !ok {
			skipped++
			continue
		}
		if err := checkAmounts(r.MonthlyFee, r.PaidAmount, r.Scholarship); err != nil {
			return nil, 0, err
		}
		if seen[month] {
			return nil, 0, apperr.Validation("month", fmt.Sprintf("%s appears twice in %s", month, year))
		}
		seen[month] = true
		out = append(out, model.BillingRecord{
			RollNo:       rollNo,
			AcademicYear: year,
			Month:        month,
			MonthlyFee:   r.MonthlyFee,
			PaidAmount:   r.PaidAmount,
			Scholarship:  r.Scholarship,
		})
	}
	return out, skipped, nil
}

func checkAmounts(fee, paid, scholarship decimal.Decimal) error {
	switch {
	case fee.IsNegative():
		return apperr.Validation("monthly_fee", "monthly_fee must not be negative")
	case paid.IsNegative():
		return apperr.Validation("paid_amount", "paid_amount must not be negative")
	case scholarship.IsNegative():
		return apperr.Validation("scholarship", "scholarship must not be negative")
	}
	return nil
}

// AddRecord inserts a single month for a student.  Unlike the bulk saves
// an unknown month rejects the call.  The student's name and current room
// are copied into the row.
func (l *Ledger) AddRecord(ctx context.Context, in NewRecord) (*model.BillingRecord, error) {
	in.RollNo = strings.TrimSpace(in.RollNo)
	in.AcademicYear = strings.TrimSpace(in.AcademicYear)
	if err := apperr.Struct(in); err != nil {
		return nil, err
	}
	month, ok := NormalizeMonth(in.Month)
	if !ok {
		return nil, apperr.Validation("month", "Invalid month")
	}
	if err := checkAmounts(in.MonthlyFee, in.PaidAmount, in.Scholarship); err != nil {
		return nil, err
	}
	name, hostel, roomNo, err := l.students.Labels(ctx, in.RollNo)
	if errors.Is(err, repository.ErrStudentNotFound) {
		return nil, apperr.NotFound("student")
	}
	if err != nil {
		return nil, apperr.Persistence("add billing record", err)
	}
	if (hostel == "" || roomNo == "") && l.rooms != nil {
		rm, err := l.rooms.RoomOf(ctx, in.RollNo)
		if err != nil {
			return nil, err
		}
		if rm != nil {
			hostel, roomNo = rm.HostelName, rm.RoomNo
		}
	}
	rec := &model.BillingRecord{
		RollNo:       in.RollNo,
		AcademicYear: in.AcademicYear,
		Month:        month,
		MonthlyFee:   in.MonthlyFee,
		PaidAmount:   in.PaidAmount,
		Scholarship:  in.Scholarship,
		StudentName:  name,
		RoomNo:       roomNo,
		HostelName:   hostel,
	}
	if err := l.bills.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict(fmt.Sprintf("billing for %s %s already exists", month, in.AcademicYear))
		}
		return nil, apperr.Persistence("add billing record", err)
	}
	return rec, nil
}

// GetManageView returns the student header and the ledger grouped by year
// without total lines.  Line IDs are the stored record ids.
func (l *Ledger) GetManageView(ctx context.Context, rollNo string) (*ManageView, error) {
	rollNo = strings.TrimSpace(rollNo)
	if rollNo == "" {
		return nil, apperr.Validation("roll_no", "roll_no is required")
	}
	p, err := l.students.Profile(ctx, rollNo)
	if errors.Is(err, repository.ErrStudentNotFound) {
		return nil, apperr.NotFound("student")
	}
	if err != nil {
		return nil, apperr.Persistence("billing manage", err)
	}
	rows, err := l.bills.ListByRoll(ctx, rollNo)
	if err != nil {
		return nil, apperr.Persistence("billing manage", err)
	}
	return &ManageView{
		Student: *p,
		BillingByYear: sheets(rows, false, func(r model.BillingRecord) string {
			return strconv.FormatUint(r.ID, 10)
		}),
	}, nil
}
