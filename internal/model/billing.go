package model

import "github.com/shopspring/decimal"

// BillingRecord is one month of a student's hostel account in the
// `student_billing` table.  (RollNo, AcademicYear, Month) is unique and
// Month is always one of the canonical tokens Jan..Dec.
type BillingRecord struct {
    ID           uint64          `json:"id"`
    RollNo       string          `json:"roll_no"`
    AcademicYear string          `json:"academic_year"`
    Month        string          `json:"month"`
    MonthlyFee   decimal.Decimal `json:"monthly_fee"`
    PaidAmount   decimal.Decimal `json:"paid_amount"`
    Scholarship  decimal.Decimal `json:"scholarship"`
    // denormalized labels copied from the profile / allocation at write time
    StudentName string `json:"student_name,omitempty"`
    RoomNo      string `json:"room_no,omitempty"`
    HostelName  string `json:"hostel_name,omitempty"`
}
