package billing

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hostel-management/internal/model"
)

// Balance is the derived position of a billing scope.  At most one of
// Remaining (credit) and Due (outstanding) is non-zero.
type Balance struct {
	Remaining decimal.Decimal
	Due       decimal.Decimal
}

// Compute returns the balance of fee against paid plus scholarship.
func Compute(fee, paid, scholarship decimal.Decimal) Balance {
	diff := paid.Add(scholarship).Sub(fee)
	switch {
	case diff.IsPositive():
		return Balance{Remaining: diff, Due: decimal.Zero}
	case diff.IsNegative():
		return Balance{Remaining: decimal.Zero, Due: diff.Neg()}
	}
	return Balance{Remaining: decimal.Zero, Due: decimal.Zero}
}

// Totals sums a set of records and carries the balance of the sums.
type Totals struct {
	Fee         decimal.Decimal
	Paid        decimal.Decimal
	Scholarship decimal.Decimal
	Balance
}

// Aggregate sums fee, paid and scholarship over records and clamps once on
// the totals; per-record balances are never summed.
func Aggregate(records []model.BillingRecord) Totals {
	t := Totals{Fee: decimal.Zero, Paid: decimal.Zero, Scholarship: decimal.Zero}
	for _, r := range records {
		t.Fee = t.Fee.Add(r.MonthlyFee)
		t.Paid = t.Paid.Add(r.PaidAmount)
		t.Scholarship = t.Scholarship.Add(r.Scholarship)
	}
	t.Balance = Compute(t.Fee, t.Paid, t.Scholarship)
	return t
}

// FormatAmount renders d with two decimals.
func FormatAmount(d decimal.Decimal) string { return d.StringFixed(2) }

// Placeholder is shown in the admin summary instead of a zero amount.
const Placeholder = "—"

func formatOrPlaceholder(d decimal.Decimal) string {
	if d.IsZero() {
		return Placeholder
	}
	return FormatAmount(d)
}
