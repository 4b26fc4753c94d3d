package billing

import "strings"

// Months lists the canonical month tokens in calendar order.
var Months = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var monthAliases = map[string]string{
	"jan": "Jan", "january": "Jan",
	"feb": "Feb", "february": "Feb",
	"mar": "Mar", "march": "Mar",
	"apr": "Apr", "april": "Apr",
	"may": "May",
	"jun": "Jun", "june": "Jun",
	"jul": "Jul", "july": "Jul",
	"aug": "Aug", "august": "Aug",
	"sep": "Sep", "sept": "Sep", "september": "Sep",
	"oct": "Oct", "october": "Oct",
	"nov": "Nov", "november": "Nov",
	"dec": "Dec", "december": "Dec",
}

// NormalizeMonth maps a full or abbreviated English month name, in any
// case and with surrounding space, to its canonical token.  ok is false for
// anything else.
func NormalizeMonth(in string) (month string, ok bool) {
	month, ok = monthAliases[strings.ToLower(strings.TrimSpace(in))]
	return month, ok
}

// MonthIndex returns 1..12 for a canonical token and 0 otherwise.
func MonthIndex(month string) int {
	for i, m := range Months {
		if m == month {
			return i + 1
		}
	}
	return 0
}
