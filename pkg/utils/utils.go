package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RoundMoney rounds a monetary value to 2 decimal places (half up)
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// SplitInstallment calculates the per-month installment for an equal split.
// Formula: Principal / Months, rounded to 2 decimal places
func SplitInstallment(amount decimal.Decimal, months int) decimal.Decimal {
	return amount.Div(decimal.NewFromInt(int64(months))).Round(2)
}

// AddMonths advances a date by whole calendar months, clamping the day to
// the end of the target month (Jan 31 + 1 month = Feb 28/29).
// time.AddDate would normalize Jan 31 + 1 month into early March instead.
func AddMonths(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()

	day := t.Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, t.Location())
}

// FormatLoanID renders a sequence value as a human-readable loan identifier
func FormatLoanID(seq int64) string {
	return fmt.Sprintf("LN%05d", seq)
}

// NewReceiptNo generates a unique receipt number for a repayment.
// Timestamp keeps receipts roughly sortable; the uuid suffix makes two
// receipts created in the same second still unique.
func NewReceiptNo(now time.Time) string {
	return fmt.Sprintf("LR-%s-%s", now.UTC().Format("060102150405"), uuid.NewString()[:8])
}

// IsDateOverdue checks if a due date is in the past relative to now
func IsDateOverdue(dueDate, now time.Time) bool {
	return now.After(dueDate)
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
