package service

import (
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/internal/domain"
)

// Allocation pairs a schedule row with the amount a payment applied to it
type Allocation struct {
	Row     *domain.RepaymentSchedule
	Applied decimal.Decimal
}

// allocatePayment walks unpaid schedule rows in due-date order and fills
// each from the payment until the payment runs out. Rows must already be
// sorted oldest first. Every intermediate value is rounded to 2 decimal
// places so cents never accumulate across rows. A row's paid_amount never
// exceeds its due_amount. Returns the rows touched and whatever part of
// the payment the schedule could not absorb.
func allocatePayment(rows []*domain.RepaymentSchedule, amount decimal.Decimal) ([]Allocation, decimal.Decimal) {
	remaining := amount.Round(2)

	var touched []Allocation
	for _, row := range rows {
		if !remaining.IsPositive() {
			break
		}
		if row.IsPaid {
			continue
		}

		needed := row.Outstanding()
		if !needed.IsPositive() {
			continue
		}

		take := needed
		if remaining.LessThan(needed) {
			take = remaining
		}

		row.PaidAmount = row.PaidAmount.Add(take).Round(2)
		row.IsPaid = row.PaidAmount.GreaterThanOrEqual(row.DueAmount)
		remaining = remaining.Sub(take).Round(2)

		touched = append(touched, Allocation{Row: row, Applied: take})
	}

	return touched, remaining
}

// scheduleOutstanding sums the unpaid remainder across schedule rows
func scheduleOutstanding(rows []*domain.RepaymentSchedule) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		if row.IsPaid {
			continue
		}
		total = total.Add(row.Outstanding())
	}

	return total.Round(2)
}
