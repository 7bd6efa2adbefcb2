package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepaymentSchedule represents one installment row of a loan's schedule.
// DueAmount is fixed at generation time; PaidAmount only ever grows.
type RepaymentSchedule struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	LoanID     string          `json:"loan_id" db:"loan_id"`
	Seq        int             `json:"seq" db:"seq"`
	DueDate    time.Time       `json:"due_date" db:"due_date"`
	DueAmount  decimal.Decimal `json:"due_amount" db:"due_amount"`
	PaidAmount decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	IsPaid     bool            `json:"is_paid" db:"is_paid"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// Outstanding is the unpaid remainder of this row
func (r *RepaymentSchedule) Outstanding() decimal.Decimal {
	return r.DueAmount.Sub(r.PaidAmount).Round(2)
}
