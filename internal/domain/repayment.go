package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repayment is an immutable receipt of a payment against a loan.
// Rows are never updated or deleted once written.
type Repayment struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	LoanID    string          `json:"loan_id" db:"loan_id"`
	ReceiptNo string          `json:"receipt_no" db:"receipt_no"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	PaidOn    time.Time       `json:"paid_on" db:"paid_on"`
}

type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
	PaidOn *time.Time      `json:"paid_on,omitempty"`
}

type RecordPaymentResponse struct {
	Repayment       *Repayment           `json:"repayment"`
	Schedule        []*RepaymentSchedule `json:"schedule"`
	LoanStatus      string               `json:"loan_status"`
	LoanBalance     decimal.Decimal      `json:"loan_balance"`
	BorrowerBalance decimal.Decimal      `json:"borrower_balance"`
}
