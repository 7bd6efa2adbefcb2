package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusPending  = "PENDING"
	LoanStatusApproved = "APPROVED"
	LoanStatusRejected = "REJECTED"
	LoanStatusRepaid   = "REPAID"
)

// Loan represents a loan entity. Balance is derived from repayments and
// never stored on the row itself.
type Loan struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	LoanID     string          `json:"loan_id" db:"loan_id"`
	BorrowerID uuid.UUID       `json:"borrower_id" db:"borrower_id"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	Months     int             `json:"months" db:"months"`
	Status     string          `json:"status" db:"status"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// Balance is the loan amount minus totalPaid, rounded to 2 decimal places
func (l *Loan) Balance(totalPaid decimal.Decimal) decimal.Decimal {
	return l.Amount.Sub(totalPaid).Round(2)
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	BorrowerID uuid.UUID       `json:"borrower_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Months     int             `json:"months" validate:"required,gt=0"`
}

type LoanResponse struct {
	Loan    *Loan           `json:"loan"`
	Balance decimal.Decimal `json:"balance"`
}

type LoanDetailsResponse struct {
	Loan       *Loan                `json:"loan"`
	Schedule   []*RepaymentSchedule `json:"schedule"`
	Repayments []*Repayment         `json:"repayments"`
	TotalPaid  decimal.Decimal      `json:"total_paid"`
	Balance    decimal.Decimal      `json:"balance"`
}

type ApproveLoanResponse struct {
	Loan            *Loan                `json:"loan"`
	Schedule        []*RepaymentSchedule `json:"schedule"`
	BorrowerBalance decimal.Decimal      `json:"borrower_balance"`
}

type BorrowerBalanceResponse struct {
	BorrowerID     uuid.UUID       `json:"borrower_id"`
	AccountNo      string          `json:"account_no"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}
