package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/internal/domain"
)

// BorrowerRepository defines the interface for borrower data operations
type BorrowerRepository interface {
	// Create creates a new borrower
	Create(ctx context.Context, borrower *domain.Borrower) error

	// GetByID retrieves a borrower by primary key
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Borrower, error)

	// GetByAccountNo retrieves a borrower by its unique account number
	GetByAccountNo(ctx context.Context, accountNo string) (*domain.Borrower, error)

	// List retrieves all borrowers ordered by name
	List(ctx context.Context) ([]*domain.Borrower, error)

	// CountLoans counts the loans referencing a borrower
	CountLoans(ctx context.Context, id uuid.UUID) (int, error)

	// Delete removes a borrower; callers must check CountLoans first
	Delete(ctx context.Context, id uuid.UUID) error

	// RecomputeBalance recalculates current_balance from the borrower's
	// approved loans and their repayments, writes it, and returns it
	RecomputeBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
}

// LoanRepository defines the interface for loan and schedule data operations
type LoanRepository interface {
	// NextLoanSeq reserves the next value of the loan id sequence
	NextLoanSeq(ctx context.Context) (int64, error)

	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByLoanID retrieves a loan by its loan ID
	GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error)

	// GetByLoanIDForUpdate retrieves a loan and locks its row for the
	// duration of the surrounding transaction
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error)

	// ListByBorrower retrieves all loans of a borrower
	ListByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]*domain.Loan, error)

	// UpdateStatusIf transitions status from one value to another in a
	// single statement; returns false when the loan was not in `from`
	UpdateStatusIf(ctx context.Context, loanID, from, to string) (bool, error)

	// UpdateStatus sets the loan status unconditionally
	UpdateStatus(ctx context.Context, loanID, status string) error

	// CreateSchedule creates schedule rows in a batch
	CreateSchedule(ctx context.Context, schedules []*domain.RepaymentSchedule) error

	// GetScheduleByLoanID retrieves schedule rows ordered by due date
	GetScheduleByLoanID(ctx context.Context, loanID string) ([]*domain.RepaymentSchedule, error)

	// GetUnpaidScheduleForUpdate retrieves unpaid schedule rows ordered by
	// due date, locked for the surrounding transaction
	GetUnpaidScheduleForUpdate(ctx context.Context, loanID string) ([]*domain.RepaymentSchedule, error)

	// UpdateScheduleRow persists a row's paid_amount and is_paid
	UpdateScheduleRow(ctx context.Context, row *domain.RepaymentSchedule) error

	// GetOverdueSchedules gets unpaid rows past due as of the given date
	GetOverdueSchedules(ctx context.Context, asOf time.Time) ([]*domain.RepaymentSchedule, error)
}

// RepaymentRepository defines the interface for repayment receipt operations
type RepaymentRepository interface {
	// Create creates a new repayment record
	Create(ctx context.Context, repayment *domain.Repayment) error

	// GetByLoanID retrieves all repayments for a loan, newest first
	GetByLoanID(ctx context.Context, loanID string) ([]*domain.Repayment, error)

	// GetTotalPaid calculates total amount paid for a loan
	GetTotalPaid(ctx context.Context, loanID string) (decimal.Decimal, error)
}

// Repositories bundles the repositories bound to one database handle,
// either the pool or a single transaction.
type Repositories struct {
	Borrowers  BorrowerRepository
	Loans      LoanRepository
	Repayments RepaymentRepository
}

// UnitOfWork runs a function with repositories bound to one transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(r Repositories) error) error
}
