package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound      = errors.New("loan not found")
	ErrBorrowerNotFound  = errors.New("borrower not found")
	ErrLoanAlreadyExists = errors.New("loan already exists")
	ErrAccountNoTaken    = errors.New("account number already in use")
	ErrInvalidLoanAmount = errors.New("loan amount must be greater than zero")
	ErrInvalidTerm       = errors.New("loan term must be at least one month")
	ErrInvalidPayment    = errors.New("payment amount must be greater than zero")
	ErrInvalidTransition = errors.New("operation not allowed for current loan status")
	ErrInvalidLoanState  = errors.New("loan does not accept payments in its current status")
	ErrOverpayment       = errors.New("payment exceeds remaining schedule")
	ErrBorrowerHasLoans  = errors.New("borrower has loans and cannot be deleted")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound      = "LOAN_NOT_FOUND"
	ErrCodeBorrowerNotFound  = "BORROWER_NOT_FOUND"
	ErrCodeLoanAlreadyExists = "LOAN_ALREADY_EXISTS"
	ErrCodeAccountNoTaken    = "ACCOUNT_NO_TAKEN"
	ErrCodeInvalidLoanAmount = "INVALID_LOAN_AMOUNT"
	ErrCodeInvalidTerm       = "INVALID_TERM"
	ErrCodeInvalidPayment    = "INVALID_PAYMENT_AMOUNT"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeInvalidLoanState  = "INVALID_LOAN_STATE"
	ErrCodeOverpayment       = "OVERPAYMENT"
	ErrCodeBorrowerHasLoans  = "BORROWER_HAS_LOANS"
	ErrCodeDatabaseError     = "DATABASE_ERROR"
	ErrCodeCacheError        = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapBorrowerNotFound(id string) *BusinessError {
	return NewBusinessError(
		ErrCodeBorrowerNotFound,
		fmt.Sprintf("Borrower %s not found", id),
		ErrBorrowerNotFound,
	)
}

func WrapAccountNoTaken(accountNo string) *BusinessError {
	return NewBusinessError(
		ErrCodeAccountNoTaken,
		fmt.Sprintf("Account number %s is already in use", accountNo),
		ErrAccountNoTaken,
	)
}

func WrapInvalidTransition(loanID, status, op string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidTransition,
		fmt.Sprintf("Cannot %s loan %s in status %s", op, loanID, status),
		ErrInvalidTransition,
	)
}

func WrapInvalidLoanState(loanID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanState,
		fmt.Sprintf("Loan %s in status %s does not accept payments", loanID, status),
		ErrInvalidLoanState,
	)
}

func WrapInvalidLoanAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanAmount,
		fmt.Sprintf("Invalid loan amount: %s", amount),
		ErrInvalidLoanAmount,
	)
}

func WrapInvalidTerm(months int) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidTerm,
		fmt.Sprintf("Invalid loan term: %d months", months),
		ErrInvalidTerm,
	)
}

func WrapInvalidPayment(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPayment,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidPayment,
	)
}

func WrapOverpayment(loanID, amount, outstanding string) *BusinessError {
	return NewBusinessError(
		ErrCodeOverpayment,
		fmt.Sprintf("Payment %s against loan %s exceeds remaining schedule %s", amount, loanID, outstanding),
		ErrOverpayment,
	)
}

func WrapBorrowerHasLoans(id string) *BusinessError {
	return NewBusinessError(
		ErrCodeBorrowerHasLoans,
		fmt.Sprintf("Borrower %s has loans on record and cannot be deleted", id),
		ErrBorrowerHasLoans,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
