package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/repository"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/utils"
)

// LedgerService owns the loan state machine. Every mutating operation
// runs as one unit of work: status change, schedule rows, receipt and the
// borrower balance projection commit together or not at all.
type LedgerService struct {
	Uow    repository.UnitOfWork
	Repos  repository.Repositories
	cache  *redis.Client
	config *config.Config
}

func NewLedgerService(
	uow repository.UnitOfWork,
	repos repository.Repositories,
	cache *redis.Client,
	config *config.Config,
) *LedgerService {
	return &LedgerService{
		Uow:    uow,
		Repos:  repos,
		cache:  cache,
		config: config,
	}
}

// CreateBorrower registers a new borrower with a zero balance
func (s *LedgerService) CreateBorrower(ctx context.Context, request *domain.CreateBorrowerRequest) (*domain.Borrower, error) {
	existing, err := s.Repos.Borrowers.GetByAccountNo(ctx, request.AccountNo)
	if err == nil && existing != nil {
		return nil, customError.WrapAccountNoTaken(request.AccountNo)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}

	borrower := &domain.Borrower{
		ID:             uuid.New(),
		Name:           request.Name,
		AccountNo:      request.AccountNo,
		IsActive:       true,
		CurrentBalance: decimal.Zero,
		CreatedAt:      time.Now(),
	}

	if err := s.Repos.Borrowers.Create(ctx, borrower); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return borrower, nil
}

// ListBorrowers returns all borrowers ordered by name
func (s *LedgerService) ListBorrowers(ctx context.Context) ([]*domain.Borrower, error) {
	borrowers, err := s.Repos.Borrowers.List(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return borrowers, nil
}

// GetBorrowerBalance returns the cached balance projection for a borrower
func (s *LedgerService) GetBorrowerBalance(ctx context.Context, accountNo string) (*domain.BorrowerBalanceResponse, error) {
	borrower, err := s.Repos.Borrowers.GetByAccountNo(ctx, accountNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapBorrowerNotFound(accountNo)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.BorrowerBalanceResponse{
		BorrowerID:     borrower.ID,
		AccountNo:      borrower.AccountNo,
		CurrentBalance: borrower.CurrentBalance,
	}, nil
}

// DeleteBorrower removes a borrower. Borrowers with loans on record are
// protected: loans and repayments are financial records.
func (s *LedgerService) DeleteBorrower(ctx context.Context, id uuid.UUID) error {
	return s.Uow.Do(ctx, func(r repository.Repositories) error {
		if _, err := r.Borrowers.GetByID(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapBorrowerNotFound(id.String())
			}
			return customError.WrapDatabaseError(err)
		}

		count, err := r.Borrowers.CountLoans(ctx, id)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if count > 0 {
			return customError.WrapBorrowerHasLoans(id.String())
		}

		if err := r.Borrowers.Delete(ctx, id); err != nil {
			return customError.WrapDatabaseError(err)
		}
		return nil
	})
}

// CreateLoan creates a loan in PENDING for an existing borrower. The loan
// id comes from a database sequence, so two concurrent creates can never
// collide the way a scan of the last created row would.
func (s *LedgerService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	if !request.Amount.IsPositive() {
		return nil, customError.WrapInvalidLoanAmount(request.Amount.String())
	}
	if request.Months <= 0 {
		return nil, customError.WrapInvalidTerm(request.Months)
	}

	var loan *domain.Loan
	err := s.Uow.Do(ctx, func(r repository.Repositories) error {
		if _, err := r.Borrowers.GetByID(ctx, request.BorrowerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapBorrowerNotFound(request.BorrowerID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		seq, err := r.Loans.NextLoanSeq(ctx)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		now := time.Now()
		loan = &domain.Loan{
			ID:         uuid.New(),
			LoanID:     utils.FormatLoanID(seq),
			BorrowerID: request.BorrowerID,
			Amount:     request.Amount.Round(2),
			Months:     request.Months,
			Status:     domain.LoanStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if err := r.Loans.Create(ctx, loan); err != nil {
			return customError.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return loan, nil
}

// Approve transitions a PENDING loan to APPROVED, generates its repayment
// schedule and bumps the borrower's balance projection, all in one
// transaction. Approving a loan in any other status fails and generates
// nothing.
func (s *LedgerService) Approve(ctx context.Context, loanID string) (*domain.ApproveLoanResponse, error) {
	var resp *domain.ApproveLoanResponse
	err := s.Uow.Do(ctx, func(r repository.Repositories) error {
		loan, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapLoanNotFound(loanID)
			}
			return customError.WrapDatabaseError(err)
		}

		ok, err := r.Loans.UpdateStatusIf(ctx, loanID, domain.LoanStatusPending, domain.LoanStatusApproved)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if !ok {
			return customError.WrapInvalidTransition(loanID, loan.Status, "approve")
		}
		loan.Status = domain.LoanStatusApproved

		start := time.Now().Truncate(24 * time.Hour)
		schedule, err := GenerateSchedule(loanID, loan.Amount, loan.Months, start)
		if err != nil {
			return err
		}

		if err := r.Loans.CreateSchedule(ctx, schedule); err != nil {
			return customError.WrapDatabaseError(err)
		}

		balance, err := r.Borrowers.RecomputeBalance(ctx, loan.BorrowerID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		resp = &domain.ApproveLoanResponse{
			Loan:            loan,
			Schedule:        schedule,
			BorrowerBalance: balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateLoanCache(ctx, loanID)

	return resp, nil
}

// Reject transitions a PENDING loan to REJECTED. No schedule is generated
// and the borrower balance is untouched.
func (s *LedgerService) Reject(ctx context.Context, loanID string) (*domain.Loan, error) {
	var loan *domain.Loan
	err := s.Uow.Do(ctx, func(r repository.Repositories) error {
		var err error
		loan, err = r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapLoanNotFound(loanID)
			}
			return customError.WrapDatabaseError(err)
		}

		ok, err := r.Loans.UpdateStatusIf(ctx, loanID, domain.LoanStatusPending, domain.LoanStatusRejected)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if !ok {
			return customError.WrapInvalidTransition(loanID, loan.Status, "reject")
		}
		loan.Status = domain.LoanStatusRejected
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateLoanCache(ctx, loanID)

	return loan, nil
}

// RecordPayment writes an immutable receipt, waterfalls the amount across
// the loan's unpaid schedule rows oldest first, recomputes the loan and
// borrower balances and closes the loan once the balance reaches zero.
// A payment larger than the remaining schedule is rejected outright; no
// part of it is applied.
func (s *LedgerService) RecordPayment(ctx context.Context, loanID string, amount decimal.Decimal, paidOn time.Time) (*domain.RecordPaymentResponse, error) {
	if !amount.IsPositive() {
		return nil, customError.WrapInvalidPayment(amount.String())
	}
	amount = amount.Round(2)

	var resp *domain.RecordPaymentResponse
	err := s.Uow.Do(ctx, func(r repository.Repositories) error {
		loan, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapLoanNotFound(loanID)
			}
			return customError.WrapDatabaseError(err)
		}

		if loan.Status != domain.LoanStatusApproved {
			return customError.WrapInvalidLoanState(loanID, loan.Status)
		}

		rows, err := r.Loans.GetUnpaidScheduleForUpdate(ctx, loanID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		outstanding := scheduleOutstanding(rows)
		if amount.GreaterThan(outstanding) {
			return customError.WrapOverpayment(loanID, amount.String(), outstanding.String())
		}

		touched, remaining := allocatePayment(rows, amount)
		if remaining.IsPositive() {
			// Unreachable after the outstanding check, kept as a tripwire
			return customError.WrapOverpayment(loanID, amount.String(), outstanding.String())
		}

		repayment := &domain.Repayment{
			ID:        uuid.New(),
			LoanID:    loanID,
			ReceiptNo: utils.NewReceiptNo(paidOn),
			Amount:    amount,
			PaidOn:    paidOn,
		}
		if err := r.Repayments.Create(ctx, repayment); err != nil {
			return customError.WrapDatabaseError(err)
		}

		for _, allocation := range touched {
			if err := r.Loans.UpdateScheduleRow(ctx, allocation.Row); err != nil {
				return customError.WrapDatabaseError(err)
			}
		}

		totalPaid, err := r.Repayments.GetTotalPaid(ctx, loanID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		balance := loan.Balance(totalPaid)
		if balance.LessThanOrEqual(decimal.Zero) {
			ok, err := r.Loans.UpdateStatusIf(ctx, loanID, domain.LoanStatusApproved, domain.LoanStatusRepaid)
			if err != nil {
				return customError.WrapDatabaseError(err)
			}
			if ok {
				loan.Status = domain.LoanStatusRepaid
			}
		}

		borrowerBalance, err := r.Borrowers.RecomputeBalance(ctx, loan.BorrowerID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		resp = &domain.RecordPaymentResponse{
			Repayment:       repayment,
			Schedule:        rows,
			LoanStatus:      loan.Status,
			LoanBalance:     balance,
			BorrowerBalance: borrowerBalance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateLoanCache(ctx, loanID)

	return resp, nil
}

// GetLoanDetails returns the loan with its schedule, repayments and
// derived balance, served from Redis when a fresh copy is cached.
func (s *LedgerService) GetLoanDetails(ctx context.Context, loanID string) (*domain.LoanDetailsResponse, error) {
	if cached := s.getCachedLoanDetails(ctx, loanID); cached != nil {
		return cached, nil
	}

	loan, err := s.Repos.Loans.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	schedule, err := s.Repos.Loans.GetScheduleByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	repayments, err := s.Repos.Repayments.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	totalPaid, err := s.Repos.Repayments.GetTotalPaid(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	details := &domain.LoanDetailsResponse{
		Loan:       loan,
		Schedule:   schedule,
		Repayments: repayments,
		TotalPaid:  totalPaid,
		Balance:    loan.Balance(totalPaid),
	}

	s.setCachedLoanDetails(ctx, loanID, details)

	return details, nil
}

// ListLoansByBorrower returns all loans of one borrower
func (s *LedgerService) ListLoansByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]*domain.Loan, error) {
	loans, err := s.Repos.Loans.ListByBorrower(ctx, borrowerID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return loans, nil
}

// RecomputeBorrowerBalance forces a rebuild of the balance projection.
// Ledger operations already keep it in sync; this is the repair hatch.
func (s *LedgerService) RecomputeBorrowerBalance(ctx context.Context, borrowerID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.Uow.Do(ctx, func(r repository.Repositories) error {
		var err error
		balance, err = r.Borrowers.RecomputeBalance(ctx, borrowerID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	return balance, nil
}

// SweepOverdue counts unpaid schedule rows past due per loan and publishes
// the counters to Redis for the scheduler daemon. Returns the counts.
func (s *LedgerService) SweepOverdue(ctx context.Context, asOf time.Time) (map[string]int, error) {
	rows, err := s.Repos.Loans.GetOverdueSchedules(ctx, asOf)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	counts := make(map[string]int)
	for _, row := range rows {
		counts[row.LoanID]++
	}

	if s.cache != nil {
		for loanID, count := range counts {
			key := fmt.Sprintf("loan:%s:overdue", loanID)
			if err := s.cache.Set(ctx, key, count, s.config.GetCacheTTL()).Err(); err != nil {
				log.Printf("Failed to cache overdue count for %s: %v", loanID, err)
			}
		}
	}

	return counts, nil
}

func loanCacheKey(loanID string) string {
	return fmt.Sprintf("loan:%s:details", loanID)
}

func (s *LedgerService) getCachedLoanDetails(ctx context.Context, loanID string) *domain.LoanDetailsResponse {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, loanCacheKey(loanID)).Bytes()
	if err != nil {
		return nil
	}

	var details domain.LoanDetailsResponse
	if err := json.Unmarshal(data, &details); err != nil {
		return nil
	}

	return &details
}

func (s *LedgerService) setCachedLoanDetails(ctx context.Context, loanID string, details *domain.LoanDetailsResponse) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(details)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, loanCacheKey(loanID), data, s.config.GetCacheTTL()).Err(); err != nil {
		log.Printf("Failed to cache loan details for %s: %v", loanID, err)
	}
}

func (s *LedgerService) invalidateLoanCache(ctx context.Context, loanID string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Del(ctx, loanCacheKey(loanID)).Err(); err != nil {
		log.Printf("Failed to invalidate loan cache for %s: %v", loanID, err)
	}
}
