package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/utils"
)

// GenerateSchedule builds the equal-installment schedule for an approved
// loan. The first months-1 rows carry the rounded per-month installment;
// the last row absorbs the rounding remainder so the rows always sum to
// the loan amount exactly. Due dates advance by calendar months from the
// start date, clamped at month end.
func GenerateSchedule(loanID string, amount decimal.Decimal, months int, start time.Time) ([]*domain.RepaymentSchedule, error) {
	if months <= 0 {
		return nil, customError.WrapInvalidTerm(months)
	}
	if !amount.IsPositive() {
		return nil, customError.WrapInvalidLoanAmount(amount.String())
	}

	per := utils.SplitInstallment(amount, months)
	now := time.Now()

	schedules := make([]*domain.RepaymentSchedule, 0, months)
	total := decimal.Zero

	for i := 1; i <= months; i++ {
		due := per
		if i == months {
			due = amount.Sub(total).Round(2)
		}
		total = total.Add(due)

		schedules = append(schedules, &domain.RepaymentSchedule{
			ID:         uuid.New(),
			LoanID:     loanID,
			Seq:        i,
			DueDate:    utils.AddMonths(start, i),
			DueAmount:  due,
			PaidAmount: decimal.Zero,
			IsPaid:     false,
			CreatedAt:  now,
		})
	}

	return schedules, nil
}
