package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/internal/domain"
)

type repaymentRepository struct {
	q sqlx.ExtContext
}

func NewRepaymentRepository(db *sqlx.DB) RepaymentRepository {
	return &repaymentRepository{q: db}
}

func (r *repaymentRepository) Create(ctx context.Context, repayment *domain.Repayment) error {
	query := `
		INSERT INTO repayments (id, loan_id, receipt_no, amount, paid_on)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.q.ExecContext(ctx, query,
		repayment.ID,
		repayment.LoanID,
		repayment.ReceiptNo,
		repayment.Amount,
		repayment.PaidOn,
	)

	return err
}

func (r *repaymentRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.Repayment, error) {
	query := `
		SELECT id, loan_id, receipt_no, amount, paid_on
		FROM repayments
		WHERE loan_id = $1
		ORDER BY paid_on DESC
	`

	var repayments []*domain.Repayment
	if err := sqlx.SelectContext(ctx, r.q, &repayments, query, loanID); err != nil {
		return nil, err
	}

	return repayments, nil
}

func (r *repaymentRepository) GetTotalPaid(ctx context.Context, loanID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM repayments
		WHERE loan_id = $1
	`

	var total decimal.Decimal
	if err := sqlx.GetContext(ctx, r.q, &total, query, loanID); err != nil {
		return decimal.Zero, err
	}

	return total, nil
}
