package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/internal/domain"
)

type borrowerRepository struct {
	q sqlx.ExtContext
}

func NewBorrowerRepository(db *sqlx.DB) BorrowerRepository {
	return &borrowerRepository{q: db}
}

func (r *borrowerRepository) Create(ctx context.Context, borrower *domain.Borrower) error {
	query := `
		INSERT INTO borrowers (id, name, account_no, is_active, current_balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		borrower.ID,
		borrower.Name,
		borrower.AccountNo,
		borrower.IsActive,
		borrower.CurrentBalance,
		borrower.CreatedAt,
	)

	return err
}

func (r *borrowerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Borrower, error) {
	query := `
		SELECT id, name, account_no, is_active, current_balance, created_at
		FROM borrowers
		WHERE id = $1
	`

	var borrower domain.Borrower
	if err := sqlx.GetContext(ctx, r.q, &borrower, query, id); err != nil {
		return nil, err
	}

	return &borrower, nil
}

func (r *borrowerRepository) GetByAccountNo(ctx context.Context, accountNo string) (*domain.Borrower, error) {
	query := `
		SELECT id, name, account_no, is_active, current_balance, created_at
		FROM borrowers
		WHERE account_no = $1
	`

	var borrower domain.Borrower
	if err := sqlx.GetContext(ctx, r.q, &borrower, query, accountNo); err != nil {
		return nil, err
	}

	return &borrower, nil
}

func (r *borrowerRepository) List(ctx context.Context) ([]*domain.Borrower, error) {
	query := `
		SELECT id, name, account_no, is_active, current_balance, created_at
		FROM borrowers
		ORDER BY name
	`

	var borrowers []*domain.Borrower
	if err := sqlx.SelectContext(ctx, r.q, &borrowers, query); err != nil {
		return nil, err
	}

	return borrowers, nil
}

func (r *borrowerRepository) CountLoans(ctx context.Context, id uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM loans WHERE borrower_id = $1`

	var count int
	if err := sqlx.GetContext(ctx, r.q, &count, query, id); err != nil {
		return 0, err
	}

	return count, nil
}

func (r *borrowerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM borrowers WHERE id = $1`

	_, err := r.q.ExecContext(ctx, query, id)
	return err
}

// RecomputeBalance rebuilds current_balance from scratch: the sum of
// (amount - repayments) over the borrower's approved loans. Repaid and
// rejected loans contribute nothing. Running this inside the same
// transaction as the triggering mutation keeps the projection from
// drifting, which an incremental counter could not guarantee.
func (r *borrowerRepository) RecomputeBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	query := `
		UPDATE borrowers b
		SET current_balance = COALESCE((
			SELECT SUM(l.amount - COALESCE(p.total, 0))
			FROM loans l
			LEFT JOIN (
				SELECT loan_id, SUM(amount) AS total
				FROM repayments
				GROUP BY loan_id
			) p ON p.loan_id = l.loan_id
			WHERE l.borrower_id = b.id AND l.status = 'APPROVED'
		), 0)
		WHERE b.id = $1
		RETURNING current_balance
	`

	var balance decimal.Decimal
	if err := sqlx.GetContext(ctx, r.q, &balance, query, id); err != nil {
		return decimal.Zero, err
	}

	return balance, nil
}
