package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loan-ledger/internal/domain"
)

type loanRepository struct {
	q sqlx.ExtContext
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{q: db}
}

func (r *loanRepository) NextLoanSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := sqlx.GetContext(ctx, r.q, &seq, `SELECT nextval('loan_id_seq')`); err != nil {
		return 0, err
	}

	return seq, nil
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, loan_id, borrower_id, amount, months, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		loan.ID,
		loan.LoanID,
		loan.BorrowerID,
		loan.Amount,
		loan.Months,
		loan.Status,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return err
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `
		SELECT id, loan_id, borrower_id, amount, months, status, created_at, updated_at
		FROM loans
		WHERE loan_id = $1
	`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.q, &loan, query, loanID); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `
		SELECT id, loan_id, borrower_id, amount, months, status, created_at, updated_at
		FROM loans
		WHERE loan_id = $1
		FOR UPDATE
	`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.q, &loan, query, loanID); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) ListByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]*domain.Loan, error) {
	query := `
		SELECT id, loan_id, borrower_id, amount, months, status, created_at, updated_at
		FROM loans
		WHERE borrower_id = $1
		ORDER BY created_at
	`

	var loans []*domain.Loan
	if err := sqlx.SelectContext(ctx, r.q, &loans, query, borrowerID); err != nil {
		return nil, err
	}

	return loans, nil
}

// UpdateStatusIf is the compare-and-set behind every state transition.
// Checking the current status in the same statement as the write closes
// the race two concurrent approvals would otherwise hit.
func (r *loanRepository) UpdateStatusIf(ctx context.Context, loanID, from, to string) (bool, error) {
	query := `
		UPDATE loans
		SET status = $3, updated_at = $4
		WHERE loan_id = $1 AND status = $2
	`

	result, err := r.q.ExecContext(ctx, query, loanID, from, to, time.Now())
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

func (r *loanRepository) UpdateStatus(ctx context.Context, loanID, status string) error {
	query := `
		UPDATE loans
		SET status = $2, updated_at = $3
		WHERE loan_id = $1
	`

	_, err := r.q.ExecContext(ctx, query, loanID, status, time.Now())
	return err
}

func (r *loanRepository) CreateSchedule(ctx context.Context, schedules []*domain.RepaymentSchedule) error {
	query := `
		INSERT INTO repayment_schedule (id, loan_id, seq, due_date, due_amount, paid_amount, is_paid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, schedule := range schedules {
		_, err := r.q.ExecContext(ctx, query,
			schedule.ID,
			schedule.LoanID,
			schedule.Seq,
			schedule.DueDate,
			schedule.DueAmount,
			schedule.PaidAmount,
			schedule.IsPaid,
			schedule.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *loanRepository) GetScheduleByLoanID(ctx context.Context, loanID string) ([]*domain.RepaymentSchedule, error) {
	query := `
		SELECT id, loan_id, seq, due_date, due_amount, paid_amount, is_paid, created_at
		FROM repayment_schedule
		WHERE loan_id = $1
		ORDER BY due_date, seq
	`

	var schedules []*domain.RepaymentSchedule
	if err := sqlx.SelectContext(ctx, r.q, &schedules, query, loanID); err != nil {
		return nil, err
	}

	return schedules, nil
}

func (r *loanRepository) GetUnpaidScheduleForUpdate(ctx context.Context, loanID string) ([]*domain.RepaymentSchedule, error) {
	query := `
		SELECT id, loan_id, seq, due_date, due_amount, paid_amount, is_paid, created_at
		FROM repayment_schedule
		WHERE loan_id = $1 AND is_paid = FALSE
		ORDER BY due_date, seq
		FOR UPDATE
	`

	var schedules []*domain.RepaymentSchedule
	if err := sqlx.SelectContext(ctx, r.q, &schedules, query, loanID); err != nil {
		return nil, err
	}

	return schedules, nil
}

func (r *loanRepository) UpdateScheduleRow(ctx context.Context, row *domain.RepaymentSchedule) error {
	query := `
		UPDATE repayment_schedule
		SET paid_amount = $2, is_paid = $3
		WHERE id = $1
	`

	_, err := r.q.ExecContext(ctx, query, row.ID, row.PaidAmount, row.IsPaid)
	return err
}

func (r *loanRepository) GetOverdueSchedules(ctx context.Context, asOf time.Time) ([]*domain.RepaymentSchedule, error) {
	query := `
		SELECT s.id, s.loan_id, s.seq, s.due_date, s.due_amount, s.paid_amount, s.is_paid, s.created_at
		FROM repayment_schedule s
		JOIN loans l ON l.loan_id = s.loan_id
		WHERE l.status = 'APPROVED' AND s.is_paid = FALSE AND s.due_date < $1
		ORDER BY s.loan_id, s.due_date
	`

	var schedules []*domain.RepaymentSchedule
	if err := sqlx.SelectContext(ctx, r.q, &schedules, query, asOf); err != nil {
		return nil, err
	}

	return schedules, nil
}
