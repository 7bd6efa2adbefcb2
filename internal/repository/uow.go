package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type sqlUnitOfWork struct {
	db *sqlx.DB
}

func NewUnitOfWork(db *sqlx.DB) UnitOfWork {
	return &sqlUnitOfWork{db: db}
}

// NewRepositories binds the sqlx implementations to a database handle.
// Pass the pool for single-statement reads or a transaction for units of
// work that must commit or roll back together.
func NewRepositories(q sqlx.ExtContext) Repositories {
	return Repositories{
		Borrowers:  &borrowerRepository{q: q},
		Loans:      &loanRepository{q: q},
		Repayments: &repaymentRepository{q: q},
	}
}

func (u *sqlUnitOfWork) Do(ctx context.Context, fn func(r Repositories) error) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(NewRepositories(tx)); err != nil {
		return err
	}

	return tx.Commit()
}
