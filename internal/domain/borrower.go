package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Borrower represents a borrower with a cached running balance.
// CurrentBalance is a projection of the balances of the borrower's
// approved loans; only the ledger service writes it.
type Borrower struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	AccountNo      string          `json:"account_no" db:"account_no"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	CurrentBalance decimal.Decimal `json:"current_balance" db:"current_balance"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

type CreateBorrowerRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	AccountNo string `json:"account_no" validate:"required,max=12"`
}
