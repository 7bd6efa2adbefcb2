package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/repository"
)

var testDB *sqlx.DB

func TestMain(m *testing.M) {
	if os.Getenv("RUN_INTEGRATION_TESTS") == "" {
		log.Println("RUN_INTEGRATION_TESTS not set, skipping integration tests")
		os.Exit(0)
	}

	setup()
	code := m.Run()
	teardown()
	os.Exit(code)
}

func setup() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Connect to postgres database to create test database
	cfg.Database.Name = "postgres"
	adminDB, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to postgres database: %v", err))
	}
	defer adminDB.Close()

	testDBName := "loan_ledger_test"
	adminDB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", testDBName))
	if _, err = adminDB.Exec(fmt.Sprintf("CREATE DATABASE %s", testDBName)); err != nil {
		panic(fmt.Sprintf("Failed to create test database: %v", err))
	}

	cfg.Database.Name = testDBName
	testDB, err = sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to test database: %v", err))
	}

	sqlBytes, err := os.ReadFile("../../../scripts/init.sql")
	if err != nil {
		panic(fmt.Sprintf("Failed to read init.sql: %v", err))
	}
	if _, err := testDB.Exec(string(sqlBytes)); err != nil {
		panic(fmt.Sprintf("Failed to initialize database schema: %v", err))
	}
}

func teardown() {
	if testDB != nil {
		testDB.Close()
	}

	cfg, _ := config.Load()
	cfg.Database.Name = "postgres"

	adminDB, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return
	}
	defer adminDB.Close()

	adminDB.Exec("DROP DATABASE IF EXISTS loan_ledger_test")
}

func createBorrower(t *testing.T, repos repository.Repositories) *domain.Borrower {
	t.Helper()

	borrower := &domain.Borrower{
		ID:             uuid.New(),
		Name:           "Integration Borrower",
		AccountNo:      fmt.Sprintf("ACC%06d", time.Now().UnixNano()%1000000),
		IsActive:       true,
		CurrentBalance: decimal.Zero,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, repos.Borrowers.Create(context.Background(), borrower))
	return borrower
}

func createLoan(t *testing.T, repos repository.Repositories, borrowerID uuid.UUID, amount string, months int) *domain.Loan {
	t.Helper()
	ctx := context.Background()

	seq, err := repos.Loans.NextLoanSeq(ctx)
	require.NoError(t, err)

	now := time.Now()
	loan := &domain.Loan{
		ID:         uuid.New(),
		LoanID:     fmt.Sprintf("LN%05d", seq),
		BorrowerID: borrowerID,
		Amount:     decimal.RequireFromString(amount),
		Months:     months,
		Status:     domain.LoanStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, repos.Loans.Create(ctx, loan))
	return loan
}

func TestLoanStatusCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewRepositories(testDB)

	borrower := createBorrower(t, repos)
	loan := createLoan(t, repos, borrower.ID, "1200.00", 12)

	ok, err := repos.Loans.UpdateStatusIf(ctx, loan.LoanID, domain.LoanStatusPending, domain.LoanStatusApproved)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second transition from PENDING must find zero matching rows
	ok, err = repos.Loans.UpdateStatusIf(ctx, loan.LoanID, domain.LoanStatusPending, domain.LoanStatusApproved)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repos.Loans.GetByLoanID(ctx, loan.LoanID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusApproved, stored.Status)
}

func TestScheduleRoundTripAndUnpaidOrdering(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewRepositories(testDB)

	borrower := createBorrower(t, repos)
	loan := createLoan(t, repos, borrower.ID, "300.00", 3)

	base := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	rows := make([]*domain.RepaymentSchedule, 0, 3)
	for i := 1; i <= 3; i++ {
		rows = append(rows, &domain.RepaymentSchedule{
			ID:         uuid.New(),
			LoanID:     loan.LoanID,
			Seq:        i,
			DueDate:    base.AddDate(0, i, 0),
			DueAmount:  decimal.NewFromInt(100),
			PaidAmount: decimal.Zero,
			CreatedAt:  time.Now(),
		})
	}
	require.NoError(t, repos.Loans.CreateSchedule(ctx, rows))

	// Mark the first row paid; the unpaid query must return the rest in
	// due-date order
	rows[0].PaidAmount = decimal.NewFromInt(100)
	rows[0].IsPaid = true
	require.NoError(t, repos.Loans.UpdateScheduleRow(ctx, rows[0]))

	err := repository.NewUnitOfWork(testDB).Do(ctx, func(r repository.Repositories) error {
		unpaid, err := r.Loans.GetUnpaidScheduleForUpdate(ctx, loan.LoanID)
		require.NoError(t, err)
		require.Len(t, unpaid, 2)
		assert.Equal(t, 2, unpaid[0].Seq)
		assert.Equal(t, 3, unpaid[1].Seq)
		return nil
	})
	require.NoError(t, err)
}

func TestRecomputeBalanceMatchesLoanBalances(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewRepositories(testDB)

	borrower := createBorrower(t, repos)

	// Two approved loans, one rejected; only the approved ones count
	loanA := createLoan(t, repos, borrower.ID, "1000.00", 10)
	loanB := createLoan(t, repos, borrower.ID, "500.00", 5)
	loanC := createLoan(t, repos, borrower.ID, "999.00", 9)
	for _, id := range []string{loanA.LoanID, loanB.LoanID} {
		_, err := repos.Loans.UpdateStatusIf(ctx, id, domain.LoanStatusPending, domain.LoanStatusApproved)
		require.NoError(t, err)
	}
	_, err := repos.Loans.UpdateStatusIf(ctx, loanC.LoanID, domain.LoanStatusPending, domain.LoanStatusRejected)
	require.NoError(t, err)

	require.NoError(t, repos.Repayments.Create(ctx, &domain.Repayment{
		ID:        uuid.New(),
		LoanID:    loanA.LoanID,
		ReceiptNo: fmt.Sprintf("LR-TEST-%d", time.Now().UnixNano()),
		Amount:    decimal.RequireFromString("250.00"),
		PaidOn:    time.Now(),
	}))

	balance, err := repos.Borrowers.RecomputeBalance(ctx, borrower.ID)
	require.NoError(t, err)

	// (1000 - 250) + 500; the rejected loan contributes nothing
	assert.True(t, balance.Equal(decimal.RequireFromString("1250.00")),
		"got %s", balance)

	// The cached column must agree with the sum over loan balances
	stored, err := repos.Borrowers.GetByID(ctx, borrower.ID)
	require.NoError(t, err)

	loans, err := repos.Loans.ListByBorrower(ctx, borrower.ID)
	require.NoError(t, err)

	expected := decimal.Zero
	for _, l := range loans {
		if l.Status != domain.LoanStatusApproved {
			continue
		}
		paid, err := repos.Repayments.GetTotalPaid(ctx, l.LoanID)
		require.NoError(t, err)
		expected = expected.Add(l.Balance(paid))
	}
	assert.True(t, stored.CurrentBalance.Equal(expected),
		"cached %s, derived %s", stored.CurrentBalance, expected)
}

func TestRepaymentTotals(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewRepositories(testDB)

	borrower := createBorrower(t, repos)
	loan := createLoan(t, repos, borrower.ID, "100.00", 3)
	_, err := repos.Loans.UpdateStatusIf(ctx, loan.LoanID, domain.LoanStatusPending, domain.LoanStatusApproved)
	require.NoError(t, err)

	total, err := repos.Repayments.GetTotalPaid(ctx, loan.LoanID)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	for i, amount := range []string{"33.34", "66.66"} {
		require.NoError(t, repos.Repayments.Create(ctx, &domain.Repayment{
			ID:        uuid.New(),
			LoanID:    loan.LoanID,
			ReceiptNo: fmt.Sprintf("LR-TOTAL-%d-%d", time.Now().UnixNano(), i),
			Amount:    decimal.RequireFromString(amount),
			PaidOn:    time.Now(),
		}))
	}

	total, err = repos.Repayments.GetTotalPaid(ctx, loan.LoanID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("100.00")))
}
