package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/handler"
	"github.com/segyhp/loan-ledger/internal/repository"
	"github.com/segyhp/loan-ledger/internal/service"
)

var (
	testDB     *sqlx.DB
	testServer *httptest.Server
)

func TestMain(m *testing.M) {
	if os.Getenv("RUN_INTEGRATION_TESTS") == "" {
		log.Println("RUN_INTEGRATION_TESTS not set, skipping e2e tests")
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

	cfg.Database.Name = "postgres"
	adminDB, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to postgres database: %v", err))
	}
	defer adminDB.Close()

	testDBName := "loan_ledger_e2e"
	adminDB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", testDBName))
	if _, err = adminDB.Exec(fmt.Sprintf("CREATE DATABASE %s", testDBName)); err != nil {
		panic(fmt.Sprintf("Failed to create test database: %v", err))
	}

	cfg.Database.Name = testDBName
	testDB, err = sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to test database: %v", err))
	}

	sqlBytes, err := os.ReadFile("../../scripts/init.sql")
	if err != nil {
		panic(fmt.Sprintf("Failed to read init.sql: %v", err))
	}
	if _, err := testDB.Exec(string(sqlBytes)); err != nil {
		panic(fmt.Sprintf("Failed to initialize database schema: %v", err))
	}

	// Redis intentionally absent: the service falls back to the database
	ledgerService := service.NewLedgerService(
		repository.NewUnitOfWork(testDB),
		repository.NewRepositories(testDB),
		nil,
		cfg,
	)
	ledgerHandler := handler.NewLedgerHandler(ledgerService)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/borrowers", ledgerHandler.CreateBorrower).Methods("POST")
	api.HandleFunc("/borrowers/{accountNo}/balance", ledgerHandler.GetBorrowerBalance).Methods("GET")
	api.HandleFunc("/loans", ledgerHandler.CreateLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}", ledgerHandler.GetLoan).Methods("GET")
	api.HandleFunc("/loans/{loanId}/approve", ledgerHandler.ApproveLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/reject", ledgerHandler.RejectLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/payment", ledgerHandler.RecordPayment).Methods("POST")

	testServer = httptest.NewServer(router)
}

func teardown() {
	if testServer != nil {
		testServer.Close()
	}
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

	adminDB.Exec("DROP DATABASE IF EXISTS loan_ledger_e2e")
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
}

func doJSON(t *testing.T, method, path string, body interface{}) (*http.Response, *envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, testServer.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, &env
}

func TestLoanLifecycle(t *testing.T) {
	// Borrower
	resp, env := doJSON(t, "POST", "/api/v1/borrowers", map[string]interface{}{
		"name":       "Rina Wati",
		"account_no": "ACC900001",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var borrower domain.Borrower
	require.NoError(t, json.Unmarshal(env.Data, &borrower))

	// Loan of 1200 over 12 months
	resp, env = doJSON(t, "POST", "/api/v1/loans", map[string]interface{}{
		"borrower_id": borrower.ID,
		"amount":      1200.00,
		"months":      12,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var loan domain.Loan
	require.NoError(t, json.Unmarshal(env.Data, &loan))
	assert.Equal(t, domain.LoanStatusPending, loan.Status)

	// Approve generates twelve rows of 100
	resp, env = doJSON(t, "POST", "/api/v1/loans/"+loan.LoanID+"/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var approved domain.ApproveLoanResponse
	require.NoError(t, json.Unmarshal(env.Data, &approved))
	require.Len(t, approved.Schedule, 12)
	for _, row := range approved.Schedule {
		assert.True(t, row.DueAmount.Equal(decimal.NewFromInt(100)))
	}
	assert.True(t, approved.BorrowerBalance.Equal(decimal.NewFromInt(1200)))

	// Approving twice must fail and generate nothing new
	resp, env = doJSON(t, "POST", "/api/v1/loans/"+loan.LoanID+"/approve", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", env.Code)

	// Pay 250: two rows filled, 50 into the third
	resp, env = doJSON(t, "POST", "/api/v1/loans/"+loan.LoanID+"/payment", map[string]interface{}{
		"amount": 250.00,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var payment domain.RecordPaymentResponse
	require.NoError(t, json.Unmarshal(env.Data, &payment))
	assert.True(t, payment.LoanBalance.Equal(decimal.NewFromInt(950)))
	assert.True(t, payment.BorrowerBalance.Equal(decimal.NewFromInt(950)))
	assert.Equal(t, domain.LoanStatusApproved, payment.LoanStatus)

	// Balance endpoint agrees with the payment response
	resp, env = doJSON(t, "GET", "/api/v1/borrowers/ACC900001/balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var balance domain.BorrowerBalanceResponse
	require.NoError(t, json.Unmarshal(env.Data, &balance))
	assert.True(t, balance.CurrentBalance.Equal(decimal.NewFromInt(950)))

	// Loan details reflect the allocation
	resp, env = doJSON(t, "GET", "/api/v1/loans/"+loan.LoanID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var details domain.LoanDetailsResponse
	require.NoError(t, json.Unmarshal(env.Data, &details))
	require.Len(t, details.Schedule, 12)
	assert.True(t, details.Schedule[0].IsPaid)
	assert.True(t, details.Schedule[1].IsPaid)
	assert.False(t, details.Schedule[2].IsPaid)
	assert.True(t, details.Schedule[2].PaidAmount.Equal(decimal.NewFromInt(50)))
}

func TestLoanRepaidInFull(t *testing.T) {
	resp, env := doJSON(t, "POST", "/api/v1/borrowers", map[string]interface{}{
		"name":       "Budi Santoso",
		"account_no": "ACC900002",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var borrower domain.Borrower
	require.NoError(t, json.Unmarshal(env.Data, &borrower))

	resp, env = doJSON(t, "POST", "/api/v1/loans", map[string]interface{}{
		"borrower_id": borrower.ID,
		"amount":      100.00,
		"months":      3,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var loan domain.Loan
	require.NoError(t, json.Unmarshal(env.Data, &loan))

	resp, _ = doJSON(t, "POST", "/api/v1/loans/"+loan.LoanID+"/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, amount := range []float64{33.34, 66.66} {
		resp, env = doJSON(t, "POST", "/api/v1/loans/"+loan.LoanID+"/payment", map[string]interface{}{
			"amount": amount,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	var payment domain.RecordPaymentResponse
	require.NoError(t, json.Unmarshal(env.Data, &payment))
	assert.Equal(t, domain.LoanStatusRepaid, payment.LoanStatus)
	assert.True(t, payment.LoanBalance.IsZero())
	assert.True(t, payment.BorrowerBalance.IsZero())

	// A repaid loan accepts no further payments
	resp, env = doJSON(t, "POST", "/api/v1/loans/"+loan.LoanID+"/payment", map[string]interface{}{
		"amount": 10.00,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_LOAN_STATE", env.Code)
}

func TestOverpaymentRejected(t *testing.T) {
	resp, env := doJSON(t, "POST", "/api/v1/borrowers", map[string]interface{}{
		"name":       "Citra Lestari",
		"account_no": "ACC900003",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var borrower domain.Borrower
	require.NoError(t, json.Unmarshal(env.Data, &borrower))

	resp, env = doJSON(t, "POST", "/api/v1/loans", map[string]interface{}{
		"borrower_id": borrower.ID,
		"amount":      200.00,
		"months":      2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var loan domain.Loan
	require.NoError(t, json.Unmarshal(env.Data, &loan))

	resp, _ = doJSON(t, "POST", "/api/v1/loans/"+loan.LoanID+"/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = doJSON(t, "POST", "/api/v1/loans/"+loan.LoanID+"/payment", map[string]interface{}{
		"amount": 200.01,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "OVERPAYMENT", env.Code)

	// The rejected payment must not have touched the balance
	resp, env = doJSON(t, "GET", "/api/v1/borrowers/ACC900003/balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var balance domain.BorrowerBalanceResponse
	require.NoError(t, json.Unmarshal(env.Data, &balance))
	assert.True(t, balance.CurrentBalance.Equal(decimal.NewFromInt(200)))
}

