package handler

import (
	"encoding/json"
	"net/http"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/service"
	"github.com/segyhp/loan-ledger/pkg/response"
)

type LedgerHandler struct {
	service   *service.LedgerService
	validator *validator.Validate
}

func NewLedgerHandler(service *service.LedgerService) *LedgerHandler {
	v := validator.New()

	// Teach the validator to compare decimal amounts with gt/gte tags
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return &LedgerHandler{
		service:   service,
		validator: v,
	}
}

// CreateBorrower handles POST /borrowers
func (h *LedgerHandler) CreateBorrower(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateBorrowerRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	borrower, err := h.service.CreateBorrower(r.Context(), &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, borrower)
}

// ListBorrowers handles GET /borrowers
func (h *LedgerHandler) ListBorrowers(w http.ResponseWriter, r *http.Request) {
	borrowers, err := h.service.ListBorrowers(r.Context())
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, borrowers)
}

// DeleteBorrower handles DELETE /borrowers/{borrowerId}
func (h *LedgerHandler) DeleteBorrower(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["borrowerId"])
	if err != nil {
		response.BadRequest(w, "invalid borrower id", err)
		return
	}

	if err := h.service.DeleteBorrower(r.Context(), id); err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, nil)
}

// GetBorrowerBalance handles GET /borrowers/{accountNo}/balance
func (h *LedgerHandler) GetBorrowerBalance(w http.ResponseWriter, r *http.Request) {
	accountNo := mux.Vars(r)["accountNo"]

	balance, err := h.service.GetBorrowerBalance(r.Context(), accountNo)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, balance)
}

// ListBorrowerLoans handles GET /borrowers/{borrowerId}/loans
func (h *LedgerHandler) ListBorrowerLoans(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["borrowerId"])
	if err != nil {
		response.BadRequest(w, "invalid borrower id", err)
		return
	}

	loans, err := h.service.ListLoansByBorrower(r.Context(), id)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, loans)
}

// CreateLoan handles POST /loans
func (h *LedgerHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, loan)
}

// GetLoan handles GET /loans/{loanId}
func (h *LedgerHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	details, err := h.service.GetLoanDetails(r.Context(), loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, details)
}

// ApproveLoan handles POST /loans/{loanId}/approve
func (h *LedgerHandler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	result, err := h.service.Approve(r.Context(), loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, result)
}

// RejectLoan handles POST /loans/{loanId}/reject
func (h *LedgerHandler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	loan, err := h.service.Reject(r.Context(), loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, loan)
}

// RecordPayment handles POST /loans/{loanId}/payment
func (h *LedgerHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	var request domain.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	paidOn := time.Now()
	if request.PaidOn != nil {
		paidOn = *request.PaidOn
	}

	result, err := h.service.RecordPayment(r.Context(), loanID, request.Amount, paidOn)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, result)
}
