package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"atm_ledger/internal/domain"
	"atm_ledger/internal/repository"
	"atm_ledger/internal/service"
	"atm_ledger/pkg/money"
	"atm_ledger/pkg/validator"
)

const (
	HeaderAccountID = "X-Account-ID"
	HeaderPIN       = "X-Account-PIN"
)

type APIHandler struct {
	ledger         *service.LedgerService
	symbol         string
	logger         *slog.Logger
	requestTimeout time.Duration
}

func NewAPIHandler(ledger *service.LedgerService, symbol string, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &APIHandler{
		ledger:         ledger,
		symbol:         symbol,
		logger:         logger,
		requestTimeout: 30 * time.Second,
	}
}

type CreateAccountRequest struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	PIN  string `json:"pin"`
}

type AmountRequest struct {
	Amount int64 `json:"amount"`
}

type TransferRequest struct {
	TargetID int64 `json:"target_id"`
	Amount   int64 `json:"amount"`
}

type AccountResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Balance        int64  `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
}

type TransferResponse struct {
	From           int64  `json:"from"`
	To             int64  `json:"to"`
	Amount         int64  `json:"amount"`
	Balance        int64  `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
}

type HistoryEntry struct {
	domain.Record
	AmountDisplay string `json:"amount_display"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type authedHandler func(w http.ResponseWriter, r *http.Request, account *domain.Account)

func (h *APIHandler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	account, err := h.ledger.ProvisionAccount(ctx, req.Name, req.ID, req.PIN)
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}

	h.sendJSON(w, h.balanceResponse(account, 0), http.StatusCreated)
}

func (h *APIHandler) BalanceHandler(w http.ResponseWriter, r *http.Request, account *domain.Account) {
	h.sendJSON(w, h.balanceResponse(account, h.ledger.GetBalance(account)), http.StatusOK)
}

func (h *APIHandler) WithdrawHandler(w http.ResponseWriter, r *http.Request, account *domain.Account) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	balance, err := h.ledger.Withdraw(r.Context(), account, req.Amount)
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}

	h.sendJSON(w, h.balanceResponse(account, balance), http.StatusOK)
}

func (h *APIHandler) DepositHandler(w http.ResponseWriter, r *http.Request, account *domain.Account) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	balance, err := h.ledger.Deposit(r.Context(), account, req.Amount)
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}

	h.sendJSON(w, h.balanceResponse(account, balance), http.StatusOK)
}

func (h *APIHandler) TransferHandler(w http.ResponseWriter, r *http.Request, account *domain.Account) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	res, err := h.ledger.Transfer(r.Context(), account, req.TargetID, req.Amount)
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}

	h.sendJSON(w, TransferResponse{
		From:           res.SourceID,
		To:             res.TargetID,
		Amount:         res.Amount,
		Balance:        res.SourceBalance,
		BalanceDisplay: money.FormatWithSymbol(h.symbol, res.SourceBalance),
	}, http.StatusOK)
}

func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request, account *domain.Account) {
	entries := []HistoryEntry{}
	for rec := range h.ledger.GetHistory(account) {
		entries = append(entries, HistoryEntry{
			Record:        rec,
			AmountDisplay: money.FormatWithSymbol(h.symbol, rec.Amount),
		})
	}
	h.sendJSON(w, entries, http.StatusOK)
}

func (h *APIHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	}
	h.sendJSON(w, response, http.StatusOK)
}

// authenticated resolves the caller from the credential headers. Every failure
// produces the same 401 so the response does not reveal which ids exist.
func (h *APIHandler) authenticated(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()
		r = r.WithContext(ctx)

		id, err := strconv.ParseInt(r.Header.Get(HeaderAccountID), 10, 64)
		if err != nil {
			h.sendLedgerError(w, domain.ErrAuthFailed)
			return
		}

		account, err := h.ledger.Authenticate(ctx, id, r.Header.Get(HeaderPIN))
		if err != nil {
			h.sendLedgerError(w, err)
			return
		}

		next(w, r, account)
	}
}

func (h *APIHandler) balanceResponse(account *domain.Account, balance int64) AccountResponse {
	return AccountResponse{
		ID:             account.ID(),
		Name:           account.DisplayName(),
		Balance:        balance,
		BalanceDisplay: money.FormatWithSymbol(h.symbol, balance),
	}
}

func (h *APIHandler) sendLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAuthFailed):
		h.sendError(w, domain.ErrAuthFailed.Error(), http.StatusUnauthorized, "AUTH_FAILED")
	case errors.Is(err, domain.ErrInvalidAmount):
		h.sendError(w, err.Error(), http.StatusBadRequest, "INVALID_AMOUNT")
	case errors.Is(err, domain.ErrSelfTransfer):
		h.sendError(w, err.Error(), http.StatusBadRequest, "SELF_TRANSFER")
	case errors.Is(err, domain.ErrInsufficientFunds):
		h.sendError(w, err.Error(), http.StatusConflict, "INSUFFICIENT_FUNDS")
	case errors.Is(err, domain.ErrBalanceOverflow):
		h.sendError(w, err.Error(), http.StatusConflict, "BALANCE_OVERFLOW")
	case errors.Is(err, repository.ErrAccountNotFound):
		h.sendError(w, err.Error(), http.StatusNotFound, "ACCOUNT_NOT_FOUND")
	case errors.Is(err, repository.ErrDuplicateID):
		h.sendError(w, err.Error(), http.StatusConflict, "DUPLICATE_ID")
	case errors.Is(err, validator.ErrInvalidAccountID),
		errors.Is(err, validator.ErrInvalidName),
		errors.Is(err, validator.ErrInvalidPIN):
		h.sendError(w, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
	default:
		h.logger.Error("Ledger operation failed", slog.String("error", err.Error()))
		h.sendError(w, "Internal error", http.StatusInternalServerError, "SERVER_ERROR")
	}
}

func (h *APIHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func (h *APIHandler) sendError(w http.ResponseWriter, message string, statusCode int, code string) {
	errorResponse := ErrorResponse{
		Error: message,
		Code:  code,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse)

	h.logger.Warn("API error response",
		slog.String("message", message),
		slog.String("code", code),
		slog.Int("status", statusCode))
}

func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/accounts", h.CreateAccountHandler)
	mux.HandleFunc("GET /api/v1/account/balance", h.authenticated(h.BalanceHandler))
	mux.HandleFunc("POST /api/v1/account/withdraw", h.authenticated(h.WithdrawHandler))
	mux.HandleFunc("POST /api/v1/account/deposit", h.authenticated(h.DepositHandler))
	mux.HandleFunc("POST /api/v1/account/transfer", h.authenticated(h.TransferHandler))
	mux.HandleFunc("GET /api/v1/account/history", h.authenticated(h.HistoryHandler))
	mux.HandleFunc("GET /api/health", h.HealthCheckHandler)
}
