package internal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"atm_ledger/internal/api"
	"atm_ledger/internal/repository/memory"
	"atm_ledger/internal/service"
	"atm_ledger/pkg/crypto"
	"atm_ledger/pkg/metrics"
)

type testEnv struct {
	store    *memory.AccountStore
	ledger   *service.LedgerService
	receipts *service.ReceiptService
	server   *httptest.Server
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.Default()
	store := memory.NewAccountStore()
	receipts := service.NewReceiptService(&service.LogSender{Logger: logger}, "Rs.", 2, 128, logger)
	ledger := service.NewLedgerService(
		store,
		crypto.NewPINHasher("test-secret", logger),
		metrics.NewMetricsCollector(logger),
		receipts,
		logger,
	)

	mux := http.NewServeMux()
	api.NewAPIHandler(ledger, "Rs.", logger).RegisterRoutes(mux)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		_ = receipts.Shutdown(context.Background())
	})

	return &testEnv{store: store, ledger: ledger, receipts: receipts, server: server}
}

func (env *testEnv) do(t *testing.T, method, path string, id int64, pin string, body any, out any) int {
	t.Helper()
	code, err := env.tryDo(method, path, id, pin, body, out)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return code
}

func (env *testEnv) tryDo(method, path string, id int64, pin string, body any, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, fmt.Errorf("encode body: %w", err)
		}
	}
	req, err := http.NewRequest(method, env.server.URL+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if id != 0 {
		req.Header.Set(api.HeaderAccountID, strconv.FormatInt(id, 10))
		req.Header.Set(api.HeaderPIN, pin)
	}

	resp, err := env.server.Client().Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (env *testEnv) provision(t *testing.T, id int64, name, pin string) {
	t.Helper()
	code := env.do(t, "POST", "/api/v1/accounts", 0, "", api.CreateAccountRequest{ID: id, Name: name, PIN: pin}, nil)
	if code != http.StatusCreated {
		t.Fatalf("provision %s: expected 201, got %d", name, code)
	}
}

func TestIntegration_ATMScenario(t *testing.T) {
	env := setup(t)
	env.provision(t, 1, "Sara", "1234")
	env.provision(t, 2, "Sarim", "4321")

	var acc api.AccountResponse
	if code := env.do(t, "POST", "/api/v1/account/deposit", 1, "1234", api.AmountRequest{Amount: 10000}, &acc); code != http.StatusOK {
		t.Fatalf("deposit: expected 200, got %d", code)
	}
	if acc.Balance != 10000 || acc.BalanceDisplay != "Rs. 100.00" {
		t.Fatalf("unexpected deposit response %+v", acc)
	}

	if code := env.do(t, "POST", "/api/v1/account/withdraw", 1, "1234", api.AmountRequest{Amount: 3000}, &acc); code != http.StatusOK {
		t.Fatalf("withdraw: expected 200, got %d", code)
	}
	if acc.Balance != 7000 {
		t.Fatalf("expected balance 7000, got %d", acc.Balance)
	}

	if code := env.do(t, "POST", "/api/v1/account/withdraw", 1, "1234", api.AmountRequest{Amount: 999999}, nil); code != http.StatusConflict {
		t.Fatalf("overdraw: expected 409, got %d", code)
	}

	var tr api.TransferResponse
	if code := env.do(t, "POST", "/api/v1/account/transfer", 1, "1234", api.TransferRequest{TargetID: 2, Amount: 2000}, &tr); code != http.StatusOK {
		t.Fatalf("transfer: expected 200, got %d", code)
	}
	if tr.Balance != 5000 {
		t.Fatalf("expected source balance 5000, got %d", tr.Balance)
	}

	if code := env.do(t, "GET", "/api/v1/account/balance", 2, "4321", nil, &acc); code != http.StatusOK || acc.Balance != 2000 {
		t.Fatalf("expected target balance 2000, got %d (status %d)", acc.Balance, code)
	}

	var hist []api.HistoryEntry
	if code := env.do(t, "GET", "/api/v1/account/history", 1, "1234", nil, &hist); code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", code)
	}
	if len(hist) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(hist))
	}
	if hist[2].Type != "transfer_out" || hist[2].Counterparty != "Sarim" || hist[2].AmountDisplay != "Rs. 20.00" {
		t.Errorf("unexpected last entry %+v", hist[2])
	}

	if code := env.do(t, "POST", "/api/v1/account/transfer", 1, "1234", api.TransferRequest{TargetID: 1, Amount: 100}, nil); code != http.StatusBadRequest {
		t.Errorf("self transfer: expected 400, got %d", code)
	}
	if code := env.do(t, "POST", "/api/v1/account/transfer", 1, "1234", api.TransferRequest{TargetID: 3, Amount: 100}, nil); code != http.StatusNotFound {
		t.Errorf("unknown target: expected 404, got %d", code)
	}
	if code := env.do(t, "POST", "/api/v1/account/deposit", 1, "1234", api.AmountRequest{Amount: -5}, nil); code != http.StatusBadRequest {
		t.Errorf("negative deposit: expected 400, got %d", code)
	}
}

func TestIntegration_DepositOverflowIsRejected(t *testing.T) {
	env := setup(t)
	env.provision(t, 1, "Sara", "1234")

	if code := env.do(t, "POST", "/api/v1/account/deposit", 1, "1234", api.AmountRequest{Amount: math.MaxInt64}, nil); code != http.StatusOK {
		t.Fatalf("first deposit: expected 200, got %d", code)
	}
	if code := env.do(t, "POST", "/api/v1/account/deposit", 1, "1234", api.AmountRequest{Amount: 1}, nil); code != http.StatusConflict {
		t.Fatalf("overflowing deposit: expected 409, got %d", code)
	}

	var acc api.AccountResponse
	if code := env.do(t, "GET", "/api/v1/account/balance", 1, "1234", nil, &acc); code != http.StatusOK || acc.Balance != math.MaxInt64 {
		t.Errorf("expected balance MaxInt64, got %d (status %d)", acc.Balance, code)
	}
}

func TestIntegration_AuthFailuresAreIndistinguishable(t *testing.T) {
	env := setup(t)
	env.provision(t, 1, "Sara", "1234")

	wrongPIN := env.do(t, "GET", "/api/v1/account/balance", 1, "9999", nil, nil)
	unknownID := env.do(t, "GET", "/api/v1/account/balance", 999, "1234", nil, nil)

	if wrongPIN != http.StatusUnauthorized || unknownID != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both, got %d and %d", wrongPIN, unknownID)
	}
}

func TestIntegration_ProvisionConflicts(t *testing.T) {
	env := setup(t)
	env.provision(t, 1, "Sara", "1234")

	if code := env.do(t, "POST", "/api/v1/accounts", 0, "", api.CreateAccountRequest{ID: 1, Name: "Again", PIN: "1111"}, nil); code != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", code)
	}
	if code := env.do(t, "POST", "/api/v1/accounts", 0, "", api.CreateAccountRequest{ID: 2, Name: "", PIN: "1"}, nil); code != http.StatusBadRequest {
		t.Errorf("invalid: expected 400, got %d", code)
	}
}

func TestIntegration_ConcurrentTransfers(t *testing.T) {
	env := setup(t)
	env.provision(t, 1, "A", "1111")
	env.provision(t, 2, "B", "2222")
	ctx := context.Background()
	a, _ := env.ledger.Authenticate(ctx, 1, "1111")
	b, _ := env.ledger.Authenticate(ctx, 2, "2222")
	_, _ = env.ledger.Deposit(ctx, a, 500)
	_, _ = env.ledger.Deposit(ctx, b, 500)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if code, err := env.tryDo("POST", "/api/v1/account/transfer", 1, "1111", api.TransferRequest{TargetID: 2, Amount: 5}, nil); err != nil || code != http.StatusOK {
				t.Errorf("A->B: status %d, err %v", code, err)
			}
		}()
		go func() {
			defer wg.Done()
			if code, err := env.tryDo("POST", "/api/v1/account/transfer", 2, "2222", api.TransferRequest{TargetID: 1, Amount: 5}, nil); err != nil || code != http.StatusOK {
				t.Errorf("B->A: status %d, err %v", code, err)
			}
		}()
	}
	wg.Wait()

	if a.Balance() != 500 || b.Balance() != 500 {
		t.Errorf("expected balances 500/500, got %d/%d", a.Balance(), b.Balance())
	}
	if a.HistoryLen() != 1+2*n {
		t.Errorf("expected %d records, got %d", 1+2*n, a.HistoryLen())
	}
}
