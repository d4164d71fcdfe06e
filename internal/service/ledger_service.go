package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"atm_ledger/internal/domain"
	"atm_ledger/internal/processor"
	"atm_ledger/internal/repository"
	"atm_ledger/pkg/crypto"
	"atm_ledger/pkg/metrics"
	"atm_ledger/pkg/validator"

	"github.com/google/uuid"
)

// LedgerService is the synchronous API over the ledger core. Handles it returns
// are *domain.Account values owned by the store.
type LedgerService struct {
	store       repository.AccountStore
	coordinator *processor.TransferCoordinator
	hasher      *crypto.PINHasher
	decoy       domain.Credential
	validator   *validator.AccountValidator
	metrics     *metrics.MetricsCollector
	receipts    *ReceiptService
	logger      *slog.Logger
}

func NewLedgerService(
	store repository.AccountStore,
	hasher *crypto.PINHasher,
	metricsCollector *metrics.MetricsCollector,
	receipts *ReceiptService,
	logger *slog.Logger,
) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	if metricsCollector == nil {
		metricsCollector = metrics.NewMetricsCollector(logger)
	}

	return &LedgerService{
		store:       store,
		coordinator: processor.NewTransferCoordinator(store, logger),
		hasher:      hasher,
		decoy:       hasher.NewCredential(uuid.NewString()),
		validator:   validator.NewAccountValidator(),
		metrics:     metricsCollector,
		receipts:    receipts,
		logger:      logger,
	}
}

func (s *LedgerService) ProvisionAccount(ctx context.Context, name string, id int64, pin string) (*domain.Account, error) {
	start := time.Now()

	if err := s.validator.ValidateProvision(id, name, pin); err != nil {
		s.metrics.RecordOperation(metrics.OpProvision, time.Since(start), 0, false)
		return nil, err
	}

	account := domain.NewAccount(id, name, s.hasher.NewCredential(pin))
	if err := s.store.Add(ctx, account); err != nil {
		s.metrics.RecordOperation(metrics.OpProvision, time.Since(start), 0, false)
		return nil, err
	}

	s.metrics.RecordOperation(metrics.OpProvision, time.Since(start), 0, true)
	s.metrics.SetAccounts(s.store.Count(ctx))
	s.metrics.UpdateAccountBalance(id, 0)

	s.logger.InfoContext(ctx, "Account provisioned",
		slog.Int64("account_id", id),
		slog.String("name", name))

	return account, nil
}

// Authenticate returns domain.ErrAuthFailed for an unknown id and for a wrong
// PIN alike, so callers cannot probe which ids exist.
func (s *LedgerService) Authenticate(ctx context.Context, id int64, pin string) (*domain.Account, error) {
	start := time.Now()

	account, err := s.store.GetByID(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	// An unknown id still pays for one PIN comparison.
	var ok bool
	if account == nil {
		s.decoy.Matches(pin)
	} else {
		ok = account.ValidateCredential(pin)
	}

	if !ok {
		s.metrics.RecordOperation(metrics.OpAuthenticate, time.Since(start), 0, false)
		s.logger.WarnContext(ctx, "Authentication failed", slog.Int64("account_id", id))
		return nil, domain.ErrAuthFailed
	}

	s.metrics.RecordOperation(metrics.OpAuthenticate, time.Since(start), 0, true)
	return account, nil
}

func (s *LedgerService) GetBalance(handle *domain.Account) int64 {
	return handle.Balance()
}

func (s *LedgerService) Withdraw(ctx context.Context, handle *domain.Account, amount int64) (int64, error) {
	start := time.Now()

	balance, err := handle.Withdraw(amount)
	s.metrics.RecordOperation(metrics.OpWithdraw, time.Since(start), amount, err == nil)
	if err != nil {
		s.logger.WarnContext(ctx, "Withdrawal rejected",
			slog.Int64("account_id", handle.ID()),
			slog.Int64("amount", amount),
			slog.String("error", err.Error()))
		return 0, err
	}

	s.metrics.UpdateAccountBalance(handle.ID(), balance)
	s.logger.InfoContext(ctx, "Withdrawal completed",
		slog.Int64("account_id", handle.ID()),
		slog.Int64("amount", amount))
	s.sendReceipt(ctx, Receipt{
		Type:      domain.TypeWithdraw,
		AccountID: handle.ID(),
		Name:      handle.DisplayName(),
		Amount:    amount,
		Balance:   balance,
	})

	return balance, nil
}

func (s *LedgerService) Deposit(ctx context.Context, handle *domain.Account, amount int64) (int64, error) {
	start := time.Now()

	balance, err := handle.Deposit(amount)
	s.metrics.RecordOperation(metrics.OpDeposit, time.Since(start), amount, err == nil)
	if err != nil {
		s.logger.WarnContext(ctx, "Deposit rejected",
			slog.Int64("account_id", handle.ID()),
			slog.Int64("amount", amount),
			slog.String("error", err.Error()))
		return 0, err
	}

	s.metrics.UpdateAccountBalance(handle.ID(), balance)
	s.logger.InfoContext(ctx, "Deposit completed",
		slog.Int64("account_id", handle.ID()),
		slog.Int64("amount", amount))
	s.sendReceipt(ctx, Receipt{
		Type:      domain.TypeDeposit,
		AccountID: handle.ID(),
		Name:      handle.DisplayName(),
		Amount:    amount,
		Balance:   balance,
	})

	return balance, nil
}

func (s *LedgerService) Transfer(ctx context.Context, source *domain.Account, targetID, amount int64) (*processor.TransferResult, error) {
	start := time.Now()

	res, err := s.coordinator.Transfer(ctx, source.ID(), targetID, amount)
	s.metrics.RecordOperation(metrics.OpTransfer, time.Since(start), amount, err == nil)
	if err != nil {
		s.logger.WarnContext(ctx, "Transfer rejected",
			slog.Int64("from_account", source.ID()),
			slog.Int64("to_account", targetID),
			slog.Int64("amount", amount),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.metrics.UpdateAccountBalance(res.SourceID, res.SourceBalance)
	s.metrics.UpdateAccountBalance(res.TargetID, res.TargetBalance)
	s.sendReceipt(ctx, Receipt{
		Type:         domain.TypeTransferOut,
		AccountID:    res.SourceID,
		Name:         source.DisplayName(),
		Amount:       amount,
		Counterparty: res.Debit.Counterparty,
		Balance:      res.SourceBalance,
	})
	s.sendReceipt(ctx, Receipt{
		Type:         domain.TypeTransferIn,
		AccountID:    res.TargetID,
		Name:         res.Debit.Counterparty,
		Amount:       amount,
		Counterparty: res.Credit.Counterparty,
		Balance:      res.TargetBalance,
	})

	return res, nil
}

func (s *LedgerService) GetHistory(handle *domain.Account) iter.Seq[domain.Record] {
	return handle.History()
}

func (s *LedgerService) Accounts(ctx context.Context) ([]*domain.Account, error) {
	return s.store.List(ctx)
}

func (s *LedgerService) sendReceipt(ctx context.Context, r Receipt) {
	if s.receipts == nil {
		return
	}
	if err := s.receipts.Send(ctx, r); err != nil {
		s.logger.WarnContext(ctx, "Receipt dropped",
			slog.Int64("account_id", r.AccountID),
			slog.String("error", err.Error()))
	}
}
