package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"atm_ledger/internal/domain"
	"atm_ledger/internal/repository"
)

type Side string

const (
	SideSource Side = "source"
	SideTarget Side = "target"
)

// AccountNotFoundError reports which side of a transfer did not resolve.
type AccountNotFoundError struct {
	Side Side
	ID   int64
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("%s account %d not found", e.Side, e.ID)
}

func (e *AccountNotFoundError) Unwrap() error {
	return repository.ErrAccountNotFound
}

type TransferResult struct {
	SourceID      int64
	TargetID      int64
	Amount        int64
	SourceBalance int64
	TargetBalance int64
	Debit         domain.Record
	Credit        domain.Record
}

// TransferCoordinator moves funds between two accounts of a store. It holds no
// state of its own; both guards are taken lower id first so that opposite
// transfers between the same pair cannot deadlock.
type TransferCoordinator struct {
	store  repository.AccountStore
	logger *slog.Logger
	now    func() time.Time
}

func NewTransferCoordinator(store repository.AccountStore, logger *slog.Logger) *TransferCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransferCoordinator{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (c *TransferCoordinator) Transfer(ctx context.Context, sourceID, targetID, amount int64) (*TransferResult, error) {
	source, err := c.resolve(ctx, SideSource, sourceID)
	if err != nil {
		return nil, err
	}
	target, err := c.resolve(ctx, SideTarget, targetID)
	if err != nil {
		return nil, err
	}

	if sourceID == targetID {
		return nil, fmt.Errorf("%w: account %d", domain.ErrSelfTransfer, sourceID)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidAmount, amount)
	}

	unlock := lockOrdered(source, target)
	defer unlock()

	// Both sides are checked before either is mutated.
	if amount > source.BalanceLocked() {
		return nil, fmt.Errorf("%w: account %d", domain.ErrInsufficientFunds, sourceID)
	}
	if !target.CanCreditLocked(amount) {
		return nil, fmt.Errorf("%w: account %d", domain.ErrBalanceOverflow, targetID)
	}

	at := c.now()
	debit, err := source.TransferOutLocked(amount, target.DisplayName(), at)
	if err != nil {
		return nil, err
	}
	credit, err := target.TransferInLocked(amount, source.DisplayName(), at)
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "Transfer completed",
		slog.Int64("from_account", sourceID),
		slog.Int64("to_account", targetID),
		slog.Int64("amount", amount))

	return &TransferResult{
		SourceID:      sourceID,
		TargetID:      targetID,
		Amount:        amount,
		SourceBalance: debit.BalanceAfter,
		TargetBalance: credit.BalanceAfter,
		Debit:         debit,
		Credit:        credit,
	}, nil
}

func (c *TransferCoordinator) resolve(ctx context.Context, side Side, id int64) (*domain.Account, error) {
	account, err := c.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, &AccountNotFoundError{Side: side, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s account: %w", side, err)
	}
	return account, nil
}

// lockOrdered locks a and b in ascending id order and returns the release func.
func lockOrdered(a, b *domain.Account) func() {
	first, second := a, b
	if b.ID() < a.ID() {
		first, second = b, a
	}
	first.Lock()
	second.Lock()
	return func() {
		second.Unlock()
		first.Unlock()
	}
}
