package repository

import (
	"context"
	"errors"

	"atm_ledger/internal/domain"
)

// AccountStore owns every account of a ledger. Returned accounts are stable
// handles: they stay valid, and stay the canonical copy, after later Adds.
type AccountStore interface {
	Add(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	List(ctx context.Context) ([]*domain.Account, error)
	Count(ctx context.Context) int
}

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicateID     = errors.New("duplicate account id")
)
