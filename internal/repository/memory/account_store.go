package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"atm_ledger/internal/domain"
	"atm_ledger/internal/repository"
)

// AccountStore keeps accounts as heap-allocated entries behind a map, so
// growing the map never moves an account a caller already holds.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[int64]*domain.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[int64]*domain.Account),
	}
}

func (s *AccountStore) Add(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.ID()]; exists {
		return fmt.Errorf("%w: account %d", repository.ErrDuplicateID, account.ID())
	}

	s.accounts[account.ID()] = account
	return nil
}

func (s *AccountStore) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, exists := s.accounts[id]
	if !exists {
		return nil, fmt.Errorf("%w: account %d", repository.ErrAccountNotFound, id)
	}
	return account, nil
}

func (s *AccountStore) List(ctx context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		result = append(result, account)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID() < result[j].ID()
	})

	return result, nil
}

func (s *AccountStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}
