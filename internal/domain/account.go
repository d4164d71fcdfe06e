package domain

import (
	"fmt"
	"iter"
	"math"
	"sync"
	"time"
)

// Credential is a secret an account can be unlocked with.
// Implementations must compare in constant time.
type Credential interface {
	Matches(candidate string) bool
}

// Account owns its balance and history. All mutations go through mu.
type Account struct {
	id          int64
	displayName string
	credential  Credential

	mu      sync.Mutex
	balance int64
	history []Record
	now     func() time.Time
}

func NewAccount(id int64, displayName string, credential Credential) *Account {
	return &Account{
		id:          id,
		displayName: displayName,
		credential:  credential,
		now:         time.Now,
	}
}

func (a *Account) ID() int64 {
	return a.id
}

func (a *Account) DisplayName() string {
	return a.displayName
}

func (a *Account) ValidateCredential(candidate string) bool {
	if a.credential == nil {
		return false
	}
	return a.credential.Matches(candidate)
}

func (a *Account) Balance() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

func (a *Account) Withdraw(amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if amount > a.balance {
		return 0, fmt.Errorf("%w: account %d", ErrInsufficientFunds, a.id)
	}

	a.balance -= amount
	a.history = append(a.history, newRecord(TypeWithdraw, amount, a.balance, "", a.now()))
	return a.balance, nil
}

func (a *Account) Deposit(amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.canCredit(amount) {
		return 0, fmt.Errorf("%w: account %d", ErrBalanceOverflow, a.id)
	}

	a.balance += amount
	a.history = append(a.history, newRecord(TypeDeposit, amount, a.balance, "", a.now()))
	return a.balance, nil
}

// History yields the records present when iteration starts, oldest first.
// Each call starts over, so a later call also sees records appended since.
func (a *Account) History() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, r := range a.Records() {
			if !yield(r) {
				return
			}
		}
	}
}

func (a *Account) Records() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Record, len(a.history))
	copy(out, a.history)
	return out
}

func (a *Account) HistoryLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.history)
}

// Lock acquires the account guard. Transfers hold the guards of both sides
// while calling the *Locked methods below.
func (a *Account) Lock() {
	a.mu.Lock()
}

func (a *Account) Unlock() {
	a.mu.Unlock()
}

// BalanceLocked reads the balance. The caller must hold the guard.
func (a *Account) BalanceLocked() int64 {
	return a.balance
}

// CanCreditLocked reports whether amount can be added without overflowing.
// The caller must hold the guard.
func (a *Account) CanCreditLocked(amount int64) bool {
	return a.canCredit(amount)
}

func (a *Account) canCredit(amount int64) bool {
	return amount <= math.MaxInt64-a.balance
}

// TransferOutLocked debits amount towards counterparty. The caller must hold the guard.
func (a *Account) TransferOutLocked(amount int64, counterparty string, at time.Time) (Record, error) {
	if amount <= 0 {
		return Record{}, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if amount > a.balance {
		return Record{}, fmt.Errorf("%w: account %d", ErrInsufficientFunds, a.id)
	}

	a.balance -= amount
	r := newRecord(TypeTransferOut, amount, a.balance, counterparty, at)
	a.history = append(a.history, r)
	return r, nil
}

// TransferInLocked credits amount received from counterparty. The caller must hold the guard.
func (a *Account) TransferInLocked(amount int64, counterparty string, at time.Time) (Record, error) {
	if amount <= 0 {
		return Record{}, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if !a.canCredit(amount) {
		return Record{}, fmt.Errorf("%w: account %d", ErrBalanceOverflow, a.id)
	}

	a.balance += amount
	r := newRecord(TypeTransferIn, amount, a.balance, counterparty, at)
	a.history = append(a.history, r)
	return r, nil
}
