package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TypeWithdraw    TransactionType = "withdraw"
	TypeDeposit     TransactionType = "deposit"
	TypeTransferOut TransactionType = "transfer_out"
	TypeTransferIn  TransactionType = "transfer_in"
)

// Record is one entry of an account history. Amount and BalanceAfter are minor units.
type Record struct {
	ID           string          `json:"id"`
	Type         TransactionType `json:"type"`
	Amount       int64           `json:"amount"`
	Counterparty string          `json:"counterparty,omitempty"`
	BalanceAfter int64           `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

func newRecord(t TransactionType, amount, balanceAfter int64, counterparty string, at time.Time) Record {
	return Record{
		ID:           uuid.NewString(),
		Type:         t,
		Amount:       amount,
		Counterparty: counterparty,
		BalanceAfter: balanceAfter,
		CreatedAt:    at,
	}
}

func (r Record) IsDebit() bool {
	return r.Type == TypeWithdraw || r.Type == TypeTransferOut
}
