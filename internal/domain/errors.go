package domain

import "errors"

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSelfTransfer      = errors.New("cannot transfer to the same account")
	ErrBalanceOverflow   = errors.New("balance would exceed the representable maximum")
	// ErrAuthFailed is returned for an unknown id and for a wrong PIN alike.
	ErrAuthFailed = errors.New("invalid account id or pin")
)
