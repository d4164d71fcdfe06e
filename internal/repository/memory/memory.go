package memory

import (
	"atm_ledger/internal/repository"
)

var (
	_ repository.AccountStore = (*AccountStore)(nil)
)
