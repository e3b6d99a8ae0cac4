package types

// Account tracks the fungible balance held by a single identity. Balances are
// unsigned 64-bit quantities; arithmetic on them must guard against wraparound.
type Account struct {
	Nonce   uint64 `json:"nonce"`
	Balance uint64 `json:"balance"`
}

// Copy returns an independent copy of the account.
func (a *Account) Copy() *Account {
	if a == nil {
		return &Account{}
	}
	clone := *a
	return &clone
}
