package ledger

import (
	"errors"
	"math"
)

var (
	// ErrInsufficientBalance is returned by Debit when the identity holds
	// less than the requested amount.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	// ErrBalanceOverflow is returned by Credit when the resulting balance
	// would exceed the uint64 range.
	ErrBalanceOverflow = errors.New("ledger: balance overflow")
)

// Ledger is the balance-tracking capability consumed by the agreement engine.
// Implementations must make each call atomic with respect to the others.
type Ledger interface {
	Debit(addr [20]byte, amount uint64) error
	Credit(addr [20]byte, amount uint64) error
	BalanceOf(addr [20]byte) (uint64, error)
}

func addBalance(current, amount uint64) (uint64, error) {
	if current > math.MaxUint64-amount {
		return 0, ErrBalanceOverflow
	}
	return current + amount, nil
}

func subBalance(current, amount uint64) (uint64, error) {
	if current < amount {
		return 0, ErrInsufficientBalance
	}
	return current - amount, nil
}
