package ledger

import "sync"

// Mem is an in-memory Ledger used by tests and local tooling.
type Mem struct {
	mu       sync.Mutex
	balances map[[20]byte]uint64
}

// NewMem returns an empty in-memory ledger.
func NewMem() *Mem {
	return &Mem{balances: make(map[[20]byte]uint64)}
}

// Seed sets an identity's balance directly, bypassing overflow checks. Test
// helper only.
func (l *Mem) Seed(addr [20]byte, balance uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[addr] = balance
}

// Debit removes amount from the identity's balance.
func (l *Mem) Debit(addr [20]byte, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	next, err := subBalance(l.balances[addr], amount)
	if err != nil {
		return err
	}
	l.balances[addr] = next
	return nil
}

// Credit adds amount to the identity's balance.
func (l *Mem) Credit(addr [20]byte, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	next, err := addBalance(l.balances[addr], amount)
	if err != nil {
		return err
	}
	l.balances[addr] = next
	return nil
}

// BalanceOf reports the identity's current balance.
func (l *Mem) BalanceOf(addr [20]byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[addr], nil
}
