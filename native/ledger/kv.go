package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"pactd/core/types"
	"pactd/storage"
)

var accountPrefix = []byte("ledger/account/")

// KV is a Ledger persisted in a key-value database. Accounts are stored
// RLP-encoded under a per-address key; a single mutex keeps each debit or
// credit atomic.
type KV struct {
	mu sync.Mutex
	db storage.Database
}

// NewKV wraps the supplied database in a persistent ledger.
func NewKV(db storage.Database) (*KV, error) {
	if db == nil {
		return nil, fmt.Errorf("ledger: database required")
	}
	return &KV{db: db}, nil
}

func accountKey(addr [20]byte) []byte {
	key := make([]byte, 0, len(accountPrefix)+len(addr))
	key = append(key, accountPrefix...)
	return append(key, addr[:]...)
}

func (l *KV) loadAccount(addr [20]byte) (*types.Account, error) {
	data, err := l.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return &types.Account{}, nil
	}
	if err != nil {
		return nil, err
	}
	account := new(types.Account)
	if err := rlp.DecodeBytes(data, account); err != nil {
		return nil, fmt.Errorf("ledger: decode account: %w", err)
	}
	return account, nil
}

func (l *KV) storeAccount(addr [20]byte, account *types.Account) error {
	encoded, err := rlp.EncodeToBytes(account)
	if err != nil {
		return fmt.Errorf("ledger: encode account: %w", err)
	}
	return l.db.Put(accountKey(addr), encoded)
}

// Debit removes amount from the identity's balance.
func (l *KV) Debit(addr [20]byte, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	account, err := l.loadAccount(addr)
	if err != nil {
		return err
	}
	next, err := subBalance(account.Balance, amount)
	if err != nil {
		return err
	}
	account.Balance = next
	return l.storeAccount(addr, account)
}

// Credit adds amount to the identity's balance.
func (l *KV) Credit(addr [20]byte, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	account, err := l.loadAccount(addr)
	if err != nil {
		return err
	}
	next, err := addBalance(account.Balance, amount)
	if err != nil {
		return err
	}
	account.Balance = next
	return l.storeAccount(addr, account)
}

// BalanceOf reports the identity's current balance. Unknown identities hold
// zero.
func (l *KV) BalanceOf(addr [20]byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	account, err := l.loadAccount(addr)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}
