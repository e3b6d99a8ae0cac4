package agreement

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"pactd/storage"
)

var (
	registryCounterKey = []byte("agreement/next-id")
	registryRecordKey  = []byte("agreement/record/")
)

// storedLock mirrors Lock with RLP-friendly field types.
type storedLock struct {
	Amount      uint64
	CommittedAt uint64
}

// storedAgreement is the persisted representation of an Agreement. Signed
// timestamps are stored as uint64 because RLP only encodes unsigned integers.
type storedAgreement struct {
	ID            uint64
	Initiator     [20]byte
	Counterparty  [20]byte
	Responder     [20]byte
	Joined        bool
	InitiatorLock storedLock
	ResponderLock *storedLock `rlp:"nil"`
	Expiration    uint64
	Refundable    bool
	CreatedAt     uint64
	Status        uint8
}

func toStored(a *Agreement) *storedAgreement {
	stored := &storedAgreement{
		ID:           a.ID,
		Initiator:    a.Initiator,
		Counterparty: a.Counterparty,
		Responder:    a.Responder,
		Joined:       a.Joined,
		InitiatorLock: storedLock{
			Amount:      a.InitiatorLock.Amount,
			CommittedAt: uint64(a.InitiatorLock.CommittedAt),
		},
		Expiration: uint64(a.Expiration),
		Refundable: a.Refundable,
		CreatedAt:  uint64(a.CreatedAt),
		Status:     uint8(a.Status),
	}
	if a.ResponderLock != nil {
		stored.ResponderLock = &storedLock{
			Amount:      a.ResponderLock.Amount,
			CommittedAt: uint64(a.ResponderLock.CommittedAt),
		}
	}
	return stored
}

func fromStored(stored *storedAgreement) *Agreement {
	out := &Agreement{
		ID:           stored.ID,
		Initiator:    stored.Initiator,
		Counterparty: stored.Counterparty,
		Responder:    stored.Responder,
		Joined:       stored.Joined,
		InitiatorLock: Lock{
			Amount:      stored.InitiatorLock.Amount,
			CommittedAt: int64(stored.InitiatorLock.CommittedAt),
		},
		Expiration: int64(stored.Expiration),
		Refundable: stored.Refundable,
		CreatedAt:  int64(stored.CreatedAt),
		Status:     Status(stored.Status),
	}
	if stored.ResponderLock != nil {
		out.ResponderLock = &Lock{
			Amount:      stored.ResponderLock.Amount,
			CommittedAt: int64(stored.ResponderLock.CommittedAt),
		}
	}
	return out
}

// KVRegistry owns the canonical copy of every agreement plus the monotonic id
// counter, persisted in a key-value database. Agreements are inserted on
// creation and never removed; terminal agreements stay queryable as history.
// All methods are safe for concurrent use.
type KVRegistry struct {
	mu sync.Mutex
	db storage.Database
}

// NewKVRegistry wraps the supplied database in an agreement registry.
func NewKVRegistry(db storage.Database) (*KVRegistry, error) {
	if db == nil {
		return nil, fmt.Errorf("agreement: registry database required")
	}
	return &KVRegistry{db: db}, nil
}

func recordKey(id uint64) []byte {
	key := make([]byte, len(registryRecordKey), len(registryRecordKey)+8)
	copy(key, registryRecordKey)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return append(key, buf[:]...)
}

// AllocateID mints a fresh, previously unused identifier. IDs are strictly
// increasing starting at 1; the counter survives restarts.
func (r *KVRegistry) AllocateID() (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := uint64(1)
	data, err := r.db.Get(registryCounterKey)
	switch {
	case err == nil:
		if len(data) != 8 {
			return 0, fmt.Errorf("agreement: malformed id counter")
		}
		next = binary.BigEndian.Uint64(data) + 1
	case errors.Is(err, storage.ErrKeyNotFound):
	default:
		return 0, err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next)
	if err := r.db.Put(registryCounterKey, buf[:]); err != nil {
		return 0, err
	}
	return next, nil
}

// Insert stores a new agreement under id. It fails with ErrDuplicateID if the
// id is already present.
func (r *KVRegistry) Insert(id uint64, a *Agreement) error {
	sanitized, err := Sanitize(a)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := recordKey(id)
	exists, err := r.db.Has(key)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateID
	}
	return r.put(key, sanitized)
}

// Get returns a snapshot of the agreement stored under id, or ErrNotFound.
func (r *KVRegistry) Get(id uint64) (*Agreement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := r.db.Get(recordKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	stored := new(storedAgreement)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, fmt.Errorf("agreement: decode record: %w", err)
	}
	return fromStored(stored), nil
}

// Replace atomically overwrites the agreement stored under id. It fails with
// ErrNotFound if the id is absent; on any failure the stored record is left
// untouched.
func (r *KVRegistry) Replace(id uint64, a *Agreement) error {
	sanitized, err := Sanitize(a)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := recordKey(id)
	exists, err := r.db.Has(key)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return r.put(key, sanitized)
}

func (r *KVRegistry) put(key []byte, a *Agreement) error {
	encoded, err := rlp.EncodeToBytes(toStored(a))
	if err != nil {
		return fmt.Errorf("agreement: encode record: %w", err)
	}
	return r.db.Put(key, encoded)
}
