package agreement

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"pactd/core/events"
	"pactd/core/types"
	"pactd/native/ledger"
)

var (
	errNilRegistry = errors.New("agreement engine: registry not configured")
	errNilLedger   = errors.New("agreement engine: ledger not configured")
	errNilHolding  = errors.New("agreement engine: holding account not configured")
)

// Registry is the storage contract consumed by the engine. The registry owns
// the canonical copy of every agreement; the engine only ever operates on a
// checked-out, then written-back, copy.
type Registry interface {
	AllocateID() (uint64, error)
	Insert(id uint64, a *Agreement) error
	Get(id uint64) (*Agreement, error)
	Replace(id uint64, a *Agreement) error
}

type agreementEvent struct {
	evt *types.Event
}

func (e agreementEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e agreementEvent) Event() *types.Event { return e.evt }

// Engine enforces the agreement lifecycle: it validates every transition,
// moves value through the ledger collaborator, writes the mutated agreement
// back to the registry and emits one event per successful transition.
// Transitions on the same id are serialized by a per-id mutex; distinct ids
// proceed in parallel.
type Engine struct {
	registry Registry
	ledger   ledger.Ledger
	emitter  events.Emitter
	holding  [20]byte
	nowFn    func() int64

	locksMu sync.Mutex
	locks   map[uint64]*sync.Mutex
}

// NewEngine creates an agreement engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
		locks:   make(map[uint64]*sync.Mutex),
	}
}

// SetRegistry configures the agreement storage used by the engine.
func (e *Engine) SetRegistry(registry Registry) { e.registry = registry }

// SetLedger configures the asset ledger used to move deposits.
func (e *Engine) SetLedger(l ledger.Ledger) { e.ledger = l }

// SetHoldingAccount configures the neutral custody identity that locked
// deposits are placed into pending release or refund.
func (e *Engine) SetHoldingAccount(addr [20]byte) { e.holding = addr }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(agreementEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ensureConfigured() error {
	switch {
	case e == nil || e.registry == nil:
		return errNilRegistry
	case e.ledger == nil:
		return errNilLedger
	case e.holding == ([20]byte{}):
		return errNilHolding
	default:
		return nil
	}
}

// idLock returns the mutex serializing transitions for one agreement id.
func (e *Engine) idLock(id uint64) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	if mu, ok := e.locks[id]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	e.locks[id] = mu
	return mu
}

// transfer moves amount between two ledger identities as a debit/credit pair.
// If the credit leg fails the debit is compensated so no value goes missing.
func (e *Engine) transfer(from, to [20]byte, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := e.ledger.Debit(from, amount); err != nil {
		return err
	}
	if err := e.ledger.Credit(to, amount); err != nil {
		if restoreErr := e.ledger.Credit(from, amount); restoreErr != nil {
			return fmt.Errorf("agreement: credit failed (%v) and debit restore failed: %w", err, restoreErr)
		}
		return err
	}
	return nil
}

// Create locks the initiator's deposit into the holding account and persists a
// new open agreement. Counterparty optionally restricts who may join; pass the
// zero address for an open invitation. Refundable controls whether expiration
// returns the locked deposits.
func (e *Engine) Create(initiator [20]byte, deposit uint64, expiration int64, counterparty [20]byte, refundable bool) (*Agreement, error) {
	if err := e.ensureConfigured(); err != nil {
		return nil, err
	}
	if deposit == 0 {
		return nil, fmt.Errorf("agreement: deposit must be positive")
	}
	if initiator == ([20]byte{}) {
		return nil, fmt.Errorf("agreement: initiator required")
	}
	if counterparty == initiator {
		return nil, fmt.Errorf("agreement: counterparty must differ from initiator")
	}
	now := e.now()
	if expiration <= now {
		return nil, ErrAlreadyExpired
	}
	id, err := e.registry.AllocateID()
	if err != nil {
		return nil, err
	}
	// The counter is the sole source of ids, so a populated slot means the
	// backing store was manipulated externally. Refuse to overwrite.
	if _, err := e.registry.Get(id); err == nil {
		return nil, ErrDuplicateID
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err := e.transfer(initiator, e.holding, deposit); err != nil {
		return nil, err
	}
	agr := &Agreement{
		ID:            id,
		Initiator:     initiator,
		Counterparty:  counterparty,
		InitiatorLock: Lock{Amount: deposit, CommittedAt: now},
		Expiration:    expiration,
		Refundable:    refundable,
		CreatedAt:     now,
		Status:        StatusOpen,
	}
	if err := e.registry.Insert(id, agr); err != nil {
		if restoreErr := e.transfer(e.holding, initiator, deposit); restoreErr != nil {
			return nil, fmt.Errorf("agreement: insert failed (%v) and deposit restore failed: %w", err, restoreErr)
		}
		return nil, err
	}
	e.emit(NewCreatedEvent(agr))
	return agr.Clone(), nil
}

// Join locks the responder's deposit and matches the agreement. Any identity
// other than the initiator may join an open invitation; when a counterparty
// restriction was set at creation only that identity is accepted.
func (e *Engine) Join(id uint64, responder [20]byte, deposit uint64) error {
	if err := e.ensureConfigured(); err != nil {
		return err
	}
	mu := e.idLock(id)
	mu.Lock()
	defer mu.Unlock()
	agr, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	if agr.Status.Terminal() {
		return ErrAlreadyFinal
	}
	if agr.Status == StatusMatched {
		return ErrAlreadyMatched
	}
	if responder == agr.Initiator {
		return ErrUnauthorized
	}
	if agr.Counterparty != ([20]byte{}) && responder != agr.Counterparty {
		return ErrUnauthorized
	}
	now := e.now()
	if now > agr.Expiration {
		return ErrAlreadyExpired
	}
	if deposit == 0 {
		return fmt.Errorf("agreement: deposit must be positive")
	}
	if err := e.transfer(responder, e.holding, deposit); err != nil {
		return err
	}
	agr.Responder = responder
	agr.Joined = true
	agr.ResponderLock = &Lock{Amount: deposit, CommittedAt: now}
	agr.Status = StatusMatched
	if err := e.registry.Replace(id, agr); err != nil {
		if restoreErr := e.transfer(e.holding, responder, deposit); restoreErr != nil {
			return fmt.Errorf("agreement: writeback failed (%v) and deposit restore failed: %w", err, restoreErr)
		}
		return err
	}
	e.emit(NewMatchedEvent(agr))
	return nil
}

// Complete releases the initiator's locked deposit to the responder. Only the
// initiator may trigger completion, and only while the deadline has not
// passed.
func (e *Engine) Complete(id uint64, caller [20]byte) error {
	if err := e.ensureConfigured(); err != nil {
		return err
	}
	mu := e.idLock(id)
	mu.Lock()
	defer mu.Unlock()
	agr, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	if agr.Status.Terminal() {
		return ErrAlreadyFinal
	}
	if agr.Status != StatusMatched {
		return ErrNotYetMatched
	}
	if caller != agr.Initiator {
		return ErrUnauthorized
	}
	if e.now() > agr.Expiration {
		return ErrAlreadyExpired
	}
	amount := agr.InitiatorLock.Amount
	if err := e.transfer(e.holding, agr.Responder, amount); err != nil {
		return err
	}
	agr.Status = StatusCompleted
	if err := e.registry.Replace(id, agr); err != nil {
		if restoreErr := e.transfer(agr.Responder, e.holding, amount); restoreErr != nil {
			return fmt.Errorf("agreement: writeback failed (%v) and release restore failed: %w", err, restoreErr)
		}
		return err
	}
	e.emit(NewCompletedEvent(agr))
	return nil
}

// Cancel refunds the initiator's deposit on an agreement no responder has
// joined yet. Only the initiator may cancel, and only while the deadline has
// not passed.
func (e *Engine) Cancel(id uint64, caller [20]byte) error {
	if err := e.ensureConfigured(); err != nil {
		return err
	}
	mu := e.idLock(id)
	mu.Lock()
	defer mu.Unlock()
	agr, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	if agr.Status.Terminal() {
		return ErrAlreadyFinal
	}
	if agr.Status == StatusMatched {
		return ErrAlreadyMatched
	}
	if caller != agr.Initiator {
		return ErrUnauthorized
	}
	if e.now() > agr.Expiration {
		return ErrAlreadyExpired
	}
	amount := agr.InitiatorLock.Amount
	if err := e.transfer(e.holding, agr.Initiator, amount); err != nil {
		return err
	}
	agr.Status = StatusCancelled
	if err := e.registry.Replace(id, agr); err != nil {
		if restoreErr := e.transfer(agr.Initiator, e.holding, amount); restoreErr != nil {
			return fmt.Errorf("agreement: writeback failed (%v) and refund restore failed: %w", err, restoreErr)
		}
		return err
	}
	e.emit(NewCancelledEvent(agr))
	return nil
}

// Expire finalises an agreement whose deadline has passed. Anyone may invoke
// the transition; expiration is evaluated lazily, so an open status only means
// no caller has processed it yet. Refundable agreements return every locked
// deposit to its owner; non-refundable agreements finalise without moving
// funds.
func (e *Engine) Expire(id uint64) error {
	if err := e.ensureConfigured(); err != nil {
		return err
	}
	mu := e.idLock(id)
	mu.Lock()
	defer mu.Unlock()
	agr, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	if agr.Status.Terminal() {
		return ErrAlreadyFinal
	}
	if e.now() <= agr.Expiration {
		return ErrNotYetExpired
	}
	if agr.Refundable {
		if err := e.transfer(e.holding, agr.Initiator, agr.InitiatorLock.Amount); err != nil {
			return err
		}
		if agr.ResponderLock != nil {
			if err := e.transfer(e.holding, agr.Responder, agr.ResponderLock.Amount); err != nil {
				if restoreErr := e.transfer(agr.Initiator, e.holding, agr.InitiatorLock.Amount); restoreErr != nil {
					return fmt.Errorf("agreement: responder refund failed (%v) and initiator restore failed: %w", err, restoreErr)
				}
				return err
			}
		}
	}
	agr.Status = StatusExpired
	if err := e.registry.Replace(id, agr); err != nil {
		if agr.Refundable {
			if restoreErr := e.transfer(agr.Initiator, e.holding, agr.InitiatorLock.Amount); restoreErr != nil {
				return fmt.Errorf("agreement: writeback failed (%v) and refund restore failed: %w", err, restoreErr)
			}
			if agr.ResponderLock != nil {
				if restoreErr := e.transfer(agr.Responder, e.holding, agr.ResponderLock.Amount); restoreErr != nil {
					return fmt.Errorf("agreement: writeback failed (%v) and refund restore failed: %w", err, restoreErr)
				}
			}
		}
		return err
	}
	e.emit(NewExpiredEvent(agr))
	return nil
}

// Get returns a read-only snapshot of the agreement. It performs no side
// effects.
func (e *Engine) Get(id uint64) (*Agreement, error) {
	if e == nil || e.registry == nil {
		return nil, errNilRegistry
	}
	return e.registry.Get(id)
}
