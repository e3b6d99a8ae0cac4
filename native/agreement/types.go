package agreement

import "fmt"

// Status represents the lifecycle states of an escrow agreement.
type Status uint8

const (
	StatusOpen Status = iota
	StatusMatched
	StatusCompleted
	StatusCancelled
	StatusExpired
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusMatched, StatusCompleted, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status is absorbing. No transition succeeds
// against an agreement in a terminal state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// String returns the canonical lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusMatched:
		return "matched"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusExpired:
		return "expired"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Lock records a deposit placed into the holding account: how much and when
// the depositor committed.
type Lock struct {
	Amount      uint64
	CommittedAt int64
}

// Agreement captures one escrow deal between an initiator and a responder.
// The identifier is minted once by the registry and never reused. Counterparty
// optionally restricts who may join; it stays zero for open invitations. The
// responder identity and lock are absent until the counterparty joins.
type Agreement struct {
	ID            uint64
	Initiator     [20]byte
	Counterparty  [20]byte
	Responder     [20]byte
	Joined        bool
	InitiatorLock Lock
	ResponderLock *Lock
	Expiration    int64
	Refundable    bool
	CreatedAt     int64
	Status        Status
}

// Clone returns a deep copy of the agreement so callers can safely mutate the
// copy without affecting the stored instance.
func (a *Agreement) Clone() *Agreement {
	if a == nil {
		return nil
	}
	clone := *a
	if a.ResponderLock != nil {
		lock := *a.ResponderLock
		clone.ResponderLock = &lock
	}
	return &clone
}

// Sanitize validates the structural consistency of the supplied agreement and
// returns a cloned instance. The original value is not mutated.
func Sanitize(a *Agreement) (*Agreement, error) {
	if a == nil {
		return nil, fmt.Errorf("nil agreement")
	}
	clone := a.Clone()
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("invalid agreement status: %d", clone.Status)
	}
	if clone.InitiatorLock.Amount == 0 {
		return nil, fmt.Errorf("agreement initiator lock must be positive")
	}
	if clone.Joined && clone.ResponderLock == nil {
		return nil, fmt.Errorf("joined agreement missing responder lock")
	}
	if !clone.Joined && clone.ResponderLock != nil {
		return nil, fmt.Errorf("responder lock present before join")
	}
	if clone.ResponderLock != nil && clone.ResponderLock.Amount == 0 {
		return nil, fmt.Errorf("agreement responder lock must be positive")
	}
	return clone, nil
}
