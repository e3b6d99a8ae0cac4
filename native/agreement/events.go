package agreement

import (
	"encoding/hex"
	"strconv"

	"pactd/core/types"
)

const (
	EventTypeAgreementCreated   = "agreement.created"
	EventTypeAgreementMatched   = "agreement.matched"
	EventTypeAgreementCompleted = "agreement.completed"
	EventTypeAgreementCancelled = "agreement.cancelled"
	EventTypeAgreementExpired   = "agreement.expired"
)

// NewCreatedEvent returns the canonical event payload for a newly created
// agreement.
func NewCreatedEvent(a *Agreement) *types.Event { return newAgreementEvent(EventTypeAgreementCreated, a) }

// NewMatchedEvent returns the canonical event payload emitted when a responder
// joins.
func NewMatchedEvent(a *Agreement) *types.Event { return newAgreementEvent(EventTypeAgreementMatched, a) }

// NewCompletedEvent returns the canonical event payload for a release of the
// locked deposit to the responder.
func NewCompletedEvent(a *Agreement) *types.Event {
	return newAgreementEvent(EventTypeAgreementCompleted, a)
}

// NewCancelledEvent returns the canonical event payload for a refund to the
// initiator of an unmatched agreement.
func NewCancelledEvent(a *Agreement) *types.Event {
	return newAgreementEvent(EventTypeAgreementCancelled, a)
}

// NewExpiredEvent returns the canonical event payload emitted when an
// agreement expires past its deadline.
func NewExpiredEvent(a *Agreement) *types.Event { return newAgreementEvent(EventTypeAgreementExpired, a) }

func newAgreementEvent(eventType string, a *Agreement) *types.Event {
	attrs := make(map[string]string)
	if a == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = strconv.FormatUint(a.ID, 10)
	attrs["initiator"] = hex.EncodeToString(a.Initiator[:])
	attrs["initiatorAmount"] = strconv.FormatUint(a.InitiatorLock.Amount, 10)
	attrs["expiration"] = strconv.FormatInt(a.Expiration, 10)
	attrs["refundable"] = strconv.FormatBool(a.Refundable)
	attrs["status"] = a.Status.String()
	if a.Counterparty != ([20]byte{}) {
		attrs["counterparty"] = hex.EncodeToString(a.Counterparty[:])
	}
	if a.Joined {
		attrs["responder"] = hex.EncodeToString(a.Responder[:])
	}
	if a.ResponderLock != nil {
		attrs["responderAmount"] = strconv.FormatUint(a.ResponderLock.Amount, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
