package agreement

import "errors"

var (
	// ErrNotFound indicates the referenced agreement id does not exist.
	ErrNotFound = errors.New("agreement: not found")
	// ErrDuplicateID indicates an id collision on insertion. Should not
	// occur under correct counter use; Create checks defensively.
	ErrDuplicateID = errors.New("agreement: duplicate id")
	// ErrUnauthorized indicates the caller is not the party entitled to
	// perform the action.
	ErrUnauthorized = errors.New("agreement: unauthorized caller")
	// ErrAlreadyFinal indicates the agreement already reached a terminal
	// state.
	ErrAlreadyFinal = errors.New("agreement: already finalised")
	// ErrNotYetExpired indicates the expiration deadline has not passed.
	ErrNotYetExpired = errors.New("agreement: deadline not reached")
	// ErrAlreadyExpired indicates the expiration deadline has passed.
	ErrAlreadyExpired = errors.New("agreement: deadline passed")
	// ErrAlreadyMatched indicates a responder has already joined.
	ErrAlreadyMatched = errors.New("agreement: already matched")
	// ErrNotYetMatched indicates no responder has joined yet.
	ErrNotYetMatched = errors.New("agreement: not yet matched")
)
