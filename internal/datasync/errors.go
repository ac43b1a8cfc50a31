package datasync

import "errors"

// Error classes the batch layer cares about. Fatal input errors and not-found
// removes are never retried by the engine itself; redelivery policy belongs to
// the queue.
var (
	// ErrInvalidInput marks events the legacy schema can never accept:
	// unmapped surfaces, malformed creator identities, bad dates.
	ErrInvalidInput = errors.New("invalid event input")

	// ErrNotFound marks a remove or update for a legacy id with no
	// matching curated row or mapping.
	ErrNotFound = errors.New("curated item not found")
)
