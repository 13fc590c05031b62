package checkin

import "errors"

// Errors surfaced to callers. Everything else is recovered inside the engine.
var (
	ErrBadInput         = errors.New("no ticket code could be read from the scan")
	ErrNotFound         = errors.New("ticket not found")
	ErrPaymentRequired  = errors.New("ticket has not been paid")
	ErrStoreUnavailable = errors.New("ticket store unavailable")
	ErrInternal         = errors.New("internal error")
)
