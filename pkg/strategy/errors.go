package strategy

import "errors"

// Contract-violation errors. All of these indicate a logic error in the
// calling strategy and are surfaced immediately, never retried or swallowed.
var (
	ErrDuplicateOrderId = errors.New("order id already tracked")
	ErrOrderNotFound    = errors.New("order not tracked")
	ErrDuplicateLabel   = errors.New("label already scheduled")
	ErrInvalidState     = errors.New("invalid state")
)
