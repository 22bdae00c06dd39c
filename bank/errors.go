package bank

import (
	"fmt"

	"bankmq/store"
)

// UnknownBICError is returned when an operation names a bank that is
// neither this node nor its configured peer.
type UnknownBICError struct {
	BIC string
}

func (e *UnknownBICError) Error() string {
	return fmt.Sprintf("unknown bank %s", e.BIC)
}

// IllegalOperationError is returned for requests that are invalid before
// touching any state, such as a non-positive transfer amount.
type IllegalOperationError struct {
	Reason string
}

func (e *IllegalOperationError) Error() string {
	return fmt.Sprintf("illegal operation: %s", e.Reason)
}

// TransactionExpiredError is returned when a remote balance query exhausts
// its retry budget without an answer.
type TransactionExpiredError struct {
	ID string
	Tx store.Transaction
}

func (e *TransactionExpiredError) Error() string {
	return fmt.Sprintf("transaction %s expired: %s", e.ID, e.Tx)
}
