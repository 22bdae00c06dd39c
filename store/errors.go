package store

import (
	"fmt"
	"strings"
)

// UnknownAccountError reports an IBAN that does not exist on the given bank.
// It round-trips through result messages as "<bic>:<iban>".
type UnknownAccountError struct {
	BIC  string
	IBAN string
}

func (e *UnknownAccountError) Error() string {
	return fmt.Sprintf("account %s of bank %s is unknown", e.IBAN, e.BIC)
}

// EncodeString packs the error into the wire form carried by balance results.
func (e *UnknownAccountError) EncodeString() string {
	return e.BIC + ":" + e.IBAN
}

// ParseUnknownAccount is the inverse of EncodeString.
func ParseUnknownAccount(s string) (*UnknownAccountError, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid unknown-account encoding %q", s)
	}
	return &UnknownAccountError{BIC: parts[0], IBAN: parts[1]}, nil
}

// OverdrawnError reports a withdraw that would push an account below zero.
type OverdrawnError struct {
	IBAN string
}

func (e *OverdrawnError) Error() string {
	return fmt.Sprintf("account %s has insufficient funds", e.IBAN)
}

// AccountExistsError reports an attempt to create an IBAN twice.
type AccountExistsError struct {
	IBAN string
}

func (e *AccountExistsError) Error() string {
	return fmt.Sprintf("account %s already exists", e.IBAN)
}

// UnknownTransactionError reports a transaction id missing from the table.
type UnknownTransactionError struct {
	ID string
}

func (e *UnknownTransactionError) Error() string {
	return fmt.Sprintf("transaction %s is unknown", e.ID)
}

// TransactionExistsError reports an explicit-id insert with a live id.
type TransactionExistsError struct {
	ID string
}

func (e *TransactionExistsError) Error() string {
	return fmt.Sprintf("transaction %s already exists", e.ID)
}
