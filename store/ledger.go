// Package store holds the per-node state of a bank node: the account
// ledger and the pending-transaction table. Both are shared between the
// coordinator's polling goroutine and caller goroutines and serialize all
// access behind a single mutex each.
package store

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Ledger is the local balance store of one bank node. Amounts are exact
// decimals; callers validate positivity, the ledger enforces existence and
// the non-negative balance invariant.
type Ledger struct {
	bic string

	mu       sync.Mutex
	accounts map[string]decimal.Decimal
}

// NewLedger creates an empty ledger owned by the given bank identifier.
func NewLedger(bic string) *Ledger {
	return &Ledger{
		bic:      bic,
		accounts: make(map[string]decimal.Decimal),
	}
}

// GetBalance returns the current balance of the account.
func (l *Ledger) GetBalance(iban string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.accounts[iban]
	if !ok {
		return decimal.Zero, &UnknownAccountError{BIC: l.bic, IBAN: iban}
	}
	return balance, nil
}

// Deposit adds amount to the account balance.
func (l *Ledger) Deposit(iban string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.accounts[iban]
	if !ok {
		return &UnknownAccountError{BIC: l.bic, IBAN: iban}
	}
	l.accounts[iban] = balance.Add(amount)
	return nil
}

// Withdraw subtracts amount from the account balance. The overdraft check
// and the debit happen in one critical section so concurrent withdraws
// cannot drive the balance negative.
func (l *Ledger) Withdraw(iban string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.accounts[iban]
	if !ok {
		return &UnknownAccountError{BIC: l.bic, IBAN: iban}
	}
	if balance.Cmp(amount) < 0 {
		return &OverdrawnError{IBAN: iban}
	}
	l.accounts[iban] = balance.Sub(amount)
	return nil
}

// AddAccount creates a new account with the given opening balance.
func (l *Ledger) AddAccount(iban string, balance decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[iban]; ok {
		return &AccountExistsError{IBAN: iban}
	}
	l.accounts[iban] = balance
	return nil
}

// DeleteAccount removes an account.
func (l *Ledger) DeleteAccount(iban string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[iban]; !ok {
		return &UnknownAccountError{BIC: l.bic, IBAN: iban}
	}
	delete(l.accounts, iban)
	return nil
}

// Has reports whether the account exists.
func (l *Ledger) Has(iban string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.accounts[iban]
	return ok
}

// ListAccounts returns a snapshot of all account identifiers.
func (l *Ledger) ListAccounts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ibans := make([]string, 0, len(l.accounts))
	for iban := range l.accounts {
		ibans = append(ibans, iban)
	}
	return ibans
}
