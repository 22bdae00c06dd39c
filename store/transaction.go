package store

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one pending-transfer record: a local debit awaiting remote
// confirmation, or a zero-amount placeholder for an outstanding balance
// query. It is owned by the table of the node that initiated it.
type Transaction struct {
	IBAN      string
	Amount    decimal.Decimal
	StartTime time.Time
}

// NewTransaction creates a pending-transfer record starting now.
func NewTransaction(iban string, amount decimal.Decimal) Transaction {
	return Transaction{
		IBAN:      iban,
		Amount:    amount,
		StartTime: time.Now(),
	}
}

// NewQueryTransaction creates the zero-amount placeholder registered for an
// outstanding cross-node balance query.
func NewQueryTransaction(iban string) Transaction {
	return NewTransaction(iban, decimal.Zero)
}

// Expired reports whether the transaction is older than timeout.
func (t Transaction) Expired(timeout time.Duration) bool {
	return time.Since(t.StartTime) > timeout
}

func (t Transaction) String() string {
	return fmt.Sprintf("[%s: %s - %s]", t.IBAN, t.Amount, t.StartTime.Format("2006-01-02 15:04:05"))
}
