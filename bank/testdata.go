package bank

import (
	"log"

	"github.com/shopspring/decimal"

	"bankmq/store"
)

// SeedAccounts creates the deterministic demo accounts "<bic>.1" with
// balance 1000 and "<bic>.2" with balance 500. A ledger that already holds
// two or more accounts is left alone, so reseeding a recovered node is
// harmless.
func SeedAccounts(ledger *store.Ledger, bic string) {
	if len(ledger.ListAccounts()) >= 2 {
		log.Printf("SeedAccounts: ledger of %s already populated, skipping", bic)
		return
	}
	seed := map[string]decimal.Decimal{
		bic + ".1": decimal.NewFromInt(1000),
		bic + ".2": decimal.NewFromInt(500),
	}
	for iban, balance := range seed {
		if err := ledger.AddAccount(iban, balance); err != nil {
			log.Printf("SeedAccounts: failed to add %s: %v", iban, err)
			continue
		}
		log.Printf("SeedAccounts: added %s with balance %s", iban, balance)
	}
}
