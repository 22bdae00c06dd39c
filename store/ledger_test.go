package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestLedger(t *testing.T, balances map[string]int64) *Ledger {
	t.Helper()
	ledger := NewLedger("BANK1")
	for iban, balance := range balances {
		if err := ledger.AddAccount(iban, decimal.NewFromInt(balance)); err != nil {
			t.Fatalf("AddAccount(%s) failed: %v", iban, err)
		}
	}
	return ledger
}

func assertBalance(t *testing.T, ledger *Ledger, iban string, want int64) {
	t.Helper()
	balance, err := ledger.GetBalance(iban)
	if err != nil {
		t.Fatalf("GetBalance(%s) failed: %v", iban, err)
	}
	if !balance.Equal(decimal.NewFromInt(want)) {
		t.Fatalf("balance of %s = %s, want %d", iban, balance, want)
	}
}

func TestDepositAndWithdraw(t *testing.T) {
	ledger := newTestLedger(t, map[string]int64{"a1": 1000})

	if err := ledger.Deposit("a1", decimal.NewFromInt(250)); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	assertBalance(t, ledger, "a1", 1250)

	if err := ledger.Withdraw("a1", decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	assertBalance(t, ledger, "a1", 250)
}

func TestWithdrawExactBalance(t *testing.T) {
	ledger := newTestLedger(t, map[string]int64{"a1": 300})

	if err := ledger.Withdraw("a1", decimal.NewFromInt(300)); err != nil {
		t.Fatalf("Withdraw of exact balance failed: %v", err)
	}
	assertBalance(t, ledger, "a1", 0)
}

func TestWithdrawOverdrawn(t *testing.T) {
	ledger := newTestLedger(t, map[string]int64{"a1": 300})

	err := ledger.Withdraw("a1", decimal.NewFromFloat(300.01))
	var overdrawn *OverdrawnError
	if !errors.As(err, &overdrawn) {
		t.Fatalf("Withdraw returned %v, want OverdrawnError", err)
	}
	assertBalance(t, ledger, "a1", 300)
}

func TestUnknownAccount(t *testing.T) {
	ledger := newTestLedger(t, nil)

	var unknown *UnknownAccountError
	if _, err := ledger.GetBalance("nope"); !errors.As(err, &unknown) {
		t.Fatalf("GetBalance returned %v, want UnknownAccountError", err)
	}
	if err := ledger.Deposit("nope", decimal.NewFromInt(1)); !errors.As(err, &unknown) {
		t.Fatalf("Deposit returned %v, want UnknownAccountError", err)
	}
	if err := ledger.Withdraw("nope", decimal.NewFromInt(1)); !errors.As(err, &unknown) {
		t.Fatalf("Withdraw returned %v, want UnknownAccountError", err)
	}
	if unknown.BIC != "BANK1" || unknown.IBAN != "nope" {
		t.Fatalf("UnknownAccountError carries %s/%s, want BANK1/nope", unknown.BIC, unknown.IBAN)
	}
}

func TestAddAccountTwice(t *testing.T) {
	ledger := newTestLedger(t, map[string]int64{"a1": 10})

	err := ledger.AddAccount("a1", decimal.NewFromInt(20))
	var exists *AccountExistsError
	if !errors.As(err, &exists) {
		t.Fatalf("AddAccount returned %v, want AccountExistsError", err)
	}
	assertBalance(t, ledger, "a1", 10)
}

func TestDeleteAccount(t *testing.T) {
	ledger := newTestLedger(t, map[string]int64{"a1": 10})

	if err := ledger.DeleteAccount("a1"); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	if ledger.Has("a1") {
		t.Fatal("account a1 still present after delete")
	}
	var unknown *UnknownAccountError
	if err := ledger.DeleteAccount("a1"); !errors.As(err, &unknown) {
		t.Fatalf("second DeleteAccount returned %v, want UnknownAccountError", err)
	}
}

func TestConcurrentWithdrawsNeverOverdraw(t *testing.T) {
	ledger := newTestLedger(t, map[string]int64{"a1": 100})

	var wg sync.WaitGroup
	succeeded := make(chan struct{}, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.Withdraw("a1", decimal.NewFromInt(1)); err == nil {
				succeeded <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(succeeded)

	wins := 0
	for range succeeded {
		wins++
	}
	if wins != 100 {
		t.Fatalf("%d withdraws succeeded, want exactly 100", wins)
	}
	assertBalance(t, ledger, "a1", 0)
}
