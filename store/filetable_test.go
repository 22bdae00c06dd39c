package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestFileTable(t *testing.T, path string) *FileTable {
	t.Helper()
	table, err := NewFileTable("BANK1", path)
	if err != nil {
		t.Fatalf("NewFileTable failed: %v", err)
	}
	return table
}

func TestFileTableRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.jsonl")

	table := newTestFileTable(t, path)
	id1 := table.Put(NewTransaction("a1", decimal.NewFromInt(100)))
	id2 := table.Put(NewTransaction("a2", decimal.NewFromInt(200)))
	if err := table.Remove(id1); err != nil {
		t.Fatalf("Remove(%s) failed: %v", id1, err)
	}

	recovered := newTestFileTable(t, path)
	if recovered.ContainsID(id1) {
		t.Fatalf("removed transaction %s survived recovery", id1)
	}
	tx, err := recovered.Get(id2)
	if err != nil {
		t.Fatalf("Get(%s) after recovery failed: %v", id2, err)
	}
	if tx.IBAN != "a2" || !tx.Amount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("recovered %s = %s, want a2/200", id2, tx)
	}
}

func TestFileTableCounterSurvivesRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.jsonl")

	table := newTestFileTable(t, path)
	var lastID string
	for i := 0; i < 5; i++ {
		lastID = table.Put(NewTransaction("a1", decimal.NewFromInt(1)))
	}

	recovered := newTestFileTable(t, path)
	nextID := recovered.Put(NewTransaction("a1", decimal.NewFromInt(1)))
	if nextID == lastID {
		t.Fatalf("recovered table reissued live id %s", lastID)
	}
	if nextID != "BANK1_6" {
		t.Fatalf("recovered table issued %s, want BANK1_6", nextID)
	}
}

func TestFileTableSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.jsonl")

	table := newTestFileTable(t, path)
	id := table.Put(NewTransaction("a1", decimal.NewFromInt(50)))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("opening table file failed: %v", err)
	}
	if _, err := f.WriteString("not json at all\n"); err != nil {
		t.Fatalf("appending garbage failed: %v", err)
	}
	f.Close()

	recovered := newTestFileTable(t, path)
	if !recovered.ContainsID(id) {
		t.Fatalf("valid transaction %s lost to a malformed neighbor line", id)
	}
	if len(recovered.List()) != 1 {
		t.Fatalf("recovered %d entries, want 1", len(recovered.List()))
	}
}

func TestFileTableForeignIDsIgnoredByCounter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.jsonl")

	table := newTestFileTable(t, path)
	if err := table.PutWithID("BANK2_99", NewTransaction("b1", decimal.NewFromInt(10))); err != nil {
		t.Fatalf("PutWithID failed: %v", err)
	}

	recovered := newTestFileTable(t, path)
	id := recovered.Put(NewTransaction("a1", decimal.NewFromInt(1)))
	if id != "BANK1_1" {
		t.Fatalf("counter picked up a foreign id, issued %s, want BANK1_1", id)
	}
}
