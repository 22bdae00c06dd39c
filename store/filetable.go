package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// tableRecord is the JSON-lines representation of one table entry.
type tableRecord struct {
	ID        string          `json:"id"`
	IBAN      string          `json:"iban"`
	Amount    decimal.Decimal `json:"amount"`
	StartTime time.Time       `json:"start_time"`
}

// FileTable is a Table backed by a JSON-lines file, one entry per line.
// Put appends, Remove rewrites the file without the removed line, and
// opening recovers all entries. The id counter is rebuilt from the highest
// own-bic suffix found during recovery, so a restarted node never reissues
// a live id.
type FileTable struct {
	bic  string
	path string

	mu      sync.Mutex
	table   map[string]Transaction
	counter uint64
}

// NewFileTable opens (or creates) the table file at path and recovers its
// contents.
func NewFileTable(bic, path string) (*FileTable, error) {
	f := &FileTable{
		bic:   bic,
		path:  path,
		table: make(map[string]Transaction),
	}
	if err := f.recover(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileTable) recover() error {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("recover: no table file at %s, starting empty", f.path)
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineCount := 0
	recovered := 0
	prefix := f.bic + "_"

	for scanner.Scan() {
		lineCount++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		var rec tableRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			log.Printf("recover: skipping malformed line %d of %s: %v", lineCount, f.path, err)
			continue
		}

		f.table[rec.ID] = Transaction{IBAN: rec.IBAN, Amount: rec.Amount, StartTime: rec.StartTime}
		recovered++

		if suffix, ok := strings.CutPrefix(rec.ID, prefix); ok {
			if n, err := strconv.ParseUint(suffix, 10, 64); err == nil && n > f.counter {
				f.counter = n
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	log.Printf("recover: restored %d transactions from %s, counter at %d", recovered, f.path, f.counter)
	return nil
}

func (f *FileTable) Put(tx Transaction) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.counter++
	id := fmt.Sprintf("%s_%d", f.bic, f.counter)
	for {
		if _, exists := f.table[id]; !exists {
			break
		}
		f.counter++
		id = fmt.Sprintf("%s_%d", f.bic, f.counter)
	}

	f.table[id] = tx
	if err := f.appendLocked(id, tx); err != nil {
		log.Printf("Put: failed to persist transaction %s: %v", id, err)
	}
	return id
}

func (f *FileTable) PutWithID(id string, tx Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.table[id]; exists {
		return &TransactionExistsError{ID: id}
	}
	f.table[id] = tx
	if err := f.appendLocked(id, tx); err != nil {
		log.Printf("PutWithID: failed to persist transaction %s: %v", id, err)
	}
	return nil
}

func (f *FileTable) appendLocked(id string, tx Transaction) error {
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := json.Marshal(tableRecord{ID: id, IBAN: tx.IBAN, Amount: tx.Amount, StartTime: tx.StartTime})
	if err != nil {
		return err
	}
	if _, err := file.WriteString(string(data) + "\n"); err != nil {
		return err
	}
	return file.Sync()
}

func (f *FileTable) Get(id string) (Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx, ok := f.table[id]
	if !ok {
		return Transaction{}, &UnknownTransactionError{ID: id}
	}
	return tx, nil
}

func (f *FileTable) Remove(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.table[id]; !ok {
		return &UnknownTransactionError{ID: id}
	}
	delete(f.table, id)
	if err := f.rewriteLocked(); err != nil {
		log.Printf("Remove: failed to rewrite %s after removing %s: %v", f.path, id, err)
	}
	return nil
}

// rewriteLocked writes the surviving entries back out, replacing the file.
func (f *FileTable) rewriteLocked() error {
	tmp := f.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	for id, tx := range f.table {
		data, err := json.Marshal(tableRecord{ID: id, IBAN: tx.IBAN, Amount: tx.Amount, StartTime: tx.StartTime})
		if err != nil {
			file.Close()
			return err
		}
		if _, err := file.WriteString(string(data) + "\n"); err != nil {
			file.Close()
			return err
		}
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileTable) ContainsID(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.table[id]
	return ok
}

func (f *FileTable) List() map[string]Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := make(map[string]Transaction, len(f.table))
	for id, tx := range f.table {
		snapshot[id] = tx
	}
	return snapshot
}
