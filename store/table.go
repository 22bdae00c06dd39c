package store

import (
	"fmt"
	"sync"
)

// Table is the pending-transaction registry of one node. Generated ids have
// the form "<bic>_<counter>"; the bic prefix keeps ids of the two nodes
// disjoint. List returns a snapshot so callers can iterate while other
// operations proceed.
type Table interface {
	// Put inserts tx under a freshly generated id and returns the id.
	Put(tx Transaction) string
	// PutWithID inserts tx under an explicit id.
	PutWithID(id string, tx Transaction) error
	Get(id string) (Transaction, error)
	Remove(id string) error
	ContainsID(id string) bool
	List() map[string]Transaction
}

// MemTable is the in-memory Table implementation. The id counter and the
// map share one mutex, so no two Put calls can observe the same counter
// value.
type MemTable struct {
	bic string

	mu      sync.Mutex
	table   map[string]Transaction
	counter uint64
}

// NewMemTable creates an empty table scoped to the given bank identifier.
func NewMemTable(bic string) *MemTable {
	return &MemTable{
		bic:   bic,
		table: make(map[string]Transaction),
	}
}

func (m *MemTable) Put(tx Transaction) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextIDLocked()
	m.table[id] = tx
	return id
}

// nextIDLocked generates a fresh id, regenerating on the (defensively
// handled, normally impossible) case of a collision.
func (m *MemTable) nextIDLocked() string {
	m.counter++
	id := fmt.Sprintf("%s_%d", m.bic, m.counter)
	for {
		if _, exists := m.table[id]; !exists {
			return id
		}
		m.counter++
		id = fmt.Sprintf("%s_%d", m.bic, m.counter)
	}
}

func (m *MemTable) PutWithID(id string, tx Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.table[id]; exists {
		return &TransactionExistsError{ID: id}
	}
	m.table[id] = tx
	return nil
}

func (m *MemTable) Get(id string) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.table[id]
	if !ok {
		return Transaction{}, &UnknownTransactionError{ID: id}
	}
	return tx, nil
}

func (m *MemTable) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.table[id]; !ok {
		return &UnknownTransactionError{ID: id}
	}
	delete(m.table, id)
	return nil
}

func (m *MemTable) ContainsID(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.table[id]
	return ok
}

func (m *MemTable) List() map[string]Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string]Transaction, len(m.table))
	for id, tx := range m.table {
		snapshot[id] = tx
	}
	return snapshot
}
