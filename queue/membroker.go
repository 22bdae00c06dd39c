package queue

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultVisibilityTimeout is how long a received message stays invisible
// before it is redelivered under a fresh receipt.
const DefaultVisibilityTimeout = 30 * time.Second

type memMessage struct {
	body           string
	receipt        string
	invisibleUntil time.Time
}

// MemBroker is the in-process Broker implementation. It backs the broker
// daemon and the tests; bank nodes normally talk to it through RPCBroker.
type MemBroker struct {
	visibility time.Duration

	mu     sync.Mutex
	queues map[string][]*memMessage
}

// NewMemBroker creates an empty broker. A zero visibility selects
// DefaultVisibilityTimeout.
func NewMemBroker(visibility time.Duration) *MemBroker {
	if visibility <= 0 {
		visibility = DefaultVisibilityTimeout
	}
	return &MemBroker{
		visibility: visibility,
		queues:     make(map[string][]*memMessage),
	}
}

func (b *MemBroker) CreateQueue(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.queues[name]; ok {
		log.Printf("CreateQueue: queue %s already exists", name)
		return nil
	}
	b.queues[name] = nil
	return nil
}

func (b *MemBroker) DeleteQueue(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.queues[name]; !ok {
		return ErrNoSuchQueue
	}
	delete(b.queues, name)
	return nil
}

func (b *MemBroker) Send(queue, body string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.queues[queue]; !ok {
		return ErrNoSuchQueue
	}
	b.queues[queue] = append(b.queues[queue], &memMessage{body: body})
	return nil
}

func (b *MemBroker) Receive(queue string, max int) ([]RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	messages, ok := b.queues[queue]
	if !ok {
		return nil, ErrNoSuchQueue
	}

	now := time.Now()
	var received []RawMessage
	for _, m := range messages {
		if len(received) >= max {
			break
		}
		if m.invisibleUntil.After(now) {
			continue
		}
		m.receipt = uuid.NewString()
		m.invisibleUntil = now.Add(b.visibility)
		received = append(received, RawMessage{Body: m.body, Receipt: m.receipt})
	}
	return received, nil
}

func (b *MemBroker) Delete(queue, receipt string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	messages, ok := b.queues[queue]
	if !ok {
		return ErrNoSuchQueue
	}
	for i, m := range messages {
		if m.receipt == receipt && m.receipt != "" {
			b.queues[queue] = append(messages[:i], messages[i+1:]...)
			return nil
		}
	}
	log.Printf("Delete: no message with receipt %s in queue %s", receipt, queue)
	return nil
}
