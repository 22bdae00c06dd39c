package queue

import (
	"errors"
	"fmt"
	"log"
	"time"

	"bankmq/message"
)

const (
	// receiveBatchSize is the per-call receive limit.
	receiveBatchSize = 10
	// purgeBackoff is the pause between purge rounds, giving in-flight
	// receipts a moment to settle.
	purgeBackoff = 500 * time.Millisecond
	// purgeRounds bounds the purge drain loop.
	purgeRounds = 20
)

// Channel is a typed view of one broker queue: it packs and parses bank
// messages and tracks receipt handles so handled messages can be deleted.
type Channel struct {
	broker Broker
	name   string
	closed bool
}

// OpenChannel creates the queue if needed and returns a channel on it.
func OpenChannel(b Broker, name string) (*Channel, error) {
	if err := b.CreateQueue(name); err != nil {
		return nil, fmt.Errorf("creating queue %s: %w", name, err)
	}
	return &Channel{broker: b, name: name}, nil
}

// Name returns the underlying queue name.
func (c *Channel) Name() string { return c.name }

// Send packs and enqueues a message.
func (c *Channel) Send(m message.Message) error {
	return c.broker.Send(c.name, message.Pack(m))
}

// ReceiveOne returns one parsed message, or nil when the queue has nothing
// visible. Bodies that fail to parse are deleted and skipped.
func (c *Channel) ReceiveOne() (message.Message, error) {
	for {
		batch, err := c.broker.Receive(c.name, 1)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return nil, nil
		}
		m, err := message.Parse(batch[0].Body, batch[0].Receipt)
		if err != nil {
			log.Printf("ReceiveOne: dropping unparseable message on %s: %v", c.name, err)
			c.deleteReceipt(batch[0].Receipt)
			continue
		}
		return m, nil
	}
}

// ReceiveAll drains everything currently visible on the queue. Bodies that
// fail to parse are deleted and skipped.
func (c *Channel) ReceiveAll() ([]message.Message, error) {
	var messages []message.Message
	for {
		batch, err := c.broker.Receive(c.name, receiveBatchSize)
		if err != nil {
			return messages, err
		}
		if len(batch) == 0 {
			return messages, nil
		}
		for _, raw := range batch {
			m, err := message.Parse(raw.Body, raw.Receipt)
			if err != nil {
				log.Printf("ReceiveAll: dropping unparseable message on %s: %v", c.name, err)
				c.deleteReceipt(raw.Receipt)
				continue
			}
			messages = append(messages, m)
		}
	}
}

// Delete removes a handled message from the queue by its receipt.
func (c *Channel) Delete(m message.Message) error {
	if m.Receipt() == "" {
		return fmt.Errorf("message %s has no receipt", m.TransactionID())
	}
	return c.broker.Delete(c.name, m.Receipt())
}

// DeleteAll removes a batch of handled messages. It keeps going on
// individual failures and returns the last error seen.
func (c *Channel) DeleteAll(messages []message.Message) error {
	var lastErr error
	for _, m := range messages {
		if err := c.Delete(m); err != nil {
			log.Printf("DeleteAll: failed to delete %s from %s: %v", m.TransactionID(), c.name, err)
			lastErr = err
		}
	}
	return lastErr
}

func (c *Channel) deleteReceipt(receipt string) {
	if err := c.broker.Delete(c.name, receipt); err != nil {
		log.Printf("deleteReceipt: failed to delete from %s: %v", c.name, err)
	}
}

// Purge drains and discards everything on the queue. Bounded: it gives up
// after purgeRounds rounds so a busy producer cannot stall startup forever.
func (c *Channel) Purge() error {
	for round := 0; round < purgeRounds; round++ {
		batch, err := c.broker.Receive(c.name, receiveBatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			if round > 0 {
				log.Printf("Purge: queue %s drained after %d rounds", c.name, round)
			}
			return nil
		}
		for _, raw := range batch {
			c.deleteReceipt(raw.Receipt)
		}
		time.Sleep(purgeBackoff)
	}
	log.Printf("Purge: queue %s still not empty after %d rounds, giving up", c.name, purgeRounds)
	return nil
}

// Close deletes the underlying queue. Closing twice is a no-op; a queue
// already gone on the broker side only logs a warning.
func (c *Channel) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if err := c.broker.DeleteQueue(c.name); err != nil {
		if errors.Is(err, ErrNoSuchQueue) {
			log.Printf("Close: queue %s already deleted", c.name)
			return
		}
		log.Printf("Close: failed to delete queue %s: %v", c.name, err)
	}
}
