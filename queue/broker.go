// Package queue provides the message broker the bank nodes communicate
// through: a named-queue store with receipt-handle deletion and
// visibility-timeout redelivery, reachable in-process or over RPC, plus a
// typed channel layered on top for sending and receiving bank messages.
package queue

import "errors"

// ErrNoSuchQueue is returned for operations on a queue that does not exist.
var ErrNoSuchQueue = errors.New("no such queue")

// RawMessage is one received message body together with the receipt handle
// required to delete it. A message stays in its queue until deleted; if the
// receipt's visibility window lapses first, the message is delivered again
// under a fresh receipt.
type RawMessage struct {
	Body    string
	Receipt string
}

// Broker is the queue store shared by both bank nodes. Delivery is
// at-least-once and unordered: consumers must tolerate duplicates and must
// delete messages explicitly once handled.
type Broker interface {
	// CreateQueue creates the named queue. Creating an existing queue is
	// not an error.
	CreateQueue(name string) error
	// DeleteQueue removes the queue and everything in it.
	DeleteQueue(name string) error
	// Send appends a message body to the queue.
	Send(queue, body string) error
	// Receive returns up to max currently visible messages. The returned
	// messages become invisible for the visibility window.
	Receive(queue string, max int) ([]RawMessage, error)
	// Delete removes the message identified by the receipt handle. Deleting
	// an unknown or lapsed receipt is not an error.
	Delete(queue, receipt string) error
}
