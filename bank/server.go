// Package bank implements the transaction coordinator of one bank node.
// A node owns a ledger and a pending-transaction table, exchanges deposit
// and balance messages with its peer through broker queues, and runs a
// polling loop that handles inbound traffic and compensates transfers
// whose confirmation never arrives.
package bank

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"bankmq/queue"
	"bankmq/store"
)

// Queue name prefixes shared by both nodes.
const (
	RequestPrefix = "request_"
	ResultPrefix  = "response_"
)

// Defaults applied by NewServer for zero-valued Config fields.
const (
	DefaultTick                 = 250 * time.Millisecond
	DefaultTransactionTimeout   = 60 * time.Second
	DefaultBalanceTries         = 10
	DefaultBalanceRetryInterval = 6 * time.Second
)

// Config carries the identity and timing parameters of one node.
type Config struct {
	// BIC is this node's bank identifier, RemoteBIC the peer's.
	BIC       string
	RemoteBIC string

	// Tick is the polling loop interval.
	Tick time.Duration
	// TransactionTimeout is the age after which a pending transaction is
	// considered failed and compensated.
	TransactionTimeout time.Duration
	// BalanceTries and BalanceRetryInterval bound the wait for a remote
	// balance result.
	BalanceTries         int
	BalanceRetryInterval time.Duration

	// PurgeOnStart drains this node's own queues before the first tick.
	PurgeOnStart bool
	// DeleteQueuesOnStop deletes this node's own queues on shutdown. Must
	// stay false when the node is expected to resume with the same
	// identity.
	DeleteQueuesOnStop bool
}

func (c Config) withDefaults() Config {
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	if c.TransactionTimeout <= 0 {
		c.TransactionTimeout = DefaultTransactionTimeout
	}
	if c.BalanceTries <= 0 {
		c.BalanceTries = DefaultBalanceTries
	}
	if c.BalanceRetryInterval <= 0 {
		c.BalanceRetryInterval = DefaultBalanceRetryInterval
	}
	return c
}

// Server is the coordinator of one bank node.
type Server struct {
	cfg    Config
	broker queue.Broker
	ledger *store.Ledger
	table  store.Table

	ownRequests    *queue.Channel
	ownResults     *queue.Channel
	remoteRequests *queue.Channel
	remoteResults  *queue.Channel

	// applied records the outcome of every deposit request this node has
	// credited, keyed by transaction id. A redelivered request resends the
	// recorded result instead of crediting twice.
	mu      sync.Mutex
	applied map[string]bool
}

// NewServer opens the four persistent queues of the node pair and returns
// a coordinator ready to Run.
func NewServer(cfg Config, broker queue.Broker, ledger *store.Ledger, table store.Table) (*Server, error) {
	cfg = cfg.withDefaults()
	if cfg.BIC == "" || cfg.RemoteBIC == "" {
		return nil, &IllegalOperationError{Reason: "both bank identifiers must be set"}
	}
	if cfg.BIC == cfg.RemoteBIC {
		return nil, &IllegalOperationError{Reason: "bank identifiers must differ"}
	}

	s := &Server{
		cfg:     cfg,
		broker:  broker,
		ledger:  ledger,
		table:   table,
		applied: make(map[string]bool),
	}

	var err error
	if s.ownRequests, err = queue.OpenChannel(broker, RequestPrefix+cfg.BIC); err != nil {
		return nil, err
	}
	if s.ownResults, err = queue.OpenChannel(broker, ResultPrefix+cfg.BIC); err != nil {
		return nil, err
	}
	if s.remoteRequests, err = queue.OpenChannel(broker, RequestPrefix+cfg.RemoteBIC); err != nil {
		return nil, err
	}
	if s.remoteResults, err = queue.OpenChannel(broker, ResultPrefix+cfg.RemoteBIC); err != nil {
		return nil, err
	}

	if cfg.PurgeOnStart {
		log.Printf("NewServer: purging queues of %s", cfg.BIC)
		if err := s.ownRequests.Purge(); err != nil {
			return nil, fmt.Errorf("purging %s: %w", s.ownRequests.Name(), err)
		}
		if err := s.ownResults.Purge(); err != nil {
			return nil, fmt.Errorf("purging %s: %w", s.ownResults.Name(), err)
		}
	}
	return s, nil
}

// BIC returns this node's bank identifier.
func (s *Server) BIC() string { return s.cfg.BIC }

// Ledger returns the node's account ledger.
func (s *Server) Ledger() *store.Ledger { return s.ledger }

// Table returns the node's pending-transaction table.
func (s *Server) Table() store.Table { return s.table }

// Run drives the polling loop until ctx is cancelled. Each tick handles at
// most one inbound request, then all inbound results, then sweeps the
// transaction table for expired entries.
func (s *Server) Run(ctx context.Context) {
	log.Printf("Run: %s polling every %s", s.cfg.BIC, s.cfg.Tick)
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case <-ticker.C:
			s.pollRequest()
			s.pollResults()
			s.checkAndCompensateExpiredTransactions()
		}
	}
}

func (s *Server) shutdown() {
	log.Printf("shutdown: %s stopping", s.cfg.BIC)
	if s.cfg.DeleteQueuesOnStop {
		s.ownRequests.Close()
		s.ownResults.Close()
	}
}

// resultChannel returns the response channel of the node that issued the
// given transaction id. With a two-node pair that is always the peer; a
// foreign prefix is logged because it indicates a misrouted request.
func (s *Server) resultChannel(txID string) *queue.Channel {
	if !strings.HasPrefix(txID, s.cfg.RemoteBIC+"_") {
		log.Printf("resultChannel: transaction %s was not issued by peer %s", txID, s.cfg.RemoteBIC)
	}
	return s.remoteResults
}
