package bank

import (
	"errors"
	"log"

	"bankmq/message"
	"bankmq/queue"
	"bankmq/store"
)

// pollRequest handles at most one inbound request per tick.
func (s *Server) pollRequest() {
	m, err := s.ownRequests.ReceiveOne()
	if err != nil {
		log.Printf("pollRequest: receive on %s failed: %v", s.ownRequests.Name(), err)
		return
	}
	if m == nil {
		return
	}

	switch req := m.(type) {
	case *message.DepositRequest:
		s.handleDepositRequest(req)
	case *message.BalanceRequest:
		s.handleBalanceRequest(req)
	default:
		log.Printf("pollRequest: unexpected %T on %s, discarding", m, s.ownRequests.Name())
	}

	if err := s.ownRequests.Delete(m); err != nil {
		log.Printf("pollRequest: failed to delete %s: %v", m.TransactionID(), err)
	}
}

// handleDepositRequest credits the target account and reports the outcome
// to the requester. Failures are swallowed into success=false; the
// requester resolves them by compensation, not by error inspection. A
// redelivered request resends the recorded outcome without crediting again.
func (s *Server) handleDepositRequest(req *message.DepositRequest) {
	id := req.TransactionID()

	s.mu.Lock()
	success, seen := s.applied[id]
	s.mu.Unlock()

	if seen {
		log.Printf("handleDepositRequest: %s already handled, resending result", id)
	} else {
		if req.BIC != s.cfg.BIC {
			log.Printf("handleDepositRequest: %s targets %s, not %s", id, req.BIC, s.cfg.BIC)
		} else if err := s.ledger.Deposit(req.IBAN, req.Amount); err != nil {
			log.Printf("handleDepositRequest: deposit of %s to %s failed: %v", req.Amount, req.IBAN, err)
		} else {
			log.Printf("handleDepositRequest: deposited %s to %s for %s", req.Amount, req.IBAN, id)
			success = true
		}
		s.mu.Lock()
		s.applied[id] = success
		s.mu.Unlock()
	}

	if err := s.resultChannel(id).Send(message.NewDepositResult(id, success)); err != nil {
		log.Printf("handleDepositRequest: failed to send result for %s: %v", id, err)
	}
}

// handleBalanceRequest answers on the temporary reply queue named after the
// transaction id. The requester owns that queue and closes it.
func (s *Server) handleBalanceRequest(req *message.BalanceRequest) {
	id := req.TransactionID()

	var result *message.BalanceResult
	balance, err := s.ledger.GetBalance(req.IBAN)
	if err != nil {
		var unknown *store.UnknownAccountError
		if !errors.As(err, &unknown) {
			log.Printf("handleBalanceRequest: balance of %s failed: %v", req.IBAN, err)
			return
		}
		result = message.NewBalanceFailure(id, unknown)
	} else {
		result = message.NewBalanceResult(id, balance)
	}

	reply, err := queue.OpenChannel(s.broker, id)
	if err != nil {
		log.Printf("handleBalanceRequest: cannot open reply queue %s: %v", id, err)
		return
	}
	if err := reply.Send(result); err != nil {
		log.Printf("handleBalanceRequest: failed to send result for %s: %v", id, err)
	}
}

// pollResults drains and handles all inbound results of this tick.
func (s *Server) pollResults() {
	messages, err := s.ownResults.ReceiveAll()
	if err != nil {
		log.Printf("pollResults: receive on %s failed: %v", s.ownResults.Name(), err)
	}
	for _, m := range messages {
		if result, ok := m.(*message.DepositResult); ok {
			s.handleDepositResult(result)
		} else {
			log.Printf("pollResults: unexpected %T on %s, discarding", m, s.ownResults.Name())
		}
	}
	if err := s.ownResults.DeleteAll(messages); err != nil {
		log.Printf("pollResults: failed to delete handled results: %v", err)
	}
}

// handleDepositResult closes out the pending transaction the result refers
// to. An id no longer in the table means a duplicate or late result for a
// transaction already resolved, which is skipped. Failed deposits are
// compensated before removal.
func (s *Server) handleDepositResult(result *message.DepositResult) {
	id := result.TransactionID()

	tx, err := s.table.Get(id)
	if err != nil {
		log.Printf("handleDepositResult: %s already handled, skipping", id)
		return
	}

	if result.Success {
		log.Printf("handleDepositResult: transfer %s confirmed", id)
	} else {
		log.Printf("handleDepositResult: transfer %s rejected, compensating", id)
		s.compensate(id, tx)
	}
	if err := s.table.Remove(id); err != nil {
		log.Printf("handleDepositResult: failed to remove %s: %v", id, err)
	}
}

// checkAndCompensateExpiredTransactions sweeps the table and compensates
// every entry older than the transaction timeout.
func (s *Server) checkAndCompensateExpiredTransactions() {
	for id, tx := range s.table.List() {
		if !tx.Expired(s.cfg.TransactionTimeout) {
			continue
		}
		log.Printf("checkAndCompensateExpiredTransactions: %s expired: %s", id, tx)
		s.compensate(id, tx)
		if err := s.table.Remove(id); err != nil {
			log.Printf("checkAndCompensateExpiredTransactions: failed to remove %s: %v", id, err)
		}
	}
}

// compensate re-deposits the debited amount of a failed transfer. Balance
// query placeholders carry no debit, so a zero amount is a no-op. The
// original debit succeeded, so a failure here can only be logged.
func (s *Server) compensate(id string, tx store.Transaction) {
	if tx.Amount.IsZero() {
		log.Printf("compensate: %s carries no debit, nothing to reverse", id)
		return
	}
	if err := s.ledger.Deposit(tx.IBAN, tx.Amount); err != nil {
		log.Printf("compensate: failed to re-deposit %s to %s: %v", tx.Amount, tx.IBAN, err)
		return
	}
	log.Printf("compensate: re-deposited %s to %s for %s", tx.Amount, tx.IBAN, id)
}
