package bank

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"bankmq/message"
	"bankmq/queue"
	"bankmq/store"
)

// Transfer moves amount from a local account to an account at bank toBIC.
// The local debit happens synchronously; for a cross-node transfer the
// remote credit is asynchronous and the returned transaction id stays in
// the table until the peer confirms it or the expiry sweep compensates it.
func (s *Server) Transfer(toBIC, fromIBAN, toIBAN string, amount decimal.Decimal) (string, error) {
	if amount.Sign() <= 0 {
		return "", &IllegalOperationError{Reason: fmt.Sprintf("transfer amount %s is not positive", amount)}
	}
	if toBIC != s.cfg.BIC && toBIC != s.cfg.RemoteBIC {
		return "", &UnknownBICError{BIC: toBIC}
	}

	id := s.table.Put(store.NewTransaction(fromIBAN, amount))
	if err := s.ledger.Withdraw(fromIBAN, amount); err != nil {
		if removeErr := s.table.Remove(id); removeErr != nil {
			log.Printf("Transfer: failed to remove %s after failed withdraw: %v", id, removeErr)
		}
		return "", err
	}

	if toBIC == s.cfg.BIC {
		if err := s.ledger.Deposit(toIBAN, amount); err != nil {
			log.Printf("Transfer: local credit of %s failed, %s left for the expiry sweep: %v", id, id, err)
			return id, err
		}
		if err := s.table.Remove(id); err != nil {
			log.Printf("Transfer: failed to remove %s: %v", id, err)
		}
		log.Printf("Transfer: moved %s from %s to %s locally", amount, fromIBAN, toIBAN)
		return id, nil
	}

	if err := s.remoteRequests.Send(message.NewDepositRequest(id, toBIC, toIBAN, amount)); err != nil {
		log.Printf("Transfer: failed to send deposit request %s, left for the expiry sweep: %v", id, err)
		return id, err
	}
	log.Printf("Transfer: sent deposit request %s for %s from %s to %s/%s", id, amount, fromIBAN, toBIC, toIBAN)
	return id, nil
}

// Withdraw debits a local account.
func (s *Server) Withdraw(iban string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return &IllegalOperationError{Reason: fmt.Sprintf("withdraw amount %s is not positive", amount)}
	}
	return s.ledger.Withdraw(iban, amount)
}

// Deposit credits a local account.
func (s *Server) Deposit(iban string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return &IllegalOperationError{Reason: fmt.Sprintf("deposit amount %s is not positive", amount)}
	}
	return s.ledger.Deposit(iban, amount)
}

// GetBalance returns the balance of an account at this node or its peer.
// A remote query registers a zero-amount placeholder transaction, opens a
// temporary reply queue named after its id and polls it for the answer.
// When the retry budget runs out the placeholder stays in the table for the
// expiry sweep and the caller gets TransactionExpiredError.
func (s *Server) GetBalance(ctx context.Context, bic, iban string) (decimal.Decimal, error) {
	if bic == s.cfg.BIC {
		return s.ledger.GetBalance(iban)
	}
	if bic != s.cfg.RemoteBIC {
		return decimal.Zero, &UnknownBICError{BIC: bic}
	}

	tx := store.NewQueryTransaction(iban)
	id := s.table.Put(tx)

	reply, err := queue.OpenChannel(s.broker, id)
	if err != nil {
		s.removeQuery(id)
		return decimal.Zero, err
	}
	defer reply.Close()

	if err := s.remoteRequests.Send(message.NewBalanceRequest(id, iban)); err != nil {
		s.removeQuery(id)
		return decimal.Zero, err
	}
	log.Printf("GetBalance: sent balance request %s for %s/%s", id, bic, iban)

	for try := 0; try < s.cfg.BalanceTries; try++ {
		if try > 0 {
			select {
			case <-ctx.Done():
				s.removeQuery(id)
				return decimal.Zero, ctx.Err()
			case <-time.After(s.cfg.BalanceRetryInterval):
			}
		}

		m, err := reply.ReceiveOne()
		if err != nil {
			log.Printf("GetBalance: receive on %s failed: %v", id, err)
			continue
		}
		if m == nil {
			continue
		}

		result, ok := m.(*message.BalanceResult)
		if !ok {
			log.Printf("GetBalance: unexpected %T on %s, discarding", m, id)
			if err := reply.Delete(m); err != nil {
				log.Printf("GetBalance: failed to delete from %s: %v", id, err)
			}
			continue
		}
		if err := reply.Delete(m); err != nil {
			log.Printf("GetBalance: failed to delete result from %s: %v", id, err)
		}
		s.removeQuery(id)
		return result.Balance()
	}

	log.Printf("GetBalance: no result for %s after %d tries, left for the expiry sweep", id, s.cfg.BalanceTries)
	return decimal.Zero, &TransactionExpiredError{ID: id, Tx: tx}
}

func (s *Server) removeQuery(id string) {
	if err := s.table.Remove(id); err != nil {
		log.Printf("removeQuery: failed to remove %s: %v", id, err)
	}
}
