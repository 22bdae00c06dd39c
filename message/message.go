package message

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"bankmq/store"
)

// Tags identifying the message variants on the wire.
const (
	TagBalanceRequest = "BalanceRequest"
	TagDepositRequest = "DepositRequest"
	TagBalanceResult  = "BalanceResult"
	TagDepositResult  = "DepositResult"
)

// Message is one envelope flowing between bank nodes. The variant set is
// closed: only the types declared in this package satisfy it, and Parse
// rejects any tag outside the decoder registry.
type Message interface {
	// TransactionID is the correlation id tying results back to their
	// originating request.
	TransactionID() string
	// Receipt is the broker receipt handle attached at receive time. Empty
	// on locally constructed messages.
	Receipt() string

	tag() string
	params() map[string]string
	setReceipt(r string)
}

type base struct {
	txID    string
	receipt string
}

func (b *base) TransactionID() string { return b.txID }
func (b *base) Receipt() string       { return b.receipt }
func (b *base) setReceipt(r string)   { b.receipt = r }

// BalanceRequest asks the receiving node for the balance of one of its
// accounts. The reply arrives on a temporary queue named after the
// transaction id.
type BalanceRequest struct {
	base
	IBAN string
}

func NewBalanceRequest(txID, iban string) *BalanceRequest {
	return &BalanceRequest{base: base{txID: txID}, IBAN: iban}
}

func (m *BalanceRequest) tag() string { return TagBalanceRequest }

func (m *BalanceRequest) params() map[string]string {
	return map[string]string{"iban": m.IBAN}
}

// DepositRequest asks the receiving node to credit an account. It carries
// the target bank id so a misrouted request can be rejected instead of
// silently credited.
type DepositRequest struct {
	base
	BIC    string
	IBAN   string
	Amount decimal.Decimal
}

func NewDepositRequest(txID, bic, iban string, amount decimal.Decimal) *DepositRequest {
	return &DepositRequest{base: base{txID: txID}, BIC: bic, IBAN: iban, Amount: amount}
}

func (m *DepositRequest) tag() string { return TagDepositRequest }

func (m *DepositRequest) params() map[string]string {
	return map[string]string{
		"bic":    m.BIC,
		"iban":   m.IBAN,
		"amount": m.Amount.String(),
	}
}

// BalanceResult answers a BalanceRequest: either a balance or the
// unknown-account failure, never both.
type BalanceResult struct {
	base
	balance decimal.Decimal
	failure *store.UnknownAccountError
}

func NewBalanceResult(txID string, balance decimal.Decimal) *BalanceResult {
	return &BalanceResult{base: base{txID: txID}, balance: balance}
}

func NewBalanceFailure(txID string, failure *store.UnknownAccountError) *BalanceResult {
	return &BalanceResult{base: base{txID: txID}, failure: failure}
}

// Balance returns the queried balance, or the remote node's unknown-account
// error when the query failed.
func (m *BalanceResult) Balance() (decimal.Decimal, error) {
	if m.failure != nil {
		return decimal.Zero, m.failure
	}
	return m.balance, nil
}

func (m *BalanceResult) tag() string { return TagBalanceResult }

func (m *BalanceResult) params() map[string]string {
	if m.failure != nil {
		return map[string]string{"error": m.failure.EncodeString()}
	}
	return map[string]string{"balance": m.balance.String()}
}

// DepositResult reports whether a DepositRequest was applied.
type DepositResult struct {
	base
	Success bool
}

func NewDepositResult(txID string, success bool) *DepositResult {
	return &DepositResult{base: base{txID: txID}, Success: success}
}

func (m *DepositResult) tag() string { return TagDepositResult }

func (m *DepositResult) params() map[string]string {
	return map[string]string{"status": strconv.FormatBool(m.Success)}
}

// Pack serializes a message into its wire string.
func Pack(m Message) string {
	return data{tag: m.tag(), txID: m.TransactionID(), params: m.params()}.pack()
}

var decoders = map[string]func(txID string, params map[string]string) (Message, error){
	TagBalanceRequest: decodeBalanceRequest,
	TagDepositRequest: decodeDepositRequest,
	TagBalanceResult:  decodeBalanceResult,
	TagDepositResult:  decodeDepositResult,
}

// Parse decodes a wire string into its message variant and attaches the
// broker receipt handle.
func Parse(body, receipt string) (Message, error) {
	d, err := parseData(body)
	if err != nil {
		return nil, err
	}
	decode, ok := decoders[d.tag]
	if !ok {
		return nil, fmt.Errorf("unknown message tag %q", d.tag)
	}
	m, err := decode(d.txID, d.params)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", d.tag, err)
	}
	m.setReceipt(receipt)
	return m, nil
}

func requireParam(params map[string]string, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing parameter %q", key)
	}
	return v, nil
}

func decodeBalanceRequest(txID string, params map[string]string) (Message, error) {
	iban, err := requireParam(params, "iban")
	if err != nil {
		return nil, err
	}
	return NewBalanceRequest(txID, iban), nil
}

func decodeDepositRequest(txID string, params map[string]string) (Message, error) {
	bic, err := requireParam(params, "bic")
	if err != nil {
		return nil, err
	}
	iban, err := requireParam(params, "iban")
	if err != nil {
		return nil, err
	}
	raw, err := requireParam(params, "amount")
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return NewDepositRequest(txID, bic, iban, amount), nil
}

func decodeBalanceResult(txID string, params map[string]string) (Message, error) {
	if enc, ok := params["error"]; ok {
		failure, err := store.ParseUnknownAccount(enc)
		if err != nil {
			return nil, err
		}
		return NewBalanceFailure(txID, failure), nil
	}
	raw, err := requireParam(params, "balance")
	if err != nil {
		return nil, err
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q: %w", raw, err)
	}
	return NewBalanceResult(txID, balance), nil
}

func decodeDepositResult(txID string, params map[string]string) (Message, error) {
	raw, err := requireParam(params, "status")
	if err != nil {
		return nil, err
	}
	success, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid status %q: %w", raw, err)
	}
	return NewDepositResult(txID, success), nil
}
