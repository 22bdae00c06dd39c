package queue

import (
	"errors"
	"net"
	"testing"
	"time"
)

func dialTestBroker(t *testing.T) *RPCBroker {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	t.Cleanup(func() { lis.Close() })

	go Serve(lis, NewMemBroker(100*time.Millisecond))

	client, err := Dial(lis.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRPCBrokerRoundTrip(t *testing.T) {
	broker := dialTestBroker(t)

	if err := broker.CreateQueue("q"); err != nil {
		t.Fatalf("CreateQueue failed: %v", err)
	}
	if err := broker.Send("q", "over the wire"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	batch, err := broker.Receive("q", 10)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if len(batch) != 1 || batch[0].Body != "over the wire" {
		t.Fatalf("Receive = %v, want one message with body %q", batch, "over the wire")
	}
	if batch[0].Receipt == "" {
		t.Fatal("received message has no receipt")
	}

	if err := broker.Delete("q", batch[0].Receipt); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	empty, err := broker.Receive("q", 10)
	if err != nil {
		t.Fatalf("Receive after delete failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("queue not empty after delete: %v", empty)
	}

	if err := broker.DeleteQueue("q"); err != nil {
		t.Fatalf("DeleteQueue failed: %v", err)
	}
}

func TestRPCBrokerTranslatesSentinel(t *testing.T) {
	broker := dialTestBroker(t)

	if err := broker.Send("missing", "x"); !errors.Is(err, ErrNoSuchQueue) {
		t.Fatalf("Send returned %v, want ErrNoSuchQueue", err)
	}
	if _, err := broker.Receive("missing", 1); !errors.Is(err, ErrNoSuchQueue) {
		t.Fatalf("Receive returned %v, want ErrNoSuchQueue", err)
	}
	if err := broker.DeleteQueue("missing"); !errors.Is(err, ErrNoSuchQueue) {
		t.Fatalf("DeleteQueue returned %v, want ErrNoSuchQueue", err)
	}
}

func TestRPCBrokerBacksChannel(t *testing.T) {
	broker := dialTestBroker(t)

	ch, err := OpenChannel(broker, "request_BANK1")
	if err != nil {
		t.Fatalf("OpenChannel over RPC failed: %v", err)
	}
	defer ch.Close()

	if err := broker.Send("request_BANK1", "BalanceRequest%BANK2_1!iban=BANK1.1"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	m, err := ch.ReceiveOne()
	if err != nil {
		t.Fatalf("ReceiveOne failed: %v", err)
	}
	if m == nil || m.TransactionID() != "BANK2_1" {
		t.Fatalf("ReceiveOne = %v, want BalanceRequest BANK2_1", m)
	}
}
