package queue

import (
	"log"
	"net"
	"net/rpc"
)

// ServiceName is the name the broker service registers under.
const ServiceName = "Broker"

// Empty is the reply type of RPC methods that return nothing.
type Empty struct{}

// QueueArgs names a queue for create and delete calls.
type QueueArgs struct {
	Queue string
}

// SendArgs carries one message body to a queue.
type SendArgs struct {
	Queue string
	Body  string
}

// ReceiveArgs asks for up to Max visible messages from a queue.
type ReceiveArgs struct {
	Queue string
	Max   int
}

// ReceiveReply carries the received messages back to the client.
type ReceiveReply struct {
	Messages []RawMessage
}

// DeleteArgs identifies one received message by its receipt handle.
type DeleteArgs struct {
	Queue   string
	Receipt string
}

// BrokerService exposes a Broker over net/rpc.
type BrokerService struct {
	broker Broker
}

func NewBrokerService(b Broker) *BrokerService {
	return &BrokerService{broker: b}
}

func (s *BrokerService) CreateQueue(args *QueueArgs, _ *Empty) error {
	return s.broker.CreateQueue(args.Queue)
}

func (s *BrokerService) DeleteQueue(args *QueueArgs, _ *Empty) error {
	return s.broker.DeleteQueue(args.Queue)
}

func (s *BrokerService) Send(args *SendArgs, _ *Empty) error {
	return s.broker.Send(args.Queue, args.Body)
}

func (s *BrokerService) Receive(args *ReceiveArgs, reply *ReceiveReply) error {
	messages, err := s.broker.Receive(args.Queue, args.Max)
	if err != nil {
		return err
	}
	reply.Messages = messages
	return nil
}

func (s *BrokerService) Delete(args *DeleteArgs, _ *Empty) error {
	return s.broker.Delete(args.Queue, args.Receipt)
}

// Serve accepts connections on l and serves b until the listener closes.
func Serve(l net.Listener, b Broker) error {
	srv := rpc.NewServer()
	if err := srv.RegisterName(ServiceName, NewBrokerService(b)); err != nil {
		return err
	}
	for {
		conn, err := l.Accept()
		if err != nil {
			return err
		}
		log.Printf("Serve: accepted broker connection from %s", conn.RemoteAddr())
		go srv.ServeConn(conn)
	}
}

// RPCBroker is the client side of BrokerService. It satisfies Broker, so
// bank nodes use an in-process MemBroker and a remote broker daemon
// interchangeably.
type RPCBroker struct {
	client *rpc.Client
}

// Dial connects to a broker daemon at addr.
func Dial(addr string) (*RPCBroker, error) {
	client, err := rpc.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &RPCBroker{client: client}, nil
}

// Close closes the underlying connection.
func (b *RPCBroker) Close() error {
	return b.client.Close()
}

// translate maps the flattened server-side error string back to the
// sentinel so callers can compare with errors.Is.
func translate(err error) error {
	if err != nil && err.Error() == ErrNoSuchQueue.Error() {
		return ErrNoSuchQueue
	}
	return err
}

func (b *RPCBroker) CreateQueue(name string) error {
	return translate(b.client.Call(ServiceName+".CreateQueue", &QueueArgs{Queue: name}, &Empty{}))
}

func (b *RPCBroker) DeleteQueue(name string) error {
	return translate(b.client.Call(ServiceName+".DeleteQueue", &QueueArgs{Queue: name}, &Empty{}))
}

func (b *RPCBroker) Send(queue, body string) error {
	return translate(b.client.Call(ServiceName+".Send", &SendArgs{Queue: queue, Body: body}, &Empty{}))
}

func (b *RPCBroker) Receive(queue string, max int) ([]RawMessage, error) {
	var reply ReceiveReply
	if err := b.client.Call(ServiceName+".Receive", &ReceiveArgs{Queue: queue, Max: max}, &reply); err != nil {
		return nil, translate(err)
	}
	return reply.Messages, nil
}

func (b *RPCBroker) Delete(queue, receipt string) error {
	return translate(b.client.Call(ServiceName+".Delete", &DeleteArgs{Queue: queue, Receipt: receipt}, &Empty{}))
}
