package main

import (
	"flag"
	"log"
	"net"
	"time"

	"bankmq/queue"
)

func main() {
	var (
		addr       string
		visibility time.Duration
	)

	flag.StringVar(&addr, "addr", ":9090", "Address to listen on")
	flag.DurationVar(&visibility, "visibility", queue.DefaultVisibilityTimeout, "Visibility timeout for received messages")
	flag.Parse()

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", addr, err)
	}
	log.Printf("[Broker] Listening on %s, visibility timeout %s", addr, visibility)

	if err := queue.Serve(lis, queue.NewMemBroker(visibility)); err != nil {
		log.Fatalf("Broker failed: %v", err)
	}
}
